package repository

import (
	"context"
	"time"

	linksessiondomain "github.com/smallbiznis/rolegate/internal/linksession/domain"
	pkgdb "github.com/smallbiznis/rolegate/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() linksessiondomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, session *linksessiondomain.LinkSession) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO link_sessions (
			id, session_key, discord_id, discord_username, status, created_at, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.SessionKey,
		session.DiscordID,
		session.DiscordUsername,
		session.Status,
		session.CreatedAt,
		session.ExpiresAt,
	).Error
}

func (r *repo) FindBySessionKey(ctx context.Context, db *gorm.DB, sessionKey string, at time.Time) (*linksessiondomain.LinkSession, error) {
	var session linksessiondomain.LinkSession
	err := db.WithContext(ctx).Raw(
		`SELECT id, session_key, discord_id, discord_username, status, created_at, expires_at
		 FROM link_sessions
		 WHERE session_key = ? AND expires_at > ?`,
		sessionKey,
		at,
	).First(&session).Error
	if err != nil {
		if pkgdb.IsNotFoundErr(err) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *repo) DeleteExpired(ctx context.Context, db *gorm.DB, before time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM link_sessions WHERE expires_at <= ?`,
		before,
	)
	return result.RowsAffected, result.Error
}
