package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, session *LinkSession) error
	FindBySessionKey(ctx context.Context, db *gorm.DB, sessionKey string, at time.Time) (*LinkSession, error)
	DeleteExpired(ctx context.Context, db *gorm.DB, before time.Time) (int64, error)
}
