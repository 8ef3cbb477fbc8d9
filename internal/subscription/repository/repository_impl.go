package repository

import (
	"context"
	"time"

	subscriptiondomain "github.com/smallbiznis/rolegate/internal/subscription/domain"
	pkgdb "github.com/smallbiznis/rolegate/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

const selectColumns = `id, order_id, discord_id, plan_code, role_id, status, metadata, created_at, updated_at, canceled_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, subscription *subscriptiondomain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (
			id, order_id, discord_id, plan_code, role_id, status, metadata, created_at, updated_at, canceled_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		subscription.ID,
		subscription.OrderID,
		subscription.DiscordID,
		subscription.PlanCode,
		subscription.RoleID,
		subscription.Status,
		subscription.Metadata,
		subscription.CreatedAt,
		subscription.UpdatedAt,
		subscription.CanceledAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, subscription *subscriptiondomain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET discord_id = ?, plan_code = ?, role_id = ?, status = ?, metadata = ?, updated_at = ?, canceled_at = ?
		 WHERE order_id = ?`,
		subscription.DiscordID,
		subscription.PlanCode,
		subscription.RoleID,
		subscription.Status,
		subscription.Metadata,
		subscription.UpdatedAt,
		subscription.CanceledAt,
		subscription.OrderID,
	).Error
}

func (r *repo) FindByOrderID(ctx context.Context, db *gorm.DB, orderID string) (*subscriptiondomain.Subscription, error) {
	return r.findByOrderID(ctx, db, orderID, false)
}

func (r *repo) FindByOrderIDForUpdate(ctx context.Context, db *gorm.DB, orderID string) (*subscriptiondomain.Subscription, error) {
	return r.findByOrderID(ctx, db, orderID, true)
}

func (r *repo) findByOrderID(ctx context.Context, db *gorm.DB, orderID string, lock bool) (*subscriptiondomain.Subscription, error) {
	query := `SELECT ` + selectColumns + ` FROM subscriptions WHERE order_id = ?`
	// sqlite has no row locks; the statement would not parse there.
	if lock && db.Dialector.Name() != "sqlite" {
		query += ` FOR UPDATE`
	}

	var subscription subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(query, orderID).First(&subscription).Error
	if err != nil {
		if pkgdb.IsNotFoundErr(err) {
			return nil, nil
		}
		return nil, err
	}
	return &subscription, nil
}

func (r *repo) FindActiveByDiscordID(ctx context.Context, db *gorm.DB, discordID string) (*subscriptiondomain.Subscription, error) {
	var subscription subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM subscriptions WHERE discord_id = ? AND status = ?`,
		discordID,
		subscriptiondomain.SubscriptionStatusActive,
	).First(&subscription).Error
	if err != nil {
		if pkgdb.IsNotFoundErr(err) {
			return nil, nil
		}
		return nil, err
	}
	return &subscription, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, discordID string, status subscriptiondomain.SubscriptionStatus, createdBefore *time.Time, limit int) ([]subscriptiondomain.Subscription, error) {
	query := `SELECT ` + selectColumns + ` FROM subscriptions WHERE 1 = 1`
	args := []any{}
	if discordID != "" {
		query += ` AND discord_id = ?`
		args = append(args, discordID)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	if createdBefore != nil {
		query += ` AND created_at < ?`
		args = append(args, *createdBefore)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	var subscriptions []subscriptiondomain.Subscription
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&subscriptions).Error; err != nil {
		return nil, err
	}
	return subscriptions, nil
}
