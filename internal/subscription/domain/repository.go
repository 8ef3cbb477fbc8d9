package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	Update(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	FindByOrderID(ctx context.Context, db *gorm.DB, orderID string) (*Subscription, error)
	FindByOrderIDForUpdate(ctx context.Context, db *gorm.DB, orderID string) (*Subscription, error)
	FindActiveByDiscordID(ctx context.Context, db *gorm.DB, discordID string) (*Subscription, error)
	List(ctx context.Context, db *gorm.DB, discordID string, status SubscriptionStatus, createdBefore *time.Time, limit int) ([]Subscription, error)
}
