// Package domain contains persistence models for storefront subscriptions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// SubscriptionStatus represents lifecycle states for a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "ACTIVE"
	SubscriptionStatusCanceled SubscriptionStatus = "CANCELED"
)

// Subscription records one storefront order entitled to a Discord role.
type Subscription struct {
	ID         snowflake.ID       `gorm:"primaryKey"`
	OrderID    string             `gorm:"type:text;not null;uniqueIndex"`
	DiscordID  string             `gorm:"type:text;not null;index"`
	PlanCode   string             `gorm:"type:text;not null;default:''"`
	RoleID     string             `gorm:"type:text;not null"`
	Status     SubscriptionStatus `gorm:"type:text;not null"`
	Metadata   datatypes.JSONMap  `gorm:"type:jsonb"`
	CreatedAt  time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
	CanceledAt *time.Time         `gorm:""`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }
