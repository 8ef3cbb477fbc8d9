// Package domain contains persistence models for OAuth link sessions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// LinkSessionStatus represents lifecycle states for a link session.
type LinkSessionStatus string

const (
	LinkSessionStatusPending LinkSessionStatus = "PENDING_LINK"
)

// LinkSession records a Discord identity waiting to be attached to a
// storefront checkout.
type LinkSession struct {
	ID              snowflake.ID      `gorm:"primaryKey"`
	SessionKey      string            `gorm:"type:text;not null;uniqueIndex"`
	DiscordID       string            `gorm:"type:text;not null"`
	DiscordUsername string            `gorm:"type:text;not null;default:''"`
	Status          LinkSessionStatus `gorm:"type:text;not null"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	ExpiresAt       time.Time         `gorm:"not null;index"`
}

// TableName sets the database table name.
func (LinkSession) TableName() string { return "link_sessions" }
