package discord

import (
	"context"
	"errors"
)

// Service wraps the two role mutations the entitlement flow needs plus the
// identity call used to validate the bot token.
type Service interface {
	GrantRole(ctx context.Context, userID, roleID string) error
	RevokeRole(ctx context.Context, userID, roleID string) error
	Me(ctx context.Context) (*User, error)
	Status() string
}

// User is the subset of a Discord user object this service reads.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

var (
	ErrUnauthorized   = errors.New("discord_unauthorized")
	ErrForbidden      = errors.New("discord_forbidden")
	ErrMemberNotFound = errors.New("discord_member_not_found")
	ErrRateLimited    = errors.New("discord_rate_limited")
	ErrUpstream       = errors.New("discord_upstream_error")
)
