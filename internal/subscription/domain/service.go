package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/rolegate/pkg/db/pagination"
)

type ActivateSubscriptionRequest struct {
	OrderID   string         `json:"id"`
	DiscordID string         `json:"discordUserId"`
	PlanCode  string         `json:"planCode,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type CancelSubscriptionRequest struct {
	OrderID string `json:"id"`
}

type ListSubscriptionRequest struct {
	DiscordID string
	Status    string
	PageToken string
	PageSize  int
}

type SubscriptionResponse struct {
	OrderID    string             `json:"orderId"`
	DiscordID  string             `json:"discordId"`
	PlanCode   string             `json:"planCode,omitempty"`
	RoleID     string             `json:"roleId"`
	Status     SubscriptionStatus `json:"status"`
	CreatedAt  time.Time          `json:"createdAt"`
	CanceledAt *time.Time         `json:"canceledAt,omitempty"`
}

type ListSubscriptionResponse struct {
	pagination.PageInfo
	Subscriptions []SubscriptionResponse `json:"subscriptions"`
}

type Service interface {
	Activate(context.Context, ActivateSubscriptionRequest) (SubscriptionResponse, error)
	Cancel(context.Context, CancelSubscriptionRequest) (SubscriptionResponse, error)
	GetByOrderID(context.Context, string) (SubscriptionResponse, error)
	List(context.Context, ListSubscriptionRequest) (ListSubscriptionResponse, error)
}

var (
	ErrInvalidOrder             = errors.New("invalid_order_id")
	ErrInvalidIdentity          = errors.New("invalid_discord_user_id")
	ErrSubscriptionNotFound     = errors.New("subscription_not_found")
	ErrActiveSubscriptionExists = errors.New("active_subscription_exists")
	ErrInvalidPageToken         = errors.New("invalid_page_token")
)
