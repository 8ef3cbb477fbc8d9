package domain

import (
	"context"
	"errors"
)

type CreateLinkSessionRequest struct {
	DiscordID       string
	DiscordUsername string
}

type LinkSessionResponse struct {
	SessionKey      string            `json:"sessionKey"`
	DiscordID       string            `json:"discordId"`
	DiscordUsername string            `json:"discordUsername"`
	Status          LinkSessionStatus `json:"status"`
}

type Service interface {
	Create(context.Context, CreateLinkSessionRequest) (LinkSessionResponse, error)
	GetBySessionKey(context.Context, string) (LinkSessionResponse, error)
	PruneExpired(context.Context) (int64, error)
}

var (
	ErrInvalidIdentity  = errors.New("invalid_identity")
	ErrSessionNotFound  = errors.New("session_not_found")
	ErrInvalidSessionID = errors.New("invalid_session_key")
)
