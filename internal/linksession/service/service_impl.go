package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/rolegate/internal/clock"
	"github.com/smallbiznis/rolegate/internal/config"
	linksessiondomain "github.com/smallbiznis/rolegate/internal/linksession/domain"
	"github.com/smallbiznis/rolegate/internal/observability/logger"
	"github.com/smallbiznis/rolegate/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	clock clock.Clock
	repo  linksessiondomain.Repository
	cfg   config.Config
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  linksessiondomain.Repository
	Cfg   config.Config
}

func NewService(p ServiceParam) linksessiondomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("linksession.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		cfg:   p.Cfg,
	}
}

// Create mints a session key and persists the pending-link record.
func (s *Service) Create(ctx context.Context, req linksessiondomain.CreateLinkSessionRequest) (linksessiondomain.LinkSessionResponse, error) {
	discordID := strings.TrimSpace(req.DiscordID)
	if discordID == "" {
		return linksessiondomain.LinkSessionResponse{}, linksessiondomain.ErrInvalidIdentity
	}

	now := s.clock.Now()
	session := linksessiondomain.LinkSession{
		ID:              s.genID.Generate(),
		SessionKey:      ulid.Make().String(),
		DiscordID:       discordID,
		DiscordUsername: strings.TrimSpace(req.DiscordUsername),
		Status:          linksessiondomain.LinkSessionStatusPending,
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.cfg.LinkSessionTTL),
	}

	if err := s.repo.Insert(ctx, s.db, &session); err != nil {
		s.log.Error("insert link session", zap.Error(err))
		return linksessiondomain.LinkSessionResponse{}, err
	}

	metrics.Entitlement().LinkSessionsCreated.Inc()
	logger.WithDiscordUser(s.log, session.DiscordID).Info("link session created",
		zap.String("session_key", session.SessionKey),
	)
	return toResponse(session), nil
}

// GetBySessionKey resolves a non-expired session for checkout.
func (s *Service) GetBySessionKey(ctx context.Context, sessionKey string) (linksessiondomain.LinkSessionResponse, error) {
	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" {
		return linksessiondomain.LinkSessionResponse{}, linksessiondomain.ErrInvalidSessionID
	}

	session, err := s.repo.FindBySessionKey(ctx, s.db, sessionKey, s.clock.Now())
	if err != nil {
		return linksessiondomain.LinkSessionResponse{}, err
	}
	if session == nil {
		return linksessiondomain.LinkSessionResponse{}, linksessiondomain.ErrSessionNotFound
	}

	metrics.Entitlement().LinkSessionsLinked.Inc()
	return toResponse(*session), nil
}

// PruneExpired removes sessions past their expiry.
func (s *Service) PruneExpired(ctx context.Context) (int64, error) {
	removed, err := s.repo.DeleteExpired(ctx, s.db, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		metrics.Entitlement().LinkSessionsPruned.Add(float64(removed))
		s.log.Info("pruned expired link sessions", zap.Int64("removed", removed))
	}
	return removed, nil
}

func toResponse(session linksessiondomain.LinkSession) linksessiondomain.LinkSessionResponse {
	return linksessiondomain.LinkSessionResponse{
		SessionKey:      session.SessionKey,
		DiscordID:       session.DiscordID,
		DiscordUsername: session.DiscordUsername,
		Status:          session.Status,
	}
}
