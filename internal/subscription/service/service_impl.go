package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/rolegate/internal/clock"
	"github.com/smallbiznis/rolegate/internal/config"
	"github.com/smallbiznis/rolegate/internal/discord"
	"github.com/smallbiznis/rolegate/internal/observability/logger"
	"github.com/smallbiznis/rolegate/internal/observability/metrics"
	subscriptiondomain "github.com/smallbiznis/rolegate/internal/subscription/domain"
	"github.com/smallbiznis/rolegate/pkg/db"
	"github.com/smallbiznis/rolegate/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID   *snowflake.Node
	clock   clock.Clock
	repo    subscriptiondomain.Repository
	roles   discord.Service
	cfg     config.Config
	roleMap *config.RoleMapHolder
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    subscriptiondomain.Repository
	Roles   discord.Service
	Cfg     config.Config
	RoleMap *config.RoleMapHolder
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("subscription.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		roles:   p.Roles,
		cfg:     p.Cfg,
		roleMap: p.RoleMap,
	}
}

// Activate grants the entitled role and upserts the ACTIVE record for the
// order. The role mutation is confirmed before any store write so a failed
// grant never leaves a dangling subscription.
func (s *Service) Activate(ctx context.Context, req subscriptiondomain.ActivateSubscriptionRequest) (subscriptiondomain.SubscriptionResponse, error) {
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return subscriptiondomain.SubscriptionResponse{}, subscriptiondomain.ErrInvalidOrder
	}
	discordID := strings.TrimSpace(req.DiscordID)
	if discordID == "" {
		return subscriptiondomain.SubscriptionResponse{}, subscriptiondomain.ErrInvalidIdentity
	}

	planCode := strings.ToLower(strings.TrimSpace(req.PlanCode))
	roleID := s.roleMap.ResolveRole(planCode, s.cfg.Discord.PremiumRoleID)
	log := logger.WithDiscordUser(s.log, discordID)

	existing, err := s.repo.FindByOrderID(ctx, s.db, orderID)
	if err != nil {
		return subscriptiondomain.SubscriptionResponse{}, err
	}

	// One active subscription per identity: a different active order for
	// this Discord user is a conflict, checked before touching the role.
	active, err := s.repo.FindActiveByDiscordID(ctx, s.db, discordID)
	if err != nil {
		return subscriptiondomain.SubscriptionResponse{}, err
	}
	if active != nil && active.OrderID != orderID {
		return subscriptiondomain.SubscriptionResponse{}, subscriptiondomain.ErrActiveSubscriptionExists
	}

	if err := s.roles.GrantRole(ctx, discordID, roleID); err != nil {
		metrics.Entitlement().RoleGrants.WithLabelValues("error").Inc()
		log.Error("role grant failed",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return subscriptiondomain.SubscriptionResponse{}, err
	}
	metrics.Entitlement().RoleGrants.WithLabelValues("ok").Inc()

	now := s.clock.Now()
	if existing != nil {
		existing.DiscordID = discordID
		existing.PlanCode = planCode
		existing.RoleID = roleID
		existing.Status = subscriptiondomain.SubscriptionStatusActive
		existing.Metadata = datatypes.JSONMap(req.Metadata)
		existing.UpdatedAt = now
		existing.CanceledAt = nil
		if err := s.repo.Update(ctx, s.db, existing); err != nil {
			return subscriptiondomain.SubscriptionResponse{}, err
		}
		log.Info("subscription reactivated",
			zap.String("order_id", orderID),
		)
		return toResponse(*existing), nil
	}

	subscription := subscriptiondomain.Subscription{
		ID:        s.genID.Generate(),
		OrderID:   orderID,
		DiscordID: discordID,
		PlanCode:  planCode,
		RoleID:    roleID,
		Status:    subscriptiondomain.SubscriptionStatusActive,
		Metadata:  datatypes.JSONMap(req.Metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, &subscription); err != nil {
		// Two concurrent activations for one identity can both pass the
		// conflict check; the partial unique index rejects the loser here.
		if db.IsDuplicateKeyErr(err) {
			return subscriptiondomain.SubscriptionResponse{}, subscriptiondomain.ErrActiveSubscriptionExists
		}
		return subscriptiondomain.SubscriptionResponse{}, err
	}

	log.Info("subscription activated",
		zap.String("order_id", orderID),
		zap.String("plan_code", planCode),
	)
	return toResponse(subscription), nil
}

// Cancel revokes the stored role and marks the record CANCELED. The lookup
// and status write run inside one transaction with a row lock so concurrent
// cancellations for the same order cannot both reach the revoke call.
func (s *Service) Cancel(ctx context.Context, req subscriptiondomain.CancelSubscriptionRequest) (subscriptiondomain.SubscriptionResponse, error) {
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return subscriptiondomain.SubscriptionResponse{}, subscriptiondomain.ErrInvalidOrder
	}

	var response subscriptiondomain.SubscriptionResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subscription, err := s.repo.FindByOrderIDForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if subscription == nil {
			return subscriptiondomain.ErrSubscriptionNotFound
		}

		// Replayed cancellation: already revoked, nothing to do.
		if subscription.Status == subscriptiondomain.SubscriptionStatusCanceled {
			response = toResponse(*subscription)
			return nil
		}

		log := logger.WithDiscordUser(s.log, subscription.DiscordID)
		if err := s.roles.RevokeRole(ctx, subscription.DiscordID, subscription.RoleID); err != nil {
			metrics.Entitlement().RoleRevokes.WithLabelValues("error").Inc()
			log.Error("role revoke failed",
				zap.String("order_id", orderID),
				zap.Error(err),
			)
			return err
		}
		metrics.Entitlement().RoleRevokes.WithLabelValues("ok").Inc()

		now := s.clock.Now()
		subscription.Status = subscriptiondomain.SubscriptionStatusCanceled
		subscription.UpdatedAt = now
		subscription.CanceledAt = &now
		if err := s.repo.Update(ctx, tx, subscription); err != nil {
			return err
		}

		log.Info("subscription canceled",
			zap.String("order_id", orderID),
		)
		response = toResponse(*subscription)
		return nil
	})
	if err != nil {
		return subscriptiondomain.SubscriptionResponse{}, err
	}
	return response, nil
}

// GetByOrderID returns the record for one storefront order.
func (s *Service) GetByOrderID(ctx context.Context, orderID string) (subscriptiondomain.SubscriptionResponse, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return subscriptiondomain.SubscriptionResponse{}, subscriptiondomain.ErrInvalidOrder
	}

	subscription, err := s.repo.FindByOrderID(ctx, s.db, orderID)
	if err != nil {
		return subscriptiondomain.SubscriptionResponse{}, err
	}
	if subscription == nil {
		return subscriptiondomain.SubscriptionResponse{}, subscriptiondomain.ErrSubscriptionNotFound
	}
	return toResponse(*subscription), nil
}

// List pages through subscriptions newest first.
func (s *Service) List(ctx context.Context, req subscriptiondomain.ListSubscriptionRequest) (subscriptiondomain.ListSubscriptionResponse, error) {
	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}
	limit := page.Limit()

	var createdBefore *time.Time
	if strings.TrimSpace(req.PageToken) != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return subscriptiondomain.ListSubscriptionResponse{}, subscriptiondomain.ErrInvalidPageToken
		}
		parsed, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return subscriptiondomain.ListSubscriptionResponse{}, subscriptiondomain.ErrInvalidPageToken
		}
		createdBefore = &parsed
	}

	status := subscriptiondomain.SubscriptionStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	records, err := s.repo.List(ctx, s.db, strings.TrimSpace(req.DiscordID), status, createdBefore, limit+1)
	if err != nil {
		return subscriptiondomain.ListSubscriptionResponse{}, err
	}

	response := subscriptiondomain.ListSubscriptionResponse{
		Subscriptions: make([]subscriptiondomain.SubscriptionResponse, 0, len(records)),
	}
	hasMore := len(records) > limit
	if hasMore {
		records = records[:limit]
	}
	for _, record := range records {
		response.Subscriptions = append(response.Subscriptions, toResponse(record))
	}
	if hasMore {
		last := records[len(records)-1]
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        last.OrderID,
			CreatedAt: last.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return subscriptiondomain.ListSubscriptionResponse{}, err
		}
		response.NextPageToken = token
		response.HasMore = true
	}
	return response, nil
}

func toResponse(subscription subscriptiondomain.Subscription) subscriptiondomain.SubscriptionResponse {
	return subscriptiondomain.SubscriptionResponse{
		OrderID:    subscription.OrderID,
		DiscordID:  subscription.DiscordID,
		PlanCode:   subscription.PlanCode,
		RoleID:     subscription.RoleID,
		Status:     subscription.Status,
		CreatedAt:  subscription.CreatedAt,
		CanceledAt: subscription.CanceledAt,
	}
}
