package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/smallbiznis/rolegate/internal/clock"
	"github.com/smallbiznis/rolegate/internal/config"
	"github.com/smallbiznis/rolegate/internal/discord"
	"github.com/smallbiznis/rolegate/internal/linksession"
	linksessiondomain "github.com/smallbiznis/rolegate/internal/linksession/domain"
	"github.com/smallbiznis/rolegate/internal/migration"
	"github.com/smallbiznis/rolegate/internal/oauth"
	"github.com/smallbiznis/rolegate/internal/observability"
	obsmiddleware "github.com/smallbiznis/rolegate/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/rolegate/internal/observability/metrics"
	obstracing "github.com/smallbiznis/rolegate/internal/observability/tracing"
	"github.com/smallbiznis/rolegate/internal/scheduler"
	"github.com/smallbiznis/rolegate/internal/storefront"
	"github.com/smallbiznis/rolegate/internal/subscription"
	subscriptiondomain "github.com/smallbiznis/rolegate/internal/subscription/domain"
	"github.com/smallbiznis/rolegate/pkg/db"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),

	config.Module,
	observability.Module,
	db.Module,
	migration.Module,
	clock.Module,

	discord.Module,
	oauth.Module,
	storefront.Module,
	linksession.Module,
	subscription.Module,
	scheduler.Module,

	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	genID           *snowflake.Node
	discordSvc      discord.Service
	oauthSvc        oauth.Service
	linkSessionSvc  linksessiondomain.Service
	subscriptionSvc subscriptiondomain.Service
	verifier        *storefront.Verifier
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	GenID           *snowflake.Node
	DiscordSvc      discord.Service
	OAuthSvc        oauth.Service
	LinkSessionSvc  linksessiondomain.Service
	SubscriptionSvc subscriptiondomain.Service
	Verifier        *storefront.Verifier
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		genID:           p.GenID,
		discordSvc:      p.DiscordSvc,
		oauthSvc:        p.OAuthSvc,
		linkSessionSvc:  p.LinkSessionSvc,
		subscriptionSvc: p.SubscriptionSvc,
		verifier:        p.Verifier,
	}

	svc.engine.Use(svc.CORS())

	svc.registerAuthRoutes()
	svc.registerWebhookRoutes()
	svc.registerAPIRoutes()
	svc.registerHealthRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.GET("/discord", s.DiscordAuth)
	auth.GET("/discord/callback", s.DiscordCallback)
}

func (s *Server) registerWebhookRoutes() {
	webhook := s.engine.Group("/webhook")

	webhook.POST("/purchase", s.HandlePurchaseWebhook)
	webhook.POST("/cancellation", s.HandleCancellationWebhook)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/link-sessions/:key", s.GetLinkSession)
	api.GET("/subscriptions", s.ListSubscriptions)
	api.GET("/subscriptions/:orderId", s.GetSubscriptionByOrderID)
}

func (s *Server) registerHealthRoutes() {
	s.engine.GET("/health", s.Health)
}
