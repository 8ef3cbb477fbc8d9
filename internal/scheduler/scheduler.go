package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/rolegate/internal/clock"
	linksessiondomain "github.com/smallbiznis/rolegate/internal/linksession/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log            *zap.Logger
	Clock          clock.Clock
	LinkSessionSvc linksessiondomain.Service
	Config         Config `optional:"true"`
}

// Scheduler runs the periodic maintenance jobs. The only job today prunes
// expired link sessions so abandoned OAuth handoffs do not accumulate.
type Scheduler struct {
	log            *zap.Logger
	cfg            Config
	clock          clock.Clock
	linkSessionSvc linksessiondomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.LinkSessionSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:            p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:            p.Config.withDefaults(),
		clock:          p.Clock,
		linkSessionSvc: p.LinkSessionSvc,
	}, nil
}

// RunOnce executes every job a single time.
func (s *Scheduler) RunOnce(parent context.Context) error {
	return s.runJob(parent, "prune_link_sessions", s.cfg.JobTimeout, s.PruneLinkSessionsJob)
}

func (s *Scheduler) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	log := s.log.With(zap.String("job", name))
	err := fn(ctx)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			log.Warn("job timed out",
				zap.Duration("timeout", timeout),
				zap.Duration("elapsed", elapsed),
			)
		} else {
			log.Error("job failed",
				zap.Duration("elapsed", elapsed),
				zap.Error(err),
			)
		}
		return err
	}

	log.Debug("job completed", zap.Duration("elapsed", elapsed))
	return nil
}

// PruneLinkSessionsJob deletes link sessions past their expiry.
func (s *Scheduler) PruneLinkSessionsJob(ctx context.Context) error {
	_, err := s.linkSessionSvc.PruneExpired(ctx)
	return err
}

// RunForever loops RunOnce on the configured interval until the context is
// canceled.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
