// Package scheduler runs the background sweep that marks pending milestones
// overdue once their due date passes.
package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	agreementdomain "github.com/caiohomem/assistente-sub001/internal/agreement/domain"
	"github.com/caiohomem/assistente-sub001/internal/clock"
	"github.com/caiohomem/assistente-sub001/internal/config"
	"github.com/caiohomem/assistente-sub001/internal/observability/metrics"
	"github.com/caiohomem/assistente-sub001/internal/persistence"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	Config       config.Config
	Repo         agreementdomain.Repository
	AgreementSvc agreementdomain.Service
}

type Scheduler struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	cfg          config.SchedulerConfig
	repo         agreementdomain.Repository
	agreementSvc agreementdomain.Service
	metrics      *metrics.SweepMetrics
}

func NewScheduler(p Params) *Scheduler {
	return &Scheduler{
		db:           p.DB,
		log:          p.Log.Named("scheduler"),
		clock:        p.Clock,
		cfg:          p.Config.Scheduler,
		repo:         p.Repo,
		agreementSvc: p.AgreementSvc,
		metrics: metrics.SweepWithConfig(metrics.Config{
			ServiceName: p.Config.ServiceName,
			Environment: p.Config.Environment,
		}),
	}
}

func (s *Scheduler) RunForever(ctx context.Context) {
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("milestone sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs one sweep: mark overdue milestones, then refresh the
// outbox backlog gauges.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()
	defer func() {
		s.metrics.ObserveSweepDuration(time.Since(start))
	}()

	if err := s.sweepOverdueMilestones(ctx); err != nil {
		return err
	}
	return s.reportOutboxBacklog(ctx)
}

func (s *Scheduler) sweepOverdueMilestones(ctx context.Context) error {
	candidates, err := s.fetchOverdueForWork(ctx, s.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, candidate := range candidates {
		err := s.agreementSvc.MarkMilestoneOverdue(ctx, candidate.AgreementID.String(), candidate.MilestoneID.String())
		switch {
		case err == nil:
			s.metrics.IncMilestoneMarked("overdue")
			s.log.Info("milestone marked overdue",
				zap.String("agreement_id", candidate.AgreementID.String()),
				zap.String("milestone_id", candidate.MilestoneID.String()),
			)
		case errors.Is(err, agreementdomain.ErrMilestoneNotFound),
			errors.Is(err, agreementdomain.ErrAgreementNotFound),
			errors.Is(err, persistence.ErrStaleVersion):
			// Raced with another writer; the next sweep settles it.
			s.metrics.IncMilestoneMarked("skipped")
		default:
			s.metrics.IncMilestoneMarked("failed")
			s.log.Warn("failed to mark milestone overdue",
				zap.String("agreement_id", candidate.AgreementID.String()),
				zap.String("milestone_id", candidate.MilestoneID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *Scheduler) reportOutboxBacklog(ctx context.Context) error {
	var backlog int64
	if err := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM domain_events WHERE NOT published`,
	).Scan(&backlog).Error; err != nil {
		return err
	}
	s.metrics.SetOutboxBacklog(int(backlog))

	var oldest *time.Time
	if err := s.db.WithContext(ctx).Raw(
		`SELECT MIN(created_at) FROM domain_events WHERE NOT published`,
	).Scan(&oldest).Error; err != nil {
		return err
	}
	if oldest != nil {
		s.metrics.SetOutboxBacklogOldest(s.clock.Now().Sub(*oldest))
	} else {
		s.metrics.SetOutboxBacklogOldest(0)
	}
	return nil
}
