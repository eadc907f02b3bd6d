// Package scheduler runs periodic background jobs. Its only job audits the
// scope usage counters of every tenant against the live price lists.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lingoflow/internal/clock"
	obsmetrics "github.com/smallbiznis/lingoflow/internal/observability/metrics"
	"github.com/smallbiznis/lingoflow/internal/orgcontext"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
	scopedomain "github.com/smallbiznis/lingoflow/internal/scope/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const JobCounterDriftAudit = "counter_drift_audit"

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	ScopeSvc scopedomain.Service
	Metrics  *obsmetrics.SchedulerMetrics `optional:"true"`
	Config   Config                       `optional:"true"`
}

type Scheduler struct {
	db       *gorm.DB
	log      *zap.Logger
	cfg      Config
	genID    *snowflake.Node
	clock    clock.Clock
	scopeSvc scopedomain.Service
	metrics  *obsmetrics.SchedulerMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil || p.ScopeSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:       p.DB,
		log:      p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:      p.Config.withDefaults(),
		genID:    p.GenID,
		clock:    p.Clock,
		scopeSvc: p.ScopeSvc,
		metrics:  p.Metrics,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// A deadline is a soft timeout; the next tick picks up where this one stopped.
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	return s.runJob(parent, JobCounterDriftAudit, s.cfg.BatchSize, s.cfg.JobTimeout, s.CounterDriftAuditJob)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)

	for {
		if lag := s.clock.Now().Sub(nextRun); lag > 0 {
			s.metrics.ObserveRunLoopLag(lag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// CounterDriftAuditJob reconciles both party kinds of every tenant that owns
// a vendor or client. A failing tenant is logged and skipped.
func (s *Scheduler) CounterDriftAuditJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)

	var after snowflake.ID
	for {
		orgIDs, err := s.fetchOrganizations(ctx, after, s.cfg.BatchSize)
		if err != nil {
			return err
		}
		for _, orgID := range orgIDs {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.auditOrganization(ctx, run, orgID)
			run.AddProcessed(1)
		}
		s.metrics.AddBatchProcessed(JobCounterDriftAudit, obsmetrics.SchedulerResourceOrganizations, len(orgIDs))

		if len(orgIDs) < s.cfg.BatchSize {
			return nil
		}
		after = orgIDs[len(orgIDs)-1]
	}
}

func (s *Scheduler) auditOrganization(ctx context.Context, run *jobRun, orgID snowflake.ID) {
	ctx = orgcontext.WithOrgID(s.withLogContext(ctx, orgID), orgID)

	for _, kind := range []partydomain.Kind{partydomain.KindVendor, partydomain.KindClient} {
		drifts, err := s.scopeSvc.Reconcile(ctx, kind, orgID, scopedomain.ReconcileOptions{
			Apply:      s.cfg.Repair,
			AddMissing: s.cfg.AddMissing,
		})
		if err != nil {
			s.logSchedulerError(ctx, run, "scheduler.drift_audit.failed", JobCounterDriftAudit, orgID, err,
				zap.String("party_kind", kind.String()),
			)
			continue
		}
		if len(drifts) == 0 {
			continue
		}

		run.AddDrifts(len(drifts))
		s.metrics.AddBatchProcessed(JobCounterDriftAudit, obsmetrics.SchedulerResourceDrifts, len(drifts))
		s.logger(ctx).Warn("scheduler.drift_audit.drift_found",
			zap.String("party_kind", kind.String()),
			zap.Int("drifts", len(drifts)),
			zap.Bool("repaired", s.cfg.Repair),
		)
	}
}

// fetchOrganizations pages through the tenants that own at least one party.
func (s *Scheduler) fetchOrganizations(ctx context.Context, after snowflake.ID, limit int) ([]snowflake.ID, error) {
	var orgIDs []snowflake.ID
	err := s.db.WithContext(ctx).Raw(
		`SELECT o.org_id FROM (
			SELECT org_id FROM vendors
			UNION
			SELECT org_id FROM clients
		 ) o
		 WHERE o.org_id > ?
		 ORDER BY o.org_id
		 LIMIT ?`,
		after,
		limit,
	).Scan(&orgIDs).Error
	if err != nil {
		return nil, err
	}
	return orgIDs, nil
}
