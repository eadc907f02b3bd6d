package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/lingoflow/internal/catalog/domain"
	"github.com/smallbiznis/lingoflow/internal/clock"
	"github.com/smallbiznis/lingoflow/internal/config"
	obslogger "github.com/smallbiznis/lingoflow/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/lingoflow/internal/observability/metrics"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
	scopedomain "github.com/smallbiznis/lingoflow/internal/scope/domain"
	settingsdomain "github.com/smallbiznis/lingoflow/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

type RegistryParams struct {
	fx.In

	Log         *zap.Logger
	Clock       clock.Clock
	PricingCfg  *config.PricingConfigHolder `optional:"true"`
	Metrics     *obsmetrics.PricingMetrics  `optional:"true"`
	OtelMetrics *obsmetrics.Metrics         `optional:"true"`
	Repo        scopedomain.Repository
	CatalogRepo catalogdomain.Repository
	Settings    settingsdomain.Resolver
}

type Registry struct {
	log         *zap.Logger
	clock       clock.Clock
	pricingCfg  *config.PricingConfigHolder
	metrics     *obsmetrics.PricingMetrics
	otelMetrics *obsmetrics.Metrics
	repo        scopedomain.Repository
	catalogRepo catalogdomain.Repository
	settings    settingsdomain.Resolver
}

func NewRegistry(p RegistryParams) scopedomain.Registry {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Registry{
		log:         p.Log.Named("scope.registry"),
		clock:       clk,
		pricingCfg:  p.PricingCfg,
		metrics:     p.Metrics,
		otelMetrics: p.OtelMetrics,
		repo:        p.Repo,
		catalogRepo: p.CatalogRepo,
		settings:    p.Settings,
	}
}

func (r *Registry) IsInScope(ctx context.Context, db *gorm.DB, kind partydomain.Kind, partyID snowflake.ID, dim partydomain.Dimension, valueID snowflake.ID) (bool, error) {
	return r.repo.Exists(ctx, db, kind, dim, partyID, valueID)
}

func (r *Registry) IncrementUsage(ctx context.Context, db *gorm.DB, kind partydomain.Kind, orgID, partyID snowflake.ID, dim partydomain.Dimension, valueID snowflake.ID) error {
	return r.repo.Increment(ctx, db, kind, dim, orgID, partyID, valueID, r.clock.Now())
}

// DecrementUsage never fails on drift. A missing row or a counter already at
// zero is logged at the configured level and counted.
func (r *Registry) DecrementUsage(ctx context.Context, db *gorm.DB, kind partydomain.Kind, orgID, partyID snowflake.ID, dim partydomain.Dimension, valueID snowflake.ID) error {
	rows, err := r.repo.Decrement(ctx, db, kind, dim, partyID, valueID)
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	entry, err := r.repo.Get(ctx, db, kind, dim, partyID, valueID)
	if err != nil {
		return err
	}
	reason := obsmetrics.DriftReasonMissingRow
	if entry != nil {
		reason = obsmetrics.DriftReasonAtZero
	}

	r.metrics.IncCounterDrift(kind.String(), dim.String(), reason)
	log := obslogger.WithParty(obslogger.WithContext(ctx, r.log), kind.String(), partyID.String())
	if ce := log.Check(r.driftLevel(), "scope counter drift on decrement"); ce != nil {
		ce.Write(
			zap.String("dimension", dim.String()),
			zap.String("value_id", valueID.String()),
			zap.String("reason", reason),
		)
	}
	return nil
}

func (r *Registry) driftLevel() zapcore.Level {
	if strings.EqualFold(r.pricingCfg.Get().CounterDrift, config.DriftLevelError) {
		return zapcore.ErrorLevel
	}
	return zapcore.WarnLevel
}

func (r *Registry) Checkers(flags settingsdomain.Flags) []scopedomain.Checker {
	checkers := make([]scopedomain.Checker, 0, len(partydomain.Dimensions))
	for _, dim := range partydomain.Dimensions {
		base := valueChecker{dim: dim, registry: r}
		if flags.Restricted(dim) {
			checkers = append(checkers, registryChecker{valueChecker: base})
			continue
		}
		checkers = append(checkers, base)
	}
	return checkers
}

type pairKey struct {
	partyID snowflake.ID
	valueID snowflake.ID
}

// Reconcile recomputes counters from the price list rows of one tenant.
// Parties whose flag is on for a dimension are skipped for it. With Apply each
// drifted counter is recounted in place; rows missing from the allow-list are
// only created with AddMissing.
func (r *Registry) Reconcile(ctx context.Context, db *gorm.DB, kind partydomain.Kind, orgID snowflake.ID, opts scopedomain.ReconcileOptions) ([]scopedomain.Drift, error) {
	flagsByParty := map[snowflake.ID]settingsdomain.Flags{}
	flagsFor := func(partyID snowflake.ID) (settingsdomain.Flags, error) {
		if flags, ok := flagsByParty[partyID]; ok {
			return flags, nil
		}
		flags, err := r.settings.Resolve(ctx, db, orgID, kind, partyID)
		if err != nil {
			return settingsdomain.Flags{}, err
		}
		flagsByParty[partyID] = flags
		return flags, nil
	}

	var drifts []scopedomain.Drift
	for _, dim := range partydomain.Dimensions {
		entries, err := r.repo.ListForOrg(ctx, db, kind, dim, orgID)
		if err != nil {
			return nil, err
		}
		usages, err := r.repo.CountPriceLists(ctx, db, kind, dim, orgID)
		if err != nil {
			return nil, err
		}

		actual := make(map[pairKey]int64, len(usages))
		for _, u := range usages {
			actual[pairKey{u.PartyID, u.ValueID}] = u.Count
		}

		dimDrifts := 0
		for _, e := range entries {
			key := pairKey{e.PartyID, e.ValueID}
			live := actual[key]
			delete(actual, key)

			flags, err := flagsFor(e.PartyID)
			if err != nil {
				return nil, err
			}
			if !flags.Restricted(dim) || e.UsageCount == live {
				continue
			}
			drifts = append(drifts, scopedomain.Drift{
				Kind: kind, PartyID: e.PartyID, Dimension: dim, ValueID: e.ValueID,
				Stored: e.UsageCount, Actual: live,
			})
			dimDrifts++
		}
		for _, u := range usages {
			key := pairKey{u.PartyID, u.ValueID}
			live, ok := actual[key]
			if !ok {
				continue
			}
			flags, err := flagsFor(u.PartyID)
			if err != nil {
				return nil, err
			}
			if !flags.Restricted(dim) {
				continue
			}
			drifts = append(drifts, scopedomain.Drift{
				Kind: kind, PartyID: u.PartyID, Dimension: dim, ValueID: u.ValueID,
				Actual: live, Missing: true,
			})
			dimDrifts++
		}

		for i := 0; i < dimDrifts; i++ {
			r.metrics.IncCounterDrift(kind.String(), dim.String(), obsmetrics.DriftReasonReconciled)
		}
		r.otelMetrics.RecordReconcileDrift(ctx, kind.String(), dim.String(), dimDrifts)
	}

	if opts.Apply {
		now := r.clock.Now()
		for _, d := range drifts {
			if d.Missing {
				if !opts.AddMissing {
					continue
				}
				if err := r.repo.EnsureEntry(ctx, db, d.Kind, d.Dimension, orgID, d.PartyID, d.ValueID, now); err != nil {
					return nil, err
				}
			}
			if _, err := r.repo.Recount(ctx, db, d.Kind, d.Dimension, d.PartyID, d.ValueID); err != nil {
				return nil, err
			}
		}
	}

	if len(drifts) > 0 {
		r.log.Warn("scope counters drifted",
			zap.String("kind", kind.String()),
			zap.String("org_id", orgID.String()),
			zap.Int("rows", len(drifts)),
			zap.Bool("applied", opts.Apply),
			zap.Bool("add_missing", opts.Apply && opts.AddMissing),
		)
	}
	return drifts, nil
}
