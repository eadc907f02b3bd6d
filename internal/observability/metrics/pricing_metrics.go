package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/lingoflow/internal/apperr"
	"gorm.io/gorm"
)

const (
	OutcomeOK                   = "ok"
	OutcomeNotFound             = "not_found"
	OutcomeForbidden            = "forbidden"
	OutcomeScopeViolation       = "scope_violation"
	OutcomeDuplicate            = "duplicate"
	OutcomeConflict             = "conflict"
	OutcomeValidation           = "validation"
	OutcomeDeadlineExceeded     = "deadline_exceeded"
	OutcomeDBLockTimeout        = "db_lock_timeout"
	OutcomeSerializationFailure = "serialization_failure"
	OutcomeUnknown              = "unknown"
)

const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

const (
	DriftReasonMissingRow = "missing_row"
	DriftReasonAtZero     = "at_zero"
	DriftReasonReconciled = "reconciled"
)

// PricingMetrics captures price list and scope registry health signals.
type PricingMetrics struct {
	mutations         *prometheus.CounterVec
	mutationDuration  *prometheus.HistogramVec
	scopeViolations   *prometheus.CounterVec
	counterDrift      *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
}

var (
	pricingMetricsOnce sync.Once
	pricingMetrics     *PricingMetrics
)

// Pricing returns the singleton pricing metrics registry.
func Pricing() *PricingMetrics {
	return PricingWithConfig(Config{})
}

// PricingWithConfig returns the singleton pricing metrics registry using config labels.
func PricingWithConfig(cfg Config) *PricingMetrics {
	pricingMetricsOnce.Do(func() {
		pricingMetrics = newPricingMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return pricingMetrics
}

// ProvidePricing exposes the singleton to fx.
func ProvidePricing(cfg Config) *PricingMetrics {
	return PricingWithConfig(cfg)
}

func newPricingMetrics(registerer prometheus.Registerer, cfg Config) *PricingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	constLabels := constLabels(cfg)

	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "lingoflow_price_list_mutations_total",
		Help:        "Price list mutations by party kind, operation and outcome.",
		ConstLabels: constLabels,
	}, []string{"party_kind", "op", "outcome"})
	mutationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "lingoflow_price_list_mutation_duration_seconds",
		Help:        "Price list mutation latency including scope checks and counter updates.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	}, []string{"party_kind", "op"})
	scopeViolations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "lingoflow_scope_violations_total",
		Help:        "Price list writes rejected because a value was outside the party's scope.",
		ConstLabels: constLabels,
	}, []string{"party_kind", "dimension"})
	counterDrift := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "lingoflow_scope_counter_drift_total",
		Help:        "Usage counter anomalies found on decrement or during reconciliation.",
		ConstLabels: constLabels,
	}, []string{"party_kind", "dimension", "reason"})
	statusTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "lingoflow_project_status_transitions_total",
		Help:        "Project status changes by source and target status.",
		ConstLabels: constLabels,
	}, []string{"from", "to"})

	registerer.MustRegister(
		mutations,
		mutationDuration,
		scopeViolations,
		counterDrift,
		statusTransitions,
	)

	return &PricingMetrics{
		mutations:         mutations,
		mutationDuration:  mutationDuration,
		scopeViolations:   scopeViolations,
		counterDrift:      counterDrift,
		statusTransitions: statusTransitions,
	}
}

func constLabels(cfg Config) prometheus.Labels {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "lingoflow"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	return prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}
}

// ObserveMutation records one price list mutation and its latency.
func (m *PricingMetrics) ObserveMutation(partyKind, op string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(partyKind, op, ClassifyOutcome(err)).Inc()
	m.mutationDuration.WithLabelValues(partyKind, op).Observe(duration.Seconds())
}

func (m *PricingMetrics) IncScopeViolation(partyKind, dimension string) {
	if m == nil {
		return
	}
	m.scopeViolations.WithLabelValues(partyKind, dimension).Inc()
}

func (m *PricingMetrics) IncCounterDrift(partyKind, dimension, reason string) {
	if m == nil {
		return
	}
	m.counterDrift.WithLabelValues(partyKind, dimension, reason).Inc()
}

func (m *PricingMetrics) IncStatusTransition(from, to string) {
	if m == nil {
		return
	}
	if strings.TrimSpace(from) == "" {
		from = "none"
	}
	m.statusTransitions.WithLabelValues(from, to).Inc()
}

// ClassifyOutcome maps mutation errors to low-cardinality outcomes.
func ClassifyOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return OutcomeDeadlineExceeded
	case errors.Is(err, apperr.ErrScopeViolation):
		return OutcomeScopeViolation
	case errors.Is(err, apperr.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, apperr.ErrForbidden):
		return OutcomeForbidden
	case errors.Is(err, apperr.ErrDuplicateEntry), errors.Is(err, gorm.ErrDuplicatedKey), hasPGCode(err, "23505"):
		return OutcomeDuplicate
	case errors.Is(err, apperr.ErrConflict):
		return OutcomeConflict
	case errors.Is(err, apperr.ErrValidation):
		return OutcomeValidation
	case hasPGCode(err, "55P03"):
		return OutcomeDBLockTimeout
	case hasPGCode(err, "40001"):
		return OutcomeSerializationFailure
	default:
		return OutcomeUnknown
	}
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
