package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes ledger instruments exported over OTLP.
type Metrics struct {
	financialLines   metric.Int64Counter
	priceSuggestions metric.Int64Counter
	reconcileDrift   metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "lingoflow"
	}
	meter := provider.Meter(name)

	financialLines, err := meter.Int64Counter("lingoflow_job_financial_lines_total")
	if err != nil {
		return nil, err
	}
	priceSuggestions, err := meter.Int64Counter("lingoflow_price_suggestions_total")
	if err != nil {
		return nil, err
	}
	reconcileDrift, err := meter.Int64Counter("lingoflow_reconcile_drift_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		financialLines:   financialLines,
		priceSuggestions: priceSuggestions,
		reconcileDrift:   reconcileDrift,
	}, nil
}

// RecordFinancialLine counts a job financial line write.
func (m *Metrics) RecordFinancialLine(ctx context.Context, direction, kind, op string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("direction", strings.TrimSpace(direction)),
		attribute.String("kind", strings.TrimSpace(kind)),
		attribute.String("op", strings.TrimSpace(op)),
	)
	m.financialLines.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPriceSuggestion counts suggestion lookups by whether any row matched.
func (m *Metrics) RecordPriceSuggestion(ctx context.Context, direction string, matches int) {
	if m == nil {
		return
	}
	outcome := "hit"
	if matches == 0 {
		outcome = "miss"
	}
	attrs := FilterAttributes(
		attribute.String("direction", strings.TrimSpace(direction)),
		attribute.String("outcome", outcome),
	)
	m.priceSuggestions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordReconcileDrift counts registry rows whose stored counter disagreed with the price lists.
func (m *Metrics) RecordReconcileDrift(ctx context.Context, partyKind, dimension string, rows int) {
	if m == nil || rows <= 0 {
		return
	}
	attrs := FilterAttributes(
		attribute.String("party_kind", strings.TrimSpace(partyKind)),
		attribute.String("dimension", strings.TrimSpace(dimension)),
	)
	m.reconcileDrift.Add(ctx, int64(rows), metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"direction":  {},
	"kind":       {},
	"op":         {},
	"outcome":    {},
	"party_kind": {},
	"dimension":  {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
