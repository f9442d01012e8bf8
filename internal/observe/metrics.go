// Package observe provides OpenTelemetry metrics for the validation pipeline
// and a Prometheus bridge for scraping them.
//
// Components take a *Metrics. Tests build one with NewMetrics over a
// ManualReader; production code uses Default, which binds to the global
// meter provider installed by InitProvider (a no-op provider until then).
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/sells-group/lead-validator"

// Metrics holds the instruments recorded by the pipeline. All fields are
// safe for concurrent use.
type Metrics struct {
	// PhaseDuration tracks per-phase latency. Attributes: phase, status.
	PhaseDuration metric.Float64Histogram

	// Files counts processed recordings. Attributes: outcome
	// (approved, rejected, needs_review, failed), review (true/false).
	Files metric.Int64Counter

	// ReviewReasons counts manual review reasons. Attribute: category.
	ReviewReasons metric.Int64Counter

	// BreakerTransitions counts circuit breaker state changes. Attributes:
	// service, from, to.
	BreakerTransitions metric.Int64Counter

	// Cost accumulates estimated spend in USD. Attribute: service.
	Cost metric.Float64Counter

	// HTTPRequestDuration tracks API request latency. Attributes: method,
	// route, status.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram boundaries in seconds. Transcribing a long
// call can take most of a minute.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120,
}

// NewMetrics creates all instruments on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.PhaseDuration, err = m.Float64Histogram("leadval.phase.duration",
		metric.WithDescription("Latency of a pipeline phase."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Files, err = m.Int64Counter("leadval.files",
		metric.WithDescription("Recordings processed by outcome."),
	); err != nil {
		return nil, err
	}
	if met.ReviewReasons, err = m.Int64Counter("leadval.review.reasons",
		metric.WithDescription("Manual review reasons by category."),
	); err != nil {
		return nil, err
	}
	if met.BreakerTransitions, err = m.Int64Counter("leadval.breaker.transitions",
		metric.WithDescription("Circuit breaker state changes by service."),
	); err != nil {
		return nil, err
	}
	if met.Cost, err = m.Float64Counter("leadval.cost",
		metric.WithDescription("Estimated external service spend."),
		metric.WithUnit("USD"),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("leadval.http.request.duration",
		metric.WithDescription("Latency of API requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns a Metrics bound to the global meter provider. The first
// call fixes the provider, so call InitProvider before it.
func Default() *Metrics {
	defaultOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordPhase records one phase duration.
func (m *Metrics) RecordPhase(ctx context.Context, phase, status string, d time.Duration) {
	m.PhaseDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(
			attribute.String("phase", phase),
			attribute.String("status", status),
		),
	)
}

// RecordFile records one processed recording.
func (m *Metrics) RecordFile(ctx context.Context, outcome string, review bool) {
	m.Files.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("outcome", outcome),
			attribute.Bool("review", review),
		),
	)
}

// RecordReviewReason counts one manual review reason.
func (m *Metrics) RecordReviewReason(ctx context.Context, category string) {
	m.ReviewReasons.Add(ctx, 1, metric.WithAttributes(attribute.String("category", category)))
}

// RecordBreakerTransition counts one breaker state change.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, service, from, to string) {
	m.BreakerTransitions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("service", service),
			attribute.String("from", from),
			attribute.String("to", to),
		),
	)
}

// RecordCost adds estimated spend for one service.
func (m *Metrics) RecordCost(ctx context.Context, service string, usd float64) {
	if usd <= 0 {
		return
	}
	m.Cost.Add(ctx, usd, metric.WithAttributes(attribute.String("service", service)))
}

// RecordHTTPRequest records one API request. route is the matched pattern,
// not the raw path, to keep cardinality bounded.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, d time.Duration) {
	m.HTTPRequestDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("route", route),
			attribute.Int("status", status),
		),
	)
}
