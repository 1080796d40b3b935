package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AuthzMetrics defines the interface for recording authorization metrics.
// Implementations track token operations and gateway decisions.
type AuthzMetrics interface {
	// RecordOperation records a token-lifecycle operation with its status.
	// Operation examples: "mint", "attenuate", "invoke"
	// Status examples: "success", "error"
	RecordOperation(ctx context.Context, operation, status string)

	// RecordDuration records the duration of an operation with its status.
	// Duration is recorded in seconds as a histogram for percentile calculations.
	RecordDuration(ctx context.Context, operation string, duration time.Duration, status string)

	// RecordDecision records one gateway allow/deny decision for a tool.
	RecordDecision(ctx context.Context, toolID, decision string)
}

// authzMetrics implements AuthzMetrics using OpenTelemetry metrics.
type authzMetrics struct {
	operationCounter metric.Int64Counter
	durationHisto    metric.Float64Histogram
	decisionCounter  metric.Int64Counter
}

// NewAuthzMetrics creates a new AuthzMetrics implementation using the provided meter provider.
// The namespace parameter is used as a prefix for all metric names (e.g., "warden").
// Returns error if meters cannot be initialized.
func NewAuthzMetrics(meterProvider metric.MeterProvider, namespace string) (AuthzMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_operations_total", namespace),
		metric.WithDescription("Total number of token operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of token operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	decisionCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_gateway_decisions_total", namespace),
		metric.WithDescription("Total number of gateway invocation decisions"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create decision counter: %w", err)
	}

	return &authzMetrics{
		operationCounter: operationCounter,
		durationHisto:    durationHisto,
		decisionCounter:  decisionCounter,
	}, nil
}

// RecordOperation increments the operation counter with operation and status labels.
func (a *authzMetrics) RecordOperation(ctx context.Context, operation, status string) {
	a.operationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

// RecordDuration records the operation duration in seconds with operation and status labels.
func (a *authzMetrics) RecordDuration(ctx context.Context, operation string, duration time.Duration, status string) {
	a.durationHisto.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

// RecordDecision increments the decision counter with tool and decision labels.
func (a *authzMetrics) RecordDecision(ctx context.Context, toolID, decision string) {
	a.decisionCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool_id", toolID),
			attribute.String("decision", decision),
		),
	)
}

// NopAuthzMetrics returns an AuthzMetrics that records nothing, for use when
// metrics are disabled.
func NopAuthzMetrics() AuthzMetrics {
	return nopMetrics{}
}

type nopMetrics struct{}

func (nopMetrics) RecordOperation(context.Context, string, string)                {}
func (nopMetrics) RecordDuration(context.Context, string, time.Duration, string) {}
func (nopMetrics) RecordDecision(context.Context, string, string)                {}
