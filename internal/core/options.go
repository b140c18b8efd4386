package core

import (
	"context"
	"time"
	"yardops/pkg/domain"
)

// Clock provides the current time to the service.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// Logger is the structured logging contract used by the service. Arguments
// after msg are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MetricsRecorder observes the outcome and latency of each service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended exactly once with the operation error, if any.
type TraceSpan interface {
	End(err error)
}

// EventPublisher receives committed workflow events. Publish failures are
// logged and never fail the operation that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// ServiceOption configures optional collaborators.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	clock     Clock
	logger    Logger
	metrics   MetricsRecorder
	tracer    Tracer
	publisher EventPublisher
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		clock:     ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger:    noopLogger{},
		metrics:   noopMetrics{},
		tracer:    noopTracer{},
		publisher: noopPublisher{},
	}
}

// WithClock overrides the time source used for history and workflow timestamps.
func WithClock(clock Clock) ServiceOption {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetricsRecorder sets the operation metrics sink.
func WithMetricsRecorder(rec MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if rec != nil {
			o.metrics = rec
		}
	}
}

// WithTracer sets the span factory.
func WithTracer(tracer Tracer) ServiceOption {
	return func(o *serviceOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithEventPublisher sets the sink for committed workflow events.
func WithEventPublisher(pub EventPublisher) ServiceOption {
	return func(o *serviceOptions) {
		if pub != nil {
			o.publisher = pub
		}
	}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.Event) error { return nil }
