// Package telemetry turns calculator events into span events, debug logs and
// metrics, and instruments whole computations.
package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/md-rashed-zaman/bookable/services/availability-service/internal/availability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	OutcomeOK          = "ok"
	OutcomeInvalid     = "invalid"
	OutcomeNotFound    = "not_found"
	OutcomeUnsupported = "unsupported"
	OutcomeUnavailable = "unavailable"
	OutcomeCancelled   = "cancelled"
	OutcomeError       = "error"

	// StrategyNone labels requests that finished without running a strategy,
	// such as cache hits and rejected input.
	StrategyNone = "none"
)

// Sink receives computation metrics; *metrics.Metrics satisfies it.
type Sink interface {
	ObserveCompute(strategy, outcome string, elapsed time.Duration)
	AddSlots(strategy string, n int)
}

type Computer interface {
	Compute(ctx context.Context, req availability.Request) (availability.Result, error)
}

type Recorder struct {
	logger *slog.Logger
	sink   Sink
	tracer trace.Tracer
}

// NewRecorder uses the global tracer provider when tp is nil.
func NewRecorder(logger *slog.Logger, sink Sink, tp trace.TracerProvider) *Recorder {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Recorder{logger: logger, sink: sink, tracer: tp.Tracer("bookable/availability")}
}

type probeKey struct{}

// probe carries what the calculator reported back to Instrument.
type probe struct {
	strategy string
}

// Record implements availability.Telemetry.
func (r *Recorder) Record(ctx context.Context, event string, attrs map[string]string) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kv := make([]attribute.KeyValue, 0, len(keys))
	logArgs := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		kv = append(kv, attribute.String(k, attrs[k]))
		logArgs = append(logArgs, k, attrs[k])
	}
	trace.SpanFromContext(ctx).AddEvent(event, trace.WithAttributes(kv...))
	r.logger.DebugContext(ctx, event, logArgs...)

	if event != "availability.computed" {
		return
	}
	strategy := attrs["strategy"]
	if p, ok := ctx.Value(probeKey{}).(*probe); ok {
		p.strategy = strategy
	}
	if r.sink != nil {
		n, _ := strconv.Atoi(attrs["slots"])
		r.sink.AddSlots(strategy, n)
	}
}

// Instrument wraps next in a span and reports duration and outcome.
func (r *Recorder) Instrument(next Computer) Computer {
	return instrumented{r: r, next: next}
}

type instrumented struct {
	r    *Recorder
	next Computer
}

func (in instrumented) Compute(ctx context.Context, req availability.Request) (availability.Result, error) {
	ctx, span := in.r.tracer.Start(ctx, "availability.compute", trace.WithAttributes(
		attribute.Int64("business_id", req.BusinessID),
		attribute.Int64("service_id", req.ServiceID),
		attribute.String("date", req.Date),
	))
	defer span.End()
	if req.StaffMemberID != nil {
		span.SetAttributes(attribute.Int64("staff_member_id", *req.StaffMemberID))
	}

	p := &probe{strategy: StrategyNone}
	ctx = context.WithValue(ctx, probeKey{}, p)

	start := time.Now()
	res, err := in.next.Compute(ctx, req)
	elapsed := time.Since(start)

	outcome := Outcome(err)
	if in.r.sink != nil {
		in.r.sink.ObserveCompute(p.strategy, outcome, elapsed)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return res, err
	}
	span.SetAttributes(attribute.Int("slots", len(res.Slots)), attribute.String("strategy", p.strategy))
	return res, nil
}

// Outcome classifies a Compute error for metrics and logs.
func Outcome(err error) string {
	var gwErr *availability.GatewayError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	case errors.Is(err, availability.ErrInvalidInput):
		return OutcomeInvalid
	case errors.Is(err, availability.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, availability.ErrUnsupportedBusinessType):
		return OutcomeUnsupported
	case errors.As(err, &gwErr):
		return OutcomeUnavailable
	default:
		return OutcomeError
	}
}
