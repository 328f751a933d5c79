package telemetry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/bookable/services/availability-service/internal/availability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type computeObs struct {
	strategy, outcome string
}

type fakeSink struct {
	mu       sync.Mutex
	computes []computeObs
	slots    map[string]int
}

func (f *fakeSink) ObserveCompute(strategy, outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.computes = append(f.computes, computeObs{strategy, outcome})
}

func (f *fakeSink) AddSlots(strategy string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.slots == nil {
		f.slots = map[string]int{}
	}
	f.slots[strategy] += n
}

// computerFunc lets a test stand in for the calculator while still calling back
// into the recorder the way the calculator does.
type computerFunc func(ctx context.Context, req availability.Request) (availability.Result, error)

func (f computerFunc) Compute(ctx context.Context, req availability.Request) (availability.Result, error) {
	return f(ctx, req)
}

func newRecorder(t *testing.T) (*Recorder, *fakeSink, *tracetest.SpanRecorder, *bytes.Buffer) {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sink := &fakeSink{}
	return NewRecorder(logger, sink, tp), sink, spans, &logs
}

func TestInstrumentSuccess(t *testing.T) {
	rec, sink, spans, logs := newRecorder(t)
	staff := int64(3)

	calc := computerFunc(func(ctx context.Context, req availability.Request) (availability.Result, error) {
		rec.Record(ctx, "availability.staff_skipped", map[string]string{"staff_member_id": "9"})
		rec.Record(ctx, "availability.computed", map[string]string{"strategy": "staff", "slots": "2"})
		return availability.Result{Date: req.Date, Slots: make([]availability.TimeSlot, 2)}, nil
	})

	res, err := rec.Instrument(calc).Compute(context.Background(), availability.Request{
		BusinessID: 2, ServiceID: 20, Date: "2026-10-19", StaffMemberID: &staff,
	})
	require.NoError(t, err)
	assert.Len(t, res.Slots, 2)

	assert.Equal(t, []computeObs{{"staff", OutcomeOK}}, sink.computes)
	assert.Equal(t, 2, sink.slots["staff"])

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "availability.compute", ended[0].Name())
	require.Len(t, ended[0].Events(), 2)
	assert.Equal(t, "availability.staff_skipped", ended[0].Events()[0].Name)
	assert.Contains(t, logs.String(), `"msg":"availability.computed"`)
}

func TestInstrumentError(t *testing.T) {
	rec, sink, spans, _ := newRecorder(t)
	calc := computerFunc(func(context.Context, availability.Request) (availability.Result, error) {
		return availability.Result{}, fmt.Errorf("business 1: %w", availability.ErrNotFound)
	})

	_, err := rec.Instrument(calc).Compute(context.Background(), availability.Request{BusinessID: 1, ServiceID: 1, Date: "2026-10-19"})
	require.ErrorIs(t, err, availability.ErrNotFound)

	assert.Equal(t, []computeObs{{StrategyNone, OutcomeNotFound}}, sink.computes)
	require.Len(t, spans.Ended(), 1)
	assert.Equal(t, codes.Error, spans.Ended()[0].Status().Code)
}

func TestOutcome(t *testing.T) {
	cases := map[string]error{
		OutcomeOK:          nil,
		OutcomeInvalid:     fmt.Errorf("%w: bad date", availability.ErrInvalidInput),
		OutcomeNotFound:    availability.ErrNotFound,
		OutcomeUnsupported: availability.ErrUnsupportedBusinessType,
		OutcomeUnavailable: &availability.GatewayError{Op: "list bookings", Err: errors.New("reset")},
		OutcomeCancelled:   &availability.GatewayError{Op: "get business", Err: context.Canceled},
		OutcomeError:       errors.New("weird"),
	}
	for want, err := range cases {
		assert.Equal(t, want, Outcome(err), want)
	}
	assert.Equal(t, OutcomeCancelled, Outcome(context.DeadlineExceeded))
}
