// Package consumer drops cached availability when bookings change.
package consumer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/bookable/libs/kafkax"
	otelx "github.com/md-rashed-zaman/bookable/libs/otel"
	"github.com/md-rashed-zaman/bookable/services/availability-service/internal/availability"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	OutcomeOK      = "ok"
	OutcomeSkipped = "skipped"
	OutcomeError   = "error"
)

var errMalformed = errors.New("malformed booking event")

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Invalidator interface {
	Invalidate(ctx context.Context, businessID int64, date string) (int, error)
}

// Observer is told how each event was handled.
type Observer interface {
	Invalidation(outcome string)
}

type Config struct {
	Brokers string
	GroupID string
	Topics  []string
	// Location turns an event's start_time into a calendar date.
	Location *time.Location
}

type Consumer struct {
	reader      MessageReader
	logger      *slog.Logger
	invalidator Invalidator
	observer    Observer
	loc         *time.Location
	backoff     time.Duration
}

// NewReader builds a consumer-group reader over every configured topic.
func NewReader(cfg Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     kafkax.SplitBrokers(cfg.Brokers),
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
}

func New(logger *slog.Logger, reader MessageReader, invalidator Invalidator, observer Observer, loc *time.Location) *Consumer {
	if loc == nil {
		loc = time.UTC
	}
	return &Consumer{
		reader:      reader,
		logger:      logger,
		invalidator: invalidator,
		observer:    observer,
		loc:         loc,
		backoff:     time.Second,
	}
}

// Run reads until ctx is cancelled. Handler failures are logged and the
// message is skipped; stale entries still expire with their TTL.
func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.backoff):
			}
			continue
		}

		outcome := OutcomeOK
		if err := c.Handle(ctx, msg); err != nil {
			outcome = OutcomeError
			if errors.Is(err, errMalformed) {
				outcome = OutcomeSkipped
			}
			c.logger.Error("booking event not applied", append(kafkax.ExtractEventMeta(msg).LogAttrs(), "err", err)...)
		}
		if c.observer != nil {
			c.observer.Invalidation(outcome)
		}
	}
}

type bookingEvent struct {
	BusinessID  flexibleID `json:"business_id"`
	Date        string     `json:"date"`
	StartTime   string     `json:"start_time"`
	Traceparent string     `json:"traceparent"`
	Tracestate  string     `json:"tracestate"`
}

// Handle applies one booking event.
func (c *Consumer) Handle(ctx context.Context, msg kafka.Message) error {
	var evt bookingEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}

	if kafkax.HasTraceHeaders(msg) {
		ctx = kafkax.ExtractTraceContext(ctx, msg)
	} else {
		ctx = otelx.ContextWithTraceContext(ctx, evt.Traceparent, evt.Tracestate)
	}
	ctx, span := otel.Tracer("kafka").Start(ctx, "kafka.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	if evt.BusinessID <= 0 {
		return fmt.Errorf("%w: business_id missing", errMalformed)
	}
	date, err := c.eventDate(evt)
	if err != nil {
		span.RecordError(err)
		return err
	}

	n, err := c.invalidator.Invalidate(ctx, int64(evt.BusinessID), date)
	if err != nil {
		span.RecordError(err)
		return err
	}
	meta := kafkax.ExtractEventMeta(msg)
	c.logger.InfoContext(ctx, "availability invalidated",
		append(meta.LogAttrs(), "business_id", int64(evt.BusinessID), "date", date, "entries", n)...)
	return nil
}

func (c *Consumer) eventDate(evt bookingEvent) (string, error) {
	if evt.Date != "" {
		d, err := availability.ParseDate(evt.Date)
		if err != nil {
			return "", fmt.Errorf("%w: %v", errMalformed, err)
		}
		return d.String(), nil
	}
	if evt.StartTime != "" {
		ts, err := time.Parse(time.RFC3339, evt.StartTime)
		if err != nil {
			return "", fmt.Errorf("%w: start_time: %v", errMalformed, err)
		}
		return availability.DateOf(ts.In(c.loc)).String(), nil
	}
	return "", fmt.Errorf("%w: neither date nor start_time set", errMalformed)
}

// flexibleID accepts 42 or "42".
type flexibleID int64

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := strings.Trim(string(b), `"`)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("business_id %s: %w", b, err)
	}
	*f = flexibleID(n)
	return nil
}
