package consumer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invalidation struct {
	businessID int64
	date       string
}

type fakeInvalidator struct {
	mu   sync.Mutex
	got  []invalidation
	err  error
	done chan struct{}
}

func (f *fakeInvalidator) Invalidate(_ context.Context, businessID int64, date string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, invalidation{businessID, date})
	if f.done != nil {
		f.done <- struct{}{}
	}
	return 2, f.err
}

type fakeReader struct {
	msgs   chan kafka.Message
	closed bool
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

type outcomes struct {
	mu  sync.Mutex
	got []string
}

func (o *outcomes) Invalidation(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.got = append(o.got, outcome)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
}

func msg(value string) kafka.Message {
	return kafka.Message{Topic: "booking.appointment.booked.v1", Key: []byte("evt"), Value: []byte(value)}
}

func TestHandleDate(t *testing.T) {
	inv := &fakeInvalidator{}
	c := New(quietLogger(), &fakeReader{}, inv, nil, nil)

	require.NoError(t, c.Handle(context.Background(), msg(`{"business_id": 7, "date": "2026-10-19"}`)))
	require.NoError(t, c.Handle(context.Background(), msg(`{"business_id": "8", "date": "2026-10-20"}`)))
	assert.Equal(t, []invalidation{{7, "2026-10-19"}, {8, "2026-10-20"}}, inv.got)
}

func TestHandleStartTimeUsesLocation(t *testing.T) {
	inv := &fakeInvalidator{}
	tokyo := time.FixedZone("UTC+9", 9*60*60)
	c := New(quietLogger(), &fakeReader{}, inv, nil, tokyo)

	require.NoError(t, c.Handle(context.Background(), msg(`{"business_id": 7, "start_time": "2026-10-18T20:00:00Z"}`)))
	assert.Equal(t, []invalidation{{7, "2026-10-19"}}, inv.got)
}

func TestHandleMalformed(t *testing.T) {
	c := New(quietLogger(), &fakeReader{}, &fakeInvalidator{}, nil, nil)
	for _, body := range []string{
		`not json`,
		`{"date": "2026-10-19"}`,
		`{"business_id": 7}`,
		`{"business_id": 7, "date": "2026-02-30"}`,
		`{"business_id": 7, "start_time": "yesterday"}`,
		`{"business_id": "x", "date": "2026-10-19"}`,
	} {
		err := c.Handle(context.Background(), msg(body))
		require.ErrorIs(t, err, errMalformed, body)
	}
}

func TestHandleInvalidatorError(t *testing.T) {
	boom := errors.New("redis down")
	c := New(quietLogger(), &fakeReader{}, &fakeInvalidator{err: boom}, nil, nil)
	err := c.Handle(context.Background(), msg(`{"business_id": 7, "date": "2026-10-19"}`))
	require.ErrorIs(t, err, boom)
}

func TestRunProcessesUntilCancelled(t *testing.T) {
	reader := &fakeReader{msgs: make(chan kafka.Message, 3)}
	reader.msgs <- msg(`{"business_id": 7, "date": "2026-10-19"}`)
	reader.msgs <- msg(`garbage`)
	reader.msgs <- msg(`{"business_id": 9, "date": "2026-10-21"}`)

	inv := &fakeInvalidator{done: make(chan struct{}, 2)}
	obs := &outcomes{}
	c := New(quietLogger(), reader, inv, obs, nil)

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(finished)
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-inv.done:
		case <-time.After(2 * time.Second):
			t.Fatal("invalidation not applied")
		}
	}
	cancel()
	<-finished

	assert.True(t, reader.closed)
	assert.Equal(t, []invalidation{{7, "2026-10-19"}, {9, "2026-10-21"}}, inv.got)
	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, []string{OutcomeOK, OutcomeSkipped, OutcomeOK}, obs.got)
}
