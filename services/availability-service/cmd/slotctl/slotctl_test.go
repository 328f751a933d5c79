package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/md-rashed-zaman/bookable/services/availability-service/internal/availability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubComputer struct {
	got availability.Request
	res availability.Result
	err error
}

func (s *stubComputer) Compute(_ context.Context, req availability.Request) (availability.Result, error) {
	s.got = req
	return s.res, s.err
}

func run(t *testing.T, stub *stubComputer, args ...string) (string, error) {
	t.Helper()
	connect := func(string) (computer, func() error, error) {
		if stub == nil {
			return nil, nil, errors.New("no stub")
		}
		return stub, func() error { return nil }, nil
	}
	cmd := newRootCmd(connect)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSlotsTable(t *testing.T) {
	staff := int64(4)
	stub := &stubComputer{res: availability.Result{Date: "2026-10-19", Slots: []availability.TimeSlot{
		{Start: "09:00", End: "09:40", StaffMemberID: &staff, Available: true},
	}}}

	out, err := run(t, stub, "slots", "--business", "2", "--service", "20", "--date", "2026-10-19", "--staff", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "START")
	assert.Contains(t, out, "09:00")
	assert.Contains(t, out, "09:40")
	require.NotNil(t, stub.got.StaffMemberID)
	assert.Equal(t, int64(4), *stub.got.StaffMemberID)
	assert.Equal(t, int64(2), stub.got.BusinessID)
}

func TestSlotsJSONFiltersOpen(t *testing.T) {
	stub := &stubComputer{res: availability.Result{Date: "2026-10-19", Slots: []availability.TimeSlot{
		{Start: "09:00", End: "09:30", Available: false},
		{Start: "09:15", End: "09:45", Available: true},
	}}}

	out, err := run(t, stub, "slots", "--business", "1", "--service", "10", "--date", "2026-10-19", "--json", "--open")
	require.NoError(t, err)
	assert.Nil(t, stub.got.StaffMemberID)

	var res availability.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Slots, 1)
	assert.Equal(t, "09:15", res.Slots[0].Start)
}

func TestSlotsEmptyDay(t *testing.T) {
	stub := &stubComputer{res: availability.Result{Date: "2026-10-18"}}
	out, err := run(t, stub, "slots", "--business", "1", "--service", "10", "--date", "2026-10-18")
	require.NoError(t, err)
	assert.Contains(t, out, "no slots on 2026-10-18")
}

func TestSlotsErrors(t *testing.T) {
	_, err := run(t, &stubComputer{}, "slots", "--business", "1")
	require.Error(t, err, "missing required flags")

	_, err = run(t, nil, "slots", "--business", "1", "--service", "10", "--date", "2026-10-19")
	require.ErrorContains(t, err, "connect")

	stub := &stubComputer{err: availability.ErrNotFound}
	_, err = run(t, stub, "slots", "--business", "1", "--service", "10", "--date", "2026-10-19")
	require.ErrorIs(t, err, availability.ErrNotFound)
}

func TestMigrateRequiresURL(t *testing.T) {
	_, err := run(t, nil, "migrate", "--database-url", "")
	require.ErrorContains(t, err, "database-url")
}

func TestVersion(t *testing.T) {
	out, err := run(t, nil, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "slotctl dev")
}
