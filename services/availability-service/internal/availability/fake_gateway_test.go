package availability

import (
	"context"
	"errors"
	"sync"
)

type hoursKey struct {
	staffID int64
	dow     int
}

type overrideKey struct {
	staffID int64
	date    string
}

// fakeGateway is an in-memory Gateway that records every read.
type fakeGateway struct {
	mu sync.Mutex

	businesses map[int64]Business
	services   map[int64]Service
	hours      map[hoursKey][]Window
	overrides  map[overrideKey]Override
	staff      []StaffMember
	bookings   []Booking

	failOp string
	calls  []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		businesses: map[int64]Business{},
		services:   map[int64]Service{},
		hours:      map[hoursKey][]Window{},
		overrides:  map[overrideKey]Override{},
	}
}

var errBoom = errors.New("boom")

func (f *fakeGateway) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	if f.failOp == op {
		return errBoom
	}
	return nil
}

func (f *fakeGateway) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func scopeStaff(scope Scope) int64 {
	if scope.StaffMemberID == nil {
		return 0
	}
	return *scope.StaffMemberID
}

func (f *fakeGateway) GetBusiness(ctx context.Context, id int64) (Business, error) {
	if err := f.record("GetBusiness"); err != nil {
		return Business{}, err
	}
	if err := ctx.Err(); err != nil {
		return Business{}, err
	}
	b, ok := f.businesses[id]
	if !ok {
		return Business{}, ErrNotFound
	}
	return b, nil
}

func (f *fakeGateway) GetService(_ context.Context, id, businessID int64) (Service, error) {
	if err := f.record("GetService"); err != nil {
		return Service{}, err
	}
	s, ok := f.services[id]
	if !ok || s.BusinessID != businessID {
		return Service{}, ErrNotFound
	}
	return s, nil
}

func (f *fakeGateway) GetWorkingHours(ctx context.Context, scope Scope, dayOfWeek int) ([]Window, error) {
	if err := f.record("GetWorkingHours"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.hours[hoursKey{staffID: scopeStaff(scope), dow: dayOfWeek}], nil
}

func (f *fakeGateway) GetOverride(_ context.Context, scope Scope, date Date) (*Override, error) {
	if err := f.record("GetOverride"); err != nil {
		return nil, err
	}
	o, ok := f.overrides[overrideKey{staffID: scopeStaff(scope), date: date.String()}]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (f *fakeGateway) ListEligibleStaff(_ context.Context, businessID, _ int64, staffFilter *int64) ([]StaffMember, error) {
	if err := f.record("ListEligibleStaff"); err != nil {
		return nil, err
	}
	var out []StaffMember
	for _, m := range f.staff {
		if m.BusinessID != businessID {
			continue
		}
		if staffFilter != nil && m.ID != *staffFilter {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeGateway) ListBookings(_ context.Context, _ int64, _ Date, staffFilter *int64) ([]Booking, error) {
	if err := f.record("ListBookings"); err != nil {
		return nil, err
	}
	var out []Booking
	for _, b := range f.bookings {
		if staffFilter != nil && (b.StaffMemberID == nil || *b.StaffMemberID != *staffFilter) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func ptr(v int64) *int64 {
	return &v
}
