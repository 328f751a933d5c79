package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/bookable/services/availability-service/internal/availability"
)

// Querier is the subset of *pgxpool.Pool the gateway reads through.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Gateway implements availability.Gateway on Postgres.
type Gateway struct {
	q Querier
}

var _ availability.Gateway = (*Gateway)(nil)

func NewGateway(q Querier) *Gateway {
	return &Gateway{q: q}
}

func (g *Gateway) GetBusiness(ctx context.Context, id int64) (availability.Business, error) {
	var (
		b    availability.Business
		kind string
	)
	err := g.q.QueryRow(ctx, `
		SELECT id, business_type, advance_booking_days, is_active
		FROM businesses
		WHERE id = $1
	`, id).Scan(&b.ID, &kind, &b.AdvanceBookingDays, &b.Active)
	if err != nil {
		return availability.Business{}, notFound(err, "business", id)
	}
	b.Type = availability.BusinessType(kind)
	return b, nil
}

func (g *Gateway) GetService(ctx context.Context, id, businessID int64) (availability.Service, error) {
	var s availability.Service
	err := g.q.QueryRow(ctx, `
		SELECT id, business_id, duration_minutes, buffer_before_minutes, buffer_after_minutes,
		       capacity, requires_staff, is_active
		FROM services
		WHERE id = $1 AND business_id = $2
	`, id, businessID).Scan(
		&s.ID, &s.BusinessID, &s.DurationMinutes, &s.BufferBeforeMinutes, &s.BufferAfterMinutes,
		&s.Capacity, &s.RequiresStaff, &s.Active,
	)
	if err != nil {
		return availability.Service{}, notFound(err, "service", id)
	}
	return s, nil
}

func (g *Gateway) GetWorkingHours(ctx context.Context, scope availability.Scope, dayOfWeek int) ([]availability.Window, error) {
	rows, err := g.q.Query(ctx, `
		SELECT to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI')
		FROM working_hours
		WHERE business_id = $1 AND staff_id IS NOT DISTINCT FROM $2 AND day_of_week = $3 AND is_active
		ORDER BY start_time, id
	`, scope.BusinessID, scope.StaffMemberID, dayOfWeek)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.Window
	for rows.Next() {
		var w availability.Window
		if err := rows.Scan(&w.Start, &w.End); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (g *Gateway) GetOverride(ctx context.Context, scope availability.Scope, date availability.Date) (*availability.Override, error) {
	var o availability.Override
	err := g.q.QueryRow(ctx, `
		SELECT is_closed,
		       COALESCE(to_char(start_time, 'HH24:MI'), ''),
		       COALESCE(to_char(end_time, 'HH24:MI'), '')
		FROM availability_overrides
		WHERE business_id = $1 AND staff_id IS NOT DISTINCT FROM $2 AND override_date = $3::date
	`, scope.BusinessID, scope.StaffMemberID, date.String()).Scan(&o.Closed, &o.Window.Start, &o.Window.End)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (g *Gateway) ListEligibleStaff(ctx context.Context, businessID, serviceID int64, staffFilter *int64) ([]availability.StaffMember, error) {
	rows, err := g.q.Query(ctx, `
		SELECT s.id, s.business_id, s.is_active
		FROM staff s
		JOIN staff_services ss ON ss.staff_id = s.id
		WHERE s.business_id = $1
		  AND ss.service_id = $2
		  AND s.is_active
		  AND ($3::bigint IS NULL OR s.id = $3)
		ORDER BY s.id
	`, businessID, serviceID, staffFilter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.StaffMember
	for rows.Next() {
		var m availability.StaffMember
		if err := rows.Scan(&m.ID, &m.BusinessID, &m.Active); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListBookings returns the occupying bookings of the day with their service
// buffers attached.
func (g *Gateway) ListBookings(ctx context.Context, businessID int64, date availability.Date, staffFilter *int64) ([]availability.Booking, error) {
	rows, err := g.q.Query(ctx, `
		SELECT b.id, b.service_id, b.staff_id,
		       to_char(b.start_time, 'HH24:MI'), to_char(b.end_time, 'HH24:MI'),
		       b.party_size, sv.buffer_before_minutes, sv.buffer_after_minutes, b.status
		FROM bookings b
		JOIN services sv ON sv.id = b.service_id
		WHERE b.business_id = $1
		  AND b.booking_date = $2::date
		  AND b.status IN ('pending', 'confirmed')
		  AND ($3::bigint IS NULL OR b.staff_id = $3)
		ORDER BY b.start_time, b.id
	`, businessID, date.String(), staffFilter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.Booking
	for rows.Next() {
		var (
			b      availability.Booking
			status string
		)
		if err := rows.Scan(
			&b.ID, &b.ServiceID, &b.StaffMemberID,
			&b.Start, &b.End,
			&b.PartySize, &b.BufferBeforeMinutes, &b.BufferAfterMinutes, &status,
		); err != nil {
			return nil, err
		}
		b.Status = availability.BookingStatus(status)
		out = append(out, b)
	}
	return out, rows.Err()
}

func notFound(err error, kind string, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", kind, id, availability.ErrNotFound)
	}
	return err
}
