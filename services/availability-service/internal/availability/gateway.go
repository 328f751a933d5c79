package availability

import "context"

type BusinessType string

const (
	BusinessTypeCapacity BusinessType = "capacity"
	BusinessTypeStaff    BusinessType = "staff"
)

type Business struct {
	ID                 int64
	Type               BusinessType
	AdvanceBookingDays int
	Active             bool
}

type Service struct {
	ID                  int64
	BusinessID          int64
	DurationMinutes     int
	BufferBeforeMinutes int
	BufferAfterMinutes  int
	Capacity            int
	RequiresStaff       bool
	Active              bool
}

// SlotLength is the time a staff member is blocked by one booking of this service.
func (s Service) SlotLength() int {
	return s.DurationMinutes + s.BufferBeforeMinutes + s.BufferAfterMinutes
}

type StaffMember struct {
	ID         int64
	BusinessID int64
	Active     bool
}

// Scope selects business-wide rules (StaffMemberID nil) or one staff member's rules.
type Scope struct {
	BusinessID    int64
	StaffMemberID *int64
}

func BusinessScope(businessID int64) Scope {
	return Scope{BusinessID: businessID}
}

func StaffScope(businessID, staffMemberID int64) Scope {
	id := staffMemberID
	return Scope{BusinessID: businessID, StaffMemberID: &id}
}

// Window is an "HH:MM" working-hours range.
type Window struct {
	Start string
	End   string
}

// Override replaces the recurring rule for a single date. Closed wins over Window.
type Override struct {
	Closed bool
	Window Window
}

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

// Booking is an existing reservation together with the buffers of its service.
type Booking struct {
	ID                  int64
	ServiceID           int64
	StaffMemberID       *int64
	Start               string
	End                 string
	PartySize           int
	BufferBeforeMinutes int
	BufferAfterMinutes  int
	Status              BookingStatus
}

// Occupies reports whether the booking blocks time.
func (b Booking) Occupies() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

// Gateway is the read-only data source the calculator depends on.
// GetBusiness and GetService return ErrNotFound when the row is absent;
// GetOverride returns nil when no override applies.
type Gateway interface {
	GetBusiness(ctx context.Context, id int64) (Business, error)
	GetService(ctx context.Context, id, businessID int64) (Service, error)
	GetWorkingHours(ctx context.Context, scope Scope, dayOfWeek int) ([]Window, error)
	GetOverride(ctx context.Context, scope Scope, date Date) (*Override, error)
	ListEligibleStaff(ctx context.Context, businessID, serviceID int64, staffFilter *int64) ([]StaffMember, error)
	ListBookings(ctx context.Context, businessID int64, date Date, staffFilter *int64) ([]Booking, error)
}
