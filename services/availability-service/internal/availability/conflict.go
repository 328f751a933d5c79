package availability

import (
	"cmp"
	"fmt"
	"slices"
)

// ConflictPolicy decides when two intervals clash. With MinOverlapMinutes at zero
// any shared minute is a conflict; otherwise the shared time must exceed it.
type ConflictPolicy struct {
	MinOverlapMinutes int
}

func (p ConflictPolicy) Conflicts(a, b Interval) bool {
	if p.MinOverlapMinutes <= 0 {
		return a.Overlaps(b)
	}
	return OverlapMinutes(a.Start, a.End, b.Start, b.End) > p.MinOverlapMinutes
}

// occupancy is an occupying booking resolved to minutes.
type occupancy struct {
	serviceID int64
	staffID   *int64
	span      Interval
	buffered  Interval
	partySize int
}

// resolveOccupancy drops bookings that do not block time and parses the rest.
func resolveOccupancy(bookings []Booking) ([]occupancy, error) {
	out := make([]occupancy, 0, len(bookings))
	for _, b := range bookings {
		if !b.Occupies() {
			continue
		}
		start, err := MinutesOfDay(b.Start)
		if err != nil {
			return nil, fmt.Errorf("booking %d start: %w", b.ID, err)
		}
		end, err := MinutesOfDay(b.End)
		if err != nil {
			return nil, fmt.Errorf("booking %d end: %w", b.ID, err)
		}
		if end <= start {
			continue
		}
		out = append(out, occupancy{
			serviceID: b.ServiceID,
			staffID:   b.StaffMemberID,
			span:      Interval{Start: start, End: end},
			buffered: Interval{
				Start: SubtractMinutes(start, b.BufferBeforeMinutes),
				End:   AddMinutes(end, b.BufferAfterMinutes),
			},
			partySize: b.PartySize,
		})
	}
	return out, nil
}

// annotateCapacity tags every candidate with whether the service still has room.
// No candidate is dropped.
func annotateCapacity(candidates []Interval, bookings []occupancy, serviceID int64, capacity int, policy ConflictPolicy) []TimeSlot {
	out := make([]TimeSlot, 0, len(candidates))
	for _, slot := range candidates {
		used := 0
		for _, b := range bookings {
			if b.serviceID != serviceID {
				continue
			}
			if policy.Conflicts(slot, b.span) {
				used += b.partySize
			}
		}
		out = append(out, TimeSlot{
			Start:     TimeString(slot.Start),
			End:       TimeString(slot.End),
			Available: used < capacity,
		})
	}
	return out
}

// staffCandidate is a slot offered by one staff member.
type staffCandidate struct {
	staffID int64
	span    Interval
}

// filterStaffConflicts keeps the candidates whose span does not clash with the
// buffered interval of any booking held by the same staff member.
func filterStaffConflicts(candidates []staffCandidate, bookings []occupancy, policy ConflictPolicy) []staffCandidate {
	busy := make(map[int64][]Interval)
	for _, b := range bookings {
		if b.staffID == nil {
			continue
		}
		busy[*b.staffID] = append(busy[*b.staffID], b.buffered)
	}

	out := make([]staffCandidate, 0, len(candidates))
	for _, c := range candidates {
		if !clashesAny(c.span, busy[c.staffID], policy) {
			out = append(out, c)
		}
	}
	return out
}

func clashesAny(slot Interval, busy []Interval, policy ConflictPolicy) bool {
	for _, b := range busy {
		if policy.Conflicts(slot, b) {
			return true
		}
	}
	return false
}

func sortStaffCandidates(in []staffCandidate) {
	slices.SortFunc(in, func(a, b staffCandidate) int {
		if c := cmp.Compare(a.span.Start, b.span.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.staffID, b.staffID)
	})
}
