package availability

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"
)

// staffSlots serves personal-calendar businesses. Each eligible staff member runs
// generate -> merge independently; conflicting candidates are then dropped and the
// survivors ordered by (start, staff id).
func (c *Calculator) staffSlots(ctx context.Context, biz Business, svc Service, date Date, staffFilter *int64) ([]TimeSlot, error) {
	staff, err := c.gw.ListEligibleStaff(ctx, biz.ID, svc.ID, staffFilter)
	if err != nil {
		return nil, gatewayErr("list eligible staff", err)
	}
	staffIDs := eligibleStaffIDs(staff, staffFilter)
	if len(staffIDs) == 0 {
		return nil, nil
	}

	length := svc.SlotLength()
	perStaff := make([][]staffCandidate, len(staffIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, staffID := range staffIDs {
		g.Go(func() error {
			candidates, err := c.staffCandidates(gctx, biz.ID, staffID, date, length)
			if err != nil {
				return err
			}
			perStaff[i] = candidates
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := slices.Concat(perStaff...)
	if len(merged) == 0 {
		return nil, nil
	}

	bookings, err := c.gw.ListBookings(ctx, biz.ID, date, staffFilter)
	if err != nil {
		return nil, gatewayErr("list bookings", err)
	}
	occupied, err := resolveOccupancy(bookings)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kept := filterStaffConflicts(merged, occupied, c.policy)
	sortStaffCandidates(kept)

	out := make([]TimeSlot, 0, len(kept))
	for _, k := range kept {
		staffID := k.staffID
		out = append(out, TimeSlot{
			Start:         TimeString(k.span.Start),
			End:           TimeString(k.span.End),
			StaffMemberID: &staffID,
			Available:     true,
		})
	}
	return out, nil
}

// eligibleStaffIDs keeps active members matching the optional filter, sorted and
// de-duplicated.
func eligibleStaffIDs(staff []StaffMember, filter *int64) []int64 {
	ids := make([]int64, 0, len(staff))
	for _, m := range staff {
		if !m.Active {
			continue
		}
		if filter != nil && m.ID != *filter {
			continue
		}
		ids = append(ids, m.ID)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// staffCandidates returns one staff member's candidate slots, or none when the
// member has the day off or an override closes it.
func (c *Calculator) staffCandidates(ctx context.Context, businessID, staffID int64, date Date, length int) ([]staffCandidate, error) {
	scope := StaffScope(businessID, staffID)
	windows, err := c.effectiveWindows(ctx, scope, date)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		c.telemetry.Record(ctx, "availability.staff_skipped", scopeAttrs(scope, date))
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []staffCandidate
	for _, w := range windows {
		for span := range GenerateSlots(w.Start, w.End, length, c.stride).All() {
			out = append(out, staffCandidate{staffID: staffID, span: span})
		}
	}
	return out, nil
}
