package availability

import (
	"context"
	"slices"
)

// capacitySlots serves shared-resource businesses. Every generated slot is
// returned and annotated; none are dropped.
func (c *Calculator) capacitySlots(ctx context.Context, biz Business, svc Service, date Date) ([]TimeSlot, error) {
	scope := BusinessScope(biz.ID)
	windows, err := c.effectiveWindows(ctx, scope, date)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		c.telemetry.Record(ctx, "availability.closed", scopeAttrs(scope, date))
		return nil, nil
	}

	bookings, err := c.gw.ListBookings(ctx, biz.ID, date, nil)
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

	var candidates []Interval
	for _, w := range windows {
		candidates = append(candidates, GenerateSlots(w.Start, w.End, svc.DurationMinutes, c.stride).Collect()...)
	}
	slices.SortStableFunc(candidates, func(a, b Interval) int { return a.Start - b.Start })

	return annotateCapacity(candidates, occupied, svc.ID, svc.Capacity, c.policy), nil
}
