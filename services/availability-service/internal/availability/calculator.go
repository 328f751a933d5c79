package availability

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"
)

// TimeSlot is one entry of a computed availability list.
type TimeSlot struct {
	Start         string `json:"start"`
	End           string `json:"end"`
	StaffMemberID *int64 `json:"staff_member_id,omitempty"`
	Available     bool   `json:"available"`
}

type Result struct {
	Date  string     `json:"date"`
	Slots []TimeSlot `json:"slots"`
}

type Request struct {
	BusinessID    int64
	ServiceID     int64
	Date          string
	StaffMemberID *int64
}

func (r Request) validate() (Date, error) {
	if r.BusinessID <= 0 {
		return Date{}, fmt.Errorf("%w: business_id must be positive", ErrInvalidInput)
	}
	if r.ServiceID <= 0 {
		return Date{}, fmt.Errorf("%w: service_id must be positive", ErrInvalidInput)
	}
	if r.StaffMemberID != nil && *r.StaffMemberID <= 0 {
		return Date{}, fmt.Errorf("%w: staff_member_id must be positive", ErrInvalidInput)
	}
	return ParseDate(r.Date)
}

// Telemetry receives diagnostic events while a request is computed. It never
// influences the result.
type Telemetry interface {
	Record(ctx context.Context, event string, attrs map[string]string)
}

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]string) {}

type Options struct {
	Policy ConflictPolicy
	// Location decides what "today" is for the advance-booking horizon. Defaults to UTC.
	Location *time.Location
	Now      func() time.Time
	// StrideMinutes defaults to DefaultStrideMinutes.
	StrideMinutes int
	// MaxConcurrentReads bounds the per-staff fan-out. Defaults to 8.
	MaxConcurrentReads int
	Telemetry          Telemetry
}

// Calculator computes availability. It keeps no per-request state and is safe
// for concurrent use.
type Calculator struct {
	gw          Gateway
	policy      ConflictPolicy
	loc         *time.Location
	now         func() time.Time
	stride      int
	concurrency int
	telemetry   Telemetry
}

func NewCalculator(gw Gateway, opts Options) *Calculator {
	c := &Calculator{
		gw:          gw,
		policy:      opts.Policy,
		loc:         opts.Location,
		now:         opts.Now,
		stride:      opts.StrideMinutes,
		concurrency: opts.MaxConcurrentReads,
		telemetry:   opts.Telemetry,
	}
	if c.loc == nil {
		c.loc = time.UTC
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.stride <= 0 {
		c.stride = DefaultStrideMinutes
	}
	if c.concurrency <= 0 {
		c.concurrency = 8
	}
	if c.telemetry == nil {
		c.telemetry = noopTelemetry{}
	}
	return c
}

// Compute returns the ordered slots for the request. It either succeeds with a
// possibly empty list or fails as a whole.
func (c *Calculator) Compute(ctx context.Context, req Request) (Result, error) {
	date, err := req.validate()
	if err != nil {
		return Result{}, err
	}

	biz, err := c.gw.GetBusiness(ctx, req.BusinessID)
	if err != nil {
		return Result{}, lookupErr("get business", "business", req.BusinessID, err)
	}
	if !biz.Active {
		return Result{}, fmt.Errorf("business %d inactive: %w", biz.ID, ErrNotFound)
	}

	svc, err := c.gw.GetService(ctx, req.ServiceID, req.BusinessID)
	if err != nil {
		return Result{}, lookupErr("get service", "service", req.ServiceID, err)
	}
	if !svc.Active {
		return Result{}, fmt.Errorf("service %d inactive: %w", svc.ID, ErrNotFound)
	}

	if !c.withinHorizon(date, biz.AdvanceBookingDays) {
		c.telemetry.Record(ctx, "availability.out_of_window", map[string]string{
			"business_id": strconv.FormatInt(biz.ID, 10),
			"date":        date.String(),
		})
		return emptyResult(date), nil
	}

	var slots []TimeSlot
	switch biz.Type {
	case BusinessTypeCapacity:
		slots, err = c.capacitySlots(ctx, biz, svc, date)
	case BusinessTypeStaff:
		slots, err = c.staffSlots(ctx, biz, svc, date, req.StaffMemberID)
	default:
		err = fmt.Errorf("business %d: %w: %q", biz.ID, ErrUnsupportedBusinessType, biz.Type)
	}
	if err != nil {
		return Result{}, err
	}

	c.telemetry.Record(ctx, "availability.computed", map[string]string{
		"business_id": strconv.FormatInt(biz.ID, 10),
		"service_id":  strconv.FormatInt(svc.ID, 10),
		"strategy":    string(biz.Type),
		"slots":       strconv.Itoa(len(slots)),
	})
	if slots == nil {
		slots = []TimeSlot{}
	}
	return Result{Date: date.String(), Slots: slots}, nil
}

func lookupErr(op, kind string, id int64, err error) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return gatewayErr(op, err)
}

// withinHorizon accepts dates from today through today + advanceDays.
func (c *Calculator) withinHorizon(date Date, advanceDays int) bool {
	today := DateOf(c.now().In(c.loc))
	if date.Before(today) {
		return false
	}
	return !date.After(today.AddDays(advanceDays))
}

func emptyResult(date Date) Result {
	return Result{Date: date.String(), Slots: []TimeSlot{}}
}

// effectiveWindows resolves the working windows of a scope on a date. A date
// without a recurring rule is closed; an override then either closes the day or
// replaces every rule window.
func (c *Calculator) effectiveWindows(ctx context.Context, scope Scope, date Date) ([]Interval, error) {
	rules, err := c.gw.GetWorkingHours(ctx, scope, DayOfWeek(date))
	if err != nil {
		return nil, gatewayErr("get working hours", err)
	}
	if len(rules) == 0 {
		return nil, nil
	}

	override, err := c.gw.GetOverride(ctx, scope, date)
	if err != nil {
		return nil, gatewayErr("get override", err)
	}
	if override != nil {
		if override.Closed {
			return nil, nil
		}
		rules = []Window{override.Window}
	}
	return parseWindows(rules)
}

func parseWindows(rules []Window) ([]Interval, error) {
	out := make([]Interval, 0, len(rules))
	for _, w := range rules {
		start, err := MinutesOfDay(w.Start)
		if err != nil {
			return nil, fmt.Errorf("working hours start: %w", err)
		}
		end, err := MinutesOfDay(w.End)
		if err != nil {
			return nil, fmt.Errorf("working hours end: %w", err)
		}
		if end <= start {
			continue
		}
		out = append(out, Interval{Start: start, End: end})
	}
	slices.SortFunc(out, func(a, b Interval) int { return a.Start - b.Start })
	return out, nil
}

func scopeAttrs(scope Scope, date Date) map[string]string {
	attrs := map[string]string{
		"business_id": strconv.FormatInt(scope.BusinessID, 10),
		"date":        date.String(),
	}
	if scope.StaffMemberID != nil {
		attrs["staff_member_id"] = strconv.FormatInt(*scope.StaffMemberID, 10)
	}
	return attrs
}
