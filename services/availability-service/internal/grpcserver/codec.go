package grpcserver

import (
	"fmt"
	"math"

	"github.com/md-rashed-zaman/bookable/services/availability-service/internal/availability"
	"google.golang.org/protobuf/types/known/structpb"
)

// Messages travel as google.protobuf.Struct. Ids are JSON numbers and must be
// integral.

func RequestToStruct(req availability.Request) (*structpb.Struct, error) {
	fields := map[string]any{
		"business_id": float64(req.BusinessID),
		"service_id":  float64(req.ServiceID),
		"date":        req.Date,
	}
	if req.StaffMemberID != nil {
		fields["staff_member_id"] = float64(*req.StaffMemberID)
	}
	return structpb.NewStruct(fields)
}

func StructToRequest(s *structpb.Struct) (availability.Request, error) {
	var req availability.Request
	fields := s.GetFields()

	var err error
	if req.BusinessID, err = intField(fields, "business_id"); err != nil {
		return req, err
	}
	if req.ServiceID, err = intField(fields, "service_id"); err != nil {
		return req, err
	}
	if v, ok := fields["date"]; ok {
		str, isStr := v.GetKind().(*structpb.Value_StringValue)
		if !isStr {
			return req, fmt.Errorf("%w: date must be a string", availability.ErrInvalidInput)
		}
		req.Date = str.StringValue
	}
	if _, ok := fields["staff_member_id"]; ok {
		id, err := intField(fields, "staff_member_id")
		if err != nil {
			return req, err
		}
		req.StaffMemberID = &id
	}
	return req, nil
}

func intField(fields map[string]*structpb.Value, name string) (int64, error) {
	v, ok := fields[name]
	if !ok {
		return 0, nil
	}
	num, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum {
		return 0, fmt.Errorf("%w: %s must be a number", availability.ErrInvalidInput, name)
	}
	f := num.NumberValue
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("%w: %s must be an integer", availability.ErrInvalidInput, name)
	}
	return int64(f), nil
}

func ResultToStruct(res availability.Result) (*structpb.Struct, error) {
	slots := make([]any, 0, len(res.Slots))
	for _, s := range res.Slots {
		item := map[string]any{
			"start":     s.Start,
			"end":       s.End,
			"available": s.Available,
		}
		if s.StaffMemberID != nil {
			item["staff_member_id"] = float64(*s.StaffMemberID)
		}
		slots = append(slots, item)
	}
	return structpb.NewStruct(map[string]any{
		"date":  res.Date,
		"slots": slots,
	})
}

func StructToResult(s *structpb.Struct) (availability.Result, error) {
	res := availability.Result{
		Date:  s.GetFields()["date"].GetStringValue(),
		Slots: []availability.TimeSlot{},
	}
	for i, v := range s.GetFields()["slots"].GetListValue().GetValues() {
		item := v.GetStructValue()
		if item == nil {
			return res, fmt.Errorf("slot %d is not an object", i)
		}
		f := item.GetFields()
		slot := availability.TimeSlot{
			Start:     f["start"].GetStringValue(),
			End:       f["end"].GetStringValue(),
			Available: f["available"].GetBoolValue(),
		}
		if _, ok := f["staff_member_id"]; ok {
			id, err := intField(f, "staff_member_id")
			if err != nil {
				return res, err
			}
			slot.StaffMemberID = &id
		}
		res.Slots = append(res.Slots, slot)
	}
	return res, nil
}
