package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/md-rashed-zaman/bookable/libs/httpx"
	"github.com/md-rashed-zaman/bookable/services/availability-service/internal/availability"
)

const AvailabilityRoute = "GET /api/v1/public/availability"

type Computer interface {
	Compute(ctx context.Context, req availability.Request) (availability.Result, error)
}

type AvailabilityHandler struct {
	computer Computer
	logger   *slog.Logger
	validate *validator.Validate
}

func NewAvailabilityHandler(computer Computer, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		computer: computer,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *AvailabilityHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc(AvailabilityRoute, h.Get)
}

type availabilityQuery struct {
	BusinessID    int64  `validate:"required,gt=0"`
	ServiceID     int64  `validate:"required,gt=0"`
	Date          string `validate:"required,datetime=2006-01-02"`
	StaffMemberID *int64 `validate:"omitempty,gt=0"`
}

type slotItem struct {
	Start         string `json:"start"`
	End           string `json:"end"`
	StaffMemberID *int64 `json:"staff_member_id,omitempty"`
	Available     bool   `json:"available"`
}

type availabilityResponse struct {
	Date  string     `json:"date"`
	Slots []slotItem `json:"slots"`
}

func (h *AvailabilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	q, err := parseAvailabilityQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(q); err != nil {
		http.Error(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	res, err := h.computer.Compute(r.Context(), availability.Request{
		BusinessID:    q.BusinessID,
		ServiceID:     q.ServiceID,
		Date:          q.Date,
		StaffMemberID: q.StaffMemberID,
	})
	if err != nil {
		h.writeComputeError(w, r, err)
		return
	}

	resp := availabilityResponse{Date: res.Date, Slots: make([]slotItem, 0, len(res.Slots))}
	for _, s := range res.Slots {
		resp.Slots = append(resp.Slots, slotItem(s))
	}
	body, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func parseAvailabilityQuery(r *http.Request) (availabilityQuery, error) {
	values := r.URL.Query()
	var q availabilityQuery
	var err error

	if q.BusinessID, err = parseID(values.Get("business_id"), "business_id"); err != nil {
		return q, err
	}
	if q.ServiceID, err = parseID(values.Get("service_id"), "service_id"); err != nil {
		return q, err
	}
	q.Date = strings.TrimSpace(values.Get("date"))

	staff := strings.TrimSpace(values.Get("staff_id"))
	if staff == "" {
		staff = strings.TrimSpace(values.Get("staff_member_id"))
	}
	if staff != "" {
		id, err := parseID(staff, "staff_id")
		if err != nil {
			return q, err
		}
		q.StaffMemberID = &id
	}
	return q, nil
}

func parseID(raw, name string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return id, nil
}

var fieldNames = map[string]string{
	"BusinessID":    "business_id",
	"ServiceID":     "service_id",
	"Date":          "date",
	"StaffMemberID": "staff_id",
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid query"
	}
	fe := verrs[0]
	name := fieldNames[fe.Field()]
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "datetime":
		return name + " must be YYYY-MM-DD"
	default:
		return name + " must be positive"
	}
}

func (h *AvailabilityHandler) writeComputeError(w http.ResponseWriter, r *http.Request, err error) {
	var gwErr *availability.GatewayError
	switch {
	case errors.Is(err, availability.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, availability.ErrNotFound):
		http.Error(w, "business or service not found", http.StatusNotFound)
	case errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "availability timed out", http.StatusGatewayTimeout)
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to send.
		w.WriteHeader(499)
	case errors.As(err, &gwErr):
		h.logger.Error("availability data unavailable", "request_id", httpx.RequestIDFromContext(r.Context()), "op", gwErr.Op, "err", gwErr.Err)
		http.Error(w, "availability data unavailable", http.StatusServiceUnavailable)
	default:
		h.logger.Error("availability failed", "request_id", httpx.RequestIDFromContext(r.Context()), "err", err)
		http.Error(w, "failed to compute availability", http.StatusInternalServerError)
	}
}
