package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/salonhub/scheduling/services/booking-service/internal/availability"
	"github.com/salonhub/scheduling/services/booking-service/internal/blocks"
	"github.com/salonhub/scheduling/services/booking-service/internal/calendar"
	"github.com/salonhub/scheduling/services/booking-service/internal/model"
)

type checkSlotRequest struct {
	Start     time.Time      `json:"start" validate:"required"`
	End       time.Time      `json:"end" validate:"required,gtfield=Start"`
	Staff     model.StaffRef `json:"staff_id"`
	ExcludeID string         `json:"exclude_id"`
}

type checkSlotResponse struct {
	Available bool     `json:"available"`
	Blocked   bool     `json:"blocked"`
	Conflicts []string `json:"conflicts,omitempty"`
}

// CheckSlot is the pre-submit availability check.
func (a *API) CheckSlot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req checkSlotRequest
	if !a.decode(w, r, &req) {
		return
	}
	s, ok := a.storeFor(w, r)
	if !ok {
		return
	}

	q := availability.Query{Start: req.Start, End: req.End, SalonID: s.SalonID(), Staff: req.Staff, ExcludeID: strings.TrimSpace(req.ExcludeID)}
	resp := checkSlotResponse{Available: s.IsSlotAvailable(q)}
	for _, c := range availability.Conflicts(s.All(), q) {
		resp.Conflicts = append(resp.Conflicts, c.ID)
	}
	if id, assigned := req.Staff.ID(); assigned {
		blocked, err := a.blocks.Overlaps(r.Context(), s.SalonID(), id, req.Start, req.End)
		if err != nil {
			a.writeStoreError(w, r, err)
			return
		}
		resp.Blocked = blocked
	}
	writeJSON(w, http.StatusOK, resp)
}

type slotsResponse struct {
	Date    string      `json:"date"`
	StaffID string      `json:"staff_id"`
	Slots   []time.Time `json:"slots"`
}

// Slots lists free start times for one staff member on one day, inside their
// working hours and outside appointments and blocks.
func (a *API) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	staffID := strings.TrimSpace(q.Get("staff_id"))
	if staffID == "" {
		writeError(w, http.StatusBadRequest, "staff_id is required")
		return
	}
	day, err := time.ParseInLocation(time.DateOnly, q.Get("date"), a.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	duration, err := minutesParam(q.Get("duration_minutes"), 30)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid duration_minutes")
		return
	}
	step, err := minutesParam(q.Get("step_minutes"), 15)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid step_minutes")
		return
	}

	s, ok := a.storeFor(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	member, err := a.staff.Get(ctx, s.SalonID(), staffID)
	if err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	opens, closes := calendar.WorkingHours([]model.StaffResource{member})

	ref := model.AssignedTo(staffID)
	busy := availability.Busy(s.All(), s.SalonID(), ref)
	staffBlocks, err := a.blocks.BlocksFor(ctx, s.SalonID(), staffID)
	if err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	for _, b := range staffBlocks {
		for _, win := range blocks.Windows(b, a.loc) {
			busy = append(busy, availability.Interval{Start: win.Start, End: win.End})
		}
	}

	y, m, d := day.Date()
	windowStart := time.Date(y, m, d, opens/60, opens%60, 0, 0, a.loc)
	windowEnd := time.Date(y, m, d, closes/60, closes%60, 0, 0, a.loc)
	slots := availability.AvailableSlots(windowStart, windowEnd, duration, step, busy, a.now())
	if slots == nil {
		slots = []time.Time{}
	}
	writeJSON(w, http.StatusOK, slotsResponse{Date: day.Format(time.DateOnly), StaffID: staffID, Slots: slots})
}

func minutesParam(raw string, fallback int) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Duration(fallback) * time.Minute, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 24*60 {
		return 0, errors.New("minutes out of range")
	}
	return time.Duration(n) * time.Minute, nil
}
