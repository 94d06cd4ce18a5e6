package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/salonhub/scheduling/services/booking-service/internal/blocks"
	"github.com/salonhub/scheduling/services/booking-service/internal/calendar"
	"github.com/salonhub/scheduling/services/booking-service/internal/model"
)

// Calendar renders the day grid for ?date= (default today). The scroll offset is
// where the grid auto-scrolls on mount.
func (a *API) Calendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	day := a.now().In(a.loc)
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		t, err := time.ParseInLocation(time.DateOnly, raw, a.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = t
	}

	s, ok := a.storeFor(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	resources, err := a.staff.List(ctx, s.SalonID())
	if err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	salonBlocks, err := a.blocks.All(ctx, s.SalonID())
	if err != nil {
		a.writeStoreError(w, r, err)
		return
	}

	view := calendar.BuildView(resources, s.All(), blocks.BackgroundEvents(salonBlocks, a.loc), day, a.loc, calendar.ViewOptions{})

	y1, m1, d1 := day.Date()
	y2, m2, d2 := a.now().In(a.loc).Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		grid := calendar.NewGrid(calendar.GridOptions{Now: a.now, Location: a.loc, Lead: 30 * time.Minute})
		if err := grid.Mount(resources); err == nil {
			view.ScrollOffset = grid.Offset()
		}
		grid.Dispose()
	}
	writeJSON(w, http.StatusOK, view)
}

type moveRequest struct {
	ID    string         `json:"id" validate:"required"`
	Staff model.StaffRef `json:"staff_id"`
	Start time.Time      `json:"start" validate:"required"`
}

type editResponse struct {
	Outcome     string            `json:"outcome"`
	Appointment model.Appointment `json:"appointment"`
	Error       string            `json:"error,omitempty"`
}

// Move is a completed drag: the appointment keeps its duration and lands on
// staff_id at start, or stays where it was if the drop is rejected.
func (a *API) Move(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req moveRequest
	if !a.decode(w, r, &req) {
		return
	}
	s, ok := a.storeFor(w, r)
	if !ok {
		return
	}
	ed := calendar.NewEditor(s)
	if err := ed.BeginDrag(req.ID); err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	res, err := ed.Drop(r.Context(), req.Staff, req.Start)
	if err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	a.writeEdit(w, r, res)
}

type resizeRequest struct {
	ID   string    `json:"id" validate:"required"`
	Edge string    `json:"edge" validate:"omitempty,oneof=start end"`
	To   time.Time `json:"to" validate:"required"`
}

// Resize moves one edge of an appointment.
func (a *API) Resize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req resizeRequest
	if !a.decode(w, r, &req) {
		return
	}
	s, ok := a.storeFor(w, r)
	if !ok {
		return
	}
	edge := calendar.EdgeEnd
	if req.Edge == "start" {
		edge = calendar.EdgeStart
	}
	ed := calendar.NewEditor(s)
	if err := ed.BeginResize(req.ID, edge); err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	res, err := ed.ResizeTo(r.Context(), req.To)
	if err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	a.writeEdit(w, r, res)
}

// writeEdit answers 200 for a committed edit. A reverted edit keeps the status
// of its cause and returns the original placement for the client to restore.
func (a *API) writeEdit(w http.ResponseWriter, r *http.Request, res calendar.Result) {
	if res.Outcome == calendar.Committed {
		writeJSON(w, http.StatusOK, editResponse{Outcome: res.Outcome.String(), Appointment: res.Appointment})
		return
	}
	rec := &statusRecorder{}
	a.writeStoreError(rec, r, res.Err)
	msg := res.Err.Error()
	if rec.status >= http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, rec.status, editResponse{Outcome: res.Outcome.String(), Appointment: res.Appointment, Error: msg})
}

// statusRecorder captures only the status code writeStoreError picks.
type statusRecorder struct {
	status int
	header http.Header
}

func (s *statusRecorder) Header() http.Header {
	if s.header == nil {
		s.header = http.Header{}
	}
	return s.header
}

func (s *statusRecorder) Write(p []byte) (int, error) { return len(p), nil }

func (s *statusRecorder) WriteHeader(code int) { s.status = code }
