package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/salonhub/scheduling/services/booking-service/internal/filter"
	"github.com/salonhub/scheduling/services/booking-service/internal/model"
	"github.com/salonhub/scheduling/services/booking-service/internal/store"
)

type appointmentRequest struct {
	Title       string         `json:"title" validate:"max=200"`
	Start       time.Time      `json:"start" validate:"required"`
	End         time.Time      `json:"end" validate:"required,gtfield=Start"`
	ClientName  string         `json:"client_name" validate:"required,max=200"`
	ClientPhone string         `json:"client_phone" validate:"max=40"`
	Service     string         `json:"service" validate:"max=200"`
	Staff       model.StaffRef `json:"staff_id"`
	Status      model.Status   `json:"status" validate:"omitempty,oneof=pending confirmed completed cancelled"`
	Notes       string         `json:"notes" validate:"max=2000"`
}

type listResponse struct {
	Items   []model.Appointment `json:"items"`
	Filters *filter.Criteria    `json:"filters,omitempty"`
	Loading bool                `json:"loading"`
	Error   string              `json:"error,omitempty"`
}

// Appointments lists (GET) or creates (POST) appointments of the salon.
func (a *API) Appointments(w http.ResponseWriter, r *http.Request) {
	s, ok := a.storeFor(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		items := s.All()
		if hasFilterParams(r) {
			criteria, err := filter.FromQuery(r.URL.Query(), a.loc)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			items = filter.Apply(criteria, items)
		}
		writeJSON(w, http.StatusOK, listResponse{Items: items, Loading: s.Loading(), Error: s.Err()})
	case http.MethodPost:
		var req appointmentRequest
		if !a.decode(w, r, &req) {
			return
		}
		appt, err := s.Add(r.Context(), store.Draft{
			SalonID:     s.SalonID(),
			Title:       req.Title,
			Start:       req.Start,
			End:         req.End,
			ClientName:  req.ClientName,
			ClientPhone: req.ClientPhone,
			Service:     req.Service,
			Staff:       req.Staff,
			Status:      req.Status,
			Notes:       req.Notes,
		})
		if err != nil {
			a.writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, appt)
	default:
		methodNotAllowed(w)
	}
}

// hasFilterParams reports whether a list request carries ad-hoc filters. They
// apply to that response only and leave the salon's saved criteria alone.
func hasFilterParams(r *http.Request) bool {
	q := r.URL.Query()
	for _, key := range []string{"status", "from", "to", "staff_id", "search"} {
		if q.Has(key) {
			return true
		}
	}
	return false
}

// AppointmentItem reads (GET), replaces (PUT) or deletes (DELETE) ?id=.
func (a *API) AppointmentItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	s, ok := a.storeFor(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		appt, found := s.Get(id)
		if !found {
			writeError(w, http.StatusNotFound, store.ErrNotFound.Error())
			return
		}
		writeJSON(w, http.StatusOK, appt)
	case http.MethodPut:
		var req appointmentRequest
		if !a.decode(w, r, &req) {
			return
		}
		appt, err := s.Update(r.Context(), model.Appointment{
			ID:          id,
			SalonID:     s.SalonID(),
			Title:       req.Title,
			Start:       req.Start,
			End:         req.End,
			ClientName:  req.ClientName,
			ClientPhone: strings.TrimSpace(req.ClientPhone),
			Service:     strings.TrimSpace(req.Service),
			Staff:       req.Staff,
			Status:      req.Status,
			Notes:       strings.TrimSpace(req.Notes),
		})
		if err != nil {
			a.writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	case http.MethodDelete:
		if err := s.Delete(r.Context(), id); err != nil {
			a.writeStoreError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

// Filtered returns the salon's filtered view under the active criteria.
func (a *API) Filtered(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	s, ok := a.storeFor(w, r)
	if !ok {
		return
	}
	criteria := s.Filters()
	writeJSON(w, http.StatusOK, listResponse{Items: s.Filtered(), Filters: &criteria, Loading: s.Loading(), Error: s.Err()})
}

// Filters reads (GET) or merges a partial update into (PUT) the active criteria.
func (a *API) Filters(w http.ResponseWriter, r *http.Request) {
	s, ok := a.storeFor(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.Filters())
	case http.MethodPut:
		var raw filter.RawPatch
		if !a.decode(w, r, &raw) {
			return
		}
		patch, err := raw.Parse(a.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		criteria := s.SetFilters(patch)
		writeJSON(w, http.StatusOK, listResponse{Items: s.Filtered(), Filters: &criteria})
	default:
		methodNotAllowed(w)
	}
}

type selectRequest struct {
	ID string `json:"id" validate:"required"`
}

// Current is the edit-dialog focus: GET reads it, PUT selects, DELETE clears.
func (a *API) Current(w http.ResponseWriter, r *http.Request) {
	s, ok := a.storeFor(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		appt, found := s.Current()
		if !found {
			writeError(w, http.StatusNotFound, "no appointment selected")
			return
		}
		writeJSON(w, http.StatusOK, appt)
	case http.MethodPut:
		var req selectRequest
		if !a.decode(w, r, &req) {
			return
		}
		appt, err := s.Select(req.ID)
		if err != nil {
			a.writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	case http.MethodDelete:
		s.ClearSelection()
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}
