package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/salonhub/scheduling/services/booking-service/internal/blocks"
	"github.com/salonhub/scheduling/services/booking-service/internal/model"
)

type blockRequest struct {
	StaffID   string `json:"staff_id" validate:"required"`
	StartDate string `json:"start_date" validate:"required,date"`
	EndDate   string `json:"end_date" validate:"omitempty,date"`
	StartTime string `json:"start_time" validate:"required,clock"`
	EndTime   string `json:"end_time" validate:"required,clock"`
	Reason    string `json:"reason" validate:"max=500"`
}

type blocksResponse struct {
	Items      []model.StaffBlockTime   `json:"items"`
	Background []blocks.BackgroundEvent `json:"background"`
}

// Blocks lists (GET, optional ?staff_id=), adds (POST) or removes (DELETE ?id=)
// staff blocks.
func (a *API) Blocks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	salonID := salonFrom(ctx)

	switch r.Method {
	case http.MethodGet:
		var (
			items []model.StaffBlockTime
			err   error
		)
		if staffID := strings.TrimSpace(r.URL.Query().Get("staff_id")); staffID != "" {
			items, err = a.blocks.BlocksFor(ctx, salonID, staffID)
		} else {
			items, err = a.blocks.All(ctx, salonID)
		}
		if err != nil {
			a.writeStoreError(w, r, err)
			return
		}
		if items == nil {
			items = []model.StaffBlockTime{}
		}
		bg := blocks.BackgroundEvents(items, a.loc)
		if bg == nil {
			bg = []blocks.BackgroundEvent{}
		}
		writeJSON(w, http.StatusOK, blocksResponse{Items: items, Background: bg})
	case http.MethodPost:
		var req blockRequest
		if !a.decode(w, r, &req) {
			return
		}
		createdBy := ""
		if c := claimsFrom(ctx); c != nil {
			createdBy = c.Subject
		}
		b, err := a.blocks.AddBlock(ctx, blocks.NewBlock{
			SalonID:   salonID,
			StaffID:   req.StaffID,
			StartDate: req.StartDate,
			EndDate:   req.EndDate,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			Reason:    req.Reason,
			CreatedBy: createdBy,
		})
		if err != nil {
			a.writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, b)
	case http.MethodDelete:
		id := strings.TrimSpace(r.URL.Query().Get("id"))
		if id == "" {
			writeError(w, http.StatusBadRequest, "id is required")
			return
		}
		if err := a.blocks.RemoveBlock(ctx, salonID, id); err != nil {
			a.writeStoreError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

type blockStatusResponse struct {
	StaffID string    `json:"staff_id"`
	At      time.Time `json:"at"`
	Blocked bool      `json:"blocked"`
}

// BlockStatus answers whether ?staff_id= is blocked at ?at= (RFC3339, default now).
func (a *API) BlockStatus(w http.ResponseWriter, r *http.Request) {
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
	at := a.now()
	if raw := strings.TrimSpace(q.Get("at")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "at must be RFC3339")
			return
		}
		at = t
	}
	blocked, err := a.blocks.IsBlocked(r.Context(), salonFrom(r.Context()), staffID, at)
	if err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, blockStatusResponse{StaffID: staffID, At: at, Blocked: blocked})
}
