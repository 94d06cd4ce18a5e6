package handlers

import (
	"net/http"

	"github.com/salonhub/scheduling/services/booking-service/internal/model"
)

func (a *API) StaffList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	items, err := a.staff.List(r.Context(), salonFrom(r.Context()))
	if err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	if items == nil {
		items = []model.StaffResource{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type visibilityRequest struct {
	StaffID string `json:"staff_id" validate:"required"`
	Visible *bool  `json:"visible" validate:"required"`
}

// StaffVisibility shows or hides a staff column in the calendar.
func (a *API) StaffVisibility(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	var req visibilityRequest
	if !a.decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	if err := a.staff.SetVisible(ctx, salonFrom(ctx), req.StaffID, *req.Visible); err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	member, err := a.staff.Get(ctx, salonFrom(ctx), req.StaffID)
	if err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}
