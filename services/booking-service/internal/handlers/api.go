// Package handlers is the booking HTTP API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/salonhub/scheduling/libs/auth"
	"github.com/salonhub/scheduling/libs/httpx"
	"github.com/salonhub/scheduling/services/booking-service/internal/blocks"
	"github.com/salonhub/scheduling/services/booking-service/internal/staff"
	"github.com/salonhub/scheduling/services/booking-service/internal/store"
)

type Deps struct {
	Stores   *store.Registry
	Blocks   *blocks.Registry
	Staff    staff.Directory
	Verifier *auth.Verifier
	Logger   *slog.Logger
	Location *time.Location
	Now      func() time.Time
}

type API struct {
	stores   *store.Registry
	blocks   *blocks.Registry
	staff    staff.Directory
	verifier *auth.Verifier
	validate *validator.Validate
	logger   *slog.Logger
	loc      *time.Location
	now      func() time.Time
}

func New(d Deps) *API {
	a := &API{
		stores:   d.Stores,
		blocks:   d.Blocks,
		staff:    d.Staff,
		verifier: d.Verifier,
		validate: newValidator(),
		logger:   d.Logger,
		loc:      d.Location,
		now:      d.Now,
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.loc == nil {
		a.loc = time.UTC
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// Register mounts every route on mux. All of them require a bearer token
// granting access to the requested salon.
func (a *API) Register(mux *http.ServeMux) {
	routes := map[string]http.HandlerFunc{
		"/api/v1/appointments":          a.Appointments,
		"/api/v1/appointments/item":     a.AppointmentItem,
		"/api/v1/appointments/filtered": a.Filtered,
		"/api/v1/appointments/filters":  a.Filters,
		"/api/v1/appointments/current":  a.Current,
		"/api/v1/availability/check":    a.CheckSlot,
		"/api/v1/availability/slots":    a.Slots,
		"/api/v1/staff":                 a.StaffList,
		"/api/v1/staff/visibility":      a.StaffVisibility,
		"/api/v1/staff/blocks":          a.Blocks,
		"/api/v1/staff/blocks/status":   a.BlockStatus,
		"/api/v1/calendar":              a.Calendar,
		"/api/v1/calendar/move":         a.Move,
		"/api/v1/calendar/resize":       a.Resize,
	}
	for path, h := range routes {
		mux.Handle(path, a.authenticated(h))
	}
}

type ctxKey int

const (
	ctxKeyClaims ctxKey = iota
	ctxKeySalon
)

func (a *API) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := a.verifier.Parse(strings.TrimSpace(token))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		salonID := strings.TrimSpace(r.Header.Get(httpx.SalonIDHeader))
		if salonID == "" {
			salonID = strings.TrimSpace(r.URL.Query().Get("salon_id"))
		}
		if salonID == "" {
			writeError(w, http.StatusBadRequest, "salon_id is required")
			return
		}
		if !claims.CanAccess(salonID) {
			writeError(w, http.StatusForbidden, "no access to salon")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyClaims, claims)
		ctx = context.WithValue(ctx, ctxKeySalon, salonID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(ctxKeyClaims).(*auth.Claims)
	return c
}

func salonFrom(ctx context.Context) string {
	s, _ := ctx.Value(ctxKeySalon).(string)
	return s
}

func (a *API) storeFor(w http.ResponseWriter, r *http.Request) (*store.Store, bool) {
	s, err := a.stores.For(r.Context(), salonFrom(r.Context()))
	if err != nil {
		a.writeStoreError(w, r, err)
		return nil, false
	}
	return s, true
}

type errorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

// decode reads a JSON body and runs struct validation on it.
func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Details: validationDetails(verrs)})
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// writeStoreError maps domain errors to status codes. Anything unrecognised is
// logged and reported as a bare 500.
func (a *API) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Details: map[string]string{verr.Field: verr.Reason}})
	case errors.Is(err, store.ErrStaffBlocked):
		writeError(w, http.StatusConflict, "staff member is blocked at that time")
	case errors.Is(err, store.ErrSlotConflict):
		writeError(w, http.StatusConflict, store.ErrSlotConflict.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, blocks.ErrInvalidBlock):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, staff.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		a.logger.Error("request failed", "err", err, "path", r.URL.Path,
			"request_id", httpx.RequestIDFromContext(r.Context()))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
