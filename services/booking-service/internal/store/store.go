// Package store owns the canonical appointment list of one salon together with
// the filtered view the calendar renders.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/salonhub/scheduling/services/booking-service/internal/availability"
	"github.com/salonhub/scheduling/services/booking-service/internal/filter"
	"github.com/salonhub/scheduling/services/booking-service/internal/model"
)

// BlockGate rejects bookings that fall inside a staff block.
type BlockGate interface {
	Overlaps(ctx context.Context, salonID, staffID string, start, end time.Time) (bool, error)
}

type Options struct {
	Logger *slog.Logger
	// Latency delays every mutation before it reaches the repository, keeping the
	// pending/settled lifecycle observable even with in-memory storage.
	Latency time.Duration
	Blocks  BlockGate
	Now     func() time.Time
	NewID   func() string
}

// Draft is the input of Add. Staff may be unassigned.
type Draft struct {
	SalonID     string         `json:"salon_id"`
	Title       string         `json:"title"`
	Start       time.Time      `json:"start"`
	End         time.Time      `json:"end"`
	ClientName  string         `json:"client_name"`
	ClientPhone string         `json:"client_phone"`
	Service     string         `json:"service"`
	Staff       model.StaffRef `json:"staff_id"`
	Status      model.Status   `json:"status"`
	Notes       string         `json:"notes"`
}

type Store struct {
	salonID string
	repo    Repository
	logger  *slog.Logger
	latency time.Duration
	blocks  BlockGate
	now     func() time.Time
	newID   func() string

	// opMu serializes mutations so check-then-write is atomic in process.
	opMu     sync.Mutex
	inFlight atomic.Int32

	mu       sync.RWMutex
	all      []model.Appointment
	filtered []model.Appointment
	criteria filter.Criteria
	current  string
	lastErr  string
}

func New(salonID string, repo Repository, opts Options) *Store {
	s := &Store{
		salonID: salonID,
		repo:    repo,
		logger:  opts.Logger,
		latency: opts.Latency,
		blocks:  opts.Blocks,
		now:     opts.Now,
		newID:   opts.NewID,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	s.logger = s.logger.With("salon_id", salonID)
	return s
}

func (s *Store) SalonID() string { return s.salonID }

// Load replaces the collection with the repository's contents.
func (s *Store) Load(ctx context.Context) error {
	done := s.begin()
	defer done()

	appts, err := s.repo.List(ctx, s.salonID)
	if err != nil {
		return s.fail(fmt.Errorf("load appointments: %w", err))
	}
	sortByStart(appts)

	s.mu.Lock()
	s.all = appts
	s.refilterLocked()
	s.lastErr = ""
	s.mu.Unlock()
	return nil
}

func (s *Store) Add(ctx context.Context, d Draft) (model.Appointment, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	done := s.begin()
	defer done()

	now := s.now()
	appt := model.Appointment{
		SalonID:     strings.TrimSpace(d.SalonID),
		Title:       model.DisplayTitle(d.Title, d.Service),
		Start:       d.Start,
		End:         d.End,
		ClientName:  strings.TrimSpace(d.ClientName),
		ClientPhone: strings.TrimSpace(d.ClientPhone),
		Service:     strings.TrimSpace(d.Service),
		Staff:       d.Staff,
		Status:      d.Status,
		Notes:       strings.TrimSpace(d.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if appt.Status == "" {
		appt.Status = model.StatusPending
	}
	if err := s.validate(appt); err != nil {
		return model.Appointment{}, s.fail(err)
	}
	if err := s.checkSlot(ctx, appt); err != nil {
		return model.Appointment{}, s.fail(err)
	}
	if err := s.settle(ctx); err != nil {
		return model.Appointment{}, s.fail(err)
	}

	appt.ID = s.newID()
	if err := s.repo.Put(ctx, appt); err != nil {
		return model.Appointment{}, s.fail(fmt.Errorf("save appointment: %w", err))
	}

	s.mu.Lock()
	s.all = append(s.all, appt)
	sortByStart(s.all)
	s.refilterLocked()
	s.lastErr = ""
	s.mu.Unlock()

	s.logger.Info("appointment created", "appointment_id", appt.ID, "staff_id", appt.Staff.String(), "start", appt.Start)
	return appt, nil
}

func (s *Store) Update(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	done := s.begin()
	defer done()

	if strings.TrimSpace(appt.ID) == "" {
		return model.Appointment{}, s.fail(invalid("id", "is required"))
	}
	existing, ok := s.find(appt.ID)
	if !ok {
		return model.Appointment{}, s.fail(fmt.Errorf("update %s: %w", appt.ID, ErrNotFound))
	}

	appt.SalonID = strings.TrimSpace(appt.SalonID)
	if appt.SalonID == "" {
		appt.SalonID = existing.SalonID
	}
	appt.ClientName = strings.TrimSpace(appt.ClientName)
	appt.Title = model.DisplayTitle(appt.Title, appt.Service)
	appt.CreatedAt = existing.CreatedAt
	appt.UpdatedAt = s.now()
	if appt.Status == "" {
		appt.Status = existing.Status
	}
	if err := s.validate(appt); err != nil {
		return model.Appointment{}, s.fail(err)
	}
	if err := s.checkSlot(ctx, appt); err != nil {
		return model.Appointment{}, s.fail(err)
	}
	if err := s.settle(ctx); err != nil {
		return model.Appointment{}, s.fail(err)
	}
	if err := s.repo.Put(ctx, appt); err != nil {
		return model.Appointment{}, s.fail(fmt.Errorf("save appointment: %w", err))
	}

	s.mu.Lock()
	for i := range s.all {
		if s.all[i].ID == appt.ID {
			s.all[i] = appt
			break
		}
	}
	sortByStart(s.all)
	s.refilterLocked()
	s.lastErr = ""
	s.mu.Unlock()

	s.logger.Info("appointment updated", "appointment_id", appt.ID, "staff_id", appt.Staff.String(), "start", appt.Start)
	return appt, nil
}

// Delete removes id. A missing id is reported as ErrNotFound and leaves the
// collection unchanged.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	done := s.begin()
	defer done()

	if _, ok := s.find(id); !ok {
		return s.fail(fmt.Errorf("delete %s: %w", id, ErrNotFound))
	}
	if err := s.settle(ctx); err != nil {
		return s.fail(err)
	}
	if err := s.repo.Delete(ctx, s.salonID, id); err != nil && !errors.Is(err, ErrNotFound) {
		return s.fail(fmt.Errorf("delete appointment: %w", err))
	}

	s.mu.Lock()
	for i := range s.all {
		if s.all[i].ID == id {
			s.all = append(s.all[:i], s.all[i+1:]...)
			break
		}
	}
	if s.current == id {
		s.current = ""
	}
	s.refilterLocked()
	s.lastErr = ""
	s.mu.Unlock()

	s.logger.Info("appointment deleted", "appointment_id", id)
	return nil
}

// SetFilters merges p into the active criteria and recomputes the filtered view.
func (s *Store) SetFilters(p filter.Patch) filter.Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criteria = s.criteria.Merge(p)
	s.refilterLocked()
	return s.criteria
}

func (s *Store) Filters() filter.Criteria {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.criteria
}

// All returns a copy of the full collection ordered by start.
func (s *Store) All() []model.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Appointment(nil), s.all...)
}

// Filtered returns a copy of the filtered view.
func (s *Store) Filtered() []model.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Appointment(nil), s.filtered...)
}

func (s *Store) Get(id string) (model.Appointment, bool) {
	return s.find(id)
}

// Select focuses one appointment for editing.
func (s *Store) Select(id string) (model.Appointment, error) {
	a, ok := s.find(id)
	if !ok {
		return model.Appointment{}, fmt.Errorf("select %s: %w", id, ErrNotFound)
	}
	s.mu.Lock()
	s.current = id
	s.mu.Unlock()
	return a, nil
}

func (s *Store) Current() (model.Appointment, bool) {
	s.mu.RLock()
	id := s.current
	s.mu.RUnlock()
	if id == "" {
		return model.Appointment{}, false
	}
	return s.find(id)
}

func (s *Store) ClearSelection() {
	s.mu.Lock()
	s.current = ""
	s.mu.Unlock()
}

// IsSlotAvailable is the pre-submit check; it ignores staff blocks.
func (s *Store) IsSlotAvailable(q availability.Query) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return availability.IsSlotAvailable(s.all, q)
}

// Loading reports whether any operation is in flight.
func (s *Store) Loading() bool {
	return s.inFlight.Load() > 0
}

// Err is the message of the last failed operation, cleared by the next success.
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Store) validate(a model.Appointment) error {
	switch {
	case a.SalonID == "":
		return invalid("salon_id", "is required")
	case a.SalonID != s.salonID:
		return invalid("salon_id", "does not match the store's salon")
	case a.ClientName == "":
		return invalid("client_name", "is required")
	case a.Start.IsZero():
		return invalid("start", "is required")
	case a.End.IsZero():
		return invalid("end", "is required")
	case !a.End.After(a.Start):
		return invalid("end", "must be after start")
	case !a.Status.Valid():
		return invalid("status", fmt.Sprintf("%q is not a known status", a.Status))
	}
	return nil
}

func (s *Store) checkSlot(ctx context.Context, a model.Appointment) error {
	if !a.Blocking() {
		return nil
	}
	s.mu.RLock()
	conflicts := availability.Conflicts(s.all, availability.QueryFor(a))
	s.mu.RUnlock()
	if len(conflicts) > 0 {
		s.logger.Warn("slot conflict", "staff_id", a.Staff.String(), "start", a.Start, "end", a.End, "conflicts_with", conflicts[0].ID)
		return ErrSlotConflict
	}

	staffID, assigned := a.Staff.ID()
	if s.blocks == nil || !assigned {
		return nil
	}
	blocked, err := s.blocks.Overlaps(ctx, a.SalonID, staffID, a.Start, a.End)
	if err != nil {
		return fmt.Errorf("check staff blocks: %w", err)
	}
	if blocked {
		return ErrStaffBlocked
	}
	return nil
}

func (s *Store) find(id string) (model.Appointment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.all {
		if a.ID == id {
			return a, true
		}
	}
	return model.Appointment{}, false
}

func (s *Store) refilterLocked() {
	s.filtered = filter.Apply(s.criteria, s.all)
}

// begin marks an operation in flight; the returned func must run in a defer.
func (s *Store) begin() func() {
	s.inFlight.Add(1)
	return func() { s.inFlight.Add(-1) }
}

func (s *Store) settle(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Store) fail(err error) error {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
	return err
}
