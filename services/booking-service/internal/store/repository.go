package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/salonhub/scheduling/services/booking-service/internal/availability"
	"github.com/salonhub/scheduling/services/booking-service/internal/model"
)

// Repository is the record-storage collaborator, scoped by salon.
// Put inserts or replaces; adapters backed by shared storage must reject
// overlapping writes themselves with ErrSlotConflict.
type Repository interface {
	List(ctx context.Context, salonID string) ([]model.Appointment, error)
	Get(ctx context.Context, salonID, id string) (model.Appointment, error)
	Put(ctx context.Context, appt model.Appointment) error
	Delete(ctx context.Context, salonID, id string) error
}

// MemoryRepository keeps records in process memory; it backs tests and
// deployments without DATABASE_URL. Put re-checks the staff lane under the
// repository lock, so two Store instances for one salon cannot double-book.
type MemoryRepository struct {
	mu     sync.RWMutex
	salons map[string]map[string]model.Appointment
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{salons: map[string]map[string]model.Appointment{}}
}

func (r *MemoryRepository) List(_ context.Context, salonID string) ([]model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Appointment, 0, len(r.salons[salonID]))
	for _, a := range r.salons[salonID] {
		out = append(out, a)
	}
	sortByStart(out)
	return out, nil
}

func (r *MemoryRepository) Get(_ context.Context, salonID, id string) (model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.salons[salonID][id]
	if !ok {
		return model.Appointment{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepository) Put(_ context.Context, appt model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	salon := r.salons[appt.SalonID]
	if appt.Blocking() {
		existing := make([]model.Appointment, 0, len(salon))
		for _, other := range salon {
			existing = append(existing, other)
		}
		if !availability.IsSlotAvailable(existing, availability.QueryFor(appt)) {
			return ErrSlotConflict
		}
	}
	if salon == nil {
		salon = map[string]model.Appointment{}
		r.salons[appt.SalonID] = salon
	}
	salon[appt.ID] = appt
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, salonID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.salons[salonID][id]; !ok {
		return ErrNotFound
	}
	delete(r.salons[salonID], id)
	return nil
}

func sortByStart(appts []model.Appointment) {
	slices.SortFunc(appts, func(a, b model.Appointment) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
