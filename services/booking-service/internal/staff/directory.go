// Package staff is the booking side's read model of salon staff.
package staff

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/salonhub/scheduling/services/booking-service/internal/model"
)

var ErrNotFound = errors.New("staff member not found")

// Directory lists staff per salon. Upsert is fed by business-service events;
// SetVisible is the only change made from this service.
type Directory interface {
	List(ctx context.Context, salonID string) ([]model.StaffResource, error)
	Get(ctx context.Context, salonID, id string) (model.StaffResource, error)
	Upsert(ctx context.Context, s model.StaffResource) error
	SetVisible(ctx context.Context, salonID, id string, visible bool) error
}

// Schedulable filters to the staff that get a calendar column.
func Schedulable(all []model.StaffResource) []model.StaffResource {
	out := make([]model.StaffResource, 0, len(all))
	for _, s := range all {
		if s.Schedulable() {
			out = append(out, s)
		}
	}
	return out
}

type MemoryDirectory struct {
	mu     sync.RWMutex
	salons map[string]map[string]model.StaffResource
}

func NewMemoryDirectory(seed ...model.StaffResource) *MemoryDirectory {
	d := &MemoryDirectory{salons: map[string]map[string]model.StaffResource{}}
	for _, s := range seed {
		_ = d.Upsert(context.Background(), s)
	}
	return d
}

func (d *MemoryDirectory) List(_ context.Context, salonID string) ([]model.StaffResource, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]model.StaffResource, 0, len(d.salons[salonID]))
	for _, s := range d.salons[salonID] {
		out = append(out, s)
	}
	sortByName(out)
	return out, nil
}

func (d *MemoryDirectory) Get(_ context.Context, salonID, id string) (model.StaffResource, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, ok := d.salons[salonID][id]
	if !ok {
		return model.StaffResource{}, ErrNotFound
	}
	return s, nil
}

func (d *MemoryDirectory) Upsert(_ context.Context, s model.StaffResource) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	salon := d.salons[s.SalonID]
	if salon == nil {
		salon = map[string]model.StaffResource{}
		d.salons[s.SalonID] = salon
	}
	salon[s.ID] = s
	return nil
}

func (d *MemoryDirectory) SetVisible(_ context.Context, salonID, id string, visible bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.salons[salonID][id]
	if !ok {
		return ErrNotFound
	}
	s.VisibleInCalendar = visible
	d.salons[salonID][id] = s
	return nil
}

func sortByName(ss []model.StaffResource) {
	slices.SortFunc(ss, func(a, b model.StaffResource) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
