package blocks

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/salonhub/scheduling/services/booking-service/internal/model"
)

// BlockStore persists blocks per salon. Delete of an absent id is not an error.
type BlockStore interface {
	List(ctx context.Context, salonID string) ([]model.StaffBlockTime, error)
	Put(ctx context.Context, b model.StaffBlockTime) error
	Delete(ctx context.Context, salonID, id string) error
}

// MemoryBlockStore keeps blocks for the life of the process only.
type MemoryBlockStore struct {
	mu     sync.RWMutex
	salons map[string]map[string]model.StaffBlockTime
}

func NewMemoryBlockStore() *MemoryBlockStore {
	return &MemoryBlockStore{salons: map[string]map[string]model.StaffBlockTime{}}
}

func (m *MemoryBlockStore) List(_ context.Context, salonID string) ([]model.StaffBlockTime, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.StaffBlockTime, 0, len(m.salons[salonID]))
	for _, b := range m.salons[salonID] {
		out = append(out, b)
	}
	sortBlocks(out)
	return out, nil
}

func (m *MemoryBlockStore) Put(_ context.Context, b model.StaffBlockTime) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	salon := m.salons[b.SalonID]
	if salon == nil {
		salon = map[string]model.StaffBlockTime{}
		m.salons[b.SalonID] = salon
	}
	salon[b.ID] = b
	return nil
}

func (m *MemoryBlockStore) Delete(_ context.Context, salonID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.salons[salonID], id)
	return nil
}

func sortBlocks(bs []model.StaffBlockTime) {
	slices.SortFunc(bs, func(a, b model.StaffBlockTime) int {
		if c := strings.Compare(a.StartDate, b.StartDate); c != 0 {
			return c
		}
		if c := strings.Compare(a.StartTime, b.StartTime); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
