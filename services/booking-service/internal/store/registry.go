package store

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

const defaultRegistrySize = 256

// Registry hands out one loaded Store per salon. Least recently used salons are
// evicted; their filters and selection are dropped and the records reload from
// the repository on the next access. Concurrent first accesses to one salon
// share a single load; loads of different salons run independently.
type Registry struct {
	repo Repository
	opts Options

	loads  singleflight.Group
	stores *lru.Cache[string, *Store]
}

func NewRegistry(repo Repository, size int, opts Options) (*Registry, error) {
	if size <= 0 {
		size = defaultRegistrySize
	}
	cache, err := lru.New[string, *Store](size)
	if err != nil {
		return nil, fmt.Errorf("create store cache: %w", err)
	}
	return &Registry{repo: repo, opts: opts, stores: cache}, nil
}

// For returns the salon's store, loading it on first use.
func (r *Registry) For(ctx context.Context, salonID string) (*Store, error) {
	salonID = strings.TrimSpace(salonID)
	if salonID == "" {
		return nil, invalid("salon_id", "is required")
	}
	if s, ok := r.stores.Get(salonID); ok {
		return s, nil
	}

	v, err, _ := r.loads.Do(salonID, func() (any, error) {
		if s, ok := r.stores.Get(salonID); ok {
			return s, nil
		}
		s := New(salonID, r.repo, r.opts)
		if err := s.Load(ctx); err != nil {
			return nil, err
		}
		r.stores.Add(salonID, s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Store), nil
}

func (r *Registry) Len() int {
	return r.stores.Len()
}
