// Package inbox deduplicates consumed events by event id.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/salonhub/scheduling/libs/db"
)

// Recorder reports true the first time an event id is seen.
type Recorder interface {
	Record(ctx context.Context, eventID, eventType string) (bool, error)
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Record(ctx context.Context, eventID string, eventType string) (bool, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO inbox_events (event_id, event_type)
		VALUES ($1, $2)
	`, eventID, eventType)
	if err == nil {
		return true, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return false, nil
	}
	return false, err
}

// Memory remembers the most recent event ids; used when no database is configured.
type Memory struct {
	mu   sync.Mutex
	seen *lru.Cache[string, string]
}

func NewMemory(size int) (*Memory, error) {
	if size <= 0 {
		size = 10000
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("create inbox cache: %w", err)
	}
	return &Memory{seen: cache}, nil
}

func (m *Memory) Record(_ context.Context, eventID, eventType string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen.Contains(eventID) {
		return false, nil
	}
	m.seen.Add(eventID, eventType)
	return true, nil
}
