package blocks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/salonhub/scheduling/services/booking-service/internal/model"
)

// RedisBlockStore keeps each salon's blocks in one hash keyed by block id, so
// blocks survive restarts and are shared by every replica.
type RedisBlockStore struct {
	rdb    redis.Cmdable
	prefix string
}

func NewRedisBlockStore(rdb redis.Cmdable, prefix string) *RedisBlockStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "blocks"
	}
	return &RedisBlockStore{rdb: rdb, prefix: prefix}
}

func (r *RedisBlockStore) key(salonID string) string {
	return r.prefix + ":" + salonID
}

func (r *RedisBlockStore) List(ctx context.Context, salonID string) ([]model.StaffBlockTime, error) {
	raw, err := r.rdb.HVals(ctx, r.key(salonID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	out := make([]model.StaffBlockTime, 0, len(raw))
	for _, v := range raw {
		var b model.StaffBlockTime
		if err := json.Unmarshal([]byte(v), &b); err != nil {
			return nil, fmt.Errorf("decode block: %w", err)
		}
		out = append(out, b)
	}
	sortBlocks(out)
	return out, nil
}

func (r *RedisBlockStore) Put(ctx context.Context, b model.StaffBlockTime) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode block: %w", err)
	}
	if err := r.rdb.HSet(ctx, r.key(b.SalonID), b.ID, data).Err(); err != nil {
		return fmt.Errorf("save block: %w", err)
	}
	return nil
}

func (r *RedisBlockStore) Delete(ctx context.Context, salonID, id string) error {
	if err := r.rdb.HDel(ctx, r.key(salonID), id).Err(); err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	return nil
}
