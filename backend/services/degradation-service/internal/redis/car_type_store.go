package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CarTypeEntry is the cached mapping of one vehicle.
type CarTypeEntry struct {
	CarID   string `json:"car_id"`
	CarType string `json:"car_type"`
}

// Store caches car-type lookups.
type Store struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewStore returns redis-backed store.
func NewStore(client redis.Cmdable, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Key returns the cache key of carID.
func Key(carID string) string {
	return fmt.Sprintf("cartypes:%s", carID)
}

// GetMany returns the cached car types of ids. Misses are absent from the map.
func (s *Store) GetMany(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = Key(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var entry CarTypeEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		out[entry.CarID] = entry.CarType
	}
	return out, nil
}

// SetMany caches every mapping in one pipeline.
func (s *Store) SetMany(ctx context.Context, types map[string]string) error {
	if len(types) == 0 {
		return nil
	}
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for id, carType := range types {
			data, err := json.Marshal(CarTypeEntry{CarID: id, CarType: carType})
			if err != nil {
				return err
			}
			pipe.Set(ctx, Key(id), data, s.ttl)
		}
		return nil
	})
	return err
}
