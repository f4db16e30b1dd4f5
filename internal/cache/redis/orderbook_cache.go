package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gameverse/tradecore/internal/domain"
)

// snapshotTTL bounds how stale a cached book may get if both the poller and
// the feed stop writing.
const snapshotTTL = 30 * time.Second

// OrderbookCache implements domain.OrderbookCache. Snapshots are immutable
// and replaced wholesale, so each book is one JSON value under
// book:{tokenID} with a short TTL.
type OrderbookCache struct {
	rdb *redis.Client
}

// NewOrderbookCache creates an OrderbookCache backed by the given Client.
func NewOrderbookCache(c *Client) *OrderbookCache {
	return &OrderbookCache{rdb: c.Underlying()}
}

func bookKey(tokenID string) string { return "book:" + tokenID }

// SetSnapshot replaces the cached snapshot for a token.
func (oc *OrderbookCache) SetSnapshot(ctx context.Context, tokenID string, snap domain.OrderbookSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot %s: %w", tokenID, err)
	}
	if err := oc.rdb.Set(ctx, bookKey(tokenID), data, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("redis: set snapshot %s: %w", tokenID, err)
	}
	return nil
}

// GetSnapshot returns the cached snapshot, or domain.ErrNotFound when no
// fresh snapshot exists.
func (oc *OrderbookCache) GetSnapshot(ctx context.Context, tokenID string) (domain.OrderbookSnapshot, error) {
	data, err := oc.rdb.Get(ctx, bookKey(tokenID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.OrderbookSnapshot{}, fmt.Errorf("redis: snapshot %s: %w", tokenID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("redis: get snapshot %s: %w", tokenID, err)
	}

	var snap domain.OrderbookSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("redis: unmarshal snapshot %s: %w", tokenID, err)
	}
	return snap, nil
}
