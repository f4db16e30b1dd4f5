package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/gameverse/tradecore/internal/domain"
)

// SessionCache implements domain.SessionCache. One record per owner address
// under session:{address}. No store-side TTL: the 7-day expiry is checked
// by the session loader so that stale records are observable rather than
// silently evicted.
type SessionCache struct {
	rdb *redis.Client
}

// NewSessionCache creates a SessionCache backed by the given Client.
func NewSessionCache(c *Client) *SessionCache {
	return &SessionCache{rdb: c.Underlying()}
}

func sessionKey(owner string) string { return "session:" + strings.ToLower(owner) }

// Put stores the session record keyed by its owner address, replacing any
// previous record for that owner.
func (sc *SessionCache) Put(ctx context.Context, session domain.TradingSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("redis: marshal session %s: %w", session.OwnerAddress, err)
	}
	if err := sc.rdb.Set(ctx, sessionKey(session.OwnerAddress), data, 0).Err(); err != nil {
		return fmt.Errorf("redis: put session %s: %w", session.OwnerAddress, err)
	}
	return nil
}

// Get returns the stored session for an owner, or domain.ErrNotFound.
func (sc *SessionCache) Get(ctx context.Context, ownerAddress string) (domain.TradingSession, error) {
	data, err := sc.rdb.Get(ctx, sessionKey(ownerAddress)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.TradingSession{}, fmt.Errorf("redis: session %s: %w", ownerAddress, domain.ErrNotFound)
	}
	if err != nil {
		return domain.TradingSession{}, fmt.Errorf("redis: get session %s: %w", ownerAddress, err)
	}

	var session domain.TradingSession
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.TradingSession{}, fmt.Errorf("redis: unmarshal session %s: %w", ownerAddress, err)
	}
	return session, nil
}

// Delete removes the stored session for an owner. Missing keys are not an
// error.
func (sc *SessionCache) Delete(ctx context.Context, ownerAddress string) error {
	if err := sc.rdb.Del(ctx, sessionKey(ownerAddress)).Err(); err != nil {
		return fmt.Errorf("redis: delete session %s: %w", ownerAddress, err)
	}
	return nil
}
