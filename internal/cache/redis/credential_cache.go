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

// CredentialCache implements domain.CredentialCache. Credentials live under
// creds:{address} with no TTL; they stay valid server-side until rotated,
// and ending a session deletes them explicitly.
type CredentialCache struct {
	rdb *redis.Client
}

// NewCredentialCache creates a CredentialCache backed by the given Client.
func NewCredentialCache(c *Client) *CredentialCache {
	return &CredentialCache{rdb: c.Underlying()}
}

func credsKey(owner string) string { return "creds:" + strings.ToLower(owner) }

// Put stores credentials for an owner address, replacing any previous set.
func (cc *CredentialCache) Put(ctx context.Context, ownerAddress string, creds domain.APICredentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("redis: marshal credentials %s: %w", ownerAddress, err)
	}
	if err := cc.rdb.Set(ctx, credsKey(ownerAddress), data, 0).Err(); err != nil {
		return fmt.Errorf("redis: put credentials %s: %w", ownerAddress, err)
	}
	return nil
}

// Get returns cached credentials, or domain.ErrNotFound.
func (cc *CredentialCache) Get(ctx context.Context, ownerAddress string) (domain.APICredentials, error) {
	data, err := cc.rdb.Get(ctx, credsKey(ownerAddress)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.APICredentials{}, fmt.Errorf("redis: credentials %s: %w", ownerAddress, domain.ErrNotFound)
	}
	if err != nil {
		return domain.APICredentials{}, fmt.Errorf("redis: get credentials %s: %w", ownerAddress, err)
	}

	var creds domain.APICredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return domain.APICredentials{}, fmt.Errorf("redis: unmarshal credentials %s: %w", ownerAddress, err)
	}
	return creds, nil
}

// Delete removes cached credentials for an owner address.
func (cc *CredentialCache) Delete(ctx context.Context, ownerAddress string) error {
	if err := cc.rdb.Del(ctx, credsKey(ownerAddress)).Err(); err != nil {
		return fmt.Errorf("redis: delete credentials %s: %w", ownerAddress, err)
	}
	return nil
}
