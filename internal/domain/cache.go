package domain

import (
	"context"
	"time"
)

// OrderbookCache stores the latest orderbook snapshot per token. Writes
// replace the previous snapshot wholesale.
type OrderbookCache interface {
	SetSnapshot(ctx context.Context, tokenID string, snap OrderbookSnapshot) error
	GetSnapshot(ctx context.Context, tokenID string) (OrderbookSnapshot, error)
}

// SessionCache is the durable keyed store for trading-session records.
// Expiry is checked by the reader, not enforced by the store.
type SessionCache interface {
	Put(ctx context.Context, session TradingSession) error
	Get(ctx context.Context, ownerAddress string) (TradingSession, error)
	Delete(ctx context.Context, ownerAddress string) error
}

// CredentialCache stores derived API credentials keyed by owner address.
type CredentialCache interface {
	Put(ctx context.Context, ownerAddress string, creds APICredentials) error
	Get(ctx context.Context, ownerAddress string) (APICredentials, error)
	Delete(ctx context.Context, ownerAddress string) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
