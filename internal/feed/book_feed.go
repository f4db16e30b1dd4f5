// Package feed streams live orderbook snapshots from the CLOB WebSocket
// into the snapshot cache, complementing the REST poller.
package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/gameverse/tradecore/internal/domain"
	"github.com/gameverse/tradecore/internal/platform/polymarket"
)

const reconnectDelay = 2 * time.Second

// BookFeed subscribes to book snapshots for a set of tokens and replaces the
// cached snapshot on every frame. Reconnects with a fixed delay until the
// context is cancelled.
type BookFeed struct {
	wsURL    string
	tokenIDs []string
	cache    domain.OrderbookCache
	logger   *slog.Logger
}

// NewBookFeed creates a feed writing into the given snapshot cache.
func NewBookFeed(wsURL string, tokenIDs []string, cache domain.OrderbookCache, logger *slog.Logger) *BookFeed {
	return &BookFeed{
		wsURL:    wsURL,
		tokenIDs: tokenIDs,
		cache:    cache,
		logger:   logger.With(slog.String("component", "book_feed")),
	}
}

// Run connects and streams until ctx is cancelled.
func (f *BookFeed) Run(ctx context.Context) error {
	if len(f.tokenIDs) == 0 {
		f.logger.Info("no tokens to stream, feed idle")
		<-ctx.Done()
		return ctx.Err()
	}

	for {
		if err := f.runConnection(ctx); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn("book stream disconnected, reconnecting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (f *BookFeed) runConnection(ctx context.Context) error {
	client := polymarket.NewWSClient(f.wsURL, func(snap domain.OrderbookSnapshot) {
		if err := f.cache.SetSnapshot(context.Background(), snap.TokenID, snap); err != nil {
			f.logger.Warn("snapshot cache write failed",
				slog.String("token_id", snap.TokenID),
				slog.String("error", err.Error()),
			)
		}
	})
	defer client.Close()

	if err := client.Connect(ctx); err != nil {
		return err
	}
	if err := client.Subscribe(f.tokenIDs); err != nil {
		return err
	}
	f.logger.Info("book stream subscribed", slog.Int("tokens", len(f.tokenIDs)))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-client.Done():
		return nil
	}
}
