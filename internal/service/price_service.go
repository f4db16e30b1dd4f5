package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gameverse/tradecore/internal/book"
	"github.com/gameverse/tradecore/internal/domain"
)

// pollInterval is the fixed book refresh cadence while tokens are watched.
const pollInterval = 3 * time.Second

// BookFetcher reads the current book for a token over REST.
type BookFetcher interface {
	GetOrderBook(ctx context.Context, tokenID string) (domain.OrderbookSnapshot, error)
}

// PriceService polls the book for watched tokens on a fixed interval,
// replaces the cached snapshot wholesale, and answers quote requests by
// combining best-price extraction with fill simulation.
type PriceService struct {
	fetcher BookFetcher
	books   domain.OrderbookCache
	tokens  []string
	logger  *slog.Logger
}

// NewPriceService creates a PriceService polling the given tokens.
func NewPriceService(fetcher BookFetcher, books domain.OrderbookCache, tokens []string, logger *slog.Logger) *PriceService {
	return &PriceService{
		fetcher: fetcher,
		books:   books,
		tokens:  tokens,
		logger:  logger.With(slog.String("component", "price_service")),
	}
}

// Run polls until ctx is cancelled. Poll failures are logged and the stale
// snapshot stays cached; reads stay idempotent so no coordination with the
// feed is needed.
func (s *PriceService) Run(ctx context.Context) error {
	if len(s.tokens) == 0 {
		s.logger.Info("no tokens to poll, price service idle")
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	s.pollAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.pollAll(ctx)
		}
	}
}

func (s *PriceService) pollAll(ctx context.Context) {
	for _, tokenID := range s.tokens {
		snap, err := s.fetcher.GetOrderBook(ctx, tokenID)
		if err != nil {
			s.logger.Warn("book poll failed",
				slog.String("token_id", tokenID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := s.books.SetSnapshot(ctx, tokenID, snap); err != nil {
			s.logger.Warn("snapshot cache write failed",
				slog.String("token_id", tokenID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Quote returns the derived pricing view and, when amount > 0, the
// simulated market-buy execution for that notional. It reads the cached
// snapshot first and falls back to a direct fetch for unwatched tokens.
func (s *PriceService) Quote(ctx context.Context, tokenID string, amount float64) (domain.BookQuote, domain.MarketOrderSimulation, error) {
	snap, err := s.books.GetSnapshot(ctx, tokenID)
	if errors.Is(err, domain.ErrNotFound) {
		snap, err = s.fetcher.GetOrderBook(ctx, tokenID)
		if err == nil {
			if cacheErr := s.books.SetSnapshot(ctx, tokenID, snap); cacheErr != nil {
				s.logger.Warn("snapshot cache write failed", slog.String("error", cacheErr.Error()))
			}
		}
	}
	if err != nil {
		return domain.BookQuote{}, domain.MarketOrderSimulation{}, err
	}

	quote := book.ExtractBestPrices(snap)
	sim := book.SimulateMarketOrder(snap.Asks, amount)
	return quote, sim, nil
}
