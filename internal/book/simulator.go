// Package book implements pure orderbook arithmetic: market-order fill
// simulation and best-price extraction over immutable snapshots.
package book

import (
	"sort"

	"github.com/gameverse/tradecore/internal/domain"
)

// SimulateMarketOrder simulates a fill-or-kill market buy of amountToSpend
// notional against the given ask ladder. Asks may arrive in any order (the
// CLOB delivers them descending); they are walked cheapest-first. The
// function never errors: non-positive amounts or an empty ladder yield the
// zero simulation.
func SimulateMarketOrder(asks []domain.PriceLevel, amountToSpend float64) domain.MarketOrderSimulation {
	if amountToSpend <= 0 || len(asks) == 0 {
		return domain.MarketOrderSimulation{}
	}

	// Walk cheapest first. Copy before sorting; snapshots are immutable.
	ladder := make([]domain.PriceLevel, len(asks))
	copy(ladder, asks)
	sort.Slice(ladder, func(i, j int) bool { return ladder[i].Price < ladder[j].Price })

	var (
		totalShares    float64
		levelsConsumed int
	)
	remaining := amountToSpend

	for _, lvl := range ladder {
		if remaining <= 0 {
			break
		}
		if lvl.Price <= 0 || lvl.Size <= 0 {
			continue
		}

		levelCost := lvl.Size * lvl.Price
		if remaining >= levelCost {
			totalShares += lvl.Size
			remaining -= levelCost
			levelsConsumed++
			continue
		}

		// Partial fill at this level exhausts the spend.
		totalShares += remaining / lvl.Price
		remaining = 0
		levelsConsumed++
		break
	}

	costUsed := amountToSpend - remaining

	var avgPrice float64
	if totalShares > 0 {
		avgPrice = costUsed / totalShares
	}

	return domain.MarketOrderSimulation{
		Shares:         totalShares,
		AvgPrice:       avgPrice,
		LevelsConsumed: levelsConsumed,
		HasSlippage:    levelsConsumed > 1,
		CostUsed:       costUsed,
	}
}

// ExtractBestPrices derives the quote view of a snapshot. The CLOB orders
// bids ascending (best bid last) and asks descending (best ask last); both
// best prices therefore come from the last element of their side.
func ExtractBestPrices(snap domain.OrderbookSnapshot) domain.BookQuote {
	q := domain.BookQuote{
		MinOrderSize: snap.MinOrderSize,
		TickSize:     snap.TickSize,
	}

	if n := len(snap.Bids); n > 0 {
		best := snap.Bids[n-1].Price
		q.BestBid = &best
	}
	if n := len(snap.Asks); n > 0 {
		best := snap.Asks[n-1].Price
		q.BestAsk = &best
	}
	if q.BestBid != nil && q.BestAsk != nil {
		spread := *q.BestAsk - *q.BestBid
		q.Spread = &spread
	}

	for _, lvl := range snap.Asks {
		q.TotalAskLiquidity += lvl.Size * lvl.Price
	}
	for _, lvl := range snap.Bids {
		q.TotalBidLiquidity += lvl.Size * lvl.Price
	}

	q.MaxBuyAmount = q.TotalAskLiquidity
	if q.BestAsk != nil {
		q.MinBuyAmount = snap.MinOrderSize * *q.BestAsk
	}

	return q
}
