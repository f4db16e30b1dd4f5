package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gameverse/tradecore/internal/domain"
)

func TestSimulateMarketOrderZeroInputs(t *testing.T) {
	asks := []domain.PriceLevel{{Price: 0.5, Size: 100}}

	tests := []struct {
		name   string
		asks   []domain.PriceLevel
		amount float64
	}{
		{"zero amount", asks, 0},
		{"negative amount", asks, -5},
		{"empty book", nil, 25},
		{"empty book zero amount", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SimulateMarketOrder(tt.asks, tt.amount)
			assert.Equal(t, domain.MarketOrderSimulation{}, got)
		})
	}
}

func TestSimulateMarketOrderSingleLevel(t *testing.T) {
	asks := []domain.PriceLevel{{Price: 0.5, Size: 100}}

	got := SimulateMarketOrder(asks, 25)

	assert.InDelta(t, 50, got.Shares, 1e-9)
	assert.InDelta(t, 0.5, got.AvgPrice, 1e-9)
	assert.Equal(t, 1, got.LevelsConsumed)
	assert.False(t, got.HasSlippage)
	assert.InDelta(t, 25, got.CostUsed, 1e-9)
}

func TestSimulateMarketOrderMultiLevel(t *testing.T) {
	// Delivered descending, as the CLOB does; the simulator must reorder.
	asks := []domain.PriceLevel{
		{Price: 0.5, Size: 100},
		{Price: 0.4, Size: 10},
	}

	t.Run("partial cheapest level only", func(t *testing.T) {
		got := SimulateMarketOrder(asks, 9)
		assert.InDelta(t, 22.5, got.Shares, 1e-9)
		assert.Equal(t, 1, got.LevelsConsumed)
		assert.False(t, got.HasSlippage)
		assert.InDelta(t, 9, got.CostUsed, 1e-9)
	})

	t.Run("spill into second level", func(t *testing.T) {
		// 10 spends level one exactly (10 * 0.4), 4 remaining buys 8 shares
		// at 0.5.
		got := SimulateMarketOrder(asks, 14)
		assert.InDelta(t, 18, got.Shares, 1e-9)
		assert.Equal(t, 2, got.LevelsConsumed)
		assert.True(t, got.HasSlippage)
		assert.InDelta(t, 14, got.CostUsed, 1e-9)
		assert.InDelta(t, 14.0/18.0, got.AvgPrice, 1e-9)
	})
}

func TestSimulateMarketOrderLiquidityExhausted(t *testing.T) {
	asks := []domain.PriceLevel{
		{Price: 0.4, Size: 10}, // 4.00 notional
		{Price: 0.5, Size: 20}, // 10.00 notional
	}

	got := SimulateMarketOrder(asks, 100)

	assert.InDelta(t, 30, got.Shares, 1e-9)
	assert.InDelta(t, 14, got.CostUsed, 1e-9)
	assert.Less(t, got.CostUsed, 100.0)
	assert.Equal(t, 2, got.LevelsConsumed)
	assert.True(t, got.HasSlippage)
	// Average reflects only the fillable portion.
	assert.InDelta(t, 14.0/30.0, got.AvgPrice, 1e-9)
}

func TestSimulateMarketOrderSkipsDegenerateLevels(t *testing.T) {
	asks := []domain.PriceLevel{
		{Price: 0, Size: 50},
		{Price: 0.5, Size: 0},
		{Price: 0.25, Size: 40},
	}

	got := SimulateMarketOrder(asks, 5)

	assert.InDelta(t, 20, got.Shares, 1e-9)
	assert.Equal(t, 1, got.LevelsConsumed)
	assert.False(t, got.HasSlippage)
}

func TestExtractBestPricesOrdering(t *testing.T) {
	// Asymmetric synthetic data: bids ascending (best last), asks descending
	// (best last). Reading from the wrong end produces detectably wrong
	// prices (0.10 / 0.90).
	snap := domain.OrderbookSnapshot{
		Bids: []domain.PriceLevel{
			{Price: 0.10, Size: 5},
			{Price: 0.30, Size: 5},
			{Price: 0.45, Size: 5},
		},
		Asks: []domain.PriceLevel{
			{Price: 0.90, Size: 5},
			{Price: 0.70, Size: 5},
			{Price: 0.55, Size: 5},
		},
		MinOrderSize: 5,
		TickSize:     0.01,
	}

	q := ExtractBestPrices(snap)

	require.NotNil(t, q.BestBid)
	require.NotNil(t, q.BestAsk)
	require.NotNil(t, q.Spread)
	assert.InDelta(t, 0.45, *q.BestBid, 1e-9)
	assert.InDelta(t, 0.55, *q.BestAsk, 1e-9)
	assert.InDelta(t, 0.10, *q.Spread, 1e-9)

	// Liquidity is price-weighted notional.
	assert.InDelta(t, 5*0.90+5*0.70+5*0.55, q.TotalAskLiquidity, 1e-9)
	assert.InDelta(t, 5*0.10+5*0.30+5*0.45, q.TotalBidLiquidity, 1e-9)
	assert.InDelta(t, q.TotalAskLiquidity, q.MaxBuyAmount, 1e-9)
	assert.InDelta(t, 5*0.55, q.MinBuyAmount, 1e-9)
}

func TestExtractBestPricesEmptySides(t *testing.T) {
	t.Run("empty book", func(t *testing.T) {
		q := ExtractBestPrices(domain.OrderbookSnapshot{MinOrderSize: 5})
		assert.Nil(t, q.BestBid)
		assert.Nil(t, q.BestAsk)
		assert.Nil(t, q.Spread)
		assert.Zero(t, q.MinBuyAmount)
		assert.Zero(t, q.MaxBuyAmount)
	})

	t.Run("asks only", func(t *testing.T) {
		q := ExtractBestPrices(domain.OrderbookSnapshot{
			Asks:         []domain.PriceLevel{{Price: 0.6, Size: 10}},
			MinOrderSize: 5,
		})
		assert.Nil(t, q.BestBid)
		require.NotNil(t, q.BestAsk)
		assert.Nil(t, q.Spread)
		assert.InDelta(t, 3.0, q.MinBuyAmount, 1e-9)
	})
}
