package handler

import (
	"net/http"
	"strconv"

	"github.com/gameverse/tradecore/internal/service"
)

// QuoteHandler serves derived pricing for outcome tokens.
type QuoteHandler struct {
	prices *service.PriceService
}

// NewQuoteHandler creates a QuoteHandler backed by the price service.
func NewQuoteHandler(prices *service.PriceService) *QuoteHandler {
	return &QuoteHandler{prices: prices}
}

// GetQuote handles GET /api/quote?token_id=...&amount=... and returns the
// best prices plus a simulated market buy for the requested USDC amount.
// amount is optional; zero yields an empty simulation.
func (h *QuoteHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	tokenID := r.URL.Query().Get("token_id")
	if tokenID == "" {
		writeBadRequest(w, "token_id is required")
		return
	}

	var amount float64
	if raw := r.URL.Query().Get("amount"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			writeBadRequest(w, "amount must be a non-negative number")
			return
		}
		amount = v
	}

	quote, sim, err := h.prices.Quote(r.Context(), tokenID, amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token_id": tokenID,
		"quote": map[string]any{
			"best_bid":            quote.BestBid,
			"best_ask":            quote.BestAsk,
			"spread":              quote.Spread,
			"min_order_size":      quote.MinOrderSize,
			"tick_size":           quote.TickSize,
			"min_buy_amount":      quote.MinBuyAmount,
			"max_buy_amount":      quote.MaxBuyAmount,
			"total_ask_liquidity": quote.TotalAskLiquidity,
			"total_bid_liquidity": quote.TotalBidLiquidity,
		},
		"simulation": map[string]any{
			"amount":          amount,
			"shares":          sim.Shares,
			"avg_price":       sim.AvgPrice,
			"cost_used":       sim.CostUsed,
			"levels_consumed": sim.LevelsConsumed,
			"has_slippage":    sim.HasSlippage,
		},
	})
}
