package domain

import "time"

// PriceLevel is a single price+size entry in an orderbook.
type PriceLevel struct {
	Price float64
	Size  float64
}

// OrderbookSnapshot is a full snapshot of bids and asks for an outcome token.
// Bids are ordered ascending (best bid last) and asks descending (best ask
// last), matching the CLOB wire format. Snapshots are immutable: each poll or
// feed message replaces the previous snapshot wholesale.
type OrderbookSnapshot struct {
	TokenID      string
	Market       string
	Bids         []PriceLevel
	Asks         []PriceLevel
	MinOrderSize float64
	TickSize     float64
	NegRisk      bool
	Timestamp    time.Time
}

// BookQuote is the derived pricing view of a snapshot. Nil pointer fields
// mean the corresponding side of the book is empty.
type BookQuote struct {
	BestBid           *float64
	BestAsk           *float64
	Spread            *float64
	MinOrderSize      float64
	TickSize          float64
	MinBuyAmount      float64
	MaxBuyAmount      float64
	TotalAskLiquidity float64
	TotalBidLiquidity float64
}

// MarketOrderSimulation reports the realized execution of a simulated
// fill-or-kill market buy against the visible ask ladder.
type MarketOrderSimulation struct {
	Shares         float64
	AvgPrice       float64
	LevelsConsumed int
	HasSlippage    bool
	CostUsed       float64
}
