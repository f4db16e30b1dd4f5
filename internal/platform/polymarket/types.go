// Package polymarket contains the REST and WebSocket clients for the
// Polymarket CLOB, Gamma, and Builder APIs.
package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gameverse/tradecore/internal/domain"
)

// APIPriceLevel is one book rung on the wire. Prices and sizes are decimal
// strings.
type APIPriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// APIBook is the response of GET /book?token_id={id}. Bids arrive ascending
// (best last), asks descending (best last).
type APIBook struct {
	Market       string          `json:"market"`
	AssetID      string          `json:"asset_id"`
	Hash         string          `json:"hash"`
	Timestamp    string          `json:"timestamp"`
	Bids         []APIPriceLevel `json:"bids"`
	Asks         []APIPriceLevel `json:"asks"`
	MinOrderSize string          `json:"min_order_size"`
	TickSize     string          `json:"tick_size"`
	NegRisk      bool            `json:"neg_risk"`
}

// ToSnapshot converts the wire book to a domain snapshot, preserving the
// wire-level ordering of both sides.
func (b *APIBook) ToSnapshot() domain.OrderbookSnapshot {
	snap := domain.OrderbookSnapshot{
		TokenID:      b.AssetID,
		Market:       b.Market,
		Bids:         toLevels(b.Bids),
		Asks:         toLevels(b.Asks),
		MinOrderSize: parseDecimal(b.MinOrderSize),
		TickSize:     parseDecimal(b.TickSize),
		NegRisk:      b.NegRisk,
		Timestamp:    time.Now(),
	}
	// Wire timestamps are epoch millis.
	if ms, err := strconv.ParseInt(b.Timestamp, 10, 64); err == nil && ms > 0 {
		snap.Timestamp = time.UnixMilli(ms)
	}
	return snap
}

// APIOrderResult is the response from placing an order.
type APIOrderResult struct {
	Success     bool   `json:"success"`
	ErrorMsg    string `json:"errorMsg,omitempty"`
	OrderID     string `json:"orderID,omitempty"`
	Status      string `json:"status,omitempty"`
	TransactIDs []any  `json:"transactionsHashes,omitempty"`
}

// ToDomain converts the wire result to a domain.OrderResult.
func (r *APIOrderResult) ToDomain() domain.OrderResult {
	out := domain.OrderResult{
		Success: r.Success,
		OrderID: r.OrderID,
		Message: r.ErrorMsg,
	}
	switch r.Status {
	case "live":
		out.Status = domain.OrderStatusLive
	case "matched":
		out.Status = domain.OrderStatusMatched
	case "delayed", "unmatched":
		out.Status = domain.OrderStatusPending
	default:
		if r.Success {
			out.Status = domain.OrderStatusPending
		} else {
			out.Status = domain.OrderStatusFailed
		}
	}
	return out
}

// APIMarket is the slice of the Gamma market response the trading flow needs.
type APIMarket struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	ConditionID   string   `json:"conditionId"`
	Slug          string   `json:"slug"`
	NegRisk       bool     `json:"negRisk"`
	Outcomes      string   `json:"outcomes"`      // JSON-encoded, e.g. "[\"Yes\",\"No\"]"
	OutcomePrices string   `json:"outcomePrices"` // JSON-encoded, e.g. "[\"0.5\",\"0.5\"]"
	ClobTokenIDs  string   `json:"clobTokenIds"`  // JSON-encoded list of token IDs
	GameStartTime string   `json:"gameStartTime"`
	Active        flexBool `json:"active"`
	Closed        bool     `json:"closed"`
}

// TokenIDs decodes the JSON-encoded CLOB token ID list.
func (m *APIMarket) TokenIDs() []string {
	var ids []string
	_ = json.Unmarshal([]byte(m.ClobTokenIDs), &ids)
	return ids
}

// OutcomeNames decodes the JSON-encoded outcome list.
func (m *APIMarket) OutcomeNames() []string {
	var names []string
	_ = json.Unmarshal([]byte(m.Outcomes), &names)
	return names
}

// ToDomain converts the API market record to the domain representation. An
// unparseable game start time is dropped, not an error.
func (m *APIMarket) ToDomain() domain.Market {
	var eventTime time.Time
	if m.GameStartTime != "" {
		if t, err := time.Parse(time.RFC3339, m.GameStartTime); err == nil {
			eventTime = t
		}
	}
	return domain.Market{
		ID:        m.ID,
		Question:  m.Question,
		Slug:      m.Slug,
		NegRisk:   m.NegRisk,
		Active:    bool(m.Active),
		Closed:    m.Closed,
		TokenIDs:  m.TokenIDs(),
		Outcomes:  m.OutcomeNames(),
		EventTime: eventTime,
	}
}

// flexBool unmarshals from JSON bool or string ("true"/"false"); the Gamma
// API sends either depending on endpoint.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// WSCommand is the JSON payload sent to subscribe/unsubscribe.
type WSCommand struct {
	Type    string   `json:"type"`
	Channel string   `json:"channel,omitempty"`
	Assets  []string `json:"assets_ids,omitempty"`
}

// WSBookMessage is a full orderbook snapshot delivered over WebSocket.
type WSBookMessage struct {
	EventType    string          `json:"event_type"`
	AssetID      string          `json:"asset_id"`
	Market       string          `json:"market"`
	Bids         []APIPriceLevel `json:"bids"`
	Asks         []APIPriceLevel `json:"asks"`
	MinOrderSize string          `json:"min_order_size"`
	TickSize     string          `json:"tick_size"`
	NegRisk      bool            `json:"neg_risk"`
	Timestamp    string          `json:"timestamp"`
	Hash         string          `json:"hash"`
}

// ToSnapshot converts a WS book frame to a domain snapshot.
func (m *WSBookMessage) ToSnapshot() domain.OrderbookSnapshot {
	b := APIBook{
		Market:       m.Market,
		AssetID:      m.AssetID,
		Timestamp:    m.Timestamp,
		Bids:         m.Bids,
		Asks:         m.Asks,
		MinOrderSize: m.MinOrderSize,
		TickSize:     m.TickSize,
		NegRisk:      m.NegRisk,
	}
	return b.ToSnapshot()
}

func toLevels(in []APIPriceLevel) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(in))
	for _, lvl := range in {
		out = append(out, domain.PriceLevel{
			Price: parseDecimal(lvl.Price),
			Size:  parseDecimal(lvl.Size),
		})
	}
	return out
}

func parseDecimal(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
