package domain

import "time"

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType indicates the time-in-force policy.
type OrderType string

const (
	OrderTypeGTC OrderType = "GTC" // Good-Till-Cancelled
	OrderTypeFOK OrderType = "FOK" // Fill-Or-Kill
)

// OrderStatus tracks the order lifecycle.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusLive      OrderStatus = "live"
	OrderStatusMatched   OrderStatus = "matched"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusFailed    OrderStatus = "failed"
)

// OrderRequest is what the trading surface asks for: an outcome token, a
// price, a size, and a side. Prices at or beyond the extremes (<=0.01 or
// >=0.99) are classified as market orders and submitted fill-or-kill;
// everything else is a good-till-cancelled limit order.
type OrderRequest struct {
	TokenID string
	Price   float64
	Size    float64
	Side    OrderSide
	NegRisk bool
}

// IsMarket reports whether the request price classifies as a market order.
func (r OrderRequest) IsMarket() bool {
	return r.Price <= 0.01 || r.Price >= 0.99
}

// OrderTIF returns the time-in-force implied by the classification.
func (r OrderRequest) OrderTIF() OrderType {
	if r.IsMarket() {
		return OrderTypeFOK
	}
	return OrderTypeGTC
}

// Order is a signed, submitted (or submittable) CLOB order.
type Order struct {
	ID          string
	ClientID    string // uuid assigned before submission
	TokenID     string
	Owner       string // owner (funder) address
	Maker       string // trading address used for settlement
	Side        OrderSide
	Type        OrderType
	Price       float64
	Size        float64
	MakerAmount string // base-unit notional, decimal string
	TakerAmount string // base-unit quantity, decimal string
	NegRisk     bool
	Status      OrderStatus
	Signature   string // EIP-712 hex
	CreatedAt   time.Time
	CancelledAt *time.Time
}

// OrderResult wraps the CLOB response after order submission.
type OrderResult struct {
	Success bool
	OrderID string
	Status  OrderStatus
	Message string
}
