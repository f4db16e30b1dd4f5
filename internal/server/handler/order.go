package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gameverse/tradecore/internal/domain"
	"github.com/gameverse/tradecore/internal/service"
)

// OrderHandler exposes order placement, cancellation, and history.
type OrderHandler struct {
	trades *service.TradeService
	orders domain.OrderStore // may be nil when postgres is disabled
}

// NewOrderHandler creates an OrderHandler.
func NewOrderHandler(trades *service.TradeService, orders domain.OrderStore) *OrderHandler {
	return &OrderHandler{trades: trades, orders: orders}
}

type placeOrderRequest struct {
	TokenID string  `json:"token_id"`
	Price   float64 `json:"price"`
	Size    float64 `json:"size"`
	Side    string  `json:"side"`
	NegRisk bool    `json:"neg_risk"`
}

// PlaceOrder handles POST /api/orders. Requests priced at or beyond the
// extreme band are submitted fill-or-kill; the rest good-till-cancelled.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var body placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	req := domain.OrderRequest{
		TokenID: body.TokenID,
		Price:   body.Price,
		Size:    body.Size,
		Side:    domain.OrderSide(strings.ToUpper(body.Side)),
		NegRisk: body.NegRisk,
	}

	orderID, err := h.trades.PlaceOrder(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"order_id": orderID,
		"type":     string(req.OrderTIF()),
	})
}

// CancelOrder handles DELETE /api/orders/{id}.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")
	if orderID == "" {
		writeBadRequest(w, "order id is required")
		return
	}

	if err := h.trades.CancelOrder(r.Context(), orderID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"order_id": orderID, "status": string(domain.OrderStatusCancelled)})
}

// ListOrders handles GET /api/orders?owner=...&limit=... and returns the
// most recent persisted orders for the owner.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	if h.orders == nil {
		writeJSON(w, http.StatusOK, map[string]any{"orders": []any{}})
		return
	}

	owner := r.URL.Query().Get("owner")
	if owner == "" {
		writeBadRequest(w, "owner is required")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = v
	}

	orders, err := h.orders.ListByOwner(r.Context(), owner, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(orders))
	for _, o := range orders {
		out = append(out, map[string]any{
			"client_id":  o.ClientID,
			"order_id":   o.ID,
			"token_id":   o.TokenID,
			"side":       string(o.Side),
			"type":       string(o.Type),
			"price":      o.Price,
			"size":       o.Size,
			"status":     string(o.Status),
			"created_at": o.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": out})
}
