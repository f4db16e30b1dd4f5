// Package service composes the trading core: order placement over a ready
// session, and book polling with quote computation.
package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/gameverse/tradecore/internal/chain"
	"github.com/gameverse/tradecore/internal/crypto"
	"github.com/gameverse/tradecore/internal/domain"
	"github.com/gameverse/tradecore/internal/selection"
	"github.com/gameverse/tradecore/internal/session"
)

// usdcDecimals converts display amounts to 6-decimal base units.
const usdcDecimals = 1e6

// orderRateLimit caps order submissions per owner per second.
const (
	orderRateLimit  = 10
	orderRateWindow = time.Second
)

// SessionSource exposes the slice of the session orchestrator the trade
// service needs.
type SessionSource interface {
	Client() (session.TradingClient, error)
	TradingAddress() common.Address
	SignatureType() int
}

// Notifier pushes operational alerts; may be nil.
type Notifier interface {
	Notify(ctx context.Context, title, message string)
}

// TradeService places and cancels orders through a ready trading session.
// Failures are both returned and recorded in an error-state field so the
// HTTP surface can render the last error inline.
type TradeService struct {
	sessions  SessionSource
	signer    *crypto.Signer
	contracts chain.ContractSet
	markets   domain.MarketSource
	orders    domain.OrderStore
	audit     domain.AuditStore
	limiter   domain.RateLimiter
	notifier  Notifier
	logger    *slog.Logger

	mu        sync.Mutex
	lastError string
}

// NewTradeService creates a TradeService. markets, orders, audit, limiter,
// and notifier may be nil; the corresponding side effects are skipped.
func NewTradeService(
	sessions SessionSource,
	signer *crypto.Signer,
	contracts chain.ContractSet,
	markets domain.MarketSource,
	orders domain.OrderStore,
	audit domain.AuditStore,
	limiter domain.RateLimiter,
	notifier Notifier,
	logger *slog.Logger,
) *TradeService {
	return &TradeService{
		sessions:  sessions,
		signer:    signer,
		contracts: contracts,
		markets:   markets,
		orders:    orders,
		audit:     audit,
		limiter:   limiter,
		notifier:  notifier,
		logger:    logger.With(slog.String("component", "trade_service")),
	}
}

// LastError returns the most recent placement/cancellation error message,
// empty when the last operation succeeded.
func (s *TradeService) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// PlaceOrder signs and submits an order. Market-classified requests (price
// at or beyond 0.01/0.99) go out fill-or-kill, the rest good-till-cancelled.
// On success it returns the exchange order ID; on failure it returns an
// empty ID and the error, which is also recorded in the error state.
func (s *TradeService) PlaceOrder(ctx context.Context, req domain.OrderRequest) (string, error) {
	result, err := s.placeOrder(ctx, req)
	s.setError(err)
	if err != nil {
		if s.notifier != nil {
			s.notifier.Notify(ctx, "order placement failed", err.Error())
		}
		return "", err
	}
	return result.OrderID, nil
}

func (s *TradeService) placeOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	if err := validateRequest(req); err != nil {
		return domain.OrderResult{}, err
	}

	client, err := s.sessions.Client()
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("trade_service: %w", err)
	}

	sel, err := s.resolveSelection(ctx, &req)
	if err != nil {
		return domain.OrderResult{}, err
	}

	owner := s.signer.Address()
	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, "orders:"+owner.Hex(), orderRateLimit, orderRateWindow)
		if err != nil {
			s.logger.Warn("rate limiter unavailable", slog.String("error", err.Error()))
		} else if !allowed {
			return domain.OrderResult{}, fmt.Errorf("trade_service: %w", domain.ErrRateLimited)
		}
	}

	payload, err := s.buildPayload(req)
	if err != nil {
		return domain.OrderResult{}, err
	}

	signature, err := s.signer.SignOrder(payload, s.verifyingContract(req.NegRisk))
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("trade_service: %w: %v", domain.ErrSigningFailed, err)
	}

	tif := req.OrderTIF()
	clientID := uuid.NewString()

	order := domain.Order{
		ClientID:    clientID,
		TokenID:     req.TokenID,
		Owner:       owner.Hex(),
		Maker:       payload.Maker,
		Side:        req.Side,
		Type:        tif,
		Price:       req.Price,
		Size:        req.Size,
		MakerAmount: payload.MakerAmount,
		TakerAmount: payload.TakerAmount,
		NegRisk:     req.NegRisk,
		Status:      domain.OrderStatusPending,
		Signature:   signature,
		CreatedAt:   time.Now(),
	}
	if s.orders != nil {
		if err := s.orders.Create(ctx, order); err != nil {
			s.logger.Warn("order persist failed", slog.String("error", err.Error()))
		}
	}

	result, err := client.PostOrder(ctx, payload, signature, tif)
	if err != nil {
		s.recordStatus(ctx, clientID, domain.OrderStatusFailed, "")
		s.appendAudit(ctx, owner.Hex(), "order.place", map[string]any{
			"client_id": clientID, "token_id": req.TokenID, "error": err.Error(),
		})
		return domain.OrderResult{}, err
	}

	s.recordStatus(ctx, clientID, result.Status, result.OrderID)
	detail := map[string]any{
		"client_id": clientID, "order_id": result.OrderID,
		"token_id": req.TokenID, "type": string(tif), "side": string(req.Side),
		"price": req.Price, "size": req.Size,
	}
	if sel.MarketID != "" {
		detail["market_id"] = sel.MarketID
		detail["question"] = sel.Question
		detail["outcome"] = sel.Outcome
	}
	s.appendAudit(ctx, owner.Hex(), "order.place", detail)

	s.logger.Info("order placed",
		slog.String("order_id", result.OrderID),
		slog.String("token_id", req.TokenID),
		slog.String("type", string(tif)),
		slog.Float64("price", req.Price),
		slog.Float64("size", req.Size),
	)
	return result, nil
}

// CancelOrder cancels an open order by its exchange ID.
func (s *TradeService) CancelOrder(ctx context.Context, orderID string) error {
	client, err := s.sessions.Client()
	if err != nil {
		err = fmt.Errorf("trade_service: %w", err)
		s.setError(err)
		return err
	}

	if err := client.CancelOrder(ctx, orderID); err != nil {
		s.setError(err)
		if s.notifier != nil {
			s.notifier.Notify(ctx, "order cancellation failed", err.Error())
		}
		return err
	}

	s.setError(nil)
	s.appendAudit(ctx, s.signer.Address().Hex(), "order.cancel", map[string]any{"order_id": orderID})
	return nil
}

// resolveSelection enriches the request from market metadata. The metadata
// neg-risk flag decides the settlement exchange, overriding the
// client-supplied flag; the request value is only kept as a fallback when no
// market source is wired or the lookup fails. Closed and inactive markets
// are rejected.
func (s *TradeService) resolveSelection(ctx context.Context, req *domain.OrderRequest) (domain.EnrichedSelection, error) {
	if s.markets == nil {
		return domain.EnrichedSelection{}, nil
	}

	market, err := s.markets.MarketByToken(ctx, req.TokenID)
	if err != nil {
		s.logger.Warn("market metadata unavailable, using request neg_risk",
			slog.String("token_id", req.TokenID),
			slog.String("error", err.Error()),
		)
		return domain.EnrichedSelection{}, nil
	}
	if market.Closed || !market.Active {
		return domain.EnrichedSelection{}, fmt.Errorf("trade_service: %w: market %s is not open for trading", domain.ErrInvalidOrder, market.ID)
	}

	negRisk := market.NegRisk
	sel, err := selection.Build(
		selection.ClientPayload{TokenID: req.TokenID, Price: req.Price},
		selection.MarketMetadata{
			MarketID:  market.ID,
			Question:  market.Question,
			Outcome:   market.OutcomeFor(req.TokenID),
			NegRisk:   &negRisk,
			EventTime: market.EventTime,
		},
	)
	if err != nil {
		// A market that does not list the token yields no outcome.
		return domain.EnrichedSelection{}, fmt.Errorf("trade_service: %w: %v", domain.ErrInvalidOrder, err)
	}

	req.NegRisk = sel.NegRisk
	return sel, nil
}

// buildPayload converts a request into the signable order struct. Buys
// spend collateral (maker = USDC notional, taker = outcome tokens); sells
// are the reverse. Amounts are 6-decimal base units.
func (s *TradeService) buildPayload(req domain.OrderRequest) (crypto.OrderPayload, error) {
	notional := toBaseUnits(req.Price * req.Size)
	quantity := toBaseUnits(req.Size)

	var makerAmount, takerAmount string
	var side int
	switch req.Side {
	case domain.OrderSideBuy:
		makerAmount, takerAmount, side = notional, quantity, 0
	case domain.OrderSideSell:
		makerAmount, takerAmount, side = quantity, notional, 1
	default:
		return crypto.OrderPayload{}, fmt.Errorf("trade_service: %w: side %q", domain.ErrInvalidOrder, req.Side)
	}

	salt, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return crypto.OrderPayload{}, fmt.Errorf("trade_service: generating salt: %w", err)
	}

	maker := s.sessions.TradingAddress()
	if (maker == common.Address{}) {
		maker = s.signer.Address()
	}

	return crypto.OrderPayload{
		Salt:          salt.String(),
		Maker:         maker.Hex(),
		Signer:        s.signer.Address().Hex(),
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenID:       req.TokenID,
		MakerAmount:   makerAmount,
		TakerAmount:   takerAmount,
		Expiration:    "0",
		Nonce:         "0",
		FeeRateBps:    "0",
		Side:          side,
		SignatureType: s.sessions.SignatureType(),
	}, nil
}

func (s *TradeService) verifyingContract(negRisk bool) common.Address {
	if negRisk {
		return s.contracts.NegRiskExchange
	}
	return s.contracts.Exchange
}

func (s *TradeService) recordStatus(ctx context.Context, clientID string, status domain.OrderStatus, exchangeID string) {
	if s.orders == nil {
		return
	}
	if err := s.orders.UpdateStatus(ctx, clientID, status, exchangeID); err != nil {
		s.logger.Warn("order status update failed",
			slog.String("client_id", clientID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *TradeService) appendAudit(ctx context.Context, actor, action string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(detail)
	rec := domain.AuditRecord{
		ID:        uuid.NewString(),
		Actor:     actor,
		Action:    action,
		Detail:    string(payload),
		CreatedAt: time.Now(),
	}
	if err := s.audit.Append(ctx, rec); err != nil {
		s.logger.Warn("audit append failed", slog.String("error", err.Error()))
	}
}

func (s *TradeService) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
	}
}

func validateRequest(req domain.OrderRequest) error {
	if req.TokenID == "" {
		return fmt.Errorf("trade_service: %w: token ID required", domain.ErrInvalidOrder)
	}
	if req.Size <= 0 {
		return fmt.Errorf("trade_service: %w: size must be positive", domain.ErrInvalidOrder)
	}
	if req.Price < 0 || req.Price > 1 {
		return fmt.Errorf("trade_service: %w: price %v out of range", domain.ErrInvalidOrder, req.Price)
	}
	return nil
}

// toBaseUnits converts a display amount to a 6-decimal base-unit string,
// rounding to the nearest unit.
func toBaseUnits(v float64) string {
	return strconv.FormatInt(int64(math.Round(v*usdcDecimals)), 10)
}
