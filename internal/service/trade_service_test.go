package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gameverse/tradecore/internal/chain"
	"github.com/gameverse/tradecore/internal/crypto"
	"github.com/gameverse/tradecore/internal/domain"
	"github.com/gameverse/tradecore/internal/session"
)

const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

type capturingClient struct {
	payload   crypto.OrderPayload
	signature string
	tif       domain.OrderType
	result    domain.OrderResult
	err       error
	cancelled []string
}

func (c *capturingClient) PostOrder(_ context.Context, payload crypto.OrderPayload, signature string, tif domain.OrderType) (domain.OrderResult, error) {
	c.payload = payload
	c.signature = signature
	c.tif = tif
	if c.err != nil {
		return domain.OrderResult{}, c.err
	}
	return c.result, nil
}

func (c *capturingClient) CancelOrder(_ context.Context, orderID string) error {
	c.cancelled = append(c.cancelled, orderID)
	return c.err
}

type fakeSession struct {
	client  session.TradingClient
	err     error
	maker   common.Address
	sigType int
}

func (f *fakeSession) Client() (session.TradingClient, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.client, nil
}

func (f *fakeSession) TradingAddress() common.Address { return f.maker }
func (f *fakeSession) SignatureType() int             { return f.sigType }

type fakeMarkets struct {
	market domain.Market
	err    error
}

func (f *fakeMarkets) MarketByToken(context.Context, string) (domain.Market, error) {
	if f.err != nil {
		return domain.Market{}, f.err
	}
	return f.market, nil
}

type capturingOrderStore struct {
	created []domain.Order
}

func (c *capturingOrderStore) Create(_ context.Context, o domain.Order) error {
	c.created = append(c.created, o)
	return nil
}

func (c *capturingOrderStore) UpdateStatus(context.Context, string, domain.OrderStatus, string) error {
	return nil
}

func (c *capturingOrderStore) GetByClientID(context.Context, string) (domain.Order, error) {
	return domain.Order{}, domain.ErrNotFound
}

func (c *capturingOrderStore) ListByOwner(context.Context, string, int) ([]domain.Order, error) {
	return nil, nil
}

func (c *capturingOrderStore) ListBefore(context.Context, time.Time) ([]domain.Order, error) {
	return nil, nil
}

func (c *capturingOrderStore) DeleteBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type tradeFixtureOpts struct {
	markets domain.MarketSource
	orders  domain.OrderStore
}

func newTradeFixtureWith(t *testing.T, opts tradeFixtureOpts) (*TradeService, *capturingClient, *fakeSession) {
	t.Helper()

	signer, err := crypto.NewSigner(testKey, 137)
	require.NoError(t, err)

	client := &capturingClient{result: domain.OrderResult{Success: true, OrderID: "ox-1", Status: domain.OrderStatusLive}}
	sess := &fakeSession{client: client, maker: signer.Address(), sigType: crypto.SigTypeEOA}

	svc := NewTradeService(sess, signer, chain.PolygonMainnet(), opts.markets, opts.orders, nil, nil, nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	return svc, client, sess
}

func newTradeFixture(t *testing.T) (*TradeService, *capturingClient, *fakeSession) {
	return newTradeFixtureWith(t, tradeFixtureOpts{})
}

func TestPlaceOrderClassification(t *testing.T) {
	tests := []struct {
		name    string
		price   float64
		wantTIF domain.OrderType
	}{
		{"extreme high price is a market order", 0.99, domain.OrderTypeFOK},
		{"extreme low price is a market order", 0.01, domain.OrderTypeFOK},
		{"mid price is a limit order", 0.5, domain.OrderTypeGTC},
		{"just inside the band stays limit", 0.98, domain.OrderTypeGTC},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, client, _ := newTradeFixture(t)

			orderID, err := svc.PlaceOrder(context.Background(), domain.OrderRequest{
				TokenID: "tok-1",
				Price:   tt.price,
				Size:    10,
				Side:    domain.OrderSideBuy,
			})
			require.NoError(t, err)
			assert.Equal(t, "ox-1", orderID)
			assert.Equal(t, tt.wantTIF, client.tif)
			assert.Empty(t, svc.LastError())
		})
	}
}

func TestPlaceOrderAmounts(t *testing.T) {
	t.Run("buy spends collateral", func(t *testing.T) {
		svc, client, _ := newTradeFixture(t)

		_, err := svc.PlaceOrder(context.Background(), domain.OrderRequest{
			TokenID: "tok-1", Price: 0.5, Size: 50, Side: domain.OrderSideBuy,
		})
		require.NoError(t, err)

		assert.Equal(t, "25000000", client.payload.MakerAmount, "0.5 * 50 in base units")
		assert.Equal(t, "50000000", client.payload.TakerAmount)
		assert.Equal(t, 0, client.payload.Side)
		assert.NotEmpty(t, client.signature)
	})

	t.Run("sell offers tokens", func(t *testing.T) {
		svc, client, _ := newTradeFixture(t)

		_, err := svc.PlaceOrder(context.Background(), domain.OrderRequest{
			TokenID: "tok-1", Price: 0.4, Size: 10, Side: domain.OrderSideSell,
		})
		require.NoError(t, err)

		assert.Equal(t, "10000000", client.payload.MakerAmount)
		assert.Equal(t, "4000000", client.payload.TakerAmount)
		assert.Equal(t, 1, client.payload.Side)
	})
}

func TestPlaceOrderSessionNotReady(t *testing.T) {
	svc, _, sess := newTradeFixture(t)
	sess.err = domain.ErrSessionNotReady

	orderID, err := svc.PlaceOrder(context.Background(), domain.OrderRequest{
		TokenID: "tok-1", Price: 0.5, Size: 10, Side: domain.OrderSideBuy,
	})
	require.ErrorIs(t, err, domain.ErrSessionNotReady)
	assert.Empty(t, orderID)
	assert.NotEmpty(t, svc.LastError(), "failure surfaces via the error-state field")
}

func TestPlaceOrderValidation(t *testing.T) {
	svc, _, _ := newTradeFixture(t)
	ctx := context.Background()

	_, err := svc.PlaceOrder(ctx, domain.OrderRequest{Price: 0.5, Size: 10, Side: domain.OrderSideBuy})
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)

	_, err = svc.PlaceOrder(ctx, domain.OrderRequest{TokenID: "t", Price: 0.5, Size: 0, Side: domain.OrderSideBuy})
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)

	_, err = svc.PlaceOrder(ctx, domain.OrderRequest{TokenID: "t", Price: 1.5, Size: 1, Side: domain.OrderSideBuy})
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)
}

func TestPlaceOrderClearsErrorState(t *testing.T) {
	svc, _, sess := newTradeFixture(t)
	ctx := context.Background()

	sess.err = domain.ErrSessionNotReady
	_, err := svc.PlaceOrder(ctx, domain.OrderRequest{TokenID: "t", Price: 0.5, Size: 1, Side: domain.OrderSideBuy})
	require.Error(t, err)
	require.NotEmpty(t, svc.LastError())

	sess.err = nil
	_, err = svc.PlaceOrder(ctx, domain.OrderRequest{TokenID: "t", Price: 0.5, Size: 1, Side: domain.OrderSideBuy})
	require.NoError(t, err)
	assert.Empty(t, svc.LastError(), "next attempt overwrites the error message")
}

func TestCancelOrder(t *testing.T) {
	svc, client, _ := newTradeFixture(t)

	require.NoError(t, svc.CancelOrder(context.Background(), "ox-9"))
	assert.Equal(t, []string{"ox-9"}, client.cancelled)
}

func TestPlaceOrderResolvesNegRiskFromMetadata(t *testing.T) {
	store := &capturingOrderStore{}
	markets := &fakeMarkets{market: domain.Market{
		ID:       "mkt-1",
		Question: "Will it settle?",
		NegRisk:  true,
		Active:   true,
		TokenIDs: []string{"tok-1", "tok-2"},
		Outcomes: []string{"Yes", "No"},
	}}
	svc, client, _ := newTradeFixtureWith(t, tradeFixtureOpts{markets: markets, orders: store})

	// The request claims a plain market; the metadata wins.
	_, err := svc.PlaceOrder(context.Background(), domain.OrderRequest{
		TokenID: "tok-1", Price: 0.5, Size: 10, Side: domain.OrderSideBuy, NegRisk: false,
	})
	require.NoError(t, err)

	require.Len(t, store.created, 1)
	assert.True(t, store.created[0].NegRisk, "persisted order carries the resolved flag")
	assert.NotEmpty(t, client.signature)
}

func TestPlaceOrderNegRiskAffectsSignature(t *testing.T) {
	place := func(markets domain.MarketSource) string {
		svc, client, _ := newTradeFixtureWith(t, tradeFixtureOpts{markets: markets})
		_, err := svc.PlaceOrder(context.Background(), domain.OrderRequest{
			TokenID: "tok-1", Price: 0.5, Size: 10, Side: domain.OrderSideBuy,
		})
		require.NoError(t, err)
		return client.signature
	}

	market := domain.Market{
		ID: "mkt-1", Active: true,
		TokenIDs: []string{"tok-1"}, Outcomes: []string{"Yes"},
	}
	plain := place(&fakeMarkets{market: market})

	market.NegRisk = true
	negRisk := place(&fakeMarkets{market: market})

	// The salt is random, so equal signatures would only occur if both the
	// salt and the verifying contract matched; a differing contract is
	// enough for this check.
	assert.NotEqual(t, plain, negRisk, "neg-risk orders sign against the neg-risk exchange")
}

func TestPlaceOrderRejectsClosedMarket(t *testing.T) {
	tests := []struct {
		name   string
		market domain.Market
	}{
		{"closed market", domain.Market{ID: "mkt-1", Active: true, Closed: true}},
		{"inactive market", domain.Market{ID: "mkt-1", Active: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTradeFixtureWith(t, tradeFixtureOpts{markets: &fakeMarkets{market: tt.market}})

			_, err := svc.PlaceOrder(context.Background(), domain.OrderRequest{
				TokenID: "tok-1", Price: 0.5, Size: 10, Side: domain.OrderSideBuy,
			})
			assert.ErrorIs(t, err, domain.ErrInvalidOrder)
		})
	}
}

func TestPlaceOrderRejectsUnlistedToken(t *testing.T) {
	markets := &fakeMarkets{market: domain.Market{
		ID: "mkt-1", Active: true,
		TokenIDs: []string{"tok-other"}, Outcomes: []string{"Yes"},
	}}
	svc, _, _ := newTradeFixtureWith(t, tradeFixtureOpts{markets: markets})

	_, err := svc.PlaceOrder(context.Background(), domain.OrderRequest{
		TokenID: "tok-1", Price: 0.5, Size: 10, Side: domain.OrderSideBuy,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidOrder, "token not listed by its market")
}

func TestPlaceOrderMetadataUnavailableFallsBack(t *testing.T) {
	store := &capturingOrderStore{}
	markets := &fakeMarkets{err: errors.New("gamma timeout")}
	svc, _, _ := newTradeFixtureWith(t, tradeFixtureOpts{markets: markets, orders: store})

	_, err := svc.PlaceOrder(context.Background(), domain.OrderRequest{
		TokenID: "tok-1", Price: 0.5, Size: 10, Side: domain.OrderSideBuy, NegRisk: true,
	})
	require.NoError(t, err, "a metadata outage does not block trading")

	require.Len(t, store.created, 1)
	assert.True(t, store.created[0].NegRisk, "request flag kept as fallback")
}
