package polymarket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gameverse/tradecore/internal/book"
	"github.com/gameverse/tradecore/internal/domain"
)

const bookFixture = `{
	"market": "0xabc",
	"asset_id": "7131",
	"timestamp": "1724174400000",
	"bids": [
		{"price": "0.30", "size": "100"},
		{"price": "0.48", "size": "30"},
		{"price": "0.52", "size": "25"}
	],
	"asks": [
		{"price": "0.70", "size": "120"},
		{"price": "0.60", "size": "60"},
		{"price": "0.55", "size": "10"}
	],
	"min_order_size": "5",
	"tick_size": "0.01",
	"neg_risk": true
}`

func TestAPIBookToSnapshot(t *testing.T) {
	var wire APIBook
	require.NoError(t, json.Unmarshal([]byte(bookFixture), &wire))

	snap := wire.ToSnapshot()

	assert.Equal(t, "7131", snap.TokenID)
	assert.Equal(t, "0xabc", snap.Market)
	assert.Equal(t, 5.0, snap.MinOrderSize)
	assert.Equal(t, 0.01, snap.TickSize)
	assert.True(t, snap.NegRisk)
	assert.Equal(t, time.UnixMilli(1724174400000), snap.Timestamp)

	// Wire ordering is preserved: best bid and best ask are the LAST
	// element of each side.
	require.Len(t, snap.Bids, 3)
	require.Len(t, snap.Asks, 3)
	assert.Equal(t, domain.PriceLevel{Price: 0.52, Size: 25}, snap.Bids[2])
	assert.Equal(t, domain.PriceLevel{Price: 0.55, Size: 10}, snap.Asks[2])

	quote := book.ExtractBestPrices(snap)
	require.NotNil(t, quote.BestBid)
	require.NotNil(t, quote.BestAsk)
	assert.Equal(t, 0.52, *quote.BestBid)
	assert.Equal(t, 0.55, *quote.BestAsk)
}

func TestAPIOrderResultToDomain(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		status domain.OrderStatus
	}{
		{"live order", `{"success": true, "orderID": "ox-1", "status": "live"}`, domain.OrderStatusLive},
		{"matched order", `{"success": true, "orderID": "ox-2", "status": "matched"}`, domain.OrderStatusMatched},
		{"delayed order", `{"success": true, "orderID": "ox-3", "status": "delayed"}`, domain.OrderStatusPending},
		{"rejection", `{"success": false, "errorMsg": "not enough balance"}`, domain.OrderStatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var wire APIOrderResult
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &wire))

			out := wire.ToDomain()
			assert.Equal(t, tt.status, out.Status)
			assert.Equal(t, wire.Success, out.Success)
		})
	}
}

func TestAPIMarketDecoding(t *testing.T) {
	raw := `{
		"id": "91",
		"question": "Will it settle yes?",
		"negRisk": true,
		"outcomes": "[\"Yes\",\"No\"]",
		"clobTokenIds": "[\"111\",\"222\"]",
		"active": "true",
		"closed": false
	}`

	var m APIMarket
	require.NoError(t, json.Unmarshal([]byte(raw), &m))

	assert.Equal(t, []string{"111", "222"}, m.TokenIDs())
	assert.Equal(t, []string{"Yes", "No"}, m.OutcomeNames())
	assert.True(t, bool(m.Active), "string-typed active flag decodes")
	assert.True(t, m.NegRisk)

	market := m.ToDomain()
	assert.Equal(t, "91", market.ID)
	assert.True(t, market.NegRisk)
	assert.True(t, market.Active)
	assert.False(t, market.Closed)
	assert.Equal(t, "Yes", market.OutcomeFor("111"))
	assert.Equal(t, "No", market.OutcomeFor("222"))
	assert.Empty(t, market.OutcomeFor("999"), "unlisted token has no outcome")
}
