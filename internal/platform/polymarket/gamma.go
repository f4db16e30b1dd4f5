package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gameverse/tradecore/internal/domain"
)

// GammaClient reads market metadata from the Polymarket Gamma API. The
// trading flow uses it to resolve neg-risk flags and selection enrichment
// data per token.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGammaClient creates a Gamma metadata client. baseURL is the API root,
// e.g. "https://gamma-api.polymarket.com".
func NewGammaClient(baseURL string) *GammaClient {
	return &GammaClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// GetMarketByToken resolves the market that lists the given CLOB token.
func (g *GammaClient) GetMarketByToken(ctx context.Context, tokenID string) (APIMarket, error) {
	path := "/markets?clob_token_ids=" + url.QueryEscape(tokenID)

	body, err := g.doGet(ctx, path)
	if err != nil {
		return APIMarket{}, fmt.Errorf("polymarket/gamma: get market by token %s: %w", tokenID, err)
	}

	var markets []APIMarket
	if err := json.Unmarshal(body, &markets); err != nil {
		return APIMarket{}, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}
	if len(markets) == 0 {
		return APIMarket{}, fmt.Errorf("polymarket/gamma: token %s: %w", tokenID, domain.ErrNotFound)
	}

	return markets[0], nil
}

// NegRisk reports whether the market listing the token settles through the
// negative-risk exchange.
func (g *GammaClient) NegRisk(ctx context.Context, tokenID string) (bool, error) {
	market, err := g.GetMarketByToken(ctx, tokenID)
	if err != nil {
		return false, err
	}
	return market.NegRisk, nil
}

// MarketByToken implements domain.MarketSource.
func (g *GammaClient) MarketByToken(ctx context.Context, tokenID string) (domain.Market, error) {
	market, err := g.GetMarketByToken(ctx, tokenID)
	if err != nil {
		return domain.Market{}, err
	}
	return market.ToDomain(), nil
}

func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}
