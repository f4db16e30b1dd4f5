package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gameverse/tradecore/internal/crypto"
	"github.com/gameverse/tradecore/internal/domain"
)

// ClobClient is the REST client for the Polymarket CLOB API: orderbook
// reads, credential derivation, order placement and cancellation.
//
// A bare client (no credentials) can only read public endpoints. Attach
// derived credentials with WithCredentials to unlock the authenticated
// surface; attach a BuilderClient with WithBuilder to route builder-signed
// requests.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
	signer     *crypto.Signer
	auth       *crypto.HMACAuth
	builder    BuilderSigner
}

// NewClobClient creates a CLOB client. baseURL is the API root, e.g.
// "https://clob.polymarket.com". signer may be nil for read-only use.
func NewClobClient(baseURL string, signer *crypto.Signer) *ClobClient {
	return &ClobClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		signer: signer,
	}
}

// WithCredentials attaches derived API credentials for L2-authenticated
// requests and returns the client.
func (c *ClobClient) WithCredentials(creds domain.APICredentials) *ClobClient {
	c.auth = crypto.NewHMACAuth(creds)
	return c
}

// WithBuilder attaches a builder signer; every authenticated call is then
// countersigned with the builder program's POLY_BUILDER_* headers.
func (c *ClobClient) WithBuilder(b BuilderSigner) *ClobClient {
	c.builder = b
	return c
}

// Authenticated reports whether the client holds API credentials.
func (c *ClobClient) Authenticated() bool {
	return c.auth != nil
}

// GetOrderBook fetches the current book for an outcome token. Public, no
// authentication required.
func (c *ClobClient) GetOrderBook(ctx context.Context, tokenID string) (domain.OrderbookSnapshot, error) {
	path := "/book?token_id=" + url.QueryEscape(tokenID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("polymarket/clob: create book request: %w", err)
	}

	respBody, err := c.do(req)
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("polymarket/clob: get book %s: %w", tokenID, err)
	}

	var book APIBook
	if err := json.Unmarshal(respBody, &book); err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("polymarket/clob: decode book: %w", err)
	}

	return book.ToSnapshot(), nil
}

// DeriveAPIKey retrieves the server-side API credentials already tied to the
// signing key, if any exist.
func (c *ClobClient) DeriveAPIKey(ctx context.Context) (domain.APICredentials, error) {
	return c.authRequest(ctx, http.MethodGet, "/auth/derive-api-key")
}

// CreateAPIKey creates fresh API credentials for the signing key.
func (c *ClobClient) CreateAPIKey(ctx context.Context) (domain.APICredentials, error) {
	return c.authRequest(ctx, http.MethodPost, "/auth/api-key")
}

// DeriveOrCreateCredentials first attempts to retrieve existing credentials
// for the signing key, then falls back to creating new ones. Incomplete
// credentials from either path count as failure.
func (c *ClobClient) DeriveOrCreateCredentials(ctx context.Context) (domain.APICredentials, error) {
	creds, deriveErr := c.DeriveAPIKey(ctx)
	if deriveErr == nil && creds.Complete() {
		return creds, nil
	}

	creds, createErr := c.CreateAPIKey(ctx)
	if createErr == nil && creds.Complete() {
		return creds, nil
	}

	if createErr == nil {
		createErr = fmt.Errorf("incomplete credentials returned")
	}
	return domain.APICredentials{}, fmt.Errorf("polymarket/clob: %w: derive: %v, create: %v",
		domain.ErrCredentialDerivation, deriveErr, createErr)
}

// PostOrder submits a signed order with the given time-in-force and returns
// the parsed result. The order must carry its EIP-712 signature already.
func (c *ClobClient) PostOrder(ctx context.Context, payload crypto.OrderPayload, signature string, tif domain.OrderType) (domain.OrderResult, error) {
	if c.auth == nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket/clob: %w", domain.ErrUnauthorized)
	}

	body := map[string]any{
		"order": map[string]any{
			"salt":          payload.Salt,
			"maker":         payload.Maker,
			"signer":        payload.Signer,
			"taker":         payload.Taker,
			"tokenId":       payload.TokenID,
			"makerAmount":   payload.MakerAmount,
			"takerAmount":   payload.TakerAmount,
			"expiration":    payload.Expiration,
			"nonce":         payload.Nonce,
			"feeRateBps":    payload.FeeRateBps,
			"side":          sideName(payload.Side),
			"signatureType": payload.SignatureType,
			"signature":     signature,
		},
		"owner":     c.auth.APIKey(),
		"orderType": string(tif),
	}

	respBody, err := c.doAuthenticated(ctx, http.MethodPost, "/order", body)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket/clob: post order: %w", err)
	}

	var apiResult APIOrderResult
	if err := json.Unmarshal(respBody, &apiResult); err != nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket/clob: decode order result: %w", err)
	}

	result := apiResult.ToDomain()
	if !result.Success {
		return result, fmt.Errorf("polymarket/clob: order rejected: %s", result.Message)
	}
	return result, nil
}

// CancelOrder cancels a single open order by its exchange ID.
func (c *ClobClient) CancelOrder(ctx context.Context, orderID string) error {
	if c.auth == nil {
		return fmt.Errorf("polymarket/clob: %w", domain.ErrUnauthorized)
	}

	respBody, err := c.doAuthenticated(ctx, http.MethodDelete, "/order", map[string]any{"orderID": orderID})
	if err != nil {
		return fmt.Errorf("polymarket/clob: cancel order %s: %w", orderID, err)
	}

	var result struct {
		Success  bool   `json:"success"`
		ErrorMsg string `json:"errorMsg"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("polymarket/clob: decode cancel response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("polymarket/clob: cancel failed: %s", result.ErrorMsg)
	}
	return nil
}

// authRequest performs an L1-authenticated credential request: the signer
// signs the ClobAuth challenge and the signature travels in POLY_* headers.
func (c *ClobClient) authRequest(ctx context.Context, method, path string) (domain.APICredentials, error) {
	if c.signer == nil {
		return domain.APICredentials{}, fmt.Errorf("polymarket/clob: %w", domain.ErrNotConnected)
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	const nonce int64 = 0

	sig, err := c.signer.SignAuthChallenge(timestamp, nonce)
	if err != nil {
		return domain.APICredentials{}, fmt.Errorf("polymarket/clob: sign auth challenge: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return domain.APICredentials{}, fmt.Errorf("polymarket/clob: create auth request: %w", err)
	}
	req.Header.Set("POLY_ADDRESS", c.signer.Address().Hex())
	req.Header.Set("POLY_SIGNATURE", sig)
	req.Header.Set("POLY_TIMESTAMP", timestamp)
	req.Header.Set("POLY_NONCE", strconv.FormatInt(nonce, 10))

	respBody, err := c.do(req)
	if err != nil {
		return domain.APICredentials{}, fmt.Errorf("polymarket/clob: auth request: %w", err)
	}

	var creds domain.APICredentials
	if err := json.Unmarshal(respBody, &creds); err != nil {
		return domain.APICredentials{}, fmt.Errorf("polymarket/clob: decode credentials: %w", err)
	}
	return creds, nil
}

// doAuthenticated builds, signs (L2 HMAC + optional builder headers), sends,
// and reads an authenticated request. Returns the raw response body.
func (c *ClobClient) doAuthenticated(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyReader io.Reader
	var bodyStr string

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyStr = string(jsonBody)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range c.auth.L2Headers(c.signer.Address().Hex(), method, path, bodyStr) {
		req.Header.Set(k, v)
	}

	if c.builder != nil {
		builderHeaders, err := c.builder.SignRequest(ctx, method, path, bodyStr)
		if err != nil {
			return nil, fmt.Errorf("builder signature: %w", err)
		}
		for k, v := range builderHeaders {
			req.Header.Set(k, v)
		}
	}

	return c.do(req)
}

func (c *ClobClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// checkHTTPStatus maps non-2xx status codes to domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}

func sideName(side int) string {
	if side == 1 {
		return "SELL"
	}
	return "BUY"
}
