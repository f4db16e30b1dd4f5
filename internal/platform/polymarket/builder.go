package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gameverse/tradecore/internal/crypto"
	"github.com/gameverse/tradecore/internal/domain"
)

// BuilderSigner produces the POLY_BUILDER_* header set for one CLOB request.
// Two implementations exist: BuilderClient delegates to a remote gateway,
// LocalBuilderSigner signs with locally held builder credentials.
type BuilderSigner interface {
	SignRequest(ctx context.Context, method, path, body string) (map[string]string, error)
}

// BuilderClient calls the builder-signature gateway: a hosted function that
// countersigns CLOB requests with the builder program's key. The gateway
// accepts {method, path, body} and returns the POLY_BUILDER_* header set.
type BuilderClient struct {
	endpoint   string
	apiKey     string // gateway bearer token, not the builder key itself
	httpClient *http.Client
}

// NewBuilderClient creates a builder gateway client. apiKey authenticates
// against the gateway and may be empty when the gateway is open.
func NewBuilderClient(endpoint, apiKey string) *BuilderClient {
	return &BuilderClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type builderSignResponse struct {
	Signature  string `json:"POLY_BUILDER_SIGNATURE"`
	Timestamp  string `json:"POLY_BUILDER_TIMESTAMP"`
	APIKey     string `json:"POLY_BUILDER_API_KEY"`
	Passphrase string `json:"POLY_BUILDER_PASSPHRASE"`
}

// SignRequest asks the gateway to countersign one CLOB request and returns
// the headers to attach. A response without POLY_BUILDER_SIGNATURE is a hard
// failure.
func (b *BuilderClient) SignRequest(ctx context.Context, method, path, body string) (map[string]string, error) {
	payload, err := json.Marshal(map[string]string{
		"method": method,
		"path":   path,
		"body":   body,
	})
	if err != nil {
		return nil, fmt.Errorf("polymarket/builder: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("polymarket/builder: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("polymarket/builder: gateway request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("polymarket/builder: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("polymarket/builder: gateway HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var signed builderSignResponse
	if err := json.Unmarshal(respBody, &signed); err != nil {
		return nil, fmt.Errorf("polymarket/builder: decode response: %w", err)
	}
	if signed.Signature == "" {
		return nil, fmt.Errorf("polymarket/builder: gateway returned no POLY_BUILDER_SIGNATURE")
	}

	return map[string]string{
		"POLY_BUILDER_SIGNATURE":  signed.Signature,
		"POLY_BUILDER_TIMESTAMP":  signed.Timestamp,
		"POLY_BUILDER_API_KEY":    signed.APIKey,
		"POLY_BUILDER_PASSPHRASE": signed.Passphrase,
	}, nil
}

// LocalBuilderSigner signs builder headers with locally held builder
// credentials instead of calling a gateway.
type LocalBuilderSigner struct {
	auth *crypto.HMACAuth
}

// NewLocalBuilderSigner creates a LocalBuilderSigner from builder program
// credentials.
func NewLocalBuilderSigner(creds domain.APICredentials) *LocalBuilderSigner {
	return &LocalBuilderSigner{auth: crypto.NewHMACAuth(creds)}
}

// SignRequest returns the POLY_BUILDER_* headers for the request.
func (s *LocalBuilderSigner) SignRequest(_ context.Context, method, path, body string) (map[string]string, error) {
	return s.auth.BuilderHeaders(method, path, body), nil
}
