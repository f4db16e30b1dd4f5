package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/gameverse/tradecore/internal/domain"
)

// HMACAuth signs authenticated CLOB (L2) and Builder requests with derived
// API credentials.
type HMACAuth struct {
	creds domain.APICredentials
}

// NewHMACAuth wraps a set of derived API credentials.
func NewHMACAuth(creds domain.APICredentials) *HMACAuth {
	return &HMACAuth{creds: creds}
}

// APIKey returns the credential key, used as the "owner" field in order
// submissions.
func (h *HMACAuth) APIKey() string {
	return h.creds.Key
}

// L2Headers returns the HTTP headers for an authenticated CLOB request:
// POLY_ADDRESS, POLY_API_KEY, POLY_TIMESTAMP, POLY_PASSPHRASE,
// POLY_SIGNATURE. The secret is base64url-decoded before keying the HMAC.
func (h *HMACAuth) L2Headers(address, method, path, body string) map[string]string {
	return h.L2HeadersAt(address, method, path, body, time.Now().Unix())
}

// L2HeadersAt is L2Headers with a caller-supplied Unix timestamp, for
// deterministic tests.
func (h *HMACAuth) L2HeadersAt(address, method, path, body string, unixTS int64) map[string]string {
	ts := strconv.FormatInt(unixTS, 10)

	key, err := base64.URLEncoding.DecodeString(h.creds.Secret)
	if err != nil {
		// Fall back to the raw secret so the server rejects the signature
		// instead of this client panicking.
		key = []byte(h.creds.Secret)
	}

	sig := signHMAC(key, ts+method+path+body)

	return map[string]string{
		"POLY_ADDRESS":    address,
		"POLY_API_KEY":    h.creds.Key,
		"POLY_TIMESTAMP":  ts,
		"POLY_PASSPHRASE": h.creds.Passphrase,
		"POLY_SIGNATURE":  sig,
	}
}

// BuilderHeaders returns the POLY_BUILDER_* headers for a Builder API
// request. The builder secret keys the HMAC raw, unlike L2.
func (h *HMACAuth) BuilderHeaders(method, path, body string) map[string]string {
	return h.BuilderHeadersAt(method, path, body, time.Now().Unix())
}

// BuilderHeadersAt is BuilderHeaders with a caller-supplied Unix timestamp.
func (h *HMACAuth) BuilderHeadersAt(method, path, body string, unixTS int64) map[string]string {
	ts := strconv.FormatInt(unixTS, 10)
	sig := signHMAC([]byte(h.creds.Secret), ts+method+path+body)

	return map[string]string{
		"POLY_BUILDER_API_KEY":    h.creds.Key,
		"POLY_BUILDER_TIMESTAMP":  ts,
		"POLY_BUILDER_PASSPHRASE": h.creds.Passphrase,
		"POLY_BUILDER_SIGNATURE":  sig,
	}
}

// String returns a redacted representation suitable for logging.
func (h *HMACAuth) String() string {
	redact := func(s string) string {
		if len(s) <= 4 {
			return "****"
		}
		return s[:4] + "****"
	}
	return fmt.Sprintf("HMACAuth{key=%s, secret=%s}", redact(h.creds.Key), redact(h.creds.Secret))
}

// signHMAC computes HMAC-SHA256 over message and returns it base64url
// encoded, the encoding the CLOB expects.
func signHMAC(key []byte, message string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}
