package crypto

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gameverse/tradecore/internal/domain"
)

// Well-known anvil/hardhat dev key, never used with real funds.
const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
const testAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

func TestNewSignerDerivesAddress(t *testing.T) {
	s, err := NewSigner(testKey, 137)
	require.NoError(t, err)
	assert.Equal(t, testAddr, s.Address().Hex())
	assert.Equal(t, int64(137), s.ChainID())

	_, err = NewSigner("0x"+testKey, 137)
	assert.NoError(t, err, "0x prefix must be accepted")

	_, err = NewSigner("not-hex", 137)
	assert.Error(t, err)
}

func TestSignAuthChallenge(t *testing.T) {
	s, err := NewSigner(testKey, 137)
	require.NoError(t, err)

	sig, err := s.SignAuthChallenge("1700000000", 0)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sig, "0x"))
	assert.Len(t, sig, 2+65*2, "65-byte signature hex encoded")

	// secp256k1 signing is deterministic (RFC 6979): same challenge, same
	// signature.
	again, err := s.SignAuthChallenge("1700000000", 0)
	require.NoError(t, err)
	assert.Equal(t, sig, again)

	other, err := s.SignAuthChallenge("1700000001", 0)
	require.NoError(t, err)
	assert.NotEqual(t, sig, other)
}

func TestSignOrderDependsOnVerifyingContract(t *testing.T) {
	s, err := NewSigner(testKey, 137)
	require.NoError(t, err)

	payload := OrderPayload{
		Salt:          "12345",
		Maker:         testAddr,
		Signer:        testAddr,
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenID:       "71321045679252212594626385532706912750332728571942532289631379312455583992563",
		MakerAmount:   "25000000",
		TakerAmount:   "50000000",
		Expiration:    "0",
		Nonce:         "0",
		FeeRateBps:    "0",
		Side:          0,
		SignatureType: SigTypeEOA,
	}

	exchange := common.HexToAddress("0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E")
	negRiskExchange := common.HexToAddress("0xC5d563A36AE78145C45a50134d48A1215220f80a")

	sigStd, err := s.SignOrder(payload, exchange)
	require.NoError(t, err)
	sigNeg, err := s.SignOrder(payload, negRiskExchange)
	require.NoError(t, err)

	assert.NotEqual(t, sigStd, sigNeg, "neg-risk orders settle at a different exchange")
}

func TestSignOrderRejectsBadNumbers(t *testing.T) {
	s, err := NewSigner(testKey, 137)
	require.NoError(t, err)

	_, err = s.SignOrder(OrderPayload{Salt: "xyz"}, common.Address{})
	assert.Error(t, err)
}

func TestL2HeadersDeterministic(t *testing.T) {
	h := NewHMACAuth(domain.APICredentials{
		Key:        "api-key",
		Secret:     "c2VjcmV0LWJ5dGVz", // base64url("secret-bytes")
		Passphrase: "passphrase",
	})

	headers := h.L2HeadersAt(testAddr, "POST", "/order", `{"x":1}`, 1700000000)

	assert.Equal(t, testAddr, headers["POLY_ADDRESS"])
	assert.Equal(t, "api-key", headers["POLY_API_KEY"])
	assert.Equal(t, "1700000000", headers["POLY_TIMESTAMP"])
	assert.Equal(t, "passphrase", headers["POLY_PASSPHRASE"])
	assert.NotEmpty(t, headers["POLY_SIGNATURE"])

	again := h.L2HeadersAt(testAddr, "POST", "/order", `{"x":1}`, 1700000000)
	assert.Equal(t, headers, again)

	moved := h.L2HeadersAt(testAddr, "POST", "/order", `{"x":1}`, 1700000001)
	assert.NotEqual(t, headers["POLY_SIGNATURE"], moved["POLY_SIGNATURE"])
}

func TestBuilderHeaders(t *testing.T) {
	h := NewHMACAuth(domain.APICredentials{Key: "k", Secret: "s", Passphrase: "p"})

	headers := h.BuilderHeadersAt("POST", "/order", "", 1700000000)

	assert.Equal(t, "k", headers["POLY_BUILDER_API_KEY"])
	assert.Equal(t, "p", headers["POLY_BUILDER_PASSPHRASE"])
	assert.NotEmpty(t, headers["POLY_BUILDER_SIGNATURE"])
}

func TestEncryptDecryptKeyRoundTrip(t *testing.T) {
	blob, err := EncryptKey(testKey, "hunter2")
	require.NoError(t, err)

	got, err := DecryptKey(blob, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, testKey, got)

	_, err = DecryptKey(blob, "wrong")
	assert.Error(t, err)
}

func TestResolveKey(t *testing.T) {
	t.Run("raw key wins", func(t *testing.T) {
		got, err := ResolveKey(KeySource{RawPrivateKey: "0x" + testKey})
		require.NoError(t, err)
		assert.Equal(t, testKey, got)
	})

	t.Run("no source", func(t *testing.T) {
		_, err := ResolveKey(KeySource{})
		assert.Error(t, err)
	})
}
