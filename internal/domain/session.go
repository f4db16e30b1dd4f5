package domain

import "time"

// TradingStep is the state-machine tag for session initialization. Exactly
// one step is current at a time; Ready and Error are terminal until the next
// initialization attempt.
type TradingStep string

const (
	StepIdle           TradingStep = "idle"
	StepConnecting     TradingStep = "connecting"
	StepDerivingSafe   TradingStep = "deriving-safe"
	StepGettingCreds   TradingStep = "getting-credentials"
	StepSettingApprovs TradingStep = "setting-approvals"
	StepReady          TradingStep = "ready"
	StepError          TradingStep = "error"
)

// SessionMaxAge is how long a persisted session stays valid before the
// loader treats it as absent.
const SessionMaxAge = 7 * 24 * time.Hour

// TradingSession is the persisted record of a successfully initialized
// session. Signing clients cannot be serialized, so resuming a session
// re-runs the full initialization; this record only gates whether resumption
// is attempted and for which addresses.
type TradingSession struct {
	OwnerAddress   string    `json:"address"`
	TradingAddress string    `json:"safeAddress"`
	EOAAddress     string    `json:"eoaAddress"`
	CreatedAt      time.Time `json:"timestamp"`
}

// Expired reports whether the session is older than SessionMaxAge at now.
func (s TradingSession) Expired(now time.Time) bool {
	return now.Sub(s.CreatedAt) > SessionMaxAge
}

// APICredentials is the opaque bearer credential for the CLOB, derived from
// an EIP-712 signature challenge and cached per owner address. Replaced, never
// mutated.
type APICredentials struct {
	Key        string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// Complete reports whether all three credential parts are present.
func (c APICredentials) Complete() bool {
	return c.Key != "" && c.Secret != "" && c.Passphrase != ""
}

// ApprovalStatus is the recomputed on-chain approval view for one owner.
// Keys are spender/operator contract addresses in checksummed hex.
type ApprovalStatus struct {
	AllApproved bool
	ERC20       map[string]bool // collateral allowance per spender
	ERC1155     map[string]bool // outcome-token operator approval
}
