// Package session implements the multi-step trading-session state machine:
// connect a signing identity, derive the trading address, obtain API
// credentials, ensure token approvals, and produce a ready order-placing
// client.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/gameverse/tradecore/internal/crypto"
	"github.com/gameverse/tradecore/internal/domain"
)

// SafeDeriver computes the trading address for an owner. deployed reports
// whether a contract already exists at the derived address; informational
// only, it never blocks initialization.
type SafeDeriver interface {
	Derive(ctx context.Context, owner common.Address) (trading common.Address, deployed bool, err error)
}

// CredentialSource performs the signature-challenge exchange against the
// trading backend.
type CredentialSource interface {
	DeriveOrCreateCredentials(ctx context.Context) (domain.APICredentials, error)
}

// ApprovalManager checks on-chain approvals and submits any missing ones.
type ApprovalManager interface {
	EnsureAll(ctx context.Context, owner common.Address) (domain.ApprovalStatus, error)
}

// TradingClient is the authenticated order surface produced by a ready
// session. *polymarket.ClobClient satisfies it.
type TradingClient interface {
	PostOrder(ctx context.Context, payload crypto.OrderPayload, signature string, tif domain.OrderType) (domain.OrderResult, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// ClientFactory builds a TradingClient from derived credentials.
type ClientFactory func(creds domain.APICredentials) TradingClient

// Orchestrator is the session state machine. One instance owns one session
// attempt at a time; all methods are safe for concurrent use.
type Orchestrator struct {
	deriver   SafeDeriver
	creds     CredentialSource
	credCache domain.CredentialCache
	approvals ApprovalManager
	sessions  domain.SessionCache
	factory   ClientFactory
	logger    *slog.Logger

	// now is the clock, swappable in tests.
	now func() time.Time

	mu          sync.Mutex
	signer      *crypto.Signer
	step        domain.TradingStep
	stepLog     []domain.TradingStep
	errMsg      string
	tradingAddr common.Address
	sigType     int
	client      TradingClient
}

// Config bundles the orchestrator's injected collaborators.
type Config struct {
	Signer    *crypto.Signer // nil until a wallet identity is connected
	Deriver   SafeDeriver
	Creds     CredentialSource
	CredCache domain.CredentialCache
	Approvals ApprovalManager
	Sessions  domain.SessionCache
	Factory   ClientFactory
	Logger    *slog.Logger
}

// New creates an Orchestrator in the idle state.
func New(cfg Config) *Orchestrator {
	deriver := cfg.Deriver
	if deriver == nil {
		deriver = PassthroughDeriver{}
	}
	return &Orchestrator{
		signer:    cfg.Signer,
		deriver:   deriver,
		creds:     cfg.Creds,
		credCache: cfg.CredCache,
		approvals: cfg.Approvals,
		sessions:  cfg.Sessions,
		factory:   cfg.Factory,
		logger:    cfg.Logger.With(slog.String("component", "session")),
		now:       time.Now,
		step:      domain.StepIdle,
	}
}

// Step returns the current state-machine step.
func (o *Orchestrator) Step() domain.TradingStep {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.step
}

// StepLog returns every step visited since the last initialization attempt,
// in order.
func (o *Orchestrator) StepLog() []domain.TradingStep {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]domain.TradingStep, len(o.stepLog))
	copy(out, o.stepLog)
	return out
}

// ErrMessage returns the current surfaced error message, empty when none.
// At most one message is current; the next attempt overwrites it.
func (o *Orchestrator) ErrMessage() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.errMsg
}

// Client returns the live order-placing client, or ErrSessionNotReady.
func (o *Orchestrator) Client() (TradingClient, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.step != domain.StepReady || o.client == nil {
		return nil, domain.ErrSessionNotReady
	}
	return o.client, nil
}

// TradingAddress returns the derived trading address once ready.
func (o *Orchestrator) TradingAddress() common.Address {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tradingAddr
}

// SignatureType returns the CLOB signature type for the current session:
// EOA when the trading address is the owner itself, gnosis-safe otherwise.
func (o *Orchestrator) SignatureType() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sigType
}

// Initialize runs the five-step sequence from connecting to ready. Allowed
// from idle or error; from any other step it is a no-op returning the
// current state's error, so concurrent callers do not restart a live flow.
// Failures land in the error state with a single surfaced message; the
// caller retries by calling Initialize again.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.mu.Lock()
	if o.step != domain.StepIdle && o.step != domain.StepError {
		current := o.step
		o.mu.Unlock()
		if current == domain.StepReady {
			return nil
		}
		return fmt.Errorf("session: initialization already in progress (%s)", current)
	}
	// Step 1: connecting. The step changes inside the same critical
	// section as the guard above, so a concurrent Initialize observes the
	// claimed flow and bails out.
	o.stepLog = o.stepLog[:0]
	o.errMsg = ""
	o.client = nil
	o.step = domain.StepConnecting
	o.stepLog = append(o.stepLog, domain.StepConnecting)
	signer := o.signer
	o.mu.Unlock()
	o.logger.Debug("session step", slog.String("step", string(domain.StepConnecting)))
	if signer == nil {
		return o.fail(fmt.Errorf("session: %w", domain.ErrNotConnected))
	}
	owner := signer.Address()

	// Step 2: deriving-safe - compute the trading address.
	o.transition(domain.StepDerivingSafe)
	tradingAddr, deployed, err := o.deriver.Derive(ctx, owner)
	if err != nil {
		return o.fail(fmt.Errorf("session: derive trading address: %w", err))
	}
	o.logger.Info("trading address derived",
		slog.String("owner", owner.Hex()),
		slog.String("trading", tradingAddr.Hex()),
		slog.Bool("deployed", deployed),
	)

	sigType := crypto.SigTypeEOA
	if tradingAddr != owner {
		sigType = crypto.SigTypeGnosisSafe
	}

	// Step 3: getting-credentials - cache first, then the signature
	// challenge.
	o.transition(domain.StepGettingCreds)
	creds, err := o.resolveCredentials(ctx, owner)
	if err != nil {
		return o.fail(err)
	}

	// Step 4: setting-approvals - best effort; an incomplete outcome is
	// logged and the session proceeds. Missing approvals resurface as
	// order-placement failures.
	o.transition(domain.StepSettingApprovs)
	status, err := o.approvals.EnsureAll(ctx, tradingAddr)
	switch {
	case err != nil:
		o.logger.Warn("approval setup failed, continuing",
			slog.String("owner", owner.Hex()),
			slog.String("error", err.Error()),
		)
	case !status.AllApproved:
		o.logger.Warn("approvals incomplete after setup", slog.String("owner", owner.Hex()))
	}

	// Step 5: ready - build the signing client and persist the session.
	client := o.factory(creds)

	record := domain.TradingSession{
		OwnerAddress:   owner.Hex(),
		TradingAddress: tradingAddr.Hex(),
		EOAAddress:     owner.Hex(),
		CreatedAt:      o.now(),
	}
	if err := o.sessions.Put(ctx, record); err != nil {
		return o.fail(fmt.Errorf("session: persist session: %w", err))
	}

	o.mu.Lock()
	o.tradingAddr = tradingAddr
	o.sigType = sigType
	o.client = client
	o.mu.Unlock()
	o.transition(domain.StepReady)

	o.logger.Info("trading session ready", slog.String("owner", owner.Hex()))
	return nil
}

// Resume re-runs initialization when a non-expired persisted session exists
// for the connected owner. Mismatched or expired records are discarded
// silently and no flow starts; signing clients cannot be restored from
// storage, only rebuilt.
func (o *Orchestrator) Resume(ctx context.Context) error {
	o.mu.Lock()
	signer := o.signer
	o.mu.Unlock()
	if signer == nil {
		return nil
	}
	owner := signer.Address().Hex()

	record, err := o.sessions.Get(ctx, owner)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("session: load persisted session: %w", err)
	}

	if !equalAddress(record.OwnerAddress, owner) || record.Expired(o.now()) {
		if err := o.sessions.Delete(ctx, owner); err != nil {
			o.logger.Warn("stale session cleanup failed", slog.String("error", err.Error()))
		}
		return nil
	}

	return o.Initialize(ctx)
}

// End clears the persisted session and cached credentials and returns the
// machine to idle. On-chain approvals are left in place.
func (o *Orchestrator) End(ctx context.Context) error {
	o.mu.Lock()
	signer := o.signer
	o.mu.Unlock()

	if signer != nil {
		owner := signer.Address().Hex()
		if err := o.sessions.Delete(ctx, owner); err != nil {
			return fmt.Errorf("session: clear session: %w", err)
		}
		if err := o.credCache.Delete(ctx, owner); err != nil {
			return fmt.Errorf("session: clear credentials: %w", err)
		}
	}

	o.mu.Lock()
	o.step = domain.StepIdle
	o.stepLog = nil
	o.errMsg = ""
	o.client = nil
	o.tradingAddr = common.Address{}
	o.sigType = crypto.SigTypeEOA
	o.mu.Unlock()

	o.logger.Info("trading session ended")
	return nil
}

// resolveCredentials returns cached credentials when present and complete,
// otherwise runs the challenge and caches the result.
func (o *Orchestrator) resolveCredentials(ctx context.Context, owner common.Address) (domain.APICredentials, error) {
	cached, err := o.credCache.Get(ctx, owner.Hex())
	if err == nil && cached.Complete() {
		return cached, nil
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		o.logger.Warn("credential cache read failed", slog.String("error", err.Error()))
	}

	creds, err := o.creds.DeriveOrCreateCredentials(ctx)
	if err != nil {
		return domain.APICredentials{}, err
	}
	if !creds.Complete() {
		return domain.APICredentials{}, fmt.Errorf("session: %w: incomplete credentials", domain.ErrCredentialDerivation)
	}

	if err := o.credCache.Put(ctx, owner.Hex(), creds); err != nil {
		o.logger.Warn("credential cache write failed", slog.String("error", err.Error()))
	}
	return creds, nil
}

func (o *Orchestrator) transition(step domain.TradingStep) {
	o.mu.Lock()
	o.step = step
	o.stepLog = append(o.stepLog, step)
	o.mu.Unlock()
	o.logger.Debug("session step", slog.String("step", string(step)))
}

// fail records the error state with a single surfaced message and returns
// the underlying error.
func (o *Orchestrator) fail(err error) error {
	o.mu.Lock()
	o.step = domain.StepError
	o.stepLog = append(o.stepLog, domain.StepError)
	o.errMsg = err.Error()
	o.mu.Unlock()
	o.logger.Error("session initialization failed", slog.String("error", err.Error()))
	return err
}

func equalAddress(a, b string) bool {
	return common.HexToAddress(a) == common.HexToAddress(b)
}
