package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gameverse/tradecore/internal/crypto"
	"github.com/gameverse/tradecore/internal/domain"
)

const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

// ---------------------------------------------------------------------------
// In-memory fakes
// ---------------------------------------------------------------------------

type memSessions struct {
	mu   sync.Mutex
	data map[string]domain.TradingSession
}

func newMemSessions() *memSessions {
	return &memSessions{data: make(map[string]domain.TradingSession)}
}

func (m *memSessions) Put(_ context.Context, s domain.TradingSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[common.HexToAddress(s.OwnerAddress).Hex()] = s
	return nil
}

func (m *memSessions) Get(_ context.Context, owner string) (domain.TradingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[common.HexToAddress(owner).Hex()]
	if !ok {
		return domain.TradingSession{}, domain.ErrNotFound
	}
	return s, nil
}

func (m *memSessions) Delete(_ context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, common.HexToAddress(owner).Hex())
	return nil
}

type memCreds struct {
	mu   sync.Mutex
	data map[string]domain.APICredentials
}

func newMemCreds() *memCreds {
	return &memCreds{data: make(map[string]domain.APICredentials)}
}

func (m *memCreds) Put(_ context.Context, owner string, c domain.APICredentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[owner] = c
	return nil
}

func (m *memCreds) Get(_ context.Context, owner string) (domain.APICredentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.data[owner]
	if !ok {
		return domain.APICredentials{}, domain.ErrNotFound
	}
	return c, nil
}

func (m *memCreds) Delete(_ context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, owner)
	return nil
}

type fakeCredSource struct {
	mu    sync.Mutex
	creds domain.APICredentials
	err   error
	calls int
}

func (f *fakeCredSource) DeriveOrCreateCredentials(context.Context) (domain.APICredentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.creds, f.err
}

func (f *fakeCredSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeApprovals struct {
	status domain.ApprovalStatus
	err    error
	calls  int
}

func (f *fakeApprovals) EnsureAll(context.Context, common.Address) (domain.ApprovalStatus, error) {
	f.calls++
	return f.status, f.err
}

type fakeClient struct{}

func (fakeClient) PostOrder(context.Context, crypto.OrderPayload, string, domain.OrderType) (domain.OrderResult, error) {
	return domain.OrderResult{Success: true, OrderID: "o-1"}, nil
}

func (fakeClient) CancelOrder(context.Context, string) error { return nil }

// ---------------------------------------------------------------------------

type fixture struct {
	orch      *Orchestrator
	sessions  *memSessions
	credCache *memCreds
	source    *fakeCredSource
	approvals *fakeApprovals
	signer    *crypto.Signer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	signer, err := crypto.NewSigner(testKey, 137)
	require.NoError(t, err)

	f := &fixture{
		sessions:  newMemSessions(),
		credCache: newMemCreds(),
		source: &fakeCredSource{
			creds: domain.APICredentials{Key: "k", Secret: "s", Passphrase: "p"},
		},
		approvals: &fakeApprovals{status: domain.ApprovalStatus{AllApproved: true}},
		signer:    signer,
	}
	f.orch = New(Config{
		Signer:    signer,
		Creds:     f.source,
		CredCache: f.credCache,
		Approvals: f.approvals,
		Sessions:  f.sessions,
		Factory:   func(domain.APICredentials) TradingClient { return fakeClient{} },
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return f
}

func TestInitializeVisitsStepsInOrder(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, domain.StepIdle, f.orch.Step())
	require.NoError(t, f.orch.Initialize(context.Background()))

	assert.Equal(t, []domain.TradingStep{
		domain.StepConnecting,
		domain.StepDerivingSafe,
		domain.StepGettingCreds,
		domain.StepSettingApprovs,
		domain.StepReady,
	}, f.orch.StepLog())
	assert.Equal(t, domain.StepReady, f.orch.Step())
	assert.Empty(t, f.orch.ErrMessage())

	client, err := f.orch.Client()
	require.NoError(t, err)
	assert.NotNil(t, client)

	// Passthrough derivation: trading address equals the owner, EOA sigs.
	assert.Equal(t, f.signer.Address(), f.orch.TradingAddress())
	assert.Equal(t, crypto.SigTypeEOA, f.orch.SignatureType())

	// Session record persisted under the owner address.
	rec, err := f.sessions.Get(context.Background(), f.signer.Address().Hex())
	require.NoError(t, err)
	assert.Equal(t, f.signer.Address().Hex(), rec.TradingAddress)
}

func TestInitializeWithoutSigner(t *testing.T) {
	f := newFixture(t)
	f.orch.signer = nil

	err := f.orch.Initialize(context.Background())
	require.ErrorIs(t, err, domain.ErrNotConnected)

	assert.Equal(t, domain.StepError, f.orch.Step())
	assert.NotEmpty(t, f.orch.ErrMessage())

	_, err = f.orch.Client()
	assert.ErrorIs(t, err, domain.ErrSessionNotReady)
}

func TestInitializeCredentialFailure(t *testing.T) {
	f := newFixture(t)
	f.source.err = fmt.Errorf("%w: backend says no", domain.ErrCredentialDerivation)

	err := f.orch.Initialize(context.Background())
	require.ErrorIs(t, err, domain.ErrCredentialDerivation)
	assert.Equal(t, domain.StepError, f.orch.Step())

	// Restart from error is allowed and overwrites the message.
	f.source.err = nil
	require.NoError(t, f.orch.Initialize(context.Background()))
	assert.Equal(t, domain.StepReady, f.orch.Step())
	assert.Empty(t, f.orch.ErrMessage())
}

func TestInitializeIncompleteCredentials(t *testing.T) {
	f := newFixture(t)
	f.source.creds = domain.APICredentials{Key: "k"} // missing secret+passphrase

	err := f.orch.Initialize(context.Background())
	require.ErrorIs(t, err, domain.ErrCredentialDerivation)
	assert.Equal(t, domain.StepError, f.orch.Step())
}

func TestInitializeApprovalFailureDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	f.approvals.err = errors.New("rpc timeout")

	require.NoError(t, f.orch.Initialize(context.Background()))
	assert.Equal(t, domain.StepReady, f.orch.Step())
	assert.Empty(t, f.orch.ErrMessage(), "approval failures during init are logged, not surfaced")
}

func TestInitializeUsesCachedCredentials(t *testing.T) {
	f := newFixture(t)
	owner := f.signer.Address().Hex()
	require.NoError(t, f.credCache.Put(context.Background(),
		owner, domain.APICredentials{Key: "ck", Secret: "cs", Passphrase: "cp"}))

	require.NoError(t, f.orch.Initialize(context.Background()))
	assert.Zero(t, f.source.calls, "cached credentials skip the signature challenge")
}

func TestResume(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh session re-runs initialization", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.sessions.Put(ctx, domain.TradingSession{
			OwnerAddress:   f.signer.Address().Hex(),
			TradingAddress: f.signer.Address().Hex(),
			CreatedAt:      time.Now().Add(-time.Hour),
		}))

		require.NoError(t, f.orch.Resume(ctx))
		assert.Equal(t, domain.StepReady, f.orch.Step())
	})

	t.Run("expired session discarded silently", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.sessions.Put(ctx, domain.TradingSession{
			OwnerAddress:   f.signer.Address().Hex(),
			TradingAddress: f.signer.Address().Hex(),
			CreatedAt:      time.Now().Add(-domain.SessionMaxAge - time.Minute),
		}))

		require.NoError(t, f.orch.Resume(ctx))
		assert.Equal(t, domain.StepIdle, f.orch.Step())

		_, err := f.sessions.Get(ctx, f.signer.Address().Hex())
		assert.ErrorIs(t, err, domain.ErrNotFound, "stale record removed")
	})

	t.Run("no persisted session is a no-op", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.orch.Resume(ctx))
		assert.Equal(t, domain.StepIdle, f.orch.Step())
	})
}

func TestSessionExpiry(t *testing.T) {
	now := time.Now()
	s := domain.TradingSession{CreatedAt: now.Add(-domain.SessionMaxAge + time.Minute)}
	assert.False(t, s.Expired(now))

	s.CreatedAt = now.Add(-domain.SessionMaxAge - time.Minute)
	assert.True(t, s.Expired(now))
}

func TestEndClearsState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.orch.Initialize(ctx))

	owner := f.signer.Address().Hex()
	_, err := f.credCache.Get(ctx, owner)
	require.NoError(t, err, "credentials cached during init")

	require.NoError(t, f.orch.End(ctx))

	assert.Equal(t, domain.StepIdle, f.orch.Step())
	_, err = f.orch.Client()
	assert.ErrorIs(t, err, domain.ErrSessionNotReady)

	_, err = f.sessions.Get(ctx, owner)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.credCache.Get(ctx, owner)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInitializeWhileReadyIsNoOp(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.Initialize(context.Background()))
	require.Equal(t, 1, f.source.calls)

	require.NoError(t, f.orch.Initialize(context.Background()))
	assert.Equal(t, 1, f.source.calls, "ready session is not re-initialized")
}

func TestInitializeConcurrentCallersRunOneFlow(t *testing.T) {
	const callers = 8

	for i := 0; i < 50; i++ {
		f := newFixture(t)

		start := make(chan struct{})
		var wg sync.WaitGroup
		for c := 0; c < callers; c++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				// Losers return an in-progress error or nil (ready);
				// either way they must not run the sequence themselves.
				_ = f.orch.Initialize(context.Background())
			}()
		}
		close(start)
		wg.Wait()

		require.Equal(t, 1, f.source.callCount(), "exactly one credential challenge")
		assert.Equal(t, domain.StepReady, f.orch.Step())
		assert.Equal(t, []domain.TradingStep{
			domain.StepConnecting,
			domain.StepDerivingSafe,
			domain.StepGettingCreds,
			domain.StepSettingApprovs,
			domain.StepReady,
		}, f.orch.StepLog())
	}
}
