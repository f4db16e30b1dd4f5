package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/gameverse/tradecore/internal/domain"
)

const erc20ABI = `[
  {"name":"allowance","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

const erc1155ABI = `[
  {"name":"isApprovedForAll","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"},{"name":"operator","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"name":"setApprovalForAll","type":"function","stateMutability":"nonpayable","inputs":[{"name":"operator","type":"address"},{"name":"approved","type":"bool"}],"outputs":[]}
]`

// maxUint256 is the unlimited-allowance sentinel.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Approvals checks and sets token approvals for the settlement contracts.
// Writes are submitted sequentially from one key, never in parallel, to
// avoid nonce conflicts.
type Approvals struct {
	client    *ethclient.Client
	contracts ContractSet
	erc20     *bind.BoundContract
	erc1155   *bind.BoundContract
	key       *ecdsa.PrivateKey
	chainID   *big.Int
	logger    *slog.Logger
}

// NewApprovals creates an approval manager against the given RPC client.
// key may be nil for read-only use; EnsureAll then fails on any write.
func NewApprovals(client *ethclient.Client, contracts ContractSet, key *ecdsa.PrivateKey, chainID int64, logger *slog.Logger) (*Approvals, error) {
	parsed20, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("chain: parsing erc20 abi: %w", err)
	}
	parsed1155, err := abi.JSON(strings.NewReader(erc1155ABI))
	if err != nil {
		return nil, fmt.Errorf("chain: parsing erc1155 abi: %w", err)
	}

	return &Approvals{
		client:    client,
		contracts: contracts,
		erc20:     bind.NewBoundContract(contracts.Collateral, parsed20, client, client, client),
		erc1155:   bind.NewBoundContract(contracts.OutcomeToken, parsed1155, client, client, client),
		key:       key,
		chainID:   big.NewInt(chainID),
		logger:    logger.With(slog.String("component", "approvals")),
	}, nil
}

// Status reads the current approval state for owner across all spenders.
// A failed read counts as not approved rather than failing the whole check.
func (a *Approvals) Status(ctx context.Context, owner common.Address) (domain.ApprovalStatus, error) {
	status := domain.ApprovalStatus{
		ERC20:   make(map[string]bool),
		ERC1155: make(map[string]bool),
	}

	opts := &bind.CallOpts{Context: ctx}
	all := true

	for _, spender := range a.contracts.Spenders() {
		allowed, err := a.readAllowance(opts, owner, spender)
		if err != nil {
			a.logger.Warn("allowance read failed",
				slog.String("spender", spender.Hex()),
				slog.String("error", err.Error()),
			)
			allowed = false
		}
		status.ERC20[spender.Hex()] = allowed
		all = all && allowed

		approved, err := a.readOperatorApproval(opts, owner, spender)
		if err != nil {
			a.logger.Warn("operator approval read failed",
				slog.String("operator", spender.Hex()),
				slog.String("error", err.Error()),
			)
			approved = false
		}
		status.ERC1155[spender.Hex()] = approved
		all = all && approved
	}

	status.AllApproved = all
	return status, nil
}

// EnsureAll submits one approval transaction per missing spender/operator,
// sequentially, waits for each to mine, and re-reads the final status. The
// calls are idempotent: unlimited approve and setApprovalForAll(true).
func (a *Approvals) EnsureAll(ctx context.Context, owner common.Address) (domain.ApprovalStatus, error) {
	status, err := a.Status(ctx, owner)
	if err != nil {
		return status, err
	}
	if status.AllApproved {
		return status, nil
	}
	if a.key == nil {
		return status, fmt.Errorf("chain: %w: no signing key for approval writes", domain.ErrApprovalCheck)
	}

	for _, spender := range a.contracts.Spenders() {
		if !status.ERC20[spender.Hex()] {
			if err := a.submit(ctx, a.erc20, "approve", spender, maxUint256); err != nil {
				return status, fmt.Errorf("chain: approve %s: %w", spender.Hex(), err)
			}
			a.logger.Info("collateral allowance set", slog.String("spender", spender.Hex()))
		}
		if !status.ERC1155[spender.Hex()] {
			if err := a.submit(ctx, a.erc1155, "setApprovalForAll", spender, true); err != nil {
				return status, fmt.Errorf("chain: setApprovalForAll %s: %w", spender.Hex(), err)
			}
			a.logger.Info("operator approval set", slog.String("operator", spender.Hex()))
		}
	}

	return a.Status(ctx, owner)
}

// HasCode reports whether a contract is deployed at addr. Used by the
// safe-derivation step as an informational check.
func (a *Approvals) HasCode(ctx context.Context, addr common.Address) (bool, error) {
	code, err := a.client.CodeAt(ctx, addr, nil)
	if err != nil {
		return false, fmt.Errorf("chain: code at %s: %w", addr.Hex(), err)
	}
	return len(code) > 0, nil
}

func (a *Approvals) readAllowance(opts *bind.CallOpts, owner, spender common.Address) (bool, error) {
	var out []any
	if err := a.erc20.Call(opts, &out, "allowance", owner, spender); err != nil {
		return false, err
	}
	allowance, ok := out[0].(*big.Int)
	if !ok {
		return false, fmt.Errorf("unexpected allowance type %T", out[0])
	}
	return allowance.Sign() > 0, nil
}

func (a *Approvals) readOperatorApproval(opts *bind.CallOpts, owner, operator common.Address) (bool, error) {
	var out []any
	if err := a.erc1155.Call(opts, &out, "isApprovedForAll", owner, operator); err != nil {
		return false, err
	}
	approved, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected approval type %T", out[0])
	}
	return approved, nil
}

func (a *Approvals) submit(ctx context.Context, contract *bind.BoundContract, method string, args ...any) error {
	opts, err := bind.NewKeyedTransactorWithChainID(a.key, a.chainID)
	if err != nil {
		return fmt.Errorf("building transactor: %w", err)
	}
	opts.Context = ctx

	tx, err := contract.Transact(opts, method, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	receipt, err := bind.WaitMined(ctx, a.client, tx)
	if err != nil {
		return fmt.Errorf("waiting for %s (%s): %w", method, tx.Hash().Hex(), err)
	}
	if receipt.Status == 0 {
		return fmt.Errorf("%s reverted (%s)", method, tx.Hash().Hex())
	}
	return nil
}
