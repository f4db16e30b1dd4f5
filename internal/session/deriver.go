package session

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// CodeChecker reports whether a contract is deployed at an address.
// *chain.Approvals satisfies it.
type CodeChecker interface {
	HasCode(ctx context.Context, addr common.Address) (bool, error)
}

// PassthroughDeriver uses the owner address as the trading address. This is
// the extension point for counterfactual smart-wallet derivation; today the
// only extra work is the informational deployed-contract check.
type PassthroughDeriver struct {
	Checker CodeChecker // optional
}

// Derive returns the owner address unchanged. A failed code check is
// reported as not deployed, never as an error.
func (d PassthroughDeriver) Derive(ctx context.Context, owner common.Address) (common.Address, bool, error) {
	if d.Checker == nil {
		return owner, false, nil
	}
	deployed, err := d.Checker.HasCode(ctx, owner)
	if err != nil {
		return owner, false, nil
	}
	return owner, deployed, nil
}

// StaticDeriver returns a fixed trading address (a pre-deployed Safe) for
// every owner. The code check reports whether the Safe is actually deployed.
type StaticDeriver struct {
	Address common.Address
	Checker CodeChecker // optional
}

// Derive returns the configured address regardless of owner.
func (d StaticDeriver) Derive(ctx context.Context, _ common.Address) (common.Address, bool, error) {
	if d.Checker == nil {
		return d.Address, false, nil
	}
	deployed, err := d.Checker.HasCode(ctx, d.Address)
	if err != nil {
		return d.Address, false, nil
	}
	return d.Address, deployed, nil
}
