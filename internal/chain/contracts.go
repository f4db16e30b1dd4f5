// Package chain reads and writes the on-chain approval state the CLOB
// settlement contracts require: ERC-20 collateral allowances and ERC-1155
// outcome-token operator approvals.
package chain

import "github.com/ethereum/go-ethereum/common"

// ContractSet is the fixed set of contracts the trading flow touches on one
// chain. Exchange, NegRiskExchange, and NegRiskAdapter all need both
// approval types from the funding wallet.
type ContractSet struct {
	Collateral      common.Address // ERC-20 (USDC)
	OutcomeToken    common.Address // ERC-1155 (ConditionalTokens)
	Exchange        common.Address
	NegRiskExchange common.Address
	NegRiskAdapter  common.Address
}

// Spenders returns the contracts that need spending/operator approval, in
// submission order.
func (c ContractSet) Spenders() []common.Address {
	return []common.Address{c.Exchange, c.NegRiskExchange, c.NegRiskAdapter}
}

// PolygonMainnet returns the Polymarket contract set on Polygon (chain 137).
func PolygonMainnet() ContractSet {
	return ContractSet{
		Collateral:      common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"),
		OutcomeToken:    common.HexToAddress("0x4D97DCd97eC945f40cF65F87097ACe5EA0476045"),
		Exchange:        common.HexToAddress("0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"),
		NegRiskExchange: common.HexToAddress("0xC5d563A36AE78145C45a50134d48A1215220f80a"),
		NegRiskAdapter:  common.HexToAddress("0xd91E80cF2E7be2e162c6513ceD06f1dD0dA35296"),
	}
}
