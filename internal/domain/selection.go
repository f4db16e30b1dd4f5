package domain

import (
	"context"
	"time"
)

// Market is the resolved metadata of a market listing one or more CLOB
// tokens. TokenIDs and Outcomes are positionally aligned.
type Market struct {
	ID        string
	Question  string
	Slug      string
	NegRisk   bool
	Active    bool
	Closed    bool
	TokenIDs  []string
	Outcomes  []string
	EventTime time.Time
}

// OutcomeFor returns the outcome name listed at the token's position, empty
// when the token is not part of the market.
func (m Market) OutcomeFor(tokenID string) string {
	for i, id := range m.TokenIDs {
		if id == tokenID && i < len(m.Outcomes) {
			return m.Outcomes[i]
		}
	}
	return ""
}

// MarketSource resolves the market listing a CLOB token.
type MarketSource interface {
	MarketByToken(ctx context.Context, tokenID string) (Market, error)
}

// EnrichedSelection is the fully-resolved description of a market selection
// attached to a post or trade. It is assembled from several optional sources
// (client payload, staging record, team/league lookup) by the selection
// builder; every field here is final, no nullable fallbacks remain.
type EnrichedSelection struct {
	TokenID    string
	MarketID   string
	Outcome    string // e.g. "YES" / "NO" or a team name
	Question   string
	TeamName   string
	TeamAbbrev string
	LeagueName string
	EventTime  time.Time
	NegRisk    bool
	Price      float64
}
