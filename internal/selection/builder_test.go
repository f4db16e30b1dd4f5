package selection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestBuildPrecedence(t *testing.T) {
	kickoff := time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)

	got, err := Build(
		ClientPayload{TokenID: "tok-1", Outcome: "YES", Price: 0.62, TeamName: "Arsenal"},
		StagingRecord{
			TokenID:   "tok-ignored",
			MarketID:  "mkt-9",
			Question:  "Will Arsenal win the match?",
			Outcome:   "outcome-ignored",
			NegRisk:   boolPtr(true),
			EventTime: kickoff,
			Price:     0.55,
		},
		TeamDirectory{TeamName: "name-ignored", TeamAbbrev: "ARS", LeagueName: "Premier League"},
	)
	require.NoError(t, err)

	// Earlier sources win field by field; later sources only fill gaps.
	assert.Equal(t, "tok-1", got.TokenID)
	assert.Equal(t, "YES", got.Outcome)
	assert.InDelta(t, 0.62, got.Price, 1e-9)
	assert.Equal(t, "Arsenal", got.TeamName)
	assert.Equal(t, "mkt-9", got.MarketID)
	assert.Equal(t, "Will Arsenal win the match?", got.Question)
	assert.Equal(t, "ARS", got.TeamAbbrev)
	assert.Equal(t, "Premier League", got.LeagueName)
	assert.Equal(t, kickoff, got.EventTime)
	assert.True(t, got.NegRisk)
}

func TestBuildExplicitFalseNegRiskWins(t *testing.T) {
	got, err := Build(
		StagingRecord{TokenID: "tok-1", Outcome: "NO", NegRisk: boolPtr(false)},
		MarketMetadata{NegRisk: boolPtr(true)},
	)
	require.NoError(t, err)
	assert.False(t, got.NegRisk, "an explicit false is not overridden by a later source")
}

func TestBuildFillsFromLaterSources(t *testing.T) {
	got, err := Build(
		ClientPayload{TokenID: "tok-2", Outcome: "NO"},
		MarketMetadata{MarketID: "mkt-2", Question: "Q?", NegRisk: boolPtr(true)},
	)
	require.NoError(t, err)
	assert.Equal(t, "mkt-2", got.MarketID)
	assert.Equal(t, "Q?", got.Question)
	assert.True(t, got.NegRisk)
}

func TestBuildOutcomeFromMetadata(t *testing.T) {
	kickoff := time.Date(2026, 10, 3, 17, 30, 0, 0, time.UTC)

	got, err := Build(
		ClientPayload{TokenID: "tok-3", Price: 0.5},
		MarketMetadata{
			MarketID:  "mkt-3",
			Question:  "Q?",
			Outcome:   "Yes",
			NegRisk:   boolPtr(true),
			EventTime: kickoff,
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "Yes", got.Outcome, "metadata supplies the outcome when the client omits it")
	assert.Equal(t, kickoff, got.EventTime)
	assert.True(t, got.NegRisk)
}

func TestBuildRequiresTokenAndOutcome(t *testing.T) {
	_, err := Build(MarketMetadata{MarketID: "mkt-1"})
	assert.Error(t, err)

	_, err = Build(ClientPayload{TokenID: "tok-1"})
	assert.Error(t, err)

	_, err = Build()
	assert.Error(t, err)
}
