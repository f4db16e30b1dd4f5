// Package selection assembles fully-typed selection records from the
// optional enrichment sources the mobile clients and staging pipeline
// provide. Fallbacks are an explicit precedence list: sources are consulted
// in the order given, and for each field the first source that carries a
// value wins.
package selection

import (
	"fmt"
	"time"

	"github.com/gameverse/tradecore/internal/domain"
)

// Source is one enrichment-source variant. The concrete types below form a
// closed set.
type Source interface {
	isSource()
}

// ClientPayload is the selection data supplied directly by the posting
// client. Least trusted, typically highest precedence for user-chosen
// fields (outcome, price).
type ClientPayload struct {
	TokenID  string
	Outcome  string
	Price    float64
	TeamName string
}

func (ClientPayload) isSource() {}

// StagingRecord is the enrichment row from the staging database keyed by
// token ID.
type StagingRecord struct {
	TokenID   string
	MarketID  string
	Question  string
	Outcome   string
	NegRisk   *bool
	EventTime time.Time
	Price     float64
}

func (StagingRecord) isSource() {}

// TeamDirectory is the team/league lookup result.
type TeamDirectory struct {
	TeamName   string
	TeamAbbrev string
	LeagueName string
	EventTime  time.Time
}

func (TeamDirectory) isSource() {}

// MarketMetadata is the market record fetched from the metadata API, with
// the outcome already resolved for the token being traded.
type MarketMetadata struct {
	MarketID  string
	Question  string
	Outcome   string
	NegRisk   *bool
	EventTime time.Time
}

func (MarketMetadata) isSource() {}

// Build resolves one EnrichedSelection from the given sources, in
// precedence order. It fails when no source provides a token ID or an
// outcome, the two fields nothing downstream can work without.
func Build(sources ...Source) (domain.EnrichedSelection, error) {
	var out domain.EnrichedSelection
	negRiskSet := false

	takeBool := func(v *bool) {
		if v != nil && !negRiskSet {
			out.NegRisk = *v
			negRiskSet = true
		}
	}

	for _, src := range sources {
		switch s := src.(type) {
		case ClientPayload:
			takeString(&out.TokenID, s.TokenID)
			takeString(&out.Outcome, s.Outcome)
			takeString(&out.TeamName, s.TeamName)
			takeFloat(&out.Price, s.Price)
		case StagingRecord:
			takeString(&out.TokenID, s.TokenID)
			takeString(&out.MarketID, s.MarketID)
			takeString(&out.Question, s.Question)
			takeString(&out.Outcome, s.Outcome)
			takeBool(s.NegRisk)
			takeTime(&out.EventTime, s.EventTime)
			takeFloat(&out.Price, s.Price)
		case TeamDirectory:
			takeString(&out.TeamName, s.TeamName)
			takeString(&out.TeamAbbrev, s.TeamAbbrev)
			takeString(&out.LeagueName, s.LeagueName)
			takeTime(&out.EventTime, s.EventTime)
		case MarketMetadata:
			takeString(&out.MarketID, s.MarketID)
			takeString(&out.Question, s.Question)
			takeString(&out.Outcome, s.Outcome)
			takeBool(s.NegRisk)
			takeTime(&out.EventTime, s.EventTime)
		default:
			return domain.EnrichedSelection{}, fmt.Errorf("selection: unknown source type %T", src)
		}
	}

	if out.TokenID == "" {
		return domain.EnrichedSelection{}, fmt.Errorf("selection: no source provided a token ID")
	}
	if out.Outcome == "" {
		return domain.EnrichedSelection{}, fmt.Errorf("selection: no source provided an outcome")
	}

	return out, nil
}

// take* fill dst only when it is still unset, implementing the precedence
// order of the source list.

func takeString(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

func takeFloat(dst *float64, v float64) {
	if *dst == 0 && v != 0 {
		*dst = v
	}
}

func takeTime(dst *time.Time, v time.Time) {
	if dst.IsZero() && !v.IsZero() {
		*dst = v
	}
}
