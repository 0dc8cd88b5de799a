package history

import (
	"github.com/shopspring/decimal"
)

// Source names the provenance tier a historical total was resolved from
type Source string

const (
	SourceFormSubmission   Source = "form_submission"
	SourceInventoryHistory Source = "inventory_history"
	SourceCalculated       Source = "calculated"
	SourceNone             Source = "none"
)

// Confidence grades how trustworthy a resolved total is
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

var sourceRank = map[Source]int{
	SourceFormSubmission:   3,
	SourceInventoryHistory: 2,
	SourceCalculated:       1,
	SourceNone:             0,
}

// Rank returns the source's provenance ordinal, higher is more trustworthy
func (s Source) Rank() int {
	return sourceRank[s]
}

// confidenceFor pins confidence to the source tier, keeping the two
// monotonic by construction
func confidenceFor(source Source) Confidence {
	switch source {
	case SourceFormSubmission:
		return ConfidenceHigh
	case SourceInventoryHistory:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// HistoricalTotal is the best-available reconstruction of a prior month's
// ending quantity. SourceNone is a valid low-confidence answer meaning "no
// baseline available", distinct from a measured zero.
type HistoricalTotal struct {
	Amount     decimal.Decimal `json:"amount"`
	Source     Source          `json:"source"`
	Confidence Confidence      `json:"confidence"`
	Details    string          `json:"details"`
}

// NewHistoricalTotal builds a total with confidence derived from the source
func NewHistoricalTotal(amount decimal.Decimal, source Source, details string) HistoricalTotal {
	return HistoricalTotal{
		Amount:     amount,
		Source:     source,
		Confidence: confidenceFor(source),
		Details:    details,
	}
}

// NoBaseline is the tier-4 answer when every lookup came up empty
func NoBaseline(details string) HistoricalTotal {
	return NewHistoricalTotal(decimal.Zero, SourceNone, details)
}

// HasBaseline reports whether the total rests on any actual data
func (t HistoricalTotal) HasBaseline() bool {
	return t.Source != SourceNone
}
