package reconcile

import (
	"github.com/shopspring/decimal"
)

// Policy holds the tunable thresholds for post-calculation business-rule
// warnings. The defaults mirror long-standing review practice but carry no
// deeper justification, so they are configuration rather than constants.
type Policy struct {
	// LargeChangeRatio flags a relative swing beyond this fraction of the
	// current quantity (0.5 = 50%).
	LargeChangeRatio decimal.Decimal

	// LargeChangeFromZero flags an absolute change this big when the
	// current quantity is zero and no ratio can be formed.
	LargeChangeFromZero decimal.Decimal

	// HistoryDeltaMultiplier flags a delta exceeding this multiple of the
	// average absolute delta across recent history.
	HistoryDeltaMultiplier decimal.Decimal

	// HistoryWindow is how many recent history entries feed the average.
	HistoryWindow int

	// ReviewRatio suggests collecting human validation notes when the
	// relative swing exceeds this fraction.
	ReviewRatio decimal.Decimal
}

// DefaultPolicy returns the standard thresholds: 50% large change, 2x the
// recent average delta, review suggested above 30%.
func DefaultPolicy() Policy {
	return Policy{
		LargeChangeRatio:       decimal.NewFromFloat(0.5),
		LargeChangeFromZero:    decimal.NewFromInt(100),
		HistoryDeltaMultiplier: decimal.NewFromInt(2),
		HistoryWindow:          5,
		ReviewRatio:            decimal.NewFromFloat(0.3),
	}
}
