package history

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrendPoint is one month's resolved total in a series
type TrendPoint struct {
	Month  Month
	Amount decimal.Decimal
}

// PredictNext extrapolates the next month's total from a series of monthly
// totals, oldest first, using the average month-over-month delta. It needs
// at least two points; predictions never go below zero.
func PredictNext(points []TrendPoint) (decimal.Decimal, bool) {
	if len(points) < 2 {
		return decimal.Zero, false
	}
	sum := decimal.Zero
	for i := 1; i < len(points); i++ {
		sum = sum.Add(points[i].Amount.Sub(points[i-1].Amount))
	}
	avgDelta := sum.Div(decimal.NewFromInt(int64(len(points) - 1)))
	predicted := points[len(points)-1].Amount.Add(avgDelta)
	if predicted.IsNegative() {
		predicted = decimal.Zero
	}
	return predicted, true
}

// DataQualityScore grades a series of resolved totals 0-100 by provenance:
// measured submissions count full, periodic records three quarters,
// proxies half, missing months nothing.
func DataQualityScore(totals []HistoricalTotal) int {
	if len(totals) == 0 {
		return 0
	}
	score := 0
	for _, t := range totals {
		switch t.Source {
		case SourceFormSubmission:
			score += 100
		case SourceInventoryHistory:
			score += 75
		case SourceCalculated:
			score += 50
		}
	}
	return score / len(totals)
}

const (
	usageWindowDays   = 30
	reorderBufferDays = 14
)

// UsagePrediction projects consumption from recent quantity observations
type UsagePrediction struct {
	DailyUsage     decimal.Decimal `json:"daily_usage"`
	DaysUntilEmpty int             `json:"days_until_empty"`
	ReorderPoint   decimal.Decimal `json:"reorder_point"`
	WindowDays     int             `json:"window_days"`
}

// PredictUsage estimates daily consumption over the trailing 30 days and
// projects when the asset runs out at that rate. The reorder point leaves
// a two week restock buffer. Records arrive newest first; intake style
// events raise the quantity, so usage sums per step decreases instead of
// taking the endpoint difference. Needs at least two observations in the
// window with a net positive usage, otherwise reports false.
func PredictUsage(records []HistoryRecord, current decimal.Decimal, now time.Time) (UsagePrediction, bool) {
	cutoff := now.AddDate(0, 0, -usageWindowDays)
	window := make([]HistoryRecord, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		if !records[i].RecordedAt.Before(cutoff) {
			window = append(window, records[i])
		}
	}
	if len(window) < 2 {
		return UsagePrediction{}, false
	}

	used := decimal.Zero
	for i := 1; i < len(window); i++ {
		if drop := window[i-1].Quantity.Sub(window[i].Quantity); drop.IsPositive() {
			used = used.Add(drop)
		}
	}
	if !used.IsPositive() {
		return UsagePrediction{}, false
	}

	days := window[len(window)-1].RecordedAt.Sub(window[0].RecordedAt).Hours() / 24
	if days < 1 {
		days = 1
	}
	daily := used.Div(decimal.NewFromFloat(days))

	prediction := UsagePrediction{
		DailyUsage:   daily.Round(4),
		ReorderPoint: daily.Mul(decimal.NewFromInt(reorderBufferDays)).Round(2),
		WindowDays:   usageWindowDays,
	}
	if current.IsPositive() {
		prediction.DaysUntilEmpty = int(current.Div(daily).IntPart())
	}
	return prediction, true
}
