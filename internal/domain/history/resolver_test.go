package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubmissionReader struct {
	byMonth map[Month][]SubmissionRecord
	err     error
}

func (f *fakeSubmissionReader) ListForMonth(_ context.Context, _ uuid.UUID, month Month) ([]SubmissionRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byMonth[month], nil
}

type fakeRecordReader struct {
	byMonth map[Month][]HistoryRecord
	err     error
}

func (f *fakeRecordReader) ListForMonth(_ context.Context, _ uuid.UUID, month Month) ([]HistoryRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byMonth[month], nil
}

type fakeTotalCache struct {
	entries map[string]HistoricalTotal
}

func newFakeTotalCache() *fakeTotalCache {
	return &fakeTotalCache{entries: make(map[string]HistoricalTotal)}
}

func (f *fakeTotalCache) Get(_ context.Context, assetID uuid.UUID, month Month) (HistoricalTotal, bool) {
	t, ok := f.entries[assetID.String()+":"+month.String()]
	return t, ok
}

func (f *fakeTotalCache) Set(_ context.Context, assetID uuid.UUID, month Month, total HistoricalTotal) {
	f.entries[assetID.String()+":"+month.String()] = total
}

var (
	august    = Month{Year: 2026, Month: time.August}
	july      = Month{Year: 2026, Month: time.July}
	january   = Month{Year: 2026, Month: time.January}
	december  = Month{Year: 2025, Month: time.December}
	testAsset = uuid.New()
)

func TestMonth(t *testing.T) {
	t.Run("prev rolls over year boundaries", func(t *testing.T) {
		assert.Equal(t, december, january.Prev())
		assert.Equal(t, july, august.Prev())
	})

	t.Run("next rolls over year boundaries", func(t *testing.T) {
		assert.Equal(t, january, december.Next())
	})

	t.Run("contains is a half-open interval", func(t *testing.T) {
		assert.True(t, august.Contains(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)))
		assert.True(t, august.Contains(time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC)))
		assert.False(t, august.Contains(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)))
		assert.False(t, august.Contains(time.Date(2026, 7, 31, 23, 59, 59, 0, time.UTC)))
	})

	t.Run("string and parse round trip", func(t *testing.T) {
		parsed, err := ParseMonth("2026-08")
		require.NoError(t, err)
		assert.Equal(t, august, parsed)
		assert.Equal(t, "2026-08", august.String())

		_, err = ParseMonth("August 2026")
		assert.Error(t, err)
	})
}

func TestLastMonthTotal_TierOrder(t *testing.T) {
	julyTime := time.Date(2026, 7, 28, 10, 0, 0, 0, time.UTC)

	t.Run("tier 1: prior-month submission with total field", func(t *testing.T) {
		resolver := NewResolver(
			&fakeSubmissionReader{byMonth: map[Month][]SubmissionRecord{
				july: {{
					ID:          uuid.New(),
					SubmittedAt: julyTime,
					Values:      map[string]string{"notes": "ok", "month_end_total": "42.5"},
				}},
			}},
			&fakeRecordReader{byMonth: map[Month][]HistoryRecord{
				july: {{Quantity: decimal.NewFromInt(99), EventType: "periodic_check", RecordedAt: julyTime}},
			}},
		)

		total, err := resolver.LastMonthTotal(context.Background(), testAsset, august)
		require.NoError(t, err)
		assert.Equal(t, SourceFormSubmission, total.Source)
		assert.Equal(t, ConfidenceHigh, total.Confidence)
		assert.True(t, total.Amount.Equal(decimal.NewFromFloat(42.5)))
		assert.Contains(t, total.Details, "month_end_total")
	})

	t.Run("tier 2: periodic record when no submission matches", func(t *testing.T) {
		resolver := NewResolver(
			&fakeSubmissionReader{byMonth: map[Month][]SubmissionRecord{
				july: {{
					ID:          uuid.New(),
					SubmittedAt: julyTime,
					Values:      map[string]string{"notes": "no totals here"},
				}},
			}},
			&fakeRecordReader{byMonth: map[Month][]HistoryRecord{
				july: {
					{ID: uuid.New(), Quantity: decimal.NewFromInt(31), EventType: "usage", RecordedAt: julyTime.Add(time.Hour)},
					{ID: uuid.New(), Quantity: decimal.NewFromInt(30), EventType: "periodic_check", RecordedAt: julyTime},
				},
			}},
		)

		total, err := resolver.LastMonthTotal(context.Background(), testAsset, august)
		require.NoError(t, err)
		assert.Equal(t, SourceInventoryHistory, total.Source)
		assert.Equal(t, ConfidenceMedium, total.Confidence)
		assert.True(t, total.Amount.Equal(decimal.NewFromInt(30)))
	})

	t.Run("tier 3: earliest current-month record as proxy", func(t *testing.T) {
		resolver := NewResolver(
			&fakeSubmissionReader{},
			&fakeRecordReader{byMonth: map[Month][]HistoryRecord{
				august: {
					{ID: uuid.New(), Quantity: decimal.NewFromInt(25), EventType: "usage", RecordedAt: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)},
					{ID: uuid.New(), Quantity: decimal.NewFromInt(28), EventType: "usage", RecordedAt: time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)},
				},
			}},
		)

		total, err := resolver.LastMonthTotal(context.Background(), testAsset, august)
		require.NoError(t, err)
		assert.Equal(t, SourceCalculated, total.Source)
		assert.Equal(t, ConfidenceLow, total.Confidence)
		assert.True(t, total.Amount.Equal(decimal.NewFromInt(28)), "earliest record wins")
	})

	t.Run("tier 4: no data at all", func(t *testing.T) {
		resolver := NewResolver(&fakeSubmissionReader{}, &fakeRecordReader{})

		total, err := resolver.LastMonthTotal(context.Background(), testAsset, august)
		require.NoError(t, err)
		assert.Equal(t, SourceNone, total.Source)
		assert.Equal(t, ConfidenceLow, total.Confidence)
		assert.True(t, total.Amount.IsZero())
		assert.False(t, total.HasBaseline())
	})
}

func TestLastMonthTotal_MonthBoundarySafety(t *testing.T) {
	// A record dated the 1st of the current month must never be returned
	// as last month's total, even when a broken upstream filter hands it
	// back for the prior month.
	firstOfAugust := time.Date(2026, 8, 1, 0, 0, 1, 0, time.UTC)
	mislabeled := HistoryRecord{
		ID: uuid.New(), Quantity: decimal.NewFromInt(77),
		EventType: "periodic_check", RecordedAt: firstOfAugust,
	}
	resolver := NewResolver(
		&fakeSubmissionReader{byMonth: map[Month][]SubmissionRecord{
			july: {{
				ID:          uuid.New(),
				SubmittedAt: firstOfAugust,
				Values:      map[string]string{"total": "77"},
			}},
		}},
		&fakeRecordReader{byMonth: map[Month][]HistoryRecord{
			july:   {mislabeled},
			august: {mislabeled},
		}},
	)

	total, err := resolver.LastMonthTotal(context.Background(), testAsset, august)
	require.NoError(t, err)
	assert.Equal(t, SourceCalculated, total.Source, "must fall through to the proxy tier")
	assert.Contains(t, total.Details, "proxy")
}

func TestLastMonthTotal_YearRollover(t *testing.T) {
	decemberTime := time.Date(2025, 12, 30, 12, 0, 0, 0, time.UTC)
	resolver := NewResolver(
		&fakeSubmissionReader{byMonth: map[Month][]SubmissionRecord{
			december: {{
				ID:          uuid.New(),
				SubmittedAt: decemberTime,
				Values:      map[string]string{"ending_balance": "12"},
			}},
		}},
		&fakeRecordReader{},
	)

	total, err := resolver.LastMonthTotal(context.Background(), testAsset, january)
	require.NoError(t, err)
	assert.Equal(t, SourceFormSubmission, total.Source)
	assert.True(t, total.Amount.Equal(decimal.NewFromInt(12)))
}

func TestLastMonthTotal_ReadErrorsPropagate(t *testing.T) {
	readErr := errors.New("store unavailable")
	resolver := NewResolver(&fakeSubmissionReader{err: readErr}, &fakeRecordReader{})

	_, err := resolver.LastMonthTotal(context.Background(), testAsset, august)
	assert.ErrorIs(t, err, readErr)
}

func TestLastMonthTotal_Cache(t *testing.T) {
	cache := newFakeTotalCache()
	julyTime := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	submissions := &fakeSubmissionReader{byMonth: map[Month][]SubmissionRecord{
		july: {{ID: uuid.New(), SubmittedAt: julyTime, Values: map[string]string{"total": "5"}}},
	}}
	resolver := NewResolver(submissions, &fakeRecordReader{}, WithTotalCache(cache))

	first, err := resolver.LastMonthTotal(context.Background(), testAsset, august)
	require.NoError(t, err)

	// Underlying data changes; the cached answer for the same month sticks
	submissions.byMonth = nil
	second, err := resolver.LastMonthTotal(context.Background(), testAsset, august)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// A different query month keys a different cache entry
	september := august.Next()
	third, err := resolver.LastMonthTotal(context.Background(), testAsset, september)
	require.NoError(t, err)
	assert.Equal(t, SourceNone, third.Source)
}

func TestSourceRankMonotonicWithConfidence(t *testing.T) {
	amount := decimal.NewFromInt(1)
	totals := []HistoricalTotal{
		NewHistoricalTotal(amount, SourceFormSubmission, ""),
		NewHistoricalTotal(amount, SourceInventoryHistory, ""),
		NewHistoricalTotal(amount, SourceCalculated, ""),
		NoBaseline(""),
	}
	confRank := map[Confidence]int{ConfidenceLow: 1, ConfidenceMedium: 2, ConfidenceHigh: 3}
	for i := 1; i < len(totals); i++ {
		assert.GreaterOrEqual(t, totals[i-1].Source.Rank(), totals[i].Source.Rank())
		assert.GreaterOrEqual(t, confRank[totals[i-1].Confidence], confRank[totals[i].Confidence])
	}
}

func TestPredictNext(t *testing.T) {
	t.Run("needs two points", func(t *testing.T) {
		_, ok := PredictNext([]TrendPoint{{Month: july, Amount: decimal.NewFromInt(10)}})
		assert.False(t, ok)
	})

	t.Run("extrapolates the average delta", func(t *testing.T) {
		predicted, ok := PredictNext([]TrendPoint{
			{Month: Month{2026, time.May}, Amount: decimal.NewFromInt(100)},
			{Month: Month{2026, time.June}, Amount: decimal.NewFromInt(90)},
			{Month: july, Amount: decimal.NewFromInt(80)},
		})
		require.True(t, ok)
		assert.True(t, predicted.Equal(decimal.NewFromInt(70)), "got %s", predicted)
	})

	t.Run("never predicts below zero", func(t *testing.T) {
		predicted, ok := PredictNext([]TrendPoint{
			{Month: Month{2026, time.June}, Amount: decimal.NewFromInt(30)},
			{Month: july, Amount: decimal.NewFromInt(0)},
		})
		require.True(t, ok)
		assert.True(t, predicted.IsZero())
	})
}

func TestDataQualityScore(t *testing.T) {
	assert.Equal(t, 0, DataQualityScore(nil))
	assert.Equal(t, 100, DataQualityScore([]HistoricalTotal{
		NewHistoricalTotal(decimal.Zero, SourceFormSubmission, ""),
	}))
	assert.Equal(t, 56, DataQualityScore([]HistoricalTotal{
		NewHistoricalTotal(decimal.Zero, SourceFormSubmission, ""),
		NewHistoricalTotal(decimal.Zero, SourceCalculated, ""),
		NoBaseline(""),
		NewHistoricalTotal(decimal.Zero, SourceInventoryHistory, ""),
	}))
}

func TestPredictUsage(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	observation := func(daysAgo int, quantity int64) HistoryRecord {
		return HistoryRecord{
			ID:         uuid.New(),
			Quantity:   decimal.NewFromInt(quantity),
			EventType:  "periodic_check",
			RecordedAt: now.AddDate(0, 0, -daysAgo),
		}
	}

	t.Run("needs two observations in the window", func(t *testing.T) {
		_, ok := PredictUsage([]HistoryRecord{observation(5, 40)}, decimal.NewFromInt(40), now)
		assert.False(t, ok)

		// a second observation outside the window does not count
		_, ok = PredictUsage([]HistoryRecord{observation(5, 40), observation(45, 100)}, decimal.NewFromInt(40), now)
		assert.False(t, ok)
	})

	t.Run("sums per step decreases and projects depletion", func(t *testing.T) {
		records := []HistoryRecord{
			observation(2, 40),
			observation(10, 70),
			observation(20, 100),
		}
		prediction, ok := PredictUsage(records, decimal.NewFromInt(40), now)
		require.True(t, ok)

		// 60 units over 18 days
		assert.InDelta(t, 3.3333, prediction.DailyUsage.InexactFloat64(), 0.001)
		assert.Equal(t, 12, prediction.DaysUntilEmpty)
		assert.InDelta(t, 46.67, prediction.ReorderPoint.InexactFloat64(), 0.01)
		assert.Equal(t, 30, prediction.WindowDays)
	})

	t.Run("restocks do not count as negative usage", func(t *testing.T) {
		records := []HistoryRecord{
			observation(1, 90),
			observation(5, 100), // intake raised the quantity
			observation(11, 50),
		}
		prediction, ok := PredictUsage(records, decimal.NewFromInt(90), now)
		require.True(t, ok)

		// only the 100 to 90 drop counts, over 10 days
		assert.InDelta(t, 1.0, prediction.DailyUsage.InexactFloat64(), 0.001)
	})

	t.Run("no usage means no forecast", func(t *testing.T) {
		records := []HistoryRecord{
			observation(2, 100),
			observation(12, 100),
		}
		_, ok := PredictUsage(records, decimal.NewFromInt(100), now)
		assert.False(t, ok)
	})
}
