package history

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// totalKeyMarkers are the substrings that make a submission field key look
// like an ending total
var totalKeyMarkers = []string{"total", "ending", "balance"}

// periodicEventMarkers identify history records written by a periodic count
var periodicEventMarkers = []string{"periodic", "check"}

// Resolver reconstructs "last month's ending quantity" for an asset through
// a tiered fallback search. Tiers are attempted in order and each is only
// consulted when the previous one yields nothing:
//
//  1. A prior-month submission carrying a total-like field (high confidence)
//  2. A prior-month periodic history record (medium confidence)
//  3. The earliest current-month record as a proxy baseline (low confidence)
//  4. No data at all (source none)
type Resolver struct {
	submissions SubmissionReader
	records     RecordReader
	cache       TotalCache
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithTotalCache adds a per-(asset, month) cache in front of the lookups
func WithTotalCache(cache TotalCache) ResolverOption {
	return func(r *Resolver) { r.cache = cache }
}

// NewResolver creates a historical total resolver
func NewResolver(submissions SubmissionReader, records RecordReader, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		submissions: submissions,
		records:     records,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LastMonthTotal resolves the ending quantity of the month before current.
// Exhausting every tier is not an error; the tier-4 answer documents the
// absence of data. Only store read failures surface as errors.
func (r *Resolver) LastMonthTotal(ctx context.Context, assetID uuid.UUID, current Month) (HistoricalTotal, error) {
	if r.cache != nil {
		if total, ok := r.cache.Get(ctx, assetID, current); ok {
			return total, nil
		}
	}

	total, err := r.resolve(ctx, assetID, current)
	if err != nil {
		return HistoricalTotal{}, err
	}
	if r.cache != nil {
		r.cache.Set(ctx, assetID, current, total)
	}
	return total, nil
}

func (r *Resolver) resolve(ctx context.Context, assetID uuid.UUID, current Month) (HistoricalTotal, error) {
	previous := current.Prev()

	// Tier 1: prior-month submission with a total-like field
	if r.submissions != nil {
		submissions, err := r.submissions.ListForMonth(ctx, assetID, previous)
		if err != nil {
			return HistoricalTotal{}, err
		}
		for _, sub := range submissions {
			// Reject anything actually dated in the current month even if
			// an upstream filter let it through
			if current.Contains(sub.SubmittedAt) {
				continue
			}
			if key, amount, ok := findTotalField(sub.Values); ok {
				details := fmt.Sprintf("submission %s field %q at %s", sub.ID, key, sub.SubmittedAt.UTC().Format("2006-01-02"))
				return NewHistoricalTotal(amount, SourceFormSubmission, details), nil
			}
		}
	}

	// Tier 2: prior-month periodic history record
	if r.records != nil {
		records, err := r.records.ListForMonth(ctx, assetID, previous)
		if err != nil {
			return HistoricalTotal{}, err
		}
		for _, rec := range records {
			if current.Contains(rec.RecordedAt) {
				continue
			}
			if isPeriodicEvent(rec.EventType) {
				details := fmt.Sprintf("history record %s (%s) at %s", rec.ID, rec.EventType, rec.RecordedAt.UTC().Format("2006-01-02"))
				return NewHistoricalTotal(rec.Quantity, SourceInventoryHistory, details), nil
			}
		}

		// Tier 3: earliest current-month record as a proxy starting point
		currentRecords, err := r.records.ListForMonth(ctx, assetID, current)
		if err != nil {
			return HistoricalTotal{}, err
		}
		if len(currentRecords) > 0 {
			earliest := currentRecords[len(currentRecords)-1]
			for _, rec := range currentRecords {
				if rec.RecordedAt.Before(earliest.RecordedAt) {
					earliest = rec
				}
			}
			details := fmt.Sprintf("earliest record of %s at %s used as proxy", current, earliest.RecordedAt.UTC().Format("2006-01-02"))
			return NewHistoricalTotal(earliest.Quantity, SourceCalculated, details), nil
		}
	}

	// Tier 4: nothing anywhere
	return NoBaseline(fmt.Sprintf("no data for %s or %s", previous, current)), nil
}

// findTotalField scans submission values for a total-like numeric field.
// Keys are visited in sorted order so ties resolve deterministically.
func findTotalField(values map[string]string) (string, decimal.Decimal, bool) {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if !isTotalKey(key) {
			continue
		}
		if amount, err := decimal.NewFromString(strings.TrimSpace(values[key])); err == nil {
			return key, amount, true
		}
	}
	return "", decimal.Zero, false
}

func isTotalKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range totalKeyMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func isPeriodicEvent(eventType string) bool {
	lower := strings.ToLower(eventType)
	for _, marker := range periodicEventMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
