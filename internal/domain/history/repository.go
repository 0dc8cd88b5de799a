package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubmissionRecord is a prior form submission as the resolver sees it:
// submission time plus the raw field values keyed by field key or label
type SubmissionRecord struct {
	ID          uuid.UUID
	SubmittedAt time.Time
	Values      map[string]string
}

// HistoryRecord is one persisted quantity observation
type HistoryRecord struct {
	ID         uuid.UUID
	Quantity   decimal.Decimal
	EventType  string
	ActorID    string
	RecordedAt time.Time
}

// SubmissionReader reads prior submissions for an asset. Implementations
// return newest first.
type SubmissionReader interface {
	ListForMonth(ctx context.Context, assetID uuid.UUID, month Month) ([]SubmissionRecord, error)
}

// RecordReader reads quantity history for an asset. Implementations return
// newest first.
type RecordReader interface {
	ListForMonth(ctx context.Context, assetID uuid.UUID, month Month) ([]HistoryRecord, error)
}

// TotalCache caches resolved totals per (asset, month). Keys carry the
// month, so a request after a month rollover can never hit the previous
// month's entry regardless of TTL.
type TotalCache interface {
	Get(ctx context.Context, assetID uuid.UUID, month Month) (HistoricalTotal, bool)
	Set(ctx context.Context, assetID uuid.UUID, month Month, total HistoricalTotal)
}
