package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/assettrack/backend/internal/domain/history"
	"github.com/assettrack/backend/internal/domain/inventory"
	"github.com/assettrack/backend/internal/domain/shared"
)

// submissionReader adapts the submission repository to the resolver's
// read interface, pinning the tenant
type submissionReader struct {
	tenantID uuid.UUID
	repo     inventory.FormSubmissionRepository
}

func (r submissionReader) ListForMonth(ctx context.Context, assetID uuid.UUID, month history.Month) ([]history.SubmissionRecord, error) {
	submissions, err := r.repo.ListForMonth(ctx, r.tenantID, assetID, month)
	if err != nil {
		return nil, err
	}
	records := make([]history.SubmissionRecord, 0, len(submissions))
	for i := range submissions {
		values, err := submissions[i].DecodeValues()
		if err != nil {
			return nil, err
		}
		records = append(records, history.SubmissionRecord{
			ID:          submissions[i].ID,
			SubmittedAt: submissions[i].SubmittedAt,
			Values:      values,
		})
	}
	return records, nil
}

// recordReader adapts the history record repository the same way
type recordReader struct {
	tenantID uuid.UUID
	repo     inventory.InventoryRecordRepository
}

func (r recordReader) ListForMonth(ctx context.Context, assetID uuid.UUID, month history.Month) ([]history.HistoryRecord, error) {
	records, err := r.repo.ListForMonth(ctx, r.tenantID, assetID, month)
	if err != nil {
		return nil, err
	}
	out := make([]history.HistoryRecord, 0, len(records))
	for i := range records {
		actor := ""
		if records[i].ActorID != nil {
			actor = records[i].ActorID.String()
		}
		out = append(out, history.HistoryRecord{
			ID:         records[i].ID,
			Quantity:   records[i].Quantity,
			EventType:  records[i].EventType,
			ActorID:    actor,
			RecordedAt: records[i].CheckedAt,
		})
	}
	return out, nil
}

// ReportingService answers baseline and trend questions over persisted
// submissions and history records
type ReportingService struct {
	assets      inventory.AssetRepository
	submissions inventory.FormSubmissionRepository
	records     inventory.InventoryRecordRepository
	cache       history.TotalCache
	logger      *zap.Logger
}

// NewReportingService creates the reporting service. A nil cache disables
// total caching.
func NewReportingService(
	assets inventory.AssetRepository,
	submissions inventory.FormSubmissionRepository,
	records inventory.InventoryRecordRepository,
	cache history.TotalCache,
	logger *zap.Logger,
) *ReportingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportingService{
		assets:      assets,
		submissions: submissions,
		records:     records,
		cache:       cache,
		logger:      logger,
	}
}

func (s *ReportingService) resolver(tenantID uuid.UUID) *history.Resolver {
	opts := []history.ResolverOption{}
	if s.cache != nil {
		opts = append(opts, history.WithTotalCache(s.cache))
	}
	return history.NewResolver(
		submissionReader{tenantID: tenantID, repo: s.submissions},
		recordReader{tenantID: tenantID, repo: s.records},
		opts...,
	)
}

// rejectFutureMonth fails requests anchored past the calendar month,
// where no submissions or records can exist yet
func rejectFutureMonth(month history.Month) error {
	if history.MonthOf(time.Now()).Before(month) {
		return shared.ErrFutureMonth
	}
	return nil
}

// LastMonthTotal resolves the ending quantity of the month before current
func (s *ReportingService) LastMonthTotal(ctx context.Context, tenantID, assetID uuid.UUID, current history.Month) (history.HistoricalTotal, error) {
	if err := rejectFutureMonth(current); err != nil {
		return history.HistoricalTotal{}, err
	}
	return s.resolver(tenantID).LastMonthTotal(ctx, assetID, current)
}

// MonthlyTotalsResponse is a resolved per-month total series with a trend
// extrapolation and an aggregate provenance grade
type MonthlyTotalsResponse struct {
	AssetID   uuid.UUID                `json:"asset_id"`
	Totals    []MonthlyTotal           `json:"totals"`
	Predicted *history.HistoricalTotal `json:"predicted,omitempty"`
	Quality   int                      `json:"quality"`
}

// MonthlyTotal is one month's resolved total
type MonthlyTotal struct {
	Month string                  `json:"month"`
	Total history.HistoricalTotal `json:"total"`
}

// MonthlyTotals resolves the totals of the months months before current,
// oldest first, then extrapolates the next value and grades the series
func (s *ReportingService) MonthlyTotals(ctx context.Context, tenantID, assetID uuid.UUID, current history.Month, months int) (*MonthlyTotalsResponse, error) {
	if err := rejectFutureMonth(current); err != nil {
		return nil, err
	}
	if months <= 0 {
		months = 3
	}
	resolver := s.resolver(tenantID)

	response := &MonthlyTotalsResponse{AssetID: assetID}
	points := make([]history.TrendPoint, 0, months)
	totals := make([]history.HistoricalTotal, 0, months)

	// LastMonthTotal looks one month back, so walk forward ending at current
	month := current
	for i := 0; i < months-1; i++ {
		month = month.Prev()
	}
	for i := 0; i < months; i++ {
		total, err := resolver.LastMonthTotal(ctx, assetID, month)
		if err != nil {
			return nil, err
		}
		response.Totals = append(response.Totals, MonthlyTotal{
			Month: month.Prev().String(),
			Total: total,
		})
		totals = append(totals, total)
		if total.HasBaseline() {
			points = append(points, history.TrendPoint{Month: month.Prev(), Amount: total.Amount})
		}
		month = month.Next()
	}

	response.Quality = history.DataQualityScore(totals)
	if predicted, ok := history.PredictNext(points); ok {
		t := history.NewHistoricalTotal(predicted, history.SourceCalculated, "extrapolated from monthly trend")
		response.Predicted = &t
	}
	return response, nil
}

// ConsistencyGap is one break in the recorded quantity chain: a record
// whose stored previous quantity does not match the record before it
type ConsistencyGap struct {
	RecordID uuid.UUID `json:"record_id"`
	Expected string    `json:"expected"`
	Stored   string    `json:"stored"`
}

// Discrepancy thresholds as percentages of the submitted total.
const (
	consistencyReviewPct  = 5
	consistencyRecountPct = 20
)

// ConsistencyReport compares the live quantity against the month's
// submitted total and lists breaks in the recorded quantity chain
type ConsistencyReport struct {
	AssetID        uuid.UUID        `json:"asset_id"`
	Month          string           `json:"month"`
	Consistent     bool             `json:"consistent"`
	LiveQuantity   decimal.Decimal  `json:"live_quantity"`
	SubmittedTotal *decimal.Decimal `json:"submitted_total,omitempty"`
	DiscrepancyPct *decimal.Decimal `json:"discrepancy_pct,omitempty"`
	Recommendation string           `json:"recommendation"`
	Gaps           []ConsistencyGap `json:"gaps,omitempty"`
}

// CheckConsistency audits one month of an asset's records. It walks them
// oldest first reporting every record whose previous-quantity link
// disagrees with its predecessor, then compares the asset's live quantity
// against the month's submitted total and grades the discrepancy.
func (s *ReportingService) CheckConsistency(ctx context.Context, tenantID, assetID uuid.UUID, month history.Month) (*ConsistencyReport, error) {
	if err := rejectFutureMonth(month); err != nil {
		return nil, err
	}
	asset, err := s.assets.FindByID(ctx, tenantID, assetID)
	if err != nil {
		return nil, err
	}
	records, err := s.records.ListForMonth(ctx, tenantID, assetID, month)
	if err != nil {
		return nil, err
	}

	// repository returns newest first
	var gaps []ConsistencyGap
	for i := len(records) - 2; i >= 0; i-- {
		prev := records[i+1]
		curr := records[i]
		if !curr.PreviousQuantity.Equal(prev.Quantity) {
			gaps = append(gaps, ConsistencyGap{
				RecordID: curr.ID,
				Expected: prev.Quantity.String(),
				Stored:   curr.PreviousQuantity.String(),
			})
		}
	}
	if len(gaps) > 0 {
		s.logger.Warn("quantity chain gaps detected",
			zap.String("asset_id", assetID.String()),
			zap.String("month", month.String()),
			zap.Int("gaps", len(gaps)),
		)
	}

	report := &ConsistencyReport{
		AssetID:      assetID,
		Month:        month.String(),
		LiveQuantity: asset.Quantity,
		Gaps:         gaps,
	}

	// The submitted baseline is the month's ending total, resolved the
	// same way last-month reports resolve it. Record and proxy tiers are
	// not a submitted figure, so they are not compared against.
	total, err := s.resolver(tenantID).LastMonthTotal(ctx, assetID, month.Next())
	if err != nil {
		return nil, err
	}
	if total.Source != history.SourceFormSubmission {
		report.Consistent = len(gaps) == 0
		report.Recommendation = "no submitted total to compare against"
		return report, nil
	}

	submitted := total.Amount
	report.SubmittedTotal = &submitted
	pct := discrepancyPct(asset.Quantity, submitted)
	report.DiscrepancyPct = &pct

	switch {
	case pct.GreaterThan(decimal.NewFromInt(consistencyRecountPct)):
		report.Recommendation = "schedule a physical recount"
	case pct.GreaterThan(decimal.NewFromInt(consistencyReviewPct)):
		report.Recommendation = "review recent submissions for missed events"
	default:
		report.Recommendation = "quantities agree within tolerance"
		report.Consistent = len(gaps) == 0
	}
	return report, nil
}

// discrepancyPct is the absolute difference as a percentage of the
// submitted total. A zero submitted total with stock on hand counts as a
// full discrepancy.
func discrepancyPct(live, submitted decimal.Decimal) decimal.Decimal {
	diff := live.Sub(submitted).Abs()
	if submitted.IsZero() {
		if diff.IsZero() {
			return decimal.Zero
		}
		return decimal.NewFromInt(100)
	}
	return diff.Div(submitted).Mul(decimal.NewFromInt(100)).Round(2)
}

// UsageForecastResponse carries the consumption projection for an asset.
// A nil forecast means the trailing window held too little history.
type UsageForecastResponse struct {
	AssetID  uuid.UUID                `json:"asset_id"`
	Quantity decimal.Decimal          `json:"quantity"`
	Forecast *history.UsagePrediction `json:"forecast,omitempty"`
}

// usageSampleLimit bounds how many records feed the forecast; the 30 day
// window trims the rest.
const usageSampleLimit = 200

// PredictUsage projects the asset's consumption rate, days until empty
// and reorder point from its recent quantity history
func (s *ReportingService) PredictUsage(ctx context.Context, tenantID, assetID uuid.UUID) (*UsageForecastResponse, error) {
	asset, err := s.assets.FindByID(ctx, tenantID, assetID)
	if err != nil {
		return nil, err
	}
	records, err := s.records.ListRecent(ctx, tenantID, assetID, usageSampleLimit)
	if err != nil {
		return nil, err
	}

	observations := make([]history.HistoryRecord, 0, len(records))
	for i := range records {
		observations = append(observations, history.HistoryRecord{
			ID:         records[i].ID,
			Quantity:   records[i].Quantity,
			EventType:  records[i].EventType,
			RecordedAt: records[i].CheckedAt,
		})
	}

	response := &UsageForecastResponse{AssetID: assetID, Quantity: asset.Quantity}
	if prediction, ok := history.PredictUsage(observations, asset.Quantity, time.Now()); ok {
		response.Forecast = &prediction
	}
	return response, nil
}
