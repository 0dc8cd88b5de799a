package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when NewBusinessMetrics is given no meter.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError describes a failure while setting up or recording metrics.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// BusinessMetrics tracks inventory reconciliation activity: submission
// outcomes, anomaly detections, manual corrections, and review backlog.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	submissionTotal *Counter
	anomalyTotal    *Counter
	correctionTotal *Counter

	flaggedBacklog   *Gauge
	activeAssetCount *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	reviewProvider ReviewMetricsProvider
}

// ReviewMetricsProvider supplies review-queue state for periodic collection.
// The interface keeps the telemetry layer from depending on the inventory
// domain directly.
type ReviewMetricsProvider interface {
	// GetFlaggedSubmissionCount returns the number of submissions awaiting review
	GetFlaggedSubmissionCount(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// GetActiveAssetCount returns the number of active tracked assets
	GetActiveAssetCount(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	ReviewProvider  ReviewMetricsProvider
}

// NewBusinessMetrics registers the reconciliation instruments on the
// given meter.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:          cfg.Meter,
		logger:         logger,
		stopChan:       make(chan struct{}),
		reviewProvider: cfg.ReviewProvider,
	}

	counters := []struct {
		dst        **Counter
		name, desc string
		unit       string
	}{
		{&bm.submissionTotal, "assettrack_submission_total", "Total number of inventory submissions processed", "{submissions}"},
		{&bm.anomalyTotal, "assettrack_anomaly_total", "Total number of anomaly detections raised", "{detections}"},
		{&bm.correctionTotal, "assettrack_correction_total", "Total number of manual quantity corrections applied", "{corrections}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(cfg.Meter, c.name, c.desc, c.unit)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	gauges := []struct {
		dst        **Gauge
		name, desc string
		unit       string
	}{
		{&bm.flaggedBacklog, "assettrack_flagged_backlog", "Submissions currently awaiting anomaly review", "{submissions}"},
		{&bm.activeAssetCount, "assettrack_active_assets", "Number of active tracked assets", "{assets}"},
	}
	for _, g := range gauges {
		gauge, err := NewGauge(cfg.Meter, g.name, g.desc, g.unit)
		if err != nil {
			return nil, err
		}
		*g.dst = gauge
	}

	return bm, nil
}

// SubmissionOutcome labels how a submission was settled.
type SubmissionOutcome string

const (
	SubmissionOutcomeValidated SubmissionOutcome = "validated"
	SubmissionOutcomeFlagged   SubmissionOutcome = "flagged"
	SubmissionOutcomeRejected  SubmissionOutcome = "rejected"
)

// RecordSubmission records a processed inventory submission.
// Call this from the application layer after the submission is settled.
func (bm *BusinessMetrics) RecordSubmission(ctx context.Context, tenantID uuid.UUID, outcome SubmissionOutcome) {
	bm.submissionTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrSubmissionOutcome.String(string(outcome)),
	)
}

// RecordAnomaly records one anomaly detection by type.
func (bm *BusinessMetrics) RecordAnomaly(ctx context.Context, tenantID uuid.UUID, anomalyType string) {
	bm.anomalyTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrAnomalyType.String(anomalyType),
	)
}

// RecordCorrection records a manual quantity correction.
func (bm *BusinessMetrics) RecordCorrection(ctx context.Context, tenantID uuid.UUID) {
	bm.correctionTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
	)
}

// RecordFlaggedBacklog records the current review backlog for a tenant.
func (bm *BusinessMetrics) RecordFlaggedBacklog(ctx context.Context, tenantID uuid.UUID, count int64) {
	bm.flaggedBacklog.Record(ctx, count,
		AttrTenantID.String(tenantID.String()),
	)
}

// RecordActiveAssetCount records the current active asset count for a tenant.
func (bm *BusinessMetrics) RecordActiveAssetCount(ctx context.Context, tenantID uuid.UUID, count int64) {
	bm.activeAssetCount.Record(ctx, count,
		AttrTenantID.String(tenantID.String()),
	)
}

// TenantProvider provides tenant IDs for periodic metrics collection.
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection refreshes the gauge metrics on the given
// interval until Stop is called or ctx is cancelled. It returns
// immediately; repeated calls are ignored.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.collectLoop(ctx, tenantProvider, interval)
	})
}

func (bm *BusinessMetrics) collectLoop(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// First sample right away rather than one interval in.
	bm.collectBacklog(ctx, tenantProvider)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("stopping business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("context cancelled, stopping business metrics collection")
			return
		case <-ticker.C:
			bm.collectBacklog(ctx, tenantProvider)
		}
	}
}

func (bm *BusinessMetrics) collectBacklog(ctx context.Context, tenantProvider TenantProvider) {
	if bm.reviewProvider == nil {
		bm.logger.Debug("no review provider configured, skipping backlog collection")
		return
	}

	tenantIDs, err := tenantProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		bm.logger.Error("failed to list tenants for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		bm.collectTenantBacklog(ctx, tenantID)
	}
}

// collectTenantBacklog samples both gauges for one tenant. A failed
// sample is logged and skipped so the other gauge and the remaining
// tenants still get fresh values.
func (bm *BusinessMetrics) collectTenantBacklog(ctx context.Context, tenantID uuid.UUID) {
	if flagged, err := bm.reviewProvider.GetFlaggedSubmissionCount(ctx, tenantID); err != nil {
		bm.logger.Warn("failed to count flagged submissions",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		bm.RecordFlaggedBacklog(ctx, tenantID, flagged)
	}

	if active, err := bm.reviewProvider.GetActiveAssetCount(ctx, tenantID); err != nil {
		bm.logger.Warn("failed to count active assets",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		bm.RecordActiveAssetCount(ctx, tenantID, active)
	}
}

// Stop ends periodic collection. Safe to call more than once.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}
