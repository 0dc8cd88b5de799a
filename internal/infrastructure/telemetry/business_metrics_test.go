package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/assettrack/backend/internal/infrastructure/telemetry"
)

func newBusinessMetrics(t *testing.T, review telemetry.ReviewMetricsProvider) *telemetry.BusinessMetrics {
	t.Helper()

	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:          noop.NewMeterProvider().Meter("test"),
		Logger:         zap.NewNop(),
		ReviewProvider: review,
	})
	require.NoError(t, err)
	return bm
}

type stubTenantProvider struct {
	tenantIDs []uuid.UUID
	err       error
}

func (s *stubTenantProvider) GetActiveTenantIDs(context.Context) ([]uuid.UUID, error) {
	return s.tenantIDs, s.err
}

type stubReviewProvider struct {
	flagged int64
	active  int64
	err     error
}

func (s *stubReviewProvider) GetFlaggedSubmissionCount(context.Context, uuid.UUID) (int64, error) {
	return s.flagged, s.err
}

func (s *stubReviewProvider) GetActiveAssetCount(context.Context, uuid.UUID) (int64, error) {
	return s.active, s.err
}

func TestNewBusinessMetrics_RequiresMeter(t *testing.T) {
	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Logger: zap.NewNop(),
	})

	require.Error(t, err)
	assert.Nil(t, bm)
	assert.Equal(t, "NewBusinessMetrics: meter cannot be nil", err.Error())
}

func TestBusinessMetrics_RecordingIsSafeOnNoopMeter(t *testing.T) {
	bm := newBusinessMetrics(t, nil)
	ctx := context.Background()
	site := uuid.New()

	// Each recorder must tolerate the no-op instruments OTEL hands out
	// when metrics are disabled.
	for _, outcome := range []telemetry.SubmissionOutcome{
		telemetry.SubmissionOutcomeValidated,
		telemetry.SubmissionOutcomeFlagged,
		telemetry.SubmissionOutcomeRejected,
	} {
		bm.RecordSubmission(ctx, site, outcome)
	}
	bm.RecordAnomaly(ctx, site, "massive_increase")
	bm.RecordAnomaly(ctx, site, "exact_hundred")
	bm.RecordCorrection(ctx, site)
	bm.RecordFlaggedBacklog(ctx, site, 3)
	bm.RecordFlaggedBacklog(ctx, site, 0)
	bm.RecordActiveAssetCount(ctx, site, 42)
}

func TestBusinessMetrics_PeriodicCollection(t *testing.T) {
	t.Run("samples the review backlog", func(t *testing.T) {
		bm := newBusinessMetrics(t, &stubReviewProvider{flagged: 3, active: 17})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		tenants := &stubTenantProvider{tenantIDs: []uuid.UUID{uuid.New()}}
		bm.StartPeriodicCollection(ctx, tenants, 100*time.Millisecond)
		time.Sleep(150 * time.Millisecond)
		bm.Stop()
	})

	t.Run("skips collection without a review provider", func(t *testing.T) {
		bm := newBusinessMetrics(t, nil)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		tenants := &stubTenantProvider{tenantIDs: []uuid.UUID{uuid.New()}}
		bm.StartPeriodicCollection(ctx, tenants, 50*time.Millisecond)
		time.Sleep(100 * time.Millisecond)
		bm.Stop()
	})

	t.Run("tolerates failing providers", func(t *testing.T) {
		bm := newBusinessMetrics(t, &stubReviewProvider{err: assert.AnError})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		tenants := &stubTenantProvider{tenantIDs: []uuid.UUID{uuid.New(), uuid.New()}}
		bm.StartPeriodicCollection(ctx, tenants, 50*time.Millisecond)
		time.Sleep(100 * time.Millisecond)
		bm.Stop()
	})

	t.Run("starts at most once", func(t *testing.T) {
		bm := newBusinessMetrics(t, nil)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		tenants := &stubTenantProvider{}
		bm.StartPeriodicCollection(ctx, tenants, time.Hour)
		bm.StartPeriodicCollection(ctx, tenants, time.Minute)
		bm.StartPeriodicCollection(ctx, tenants, time.Second)
		bm.Stop()
	})
}

func TestBusinessMetrics_StopIsIdempotent(t *testing.T) {
	bm := newBusinessMetrics(t, nil)

	bm.Stop()
	bm.Stop()
	bm.Stop()
}

func TestMetricsError_FormatsOpAndMessage(t *testing.T) {
	err := &telemetry.MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}
	assert.Equal(t, "NewBusinessMetrics: meter cannot be nil", err.Error())
}
