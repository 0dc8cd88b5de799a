// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReviewMetricsProvider implements ReviewMetricsProvider using GORM.
// It queries the form_submissions and assets tables directly for counts.
type GormReviewMetricsProvider struct {
	db *gorm.DB
}

// NewGormReviewMetricsProvider creates a new GormReviewMetricsProvider.
func NewGormReviewMetricsProvider(db *gorm.DB) *GormReviewMetricsProvider {
	return &GormReviewMetricsProvider{db: db}
}

// GetFlaggedSubmissionCount returns the number of submissions awaiting anomaly review.
func (p *GormReviewMetricsProvider) GetFlaggedSubmissionCount(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("form_submissions").
		Where("tenant_id = ? AND status = ?", tenantID, "flagged").
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// GetActiveAssetCount returns the number of active tracked assets for a tenant.
func (p *GormReviewMetricsProvider) GetActiveAssetCount(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("assets").
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormReviewMetricsProvider implements ReviewMetricsProvider
var _ ReviewMetricsProvider = (*GormReviewMetricsProvider)(nil)
