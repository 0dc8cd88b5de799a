package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/assettrack/backend/internal/domain/inventory"
	"github.com/assettrack/backend/internal/domain/reconcile"
	"github.com/assettrack/backend/internal/domain/shared"
)

// CorrectionService applies reviewed quantity corrections, typically a
// human accepting an anomaly's suggested fix. Corrections bypass the
// calculator but still append an audited history record.
type CorrectionService struct {
	scope  TransactionScope
	logger *zap.Logger
	now    func() time.Time
}

// NewCorrectionService creates the correction service
func NewCorrectionService(scope TransactionScope, logger *zap.Logger) *CorrectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CorrectionService{
		scope:  scope,
		logger: logger,
		now:    time.Now,
	}
}

// Apply sets the asset quantity to the corrected value and appends a
// correction record carrying the reason
func (s *CorrectionService) Apply(ctx context.Context, req ApplyCorrectionRequest) (*CorrectionResponse, error) {
	if req.AssetID == uuid.Nil {
		return nil, shared.ErrInvalidInput
	}
	if req.Quantity.IsNegative() {
		return nil, shared.ErrNegativeQuantity
	}

	var response *CorrectionResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		asset, err := repos.AssetRepo().FindByID(ctx, req.TenantID, req.AssetID)
		if err != nil {
			return err
		}

		previous := asset.Quantity
		if err := asset.ApplyQuantity(req.Quantity); err != nil {
			return err
		}
		if err := repos.AssetRepo().Save(ctx, asset); err != nil {
			return err
		}

		description := "manual correction"
		if req.Reason != "" {
			description = fmt.Sprintf("manual correction: %s", req.Reason)
		}
		result := reconcile.CalculationResult{
			Success:     true,
			NewQuantity: req.Quantity,
			Changes: []reconcile.InventoryChange{{
				Field:         "quantity",
				Action:        reconcile.ActionSet,
				Value:         req.Quantity,
				PreviousValue: &previous,
				Description:   description,
			}},
			Metadata: reconcile.Metadata{
				CalculatedAt: s.now(),
				NetChange:    req.Quantity.Sub(previous),
			},
		}
		record, err := inventory.NewInventoryRecord(req.TenantID, req.AssetID, req.ActorID, inventory.EventCorrection, previous, result)
		if err != nil {
			return err
		}
		if err := repos.RecordRepo().Append(ctx, record); err != nil {
			return err
		}

		s.logger.Info("quantity correction applied",
			zap.String("asset_id", req.AssetID.String()),
			zap.String("previous", previous.String()),
			zap.String("corrected", req.Quantity.String()),
		)

		response = &CorrectionResponse{
			AssetID:          asset.ID,
			PreviousQuantity: previous,
			NewQuantity:      asset.Quantity,
			RecordID:         record.ID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}
