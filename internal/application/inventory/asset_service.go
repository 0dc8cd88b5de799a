package inventory

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/assettrack/backend/internal/domain/inventory"
	"github.com/assettrack/backend/internal/domain/shared"
)

// AssetService manages tracked assets and exposes their quantity history
type AssetService struct {
	assets  inventory.AssetRepository
	records inventory.InventoryRecordRepository
	logger  *zap.Logger
}

// NewAssetService creates the asset management service
func NewAssetService(assets inventory.AssetRepository, records inventory.InventoryRecordRepository, logger *zap.Logger) *AssetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssetService{
		assets:  assets,
		records: records,
		logger:  logger,
	}
}

// Create registers a new tracked asset
func (s *AssetService) Create(ctx context.Context, req CreateAssetRequest) (*AssetResponse, error) {
	asset, err := inventory.NewAsset(req.TenantID, req.Name, req.Category)
	if err != nil {
		return nil, err
	}
	asset.Unit = req.Unit
	if req.InitialQuantity.IsPositive() {
		if err := asset.ApplyQuantity(req.InitialQuantity); err != nil {
			return nil, err
		}
	}
	if len(req.Metadata) > 0 {
		if err := asset.SetMetadata(req.Metadata); err != nil {
			return nil, err
		}
	}

	if err := s.assets.Save(ctx, asset); err != nil {
		return nil, err
	}

	s.logger.Info("asset created",
		zap.String("asset_id", asset.ID.String()),
		zap.String("category", asset.Category),
	)

	response := NewAssetResponse(asset)
	return &response, nil
}

// Get returns one asset
func (s *AssetService) Get(ctx context.Context, tenantID, assetID uuid.UUID) (*AssetResponse, error) {
	asset, err := s.assets.FindByID(ctx, tenantID, assetID)
	if err != nil {
		return nil, err
	}
	response := NewAssetResponse(asset)
	return &response, nil
}

// List returns a tenant's assets with the total count
func (s *AssetService) List(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]AssetResponse, int64, error) {
	assets, total, err := s.assets.FindAll(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]AssetResponse, 0, len(assets))
	for i := range assets {
		responses = append(responses, NewAssetResponse(&assets[i]))
	}
	return responses, total, nil
}

// Update changes descriptive attributes of an asset
func (s *AssetService) Update(ctx context.Context, req UpdateAssetRequest) (*AssetResponse, error) {
	asset, err := s.assets.FindByID(ctx, req.TenantID, req.AssetID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, shared.NewDomainError("INVALID_NAME", "Asset name cannot be empty")
		}
		asset.Name = *req.Name
	}
	if req.Unit != nil {
		asset.Unit = *req.Unit
	}
	if req.Metadata != nil {
		if err := asset.SetMetadata(req.Metadata); err != nil {
			return nil, err
		}
	}
	asset.IncrementVersion()

	if err := s.assets.Save(ctx, asset); err != nil {
		return nil, err
	}
	response := NewAssetResponse(asset)
	return &response, nil
}

// Deactivate retires an asset from tracking without deleting its history
func (s *AssetService) Deactivate(ctx context.Context, tenantID, assetID uuid.UUID) error {
	asset, err := s.assets.FindByID(ctx, tenantID, assetID)
	if err != nil {
		return err
	}
	asset.Deactivate()
	return s.assets.Save(ctx, asset)
}

// History returns the most recent quantity records for an asset
func (s *AssetService) History(ctx context.Context, tenantID, assetID uuid.UUID, limit int) ([]RecordResponse, error) {
	if limit <= 0 {
		limit = recentHistoryLimit
	}
	records, err := s.records.ListRecent(ctx, tenantID, assetID, limit)
	if err != nil {
		return nil, err
	}
	responses := make([]RecordResponse, 0, len(records))
	for i := range records {
		responses = append(responses, NewRecordResponse(&records[i]))
	}
	return responses, nil
}
