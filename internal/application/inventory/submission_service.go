package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/assettrack/backend/internal/domain/anomaly"
	"github.com/assettrack/backend/internal/domain/inventory"
	"github.com/assettrack/backend/internal/domain/reconcile"
	"github.com/assettrack/backend/internal/domain/shared"
)

// recentHistoryLimit is how many prior records feed the calculator's
// history comparison and the anomaly detector's systematic-pattern check
const recentHistoryLimit = 6

// SubmissionService runs the reconciliation pipeline for one submitted
// inventory form: validate against the form schema, compute the new
// quantity and change ledger, detect anomalies, and persist the asset
// update, history record, and submission atomically.
type SubmissionService struct {
	templates  inventory.FormTemplateRepository
	scope      TransactionScope
	calculator *reconcile.Calculator
	detector   *anomaly.Detector
	logger     *zap.Logger
	now        func() time.Time
}

// NewSubmissionService creates the submission pipeline service
func NewSubmissionService(
	templates inventory.FormTemplateRepository,
	scope TransactionScope,
	calculator *reconcile.Calculator,
	detector *anomaly.Detector,
	logger *zap.Logger,
) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		templates:  templates,
		scope:      scope,
		calculator: calculator,
		detector:   detector,
		logger:     logger,
		now:        time.Now,
	}
}

// Process reconciles one submission. A validation failure is not an error:
// it is returned as an unsuccessful response with the quantity untouched
// and the submission recorded as rejected. Errors mean the pipeline itself
// could not run (missing asset, store failure, version conflict).
func (s *SubmissionService) Process(ctx context.Context, req SubmitInventoryRequest) (*ReconciliationResponse, error) {
	if req.AssetID == uuid.Nil || req.FormID == uuid.Nil {
		return nil, shared.ErrInvalidInput
	}
	eventType := req.EventType
	if eventType == "" {
		eventType = inventory.EventPeriodicCheck
	}

	template, err := s.templates.FindByID(ctx, req.TenantID, req.FormID)
	if err != nil {
		return nil, err
	}
	fields, err := template.DecodeFields()
	if err != nil {
		return nil, err
	}

	var response *ReconciliationResponse
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		asset, err := repos.AssetRepo().FindByID(ctx, req.TenantID, req.AssetID)
		if err != nil {
			return err
		}
		recent, err := repos.RecordRepo().ListRecent(ctx, req.TenantID, req.AssetID, recentHistoryLimit)
		if err != nil {
			return err
		}
		metadata, err := asset.DecodeMetadata()
		if err != nil {
			return err
		}

		previousQuantity := asset.Quantity
		result := s.calculator.Calculate(reconcile.Input{
			CurrentQuantity: previousQuantity,
			Fields:          fields,
			Values:          reconcile.ParseValues(req.Values),
			AssetMetadata:   metadata,
			RecentHistory:   historyEntries(recent),
		})

		submission, err := inventory.NewFormSubmission(req.TenantID, req.AssetID, req.ActorID, req.Values, s.now())
		if err != nil {
			return err
		}
		submission.FormID = &template.ID
		if req.Notes != "" {
			submission.AttachNotes(req.Notes)
		}

		if !result.Success {
			if err := submission.Reject(); err != nil {
				return err
			}
			if err := repos.SubmissionRepo().Save(ctx, submission); err != nil {
				return err
			}
			response = buildResponse(submission, previousQuantity, result, nil)
			return nil
		}

		// A nil detector disables anomaly screening without changing the
		// rest of the pipeline.
		var detections []anomaly.Detection
		if s.detector != nil {
			detections = s.detector.Detect(
				anomaly.Event{Quantity: result.NewQuantity.InexactFloat64(), EventType: eventType, ActorID: actorString(req.ActorID), RecordedAt: s.now()},
				anomaly.Event{Quantity: previousQuantity.InexactFloat64()},
				asset.AnomalyCategory(),
				anomalyEvents(recent),
			)
		}

		if err := asset.ApplyQuantity(result.NewQuantity); err != nil {
			return err
		}
		if err := repos.AssetRepo().Save(ctx, asset); err != nil {
			return err
		}

		record, err := inventory.NewInventoryRecord(req.TenantID, req.AssetID, req.ActorID, eventType, previousQuantity, result)
		if err != nil {
			return err
		}
		if err := repos.RecordRepo().Append(ctx, record); err != nil {
			return err
		}

		if len(detections) > 0 {
			err = submission.MarkFlagged()
		} else {
			err = submission.MarkValidated()
		}
		if err != nil {
			return err
		}
		if err := repos.SubmissionRepo().Save(ctx, submission); err != nil {
			return err
		}

		if len(detections) > 0 {
			s.logger.Warn("submission flagged for review",
				zap.String("asset_id", req.AssetID.String()),
				zap.String("submission_id", submission.ID.String()),
				zap.Int("anomalies", len(detections)),
				zap.String("max_severity", string(anomaly.MaxSeverity(detections))),
			)
		}

		response = buildResponse(submission, previousQuantity, result, detections)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

func buildResponse(submission *inventory.FormSubmission, previous decimal.Decimal, result reconcile.CalculationResult, detections []anomaly.Detection) *ReconciliationResponse {
	return &ReconciliationResponse{
		SubmissionID:     submission.ID,
		Status:           submission.Status,
		Success:          result.Success,
		PreviousQuantity: previous,
		NewQuantity:      result.NewQuantity,
		NetChange:        result.Metadata.NetChange,
		Changes:          result.Changes,
		Errors:           result.Errors,
		Warnings:         result.Warnings,
		Anomalies:        detections,
	}
}

func historyEntries(records []inventory.InventoryRecord) []reconcile.HistoryEntry {
	entries := make([]reconcile.HistoryEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, reconcile.HistoryEntry{Quantity: r.Quantity, RecordedAt: r.CheckedAt})
	}
	return entries
}

func anomalyEvents(records []inventory.InventoryRecord) []anomaly.Event {
	events := make([]anomaly.Event, 0, len(records))
	for _, r := range records {
		events = append(events, anomaly.Event{
			Quantity:   r.Quantity.InexactFloat64(),
			EventType:  r.EventType,
			ActorID:    actorString(r.ActorID),
			RecordedAt: r.CheckedAt,
		})
	}
	return events
}

func actorString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
