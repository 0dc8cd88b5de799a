package inventory

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/assettrack/backend/internal/domain/shared"
)

// SubmissionStatus tracks where a submission sits in the review flow
type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionValidated SubmissionStatus = "validated"
	SubmissionFlagged   SubmissionStatus = "flagged"
	SubmissionRejected  SubmissionStatus = "rejected"
)

// FormSubmission is one submitted inventory form. Raw field values are kept
// verbatim so historical totals can later be mined out of them.
type FormSubmission struct {
	shared.TenantAggregateRoot
	AssetID     uuid.UUID        `gorm:"type:uuid;not null;index:idx_form_submissions_asset_submitted,priority:1"`
	FormID      *uuid.UUID       `gorm:"type:uuid"`
	ActorID     *uuid.UUID       `gorm:"type:uuid"`
	Values      string           `gorm:"type:jsonb;not null;default:'{}'"` // field key -> raw value
	Status      SubmissionStatus `gorm:"type:varchar(16);not null;default:'pending'"`
	Notes       string           `gorm:"type:text"` // human validation notes collected for large swings
	SubmittedAt time.Time        `gorm:"not null;index:idx_form_submissions_asset_submitted,priority:2,sort:desc"`
}

// TableName returns the table name for GORM
func (FormSubmission) TableName() string {
	return "form_submissions"
}

// NewFormSubmission creates a pending submission
func NewFormSubmission(tenantID, assetID uuid.UUID, actorID *uuid.UUID, values map[string]string, submittedAt time.Time) (*FormSubmission, error) {
	if assetID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ASSET", "Asset ID cannot be empty")
	}

	encoded, err := json.Marshal(values)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_VALUES", "Submission values cannot be serialized")
	}

	return &FormSubmission{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		AssetID:             assetID,
		ActorID:             actorID,
		Values:              string(encoded),
		Status:              SubmissionPending,
		SubmittedAt:         submittedAt,
	}, nil
}

// DecodeValues returns the raw field values
func (s *FormSubmission) DecodeValues() (map[string]string, error) {
	values := make(map[string]string)
	if err := json.Unmarshal([]byte(s.Values), &values); err != nil {
		return nil, shared.NewDomainError("INVALID_VALUES", "Stored submission values are not valid JSON")
	}
	return values, nil
}

// MarkValidated records that reconciliation succeeded without flags
func (s *FormSubmission) MarkValidated() error {
	return s.transition(SubmissionValidated)
}

// MarkFlagged records that reconciliation raised anomalies needing review
func (s *FormSubmission) MarkFlagged() error {
	return s.transition(SubmissionFlagged)
}

// Reject closes a flagged submission without applying it
func (s *FormSubmission) Reject() error {
	if s.Status != SubmissionFlagged && s.Status != SubmissionPending {
		return shared.ErrInvalidState
	}
	return s.transition(SubmissionRejected)
}

// AttachNotes stores human validation notes alongside the submission
func (s *FormSubmission) AttachNotes(notes string) {
	s.Notes = notes
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
}

func (s *FormSubmission) transition(to SubmissionStatus) error {
	if s.Status == to {
		return nil
	}
	if s.Status == SubmissionRejected {
		return shared.ErrInvalidState
	}
	s.Status = to
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	return nil
}
