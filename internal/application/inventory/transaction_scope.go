package inventory

import (
	"context"

	"github.com/assettrack/backend/internal/domain/inventory"
)

// TransactionScope provides transactional access to the reconciliation
// repositories. A submission applies an asset update, a history record,
// and the submission row together; they commit or roll back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the repositories scoped to one
// transaction. All of them share the same underlying database transaction.
type TransactionalRepositories interface {
	// AssetRepo returns the asset repository scoped to the transaction
	AssetRepo() inventory.AssetRepository
	// RecordRepo returns the history record repository scoped to the transaction
	RecordRepo() inventory.InventoryRecordRepository
	// SubmissionRepo returns the form submission repository scoped to the transaction
	SubmissionRepo() inventory.FormSubmissionRepository
}

// NoOpTransactionScope runs the function without a real transaction.
// Useful for tests and for callers that bring their own atomicity.
type NoOpTransactionScope struct {
	assetRepo      inventory.AssetRepository
	recordRepo     inventory.InventoryRecordRepository
	submissionRepo inventory.FormSubmissionRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given repositories
func NewNoOpTransactionScope(
	assetRepo inventory.AssetRepository,
	recordRepo inventory.InventoryRecordRepository,
	submissionRepo inventory.FormSubmissionRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		assetRepo:      assetRepo,
		recordRepo:     recordRepo,
		submissionRepo: submissionRepo,
	}
}

// Execute runs the function directly
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// AssetRepo returns the asset repository
func (s *NoOpTransactionScope) AssetRepo() inventory.AssetRepository {
	return s.assetRepo
}

// RecordRepo returns the history record repository
func (s *NoOpTransactionScope) RecordRepo() inventory.InventoryRecordRepository {
	return s.recordRepo
}

// SubmissionRepo returns the form submission repository
func (s *NoOpTransactionScope) SubmissionRepo() inventory.FormSubmissionRepository {
	return s.submissionRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
