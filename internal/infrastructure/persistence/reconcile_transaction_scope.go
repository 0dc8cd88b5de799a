package persistence

import (
	"context"

	"gorm.io/gorm"

	appinv "github.com/assettrack/backend/internal/application/inventory"
	"github.com/assettrack/backend/internal/domain/inventory"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// One submission writes the asset, the history record, and the submission
// row; they commit or roll back together.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// AssetRepo returns the asset repository scoped to the current transaction
func (r *gormTransactionalRepositories) AssetRepo() inventory.AssetRepository {
	return NewGormAssetRepository(r.tx)
}

// RecordRepo returns the history record repository scoped to the current transaction
func (r *gormTransactionalRepositories) RecordRepo() inventory.InventoryRecordRepository {
	return NewGormInventoryRecordRepository(r.tx)
}

// SubmissionRepo returns the form submission repository scoped to the current transaction
func (r *gormTransactionalRepositories) SubmissionRepo() inventory.FormSubmissionRepository {
	return NewGormFormSubmissionRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appinv.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appinv.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
