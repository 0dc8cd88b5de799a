// Package testutil carries shared fixtures for the reconciliation test
// suites: a sqlmock-backed GORM handle and deterministic tenant, user, and
// asset identifiers.
package testutil

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// MockDB wraps a GORM database backed by sqlmock.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB opens a GORM connection over sqlmock. The connection is closed
// automatically when the test ends.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")
	t.Cleanup(func() { _ = sqlDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       sqlDB,
		DriverName: "postgres",
	}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err, "Failed to open GORM connection")

	return &MockDB{
		DB:    gormDB,
		Mock:  mock,
		SqlDB: sqlDB,
	}
}

// ExpectationsWereMet fails the test if any expected query did not run.
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet(), "Unmet database expectations")
}

// NewTestUUID derives a reproducible UUID from a seed string, so fixtures
// keep stable identifiers across test runs.
func NewTestUUID(seed string) uuid.UUID {
	namespace := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	return uuid.NewSHA1(namespace, []byte(seed))
}

// TenantID returns the stable identifier for a named warehouse tenant.
func TenantID(code string) uuid.UUID {
	return NewTestUUID("tenant:" + code)
}

// AssetID returns the stable identifier for a named asset.
func AssetID(name string) uuid.UUID {
	return NewTestUUID("asset:" + name)
}

// UserID returns the stable identifier for a named user.
func UserID(name string) uuid.UUID {
	return NewTestUUID("user:" + name)
}
