package tenant

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/assettrack/backend/internal/infrastructure/logger"
)

const tenantColumn = "tenant_id"

// EnableAutoTenantFilter registers callbacks that add a tenant_id condition
// to queries, updates, deletes, and row scans using the tenant carried in
// the statement context. Queries that already filter on tenant_id, and
// Unscoped queries, are left alone.
//
// When required is true a query without a tenant in context fails with
// ErrTenantIDRequired instead of running unfiltered.
func EnableAutoTenantFilter(db *gorm.DB, required bool) error {
	f := &contextFilter{required: required}
	cb := db.Callback()
	hooks := []struct {
		name     string
		register func(name string, fn func(*gorm.DB)) error
	}{
		{"tenant_filter:query", func(n string, fn func(*gorm.DB)) error {
			return cb.Query().Before("gorm:query").Register(n, fn)
		}},
		{"tenant_filter:update", func(n string, fn func(*gorm.DB)) error {
			return cb.Update().Before("gorm:update").Register(n, fn)
		}},
		{"tenant_filter:delete", func(n string, fn func(*gorm.DB)) error {
			return cb.Delete().Before("gorm:delete").Register(n, fn)
		}},
		{"tenant_filter:row", func(n string, fn func(*gorm.DB)) error {
			return cb.Row().Before("gorm:row").Register(n, fn)
		}},
	}
	for _, h := range hooks {
		if err := h.register(h.name, f.apply); err != nil {
			return err
		}
	}
	return nil
}

type contextFilter struct {
	required bool
}

func (f *contextFilter) apply(db *gorm.DB) {
	if db.Statement.Context == nil || db.Statement.Unscoped {
		return
	}
	if hasTenantCondition(db) {
		return
	}

	tenantID := logger.GetTenantID(db.Statement.Context)
	if tenantID == "" {
		if f.required {
			db.AddError(ErrTenantIDRequired)
		}
		return
	}
	if _, err := uuid.Parse(tenantID); err != nil {
		db.AddError(ErrInvalidTenantID)
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: clause.CurrentTable, Name: tenantColumn},
				Value:  tenantID,
			},
		},
	})
}

// hasTenantCondition reports whether the statement already constrains
// tenant_id, either through a clause expression or a raw SQL fragment.
func hasTenantCondition(db *gorm.DB) bool {
	c, ok := db.Statement.Clauses["WHERE"]
	if !ok {
		return false
	}
	where, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, expr := range where.Exprs {
		if exprMentionsTenant(expr) {
			return true
		}
	}
	return false
}

func exprMentionsTenant(expr clause.Expression) bool {
	switch e := expr.(type) {
	case clause.Eq:
		return columnIsTenant(e.Column)
	case clause.IN:
		return columnIsTenant(e.Column)
	case clause.Expr:
		return strings.Contains(e.SQL, tenantColumn)
	case clause.AndConditions:
		for _, sub := range e.Exprs {
			if exprMentionsTenant(sub) {
				return true
			}
		}
	case clause.OrConditions:
		for _, sub := range e.Exprs {
			if exprMentionsTenant(sub) {
				return true
			}
		}
	}
	return false
}

func columnIsTenant(column interface{}) bool {
	switch col := column.(type) {
	case clause.Column:
		return col.Name == tenantColumn
	case string:
		return strings.Contains(col, tenantColumn)
	}
	return false
}
