package persistence

import "strings"

// SafeOrderClause builds an ORDER BY expression from caller-supplied
// sort parameters. The column must appear in the allow-list; anything
// else falls back to defaultField. The direction is DESC unless "asc"
// is requested. Both inputs can therefore be interpolated into SQL.
func SafeOrderClause(orderBy, orderDir string, allowed map[string]bool, defaultField string) string {
	column := strings.TrimSpace(orderBy)
	if column == "" || !allowed[column] {
		column = defaultField
	}

	direction := "DESC"
	if strings.EqualFold(strings.TrimSpace(orderDir), "asc") {
		direction = "ASC"
	}

	return column + " " + direction
}

// CommonSortFields are the columns every persisted entity carries.
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// AssetSortFields are the sortable columns of tracked assets.
var AssetSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"category":   true,
	"quantity":   true,
	"unit":       true,
	"active":     true,
}
