package warehouse

import (
	"fmt"
	"strings"
)

// WithLimit appends a result-set cap to query. A non-positive limit leaves
// the query unchanged.
func WithLimit(query string, limit int) string {
	if limit <= 0 {
		return query
	}
	trimmed := strings.TrimRight(strings.TrimSpace(query), ";")
	return fmt.Sprintf("%s LIMIT %d", strings.TrimSpace(trimmed), limit)
}

// SelectAll builds a full-table select for the driver's dialect
func SelectAll(d Driver, table string, limit int) string {
	quoted := QuoteIdentifier(d, table)
	if d == DriverSQLServer {
		if limit > 0 {
			return fmt.Sprintf("SELECT TOP (%d) * FROM %s", limit, quoted)
		}
		return fmt.Sprintf("SELECT * FROM %s", quoted)
	}
	return WithLimit(fmt.Sprintf("SELECT * FROM %s", quoted), limit)
}

// QuoteIdentifier quotes a possibly schema-qualified identifier
func QuoteIdentifier(d Driver, name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		switch d {
		case DriverMySQL:
			parts[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
		case DriverSQLServer:
			parts[i] = "[" + strings.ReplaceAll(p, "]", "]]") + "]"
		default:
			parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
		}
	}
	return strings.Join(parts, ".")
}
