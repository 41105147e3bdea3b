package export

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"vetbiz/internal/common"
	"vetbiz/internal/record"
	"vetbiz/pkg/errors"
)

// SQLiteSink writes each table into a SQLite database file, replacing any
// table of the same name from a previous run.
type SQLiteSink struct {
	db   *sql.DB
	path string
}

// NewSQLiteSink opens (or creates) the database at path
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	cleaned, err := common.CleanPath(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExportFailed, "Invalid SQLite path").
			WithContext("path", path)
	}

	db, err := sql.Open("sqlite", cleaned)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExportFailed, "Failed to open SQLite database").
			WithContext("path", cleaned)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeExportFailed, "Failed to configure SQLite database").
			WithContext("path", cleaned)
	}

	return &SQLiteSink{db: db, path: cleaned}, nil
}

// Path returns the database file location
func (s *SQLiteSink) Path() string {
	return s.path
}

// DB exposes the handle for callers that want to read back what was written
func (s *SQLiteSink) DB() *sql.DB {
	return s.db
}

func (s *SQLiteSink) Write(ctx context.Context, name string, t *record.Table) error {
	if err := s.write(ctx, name, t); err != nil {
		return errors.Wrap(err, errors.ErrCodeExportFailed, "Failed to write SQLite table").
			WithContext("dataset", name).
			WithContext("path", s.path)
	}
	return nil
}

func (s *SQLiteSink) write(ctx context.Context, name string, t *record.Table) error {
	if t.Width() == 0 {
		return fmt.Errorf("table %s has no columns", name)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	table := quoteIdent(name)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, createStatement(table, t.Columns)); err != nil {
		return err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", t.Width()), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", table, placeholders))
	if err != nil {
		return err
	}
	defer stmt.Close()

	args := make([]interface{}, t.Width())
	for _, r := range t.Rows {
		for i, v := range r {
			args[i] = sqliteValue(v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func createStatement(table string, columns []record.Column) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = quoteIdent(c.Name)
		if affinity := columnAffinity(c.DatabaseType); affinity != "" {
			defs[i] += " " + affinity
		}
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
}

// columnAffinity maps a source type name to a SQLite affinity. Columns
// without a source type (derived tables) get none, so values keep the
// storage class they were inserted with.
func columnAffinity(databaseType string) string {
	t := strings.ToUpper(databaseType)
	switch {
	case t == "":
		return ""
	case strings.Contains(t, "INT"):
		return "INTEGER"
	case strings.Contains(t, "DEC"), strings.Contains(t, "NUMERIC"), strings.Contains(t, "MONEY"),
		strings.Contains(t, "FLOAT"), strings.Contains(t, "DOUBLE"), strings.Contains(t, "REAL"):
		return "NUMERIC"
	}
	return "TEXT"
}

func sqliteValue(v interface{}) interface{} {
	switch x := record.Normalize(v).(type) {
	case nil:
		return nil
	case time.Time:
		return record.Format(x)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case string, int64, float64:
		return x
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return record.Format(x)
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
