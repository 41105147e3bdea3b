package cmd

import (
	"bytes"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetbiz/internal/config"
	"vetbiz/internal/observability"
	"vetbiz/internal/warehouse"
)

// writeFile creates a file with content in a fresh temp dir
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func primaryEnv() *viper.Viper {
	env := viper.New()
	env.Set("DB_USER", "reader")
	env.Set("DB_PASSWORD", "secret")
	env.Set("DB_HOST", "warehouse.local")
	env.Set("DB_NAME", "vetbizdw")
	return env
}

func secondaryEnv() *viper.Viper {
	env := viper.New()
	env.Set("ETANI_DB_USER", "etani_reader")
	env.Set("ETANI_DB_PASSWORD", "secret")
	env.Set("ETANI_DB_SERVER", "etani.local")
	env.Set("ETANI_DB_NAME", "etani")
	return env
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// openerFor hands out dbs in order and fails the test on an unexpected open
func openerFor(t *testing.T, driver string, dbs ...*sql.DB) warehouse.OpenFunc {
	t.Helper()
	next := 0
	return func(driverName, dsn string) (*sql.DB, error) {
		assert.Equal(t, driver, driverName)
		if next >= len(dbs) {
			t.Errorf("unexpected connection #%d", next+1)
			return nil, fmt.Errorf("no connection available")
		}
		db := dbs[next]
		next++
		return db, nil
	}
}

func testDeps(t *testing.T, env config.Getter, opener warehouse.OpenFunc) (extractDeps, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	return extractDeps{
		env:      env,
		settings: config.DefaultSettings(),
		opener:   opener,
		out:      out,
		logger:   observability.NewNopLogger(),
	}, out
}
