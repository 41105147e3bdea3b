package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetbiz/pkg/errors"
)

func writeQueries(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queries.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadQueries(t *testing.T) {
	path := writeQueries(t, `{
		"sales_query": "SELECT * FROM f_sales;",
		"customers_query": "SELECT * FROM d_customer",
		"customers_from_sales_data_query": "SELECT * FROM v_active",
		"journal_tables": ["CLIENT3_Journals", "CLIENT4_Journals"]
	}`)

	q, err := LoadQueries(path)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM f_sales;", q.Sales)
	assert.Equal(t, []string{"CLIENT3_Journals", "CLIENT4_Journals"}, q.JournalTables)

	limited := q.WithLimit(100)
	assert.Equal(t, "SELECT * FROM f_sales LIMIT 100", limited.Sales)
	assert.Equal(t, "SELECT * FROM d_customer LIMIT 100", limited.Customers)
	assert.Equal(t, "SELECT * FROM v_active LIMIT 100", limited.CustomersFromSales)
	assert.Equal(t, "SELECT * FROM f_sales;", q.Sales)
}

func TestLoadQueries_OptionalQueryAbsent(t *testing.T) {
	path := writeQueries(t, `{"sales_query": "SELECT 1", "customers_query": "SELECT 2"}`)

	q, err := LoadQueries(path)
	require.NoError(t, err)
	assert.Empty(t, q.CustomersFromSales)
	assert.Empty(t, q.WithLimit(5).CustomersFromSales)
}

func TestLoadQueries_Errors(t *testing.T) {
	tests := []struct {
		name     string
		path     func(t *testing.T) string
		wantCode errors.ErrorCode
		contains string
	}{
		{
			name:     "missing file",
			path:     func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.json") },
			wantCode: errors.ErrCodeQueryFileNotFound,
		},
		{
			name:     "invalid json",
			path:     func(t *testing.T) string { return writeQueries(t, `{"sales_query": `) },
			wantCode: errors.ErrCodeQueryFileInvalid,
		},
		{
			name:     "missing sales query",
			path:     func(t *testing.T) string { return writeQueries(t, `{"customers_query": "SELECT 2"}`) },
			wantCode: errors.ErrCodeConfigMissing,
			contains: "sales_query",
		},
		{
			name:     "missing customers query",
			path:     func(t *testing.T) string { return writeQueries(t, `{"sales_query": "SELECT 1"}`) },
			wantCode: errors.ErrCodeConfigMissing,
			contains: "customers_query",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadQueries(tt.path(t))
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.GetErrorCode(err))
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}
