package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetbiz/internal/ui"
	"vetbiz/pkg/errors"
)

func quietUI(t *testing.T) {
	t.Helper()
	original := ui.Output
	ui.Output = &discard{}
	t.Cleanup(func() { ui.Output = original })
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestRunJournals(t *testing.T) {
	quietUI(t)

	db1, mock1 := newMock(t)
	mock1.ExpectQuery(regexp.QuoteMeta("SELECT TOP (5) * FROM [CLIENT3_Journals]")).WillReturnRows(
		mock1.NewRowsWithColumnDefinition(
			mock1.NewColumn("JournalID").OfType("NVARCHAR", ""),
			mock1.NewColumn("NetAmount").OfType("DECIMAL", 0.0),
		).AddRow("J1", 10.5).AddRow("J2", -4.0),
	)
	mock1.ExpectClose()
	db2, mock2 := newMock(t)
	mock2.ExpectQuery(regexp.QuoteMeta("SELECT TOP (5) * FROM [CLIENT4_Journals]")).
		WillReturnError(fmt.Errorf("mssql: Invalid object name 'CLIENT4_Journals'"))
	mock2.ExpectClose()

	deps, out := testDeps(t, secondaryEnv(), openerFor(t, "sqlserver", db1, db2))
	sqlitePath := filepath.Join(t.TempDir(), "journals.db")

	journals, err := runJournals(context.Background(), journalsOptions{
		tables: []string{"CLIENT3_Journals", " CLIENT4_Journals "},
		limit:  5,
		output: outputOptions{exportSQLite: sqlitePath},
	}, deps)
	require.NoError(t, err)

	assert.Equal(t, 2, journals.Len())
	assert.Equal(t, []string{"JournalID", "NetAmount"}, journals.ColumnNames())
	assert.Contains(t, out.String(), "journals: (2, 2)")
	assert.FileExists(t, sqlitePath)

	assert.NoError(t, mock1.ExpectationsWereMet())
	assert.NoError(t, mock2.ExpectationsWereMet())
}

func TestRunJournals_AllTablesFail(t *testing.T) {
	quietUI(t)

	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM [CLIENT3_Journals]")).
		WillReturnError(fmt.Errorf("mssql: Invalid object name 'CLIENT3_Journals'"))
	mock.ExpectClose()

	deps, out := testDeps(t, secondaryEnv(), openerFor(t, "sqlserver", db))
	journals, err := runJournals(context.Background(), journalsOptions{
		tables: []string{"CLIENT3_Journals"},
	}, deps)

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeQueryFailed, errors.GetErrorCode(err))
	assert.Equal(t, 0, journals.Len())
	assert.Empty(t, out.String())
}

func TestJournalTables(t *testing.T) {
	tables, err := journalTables(journalsOptions{tables: []string{"A", " ", "B"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, tables)

	path := writeFile(t, "queries.json", `{
  "sales_query": "SELECT 1",
  "customers_query": "SELECT 2",
  "journal_tables": ["CLIENT3_Journals", "CLIENT5_Journals"]
}`)
	tables, err = journalTables(journalsOptions{queriesPath: path})
	require.NoError(t, err)
	assert.Equal(t, []string{"CLIENT3_Journals", "CLIENT5_Journals"}, tables)

	_, err = journalTables(journalsOptions{queriesPath: writeFile(t, "queries.json", queriesJSON)})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigMissing, errors.GetErrorCode(err))
}

func TestRunJournals_RequiresSecondaryCredentials(t *testing.T) {
	quietUI(t)

	deps, _ := testDeps(t, primaryEnv(), openerFor(t, "sqlserver"))
	_, err := runJournals(context.Background(), journalsOptions{tables: []string{"CLIENT3_Journals"}}, deps)

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigMissing, errors.GetErrorCode(err))
	assert.Contains(t, err.Error(), "ETANI_DB_")
}
