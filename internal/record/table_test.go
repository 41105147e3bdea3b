package record

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func salesFixture(t *testing.T) *Table {
	t.Helper()
	table := NewTable(
		Column{Name: "sale_id", DatabaseType: "BIGINT"},
		Column{Name: "customer_tk", DatabaseType: "BIGINT", Nullable: true},
		Column{Name: "product_name", DatabaseType: "VARCHAR", Nullable: true},
		Column{Name: "invoice_date", DatabaseType: "DATE", Nullable: true},
	)
	require.NoError(t, table.Append(
		Row{int64(1), int64(10), "Consultation", "2024-01-02"},
		Row{int64(2), int64(10), "Dental scale", "2024-01-05"},
		Row{int64(3), nil, nil, nil},
	))
	return table
}

func TestTableBasics(t *testing.T) {
	table := salesFixture(t)

	rows, cols := table.Shape()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 4, cols)
	assert.Equal(t, []string{"sale_id", "customer_tk", "product_name", "invoice_date"}, table.ColumnNames())
	assert.True(t, table.HasColumn("invoice_date"))
	assert.False(t, table.HasColumn("missing"))
	assert.Equal(t, "Dental scale", table.Value(1, "product_name"))
	assert.Nil(t, table.Value(1, "missing"))
	assert.Nil(t, table.Value(9, "sale_id"))

	col, ok := table.Column("invoice_date")
	require.True(t, ok)
	assert.Equal(t, "DATE", col.DatabaseType)

	assert.Error(t, table.Append(Row{int64(4)}))
	assert.Equal(t, 3, table.Len())
}

func TestNilTableIsEmpty(t *testing.T) {
	var table *Table
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, 0, table.Width())
	assert.False(t, table.HasColumn("sale_id"))
}

func TestTakeFilterProject(t *testing.T) {
	table := salesFixture(t)

	taken := table.Take([]int{2, 0})
	assert.Equal(t, int64(3), taken.Rows[0][0])
	assert.Equal(t, int64(1), taken.Rows[1][0])

	filtered := table.Filter(func(r Row) bool { return !IsNull(r[1]) })
	assert.Equal(t, 2, filtered.Len())

	projected, err := table.Project("customer_tk", "invoice_date")
	require.NoError(t, err)
	assert.Equal(t, []string{"customer_tk", "invoice_date"}, projected.ColumnNames())
	assert.Equal(t, Row{int64(10), "2024-01-02"}, projected.Rows[0])

	_, err = table.Project("nope")
	assert.Error(t, err)
}

func TestDistinct(t *testing.T) {
	table := NewTableFromNames("clinic_tk", "customer_tk")
	require.NoError(t, table.Append(
		Row{int64(1), int64(10)},
		Row{1.0, "10"},
		Row{nil, int64(10)},
		Row{nil, int64(10)},
		Row{int64(2), int64(10)},
	))

	distinct := table.Distinct()
	assert.Equal(t, []Row{
		{int64(1), int64(10)},
		{nil, int64(10)},
		{int64(2), int64(10)},
	}, distinct.Rows)
}

func TestWithColumn(t *testing.T) {
	table := salesFixture(t)
	extended := table.WithColumn(Column{Name: "l_period"})

	assert.Equal(t, 5, extended.Width())
	assert.Equal(t, 0, extended.Len())
	assert.Equal(t, 4, table.Width())
	idx, ok := extended.ColumnIndex("l_period")
	require.True(t, ok)
	assert.Equal(t, 4, idx)
}

func TestUnionAlignsColumnsByName(t *testing.T) {
	a := NewTable(Column{Name: "id"}, Column{Name: "amount"})
	require.NoError(t, a.Append(Row{int64(1), 10.5}))
	b := NewTable(Column{Name: "amount"}, Column{Name: "account"})
	require.NoError(t, b.Append(Row{2.25, "200"}))

	union := Union(a, nil, b)

	assert.Equal(t, []string{"id", "amount", "account"}, union.ColumnNames())
	assert.Equal(t, []Row{
		{int64(1), 10.5, nil},
		{nil, 2.25, "200"},
	}, union.Rows)
	nullable := map[string]bool{}
	for _, c := range union.Columns {
		nullable[c.Name] = c.Nullable
	}
	assert.Equal(t, map[string]bool{"id": true, "amount": false, "account": true}, nullable)
	assert.Equal(t, 0, Union().Len())
}

func TestUnionNullability(t *testing.T) {
	a := NewTable(Column{Name: "id"}, Column{Name: "note", Nullable: true})
	require.NoError(t, a.Append(Row{int64(1), nil}))
	b := NewTable(Column{Name: "id"}, Column{Name: "note"})
	require.NoError(t, b.Append(Row{int64(2), "x"}))
	c := NewTable(Column{Name: "id"})
	require.NoError(t, c.Append(Row{int64(3)}))

	t.Run("nullable in one input stays nullable", func(t *testing.T) {
		union := Union(b, a)
		assert.False(t, union.Columns[0].Nullable)
		assert.True(t, union.Columns[1].Nullable)
	})

	t.Run("column missing from one input becomes nullable", func(t *testing.T) {
		union := Union(b, c)
		assert.Equal(t, []string{"id", "note"}, union.ColumnNames())
		assert.False(t, union.Columns[0].Nullable)
		assert.True(t, union.Columns[1].Nullable)
		assert.Equal(t, []Row{{int64(2), "x"}, {int64(3), nil}}, union.Rows)
	})
}

func TestValues(t *testing.T) {
	t.Run("normalize", func(t *testing.T) {
		assert.Equal(t, "abc", Normalize([]byte("abc")))
		assert.Nil(t, Normalize(sql.NullString{}))
		assert.Equal(t, int64(7), Normalize(sql.NullInt64{Int64: 7, Valid: true}))
		assert.True(t, IsNull(nil))
		assert.False(t, IsNull(0))
	})

	t.Run("key unifies numeric representations", func(t *testing.T) {
		k1, ok1 := Key(int64(42))
		k2, ok2 := Key(42.0)
		k3, ok3 := Key("42")
		require.True(t, ok1 && ok2 && ok3)
		assert.Equal(t, k1, k2)
		assert.Equal(t, k1, k3)

		_, ok := Key(nil)
		assert.False(t, ok)

		name, ok := Key("CUST-1")
		assert.True(t, ok)
		assert.Equal(t, "CUST-1", name)
	})

	t.Run("key keeps large integers and padded strings exact", func(t *testing.T) {
		big1, _ := Key(int64(9007199254740992))
		big2, _ := Key(int64(9007199254740993))
		assert.NotEqual(t, big1, big2)
		assert.Equal(t, "9007199254740993", big2)

		padded, _ := Key("007")
		plain, _ := Key("7")
		assert.NotEqual(t, padded, plain)

		frac, _ := Key(2.5)
		assert.Equal(t, "2.5", frac)
		unsigned, _ := Key(uint32(7))
		assert.Equal(t, plain, unsigned)
	})

	t.Run("date drops time of day", func(t *testing.T) {
		d, ok := Date(time.Date(2024, 3, 5, 17, 30, 0, 0, time.UTC))
		require.True(t, ok)
		assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), d)

		d, ok = Date("2024-03-05")
		require.True(t, ok)
		assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), d)

		_, ok = Date(nil)
		assert.False(t, ok)
		_, ok = Date("not a date")
		assert.False(t, ok)
	})

	t.Run("text only accepts strings", func(t *testing.T) {
		s, ok := Text([]byte("Consult"))
		assert.True(t, ok)
		assert.Equal(t, "Consult", s)
		_, ok = Text(12.0)
		assert.False(t, ok)
		_, ok = Text(nil)
		assert.False(t, ok)
	})

	t.Run("format", func(t *testing.T) {
		assert.Equal(t, "", Format(nil))
		assert.Equal(t, "2024-03-05", Format(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))
		assert.Equal(t, "2024-03-05T10:00:00Z", Format(time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)))
		assert.Equal(t, "12.5", Format(12.5))
		assert.Equal(t, "true", Format(true))
	})
}
