package insights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowContains(t *testing.T) {
	w := Window{Start: day(2024, 1, 1), End: day(2024, 1, 31)}
	assert.True(t, w.Contains(day(2024, 1, 1)))
	assert.True(t, w.Contains(day(2024, 1, 31)))
	assert.False(t, w.Contains(day(2023, 12, 31)))
	assert.False(t, w.Contains(day(2024, 2, 1)))
}

func TestMonthWindow(t *testing.T) {
	assert.Equal(t, Window{Start: day(2024, 2, 1), End: day(2024, 2, 29)}, MonthWindow(day(2024, 2, 1)))
	assert.Equal(t, day(2024, 2, 1), MonthStart(day(2024, 2, 17).Add(15*time.Hour)))
}

func TestLapsedPeriods(t *testing.T) {
	periods := LapsedPeriods(2018, day(2020, 3, 15))
	require.Len(t, periods, 9)

	first := periods[0]
	assert.Equal(t, 1, first.Seq)
	assert.Equal(t, day(2018, 8, 1), first.Month)
	assert.Equal(t, Window{Start: day(2017, 8, 1), End: day(2018, 7, 31)}, first.Before)
	assert.Equal(t, Window{Start: day(2018, 8, 1), End: day(2019, 7, 31)}, first.After)
	assert.Equal(t, "1. 01-Aug-2018 to 31-Jul-2019", first.Label())

	january := periods[5]
	assert.Equal(t, 6, january.Seq)
	assert.Equal(t, Window{Start: day(2018, 1, 1), End: day(2018, 12, 31)}, january.Before)
	assert.Equal(t, Window{Start: day(2019, 1, 1), End: day(2019, 12, 31)}, january.After)

	last := periods[len(periods)-1]
	assert.Equal(t, day(2019, 4, 1), last.Month)
	assert.Equal(t, "9. 01-Apr-2019 to 31-Mar-2020", last.Label())
}

func TestLapsedPeriods_DecemberReference(t *testing.T) {
	periods := LapsedPeriods(2018, day(2020, 12, 1))
	require.Len(t, periods, 18)
	assert.Equal(t, day(2020, 1, 1), periods[17].Month)
}

func TestLapsedPeriods_NoneBeforeFirstFullYear(t *testing.T) {
	assert.Empty(t, LapsedPeriods(2018, day(2019, 6, 30)))
	assert.Len(t, LapsedPeriods(2018, day(2019, 7, 1)), 1)
}

func TestActivePeriods(t *testing.T) {
	periods := ActivePeriods(2024, 18, day(2024, 6, 20))
	require.Len(t, periods, 6)

	assert.Equal(t, day(2024, 1, 1), periods[0].Month)
	assert.Equal(t, Window{Start: day(2024, 1, 1), End: day(2024, 1, 31)}, periods[0].Current)
	assert.Equal(t, Window{Start: day(2022, 7, 1), End: day(2023, 12, 31)}, periods[0].Lookback)
	assert.Equal(t, day(2024, 6, 1), periods[5].Month)
	assert.Equal(t, Window{Start: day(2022, 12, 1), End: day(2024, 5, 31)}, periods[5].Lookback)
}

func TestTimeline(t *testing.T) {
	sales := salesTable(
		sale(1, 1, 7, "Consult", day(2024, 3, 5)),
		sale(2, 1, 8, "Consult", day(2024, 1, 5)),
		sale(3, 1, 9, "Consult", nil),
		sale(4, 1, 7, "Consult", day(2024, 2, 5)),
	)
	tl, err := newTimeline(sales, ruleLapsed, ColInvoiceDate)
	require.NoError(t, err)
	assert.Equal(t, 3, tl.Len())

	w := Window{Start: day(2024, 2, 1), End: day(2024, 3, 31)}
	assert.Equal(t, map[string]struct{}{"7": {}}, tl.customersIn(w))
	assert.Equal(t, []int{0, 3}, tl.rowsFor(w, map[string]struct{}{"7": {}}))
	assert.Empty(t, tl.rowsFor(w, nil))

	lo, hi := tl.span(Window{Start: day(2025, 1, 1), End: day(2025, 12, 31)})
	assert.Equal(t, lo, hi)
}
