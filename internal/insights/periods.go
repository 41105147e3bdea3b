package insights

import (
	"fmt"
	"sort"
	"time"

	"vetbiz/internal/record"
	"vetbiz/pkg/errors"
)

// labelDateLayout renders period bounds as 01-Feb-2023
const labelDateLayout = "02-Jan-2006"

// Window is an inclusive calendar date range
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether d falls within the window, bounds included
func (w Window) Contains(d time.Time) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

func (w Window) String() string {
	return fmt.Sprintf("%s to %s", w.Start.Format(labelDateLayout), w.End.Format(labelDateLayout))
}

// MonthStart returns the first day of t's month at midnight UTC
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthWindow returns the calendar month starting at m
func MonthWindow(m time.Time) Window {
	return Window{Start: m, End: m.AddDate(0, 1, -1)}
}

// LapsedPeriod is one rolling comparison evaluated by the lapsed scan:
// customers seen in Before but not in After are lapsed.
type LapsedPeriod struct {
	Seq    int
	Month  time.Time
	Before Window
	After  Window
}

// Label is the l_period value attached to the period's rows
func (p LapsedPeriod) Label() string {
	return fmt.Sprintf("%d. %s", p.Seq, p.After)
}

// LapsedPeriods enumerates the comparison periods for months after July of
// startYear, up to the month whose After window closes before the
// reference month. Sequence numbers start at 1 on every call.
func LapsedPeriods(startYear int, reference time.Time) []LapsedPeriod {
	first := time.Date(startYear, time.July, 1, 0, 0, 0, 0, time.UTC)
	ref := MonthStart(reference)
	last := time.Date(ref.Year()-1, ref.Month()+1, 1, 0, 0, 0, 0, time.UTC)

	var out []LapsedPeriod
	for m := time.Date(startYear, time.January, 1, 0, 0, 0, 0, time.UTC); !m.After(last); m = m.AddDate(0, 1, 0) {
		if !m.After(first) {
			continue
		}
		out = append(out, LapsedPeriod{
			Seq:    len(out) + 1,
			Month:  m,
			Before: Window{Start: m.AddDate(-1, 0, 0), End: m.AddDate(0, 0, -1)},
			After:  Window{Start: m, End: m.AddDate(1, 0, -1)},
		})
	}
	return out
}

// ActivePeriod is one month evaluated by the active-customer scan
type ActivePeriod struct {
	Month    time.Time
	Current  Window
	Lookback Window
}

// ActivePeriods enumerates every month from January of startYear through
// the reference month
func ActivePeriods(startYear, monthsThreshold int, reference time.Time) []ActivePeriod {
	ref := MonthStart(reference)

	var out []ActivePeriod
	for m := time.Date(startYear, time.January, 1, 0, 0, 0, 0, time.UTC); !m.After(ref); m = m.AddDate(0, 1, 0) {
		out = append(out, ActivePeriod{
			Month:    m,
			Current:  MonthWindow(m),
			Lookback: Window{Start: m.AddDate(0, -monthsThreshold, 0), End: m.AddDate(0, 0, -1)},
		})
	}
	return out
}

// timeline indexes the rows of a table by date for window queries. Rows
// with a null date or customer are left out.
type timeline struct {
	dates     []time.Time
	rows      []int
	customers []string
}

func newTimeline(t *record.Table, rule, dateColumn string) (*timeline, error) {
	dc, ok := t.ColumnIndex(dateColumn)
	if !ok {
		return nil, errors.DataShapeError(rule, dateColumn)
	}
	cc, ok := t.ColumnIndex(ColCustomerTK)
	if !ok {
		return nil, errors.DataShapeError(rule, ColCustomerTK)
	}

	tl := &timeline{}
	for i, r := range t.Rows {
		d, ok := record.Date(r[dc])
		if !ok {
			continue
		}
		c, ok := record.Key(r[cc])
		if !ok {
			continue
		}
		tl.dates = append(tl.dates, d)
		tl.rows = append(tl.rows, i)
		tl.customers = append(tl.customers, c)
	}
	sort.Stable(tl)
	return tl, nil
}

func (tl *timeline) Len() int           { return len(tl.dates) }
func (tl *timeline) Less(i, j int) bool { return tl.dates[i].Before(tl.dates[j]) }
func (tl *timeline) Swap(i, j int) {
	tl.dates[i], tl.dates[j] = tl.dates[j], tl.dates[i]
	tl.rows[i], tl.rows[j] = tl.rows[j], tl.rows[i]
	tl.customers[i], tl.customers[j] = tl.customers[j], tl.customers[i]
}

// span returns the index range of entries inside w
func (tl *timeline) span(w Window) (int, int) {
	lo := sort.Search(len(tl.dates), func(i int) bool { return !tl.dates[i].Before(w.Start) })
	hi := sort.Search(len(tl.dates), func(i int) bool { return tl.dates[i].After(w.End) })
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// customersIn returns the distinct customers with a row inside w
func (tl *timeline) customersIn(w Window) map[string]struct{} {
	lo, hi := tl.span(w)
	set := make(map[string]struct{}, hi-lo)
	for i := lo; i < hi; i++ {
		set[tl.customers[i]] = struct{}{}
	}
	return set
}

// rowsFor returns the table row indices inside w whose customer is in
// keep, in original table order
func (tl *timeline) rowsFor(w Window, keep map[string]struct{}) []int {
	if len(keep) == 0 {
		return nil
	}
	lo, hi := tl.span(w)
	var out []int
	for i := lo; i < hi; i++ {
		if _, ok := keep[tl.customers[i]]; ok {
			out = append(out, tl.rows[i])
		}
	}
	sort.Ints(out)
	return out
}
