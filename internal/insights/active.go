package insights

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"vetbiz/internal/record"
)

const ruleActive = "active customer scan"

// ActiveCustomers returns, for each month from ActiveStartYear through the
// reference month, the month's rows for customers who also bought within
// the preceding MonthsThreshold months. Months are concatenated in order and
// a row repeats for every month its customer qualifies.
func (e *Engine) ActiveCustomers(ctx context.Context, joined *record.Table) (*record.Table, error) {
	return activeCustomers(ctx, joined, e.opts.ActiveStartYear, e.opts.MonthsThreshold, e.reference, e.opts.Parallelism)
}

func activeCustomers(ctx context.Context, joined *record.Table, startYear, monthsThreshold int, reference time.Time, parallelism int) (*record.Table, error) {
	tl, err := newTimeline(joined, ruleActive, ColActivityDate)
	if err != nil {
		return record.NewTable(joined.Columns...), err
	}

	periods := ActivePeriods(startYear, monthsThreshold, reference)
	hits := make([][]int, len(periods))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, p := range periods {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			current := tl.customersIn(p.Current)
			earlier := tl.customersIn(p.Lookback)
			for c := range current {
				if _, ok := earlier[c]; !ok {
					delete(current, c)
				}
			}
			hits[i] = tl.rowsFor(p.Current, current)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return record.NewTable(joined.Columns...), err
	}

	out := record.NewTable(joined.Columns...)
	for _, rows := range hits {
		for _, r := range rows {
			out.Rows = append(out.Rows, joined.Rows[r])
		}
	}
	return out, nil
}
