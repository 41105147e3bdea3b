package insights

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"vetbiz/internal/record"
)

const ruleLapsed = "lapsed client scan"

// LapsedClients tags the trailing-year sales of every customer who bought
// in a period's Before window but not in its After window. A row is
// emitted once per period in which its customer lapsed, with the period's
// label in l_period. Output is period order, then sales order.
func (e *Engine) LapsedClients(ctx context.Context, sales *record.Table) (*record.Table, error) {
	return lapsedClients(ctx, sales, e.opts.StartYear, e.reference, e.opts.Parallelism)
}

func lapsedClients(ctx context.Context, sales *record.Table, startYear int, reference time.Time, parallelism int) (*record.Table, error) {
	out := sales.WithColumn(record.Column{Name: ColPeriodLabel, DatabaseType: "VARCHAR"})

	tl, err := newTimeline(sales, ruleLapsed, ColInvoiceDate)
	if err != nil {
		return out, err
	}

	periods := LapsedPeriods(startYear, reference)
	hits := make([][]int, len(periods))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, p := range periods {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			lapsed := tl.customersIn(p.Before)
			for c := range tl.customersIn(p.After) {
				delete(lapsed, c)
			}
			hits[i] = tl.rowsFor(p.Before, lapsed)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}

	for i, p := range periods {
		label := p.Label()
		for _, r := range hits[i] {
			row := make(record.Row, 0, len(out.Columns))
			row = append(row, sales.Rows[r]...)
			out.Rows = append(out.Rows, append(row, label))
		}
	}
	return out, nil
}
