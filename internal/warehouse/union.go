package warehouse

import (
	"context"
	stderrors "errors"

	"vetbiz/internal/record"
)

// FetchTables fetches every table with a full select and concatenates the
// results, aligning columns by name. Tables that fail are logged by Fetch,
// contribute no rows, and are reported in the joined error.
func (f *Fetcher) FetchTables(ctx context.Context, tables []string, limit int) (*record.Table, error) {
	parts := make([]*record.Table, 0, len(tables))
	var errs []error

	for _, name := range tables {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		t, err := f.Fetch(ctx, name, SelectAll(f.config.Driver, name, limit))
		if f.onTable != nil {
			f.onTable(name, err)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		parts = append(parts, t)
	}

	return record.Union(parts...), stderrors.Join(errs...)
}
