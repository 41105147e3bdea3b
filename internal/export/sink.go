// Package export hands derived and fetched tables to their destinations:
// the console, a directory of CSV files, or a SQLite database.
package export

import (
	"context"
	stderrors "errors"

	"vetbiz/internal/record"
)

// Sink receives named tables. Write may be called once per name per run.
type Sink interface {
	Write(ctx context.Context, name string, t *record.Table) error
	Close() error
}

// Multi writes every table to each sink in order. A failing sink does not
// stop the others; failures are joined.
type Multi []Sink

func (m Multi) Write(ctx context.Context, name string, t *record.Table) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, name, t); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
