package export

import (
	"context"
	"encoding/csv"
	"os"

	"vetbiz/internal/common"
	"vetbiz/internal/record"
	"vetbiz/pkg/errors"
)

// CSVSink writes each table to <dir>/<name>.csv with a header row
type CSVSink struct {
	dir string
}

// NewCSVSink creates dir if needed
func NewCSVSink(dir string) (*CSVSink, error) {
	cleaned, err := common.EnsureDir(dir, common.DirPermissionNormal)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExportFailed, "Failed to prepare export directory").
			WithContext("dir", dir)
	}
	return &CSVSink{dir: cleaned}, nil
}

// Path returns the file a table of the given name is written to
func (s *CSVSink) Path(name string) (string, error) {
	return common.JoinPath(s.dir, name+".csv")
}

func (s *CSVSink) Write(ctx context.Context, name string, t *record.Table) error {
	path, err := s.Path(name)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExportFailed, "Invalid dataset name").
			WithContext("dataset", name)
	}

	if err := s.write(ctx, path, t); err != nil {
		return errors.Wrap(err, errors.ErrCodeExportFailed, "Failed to write CSV").
			WithContext("dataset", name).
			WithContext("path", path)
	}
	return nil
}

func (s *CSVSink) write(ctx context.Context, path string, t *record.Table) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, common.FilePermissionNormal) // #nosec G304 - path is validated
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.ColumnNames()); err != nil {
		return err
	}

	cells := make([]string, t.Width())
	for i, r := range t.Rows {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for c, v := range r {
			cells[c] = record.Format(v)
		}
		if err := w.Write(cells); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func (s *CSVSink) Close() error {
	return nil
}
