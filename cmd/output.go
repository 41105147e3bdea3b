package cmd

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"

	"vetbiz/internal/export"
	"vetbiz/internal/observability"
	"vetbiz/internal/record"
	"vetbiz/internal/ui"
)

// outputOptions selects where result tables go
type outputOptions struct {
	exportDir    string
	exportSQLite string
	preview      int
}

func (o *outputOptions) addFlags(flags *pflag.FlagSet) {
	flags.StringVar(&o.exportDir, "export-dir", "", "Write every table as <name>.csv into this directory")
	flags.StringVar(&o.exportSQLite, "export-sqlite", "", "Write every table into this SQLite database file")
	flags.IntVar(&o.preview, "preview", 0, "Print the first N rows of every table")
}

// sinks opens the console sink plus any requested exports
func (o *outputOptions) sinks(out io.Writer) (export.Multi, error) {
	sinks := export.Multi{export.NewConsoleSink(out, o.preview, colorful(out))}

	if o.exportDir != "" {
		csvSink, err := export.NewCSVSink(o.exportDir)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, csvSink)
	}

	if o.exportSQLite != "" {
		sqliteSink, err := export.NewSQLiteSink(o.exportSQLite)
		if err != nil {
			_ = sinks.Close()
			return nil, err
		}
		sinks = append(sinks, sqliteSink)
	}
	return sinks, nil
}

// writeTable sends one table to every sink, logging rather than failing
// so one bad export does not hide the remaining tables
func writeTable(ctx context.Context, sinks export.Sink, logger *observability.Logger, name string, t *record.Table) error {
	if err := sinks.Write(ctx, name, t); err != nil {
		logger.ErrorWithFields("Export failed", map[string]interface{}{
			"dataset": name,
			"error":   err,
		})
		return err
	}
	return nil
}

// colorful reports whether out is a terminal that should get colour
func colorful(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return ui.SupportsColor() && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
