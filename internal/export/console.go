package export

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"vetbiz/internal/record"
)

// ConsoleSink prints each table's shape and, optionally, its first rows
type ConsoleSink struct {
	w       io.Writer
	preview int
	printer *message.Printer
	title   *color.Color
	dim     *color.Color
}

// NewConsoleSink creates a console sink. preview is the number of rows
// rendered per table; zero prints only the shape.
func NewConsoleSink(w io.Writer, preview int, useColor bool) *ConsoleSink {
	title := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.Faint)
	if useColor {
		title.EnableColor()
		dim.EnableColor()
	} else {
		title.DisableColor()
		dim.DisableColor()
	}
	return &ConsoleSink{
		w:       w,
		preview: preview,
		printer: message.NewPrinter(language.English),
		title:   title,
		dim:     dim,
	}
}

func (c *ConsoleSink) Write(_ context.Context, name string, t *record.Table) error {
	rows, cols := t.Shape()
	fmt.Fprintf(c.w, "%s %s\n",
		c.title.Sprintf("%s:", name),
		c.printer.Sprintf("(%d, %d)", rows, cols),
	)

	if c.preview <= 0 || rows == 0 {
		return nil
	}

	table := tablewriter.NewWriter(c.w)
	table.SetHeader(t.ColumnNames())
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	n := min(c.preview, rows)
	for _, r := range t.Rows[:n] {
		cells := make([]string, len(r))
		for i, v := range r {
			cells[i] = record.Format(v)
		}
		table.Append(cells)
	}
	table.Render()

	if rows > n {
		fmt.Fprintln(c.w, c.dim.Sprint(c.printer.Sprintf("... %d more rows", rows-n)))
	}
	return nil
}

func (c *ConsoleSink) Close() error {
	return nil
}
