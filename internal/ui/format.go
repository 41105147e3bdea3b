package ui

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"

	"vetbiz/pkg/errors"
)

var (
	// Output receives status messages; stdout is left for table output
	Output io.Writer = os.Stderr

	// Check if output supports colors
	supportsColor = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

	// Color functions
	ColorSuccess  = colorFunc(ansi.Green)
	ColorError    = colorFunc(ansi.Red)
	ColorWarning  = colorFunc(ansi.Yellow)
	ColorInfo     = colorFunc(ansi.Cyan)
	ColorProgress = colorFunc(ansi.Blue)
	ColorBold     = colorFunc("default+b")
	ColorDim      = colorFunc("default+h")
)

// colorFunc returns a function that colors text if supported
func colorFunc(color string) func(string) string {
	return func(text string) string {
		if supportsColor {
			return ansi.Color(text, color)
		}
		return text
	}
}

// SupportsColor reports whether status output is a colour terminal
func SupportsColor() bool {
	return supportsColor
}

// ShowHeader displays a formatted header
func ShowHeader(title string) {
	width := 50
	padding := (width - len(title) - 2) / 2
	if padding < 0 {
		padding = 0
	}
	trailing := width - 2 - padding - len(title)
	if trailing < 0 {
		trailing = 0
	}

	fmt.Fprintln(Output, "\n+"+strings.Repeat("-", width-2)+"+")
	fmt.Fprintf(Output, "|%s%s%s|\n",
		strings.Repeat(" ", padding),
		ColorBold(title),
		strings.Repeat(" ", trailing),
	)
	fmt.Fprintln(Output, "+"+strings.Repeat("-", width-2)+"+")
}

// ShowError displays an error with its code, context and suggestions
func ShowError(err error) {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		fmt.Fprintf(Output, "\n%s %s\n", ColorError("ERROR:"), ColorError(string(appErr.Code)))
		fmt.Fprintf(Output, "  %s\n", appErr.Message)
		if appErr.Cause != nil {
			fmt.Fprintf(Output, "  %s\n", ColorDim(appErr.Cause.Error()))
		}

		keys := make([]string, 0, len(appErr.Context))
		for k := range appErr.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(Output, "  %s\n", ColorDim(fmt.Sprintf("%s: %v", k, appErr.Context[k])))
		}

		for _, s := range appErr.Suggestions {
			fmt.Fprintf(Output, "  %s %s\n", ColorInfo("TIP:"), s)
		}
		return
	}

	fmt.Fprintf(Output, "\n%s\n", ColorError("ERROR:"))
	for i, line := range strings.Split(err.Error(), "\n") {
		if i == 0 {
			fmt.Fprintf(Output, "  %s\n", line)
		} else {
			fmt.Fprintf(Output, "  %s\n", ColorDim(line))
		}
	}
	if suggestion := getSuggestion(err.Error()); suggestion != "" {
		fmt.Fprintf(Output, "\n  %s %s\n", ColorInfo("TIP:"), ColorInfo(suggestion))
	}
}

// ShowSuccess displays a success message
func ShowSuccess(message string) {
	fmt.Fprintf(Output, "%s %s\n", ColorSuccess("SUCCESS:"), message)
}

// ShowWarning displays a warning message
func ShowWarning(message string) {
	fmt.Fprintf(Output, "%s %s\n", ColorWarning("WARNING:"), ColorWarning(message))
}

// ShowInfo displays an info message
func ShowInfo(message string) {
	fmt.Fprintf(Output, "%s %s\n", ColorInfo("INFO:"), message)
}

// FormatShape renders a table shape as rows x columns, dimming empty tables
func FormatShape(rows, columns int) string {
	shape := fmt.Sprintf("(%d, %d)", rows, columns)
	if rows == 0 {
		return ColorDim(shape)
	}
	return shape
}

// getSuggestion returns helpful suggestions based on driver error messages
func getSuggestion(message string) string {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "access denied"), strings.Contains(lower, "login failed"):
		return "Check DB_USER and DB_PASSWORD, or run 'vetbiz setup' to store the password"
	case strings.Contains(lower, "connection refused"), strings.Contains(lower, "no such host"):
		return "Verify DB_HOST and DB_PORT and that the warehouse is reachable"
	case strings.Contains(lower, "syntax"):
		return "Review the SQL in the query file"
	case strings.Contains(lower, "doesn't exist"), strings.Contains(lower, "invalid object name"):
		return "Verify the tables named in the query file exist in DB_NAME"
	default:
		return ""
	}
}
