package printer

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"
)

func init() {
	// Users can disable colors with NO_COLOR.
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	// Out and Err are where normal and error output go. Tests swap them.
	Out io.Writer = os.Stdout
	Err io.Writer = os.Stderr

	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	green.Fprintf(Out, "✓ %s", fmt.Sprintf(format, a...))
}

// Warning prints a warning message in yellow
func Warning(format string, a ...any) {
	yellow.Fprintf(Out, "⚠️  %s", fmt.Sprintf(format, a...))
}

// Step prints a step in a multi-step operation
func Step(format string, a ...any) {
	cyan.Fprintf(Out, "→ %s", fmt.Sprintf(format, a...))
}

// Printf prints a plain formatted message
func Printf(format string, a ...any) {
	fmt.Fprintf(Out, format, a...)
}

// KeyValues prints a map as aligned "key  value" lines, sorted by key.
func KeyValues(values map[string]string) {
	keys := make([]string, 0, len(values))
	width := 0
	for k := range values {
		keys = append(keys, k)
		if len(k) > width {
			width = len(k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		cyan.Fprintf(Out, "  %-*s", width, k)
		fmt.Fprintf(Out, "  %s\n", values[k])
	}
}

// Error prints a formatted error with title, explanation, context details and
// suggestions to Err, and returns a plain error carrying only the title.
// Cobra's own error printing is silenced, so the title is not printed twice.
func Error(title string, explanation string, context map[string]string, suggestions ...string) error {
	red.Fprintf(Err, "%s\n\n", title)

	if explanation != "" {
		fmt.Fprintf(Err, "%s\n", explanation)
	}

	if len(context) > 0 {
		keys := make([]string, 0, len(context))
		for k := range context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintf(Err, "\n")
		for _, k := range keys {
			fmt.Fprintf(Err, "  %s: %s\n", k, context[k])
		}
	}

	if len(suggestions) > 0 {
		fmt.Fprintf(Err, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(Err, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(Err, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(Err, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	return fmt.Errorf("%s", title)
}
