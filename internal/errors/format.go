package errors

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	red   = color.New(color.FgRed, color.Bold).SprintFunc()
	white = color.New(color.FgWhite, color.Bold).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
	gray  = color.New(color.FgHiBlack).SprintFunc()
)

// Format returns the error formatted for terminal display. Colors follow
// color.NoColor.
func (e *Error) Format() string {
	var b strings.Builder

	b.WriteString("\n")
	if e.Code != "" {
		b.WriteString(red("ERROR "))
		b.WriteString(white(e.Code + ": "))
	} else {
		b.WriteString(red("ERROR: "))
	}
	b.WriteString(e.Message)
	b.WriteString("\n\n")

	if e.Location != nil {
		b.WriteString("  ")
		b.WriteString(cyan(e.Location.String()))
		b.WriteString("\n\n")

		if len(e.Context) > 0 {
			first := contextStart(e.Location.Line, 3)
			for i, line := range e.Context {
				n := first + i
				if n == e.Location.Line {
					fmt.Fprintf(&b, "  %s%4d%s%s\n", red("→ "), n, gray(" │ "), line)
					if e.Location.Column > 0 {
						fmt.Fprintf(&b, "        %s%s%s\n", gray("│ "), strings.Repeat(" ", e.Location.Column-1), red("^"))
					}
				} else {
					fmt.Fprintf(&b, "    %4d%s%s\n", n, gray(" │ "), line)
				}
			}
			b.WriteString("\n")
		}
	}

	detail := e.Detail
	if e.Wrapped != nil {
		if detail != "" {
			detail += " "
		}
		detail += "Cause: " + e.Wrapped.Error()
	}
	if detail != "" {
		for _, line := range wrapText(detail, 70) {
			b.WriteString("  ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if e.Suggestion != "" {
		b.WriteString("  ")
		b.WriteString(cyan("Hint: "))
		b.WriteString(e.Suggestion)
		b.WriteString("\n\n")
	}

	return b.String()
}

// FormatCompact returns a single-line rendering.
func (e *Error) FormatCompact() string {
	var b strings.Builder
	if e.Location != nil {
		b.WriteString(e.Location.String())
		b.WriteString(": ")
	}
	b.WriteString(e.Error())
	return b.String()
}

// wrapText wraps text to the specified width.
func wrapText(text string, width int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= width {
		return []string{text}
	}

	var lines []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		if current.Len() > 0 && current.Len()+len(word)+1 > width {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}

// Fprint writes err to w, formatted when it is an *Error.
func Fprint(w io.Writer, err error) {
	var e *Error
	if errors.As(err, &e) {
		fmt.Fprint(w, e.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", red("ERROR:"), err)
}

// PrintError prints a formatted error to stderr.
func PrintError(err error) {
	Fprint(os.Stderr, err)
}
