package errors

import (
	"bufio"
	"fmt"
	"os"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig Category = "config"
	CategoryCLI    Category = "cli"
	CategoryBench  Category = "bench"
	CategoryServer Category = "server"
)

// Location is a position in a source file.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as file:line[:column].
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Error is a structured error with an optional location and suggestion.
type Error struct {
	// Code is a unique error identifier (e.g., "E101").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is where in a file the error occurred.
	Location *Location

	// Context holds the file lines around Location.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds a file location and reads the lines around it.
func (e *Error) WithLocation(file string, line, column int) *Error {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 3)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithDetail replaces the registered explanation.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// contextStart is the first line number readContextLines returns for line.
func contextStart(line, size int) int {
	return max(1, line-size/2)
}

// readContextLines reads up to size lines centered on line.
func readContextLines(filename string, line, size int) []string {
	f, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer f.Close()

	start := contextStart(line, size)
	end := line + size/2

	var lines []string
	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan() && n <= end; n++ {
		if n >= start {
			lines = append(lines, scanner.Text())
		}
	}
	return lines
}

// New creates an Error from a registered error code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{Code: code, Message: "Unknown error"}
	}
	return &Error{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates an uncoded Error with a formatted message.
func Newf(category Category, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps err in an Error with the given code. An err that already
// is an *Error is returned unchanged.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return New(code).Wrap(err)
}
