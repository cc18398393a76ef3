package demo

import (
	"strings"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// LineOp is the kind of a diff line.
type LineOp int8

const (
	LineEqual LineOp = iota
	LineInsert
	LineDelete
)

// DiffLine is one line of a line diff.
type DiffLine struct {
	Op   LineOp
	Text string
}

// LineDiff compares from and to line by line.
func LineDiff(from, to string) []DiffLine {
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []DiffLine
	for _, d := range diffs {
		op := LineEqual
		switch d.Type {
		case diffpatch.DiffInsert:
			op = LineInsert
		case diffpatch.DiffDelete:
			op = LineDelete
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out = append(out, DiffLine{Op: op, Text: strings.TrimSuffix(line, "\n")})
		}
	}
	return out
}

// Changed reports whether any line differs.
func Changed(lines []DiffLine) bool {
	for _, l := range lines {
		if l.Op != LineEqual {
			return true
		}
	}
	return false
}
