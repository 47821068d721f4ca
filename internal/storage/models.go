package storage

import (
	"strings"
	"time"
)

const (
	// DateColumnWidth is the width of the date column that precedes the command
	// in a record's display line.
	DateColumnWidth = 10

	// CommandStart is the offset of the command text within a display line.
	CommandStart = DateColumnWidth + 1
)

// Range is a half-open byte range [Start, End) over a record's display line.
type Range struct {
	Start int
	End   int
}

// Record is a single command execution loaded from the history database.
// Records are never modified after the loader creates them.
type Record struct {
	ID         int64
	Command    string
	Start      time.Time
	ExitStatus *int64 // nullable, set once the command finished
	Duration   *int64 // seconds, nullable
	Count      int64
	Session    int64
	Host       string
	Dir        string

	// Highlight is the matchable part of the display line: the command text.
	Highlight Range
}

// HighlightFor returns the highlight range of a command in its display line.
func HighlightFor(command string) Range {
	return Range{Start: CommandStart, End: CommandStart + len(command)}
}

// DisplayLine returns the line shown in the selector: the date column padded
// (or cut) to DateColumnWidth, a space, then the command. Highlight indexes
// into this string.
func (r Record) DisplayLine(date string) string {
	if len(date) > DateColumnWidth {
		date = date[:DateColumnWidth]
	}
	var b strings.Builder
	b.Grow(CommandStart + len(r.Command))
	b.WriteString(date)
	b.WriteString(strings.Repeat(" ", CommandStart-len(date)))
	b.WriteString(r.Command)
	return b.String()
}
