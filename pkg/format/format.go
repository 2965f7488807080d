// Package format turns a PNG's trailing payload into the banner text lines.
package format

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/trailware/pngstamp/pkg/pattern"
)

// Formatter applies a rule table to trailer payloads. It holds only
// read-only state and is safe to share across files.
type Formatter struct {
	Table  pattern.Table
	Logger *log.Logger
}

// New creates a Formatter. A nil logger falls back to log.Default().
func New(table pattern.Table, logger *log.Logger) *Formatter {
	if logger == nil {
		logger = log.Default()
	}
	return &Formatter{Table: table, Logger: logger}
}

// Format decodes trailing as text and produces one line per matching rule,
// newline-joined in table order. Rules that fail to match contribute no line
// and log a warning naming the rule and the file; a miss never aborts the
// file. Misses reports how many rules produced no line.
func (f *Formatter) Format(path string, trailing []byte) (text string, misses int) {
	decoded := Decode(trailing)

	var lines []string
	for _, p := range f.Table {
		line, ok := p.Expand(decoded)
		if !ok {
			f.Logger.Warn("pattern did not match", "pattern", p.Source, "file", path)
			misses++
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), misses
}

// Decode converts trailer bytes to text, replacing each invalid byte with
// U+FFFD. Trailers are not guaranteed to be valid UTF-8 and a malformed byte
// run must not fail the file, only degrade its text. One replacement per bad
// byte keeps the decoded length predictable for rules that count them.
func Decode(trailing []byte) string {
	if utf8.Valid(trailing) {
		return string(trailing)
	}
	var b strings.Builder
	b.Grow(len(trailing))
	for i := 0; i < len(trailing); {
		r, size := utf8.DecodeRune(trailing[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteRune(utf8.RuneError)
			i++
			continue
		}
		b.WriteRune(r)
		i += size
	}
	return b.String()
}
