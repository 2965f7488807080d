// Package pattern loads the ordered rule table that turns trailer text into
// banner lines.
//
// The rule source is a UTF-8 text file of blank-line-separated records, each
// exactly two lines: a regular expression and a template expanded with the
// expression's captured groups. Rule order is the vertical order of the
// rendered lines, so the table preserves source order exactly and keeps
// duplicates.
//
// Expressions use multiline matching and free-spacing syntax: unescaped
// whitespace and # comments are ignored, so long expressions can be laid out
// readably. Templates accept \1, \g<name>, $1 and ${name} placeholders.
package pattern

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/trailware/pngstamp/pkg/errors"
)

// Pattern is one regex/template rule. Immutable once loaded; safe for
// concurrent use by multiple file-processing tasks.
type Pattern struct {
	// Source is the expression as written in the rule file, kept for
	// diagnostics.
	Source string

	// Regexp is the compiled expression with multiline matching enabled and
	// free-spacing syntax already stripped.
	Regexp *regexp.Regexp

	// Template is the expansion template translated to Go's ${n} syntax.
	Template string
}

// Expand applies the pattern's template to the first match in text.
// The second return is false if the expression does not match.
func (p Pattern) Expand(text string) (string, bool) {
	m := p.Regexp.FindStringSubmatchIndex(text)
	if m == nil {
		return "", false
	}
	return string(p.Regexp.ExpandString(nil, p.Template, text, m)), true
}

// Table is an ordered list of rules.
type Table []Pattern

// Load reads a rule table from a file.
func Load(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPattern, err, "open pattern file %s", path)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPattern, err, "load pattern file %s", path)
	}
	return t, nil
}

// Parse reads a rule table from r. Records are separated by a blank line;
// each record must contain exactly two non-blank lines.
func Parse(r io.Reader) (Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var table Table
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	record := 0
	for _, chunk := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		record++

		lines := nonBlankLines(chunk)
		if len(lines) != 2 {
			return nil, fmt.Errorf("record %d: expected 2 lines (pattern, template), got %d", record, len(lines))
		}

		re, err := Compile(lines[0])
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", record, err)
		}
		table = append(table, Pattern{
			Source:   lines[0],
			Regexp:   re,
			Template: translateTemplate(lines[1]),
		})
	}
	return table, nil
}

func nonBlankLines(chunk string) []string {
	var out []string
	for _, line := range strings.Split(chunk, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

// Compile compiles a rule expression: free-spacing syntax is stripped and
// multiline matching enabled.
func Compile(expr string) (*regexp.Regexp, error) {
	return regexp.Compile("(?m)" + stripFreeSpacing(expr))
}

// stripFreeSpacing removes unescaped whitespace and # comments from an
// expression, emulating free-spacing (verbose) regex syntax on an engine
// without a native flag for it. Whitespace inside character classes and
// escaped characters are kept.
func stripFreeSpacing(expr string) string {
	var b strings.Builder
	inClass := false
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		switch {
		case c == '\\' && i+1 < len(expr):
			b.WriteByte(c)
			i++
			b.WriteByte(expr[i])
		case inClass:
			if c == ']' {
				inClass = false
			}
			b.WriteByte(c)
		case c == '[':
			inClass = true
			b.WriteByte(c)
		case c == '#':
			for i+1 < len(expr) && expr[i+1] != '\n' {
				i++
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			// ignored outside classes
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// translateTemplate rewrites \1 and \g<name> backreferences to Go's
// ${n}/${name} expansion syntax. \1 is the only reference form; a bare $ is
// literal text and gets escaped to $$ so expansion does not consume it. \n
// and \t escapes are turned into the bytes they name.
func translateTemplate(t string) string {
	var b strings.Builder
	for i := 0; i < len(t); i++ {
		c := t[i]
		if c == '$' {
			b.WriteString("$$")
			continue
		}
		if c != '\\' || i+1 >= len(t) {
			b.WriteByte(c)
			continue
		}
		next := t[i+1]
		switch {
		case next >= '0' && next <= '9':
			j := i + 1
			for j < len(t) && t[j] >= '0' && t[j] <= '9' {
				j++
			}
			b.WriteString("${")
			b.WriteString(t[i+1 : j])
			b.WriteString("}")
			i = j - 1
		case next == 'g' && i+2 < len(t) && t[i+2] == '<':
			end := strings.IndexByte(t[i+3:], '>')
			if end < 0 {
				b.WriteByte('\\')
				b.WriteByte(next)
				i++
				break
			}
			b.WriteString("${")
			b.WriteString(t[i+3 : i+3+end])
			b.WriteString("}")
			i += 3 + end
		case next == 'n':
			b.WriteByte('\n')
			i++
		case next == 't':
			b.WriteByte('\t')
			i++
		default:
			// Unknown escape: take the next byte literally.
			if next == '$' {
				b.WriteString("$$")
			} else {
				b.WriteByte(next)
			}
			i++
		}
	}
	return b.String()
}
