// Package textnorm canonicalizes prose for fuzzy comparison: case is
// folded, whitespace collapsed, and typographic quotes, dashes and
// ellipses reduced to ASCII. The same rules apply to document text and to
// queries.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Normalize returns the canonical form of s. Normalize is idempotent.
func Normalize(s string) string {
	return Map(s).Text
}

// Mapped is a normalized string that remembers, for every output byte,
// the byte range of the source rune that produced it.
type Mapped struct {
	Text  string
	start []int
	end   []int
}

// Map normalizes s and records the source offsets.
func Map(s string) Mapped {
	var (
		b       strings.Builder
		starts  []int
		ends    []int
		inSpace bool
		spStart int
		spEnd   int
	)
	b.Grow(len(s))
	emit := func(out string, from, to int) {
		b.WriteString(out)
		for range len(out) {
			starts = append(starts, from)
			ends = append(ends, to)
		}
	}

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if unicode.IsSpace(r) {
			if !inSpace {
				inSpace = true
				spStart = i
			}
			spEnd = i + size
			i += size
			continue
		}
		if inSpace {
			if b.Len() > 0 {
				emit(" ", spStart, spEnd)
			}
			inSpace = false
		}
		emit(fold(r), i, i+size)
		i += size
	}
	return Mapped{Text: b.String(), start: starts, end: ends}
}

// Source maps the normalized byte range [from, to) back to a byte range
// in the source string. The range is clamped to the normalized text.
func (m Mapped) Source(from, to int) (int, int) {
	if len(m.start) == 0 {
		return 0, 0
	}
	from = clamp(from, 0, len(m.start)-1)
	to = clamp(to, from+1, len(m.end))
	return m.start[from], m.end[to-1]
}

// Len returns the length of the normalized text in bytes.
func (m Mapped) Len() int { return len(m.Text) }

func fold(r rune) string {
	switch r {
	case '‘', '’', '‚', '‛', '′':
		return "'"
	case '“', '”', '„', '‟', '″':
		return `"`
	case '‒', '–', '—', '―':
		return "-"
	case '…':
		return "..."
	}
	return string(unicode.ToLower(r))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Words splits normalized text into its space separated words.
func Words(s string) []string {
	return strings.Fields(s)
}

// TrimPunct strips leading and trailing characters that are neither
// letters nor digits.
func TrimPunct(w string) string {
	return strings.TrimFunc(w, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
