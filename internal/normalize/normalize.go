// Package normalize canonicalizes definition text and default expressions so
// that cosmetic differences do not show up as drift.
package normalize

import (
	"regexp"
	"strings"
)

var (
	lineComment  = regexp.MustCompile(`--.*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// StripComments removes -- line comments and /* */ block comments.
// Comment markers inside string literals are not special-cased.
func StripComments(text string) string {
	if text == "" {
		return text
	}
	text = lineComment.ReplaceAllString(text, "")
	text = blockComment.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Lines returns the comparison form of a definition: comments removed,
// blank lines dropped, each remaining line trimmed and lower-cased.
func Lines(text string) []string {
	text = StripComments(text)
	raw := strings.FieldsFunc(text, isLineBreak)
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		lines = append(lines, strings.ToLower(l))
	}
	return lines
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

// Join reassembles normalized lines into text. Lines(Join(Lines(x))) == Lines(x).
func Join(lines []string) string {
	return strings.Join(lines, "\n")
}

// Equal reports whether two definitions are identical after normalization.
func Equal(a, b string) bool {
	la, lb := Lines(a), Lines(b)
	if len(la) != len(lb) {
		return false
	}
	for i := range la {
		if la[i] != lb[i] {
			return false
		}
	}
	return true
}

// Default canonicalizes a column default expression. A nil default becomes
// "NULL"; otherwise the value is trimmed, upper-cased and stripped of each
// (( )) layer that encloses the whole expression, so ((0)) and 0 compare equal.
func Default(value *string) string {
	if value == nil {
		return "NULL"
	}
	v := strings.ToUpper(strings.TrimSpace(*value))
	for enclosedTwice(v) {
		v = v[2 : len(v)-2]
	}
	return v
}

// enclosedTwice reports whether the leading "((" pairs with the trailing "))",
// so ((1)+(2)) is not a double-wrapped expression.
func enclosedTwice(v string) bool {
	if len(v) < 4 || !strings.HasPrefix(v, "((") || !strings.HasSuffix(v, "))") {
		return false
	}
	depth := 0
	for i := 0; i < len(v)-2; i++ {
		switch v[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if i >= 1 && depth < 2 {
			return false
		}
	}
	return depth == 2
}
