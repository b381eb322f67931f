// Package sqlutil provides identifier quoting for the supported SQL dialects.
package sqlutil

import (
	"regexp"
	"strings"
)

// QuoteStyle selects how identifiers are delimited.
type QuoteStyle int

const (
	// Brackets quotes SQL Server identifiers: [name], with ] doubled.
	Brackets QuoteStyle = iota
	// Backticks quotes MySQL identifiers: `name`, with ` doubled.
	Backticks
)

// QuoteIdentifier quotes a single identifier part.
// Example: "Order Items" -> "[Order Items]" with Brackets.
func QuoteIdentifier(style QuoteStyle, name string) string {
	if style == Backticks {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// validIdentifierRegex matches one identifier part: letters, digits, underscore,
// and the $ and # characters SQL Server allows in object names.
var validIdentifierRegex = regexp.MustCompile(`^[\p{L}\p{N}_$#]+$`)

// IsValidIdentifier checks if name is a valid, optionally schema-qualified
// identifier such as "dbo.usp_GetOrders".
func IsValidIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, part := range strings.Split(name, ".") {
		if !validIdentifierRegex.MatchString(part) {
			return false
		}
	}
	return true
}

// QuoteIdentifierSafe validates a possibly qualified name and quotes each part.
// Names read from input sheets go through here before they reach DDL.
func QuoteIdentifierSafe(style QuoteStyle, name string) (string, error) {
	if !IsValidIdentifier(name) {
		return "", &InvalidIdentifierError{Name: name}
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = QuoteIdentifier(style, p)
	}
	return strings.Join(parts, "."), nil
}

// InvalidIdentifierError is returned when an identifier contains invalid characters.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return "invalid identifier: " + e.Name + " (must contain only letters, digits, underscores, $ or #, optionally schema-qualified)"
}
