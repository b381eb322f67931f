// Package types contains shared types used across multiple packages to avoid import cycles.
package types

import (
	"fmt"
	"strings"
)

// ObjectType identifies the kind of schema object being compared or synced.
type ObjectType int

const (
	Table ObjectType = iota
	StoredProcedure
	View
	Trigger
)

// String returns the display name used in log lines and report messages.
func (t ObjectType) String() string {
	switch t {
	case Table:
		return "Table"
	case StoredProcedure:
		return "Stored Procedure"
	case View:
		return "View"
	case Trigger:
		return "Trigger"
	default:
		return fmt.Sprintf("ObjectType(%d)", int(t))
	}
}

// CatalogCode returns the sys.objects type code for the object kind.
func (t ObjectType) CatalogCode() string {
	switch t {
	case StoredProcedure:
		return "P"
	case View:
		return "V"
	case Trigger:
		return "TR"
	default:
		return "U"
	}
}

// ObjectIdentity names a single schema object of a given type.
type ObjectIdentity struct {
	Type ObjectType
	Name string
}

// SameName reports whether name refers to this object. Tables match exactly,
// procedures and views match case-insensitively.
func (id ObjectIdentity) SameName(name string) bool {
	if id.Type == Table {
		return id.Name == name
	}
	return strings.EqualFold(id.Name, name)
}

// Label is the object key used in reports for procedures and views.
func (id ObjectIdentity) Label() string {
	if id.Type == Table {
		return id.Name
	}
	return "[" + id.Name + "]"
}

func (id ObjectIdentity) String() string {
	return id.Type.String() + " " + id.Name
}
