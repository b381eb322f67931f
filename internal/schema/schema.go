// Package schema holds the catalog snapshot model compared by the differ.
package schema

import "sort"

// Column describes one table column as read from the catalog.
type Column struct {
	Name      string
	DataType  string
	MaxLength int
	Nullable  bool
	Default   *string // nil when the column has no default
}

// Trigger describes a table trigger.
type Trigger struct {
	Name       string
	Definition string
	FiringType string // AFTER or INSTEAD OF
	Events     string // e.g. INSERT/UPDATE
}

// Table is the full structural description of one table.
type Table struct {
	Name        string
	Columns     []Column // ordinal order
	PrimaryKey  KeySet
	ForeignKeys KeySet
	Indexes     KeySet
	Uniques     KeySet
	Triggers    map[string]Trigger
}

// NewTable returns an empty table ready to be populated.
func NewTable(name string) *Table {
	return &Table{
		Name:        name,
		PrimaryKey:  NewKeySet(),
		ForeignKeys: NewKeySet(),
		Indexes:     NewKeySet(),
		Uniques:     NewKeySet(),
		Triggers:    make(map[string]Trigger),
	}
}

// Column returns the named column and whether it exists.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// TriggerNames returns trigger names in sorted order.
func (t *Table) TriggerNames() []string {
	names := make([]string, 0, len(t.Triggers))
	for n := range t.Triggers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Snapshot is the set of tables read from one database at one point in time.
// It is not modified after the catalog read completes.
type Snapshot struct {
	Tables map[string]*Table
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{Tables: make(map[string]*Table)}
}

// Table returns the named table, or nil when the snapshot does not contain it.
func (s *Snapshot) Table(name string) *Table {
	if s == nil {
		return nil
	}
	return s.Tables[name]
}

// Ensure returns the named table, creating it if needed.
func (s *Snapshot) Ensure(name string) *Table {
	t, ok := s.Tables[name]
	if !ok {
		t = NewTable(name)
		s.Tables[name] = t
	}
	return t
}

// Definition is the source text of a procedure or view.
type Definition struct {
	Name   string
	Text   string
	Exists bool
}

// Missing is the distinguished value for an object absent from the catalog.
var Missing = Definition{}

// FindDefinition returns the entry stored under name, falling back to the
// first key, in sorted order, that match accepts.
func FindDefinition(defs map[string]Definition, name string, match func(string) bool) (Definition, bool) {
	if d, ok := defs[name]; ok {
		return d, true
	}
	keys := make([]string, 0, len(defs))
	for k := range defs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if match(k) {
			return defs[k], true
		}
	}
	return Missing, false
}
