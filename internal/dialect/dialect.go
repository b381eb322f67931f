// Package dialect holds the catalog SQL for each supported database engine.
// Catalog queries return the same column shapes on every dialect so the
// catalog reader can scan them uniformly.
package dialect

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dbsmedya/schemasync/internal/sqlutil"
	"github.com/dbsmedya/schemasync/internal/types"
)

// Facet identifies one of the structural catalog reads that make up a table snapshot.
type Facet int

const (
	// Columns rows: table, column, data_type, max_length, is_nullable (YES/NO), column_default.
	Columns Facet = iota
	// PrimaryKeys rows: table, column.
	PrimaryKeys
	// ForeignKeys rows: table, column, referenced_table, referenced_column.
	ForeignKeys
	// Indexes rows: table, index, column.
	Indexes
	// Triggers rows: table, trigger, definition, firing_type, events.
	Triggers
	// Uniques rows: table, constraint, column.
	Uniques
)

// AllFacets lists every facet in snapshot order.
var AllFacets = []Facet{Columns, PrimaryKeys, ForeignKeys, Indexes, Triggers, Uniques}

func (f Facet) String() string {
	switch f {
	case Columns:
		return "columns"
	case PrimaryKeys:
		return "primary keys"
	case ForeignKeys:
		return "foreign keys"
	case Indexes:
		return "indexes"
	case Triggers:
		return "triggers"
	case Uniques:
		return "unique constraints"
	default:
		return fmt.Sprintf("Facet(%d)", int(f))
	}
}

// Statement is a query with its bound arguments.
type Statement struct {
	Query string
	Args  []interface{}
	// Column selects the result column holding the text for multi-column results.
	Column string
}

// Dialect produces the SQL a catalog reader and sync applier need for one engine.
type Dialect interface {
	Name() string
	// DriverName is the database/sql driver registered for this dialect.
	DriverName() string
	QuoteStyle() sqlutil.QuoteStyle

	// FacetQuery returns the query for a facet restricted to n table names
	// bound as positional arguments.
	FacetQuery(f Facet, n int) string
	// DefinitionsQuery returns rows (name, definition) for every object of kind.
	DefinitionsQuery(kind types.ObjectType) (string, error)
	// RawDefinition returns the statement reading the authored text of an object.
	RawDefinition(kind types.ObjectType, name string) (Statement, error)
	// Exists returns a statement yielding one integer row, non-zero when the object exists.
	Exists(kind types.ObjectType, name string) (Statement, error)
	// Drop returns the DDL dropping an object.
	Drop(kind types.ObjectType, name string) (string, error)
	// DependenciesQuery returns rows (referencing, referenced) for objects of kind,
	// or "" when the engine has no dependency catalog for that kind.
	DependenciesQuery(kind types.ObjectType) string
	// RowCount returns the statement counting rows of a view or table.
	RowCount(name string) (Statement, error)
	// AcquireLock returns a statement yielding one integer row, >= 1 when the
	// session lock was granted. ReleaseLock undoes it.
	AcquireLock(name string, timeout time.Duration) Statement
	ReleaseLock(name string) Statement
}

var dialects = map[string]Dialect{}

// Register makes a Dialect available under name.
func Register(name string, d Dialect) {
	dialects[strings.ToLower(name)] = d
}

// Lookup returns the dialect registered under name. An empty name selects SQL Server.
func Lookup(name string) (Dialect, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = "sqlserver"
	}
	d, ok := dialects[key]
	if !ok {
		return nil, fmt.Errorf("dialect not registered: %q (available: %v)", name, Registered())
	}
	return d, nil
}

// Registered returns the registered dialect names in sorted order.
func Registered() []string {
	keys := make([]string, 0, len(dialects))
	for k := range dialects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	Register("sqlserver", SQLServer{})
	Register("mssql", SQLServer{})
	Register("mysql", MySQL{})
}

func unsupportedKind(d Dialect, kind types.ObjectType) error {
	return fmt.Errorf("%s: unsupported object type %s", d.Name(), kind)
}
