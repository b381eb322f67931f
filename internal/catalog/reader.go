// Package catalog reads table structure and object definitions from a live
// database. Every read is side-effect free.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dbsmedya/schemasync/internal/database"
	"github.com/dbsmedya/schemasync/internal/dialect"
	"github.com/dbsmedya/schemasync/internal/logger"
	"github.com/dbsmedya/schemasync/internal/schema"
	"github.com/dbsmedya/schemasync/internal/types"
)

// Reader issues catalog queries against one connection.
type Reader struct {
	conn   *database.Conn
	logger *logger.Logger
}

// NewReader creates a Reader for conn. A nil logger uses the default logger.
func NewReader(conn *database.Conn, log *logger.Logger) *Reader {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Reader{
		conn:   conn,
		logger: log.WithTarget(conn.Server, conn.Database),
	}
}

// maxFacetNames bounds the IN list of one facet query. SQL Server accepts at
// most 2100 parameters per request.
var maxFacetNames = 2000

// Snapshot reads every structural facet of the named tables. Facet queries
// run concurrently, one per facet and batch of at most maxFacetNames names;
// the snapshot is assembled only after all of them have returned. An empty
// name list yields an empty snapshot without querying.
func (r *Reader) Snapshot(ctx context.Context, tables []string) (*schema.Snapshot, error) {
	snap := schema.NewSnapshot()
	if len(tables) == 0 {
		return snap, nil
	}
	start := time.Now()

	batches := nameBatches(tables, maxFacetNames)
	results := make([][][][]sql.NullString, len(dialect.AllFacets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(dialect.AllFacets))
	for i, f := range dialect.AllFacets {
		results[i] = make([][][]sql.NullString, len(batches))
		for j, args := range batches {
			i, j, f, args := i, j, f, args
			g.Go(func() error {
				rows, err := r.query(gctx, r.conn.Dialect.FacetQuery(f, len(args)), args, facetWidth(f))
				if err != nil {
					return fmt.Errorf("read %s: %w", f, err)
				}
				results[i][j] = rows
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, r.failure(types.ConnectivityFailure, "", err)
	}

	for i, f := range dialect.AllFacets {
		for _, rows := range results[i] {
			if err := applyFacet(snap, f, rows); err != nil {
				return nil, r.failure(types.ConnectivityFailure, "", err)
			}
		}
	}

	r.logger.Debugf("Read snapshot of %d tables (%d found, %d batches) in %v",
		len(tables), len(snap.Tables), len(batches), time.Since(start))
	return snap, nil
}

// nameBatches splits the distinct names into query argument lists of at most
// size entries. Each table lands in exactly one batch, so per-table row order
// is preserved.
func nameBatches(names []string, size int) [][]interface{} {
	seen := make(map[string]struct{}, len(names))
	var batches [][]interface{}
	var cur []interface{}
	for _, n := range names {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		cur = append(cur, n)
		if len(cur) == size {
			batches = append(batches, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		batches = append(batches, cur)
	}
	return batches
}

func facetWidth(f dialect.Facet) int {
	switch f {
	case dialect.Columns:
		return 6
	case dialect.PrimaryKeys:
		return 2
	case dialect.ForeignKeys:
		return 4
	case dialect.Triggers:
		return 5
	default:
		return 3
	}
}

func applyFacet(snap *schema.Snapshot, f dialect.Facet, rows [][]sql.NullString) error {
	for _, row := range rows {
		t := snap.Ensure(row[0].String)
		switch f {
		case dialect.Columns:
			maxLen := 0
			if row[3].Valid && row[3].String != "" {
				n, err := strconv.Atoi(row[3].String)
				if err != nil {
					return fmt.Errorf("read columns: invalid length %q for %s.%s", row[3].String, row[0].String, row[1].String)
				}
				maxLen = n
			}
			col := schema.Column{
				Name:      row[1].String,
				DataType:  row[2].String,
				MaxLength: maxLen,
				Nullable:  strings.EqualFold(row[4].String, "YES"),
			}
			if row[5].Valid {
				def := row[5].String
				col.Default = &def
			}
			t.Columns = append(t.Columns, col)
		case dialect.PrimaryKeys:
			t.PrimaryKey.Add(row[1].String)
		case dialect.ForeignKeys:
			t.ForeignKeys.Add(row[1].String, row[2].String, row[3].String)
		case dialect.Indexes:
			t.Indexes.Add(row[1].String, row[2].String)
		case dialect.Triggers:
			t.Triggers[row[1].String] = schema.Trigger{
				Name:       row[1].String,
				Definition: row[2].String,
				FiringType: row[3].String,
				Events:     row[4].String,
			}
		case dialect.Uniques:
			t.Uniques.Add(row[1].String, row[2].String)
		}
	}
	return nil
}

// Definitions reads the source text of every procedure or view named in names.
// Lookup is case-insensitive; the returned map is keyed by the catalog's own
// spelling. Objects without readable text are left out.
func (r *Reader) Definitions(ctx context.Context, kind types.ObjectType, names []string) (map[string]schema.Definition, error) {
	defs := make(map[string]schema.Definition)
	if len(names) == 0 {
		return defs, nil
	}

	query, err := r.conn.Dialect.DefinitionsQuery(kind)
	if err != nil {
		return nil, r.failure(types.InputFailure, "", err)
	}
	rows, err := r.query(ctx, query, nil, 2)
	if err != nil {
		return nil, r.failure(types.ConnectivityFailure, "", fmt.Errorf("read %s definitions: %w", kind, err))
	}

	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[strings.ToLower(n)] = struct{}{}
	}
	for _, row := range rows {
		name := row[0].String
		if _, ok := wanted[strings.ToLower(name)]; !ok || !row[1].Valid {
			continue
		}
		defs[name] = schema.Definition{Name: name, Text: strings.TrimSpace(row[1].String), Exists: true}
	}

	r.logger.Debugf("Read %d of %d %s definitions", len(defs), len(names), kind)
	return defs, nil
}

// RawDefinition returns the authored text of an object exactly as stored.
// It returns "" when the catalog has no text for the object.
func (r *Reader) RawDefinition(ctx context.Context, kind types.ObjectType, name string) (string, error) {
	st, err := r.conn.Dialect.RawDefinition(kind, name)
	if err != nil {
		return "", r.failure(types.DefinitionFetchFailure, name, err)
	}

	rows, err := r.conn.DB.QueryContext(ctx, st.Query, st.Args...)
	if err != nil {
		return "", r.failure(types.DefinitionFetchFailure, name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", r.failure(types.DefinitionFetchFailure, name, err)
	}
	idx := 0
	if st.Column != "" {
		idx = -1
		for i, c := range cols {
			if strings.EqualFold(c, st.Column) {
				idx = i
			}
		}
		if idx < 0 {
			return "", r.failure(types.DefinitionFetchFailure, name, fmt.Errorf("column %q not in result", st.Column))
		}
	}

	var b strings.Builder
	vals := make([]sql.NullString, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return "", r.failure(types.DefinitionFetchFailure, name, err)
		}
		b.WriteString(vals[idx].String)
	}
	if err := rows.Err(); err != nil {
		return "", r.failure(types.DefinitionFetchFailure, name, err)
	}
	return b.String(), nil
}

// Exists reports whether the object is present in the catalog.
func (r *Reader) Exists(ctx context.Context, q Querier, kind types.ObjectType, name string) (bool, error) {
	st, err := r.conn.Dialect.Exists(kind, name)
	if err != nil {
		return false, err
	}
	var n int64
	if err := q.QueryRowContext(ctx, st.Query, st.Args...).Scan(&n); err != nil {
		return false, fmt.Errorf("check %s %s exists: %w", kind, name, err)
	}
	return n > 0, nil
}

// Dependency records that Object references DependsOn.
type Dependency struct {
	Object    string
	DependsOn string
}

// Dependencies returns references among the named objects of kind. Names are
// returned in the caller's spelling. Engines without a dependency catalog yield none.
func (r *Reader) Dependencies(ctx context.Context, kind types.ObjectType, names []string) ([]Dependency, error) {
	query := r.conn.Dialect.DependenciesQuery(kind)
	if query == "" || len(names) == 0 {
		return nil, nil
	}
	rows, err := r.query(ctx, query, nil, 2)
	if err != nil {
		return nil, r.failure(types.ConnectivityFailure, "", fmt.Errorf("read %s dependencies: %w", kind, err))
	}

	canonical := make(map[string]string, len(names))
	for _, n := range names {
		canonical[strings.ToLower(n)] = n
	}
	seen := make(map[Dependency]bool)
	var deps []Dependency
	for _, row := range rows {
		from, okFrom := canonical[strings.ToLower(row[0].String)]
		to, okTo := canonical[strings.ToLower(row[1].String)]
		if !okFrom || !okTo || from == to {
			continue
		}
		d := Dependency{Object: from, DependsOn: to}
		if !seen[d] {
			seen[d] = true
			deps = append(deps, d)
		}
	}
	return deps, nil
}

// RowCount counts the rows of a view or table.
func (r *Reader) RowCount(ctx context.Context, name string) (int64, error) {
	st, err := r.conn.Dialect.RowCount(name)
	if err != nil {
		return 0, r.failure(types.InputFailure, name, err)
	}
	var n int64
	if err := r.conn.DB.QueryRowContext(ctx, st.Query, st.Args...).Scan(&n); err != nil {
		return 0, r.failure(types.ConnectivityFailure, name, err)
	}
	return n, nil
}

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// query runs a catalog query and scans width text columns per row.
func (r *Reader) query(ctx context.Context, query string, args []interface{}, width int) ([][]sql.NullString, error) {
	rows, err := r.conn.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]sql.NullString
	for rows.Next() {
		row := make([]sql.NullString, width)
		ptrs := make([]interface{}, width)
		for i := range row {
			ptrs[i] = &row[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Reader) failure(kind types.FailureKind, object string, err error) error {
	return types.NewFailure(kind, r.conn.Label(), object, err)
}
