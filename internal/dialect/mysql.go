package dialect

import (
	"strings"
	"time"

	"github.com/dbsmedya/schemasync/internal/sqlutil"
	"github.com/dbsmedya/schemasync/internal/types"
)

// MySQL is the MySQL 8 dialect (go-sql-driver/mysql, ? parameters). Catalog
// reads are scoped to the connection's current database.
type MySQL struct{}

func (MySQL) Name() string                   { return "mysql" }
func (MySQL) DriverName() string             { return "mysql" }
func (MySQL) QuoteStyle() sqlutil.QuoteStyle { return sqlutil.Backticks }

func (MySQL) placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func (d MySQL) FacetQuery(f Facet, n int) string {
	in := d.placeholders(n)
	switch f {
	case Columns:
		return `SELECT TABLE_NAME, COLUMN_NAME, DATA_TYPE,
       COALESCE(CHARACTER_MAXIMUM_LENGTH, 0), IS_NULLABLE, COLUMN_DEFAULT
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME IN (` + in + `)
ORDER BY TABLE_NAME, ORDINAL_POSITION`
	case PrimaryKeys:
		return `SELECT TABLE_NAME, COLUMN_NAME
FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
WHERE TABLE_SCHEMA = DATABASE() AND CONSTRAINT_NAME = 'PRIMARY'
  AND TABLE_NAME IN (` + in + `)`
	case ForeignKeys:
		return `SELECT TABLE_NAME, COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME
FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
WHERE TABLE_SCHEMA = DATABASE() AND REFERENCED_TABLE_NAME IS NOT NULL
  AND TABLE_NAME IN (` + in + `)`
	case Indexes:
		return `SELECT TABLE_NAME, INDEX_NAME, COLUMN_NAME
FROM INFORMATION_SCHEMA.STATISTICS
WHERE TABLE_SCHEMA = DATABASE() AND INDEX_NAME <> 'PRIMARY' AND NON_UNIQUE = 1
  AND TABLE_NAME IN (` + in + `)`
	case Triggers:
		return `SELECT EVENT_OBJECT_TABLE, TRIGGER_NAME, ACTION_STATEMENT, ACTION_TIMING, EVENT_MANIPULATION
FROM INFORMATION_SCHEMA.TRIGGERS
WHERE TRIGGER_SCHEMA = DATABASE() AND EVENT_OBJECT_TABLE IN (` + in + `)`
	case Uniques:
		return `SELECT tc.TABLE_NAME, tc.CONSTRAINT_NAME, kcu.COLUMN_NAME
FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
  ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
 AND tc.TABLE_SCHEMA = kcu.TABLE_SCHEMA
 AND tc.TABLE_NAME = kcu.TABLE_NAME
WHERE tc.TABLE_SCHEMA = DATABASE() AND tc.CONSTRAINT_TYPE = 'UNIQUE'
  AND tc.TABLE_NAME IN (` + in + `)`
	}
	return ""
}

func (d MySQL) DefinitionsQuery(kind types.ObjectType) (string, error) {
	switch kind {
	case types.StoredProcedure:
		return `SELECT ROUTINE_NAME, ROUTINE_DEFINITION
FROM INFORMATION_SCHEMA.ROUTINES
WHERE ROUTINE_SCHEMA = DATABASE() AND ROUTINE_TYPE = 'PROCEDURE'`, nil
	case types.View:
		return `SELECT TABLE_NAME, VIEW_DEFINITION
FROM INFORMATION_SCHEMA.VIEWS
WHERE TABLE_SCHEMA = DATABASE()`, nil
	}
	return "", unsupportedKind(d, kind)
}

func (d MySQL) RawDefinition(kind types.ObjectType, name string) (Statement, error) {
	quoted, err := sqlutil.QuoteIdentifierSafe(sqlutil.Backticks, name)
	if err != nil {
		return Statement{}, err
	}
	switch kind {
	case types.StoredProcedure:
		return Statement{Query: "SHOW CREATE PROCEDURE " + quoted, Column: "Create Procedure"}, nil
	case types.View:
		return Statement{Query: "SHOW CREATE VIEW " + quoted, Column: "Create View"}, nil
	}
	return Statement{}, unsupportedKind(d, kind)
}

func (d MySQL) Exists(kind types.ObjectType, name string) (Statement, error) {
	switch kind {
	case types.StoredProcedure:
		return Statement{
			Query: `SELECT COUNT(*) FROM INFORMATION_SCHEMA.ROUTINES
WHERE ROUTINE_SCHEMA = DATABASE() AND ROUTINE_TYPE = 'PROCEDURE' AND ROUTINE_NAME = ?`,
			Args: []interface{}{name},
		}, nil
	case types.View:
		return Statement{
			Query: `SELECT COUNT(*) FROM INFORMATION_SCHEMA.VIEWS
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?`,
			Args: []interface{}{name},
		}, nil
	}
	return Statement{}, unsupportedKind(d, kind)
}

func (d MySQL) Drop(kind types.ObjectType, name string) (string, error) {
	quoted, err := sqlutil.QuoteIdentifierSafe(sqlutil.Backticks, name)
	if err != nil {
		return "", err
	}
	switch kind {
	case types.StoredProcedure:
		return "DROP PROCEDURE " + quoted, nil
	case types.View:
		return "DROP VIEW " + quoted, nil
	}
	return "", unsupportedKind(d, kind)
}

func (MySQL) DependenciesQuery(kind types.ObjectType) string {
	if kind != types.View {
		return ""
	}
	return `SELECT VIEW_NAME, TABLE_NAME
FROM INFORMATION_SCHEMA.VIEW_TABLE_USAGE
WHERE VIEW_SCHEMA = DATABASE()`
}

func (MySQL) RowCount(name string) (Statement, error) {
	quoted, err := sqlutil.QuoteIdentifierSafe(sqlutil.Backticks, name)
	if err != nil {
		return Statement{}, err
	}
	return Statement{Query: "SELECT COUNT(*) FROM " + quoted}, nil
}

func (MySQL) AcquireLock(name string, timeout time.Duration) Statement {
	return Statement{
		Query: "SELECT COALESCE(GET_LOCK(?, ?), 0)",
		Args:  []interface{}{name, int(timeout / time.Second)},
	}
}

func (MySQL) ReleaseLock(name string) Statement {
	return Statement{Query: "SELECT RELEASE_LOCK(?)", Args: []interface{}{name}}
}
