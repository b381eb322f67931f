package dialect

import (
	"fmt"
	"strings"
	"time"

	"github.com/dbsmedya/schemasync/internal/sqlutil"
	"github.com/dbsmedya/schemasync/internal/types"
)

// SQLServer is the Microsoft SQL Server dialect (go-mssqldb, @pN parameters).
type SQLServer struct{}

func (SQLServer) Name() string                   { return "sqlserver" }
func (SQLServer) DriverName() string             { return "sqlserver" }
func (SQLServer) QuoteStyle() sqlutil.QuoteStyle { return sqlutil.Brackets }

func (SQLServer) placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("@p%d", i+1)
	}
	return strings.Join(ps, ", ")
}

func (d SQLServer) FacetQuery(f Facet, n int) string {
	in := d.placeholders(n)
	switch f {
	case Columns:
		return `SELECT TABLE_NAME, COLUMN_NAME, DATA_TYPE,
       COALESCE(CHARACTER_MAXIMUM_LENGTH, 0), IS_NULLABLE, COLUMN_DEFAULT
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_NAME IN (` + in + `)
ORDER BY TABLE_NAME, ORDINAL_POSITION`
	case PrimaryKeys:
		return `SELECT TABLE_NAME, COLUMN_NAME
FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
WHERE OBJECTPROPERTY(OBJECT_ID(CONSTRAINT_SCHEMA + '.' + QUOTENAME(CONSTRAINT_NAME)), 'IsPrimaryKey') = 1
  AND TABLE_NAME IN (` + in + `)`
	case ForeignKeys:
		return `SELECT tc.TABLE_NAME, kcu.COLUMN_NAME, ccu.TABLE_NAME, ccu.COLUMN_NAME
FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS AS tc
JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE AS kcu ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
JOIN INFORMATION_SCHEMA.CONSTRAINT_COLUMN_USAGE AS ccu ON tc.CONSTRAINT_NAME = ccu.CONSTRAINT_NAME
WHERE tc.CONSTRAINT_TYPE = 'FOREIGN KEY'
  AND tc.TABLE_NAME IN (` + in + `)`
	case Indexes:
		return `SELECT t.name, ind.name, col.name
FROM sys.indexes ind
JOIN sys.index_columns ic ON ind.object_id = ic.object_id AND ind.index_id = ic.index_id
JOIN sys.columns col ON ic.object_id = col.object_id AND ic.column_id = col.column_id
JOIN sys.tables t ON ind.object_id = t.object_id
WHERE t.name IN (` + in + `)
  AND ind.is_primary_key = 0 AND ind.is_unique_constraint = 0`
	case Triggers:
		return `SELECT tbl.name, trg.name, COALESCE(m.definition, ''),
       CASE WHEN trg.is_instead_of_trigger = 1 THEN 'INSTEAD OF' ELSE 'AFTER' END,
       COALESCE(STUFF((SELECT '/' + te.type_desc
                       FROM sys.trigger_events te
                       WHERE te.object_id = trg.object_id
                       FOR XML PATH('')), 1, 1, ''), '')
FROM sys.triggers trg
JOIN sys.tables tbl ON trg.parent_id = tbl.object_id
JOIN sys.sql_modules m ON trg.object_id = m.object_id
WHERE tbl.name IN (` + in + `)`
	case Uniques:
		return `SELECT tc.TABLE_NAME, tc.CONSTRAINT_NAME, kcu.COLUMN_NAME
FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
WHERE tc.CONSTRAINT_TYPE = 'UNIQUE'
  AND tc.TABLE_NAME IN (` + in + `)`
	}
	return ""
}

func (d SQLServer) DefinitionsQuery(kind types.ObjectType) (string, error) {
	if kind != types.StoredProcedure && kind != types.View {
		return "", unsupportedKind(d, kind)
	}
	return `SELECT o.name, m.definition
FROM sys.sql_modules m
JOIN sys.objects o ON m.object_id = o.object_id
WHERE o.type = '` + kind.CatalogCode() + `'`, nil
}

func (d SQLServer) RawDefinition(kind types.ObjectType, name string) (Statement, error) {
	if kind != types.StoredProcedure && kind != types.View {
		return Statement{}, unsupportedKind(d, kind)
	}
	return Statement{Query: "EXEC sp_helptext @objname = @p1", Args: []interface{}{name}}, nil
}

func (d SQLServer) Exists(kind types.ObjectType, name string) (Statement, error) {
	if kind != types.StoredProcedure && kind != types.View {
		return Statement{}, unsupportedKind(d, kind)
	}
	return Statement{
		Query: "SELECT CASE WHEN OBJECT_ID(@p1, @p2) IS NULL THEN 0 ELSE 1 END",
		Args:  []interface{}{name, kind.CatalogCode()},
	}, nil
}

func (d SQLServer) Drop(kind types.ObjectType, name string) (string, error) {
	quoted, err := sqlutil.QuoteIdentifierSafe(sqlutil.Brackets, name)
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

func (SQLServer) DependenciesQuery(kind types.ObjectType) string {
	return `SELECT OBJECT_NAME(d.referencing_id), OBJECT_NAME(d.referenced_id)
FROM sys.sql_expression_dependencies d
JOIN sys.objects o ON d.referencing_id = o.object_id
WHERE d.referenced_id IS NOT NULL
  AND o.type = '` + kind.CatalogCode() + `'`
}

func (SQLServer) RowCount(name string) (Statement, error) {
	quoted, err := sqlutil.QuoteIdentifierSafe(sqlutil.Brackets, name)
	if err != nil {
		return Statement{}, err
	}
	return Statement{Query: "SELECT COUNT_BIG(*) FROM " + quoted}, nil
}

func (SQLServer) AcquireLock(name string, timeout time.Duration) Statement {
	return Statement{
		Query: `DECLARE @result int;
EXEC @result = sp_getapplock @Resource = @p1, @LockMode = 'Exclusive', @LockOwner = 'Session', @LockTimeout = @p2;
SELECT CASE WHEN @result >= 0 THEN 1 ELSE 0 END`,
		Args: []interface{}{name, int(timeout / time.Millisecond)},
	}
}

func (SQLServer) ReleaseLock(name string) Statement {
	return Statement{
		Query: "EXEC sp_releaseapplock @Resource = @p1, @LockOwner = 'Session'",
		Args:  []interface{}{name},
	}
}
