package differ

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/schemasync/internal/report"
	"github.com/dbsmedya/schemasync/internal/schema"
	"github.com/dbsmedya/schemasync/internal/types"
)

func strPtr(s string) *string { return &s }

func ordersTable() *schema.Table {
	t := schema.NewTable("Orders")
	t.Columns = []schema.Column{
		{Name: "Id", DataType: "int", Nullable: false},
		{Name: "Code", DataType: "nvarchar", MaxLength: 20, Nullable: false},
		{Name: "Amount", DataType: "decimal", Nullable: true, Default: strPtr("((0))")},
	}
	t.PrimaryKey.Add("Id")
	t.ForeignKeys.Add("CustomerId", "Customer", "Id")
	t.Indexes.Add("IX_Orders_Code", "Code")
	t.Triggers["trg_Orders_Audit"] = schema.Trigger{
		Name:       "trg_Orders_Audit",
		Definition: "CREATE TRIGGER trg_Orders_Audit ON Orders AFTER INSERT AS\nINSERT INTO Audit SELECT Id FROM inserted",
		FiringType: "AFTER",
		Events:     "INSERT",
	}
	return t
}

func snapshotOf(tables ...*schema.Table) *schema.Snapshot {
	s := schema.NewSnapshot()
	for _, t := range tables {
		s.Tables[t.Name] = t
	}
	return s
}

func message(t *testing.T, rec *report.Record, key string) string {
	t.Helper()
	v, ok := rec.Get(key)
	require.True(t, ok, "expected key %q", key)
	msg, ok := v.(report.Message)
	require.True(t, ok, "expected message for %q, got %T", key, v)
	return string(msg)
}

// ============================================================================
// Text Differ Tests
// ============================================================================

func TestDiffLines(t *testing.T) {
	tests := []struct {
		name     string
		base     []string
		target   []string
		expected []string
	}{
		{"identical", []string{"a", "b"}, []string{"a", "b"}, nil},
		{"insert", []string{"a", "c"}, []string{"a", "b", "c"}, []string{"+ b"}},
		{"delete", []string{"a", "b", "c"}, []string{"a", "c"}, []string{"- b"}},
		{"replace", []string{"a", "x", "c"}, []string{"a", "y", "c"}, []string{"- x", "+ y"}},
		{"all new", nil, []string{"a"}, []string{"+ a"}},
		{
			"similar lines paired",
			[]string{"select a", "from t1"},
			[]string{"select b", "from t2"},
			[]string{"- select a", "+ select b", "- from t1", "+ from t2"},
		},
		{
			"dissimilar block shorter side first",
			[]string{"alpha", "beta", "gamma"},
			[]string{"zzzz"},
			[]string{"+ zzzz", "- alpha", "- beta", "- gamma"},
		},
		{
			"dissimilar block equal length base first",
			[]string{"alpha"},
			[]string{"zzzz"},
			[]string{"- alpha", "+ zzzz"},
		},
		{
			"pair splits surrounding lines",
			[]string{"begin", "set nocount on", "select id from orders", "end"},
			[]string{"begin", "select id, total from orders", "end"},
			[]string{"- set nocount on", "- select id from orders", "+ select id, total from orders"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DiffLines(tt.base, tt.target))
		})
	}
}

// ============================================================================
// Structural Differ Tests
// ============================================================================

func TestCompareTable_Identical(t *testing.T) {
	rec := CompareTable(snapshotOf(ordersTable()), snapshotOf(ordersTable()), "Orders", Options{})
	assert.Nil(t, rec)
}

func TestCompareTable_EquivalentDefault(t *testing.T) {
	target := ordersTable()
	target.Columns[2].Default = strPtr("0")
	assert.Nil(t, CompareTable(snapshotOf(ordersTable()), snapshotOf(target), "Orders", Options{}))
}

func TestCompareTable_MissingColumnSymmetry(t *testing.T) {
	withCol := ordersTable()
	withoutCol := ordersTable()
	withoutCol.Columns = withoutCol.Columns[:2]

	rec := CompareTable(snapshotOf(withCol), snapshotOf(withoutCol), "Orders", Options{})
	require.NotNil(t, rec)
	assert.Equal(t, MissingInTarget, message(t, rec, "Amount"))

	rec = CompareTable(snapshotOf(withoutCol), snapshotOf(withCol), "Orders", Options{})
	require.NotNil(t, rec)
	assert.Equal(t, MissingInStandard, message(t, rec, "Amount"))
}

func TestCompareTable_ColumnFieldMessages(t *testing.T) {
	target := ordersTable()
	target.Columns[0].DataType = "bigint"
	target.Columns[1].DataType = "NVARCHAR"
	target.Columns[1].MaxLength = 50
	target.Columns[2].Nullable = false
	target.Columns[2].Default = nil

	rec := CompareTable(snapshotOf(ordersTable()), snapshotOf(target), "Orders", Options{})
	require.NotNil(t, rec)
	assert.Equal(t, "Type: int vs bigint", message(t, rec, "Id"))
	assert.Equal(t, "Length: 20 vs 50", message(t, rec, "Code"))
	assert.Equal(t, "Nullable: YES vs NO; Default: ((0)) vs NULL", message(t, rec, "Amount"))
	assert.Equal(t, []string{"Id", "Code", "Amount"}, rec.Keys())
}

func TestCompareTable_KeySetFacets(t *testing.T) {
	target := ordersTable()
	target.PrimaryKey.Add("Code")
	target.Indexes = schema.NewKeySet()
	target.Uniques.Add("UQ_Orders_Code", "Code")

	rec := CompareTable(snapshotOf(ordersTable()), snapshotOf(target), "Orders", Options{})
	require.NotNil(t, rec)
	assert.Equal(t, "['Id'] vs ['Code', 'Id']", message(t, rec, FacetPrimaryKey))
	assert.Equal(t, "[('IX_Orders_Code', 'Code')] vs []", message(t, rec, FacetIndex))
	assert.Equal(t, "[] vs [('UQ_Orders_Code', 'Code')]", message(t, rec, FacetUnique))
	_, hasFK := rec.Get(FacetForeignKey)
	assert.False(t, hasFK)
	assert.Equal(t, []string{FacetPrimaryKey, FacetIndex, FacetUnique}, rec.Keys())
}

func TestCompareTable_KeySetOrderIndependent(t *testing.T) {
	base := ordersTable()
	base.PrimaryKey = schema.NewKeySet([]string{"Id"}, []string{"Code"})
	target := ordersTable()
	target.PrimaryKey = schema.NewKeySet([]string{"Code"}, []string{"Id"})
	assert.Nil(t, CompareTable(snapshotOf(base), snapshotOf(target), "Orders", Options{}))
}

func TestCompareTable_TriggerMetadataShortCircuits(t *testing.T) {
	target := ordersTable()
	trg := target.Triggers["trg_Orders_Audit"]
	trg.Events = "INSERT/UPDATE"
	trg.Definition = "something else entirely"
	target.Triggers["trg_Orders_Audit"] = trg

	rec := CompareTable(snapshotOf(ordersTable()), snapshotOf(target), "Orders", Options{ShowContent: true})
	require.NotNil(t, rec)
	v, ok := rec.Get(FacetTrigger)
	require.True(t, ok)
	trigRec, ok := v.(*report.Record)
	require.True(t, ok)
	assert.Equal(t, "Trigger metadata differs", message(t, trigRec, "trg_Orders_Audit"))
}

func TestCompareTable_TriggerFiringTypeOnly(t *testing.T) {
	target := ordersTable()
	trg := target.Triggers["trg_Orders_Audit"]
	trg.FiringType = "INSTEAD OF"
	target.Triggers["trg_Orders_Audit"] = trg

	rec := CompareTable(snapshotOf(ordersTable()), snapshotOf(target), "Orders", Options{ShowContent: true})
	require.NotNil(t, rec)
	v, ok := rec.Get(FacetTrigger)
	require.True(t, ok)
	trigRec := v.(*report.Record)
	assert.Equal(t, 1, trigRec.Len())
	assert.Equal(t, "Trigger metadata differs", message(t, trigRec, "trg_Orders_Audit"))
}

func TestCompareTable_TableNamesMatchExactly(t *testing.T) {
	target := ordersTable()
	target.Name = "orders"

	rec := CompareTable(snapshotOf(ordersTable()), snapshotOf(target), "Orders", Options{})
	require.NotNil(t, rec)
	assert.Equal(t, MissingInTarget, message(t, rec, "Id"))
}

func TestCompareTable_TriggerDefinition(t *testing.T) {
	target := ordersTable()
	trg := target.Triggers["trg_Orders_Audit"]
	trg.Definition = "-- changed\nCREATE TRIGGER trg_Orders_Audit ON Orders AFTER INSERT AS\nINSERT INTO AuditLog SELECT Id FROM inserted"
	target.Triggers["trg_Orders_Audit"] = trg
	target.Triggers["trg_Orders_Extra"] = schema.Trigger{Name: "trg_Orders_Extra", FiringType: "AFTER", Events: "DELETE"}

	rec := CompareTable(snapshotOf(ordersTable()), snapshotOf(target), "Orders", Options{})
	require.NotNil(t, rec)
	v, _ := rec.Get(FacetTrigger)
	trigRec := v.(*report.Record)
	assert.Equal(t, "Definition differs", message(t, trigRec, "trg_Orders_Audit"))
	assert.Equal(t, MissingInStandard, message(t, trigRec, "trg_Orders_Extra"))

	rec = CompareTable(snapshotOf(ordersTable()), snapshotOf(target), "Orders", Options{ShowContent: true})
	v, _ = rec.Get(FacetTrigger)
	trigRec = v.(*report.Record)
	lines, _ := trigRec.Get("trg_Orders_Audit")
	assert.Equal(t, report.Lines{
		"Definition differs",
		"- insert into audit select id from inserted",
		"+ insert into auditlog select id from inserted",
	}, lines)
}

func TestCompareTable_CommentOnlyTriggerChangeIgnored(t *testing.T) {
	target := ordersTable()
	trg := target.Triggers["trg_Orders_Audit"]
	trg.Definition = "/* audit */\n" + trg.Definition + " -- trailing"
	target.Triggers["trg_Orders_Audit"] = trg
	assert.Nil(t, CompareTable(snapshotOf(ordersTable()), snapshotOf(target), "Orders", Options{}))
}

func TestCompareTable_TableAbsent(t *testing.T) {
	rec := CompareTable(snapshotOf(ordersTable()), schema.NewSnapshot(), "Orders", Options{})
	require.NotNil(t, rec)
	assert.Equal(t, MissingInTarget, message(t, rec, "Id"))
	assert.Equal(t, "['Id'] vs []", message(t, rec, FacetPrimaryKey))

	rec = CompareTable(schema.NewSnapshot(), schema.NewSnapshot(), "Orders", Options{})
	require.NotNil(t, rec)
	assert.Equal(t, MissingInBoth, message(t, rec, FacetTable))
}

// ============================================================================
// Definition Comparison Tests
// ============================================================================

func TestCompareDefinition(t *testing.T) {
	def := func(text string) schema.Definition {
		return schema.Definition{Name: "usp_A", Text: text, Exists: true}
	}

	assert.Equal(t, report.Lines{MissingInBoth}, CompareDefinition(schema.Missing, schema.Missing, Options{}))
	assert.Equal(t, report.Lines{MissingInStandard}, CompareDefinition(schema.Missing, def("x"), Options{}))
	assert.Equal(t, report.Lines{MissingInTargetDatabase}, CompareDefinition(def("x"), schema.Missing, Options{}))
	assert.Nil(t, CompareDefinition(def("SELECT 1 -- one"), def("select 1"), Options{}))
	assert.Equal(t, report.Lines{DefinitionDifferent}, CompareDefinition(def("SELECT 1"), def("SELECT 2"), Options{}))
	assert.Equal(t, report.Lines{DefinitionDifferent, "- select 1", "+ select 2"},
		CompareDefinition(def("SELECT 1"), def("SELECT 2"), Options{ShowContent: true}))
}

func TestCompareObject_CaseMismatchWarning(t *testing.T) {
	id := types.ObjectIdentity{Type: types.StoredProcedure, Name: "usp_GetOrders"}
	base := map[string]schema.Definition{
		"usp_GetOrders": {Name: "usp_GetOrders", Text: "SELECT 1", Exists: true},
	}
	target := map[string]schema.Definition{
		"USP_GETORDERS": {Name: "USP_GETORDERS", Text: "select 1", Exists: true},
	}

	lines := CompareObject(id, base, target, Options{})
	assert.Equal(t, report.Lines{
		"Warning: Case mismatch for 'usp_GetOrders' → Base='usp_GetOrders', Target='USP_GETORDERS'",
	}, lines)

	assert.Nil(t, CompareObject(id, base, base, Options{}))

	lines = CompareObject(id, base, map[string]schema.Definition{}, Options{})
	assert.Equal(t, report.Lines{MissingInTargetDatabase}, lines)
}
