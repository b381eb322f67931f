package differ

import (
	"fmt"
	"strings"

	"github.com/dbsmedya/schemasync/internal/normalize"
	"github.com/dbsmedya/schemasync/internal/report"
	"github.com/dbsmedya/schemasync/internal/schema"
	"github.com/dbsmedya/schemasync/internal/types"
)

// Messages used for one-sided presence.
const (
	MissingInStandard = "Missing in standard"
	MissingInTarget   = "Missing in target"
	MissingInBoth     = "Missing in both databases"
)

// Facet keys in a table record.
const (
	FacetTable      = "Table"
	FacetPrimaryKey = "Primary Key"
	FacetForeignKey = "Foreign Key"
	FacetIndex      = "Index"
	FacetTrigger    = "Trigger"
	FacetUnique     = "Unique"
)

// Options controls how much detail a comparison records.
type Options struct {
	// ShowContent attaches line diffs to definition mismatches.
	ShowContent bool
}

// CompareTable diffs one table between the base and target snapshots.
// It returns nil when every facet matches.
func CompareTable(base, target *schema.Snapshot, table string, opts Options) *report.Record {
	id := types.ObjectIdentity{Type: types.Table, Name: table}
	bt, tt := lookupTable(base, id), lookupTable(target, id)
	if bt == nil && tt == nil {
		rec := report.NewRecord()
		rec.Set(FacetTable, report.Message(MissingInBoth))
		return rec
	}
	if bt == nil {
		bt = schema.NewTable(table)
	}
	if tt == nil {
		tt = schema.NewTable(table)
	}

	rec := report.NewRecord()
	compareColumns(rec, bt, tt)
	compareKeySet(rec, FacetPrimaryKey, bt.PrimaryKey, tt.PrimaryKey)
	compareKeySet(rec, FacetForeignKey, bt.ForeignKeys, tt.ForeignKeys)
	compareKeySet(rec, FacetIndex, bt.Indexes, tt.Indexes)
	if trig := compareTriggers(bt, tt, opts); trig != nil {
		rec.Set(FacetTrigger, trig)
	}
	compareKeySet(rec, FacetUnique, bt.Uniques, tt.Uniques)

	if rec.Len() == 0 {
		return nil
	}
	return rec
}

// lookupTable returns the snapshot table that id names, or nil.
func lookupTable(s *schema.Snapshot, id types.ObjectIdentity) *schema.Table {
	if t := s.Table(id.Name); t != nil {
		return t
	}
	if s == nil {
		return nil
	}
	names := make(map[string]struct{}, len(s.Tables))
	for n := range s.Tables {
		names[n] = struct{}{}
	}
	for _, n := range sortedSet(names) {
		if id.SameName(n) {
			return s.Tables[n]
		}
	}
	return nil
}

// compareColumns walks base columns in ordinal order, then target-only columns.
func compareColumns(rec *report.Record, bt, tt *schema.Table) {
	for _, bc := range bt.Columns {
		tc, ok := tt.Column(bc.Name)
		if !ok {
			rec.Set(bc.Name, report.Message(MissingInTarget))
			continue
		}
		if msg := compareColumn(bc, tc); msg != "" {
			rec.Set(bc.Name, report.Message(msg))
		}
	}
	for _, tc := range tt.Columns {
		if _, ok := bt.Column(tc.Name); !ok {
			rec.Set(tc.Name, report.Message(MissingInStandard))
		}
	}
}

func compareColumn(b, t schema.Column) string {
	var msgs []string
	if !strings.EqualFold(b.DataType, t.DataType) {
		msgs = append(msgs, fmt.Sprintf("Type: %s vs %s", b.DataType, t.DataType))
	}
	if b.MaxLength != t.MaxLength {
		msgs = append(msgs, fmt.Sprintf("Length: %d vs %d", b.MaxLength, t.MaxLength))
	}
	if b.Nullable != t.Nullable {
		msgs = append(msgs, fmt.Sprintf("Nullable: %s vs %s", yesNo(b.Nullable), yesNo(t.Nullable)))
	}
	if normalize.Default(b.Default) != normalize.Default(t.Default) {
		msgs = append(msgs, fmt.Sprintf("Default: %s vs %s", rawDefault(b.Default), rawDefault(t.Default)))
	}
	return strings.Join(msgs, "; ")
}

func compareKeySet(rec *report.Record, facet string, b, t schema.KeySet) {
	if b.Equal(t) {
		return
	}
	rec.Set(facet, report.Message(fmt.Sprintf("%s vs %s", b.String(), t.String())))
}

// compareTriggers returns nil when the trigger sets match. Metadata mismatch
// short-circuits the definition comparison.
func compareTriggers(bt, tt *schema.Table, opts Options) *report.Record {
	rec := report.NewRecord()
	names := map[string]struct{}{}
	for _, n := range append(bt.TriggerNames(), tt.TriggerNames()...) {
		names[n] = struct{}{}
	}
	for _, name := range sortedSet(names) {
		b, inBase := bt.Triggers[name]
		t, inTarget := tt.Triggers[name]
		switch {
		case !inBase:
			rec.Set(name, report.Message(MissingInStandard))
		case !inTarget:
			rec.Set(name, report.Message(MissingInTarget))
		case !strings.EqualFold(b.FiringType, t.FiringType) || !strings.EqualFold(b.Events, t.Events):
			rec.Set(name, report.Message("Trigger metadata differs"))
		default:
			bl, tl := normalize.Lines(b.Definition), normalize.Lines(t.Definition)
			if equalLines(bl, tl) {
				continue
			}
			if opts.ShowContent {
				rec.Set(name, append(report.Lines{"Definition differs"}, DiffLines(bl, tl)...))
			} else {
				rec.Set(name, report.Message("Definition differs"))
			}
		}
	}
	if rec.Len() == 0 {
		return nil
	}
	return rec
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}

func rawDefault(v *string) string {
	if v == nil {
		return "NULL"
	}
	return *v
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
