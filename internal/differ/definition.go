package differ

import (
	"fmt"
	"sort"

	"github.com/dbsmedya/schemasync/internal/normalize"
	"github.com/dbsmedya/schemasync/internal/report"
	"github.com/dbsmedya/schemasync/internal/schema"
	"github.com/dbsmedya/schemasync/internal/types"
)

// Messages for procedure and view comparison.
const (
	MissingInTargetDatabase = "Missing in target database"
	DefinitionDifferent     = "Definition is different!"
)

// CompareDefinition diffs one procedure or view. Absent definitions are
// schema.Missing. It returns nil when both sides exist and normalize equal.
func CompareDefinition(base, target schema.Definition, opts Options) report.Lines {
	switch {
	case !base.Exists && !target.Exists:
		return report.Lines{MissingInBoth}
	case !base.Exists:
		return report.Lines{MissingInStandard}
	case !target.Exists:
		return report.Lines{MissingInTargetDatabase}
	}
	bl, tl := normalize.Lines(base.Text), normalize.Lines(target.Text)
	if equalLines(bl, tl) {
		return nil
	}
	if !opts.ShowContent {
		return report.Lines{DefinitionDifferent}
	}
	return append(report.Lines{DefinitionDifferent}, DiffLines(bl, tl)...)
}

// CompareObject looks up id in both definition maps, case-insensitively, and
// returns the report lines for it. A name found with different case than
// requested prepends a warning line. Nil means no difference.
func CompareObject(id types.ObjectIdentity, base, target map[string]schema.Definition, opts Options) report.Lines {
	b, _ := schema.FindDefinition(base, id.Name, id.SameName)
	t, _ := schema.FindDefinition(target, id.Name, id.SameName)

	var lines report.Lines
	if (b.Exists && b.Name != id.Name) || (t.Exists && t.Name != id.Name) {
		lines = append(lines, fmt.Sprintf("Warning: Case mismatch for '%s' → Base='%s', Target='%s'",
			id.Name, displayName(b), displayName(t)))
	}
	lines = append(lines, CompareDefinition(b, t, opts)...)
	if len(lines) == 0 {
		return nil
	}
	return lines
}

func displayName(d schema.Definition) string {
	if !d.Exists {
		return "-"
	}
	return d.Name
}

func sortedSet(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
