package graph

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/dbsmedya/schemasync/internal/catalog"
)

// ============================================================================
// Graph structure
// ============================================================================

func TestAddEdge_IgnoresDuplicates(t *testing.T) {
	g := NewGraph()
	g.AddEdge("vw_base", "vw_report")
	g.AddEdge("vw_base", "vw_report")

	if g.EdgeCount() != 1 {
		t.Errorf("Expected 1 edge, got %d", g.EdgeCount())
	}
	if g.NodeCount() != 2 {
		t.Errorf("Expected 2 nodes, got %d", g.NodeCount())
	}
	if got := g.GetParents("vw_report"); !reflect.DeepEqual(got, []string{"vw_base"}) {
		t.Errorf("Expected parents [vw_base], got %v", got)
	}
	if g.InDegree("vw_base") != 0 {
		t.Errorf("Expected vw_base in-degree 0, got %d", g.InDegree("vw_base"))
	}
}

func TestAllEdges_Sorted(t *testing.T) {
	g := NewGraph()
	g.AddEdge("b", "c")
	g.AddEdge("a", "d")
	g.AddEdge("a", "c")

	want := []Edge{{"a", "c"}, {"a", "d"}, {"b", "c"}}
	if got := g.AllEdges(); !reflect.DeepEqual(got, want) {
		t.Errorf("AllEdges() = %v, want %v", got, want)
	}
}

// ============================================================================
// Kahn ordering
// ============================================================================

func TestLevels_Chain(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")

	levels, err := g.Levels()
	if err != nil {
		t.Fatalf("Levels() error = %v", err)
	}
	want := [][]string{{"a"}, {"b"}, {"c"}}
	if !reflect.DeepEqual(levels, want) {
		t.Errorf("Levels() = %v, want %v", levels, want)
	}
}

func TestLevels_Diamond(t *testing.T) {
	g := NewGraph()
	g.AddNode("standalone")
	g.AddEdge("root", "left")
	g.AddEdge("root", "right")
	g.AddEdge("left", "leaf")
	g.AddEdge("right", "leaf")

	levels, err := g.Levels()
	if err != nil {
		t.Fatalf("Levels() error = %v", err)
	}
	want := [][]string{{"root", "standalone"}, {"left", "right"}, {"leaf"}}
	if !reflect.DeepEqual(levels, want) {
		t.Errorf("Levels() = %v, want %v", levels, want)
	}
}

func TestLevels_EmptyGraph(t *testing.T) {
	levels, err := NewGraph().Levels()
	if err != nil {
		t.Fatalf("Levels() error = %v", err)
	}
	if len(levels) != 0 {
		t.Errorf("Expected no levels, got %v", levels)
	}
}

func TestCycle_Detected(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "a")
	g.AddEdge("b", "c")

	_, err := g.Levels()
	if err == nil {
		t.Fatal("Expected cycle error")
	}
	if !errors.Is(err, ErrCycleDetected) {
		t.Errorf("Expected errors.Is(err, ErrCycleDetected), got %v", err)
	}

	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("Expected *CycleError, got %T", err)
	}
	if !reflect.DeepEqual(cycleErr.Info.CycleParticipants, []string{"a", "b"}) {
		t.Errorf("CycleParticipants = %v", cycleErr.Info.CycleParticipants)
	}
	if !reflect.DeepEqual(cycleErr.Info.CyclePath, []string{"a", "b", "a"}) {
		t.Errorf("CyclePath = %v", cycleErr.Info.CyclePath)
	}
	if !strings.Contains(err.Error(), "Objects blocked by cycle: c") {
		t.Errorf("Expected blocked objects in message, got %q", err.Error())
	}
	if g.Validate() == nil {
		t.Error("Validate() = nil, want cycle error")
	}
}

func TestFindCyclePath(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("c", "a")
	g.AddEdge("c", "d")

	all := map[string]bool{"a": true, "b": true, "c": true, "d": true}
	if path := g.FindCyclePath("b", all); !reflect.DeepEqual(path, []string{"b", "c", "a", "b"}) {
		t.Errorf("FindCyclePath(b) = %v", path)
	}
	if path := g.FindCyclePath("d", all); path != nil {
		t.Errorf("FindCyclePath(d) = %v, want nil", path)
	}

	// Restricting the walk to nodes off the cycle hides it.
	if path := g.FindCyclePath("a", map[string]bool{"a": true, "b": true}); path != nil {
		t.Errorf("FindCyclePath(a) restricted = %v, want nil", path)
	}
}

func TestDetectIncompleteProcessing_Acyclic(t *testing.T) {
	g := NewGraph()
	g.AddEdge("vw_base", "vw_report")
	if info := g.DetectIncompleteProcessing(); info != nil {
		t.Errorf("Expected nil for acyclic graph, got %+v", info)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

// ============================================================================
// Builder
// ============================================================================

func TestBuildWaves_UsesCallerSpelling(t *testing.T) {
	deps := []catalog.Dependency{
		{Object: "VW_REPORT", DependsOn: "vw_base"},
		{Object: "vw_report", DependsOn: "vw_outside"},
		{Object: "vw_base", DependsOn: "vw_base"},
	}

	waves, err := BuildWaves([]string{"vw_Report", "vw_Base", "vw_other"}, deps)
	if err != nil {
		t.Fatalf("BuildWaves() error = %v", err)
	}
	want := [][]string{{"vw_Base", "vw_other"}, {"vw_Report"}}
	if !reflect.DeepEqual(waves, want) {
		t.Errorf("BuildWaves() = %v, want %v", waves, want)
	}
}

func TestBuildWaves_RepeatedNames(t *testing.T) {
	waves, err := BuildWaves([]string{"sp_a", "SP_A", "sp_b"}, nil)
	if err != nil {
		t.Fatalf("BuildWaves() error = %v", err)
	}
	if !reflect.DeepEqual(waves, [][]string{{"sp_a", "sp_b"}}) {
		t.Errorf("BuildWaves() = %v", waves)
	}
}

func TestBuilder_Errors(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		deps  []catalog.Dependency
		want  string
	}{
		{"empty name", []string{""}, nil, "object name is empty"},
		{
			"cycle",
			[]string{"sp_a", "sp_b"},
			[]catalog.Dependency{{Object: "sp_a", DependsOn: "sp_b"}, {Object: "sp_b", DependsOn: "sp_a"}},
			"graph validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuilder(tt.names, tt.deps).Build()
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %q", tt.want, err.Error())
			}
		})
	}
}
