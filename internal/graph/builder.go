package graph

import (
	"fmt"
	"strings"

	"github.com/dbsmedya/schemasync/internal/catalog"
)

// Builder constructs a dependency graph from an object list and the
// references read from the base catalog.
type Builder struct {
	names []string
	deps  []catalog.Dependency
}

// NewBuilder creates a builder for names. deps may mention objects outside
// names; those references are ignored.
func NewBuilder(names []string, deps []catalog.Dependency) *Builder {
	return &Builder{names: names, deps: deps}
}

// Build constructs the graph and fails fast on cycles.
func (b *Builder) Build() (*Graph, error) {
	g := NewGraph()
	seen := make(map[string]string, len(b.names))
	for _, n := range b.names {
		if n == "" {
			return nil, fmt.Errorf("object name is empty")
		}
		key := strings.ToLower(n)
		if _, ok := seen[key]; ok {
			continue // repeated names are ordered once, under their first spelling
		}
		seen[key] = n
		g.AddNode(n)
	}

	for _, d := range b.deps {
		from, okFrom := seen[strings.ToLower(d.DependsOn)]
		to, okTo := seen[strings.ToLower(d.Object)]
		if !okFrom || !okTo || from == to {
			continue
		}
		g.AddEdge(from, to)
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("graph validation failed: %w", err)
	}
	return g, nil
}

// BuildWaves is a convenience that builds the graph and returns its levels.
func BuildWaves(names []string, deps []catalog.Dependency) ([][]string, error) {
	g, err := NewBuilder(names, deps).Build()
	if err != nil {
		return nil, err
	}
	return g.Levels()
}
