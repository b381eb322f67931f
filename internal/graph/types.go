// Package graph orders procedures and views by the references between them so
// that a referenced object is synchronized before the objects that use it.
package graph

import "sort"

// Node is one object in the dependency graph.
type Node struct {
	Name string
}

// Edge points from a referenced object to an object that references it.
type Edge struct {
	From string // referenced object
	To   string // dependent object
}

// Graph holds the reference structure among a set of objects of one kind.
type Graph struct {
	Nodes    map[string]*Node    // object name -> node
	Children map[string][]string // object -> objects that reference it
	Parents  map[string][]string // object -> objects it references
	edges    map[Edge]bool
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:    make(map[string]*Node),
		Children: make(map[string][]string),
		Parents:  make(map[string][]string),
		edges:    make(map[Edge]bool),
	}
}

// AddNode adds an object to the graph. Adding an existing name is a no-op.
func (g *Graph) AddNode(name string) {
	if _, ok := g.Nodes[name]; ok {
		return
	}
	g.Nodes[name] = &Node{Name: name}
}

// AddEdge records that dependent references referenced. Both nodes are added
// when missing and duplicate edges are ignored.
func (g *Graph) AddEdge(referenced, dependent string) {
	e := Edge{From: referenced, To: dependent}
	if g.edges[e] {
		return
	}
	g.AddNode(referenced)
	g.AddNode(dependent)
	g.edges[e] = true
	g.Children[referenced] = append(g.Children[referenced], dependent)
	g.Parents[dependent] = append(g.Parents[dependent], referenced)
}

// GetChildren returns the objects that reference name.
func (g *Graph) GetChildren(name string) []string {
	return g.Children[name]
}

// GetParents returns the objects name references.
func (g *Graph) GetParents(name string) []string {
	return g.Parents[name]
}

// HasNode returns true if the graph contains name.
func (g *Graph) HasNode(name string) bool {
	_, ok := g.Nodes[name]
	return ok
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.Nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// AllNodes returns every node name in sorted order.
func (g *Graph) AllNodes() []string {
	nodes := make([]string, 0, len(g.Nodes))
	for name := range g.Nodes {
		nodes = append(nodes, name)
	}
	sort.Strings(nodes)
	return nodes
}

// AllEdges returns every edge ordered by From, then To.
func (g *Graph) AllEdges() []Edge {
	edges := make([]Edge, 0, len(g.edges))
	for e := range g.edges {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

// InDegree returns the number of objects name references.
func (g *Graph) InDegree(name string) int {
	return len(g.Parents[name])
}
