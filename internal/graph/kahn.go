package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrCycleDetected is returned when objects reference each other in a loop.
var ErrCycleDetected = errors.New("cycle detected in dependency graph")

// CycleInfo describes the nodes Kahn's algorithm could not release.
type CycleInfo struct {
	TotalNodes        int
	ProcessedNodes    int
	UnprocessedNodes  []string // part of or blocked by a cycle
	CycleParticipants []string // subset of UnprocessedNodes that lie on a cycle
	CyclePath         []string // e.g. [A, B, A]
}

// CycleError reports a reference cycle.
type CycleError struct {
	Info *CycleInfo
}

func (e *CycleError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cycle detected in dependency graph: %d of %d objects could not be ordered",
		len(e.Info.UnprocessedNodes), e.Info.TotalNodes)

	if len(e.Info.CyclePath) > 0 {
		fmt.Fprintf(&b, "\nCycle path: %s", strings.Join(e.Info.CyclePath, " -> "))
	}
	if len(e.Info.CycleParticipants) > 0 {
		fmt.Fprintf(&b, "\nObjects in cycle: %s", strings.Join(e.Info.CycleParticipants, ", "))
	}
	if blocked := e.Info.Blocked(); len(blocked) > 0 {
		fmt.Fprintf(&b, "\nObjects blocked by cycle: %s", strings.Join(blocked, ", "))
	}
	return b.String()
}

// Is lets errors.Is match ErrCycleDetected.
func (e *CycleError) Is(target error) bool {
	return target == ErrCycleDetected
}

// Blocked returns the unprocessed nodes that only wait on a cycle without
// being part of one.
func (c *CycleInfo) Blocked() []string {
	onCycle := make(map[string]bool, len(c.CycleParticipants))
	for _, p := range c.CycleParticipants {
		onCycle[p] = true
	}
	var blocked []string
	for _, u := range c.UnprocessedNodes {
		if !onCycle[u] {
			blocked = append(blocked, u)
		}
	}
	return blocked
}

// CalculateInDegrees returns the number of unsatisfied references per node.
func (g *Graph) CalculateInDegrees() map[string]int {
	inDegree := make(map[string]int, len(g.Nodes))
	for name := range g.Nodes {
		inDegree[name] = g.InDegree(name)
	}
	return inDegree
}

// peel runs Kahn's algorithm one level at a time. It returns the levels it
// could release and the set of nodes left over, which is empty unless the
// graph has a cycle.
func (g *Graph) peel() (levels [][]string, remaining map[string]bool) {
	inDegree := g.CalculateInDegrees()

	var current []string
	for name, degree := range inDegree {
		if degree == 0 {
			current = append(current, name)
		}
	}
	sort.Strings(current)

	remaining = make(map[string]bool, len(g.Nodes))
	for name := range g.Nodes {
		remaining[name] = true
	}

	for len(current) > 0 {
		levels = append(levels, current)

		var next []string
		for _, node := range current {
			delete(remaining, node)
			for _, child := range g.GetChildren(node) {
				inDegree[child]--
				if inDegree[child] == 0 {
					next = append(next, child)
				}
			}
		}
		sort.Strings(next)
		current = next
	}
	return levels, remaining
}

// DetectIncompleteProcessing describes the nodes Kahn's algorithm could not
// process. It returns nil when the graph is acyclic.
func (g *Graph) DetectIncompleteProcessing() *CycleInfo {
	_, remaining := g.peel()
	if len(remaining) == 0 {
		return nil
	}
	return g.describeCycle(remaining)
}

func (g *Graph) describeCycle(remaining map[string]bool) *CycleInfo {
	info := &CycleInfo{
		TotalNodes:     len(g.Nodes),
		ProcessedNodes: len(g.Nodes) - len(remaining),
	}
	for _, name := range g.AllNodes() {
		if !remaining[name] {
			continue
		}
		info.UnprocessedNodes = append(info.UnprocessedNodes, name)
		if path := g.FindCyclePath(name, remaining); path != nil {
			info.CycleParticipants = append(info.CycleParticipants, name)
			if info.CyclePath == nil {
				info.CyclePath = path
			}
		}
	}
	return info
}

// FindCyclePath returns a cycle through start, with start at both ends,
// restricted to allowedNodes. It returns nil when start is not on a cycle.
func (g *Graph) FindCyclePath(start string, allowedNodes map[string]bool) []string {
	visited := map[string]bool{start: true}
	path := []string{start}

	var walk func(current string) bool
	walk = func(current string) bool {
		for _, child := range g.GetChildren(current) {
			if !allowedNodes[child] {
				continue
			}
			if child == start {
				path = append(path, start)
				return true
			}
			if visited[child] {
				continue
			}
			visited[child] = true
			path = append(path, child)
			if walk(child) {
				return true
			}
			path = path[:len(path)-1]
		}
		return false
	}

	if walk(start) {
		return path
	}
	return nil
}

// Levels groups objects into waves. Every object in a wave references only
// objects from earlier waves, so the members of one wave can be synchronized
// concurrently. Each wave is sorted by name.
func (g *Graph) Levels() ([][]string, error) {
	levels, remaining := g.peel()
	if len(remaining) > 0 {
		return nil, &CycleError{Info: g.describeCycle(remaining)}
	}
	return levels, nil
}

// Validate returns a CycleError if the graph contains cycles.
func (g *Graph) Validate() error {
	if info := g.DetectIncompleteProcessing(); info != nil {
		return &CycleError{Info: info}
	}
	return nil
}
