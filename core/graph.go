package core

import (
	"fmt"
	"sort"
	"strings"

	perrors "github.com/irisbuild/iris/pkg/irislang/errors"
)

// GraphNode is one target in the dependency graph
type GraphNode struct {
	Name string
	Kind TargetKind
	Deps []string
}

// Graph is the target dependency graph. An edge A -> B means A depends
// on B: B must be built before A. Edges are stored as name -> set so
// duplicate declarations collapse.
type Graph struct {
	nodes map[string]*GraphNode
	order []string // insertion order, for deterministic traversal
	edges map[string]map[string]bool
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]*GraphNode),
		edges: make(map[string]map[string]bool),
	}
}

// BuildGraph constructs the dependency graph from a configuration: one
// node per target, one edge per declared dependency.
func BuildGraph(config *BuildConfig) *Graph {
	g := NewGraph()
	for _, target := range config.Targets {
		g.AddNode(GraphNode{Name: target.Name, Kind: target.Kind, Deps: target.Dependencies})
		for _, dep := range target.Dependencies {
			g.AddEdge(target.Name, dep)
		}
	}
	return g
}

// AddNode inserts a node; re-adding a name replaces its data but keeps
// its position in the insertion order.
func (g *Graph) AddNode(node GraphNode) {
	if _, exists := g.nodes[node.Name]; !exists {
		g.order = append(g.order, node.Name)
	}
	n := node
	g.nodes[node.Name] = &n
}

// AddEdge records that from depends on to. Idempotent on duplicates.
func (g *Graph) AddEdge(from, to string) {
	if g.edges[from] == nil {
		g.edges[from] = make(map[string]bool)
	}
	g.edges[from][to] = true
}

// HasNode reports whether name is a known node
func (g *Graph) HasNode(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// Node returns the named node, or nil
func (g *Graph) Node(name string) *GraphNode {
	return g.nodes[name]
}

// Len returns the number of nodes
func (g *Graph) Len() int {
	return len(g.nodes)
}

// DanglingDeps returns edges whose dependency is not a known node.
// Such names are treated as terminal leaves by the sort: the build
// order still covers the known subset.
func (g *Graph) DanglingDeps() map[string][]string {
	dangling := make(map[string][]string)
	for _, name := range g.order {
		for dep := range g.edges[name] {
			if !g.HasNode(dep) {
				dangling[name] = append(dangling[name], dep)
			}
		}
	}
	for name := range dangling {
		sort.Strings(dangling[name])
	}
	if len(dangling) == 0 {
		return nil
	}
	return dangling
}

// TopologicalSort orders nodes so that every dependency appears before
// its dependents (for every edge A -> B, B precedes A). Kahn's
// algorithm over an in-degree queue; ready nodes are taken in insertion
// order with name as the tiebreak, so output is deterministic.
func (g *Graph) TopologicalSort() []string {
	// in-degree counts unresolved dependencies; unknown dep names are
	// terminal leaves and do not block their dependents
	indegree := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string)
	for _, name := range g.order {
		indegree[name] = 0
	}
	for _, name := range g.order {
		for dep := range g.edges[name] {
			if !g.HasNode(dep) {
				continue
			}
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	position := make(map[string]int, len(g.order))
	for idx, name := range g.order {
		position[name] = idx
	}
	less := func(a, b string) bool {
		if position[a] != position[b] {
			return position[a] < position[b]
		}
		return a < b
	}

	var ready []string
	for _, name := range g.order {
		if indegree[name] == 0 {
			ready = append(ready, name)
		}
	}

	result := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })
		node := ready[0]
		ready = ready[1:]
		result = append(result, node)

		for _, dependent := range dependents[node] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	return result
}

// HasCycle reports whether the graph contains a dependency cycle,
// via depth-first search with a recursion stack.
func (g *Graph) HasCycle() bool {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	var dfs func(node string) bool
	dfs = func(node string) bool {
		if recStack[node] {
			return true
		}
		if visited[node] {
			return false
		}
		visited[node] = true
		recStack[node] = true

		for dep := range g.edges[node] {
			if !g.HasNode(dep) {
				continue
			}
			if dfs(dep) {
				return true
			}
		}

		recStack[node] = false
		return false
	}

	for _, name := range g.order {
		if dfs(name) {
			return true
		}
	}
	return false
}

// CycleError returns the graph error raised when a build would start on
// a cyclic graph.
func CycleError() *perrors.IrisError {
	return perrors.New("GRAPH-0001", nil)
}

// sortedNames returns node names in lexicographic order for stable
// emission
func (g *Graph) sortedNames() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func fillColor(kind TargetKind) string {
	switch kind {
	case KindExecutable:
		return "#90EE90"
	case KindStaticLibrary:
		return "#87CEEB"
	default:
		return "#FFE4B5"
	}
}

// ToDOT renders the graph in Graphviz DOT form with stable ordering
func (g *Graph) ToDOT() string {
	var sb strings.Builder
	sb.WriteString("digraph IrisBuild {\n")
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [shape=box, style=filled];\n\n")

	for _, name := range g.sortedNames() {
		fmt.Fprintf(&sb, "  %q [fillcolor=%q];\n", name, fillColor(g.nodes[name].Kind))
	}

	sb.WriteString("\n")

	for _, from := range g.sortedNames() {
		deps := make([]string, 0, len(g.edges[from]))
		for to := range g.edges[from] {
			deps = append(deps, to)
		}
		sort.Strings(deps)
		for _, to := range deps {
			fmt.Fprintf(&sb, "  %q -> %q;\n", from, to)
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

// ToJSON renders the graph as a nodes/edges document with stable ordering
func (g *Graph) ToJSON() string {
	var sb strings.Builder
	sb.WriteString("{\n")
	sb.WriteString("  \"nodes\": [\n")

	names := g.sortedNames()
	for idx, name := range names {
		fmt.Fprintf(&sb, "    {\"name\": %q, \"kind\": %q}", name, string(g.nodes[name].Kind))
		if idx < len(names)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("  ],\n")
	sb.WriteString("  \"edges\": [\n")

	type edge struct{ from, to string }
	var edges []edge
	for _, from := range names {
		deps := make([]string, 0, len(g.edges[from]))
		for to := range g.edges[from] {
			deps = append(deps, to)
		}
		sort.Strings(deps)
		for _, to := range deps {
			edges = append(edges, edge{from, to})
		}
	}
	for idx, e := range edges {
		fmt.Fprintf(&sb, "    {\"from\": %q, \"to\": %q}", e.from, e.to)
		if idx < len(edges)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("  ]\n")
	sb.WriteString("}\n")
	return sb.String()
}
