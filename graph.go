package stategrid

import "sort"

// RowNode represents one formula row in the dependency graph. Rows are
// keyed by name, which is how formulas reference them.
type RowNode struct {
	Name string

	Precedents map[string]*RowNode // rows this row's formula reads
	Dependents map[string]*RowNode // rows whose formulas read this row
}

// RowGraph tracks name-level dependencies between a table's formula rows
// so recalculation can run in topological order and report cycles.
// Formula rows read raw stored values rather than computed results, so a
// cycle cannot produce an unbounded recompute; it is still reported as a
// distinct diagnostic kind because it almost always means author error.
type RowGraph struct {
	nodes map[string]*RowNode
}

// NewRowGraph creates an empty graph
func NewRowGraph() *RowGraph {
	return &RowGraph{nodes: make(map[string]*RowNode)}
}

// GetOrCreateNode gets an existing node or creates a new one
func (g *RowGraph) GetOrCreateNode(name string) *RowNode {
	if node, exists := g.nodes[name]; exists {
		return node
	}

	node := &RowNode{
		Name:       name,
		Precedents: make(map[string]*RowNode),
		Dependents: make(map[string]*RowNode),
	}
	g.nodes[name] = node
	return node
}

// AddDependency records that from's formula reads to
func (g *RowGraph) AddDependency(from, to string) {
	fromNode := g.GetOrCreateNode(from)
	toNode := g.GetOrCreateNode(to)

	fromNode.Precedents[to] = toNode
	toNode.Dependents[from] = fromNode
}

// buildRowGraph extracts the dependency graph of a row set: one node per
// formula row, one edge per identifier its formula references that names
// a sibling row. References to rows in other tables are resolved at
// evaluation time and do not order recalculation within this table.
func buildRowGraph(rows []Row) *RowGraph {
	local := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		local[r.Name] = struct{}{}
	}

	g := NewRowGraph()
	for _, r := range rows {
		if !r.HasFormula() {
			continue
		}
		g.GetOrCreateNode(r.Name)
		for _, ref := range identifiersIn(r.Formula) {
			if _, ok := local[ref]; ok && ref != r.Name {
				g.AddDependency(r.Name, ref)
			}
		}
	}
	return g
}

// TopoOrder returns the node names in dependency order (precedents
// first) using Kahn's algorithm, plus the names caught in cycles. Ties
// break alphabetically so the order is deterministic.
func (g *RowGraph) TopoOrder() (order []string, cyclic []string) {
	inDegree := make(map[string]int, len(g.nodes))
	for name, node := range g.nodes {
		inDegree[name] = len(node.Precedents)
	}

	var ready []string
	for name, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)

		var released []string
		for depName := range g.nodes[name].Dependents {
			inDegree[depName]--
			if inDegree[depName] == 0 {
				released = append(released, depName)
			}
		}
		sort.Strings(released)
		ready = append(ready, released...)
	}

	// any node not emitted is part of (or downstream of) a cycle
	if len(order) < len(g.nodes) {
		emitted := make(map[string]struct{}, len(order))
		for _, name := range order {
			emitted[name] = struct{}{}
		}
		for name := range g.nodes {
			if _, ok := emitted[name]; !ok {
				cyclic = append(cyclic, name)
			}
		}
		sort.Strings(cyclic)
	}

	return order, cyclic
}
