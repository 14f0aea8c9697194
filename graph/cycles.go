package graph

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/syssam/schemac"
)

// CycleGroup is a set of schemas whose references form a cycle: either a
// non-trivial SCC or a single schema that references itself.
type CycleGroup struct {
	ID              int
	Members         []SchemaID
	SelfReferential bool
	// Indirect lists the edges inside the group that must be realized
	// through indirection, in ordinal order.
	Indirect []*Edge
}

// Size returns the number of members.
func (c *CycleGroup) Size() int { return len(c.Members) }

// Cycles holds the indirection decision for every edge of the graph.
type Cycles struct {
	groups   []*CycleGroup
	groupOf  map[SchemaID]*CycleGroup
	indirect map[*Edge]bool
}

// keepRank orders edge kinds by how long they stay direct: allOf first,
// property and items last.
func keepRank(k EdgeKind) int {
	switch k {
	case AllOf:
		return 0
	case Property, Items:
		return 2
	default:
		return 1
	}
}

// AnalyzeCycles decides which edges inside each cycle are indirect.
//
// Within a group, edges are visited from most to least worth keeping: allOf
// first, then ref/oneOf/anyOf/additionalProperties, then property/items, and
// within a class from the highest ordinal down. An edge stays direct unless
// it would close a cycle among the direct edges already kept. Self-loops are
// always indirect. The lowest-ordinal edge of the last class to close a
// cycle is therefore the one boxed, and allOf edges are boxed only when a
// cycle consists solely of allOf edges.
func AnalyzeCycles(g *Graph) (*Cycles, error) {
	c := &Cycles{
		groupOf:  make(map[SchemaID]*CycleGroup),
		indirect: make(map[*Edge]bool),
	}
	var groups [][]SchemaID
	for _, s := range g.sccs {
		groups = append(groups, s.Members)
	}
	for _, n := range g.nodes {
		if _, ok := g.sccOf[n.ID]; ok {
			continue
		}
		for _, e := range g.out[n.ID] {
			if e.To == n.ID {
				groups = append(groups, []SchemaID{n.ID})
				break
			}
		}
	}
	slices.SortFunc(groups, func(a, b []SchemaID) int { return cmp.Compare(a[0], b[0]) })

	for i, members := range groups {
		grp := &CycleGroup{ID: i, Members: members}
		for _, m := range members {
			c.groupOf[m] = grp
		}
		c.groups = append(c.groups, grp)
		c.decide(g, grp)
	}
	if err := c.Verify(g); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cycles) decide(g *Graph, grp *CycleGroup) {
	var internal []*Edge
	for _, m := range grp.Members {
		for _, e := range g.out[m] {
			if c.groupOf[e.To] == grp {
				internal = append(internal, e)
			}
		}
	}
	slices.SortFunc(internal, func(a, b *Edge) int {
		return cmp.Or(
			cmp.Compare(keepRank(a.Kind), keepRank(b.Kind)),
			cmp.Compare(b.Ordinal, a.Ordinal),
		)
	})
	direct := make(map[SchemaID][]SchemaID)
	for _, e := range internal {
		if e.From == e.To {
			grp.SelfReferential = true
			c.indirect[e] = true
			continue
		}
		if reachable(direct, e.To, e.From) {
			c.indirect[e] = true
			continue
		}
		direct[e.From] = append(direct[e.From], e.To)
	}
	for _, e := range internal {
		if c.indirect[e] {
			grp.Indirect = append(grp.Indirect, e)
		}
	}
	slices.SortFunc(grp.Indirect, func(a, b *Edge) int { return cmp.Compare(a.Ordinal, b.Ordinal) })
}

// reachable reports whether to can be reached from from over adj.
func reachable(adj map[SchemaID][]SchemaID, from, to SchemaID) bool {
	if from == to {
		return true
	}
	seen := map[SchemaID]bool{from: true}
	stack := []SchemaID{from}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, w := range adj[v] {
			if w == to {
				return true
			}
			if !seen[w] {
				seen[w] = true
				stack = append(stack, w)
			}
		}
	}
	return false
}

// Verify checks that, in every group, the direct edges alone form no cycle.
func (c *Cycles) Verify(g *Graph) error {
	for _, grp := range c.groups {
		inGroup := make(map[SchemaID]bool, len(grp.Members))
		for _, m := range grp.Members {
			inGroup[m] = true
		}
		adj := make(map[SchemaID][]SchemaID)
		for _, m := range grp.Members {
			for _, e := range g.out[m] {
				if inGroup[e.To] && !c.indirect[e] {
					adj[m] = append(adj[m], e.To)
				}
			}
		}
		if cyc := findCycle(grp.Members, adj); cyc != nil {
			ids := make([]string, len(cyc))
			for i, id := range cyc {
				ids[i] = string(id)
			}
			return schemac.NewCycleInvariantError(grp.ID, ids,
				fmt.Sprintf("direct edges still form a cycle through %d schemas", len(cyc)))
		}
		if len(grp.Indirect) == 0 {
			return schemac.NewCycleInvariantError(grp.ID, nil, "cycle group has no indirect edge")
		}
	}
	return nil
}

// findCycle returns the members of a cycle in adj, or nil.
func findCycle(nodes []SchemaID, adj map[SchemaID][]SchemaID) []SchemaID {
	const (
		white = iota
		grey
		black
	)
	color := make(map[SchemaID]int, len(nodes))
	var path []SchemaID
	var visit func(v SchemaID) []SchemaID
	visit = func(v SchemaID) []SchemaID {
		color[v] = grey
		path = append(path, v)
		for _, w := range adj[v] {
			switch color[w] {
			case grey:
				i := slices.Index(path, w)
				return slices.Clone(path[i:])
			case white:
				if cyc := visit(w); cyc != nil {
					return cyc
				}
			}
		}
		path = path[:len(path)-1]
		color[v] = black
		return nil
	}
	for _, n := range nodes {
		if color[n] == white {
			if cyc := visit(n); cyc != nil {
				return cyc
			}
		}
	}
	return nil
}

// IsIndirect reports whether the edge must be realized through indirection.
func (c *Cycles) IsIndirect(e *Edge) bool { return c.indirect[e] }

// Groups returns all cycle groups ordered by their smallest member.
func (c *Cycles) Groups() []*CycleGroup { return c.groups }

// GroupOf returns the cycle group containing id.
func (c *Cycles) GroupOf(id SchemaID) (*CycleGroup, bool) {
	grp, ok := c.groupOf[id]
	return grp, ok
}

// Outgoing returns the edges of id paired with their decision, in ordinal
// order. It is the per-node view the classifier consumes.
func (c *Cycles) Outgoing(g *Graph, id SchemaID) []Decision {
	out := g.out[id]
	ds := make([]Decision, len(out))
	for i, e := range out {
		ds[i] = Decision{Edge: e, Indirect: c.indirect[e]}
	}
	return ds
}

// Decision is the indirection decision of one edge.
type Decision struct {
	Edge     *Edge
	Indirect bool
}
