package graph

import (
	"cmp"
	"slices"
)

// SCC is a strongly connected component with more than one member.
type SCC struct {
	ID      int
	Members []SchemaID // sorted
}

// Contains reports whether id is a member.
func (s *SCC) Contains(id SchemaID) bool {
	_, ok := slices.BinarySearch(s.Members, id)
	return ok
}

// SCCs returns the non-trivial components, ordered by their smallest member.
func (g *Graph) SCCs() []*SCC { return g.sccs }

// SCCOf returns the component containing id, if it is in one.
func (g *Graph) SCCOf(id SchemaID) (*SCC, bool) {
	s, ok := g.sccOf[id]
	return s, ok
}

// computeSCCs runs Tarjan's algorithm over nodes and edges in sorted order.
func (g *Graph) computeSCCs() {
	t := &tarjan{
		g:     g,
		index: make(map[SchemaID]int, len(g.nodes)),
		low:   make(map[SchemaID]int, len(g.nodes)),
		on:    make(map[SchemaID]bool),
	}
	for _, n := range g.nodes {
		if _, seen := t.index[n.ID]; !seen {
			t.connect(n.ID)
		}
	}
	slices.SortFunc(t.groups, func(a, b []SchemaID) int { return cmp.Compare(a[0], b[0]) })
	g.sccs = make([]*SCC, len(t.groups))
	g.sccOf = make(map[SchemaID]*SCC)
	for i, members := range t.groups {
		s := &SCC{ID: i, Members: members}
		g.sccs[i] = s
		for _, m := range members {
			g.sccOf[m] = s
		}
	}
}

type tarjan struct {
	g      *Graph
	next   int
	index  map[SchemaID]int
	low    map[SchemaID]int
	on     map[SchemaID]bool
	stack  []SchemaID
	groups [][]SchemaID
}

func (t *tarjan) connect(v SchemaID) {
	t.index[v] = t.next
	t.low[v] = t.next
	t.next++
	t.stack = append(t.stack, v)
	t.on[v] = true
	for _, e := range t.g.out[v] {
		w := e.To
		if _, seen := t.index[w]; !seen {
			t.connect(w)
			t.low[v] = min(t.low[v], t.low[w])
		} else if t.on[w] {
			t.low[v] = min(t.low[v], t.index[w])
		}
	}
	if t.low[v] != t.index[v] {
		return
	}
	var members []SchemaID
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.on[w] = false
		members = append(members, w)
		if w == v {
			break
		}
	}
	if len(members) > 1 {
		slices.Sort(members)
		t.groups = append(t.groups, members)
	}
}
