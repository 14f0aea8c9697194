package graph

import (
	"path"
	"slices"
	"strings"
)

// Resolve finds a node by id, then by path, then by display name, then by
// case-insensitive display name. Name matches prefer the smallest id.
func (g *Graph) Resolve(query string) (*Node, bool) {
	if n, ok := g.byID[SchemaID(query)]; ok {
		return n, true
	}
	if id, ok := g.byPath[strings.TrimPrefix(path.Clean(query), "./")]; ok {
		return g.byID[id], true
	}
	if ids := g.byName[query]; len(ids) > 0 {
		return g.byID[ids[0]], true
	}
	for _, n := range g.nodes {
		if strings.EqualFold(n.Name, query) {
			return n, true
		}
	}
	return nil, false
}

// RefsOut returns the edges leaving id.
func (g *Graph) RefsOut(id SchemaID) []*Edge { return g.Out(id) }

// RefsIn returns the edges entering id.
func (g *Graph) RefsIn(id SchemaID) []*Edge { return g.In(id) }

// Closure returns the ids reachable from id, excluding id unless it lies on
// a cycle. A depth of zero or less means unbounded. The result is sorted.
func (g *Graph) Closure(id SchemaID, depth int) []SchemaID {
	seen := map[SchemaID]bool{}
	frontier := []SchemaID{id}
	for level := 0; len(frontier) > 0 && (depth <= 0 || level < depth); level++ {
		var next []SchemaID
		for _, v := range frontier {
			for _, e := range g.out[v] {
				if !seen[e.To] {
					seen[e.To] = true
					next = append(next, e.To)
				}
			}
		}
		frontier = next
	}
	out := make([]SchemaID, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// ListByKind returns the nodes tagged with the given kind, sorted by id.
func (g *Graph) ListByKind(kind string) []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if n.Ext.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// Kinds returns every distinct kind tag, sorted.
func (g *Graph) Kinds() []string {
	var kinds []string
	for _, n := range g.nodes {
		if n.Ext.Kind != "" && !slices.Contains(kinds, n.Ext.Kind) {
			kinds = append(kinds, n.Ext.Kind)
		}
	}
	slices.Sort(kinds)
	return kinds
}
