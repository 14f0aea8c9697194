package graph

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/opencontainers/go-digest"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/syssam/schemac"
	"github.com/syssam/schemac/compiler/diag"
	"github.com/syssam/schemac/compiler/load"
)

// SchemaID identifies a schema within one compilation snapshot.
type SchemaID string

// EdgeKind is the syntactic position of a reference.
type EdgeKind = load.EdgeKind

// Edge kinds.
const (
	Ref                  = load.Ref
	AllOf                = load.AllOf
	OneOf                = load.OneOf
	AnyOf                = load.AnyOf
	Items                = load.Items
	AdditionalProperties = load.AdditionalProperties
	Property             = load.Property
)

// Node is the frozen metadata of one schema document.
type Node struct {
	ID          SchemaID
	Path        string
	Name        string
	Title       string
	Description string
	Ext         load.Extensions
	Fields      []*Field
	// Fragments lists intra-document references that were not resolved
	// to other nodes.
	Fragments []string
}

// Kind returns the x-familiar-kind tag.
func (n *Node) Kind() string { return n.Ext.Kind }

// Field is a declared property with its reference resolved.
type Field struct {
	Name     string
	Ref      string
	Target   SchemaID // empty when Ref is empty or dangling
	Type     string
	Required bool
}

// Edge is one reference from a schema to another. Parallel edges between
// the same pair are kept.
type Edge struct {
	From  SchemaID
	To    SchemaID
	Kind  EdgeKind
	Path  string
	Field string
	Index int
	// Ordinal is the position in the graph's sorted edge list.
	Ordinal int
}

// String formats the edge for messages.
func (e *Edge) String() string {
	return fmt.Sprintf("%s%s -[%s]-> %s", e.From, e.Path, e.Kind, e.To)
}

func compareEdges(a, b *Edge) int {
	return cmp.Or(
		cmp.Compare(a.From, b.From),
		cmp.Compare(a.To, b.To),
		cmp.Compare(a.Kind, b.Kind),
		cmp.Compare(a.Path, b.Path),
		cmp.Compare(a.Index, b.Index),
	)
}

// Graph is the schema dependency multigraph with its indices. It is built
// once and read-only afterwards.
type Graph struct {
	nodes  []*Node
	byID   map[SchemaID]*Node
	byPath map[string]SchemaID
	byName map[string][]SchemaID
	edges  []*Edge
	out    map[SchemaID][]*Edge
	in     map[SchemaID][]*Edge
	raw    map[SchemaID]*load.Value
	hash   digest.Digest
	sccs   []*SCC
	sccOf  map[SchemaID]*SCC
}

// Build indexes the loaded schemas and resolves their references. Dangling
// references and duplicate ids are reported to diags and left out. The
// result does not depend on the order of schemas.
func Build(ctx context.Context, schemas []*load.Schema, diags *diag.List) (*Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sorted := slices.Clone(schemas)
	slices.SortFunc(sorted, func(a, b *load.Schema) int {
		return cmp.Or(cmp.Compare(a.ID, b.ID), cmp.Compare(a.Path, b.Path))
	})

	g := &Graph{
		byID:   make(map[SchemaID]*Node, len(sorted)),
		byPath: make(map[string]SchemaID, len(sorted)),
		byName: make(map[string][]SchemaID),
		out:    make(map[SchemaID][]*Edge),
		in:     make(map[SchemaID][]*Edge),
		raw:    make(map[SchemaID]*load.Value, len(sorted)),
	}
	kept := make([]*load.Schema, 0, len(sorted))
	for _, s := range sorted {
		id := SchemaID(s.ID)
		if prev, ok := g.byID[id]; ok {
			diags.Errorf(diag.DuplicateID, s.Path, "id %q already declared by %s", s.ID, prev.Path)
			continue
		}
		n := &Node{
			ID:          id,
			Path:        s.Path,
			Name:        s.Name,
			Title:       s.Title,
			Description: s.Description,
			Ext:         s.Ext,
		}
		g.nodes = append(g.nodes, n)
		g.byID[id] = n
		g.byPath[s.Path] = id
		g.byName[s.Name] = append(g.byName[s.Name], id)
		g.raw[id] = s.Raw
		kept = append(kept, s)
	}

	// Every id is indexed; references can be resolved now.
	for _, s := range kept {
		n := g.byID[SchemaID(s.ID)]
		for _, f := range s.Fields {
			field := &Field{Name: f.Name, Ref: f.Ref, Type: f.Type, Required: f.Required}
			if f.Ref != "" {
				field.Target, _ = g.lookup(f.Ref)
			}
			n.Fields = append(n.Fields, field)
		}
		for _, r := range s.Refs {
			to, ok := g.resolveRef(n, r, diags)
			if !ok {
				continue
			}
			e := &Edge{From: n.ID, To: to, Kind: r.Kind, Path: r.Path, Field: r.Field, Index: r.Index}
			g.edges = append(g.edges, e)
		}
	}
	slices.SortFunc(g.edges, compareEdges)
	for i, e := range g.edges {
		e.Ordinal = i
		g.out[e.From] = append(g.out[e.From], e)
		g.in[e.To] = append(g.in[e.To], e)
	}
	g.hash = corpusHash(kept)
	g.computeSCCs()

	slogcontext.FromCtx(ctx).Debug("graph built",
		"nodes", len(g.nodes), "edges", len(g.edges), "sccs", len(g.sccs), "hash", g.hash.String())
	return g, nil
}

func (g *Graph) resolveRef(n *Node, r load.Reference, diags *diag.List) (SchemaID, bool) {
	if r.Local() {
		// "#" is the document itself; deeper fragments stay unresolved.
		if r.Fragment == "" || r.Fragment == "/" {
			return n.ID, true
		}
		n.Fragments = append(n.Fragments, "#"+r.Fragment)
		diags.Infof(diag.FragmentRef, string(n.ID), "fragment reference %q at %q is not resolved", "#"+r.Fragment, r.Path)
		return "", false
	}
	if to, ok := g.lookup(r.Target); ok {
		return to, true
	}
	err := schemac.NewUnresolvedRefError(string(n.ID), r.Target)
	diags.Errorf(diag.UnresolvedRef, string(n.ID), "%s (at %q)", err.Error(), r.Path)
	return "", false
}

// lookup resolves a normalized reference by id, then by path.
func (g *Graph) lookup(ref string) (SchemaID, bool) {
	if _, ok := g.byID[SchemaID(ref)]; ok {
		return SchemaID(ref), true
	}
	id, ok := g.byPath[ref]
	return id, ok
}

func corpusHash(schemas []*load.Schema) digest.Digest {
	sorted := slices.Clone(schemas)
	slices.SortFunc(sorted, func(a, b *load.Schema) int { return strings.Compare(a.Path, b.Path) })
	d := digest.Canonical.Digester()
	for _, s := range sorted {
		fmt.Fprintf(d.Hash(), "%s\x00%s\n", s.Path, s.Digest)
	}
	return d.Digest()
}

// Nodes returns all nodes sorted by id.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Edges returns all edges in ordinal order.
func (g *Graph) Edges() []*Edge { return g.edges }

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns the node with the given id.
func (g *Graph) Node(id SchemaID) (*Node, bool) {
	n, ok := g.byID[id]
	return n, ok
}

// IDs returns all ids in sorted order.
func (g *Graph) IDs() []SchemaID {
	ids := make([]SchemaID, len(g.nodes))
	for i, n := range g.nodes {
		ids[i] = n.ID
	}
	return ids
}

// ByPath returns the id of the document at path.
func (g *Graph) ByPath(p string) (SchemaID, bool) {
	id, ok := g.byPath[p]
	return id, ok
}

// ByName returns the ids whose display name is name, sorted.
func (g *Graph) ByName(name string) []SchemaID { return g.byName[name] }

// ResolveRef resolves a normalized reference string to a node id.
func (g *Graph) ResolveRef(ref string) (SchemaID, bool) { return g.lookup(ref) }

// Out returns the outgoing edges of id in ordinal order.
func (g *Graph) Out(id SchemaID) []*Edge { return g.out[id] }

// In returns the incoming edges of id in ordinal order.
func (g *Graph) In(id SchemaID) []*Edge { return g.in[id] }

// Hash returns the content digest of the whole corpus.
func (g *Graph) Hash() digest.Digest { return g.hash }

// Raw returns the parsed document of id. Only shape detection reads raw
// documents; everything downstream works from derived data.
func (g *Graph) Raw(id SchemaID) *load.Value { return g.raw[id] }
