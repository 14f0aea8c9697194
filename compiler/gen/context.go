package gen

import (
	"cmp"
	"context"
	"slices"

	digest "github.com/opencontainers/go-digest"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/syssam/schemac/compiler/classify"
	"github.com/syssam/schemac/compiler/names"
	"github.com/syssam/schemac/graph"
)

// Context combines the graph, the classification and the names of one
// compilation run. It is immutable once built and safe for concurrent use.
type Context struct {
	hash    digest.Digest
	regions map[graph.SchemaID]*Region
	order   []*Region
}

// Build projects every generated schema into a Region. Regions are built
// from graph metadata, classifications and names only.
func Build(ctx context.Context, g *graph.Graph, table *classify.Table, nm *names.Names) (*Context, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := &builder{table: table, names: nm}
	c := &Context{hash: g.Hash(), regions: make(map[graph.SchemaID]*Region)}
	for _, id := range table.IDs() {
		cl, _ := table.Get(id)
		rn, ok := nm.Get(id)
		if !ok || !cl.Kind.Generated() || rn.Origin != names.Generated {
			continue
		}
		n, _ := g.Node(id)
		r := &Region{
			ID:            id,
			Name:          rn.Name,
			Path:          n.Path,
			Description:   n.Description,
			Kind:          cl.Kind,
			Strategy:      cl.Strategy,
			Ambiguous:     cl.Ambiguous,
			Discriminator: cl.Discriminator,
			Enum:          slices.Clone(cl.Enum),
			Hints: Hints{
				Casing:   n.Ext.Casing,
				SkipNone: n.Ext.SkipNone,
				Kind:     n.Ext.Kind,
			},
		}
		for _, f := range cl.Fields {
			r.Fields = append(r.Fields, b.field(f))
		}
		for _, base := range cl.Bases {
			r.Bases = append(r.Bases, b.typeRef(&base))
		}
		for _, v := range cl.Variants {
			r.Variants = append(r.Variants, RegionVariant{Name: v.Name, Tag: v.Tag, Type: b.typeRef(&v.Type)})
		}
		if cl.Extra != nil {
			t := b.typeRef(cl.Extra)
			r.Extra = &t
		}
		if cl.Target != nil {
			t := b.typeRef(cl.Target)
			r.Target = &t
		}
		r.Inherited = b.inherited(cl, map[graph.SchemaID]bool{id: true})
		c.regions[id] = r
		c.order = append(c.order, r)
	}
	slices.SortFunc(c.order, func(a, b *Region) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	slogcontext.FromCtx(ctx).Debug("codegen context built", "regions", len(c.order))
	return c, nil
}

// RegionFor returns the region of id. Only generated schemas have one.
func (c *Context) RegionFor(id graph.SchemaID) (*Region, bool) {
	r, ok := c.regions[id]
	return r, ok
}

// Regions returns all regions ordered by name.
func (c *Context) Regions() []*Region { return c.order }

// Len returns the number of regions.
func (c *Context) Len() int { return len(c.order) }

// Hash returns the content hash of the compiled corpus.
func (c *Context) Hash() digest.Digest { return c.hash }

type builder struct {
	table *classify.Table
	names *names.Names
}

func (b *builder) field(f classify.Field) RegionField {
	return RegionField{
		Name:        f.Name,
		Type:        b.typeRef(&f.Type),
		Required:    f.Required,
		Description: f.Description,
		Const:       f.Const,
	}
}

// typeRef resolves t against the names and classifications. References
// to aliases of standard scalars collapse to the scalar; references to
// schemas that are never emitted become unsupported.
func (b *builder) typeRef(t *classify.FieldType) TypeRef {
	out := TypeRef{
		Kind:       t.Kind,
		Scalar:     t.Scalar,
		Format:     t.Format,
		Nullable:   t.Nullable,
		Strategy:   t.Strategy,
		Unresolved: t.Unresolved,
	}
	if t.Elem != nil {
		elem := b.typeRef(t.Elem)
		out.Elem = &elem
	}
	if t.Kind != classify.FieldRef {
		return out
	}
	rn, _ := b.names.Get(t.Ref)
	cl, _ := b.table.Get(t.Ref)
	if rn == nil || cl == nil {
		return TypeRef{Kind: classify.FieldUnsupported, Nullable: t.Nullable, Unresolved: string(t.Ref)}
	}
	switch {
	case rn.Origin == names.StdlibAlias:
		ref := b.typeRef(cl.Target)
		ref.Nullable = ref.Nullable || t.Nullable
		return ref
	case cl.Kind == classify.Unsupported:
		return TypeRef{Kind: classify.FieldUnsupported, Nullable: t.Nullable, Unresolved: string(t.Ref)}
	}
	out.ID = t.Ref
	out.Name = rn.Name
	out.Origin = rn.Origin
	out.External = rn.ExternalPath
	out.TargetKind = cl.Kind
	return out
}

// inherited collects the fields of record bases transitively. seen guards
// against allOf cycles.
func (b *builder) inherited(cl *classify.Classification, seen map[graph.SchemaID]bool) []RegionField {
	var out []RegionField
	for _, base := range cl.Bases {
		if base.Kind != classify.FieldRef || seen[base.Ref] {
			continue
		}
		seen[base.Ref] = true
		bc, ok := b.table.Get(base.Ref)
		if !ok || bc.Kind != classify.Record {
			continue
		}
		out = append(out, b.inherited(bc, seen)...)
		for _, f := range bc.Fields {
			out = append(out, b.field(f))
		}
	}
	return out
}
