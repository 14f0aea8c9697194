package classify

import (
	"context"
	"runtime"
	"slices"
	"sync"

	slogcontext "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/schemac/compiler/diag"
	"github.com/syssam/schemac/compiler/shape"
	"github.com/syssam/schemac/graph"
)

// Table holds the classification of every schema in a graph.
type Table struct {
	ids   []graph.SchemaID
	items map[graph.SchemaID]*Classification
}

// Get returns the classification of id.
func (t *Table) Get(id graph.SchemaID) (*Classification, bool) {
	c, ok := t.items[id]
	return c, ok
}

// IDs returns the classified ids in sorted order.
func (t *Table) IDs() []graph.SchemaID { return t.ids }

// Len returns the number of classified schemas.
func (t *Table) Len() int { return len(t.ids) }

// Count returns the number of schemas classified as k.
func (t *Table) Count(k TypeKind) int {
	n := 0
	for _, c := range t.items {
		if c.Kind == k {
			n++
		}
	}
	return n
}

// Primitives is the set of schemas that are hand-written and never generated.
type Primitives map[graph.SchemaID]bool

// NewPrimitives returns a set holding ids.
func NewPrimitives(ids ...graph.SchemaID) Primitives {
	p := make(Primitives, len(ids))
	for _, id := range ids {
		p[id] = true
	}
	return p
}

// ClassifyAll classifies every node of g in parallel, then runs the checks
// that look across schemas: union tags of referenced variants and
// aliases of aliases.
func ClassifyAll(ctx context.Context, g *graph.Graph, shapes map[graph.SchemaID]shape.Shape, cycles *graph.Cycles, prims Primitives, diags *diag.List) (*Table, error) {
	t := &Table{
		ids:   g.IDs(),
		items: make(map[graph.SchemaID]*Classification, g.Len()),
	}
	var mu sync.Mutex
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for _, id := range t.ids {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			in := Input{
				ID:        id,
				Shape:     shapes[id],
				Outgoing:  cycles.Outgoing(g, id),
				Primitive: prims[id],
			}
			if grp, ok := cycles.GroupOf(id); ok {
				in.Group = grp
			}
			c := Classify(in, g, diags)
			mu.Lock()
			t.items[id] = &c
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	for _, id := range t.ids {
		c := t.items[id]
		switch c.Kind {
		case DiscriminatedUnion:
			t.fillTags(c, shapes, diags)
		case Alias:
			t.checkAlias(c, diags)
		}
	}
	slogcontext.FromCtx(ctx).Debug("schemas classified",
		"total", t.Len(), "records", t.Count(Record), "enums", t.Count(Enum),
		"unions", t.Count(DiscriminatedUnion), "unsupported", t.Count(Unsupported))
	return t, nil
}

// fillTags derives the tag of referenced variants from the discriminator
// literal the target declares, falling back to the variant name, and
// reports duplicate tags.
func (t *Table) fillTags(c *Classification, shapes map[graph.SchemaID]shape.Shape, diags *diag.List) {
	if c.Discriminator == "" {
		return
	}
	seen := make(map[string]string, len(c.Variants))
	for i := range c.Variants {
		v := &c.Variants[i]
		if v.Tag == "" && v.Type.Kind == FieldRef {
			v.Tag = declaredTag(shapes[v.Type.Ref], c.Discriminator)
		}
		if v.Tag == "" {
			v.Tag = v.Name
		}
		if prev, ok := seen[v.Tag]; ok {
			diags.Errorf(diag.EnumVariantConflict, string(c.ID), "variants %s and %s share tag %q", prev, v.Name, v.Tag)
			continue
		}
		seen[v.Tag] = v.Name
	}
}

func declaredTag(s shape.Shape, disc string) string {
	i := slices.IndexFunc(s.Properties, func(p shape.Property) bool { return p.Name == disc })
	if i < 0 {
		return ""
	}
	return s.Properties[i].Const
}

// checkAlias reports an alias whose target is itself an alias. The chain
// is kept as written.
func (t *Table) checkAlias(c *Classification, diags *diag.List) {
	if c.Target == nil || c.Target.Kind != FieldRef {
		return
	}
	if target, ok := t.items[c.Target.Ref]; ok && target.Kind == Alias {
		diags.Warnf(diag.AliasOfAlias, string(c.ID), "alias of alias %s", c.Target.Ref)
	}
}
