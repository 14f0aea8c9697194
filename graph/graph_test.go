package graph

import (
	"bytes"
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/schemac"
	"github.com/syssam/schemac/compiler/diag"
	"github.com/syssam/schemac/compiler/load"
)

func loadSchemas(t *testing.T, docs map[string]string) []*load.Schema {
	t.Helper()
	fsys := fstest.MapFS{}
	for p, src := range docs {
		fsys[p] = &fstest.MapFile{Data: []byte(src)}
	}
	l, err := load.NewLoader()
	require.NoError(t, err)
	var diags diag.List
	schemas, err := l.LoadFS(context.Background(), fsys, &diags)
	require.NoError(t, err)
	require.Zero(t, diags.Count(diag.Error), diags.Sorted())
	return schemas
}

func buildGraph(t *testing.T, docs map[string]string) (*Graph, *diag.List) {
	t.Helper()
	var diags diag.List
	g, err := Build(context.Background(), loadSchemas(t, docs), &diags)
	require.NoError(t, err)
	return g, &diags
}

func TestBuild(t *testing.T) {
	g, diags := buildGraph(t, map[string]string{
		"a.json": `{"$id": "A", "title": "Alpha", "x-familiar-kind": "entity", "properties": {
			"b": {"$ref": "b.json"},
			"bs": {"type": "array", "items": {"$ref": "b.json"}},
			"gone": {"$ref": "missing.json"},
			"frag": {"$ref": "#/definitions/X"}
		}}`,
		"b.json": `{"type": "string"}`,
	})

	t.Run("Indices", func(t *testing.T) {
		assert.Equal(t, 2, g.Len())
		assert.Equal(t, []SchemaID{"A", "b.json"}, g.IDs())
		id, ok := g.ByPath("a.json")
		require.True(t, ok)
		assert.Equal(t, SchemaID("A"), id)
		assert.Equal(t, []SchemaID{"A"}, g.ByName("Alpha"))
		n, ok := g.Node("A")
		require.True(t, ok)
		assert.Equal(t, "entity", n.Kind())
		assert.Equal(t, []string{"#/definitions/X"}, n.Fragments)
	})

	t.Run("Parallel edges are kept", func(t *testing.T) {
		out := g.Out("A")
		require.Len(t, out, 2)
		assert.Equal(t, Items, out[0].Kind)
		assert.Equal(t, ".bs[]", out[0].Path)
		assert.Equal(t, Property, out[1].Kind)
		assert.Len(t, g.In("b.json"), 2)
	})

	t.Run("Fields resolve their targets", func(t *testing.T) {
		n, _ := g.Node("A")
		require.Len(t, n.Fields, 4)
		assert.Equal(t, SchemaID("b.json"), n.Fields[0].Target)
		assert.Empty(t, n.Fields[2].Target)
	})

	t.Run("Dangling and fragment refs are diagnostics", func(t *testing.T) {
		unresolved := diags.ByCode(diag.UnresolvedRef)
		require.Len(t, unresolved, 1)
		assert.Equal(t, "A", unresolved[0].Subject)
		assert.Contains(t, unresolved[0].Message, "missing.json")
		assert.Len(t, diags.ByCode(diag.FragmentRef), 1)
	})
}

func TestBuildURLRefs(t *testing.T) {
	g, diags := buildGraph(t, map[string]string{
		"money.json": `{"$id": "https://example.com/money.json", "type": "string"}`,
		"order.json": `{"properties": {
			"total": {"$ref": "https://example.com/money.json"},
			"tax": {"$ref": "https://example.com/tax.json"}
		}}`,
	})
	out := g.Out("order.json")
	require.Len(t, out, 1)
	assert.Equal(t, SchemaID("https://example.com/money.json"), out[0].To)
	unresolved := diags.ByCode(diag.UnresolvedRef)
	require.Len(t, unresolved, 1)
	assert.Contains(t, unresolved[0].Message, "https://example.com/tax.json")
}

func TestBuildDuplicateID(t *testing.T) {
	g, diags := buildGraph(t, map[string]string{
		"x/one.json": `{"$id": "same"}`,
		"y/two.json": `{"$id": "same"}`,
	})
	assert.Equal(t, 1, g.Len())
	n, _ := g.Node("same")
	assert.Equal(t, "x/one.json", n.Path)
	dup := diags.ByCode(diag.DuplicateID)
	require.Len(t, dup, 1)
	assert.Equal(t, "y/two.json", dup[0].Subject)
}

func TestSCCOrderIndependence(t *testing.T) {
	docs := map[string]string{
		"a.json": `{"properties": {"b": {"$ref": "b.json"}}}`,
		"b.json": `{"properties": {"c": {"$ref": "c.json"}}}`,
		"c.json": `{"properties": {"a": {"$ref": "a.json"}, "d": {"$ref": "d.json"}}}`,
		"d.json": `{"properties": {"e": {"$ref": "e.json"}}}`,
		"e.json": `{"allOf": [{"$ref": "d.json"}]}`,
		"f.json": `{"properties": {"a": {"$ref": "a.json"}}}`,
	}
	schemas := loadSchemas(t, docs)
	partition := func(g *Graph) [][]SchemaID {
		var out [][]SchemaID
		for _, s := range g.SCCs() {
			out = append(out, s.Members)
		}
		return out
	}

	var diags diag.List
	base, err := Build(context.Background(), schemas, &diags)
	require.NoError(t, err)
	want := [][]SchemaID{{"a.json", "b.json", "c.json"}, {"d.json", "e.json"}}
	assert.Equal(t, want, partition(base))

	rng := rand.New(rand.NewPCG(1, 2))
	for i := range 10 {
		shuffled := slices.Clone(schemas)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		g, err := Build(context.Background(), shuffled, &diags)
		require.NoError(t, err)
		assert.Equal(t, want, partition(g), "permutation %d", i)
		assert.Equal(t, base.Hash(), g.Hash(), "permutation %d", i)
	}

	s, ok := base.SCCOf("b.json")
	require.True(t, ok)
	assert.True(t, s.Contains("c.json"))
	_, ok = base.SCCOf("f.json")
	assert.False(t, ok)
}

func TestAnalyzeCycles(t *testing.T) {
	t.Run("Two node property cycle boxes one edge", func(t *testing.T) {
		g, _ := buildGraph(t, map[string]string{
			"a.json": `{"properties": {"next": {"$ref": "b.json"}}}`,
			"b.json": `{"properties": {"prev": {"$ref": "a.json"}}}`,
		})
		c, err := AnalyzeCycles(g)
		require.NoError(t, err)
		require.Len(t, c.Groups(), 1)
		grp := c.Groups()[0]
		assert.Equal(t, []SchemaID{"a.json", "b.json"}, grp.Members)
		assert.False(t, grp.SelfReferential)
		require.Len(t, grp.Indirect, 1)
		assert.Equal(t, SchemaID("a.json"), grp.Indirect[0].From)
		assert.Equal(t, ".next", grp.Indirect[0].Path)
	})

	t.Run("Property edges are boxed before allOf edges", func(t *testing.T) {
		g, _ := buildGraph(t, map[string]string{
			"a.json": `{"allOf": [{"$ref": "b.json"}]}`,
			"b.json": `{"properties": {"parent": {"$ref": "a.json"}}}`,
		})
		c, err := AnalyzeCycles(g)
		require.NoError(t, err)
		grp := c.Groups()[0]
		require.Len(t, grp.Indirect, 1)
		assert.Equal(t, Property, grp.Indirect[0].Kind)
		for _, d := range c.Outgoing(g, "a.json") {
			assert.False(t, d.Indirect)
		}
	})

	t.Run("An allOf only cycle boxes the lowest ordinal allOf", func(t *testing.T) {
		g, _ := buildGraph(t, map[string]string{
			"a.json": `{"allOf": [{"$ref": "b.json"}]}`,
			"b.json": `{"allOf": [{"$ref": "a.json"}]}`,
		})
		c, err := AnalyzeCycles(g)
		require.NoError(t, err)
		grp := c.Groups()[0]
		require.Len(t, grp.Indirect, 1)
		assert.Equal(t, 0, grp.Indirect[0].Ordinal)
		assert.Equal(t, SchemaID("a.json"), grp.Indirect[0].From)
	})

	t.Run("Self reference forms its own group", func(t *testing.T) {
		g, _ := buildGraph(t, map[string]string{
			"tree.json": `{"properties": {"children": {"type": "array", "items": {"$ref": "#"}}}}`,
			"leaf.json": `{"properties": {"tree": {"$ref": "tree.json"}}}`,
		})
		assert.Empty(t, g.SCCs())
		c, err := AnalyzeCycles(g)
		require.NoError(t, err)
		require.Len(t, c.Groups(), 1)
		grp := c.Groups()[0]
		assert.True(t, grp.SelfReferential)
		assert.Equal(t, 1, grp.Size())
		require.Len(t, grp.Indirect, 1)
		assert.Equal(t, Items, grp.Indirect[0].Kind)
		_, ok := c.GroupOf("leaf.json")
		assert.False(t, ok)
	})
}

// TestCycleTermination checks on generated graphs that the direct edges
// of every group are acyclic and that every indirect edge is necessary.
func TestCycleTermination(t *testing.T) {
	kinds := []string{"property", "items", "allOf", "oneOf", "map"}
	for seed := range uint64(25) {
		rng := rand.New(rand.NewPCG(seed, 7))
		n := 3 + rng.IntN(8)
		docs := map[string]string{}
		for i := range n {
			var props []string
			var allOf []string
			for j := range 1 + rng.IntN(4) {
				target := fmt.Sprintf("s%d.json", rng.IntN(n))
				switch kinds[rng.IntN(len(kinds))] {
				case "property":
					props = append(props, fmt.Sprintf(`"p%d": {"$ref": %q}`, j, target))
				case "items":
					props = append(props, fmt.Sprintf(`"l%d": {"items": {"$ref": %q}}`, j, target))
				case "map":
					props = append(props, fmt.Sprintf(`"m%d": {"additionalProperties": {"$ref": %q}}`, j, target))
				case "allOf", "oneOf":
					allOf = append(allOf, fmt.Sprintf(`{"$ref": %q}`, target))
				}
			}
			docs[fmt.Sprintf("s%d.json", i)] = fmt.Sprintf(`{"allOf": [%s], "properties": {%s}}`,
				join(allOf), join(props))
		}
		g, _ := buildGraph(t, docs)
		c, err := AnalyzeCycles(g)
		require.NoError(t, err, "seed %d", seed)

		for _, grp := range c.Groups() {
			require.NotEmpty(t, grp.Indirect, "seed %d group %d", seed, grp.ID)
			direct := map[SchemaID][]SchemaID{}
			for _, m := range grp.Members {
				for _, e := range g.Out(m) {
					if _, ok := slices.BinarySearch(grp.Members, e.To); ok && !c.IsIndirect(e) {
						direct[m] = append(direct[m], e.To)
					}
				}
			}
			assert.Nil(t, findCycle(grp.Members, direct), "seed %d group %d", seed, grp.ID)
			for _, e := range grp.Indirect {
				if e.From != e.To {
					assert.True(t, reachable(direct, e.To, e.From), "seed %d: %s is boxed needlessly", seed, e)
				}
			}
		}
	}
}

func join(parts []string) string {
	var b bytes.Buffer
	for i, p := range parts {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p)
	}
	return b.String()
}

func TestVerifyDetectsDirectCycle(t *testing.T) {
	g, _ := buildGraph(t, map[string]string{
		"a.json": `{"properties": {"b": {"$ref": "b.json"}}}`,
		"b.json": `{"properties": {"a": {"$ref": "a.json"}}}`,
	})
	c, err := AnalyzeCycles(g)
	require.NoError(t, err)
	for e := range c.indirect {
		delete(c.indirect, e)
	}
	err = c.Verify(g)
	require.Error(t, err)
	assert.True(t, schemac.IsCycleInvariant(err))
	assert.Contains(t, err.Error(), "[a.json, b.json]")
}

func TestQueries(t *testing.T) {
	g, _ := buildGraph(t, map[string]string{
		"svc/user.json":    `{"title": "User", "x-familiar-kind": "entity", "properties": {"addr": {"$ref": "address.json"}}}`,
		"svc/address.json": `{"title": "Address", "x-familiar-kind": "value", "properties": {"geo": {"$ref": "geo.json"}}}`,
		"svc/geo.json":     `{"title": "Geo", "x-familiar-kind": "value"}`,
	})

	t.Run("Resolve", func(t *testing.T) {
		for _, q := range []string{"svc/user.json", "./svc/user.json", "User", "user"} {
			n, ok := g.Resolve(q)
			require.True(t, ok, q)
			assert.Equal(t, SchemaID("svc/user.json"), n.ID, q)
		}
		_, ok := g.Resolve("nobody")
		assert.False(t, ok)
	})

	t.Run("Closure", func(t *testing.T) {
		assert.Equal(t, []SchemaID{"svc/address.json", "svc/geo.json"}, g.Closure("svc/user.json", 0))
		assert.Equal(t, []SchemaID{"svc/address.json"}, g.Closure("svc/user.json", 1))
		assert.Empty(t, g.Closure("svc/geo.json", 0))
	})

	t.Run("Kinds", func(t *testing.T) {
		assert.Equal(t, []string{"entity", "value"}, g.Kinds())
		assert.Len(t, g.ListByKind("value"), 2)
		assert.Len(t, g.RefsIn("svc/geo.json"), 1)
		assert.Len(t, g.RefsOut("svc/user.json"), 1)
	})
}

func TestWriteDOT(t *testing.T) {
	g, _ := buildGraph(t, map[string]string{
		"a.json": `{"properties": {"next": {"$ref": "b.json"}}}`,
		"b.json": `{"properties": {"prev": {"$ref": "a.json"}}}`,
	})
	c, err := AnalyzeCycles(g)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, g.WriteDOT(&buf, c))
	out := buf.String()
	assert.Contains(t, out, "digraph schemas {")
	assert.Contains(t, out, "subgraph cluster_0")
	assert.Contains(t, out, `"a.json" -> "b.json" [label="property.next", style=dashed];`)
	assert.Contains(t, out, `"b.json" -> "a.json" [label="property.prev"];`)
}
