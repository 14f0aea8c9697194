// Package gentest builds codegen contexts from in-memory corpora for
// emitter tests.
package gentest

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/syssam/schemac/compiler/classify"
	"github.com/syssam/schemac/compiler/diag"
	"github.com/syssam/schemac/compiler/gen"
	"github.com/syssam/schemac/compiler/load"
	"github.com/syssam/schemac/compiler/names"
	"github.com/syssam/schemac/compiler/shape"
	"github.com/syssam/schemac/graph"
)

// Corpus is a set of schema documents keyed by path.
type Corpus map[string]string

// Build runs every pass over docs and returns the frozen context. Schemas
// listed in prims are primitives.
func Build(t testing.TB, docs Corpus, prims ...graph.SchemaID) (*gen.Context, *diag.List) {
	t.Helper()
	ctx := context.Background()
	fsys := fstest.MapFS{}
	for p, src := range docs {
		fsys[p] = &fstest.MapFile{Data: []byte(src)}
	}
	l, err := load.NewLoader()
	require.NoError(t, err)
	diags := &diag.List{}
	schemas, err := l.LoadFS(ctx, fsys, diags)
	require.NoError(t, err)
	g, err := graph.Build(ctx, schemas, diags)
	require.NoError(t, err)
	cycles, err := graph.AnalyzeCycles(g)
	require.NoError(t, err)
	shapes, err := shape.DetectAll(ctx, g)
	require.NoError(t, err)
	table, err := classify.ClassifyAll(ctx, g, shapes, cycles, classify.NewPrimitives(prims...), diags)
	require.NoError(t, err)
	nm, err := names.Resolve(g, table, diags)
	require.NoError(t, err)
	cc, err := gen.Build(ctx, g, table, nm)
	require.NoError(t, err)
	return cc, diags
}

// Region builds docs and returns the region of id.
func Region(t testing.TB, docs Corpus, id graph.SchemaID, prims ...graph.SchemaID) *gen.Region {
	t.Helper()
	cc, _ := Build(t, docs, prims...)
	r, ok := cc.RegionFor(id)
	require.True(t, ok, "no region for %s", id)
	return r
}

// Emit renders the region of id with the emitter's built-in profile.
func Emit(t testing.TB, e gen.Emitter, docs Corpus, id graph.SchemaID, prims ...graph.SchemaID) (string, error) {
	t.Helper()
	p, ok := gen.Profile(e.Language())
	require.True(t, ok)
	return e.Emit(Region(t, docs, id, prims...), p)
}

// Render renders the whole corpus into a single bundle file.
func Render(t testing.TB, e gen.Emitter, docs Corpus, prims ...graph.SchemaID) string {
	t.Helper()
	cc, _ := Build(t, docs, prims...)
	files, err := gen.NewGenerator(cc, t.TempDir()).
		WithEmitter(e).
		WithLayout(gen.LayoutBundle, "types").
		Render(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	return string(files[0].Content)
}
