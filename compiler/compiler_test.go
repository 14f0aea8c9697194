package compiler_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/syssam/schemac"
	"github.com/syssam/schemac/compiler"
	"github.com/syssam/schemac/compiler/classify"
	"github.com/syssam/schemac/compiler/diag"
	"github.com/syssam/schemac/compiler/gen"
	"github.com/syssam/schemac/compiler/load"
	"github.com/syssam/schemac/compiler/names"
	"github.com/syssam/schemac/graph"
)

func corpus(docs map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for p, src := range docs {
		fsys[p] = &fstest.MapFile{Data: []byte(src)}
	}
	return fsys
}

var shop = map[string]string{
	"types/money.json": `{"title": "Money", "type": "string"}`,
	"types/uuid.json":  `{"title": "Uuid", "type": "string", "format": "uuid"}`,
	"order/order.json": `{"title": "Order", "x-familiar-kind": "entity", "required": ["id", "lines"], "properties": {
		"id": {"$ref": "../types/uuid.json"},
		"lines": {"type": "array", "items": {"$ref": "line.json"}},
		"status": {"$ref": "status.json"}
	}}`,
	"order/line.json":   `{"title": "Line", "required": ["sku", "price"], "properties": {"sku": {"type": "string"}, "price": {"$ref": "../types/money.json"}, "order": {"$ref": "order.json"}}}`,
	"order/status.json": `{"title": "Status", "enum": ["open", "paid"]}`,
	"node_modules/x.json": `{"title": "Ignored"}`,
}

func TestCompile(t *testing.T) {
	cfg := gen.MustNewConfig(gen.WithPrimitives("types/uuid.json"))
	res, err := compiler.Compile(context.Background(), corpus(shop), cfg)
	require.NoError(t, err)

	t.Run("Run id is a uuid", func(t *testing.T) {
		_, err := uuid.Parse(res.RunID)
		assert.NoError(t, err)
	})

	t.Run("Default skips apply", func(t *testing.T) {
		assert.Equal(t, 5, res.Graph.Len())
	})

	t.Run("Phases are populated", func(t *testing.T) {
		require.NotNil(t, res.Cycles)
		require.NotNil(t, res.Table)
		require.NotNil(t, res.Names)
		require.NotNil(t, res.Context)
		assert.Len(t, res.Cycles.Groups(), 1)
		assert.False(t, res.Diags.HasErrors(), res.Diags.Sorted())
	})

	t.Run("Primitive and stdlib alias are not generated", func(t *testing.T) {
		id, ok := res.Graph.ResolveRef("types/uuid.json")
		require.True(t, ok)
		c, _ := res.Table.Get(id)
		assert.Equal(t, classify.Primitive, c.Kind)
		_, ok = res.Context.RegionFor(id)
		assert.False(t, ok)

		var regions []string
		for _, r := range res.Context.Regions() {
			regions = append(regions, r.Name)
		}
		assert.Equal(t, []string{"Line", "Money", "Order", "Status"}, regions)
	})
}

func TestCompileLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := slogcontext.NewCtx(context.Background(), logger)
	res, err := compiler.Compile(ctx, corpus(shop), gen.MustNewConfig())
	require.NoError(t, err)

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, `msg="graph built"`), out)
	assert.Contains(t, out, "hash="+res.Graph.Hash().String())
	assert.Contains(t, out, "run_id="+res.RunID)
}

func TestCompileCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := compiler.Compile(ctx, corpus(shop), gen.MustNewConfig())
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Nil(t, res.Context)
}

func TestCompileFatal(t *testing.T) {
	res, err := compiler.Compile(context.Background(), corpus(map[string]string{
		"billing/config.json": `{"title": "Config", "properties": {"a": {"type": "string"}}}`,
		"auth/config.json":    `{"title": "Config", "properties": {"b": {"type": "string"}}}`,
		"billing-config.json": `{"properties": {"c": {"type": "string"}}}`,
	}), gen.MustNewConfig())
	require.Error(t, err)
	assert.True(t, schemac.IsNameCollision(err))
	assert.Len(t, res.Diags.ByCode(diag.TypeNameCollision), 1)
	assert.Nil(t, res.Context)
}

func TestCompileConfigReferences(t *testing.T) {
	cfg := gen.MustNewConfig(
		gen.WithPrimitives("Uuid", "missing.json"),
		gen.WithExternal(map[string]string{"Money": "github.com/acme/money.Amount"}),
	)
	res, err := compiler.Compile(context.Background(), corpus(shop), cfg)
	require.NoError(t, err)
	assert.Len(t, res.Diags.ByCode(diag.UnresolvedRef), 1)

	id, _ := res.Graph.ResolveRef("types/money.json")
	rn, ok := res.Names.Get(id)
	require.True(t, ok)
	assert.Equal(t, names.External, rn.Origin)
	assert.Equal(t, "github.com/acme/money.Amount", rn.ExternalPath)
}

func TestCompileWithLoaderOptions(t *testing.T) {
	res, err := compiler.Compile(context.Background(), corpus(shop), gen.MustNewConfig(), load.WithSkip("order/"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Graph.Len())
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	cfg := gen.MustNewConfig(
		gen.WithTarget(dir),
		gen.WithLanguages("go", "rust", "typescript", "python", "graphql"),
		gen.WithPrimitives("types/uuid.json"),
		gen.WithLayout(gen.LayoutBundle),
		gen.WithHeader("Code generated by schemac. DO NOT EDIT."),
	)
	res, err := compiler.Compile(context.Background(), corpus(shop), cfg)
	require.NoError(t, err)
	require.NoError(t, res.Generate(context.Background(), cfg))

	for lang, file := range map[string]string{
		"go":         "types.go",
		"rust":       "types.rs",
		"typescript": "types.ts",
		"python":     "types.py",
		"graphql":    "types.graphql",
	} {
		t.Run(lang, func(t *testing.T) {
			b, err := os.ReadFile(filepath.Join(dir, lang, file))
			require.NoError(t, err)
			assert.Contains(t, string(b), "Code generated by schemac. DO NOT EDIT.")
			assert.Contains(t, string(b), "Order")
		})
	}

	t.Run("Unknown language", func(t *testing.T) {
		flow := &gen.RenderProfile{Language: "flow", Ext: "js"}
		err := res.Generate(context.Background(), gen.MustNewConfig(
			gen.WithTarget(dir), gen.WithProfile(flow), gen.WithLanguages("flow"),
		))
		require.Error(t, err)
		assert.True(t, gen.IsConfigError(err))
	})
}

func TestGenerateOneOfLiterals(t *testing.T) {
	dir := t.TempDir()
	cfg := gen.MustNewConfig(gen.WithTarget(dir), gen.WithLanguages("go", "typescript"))
	res, err := compiler.Compile(context.Background(), corpus(map[string]string{
		"status.json": `{"title": "Status", "oneOf": [{"const": "active"}, {"type": "string", "enum": ["inactive"]}]}`,
		"user.json":   `{"title": "User", "required": ["status"], "properties": {"status": {"$ref": "status.json"}}}`,
	}), cfg)
	require.NoError(t, err)

	id, ok := res.Graph.ResolveRef("status.json")
	require.True(t, ok)
	c, _ := res.Table.Get(id)
	assert.Equal(t, classify.Enum, c.Kind)

	require.NoError(t, res.Generate(context.Background(), cfg))
	b, err := os.ReadFile(filepath.Join(dir, "go", "status.go"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "type Status string")
	assert.Contains(t, string(b), "StatusActive")
	assert.Contains(t, string(b), `"inactive"`)
	b, err = os.ReadFile(filepath.Join(dir, "go", "user.go"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "Status Status")
	assert.FileExists(t, filepath.Join(dir, "typescript", "status.ts"))
}

func TestEmitters(t *testing.T) {
	assert.Equal(t, []string{"go", "graphql", "python", "rust", "typescript"}, compiler.Emitters())
	e, ok := compiler.Emitter("rust")
	require.True(t, ok)
	assert.Equal(t, "rust", e.Language())
	_, ok = compiler.Emitter("cobol")
	assert.False(t, ok)
}

type validatorFunc func(context.Context, *graph.Graph) ([]diag.Diagnostic, error)

func (f validatorFunc) Validate(ctx context.Context, g *graph.Graph) ([]diag.Diagnostic, error) {
	return f(ctx, g)
}

func TestResultValidate(t *testing.T) {
	res, err := compiler.Compile(context.Background(), corpus(shop), gen.MustNewConfig())
	require.NoError(t, err)

	t.Run("Findings are merged", func(t *testing.T) {
		before := res.Diags.Len()
		v := validatorFunc(func(_ context.Context, g *graph.Graph) ([]diag.Diagnostic, error) {
			assert.Same(t, res.Graph, g)
			return []diag.Diagnostic{{
				Severity: diag.Warning, Code: diag.ValidatorFinding, Subject: "order/order.json", Message: "too loose",
			}}, nil
		})
		require.NoError(t, res.Validate(context.Background(), v))
		assert.Equal(t, before+1, res.Diags.Len())
		assert.Len(t, res.Diags.ByCode(diag.ValidatorFinding), 1)
	})

	t.Run("Validator errors are returned", func(t *testing.T) {
		v := validatorFunc(func(context.Context, *graph.Graph) ([]diag.Diagnostic, error) {
			return nil, assert.AnError
		})
		assert.ErrorIs(t, res.Validate(context.Background(), v), assert.AnError)
	})

	t.Run("Incomplete result", func(t *testing.T) {
		err := (&compiler.Result{Diags: &diag.List{}}).Validate(context.Background(), validatorFunc(nil))
		assert.True(t, gen.IsConfigError(err))
	})
}
