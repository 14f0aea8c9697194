package validate

import (
	"context"
	"os/exec"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/schemac/compiler/diag"
	"github.com/syssam/schemac/compiler/load"
	"github.com/syssam/schemac/graph"
)

func buildGraph(t *testing.T, docs map[string]string) *graph.Graph {
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
	g, err := graph.Build(context.Background(), schemas, &diags)
	require.NoError(t, err)
	return g
}

func TestSchemaValidator(t *testing.T) {
	t.Run("Valid corpus", func(t *testing.T) {
		g := buildGraph(t, map[string]string{
			"types/money.json": `{"title": "Money", "type": "string"}`,
			"order/line.json":  `{"title": "Line", "x-familiar-kind": "value", "properties": {"price": {"$ref": "../types/money.json"}}}`,
		})
		findings, err := (&SchemaValidator{}).Validate(context.Background(), g)
		require.NoError(t, err)
		assert.Empty(t, findings)
	})

	t.Run("Invalid keyword value", func(t *testing.T) {
		g := buildGraph(t, map[string]string{
			"ok.json":  `{"type": "string"}`,
			"bad.json": `{"type": 42}`,
		})
		findings, err := (&SchemaValidator{}).Validate(context.Background(), g)
		require.NoError(t, err)
		require.Len(t, findings, 1)
		assert.Equal(t, "bad.json", findings[0].Subject)
		assert.Equal(t, diag.ValidatorFinding, findings[0].Code)
		assert.Equal(t, diag.Warning, findings[0].Severity)
		assert.NotContains(t, findings[0].Message, "\n")
	})

	t.Run("Cancelled", func(t *testing.T) {
		g := buildGraph(t, map[string]string{"a.json": `{"type": "string"}`})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := (&SchemaValidator{}).Validate(ctx, g)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestExternalValidator(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	g := buildGraph(t, map[string]string{
		"a.json": `{"type": "string"}`,
		"b.json": `{"type": "integer"}`,
	})

	t.Run("Findings per line", func(t *testing.T) {
		v := &ExternalValidator{Path: sh, Args: []string{"-c", `cat >/dev/null; echo "a.json: too loose"; echo; echo "stray"`}}
		findings, err := v.Validate(context.Background(), g)
		require.NoError(t, err)
		require.Len(t, findings, 2)
		assert.Equal(t, "a.json", findings[0].Subject)
		assert.Equal(t, "too loose", findings[0].Message)
		assert.Equal(t, "corpus", findings[1].Subject)
		assert.Equal(t, "stray", findings[1].Message)
	})

	t.Run("Manifest on stdin", func(t *testing.T) {
		v := &ExternalValidator{Path: sh, Args: []string{"-c", `grep -o '"path":"[^"]*"' | sed 's/^/corpus: /'`}}
		findings, err := v.Validate(context.Background(), g)
		require.NoError(t, err)
		require.Len(t, findings, 2)
		assert.Equal(t, `"path":"a.json"`, findings[0].Message)
		assert.Equal(t, `"path":"b.json"`, findings[1].Message)
	})

	t.Run("Silent failure", func(t *testing.T) {
		v := &ExternalValidator{Path: sh, Args: []string{"-c", "cat >/dev/null; exit 3"}}
		findings, err := v.Validate(context.Background(), g)
		require.NoError(t, err)
		require.Len(t, findings, 1)
		assert.Contains(t, findings[0].Message, "status 3")
	})

	t.Run("Missing binary", func(t *testing.T) {
		v := &ExternalValidator{Path: "/nonexistent/validator"}
		_, err := v.Validate(context.Background(), g)
		assert.Error(t, err)
	})
}

func TestNew(t *testing.T) {
	v := New(Config{Command: "schemac-no-such-validator"})
	assert.IsType(t, &SchemaValidator{}, v)

	if _, err := exec.LookPath("sh"); err == nil {
		assert.IsType(t, &ExternalValidator{}, New(Config{Command: "sh"}))
	}
}
