package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/schemac/compiler/load"
)

var corpus = map[string]string{
	"types/user.json": `{"title": "User", "type": "object", "x-familiar-kind": "entity",
		"properties": {"name": {"type": "string"}, "address": {"$ref": "address.json"}},
		"required": ["name"]}`,
	"types/address.json": `{"title": "Address", "type": "object", "properties": {"city": {"type": "string"}}}`,
}

// writeCorpus writes files below a new directory and returns it.
func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for p, src := range files {
		writeFile(t, filepath.Join(dir, filepath.FromSlash(p)), src)
	}
	return dir
}

// execute runs the root command with a quiet logger and returns its
// standard output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "schemac.yaml")
	writeFile(t, cfgPath, "log:\n  level: error\n")

	var stdout, stderr bytes.Buffer
	root := New()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append(args, "--config", cfgPath))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestGenerateCommand(t *testing.T) {
	root := writeCorpus(t, corpus)

	t.Run("Bundle", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "out")
		_, err := execute(t, "generate", "--root", root, "-o", out, "-l", "go,typescript", "--layout", "bundle")
		require.NoError(t, err)

		src, err := os.ReadFile(filepath.Join(out, "go", "types.go"))
		require.NoError(t, err)
		assert.Contains(t, string(src), "type User struct")
		assert.Contains(t, string(src), "type Address struct")

		src, err = os.ReadFile(filepath.Join(out, "typescript", "types.ts"))
		require.NoError(t, err)
		assert.Contains(t, string(src), "export interface User")
	})

	t.Run("Per type", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "out")
		_, err := execute(t, "generate", "--root", root, "--output", out)
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(out, "go", "user.go"))
		assert.FileExists(t, filepath.Join(out, "go", "address.go"))
	})

	t.Run("Env file", func(t *testing.T) {
		t.Cleanup(func() { os.Unsetenv("SCHEMAC_LANGUAGES") })
		env := filepath.Join(t.TempDir(), "test.env")
		writeFile(t, env, "SCHEMAC_LANGUAGES=typescript\n")
		out := filepath.Join(t.TempDir(), "out")
		_, err := execute(t, "generate", "--root", root, "-o", out, "--env-file", env)
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(out, "typescript", "user.ts"))
		assert.NoDirExists(t, filepath.Join(out, "go"))
	})

	t.Run("Missing env file", func(t *testing.T) {
		_, err := execute(t, "generate", "--root", root, "--env-file", filepath.Join(t.TempDir(), "none.env"))
		require.Error(t, err)
	})

	t.Run("Strict", func(t *testing.T) {
		dangling := writeCorpus(t, map[string]string{
			"a.json": `{"title": "A", "type": "object", "properties": {"b": {"$ref": "missing.json"}}}`,
		})
		out := filepath.Join(t.TempDir(), "out")
		_, err := execute(t, "generate", "--root", dangling, "-o", out, "--strict")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 error diagnostics")
		assert.NoDirExists(t, out)

		// Without --strict the reference renders as an untyped value.
		_, err = execute(t, "generate", "--root", dangling, "-o", out)
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(out, "go", "a.go"))
	})

	t.Run("Unknown language", func(t *testing.T) {
		_, err := execute(t, "generate", "--root", root, "-l", "cobol")
		require.Error(t, err)
	})
}

func TestCheckCommand(t *testing.T) {
	t.Run("Lint findings", func(t *testing.T) {
		root := writeCorpus(t, corpus)
		stdout, err := execute(t, "check", "--root", root, "--no-validate", "--require-kind")
		require.NoError(t, err)
		assert.Contains(t, stdout, "W003")
		assert.Contains(t, stdout, "MISSING_KIND")
		assert.Contains(t, stdout, "types/address.json")
		assert.Contains(t, stdout, "0 errors")
	})

	t.Run("Clean", func(t *testing.T) {
		root := writeCorpus(t, corpus)
		stdout, err := execute(t, "check", "--root", root, "--no-validate")
		require.NoError(t, err)
		assert.NotContains(t, stdout, "MISSING_KIND")
	})

	t.Run("Errors fail", func(t *testing.T) {
		root := writeCorpus(t, map[string]string{
			"a.json": `{"title": "A", "type": "object", "properties": {"b": {"$ref": "missing.json"}}}`,
		})
		stdout, err := execute(t, "check", "--root", root, "--no-validate")
		require.Error(t, err)
		assert.Contains(t, stdout, "E004")
	})
}

func TestGraphCommand(t *testing.T) {
	root := writeCorpus(t, corpus)

	t.Run("Resolve", func(t *testing.T) {
		stdout, err := execute(t, "graph", "resolve", "user", "--root", root)
		require.NoError(t, err)
		assert.Contains(t, stdout, "types/user.json")
		assert.Contains(t, stdout, "entity")
	})

	t.Run("Resolve unknown", func(t *testing.T) {
		_, err := execute(t, "graph", "resolve", "Order", "--root", root)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `no schema matches "Order"`)
	})

	t.Run("Refs", func(t *testing.T) {
		stdout, err := execute(t, "graph", "refs", "User", "--root", root)
		require.NoError(t, err)
		assert.Contains(t, stdout, "types/address.json")

		stdout, err = execute(t, "graph", "refs", "Address", "--in", "--root", root)
		require.NoError(t, err)
		assert.Contains(t, stdout, "types/user.json")
	})

	t.Run("Closure", func(t *testing.T) {
		stdout, err := execute(t, "graph", "closure", "types/user.json", "--root", root)
		require.NoError(t, err)
		assert.Contains(t, stdout, "Address")
		assert.NotContains(t, stdout, "types/user.json")
	})

	t.Run("Kinds", func(t *testing.T) {
		stdout, err := execute(t, "graph", "kinds", "--root", root)
		require.NoError(t, err)
		assert.Contains(t, stdout, "entity")

		stdout, err = execute(t, "graph", "kinds", "entity", "--root", root)
		require.NoError(t, err)
		assert.Contains(t, stdout, "types/user.json")
		assert.NotContains(t, stdout, "types/address.json")
	})

	t.Run("DOT", func(t *testing.T) {
		stdout, err := execute(t, "graph", "dot", "--root", root)
		require.NoError(t, err)
		assert.Contains(t, stdout, "digraph schemas {")
	})
}

func TestExportCommand(t *testing.T) {
	root := writeCorpus(t, corpus)

	t.Run("SQLite", func(t *testing.T) {
		dsn := filepath.Join(t.TempDir(), "index.db")
		stdout, err := execute(t, "export", "--root", root, "--dsn", dsn)
		require.NoError(t, err)
		assert.Contains(t, stdout, "exported run")
		assert.Contains(t, stdout, "2 schemas, 1 references")
		assert.FileExists(t, dsn)
	})

	t.Run("DSN required", func(t *testing.T) {
		_, err := execute(t, "export", "--root", root)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--dsn is required")
	})

	t.Run("Unknown driver", func(t *testing.T) {
		_, err := execute(t, "export", "--root", root, "--driver", "oracle", "--dsn", "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown dialect")
	})
}

func TestWatch(t *testing.T) {
	root := writeCorpus(t, corpus)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	builds := make(chan struct{}, 16)
	done := make(chan error, 1)
	go func() {
		done <- watch(ctx, root, load.DefaultSkipPrefixes, 20*time.Millisecond, func(context.Context) {
			builds <- struct{}{}
		})
	}()

	wait := func() {
		t.Helper()
		select {
		case <-builds:
		case <-time.After(5 * time.Second):
			require.FailNow(t, "no build")
		}
	}
	wait()

	writeFile(t, filepath.Join(root, "types", "order.json"), `{"title": "Order"}`)
	wait()

	// New directories are watched as they appear.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "billing"), 0o755))
	time.Sleep(50 * time.Millisecond)
	writeFile(t, filepath.Join(root, "billing", "invoice.json"), `{"title": "Invoice"}`)
	wait()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "watch did not stop")
	}
}

func TestRelevant(t *testing.T) {
	root := filepath.Join("/", "corpus")
	skip := load.DefaultSkipPrefixes
	tests := []struct {
		name string
		want bool
	}{
		{"types/user.json", true},
		{"types/user.yaml", true},
		{"types/user.YML", true},
		{"types/README.md", false},
		{"node_modules/pkg/schema.json", false},
		{"web/node_modules/pkg/schema.json", false},
		{"target/out.json", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, relevant(root, filepath.Join(root, filepath.FromSlash(tt.name)), skip))
		})
	}
}
