package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/schemac"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	c, err := New(WithSize(2))
	require.NoError(t, err)

	t.Run("Miss is nil, nil", func(t *testing.T) {
		v, err := c.Get(ctx, "nope")
		assert.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("Set then Get", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "a", []byte("alpha")))
		v, err := c.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "alpha", string(v))
	})

	t.Run("Least recently used is evicted", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "b", []byte("beta")))
		_, _ = c.Get(ctx, "a")
		require.NoError(t, c.Set(ctx, "c", []byte("gamma")))
		assert.Equal(t, 2, c.Len())
		v, _ := c.Get(ctx, "b")
		assert.Nil(t, v)
		v, _ = c.Get(ctx, "a")
		assert.Equal(t, "alpha", string(v))
	})

	t.Run("Delete and Clear", func(t *testing.T) {
		require.NoError(t, c.Delete(ctx, "a"))
		v, _ := c.Get(ctx, "a")
		assert.Nil(t, v)
		require.NoError(t, c.Clear(ctx))
		assert.Zero(t, c.Len())
	})
}

func TestDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	key := schemac.CacheKey{Language: "rust", Type: "User", Fingerprint: "abc"}.String()

	first, err := New(WithDir(dir))
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, key, []byte("pub struct User;")))

	t.Run("Survives a new process", func(t *testing.T) {
		second, err := New(WithDir(dir))
		require.NoError(t, err)
		v, err := second.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "pub struct User;", string(v))
		assert.Equal(t, 1, second.Len())
	})

	t.Run("File is named by key digest", func(t *testing.T) {
		files, err := filepath.Glob(filepath.Join(dir, "*"+fileExt))
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, first.path(key), files[0])
	})

	t.Run("Corrupt file is a miss", func(t *testing.T) {
		other := "go:Order:def"
		c, err := New(WithDir(dir))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(c.path(other), []byte{0xc1}, 0o644))
		v, err := c.Get(ctx, other)
		assert.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("Clear keeps foreign files", func(t *testing.T) {
		foreign := filepath.Join(dir, "README")
		require.NoError(t, os.WriteFile(foreign, []byte("keep"), 0o644))
		require.NoError(t, first.Clear(ctx))
		files, _ := filepath.Glob(filepath.Join(dir, "*"+fileExt))
		assert.Empty(t, files)
		assert.FileExists(t, foreign)
	})

	t.Run("Delete of a missing key", func(t *testing.T) {
		assert.NoError(t, first.Delete(ctx, "gone"))
	})
}

func TestOptions(t *testing.T) {
	_, err := New(WithSize(0))
	assert.Error(t, err)
	_, err = New(WithDir(" "))
	assert.Error(t, err)
}
