// Package cache stores rendered regions between runs.
//
// The memory tier is an LRU. An optional disk tier keeps entries across
// processes: one msgpack file per key, named by the key's digest.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	digest "github.com/opencontainers/go-digest"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/schemac"
)

// DefaultSize is the number of entries kept in memory.
const DefaultSize = 4096

const fileExt = ".msgpack"

// Cache is a two-tier schemac.Cache.
type Cache struct {
	mem *lru.Cache[string, []byte]
	dir string
	// mu serializes disk writes and removals.
	mu sync.Mutex
}

var _ schemac.Cache = (*Cache)(nil)

type config struct {
	size int
	dir  string
}

// Option configures a Cache.
type Option func(*config) error

// WithSize sets the number of entries kept in memory.
func WithSize(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return fmt.Errorf("cache: size must be positive, got %d", n)
		}
		c.size = n
		return nil
	}
}

// WithDir enables the disk tier below dir.
func WithDir(dir string) Option {
	return func(c *config) error {
		if strings.TrimSpace(dir) == "" {
			return errors.New("cache: dir is required")
		}
		c.dir = dir
		return nil
	}
}

// New returns a cache. Without WithDir it is memory only.
func New(opts ...Option) (*Cache, error) {
	cfg := config{size: DefaultSize}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	mem, err := lru.New[string, []byte](cfg.size)
	if err != nil {
		return nil, err
	}
	if cfg.dir != "" {
		if err := os.MkdirAll(cfg.dir, 0o755); err != nil {
			return nil, fmt.Errorf("cache: %w", err)
		}
	}
	return &Cache{mem: mem, dir: cfg.dir}, nil
}

// entry is the disk record. The key is stored so a digest collision is
// detected instead of served.
type entry struct {
	Key   string `msgpack:"k"`
	Value []byte `msgpack:"v"`
}

// Get returns the value for key, or nil, nil on a miss.
func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	if v, ok := c.mem.Get(key); ok {
		return v, nil
	}
	if c.dir == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: read: %w", err)
	}
	var e entry
	if err := msgpack.Unmarshal(raw, &e); err != nil || e.Key != key {
		// Corrupt or foreign file. Treat as a miss; the next Set replaces it.
		return nil, nil
	}
	c.mem.Add(key, e.Value)
	return e.Value, nil
}

// Set stores value under key in both tiers.
func (c *Cache) Set(_ context.Context, key string, value []byte) error {
	c.mem.Add(key, value)
	if c.dir == "" {
		return nil
	}
	raw, err := msgpack.Marshal(entry{Key: key, Value: value})
	if err != nil {
		return fmt.Errorf("cache: encode: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	path := c.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("cache: write: %w", err)
	}
	return os.Rename(tmp, path)
}

// Delete removes key from both tiers.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.mem.Remove(key)
	if c.dir == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.Remove(c.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cache: delete: %w", err)
	}
	return nil
}

// Clear empties both tiers. Files in the directory that the cache did not
// write are left alone.
func (c *Cache) Clear(_ context.Context) error {
	c.mem.Purge()
	if c.dir == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	files, err := filepath.Glob(filepath.Join(c.dir, "*"+fileExt))
	if err != nil {
		return err
	}
	var errs []error
	for _, f := range files {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of entries in memory.
func (c *Cache) Len() int { return c.mem.Len() }

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, digest.FromString(key).Encoded()+fileExt)
}
