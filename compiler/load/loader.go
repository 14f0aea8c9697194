package load

import (
	"context"
	"errors"
	"io/fs"
	"maps"
	"path"
	"runtime"
	"slices"
	"strings"

	slogcontext "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/schemac"
	"github.com/syssam/schemac/compiler/diag"
)

// Config configures a Loader.
type Config struct {
	Include      []string
	Skip         []string
	IncludeGlobs []string
	SkipGlobs    []string
	Workers      int
}

// Option configures loading.
type Option func(*Config) error

// WithInclude restricts loading to paths under the given prefixes.
func WithInclude(prefixes ...string) Option {
	return func(c *Config) error {
		c.Include = append(c.Include, prefixes...)
		return nil
	}
}

// WithSkip adds path prefixes that are never loaded.
func WithSkip(prefixes ...string) Option {
	return func(c *Config) error {
		c.Skip = append(c.Skip, prefixes...)
		return nil
	}
}

// WithGlobs adds include and skip glob patterns, e.g. "**/*.schema.json".
func WithGlobs(include, skip []string) Option {
	return func(c *Config) error {
		c.IncludeGlobs = append(c.IncludeGlobs, include...)
		c.SkipGlobs = append(c.SkipGlobs, skip...)
		return nil
	}
}

// WithWorkers sets the number of parallel file readers.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n < 0 {
			return errors.New("load: workers must not be negative")
		}
		c.Workers = n
		return nil
	}
}

// Loader reads a corpus of schema documents.
type Loader struct {
	cfg    Config
	filter *Filter
}

// NewLoader returns a Loader. The default skip prefixes always apply.
func NewLoader(opts ...Option) (*Loader, error) {
	cfg := Config{Skip: slices.Clone(DefaultSkipPrefixes)}
	var errs []error
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	f, err := NewFilter(cfg.Include, cfg.Skip, cfg.IncludeGlobs, cfg.SkipGlobs)
	if err != nil {
		return nil, err
	}
	return &Loader{cfg: cfg, filter: f}, nil
}

// LoadFS reads every matching document of fsys, which may be a directory
// (os.DirFS) or an embedded bundle. A document that fails to parse is
// skipped with a diagnostic; only I/O errors and cancellation fail the load.
// The result is sorted by path.
func (l *Loader) LoadFS(ctx context.Context, fsys fs.FS, diags *diag.List) ([]*Schema, error) {
	var paths []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != "." && l.skipsDir(p+"/") {
				return fs.SkipDir
			}
			return nil
		}
		if IsSchemaFile(p) && l.filter.Match(p) {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(paths)
	slogcontext.FromCtx(ctx).Debug("scanning corpus", "files", len(paths))

	values := make([]*Value, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.Workers)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := fs.ReadFile(fsys, p)
			if err != nil {
				return err
			}
			v, err := Parse(p, data)
			if err != nil {
				diags.Add(parseDiagnostic(schemac.NewParseError(p, err)))
				return nil
			}
			values[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	docs := make(map[string]*Value, len(paths))
	for i, p := range paths {
		if values[i] != nil {
			docs[p] = values[i]
		}
	}
	return l.build(ctx, docs, diags)
}

// LoadValues builds schemas from already-parsed documents keyed by path.
// The filter still applies.
func (l *Loader) LoadValues(ctx context.Context, docs map[string]*Value, diags *diag.List) ([]*Schema, error) {
	filtered := make(map[string]*Value, len(docs))
	for p, v := range docs {
		p = cleanPath(p)
		if l.filter.Match(p) {
			filtered[p] = v
		}
	}
	return l.build(ctx, filtered, diags)
}

func (l *Loader) build(ctx context.Context, docs map[string]*Value, diags *diag.List) ([]*Schema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]*Schema, 0, len(docs))
	for _, p := range slices.Sorted(maps.Keys(docs)) {
		s, err := NewSchema(p, docs[p])
		if err != nil {
			diags.Add(parseDiagnostic(schemac.NewParseError(p, err)))
			continue
		}
		for _, key := range s.Ext.Unknown {
			diags.Warnf(diag.UnknownExtension, s.ID, "unrecognized extension %q", key)
		}
		out = append(out, s)
	}
	return out, nil
}

// skipsDir reports whether a directory is excluded by a skip prefix, so the
// walk does not descend into it. Include rules never prune directories.
func (l *Loader) skipsDir(dir string) bool {
	for _, s := range l.cfg.Skip {
		if hasPathPrefix(dir, s) {
			return true
		}
	}
	return false
}

func parseDiagnostic(err *schemac.ParseError) diag.Diagnostic {
	return diag.Diagnostic{
		Severity: diag.Error,
		Code:     diag.ParseFailure,
		Subject:  err.Path,
		Message:  err.Error(),
	}
}

func cleanPath(p string) string {
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimPrefix(p, "./")
}
