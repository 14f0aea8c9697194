package gen

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	slogcontext "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/schemac"
)

// File is one rendered output file.
type File struct {
	// Path is relative to the generator output directory.
	Path    string
	Content []byte
}

// Generator renders the regions of a Context with one emitter.
type Generator struct {
	ctx     *Context
	outDir  string
	workers int
	layout  Layout
	bundle  string
	header  string
	cache   schemac.Cache

	emitter  Emitter
	profile  *RenderProfile
	preamble Preamble
	bundler  Bundler
}

// NewGenerator creates a generator writing below outDir.
// You must call WithEmitter() before calling Generate().
//
// Example:
//
//	g := gen.NewGenerator(cc, "out/rust").
//	    WithEmitter(rust.New()).
//	    WithWorkers(8)
//	err := g.Generate(ctx)
func NewGenerator(c *Context, outDir string) *Generator {
	return &Generator{
		ctx:     c,
		outDir:  outDir,
		workers: runtime.GOMAXPROCS(0),
		layout:  LayoutPerType,
		bundle:  "types",
	}
}

// WithWorkers sets the number of parallel workers.
func (g *Generator) WithWorkers(n int) *Generator {
	if n > 0 {
		g.workers = n
	}
	return g
}

// WithLayout sets the file layout.
func (g *Generator) WithLayout(l Layout, bundle string) *Generator {
	if l != "" {
		g.layout = l
	}
	if bundle != "" {
		g.bundle = bundle
	}
	return g
}

// WithHeader sets the comment placed at the top of each file.
func (g *Generator) WithHeader(h string) *Generator {
	g.header = h
	return g
}

// WithCache sets the cache consulted before rendering a region.
func (g *Generator) WithCache(c schemac.Cache) *Generator {
	g.cache = c
	return g
}

// WithEmitter sets the emitter. Optional capabilities are detected via
// type assertion. The emitter's built-in profile is used unless
// WithProfile is called afterwards.
func (g *Generator) WithEmitter(e Emitter) *Generator {
	if e == nil {
		return g
	}
	g.emitter = e
	g.preamble, _ = e.(Preamble)
	g.bundler, _ = e.(Bundler)
	if g.profile == nil || g.profile.Language != e.Language() {
		g.profile, _ = Profile(e.Language())
	}
	return g
}

// WithProfile sets the render profile.
func (g *Generator) WithProfile(p *RenderProfile) *Generator {
	if p != nil {
		g.profile = p
	}
	return g
}

// Render renders every region and assembles the files in memory.
func (g *Generator) Render(ctx context.Context) ([]File, error) {
	if g.emitter == nil {
		return nil, NewConfigError("Emitter", nil, "no emitter set: call WithEmitter() before Generate()")
	}
	if g.profile == nil {
		return nil, NewConfigError("Profile", g.emitter.Language(), "no render profile")
	}
	regions := g.ctx.Regions()
	decls := make([]string, len(regions))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, r := range regions {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			text, err := g.emit(ctx, r)
			if err != nil {
				return err
			}
			decls[i] = text
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if g.layout == LayoutBundle {
		f, err := g.assemble(g.bundle, regions, decls)
		if err != nil {
			return nil, err
		}
		return []File{f}, nil
	}
	files := make([]File, len(regions))
	used := make(map[string]int, len(regions))
	for i, r := range regions {
		stem := FileStem(r.Name)
		// Distinct names may share a snake_case stem.
		if n := used[stem]; n > 0 {
			used[stem]++
			stem += "_" + strconv.Itoa(n+1)
		} else {
			used[stem] = 1
		}
		f, err := g.assemble(stem, regions[i:i+1], decls[i:i+1])
		if err != nil {
			return nil, err
		}
		files[i] = f
	}
	return files, nil
}

// Generate renders and writes every file.
func (g *Generator) Generate(ctx context.Context) error {
	files, err := g.Render(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(g.outDir, 0o755); err != nil {
		return NewGenerationError("write", g.outDir, "create output directory", err)
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for _, f := range files {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return g.writeFile(f)
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	slogcontext.FromCtx(ctx).Debug("files written",
		"language", g.profile.Language, "files", len(files), "dir", g.outDir)
	return nil
}

// emit renders one region, consulting the cache first.
func (g *Generator) emit(ctx context.Context, r *Region) (string, error) {
	var key string
	if g.cache != nil {
		fp, err := Fingerprint(r, g.profile)
		if err != nil {
			return "", NewGenerationError("emit", r.Path, "fingerprint region", err)
		}
		key = schemac.CacheKey{Language: g.profile.Language, Type: r.Name, Fingerprint: fp.Encoded()}.String()
		if b, err := g.cache.Get(ctx, key); err == nil && b != nil {
			return string(b), nil
		}
	}
	text, err := g.emitter.Emit(r, g.profile)
	if err != nil {
		return "", err
	}
	if g.cache != nil {
		if err := g.cache.Set(ctx, key, []byte(text)); err != nil {
			slogcontext.FromCtx(ctx).Warn("cache write failed", "type", r.Name, "error", err)
		}
	}
	return text, nil
}

func (g *Generator) assemble(stem string, regions []*Region, decls []string) (File, error) {
	name := stem + "." + g.profile.Ext
	var b strings.Builder
	if g.header != "" {
		b.WriteString(commentHeader(g.profile, g.header))
	}
	if g.bundler != nil {
		text, err := g.bundler.Bundle(g.profile, regions, decls)
		if err != nil {
			return File{}, NewGenerationError("bundle", name, "", err)
		}
		b.WriteString(text)
		return File{Path: name, Content: []byte(b.String())}, nil
	}
	if g.preamble != nil {
		b.WriteString(g.preamble.Preamble(g.profile, regions))
	}
	for i, d := range decls {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(d)
	}
	return File{Path: name, Content: []byte(b.String())}, nil
}

func (g *Generator) writeFile(f File) error {
	path := filepath.Join(g.outDir, filepath.FromSlash(f.Path))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return NewGenerationError("write", f.Path, "create directory", err)
	}
	if err := os.WriteFile(path, f.Content, 0o644); err != nil {
		return NewGenerationError("write", f.Path, "", err)
	}
	return nil
}

// FileStem returns the file name stem of a type: its snake_case name.
func FileStem(name string) string {
	return CaseSnake.Apply(name)
}

func commentHeader(p *RenderProfile, header string) string {
	prefix := "// "
	if p.Language == "python" || p.Language == "graphql" {
		prefix = "# "
	}
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimRight(header, "\n"), "\n") {
		b.WriteString(strings.TrimRight(prefix+line, " "))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}
