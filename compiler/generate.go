package compiler

import (
	"context"
	"maps"
	"path/filepath"
	"slices"

	slogcontext "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/schemac/compiler/gen"
	"github.com/syssam/schemac/compiler/gen/golang"
	"github.com/syssam/schemac/compiler/gen/graphql"
	"github.com/syssam/schemac/compiler/gen/python"
	"github.com/syssam/schemac/compiler/gen/rust"
	"github.com/syssam/schemac/compiler/gen/typescript"
)

var emitters = map[string]func() gen.Emitter{
	"go":         func() gen.Emitter { return golang.New() },
	"rust":       func() gen.Emitter { return rust.New() },
	"typescript": func() gen.Emitter { return typescript.New() },
	"python":     func() gen.Emitter { return python.New() },
	"graphql":    func() gen.Emitter { return graphql.New() },
}

// Emitter returns a new emitter for a language.
func Emitter(lang string) (gen.Emitter, bool) {
	f, ok := emitters[lang]
	if !ok {
		return nil, false
	}
	return f(), true
}

// Emitters returns the languages with an emitter.
func Emitters() []string {
	return slices.Sorted(maps.Keys(emitters))
}

// Generate renders the result for every configured language into
// <target>/<language>. Languages render concurrently.
func (r *Result) Generate(ctx context.Context, cfg *gen.Config) error {
	if r.Context == nil {
		return gen.NewConfigError("Context", nil, "compilation did not finish")
	}
	if cfg.Target == "" {
		return gen.NewConfigError("Target", "", "output directory is required")
	}
	gens := make([]*gen.Generator, 0, len(cfg.Languages))
	for _, lang := range cfg.Languages {
		e, ok := Emitter(lang)
		if !ok {
			return gen.NewConfigError("Languages", lang, "no emitter for language")
		}
		p, err := cfg.ProfileFor(lang)
		if err != nil {
			return err
		}
		g := gen.NewGenerator(r.Context, filepath.Join(cfg.Target, lang)).
			WithEmitter(e).
			WithProfile(p).
			WithWorkers(cfg.Workers).
			WithLayout(cfg.Layout, cfg.Bundle).
			WithHeader(cfg.Header).
			WithCache(cfg.Cache)
		gens = append(gens, g)
	}
	eg, ctx := errgroup.WithContext(ctx)
	for i, g := range gens {
		eg.Go(func() error {
			if err := g.Generate(ctx); err != nil {
				return err
			}
			slogcontext.FromCtx(ctx).Info("generated", "language", cfg.Languages[i], "regions", r.Context.Len())
			return nil
		})
	}
	return eg.Wait()
}
