// Package compiler drives one compilation run over a schema corpus:
// load, graph, cycles, shapes, classification, names and the codegen
// context. Every phase reads only the frozen output of the phases before
// it, and the context is checked for cancellation between phases.
package compiler

import (
	"context"
	"io/fs"

	"github.com/google/uuid"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/syssam/schemac/compiler/classify"
	"github.com/syssam/schemac/compiler/diag"
	"github.com/syssam/schemac/compiler/gen"
	"github.com/syssam/schemac/compiler/lint"
	"github.com/syssam/schemac/compiler/load"
	"github.com/syssam/schemac/compiler/names"
	"github.com/syssam/schemac/compiler/shape"
	"github.com/syssam/schemac/compiler/validate"
	"github.com/syssam/schemac/graph"
)

// Result is the output of one run. Fields are nil past the phase that
// failed.
type Result struct {
	RunID   string
	Schemas []*load.Schema
	Graph   *graph.Graph
	Cycles  *graph.Cycles
	Shapes  map[graph.SchemaID]shape.Shape
	Table   *classify.Table
	Names   *names.Names
	Context *gen.Context
	Diags   *diag.List
}

// Compile loads the corpus in fsys and runs every analysis phase. The
// result is returned with its diagnostics even when a fatal error stops
// the run.
func Compile(ctx context.Context, fsys fs.FS, cfg *gen.Config, opts ...load.Option) (*Result, error) {
	res, ctx := start(ctx)
	l, err := load.NewLoader(append([]load.Option{load.WithWorkers(cfg.Workers)}, opts...)...)
	if err != nil {
		return res, err
	}
	slogcontext.FromCtx(ctx).Debug("phase started", "phase", "load")
	if res.Schemas, err = l.LoadFS(ctx, fsys, res.Diags); err != nil {
		return res, err
	}
	return res, res.analyze(ctx, cfg)
}

// CompileValues runs every analysis phase over parsed documents keyed by
// path.
func CompileValues(ctx context.Context, docs map[string]*load.Value, cfg *gen.Config) (*Result, error) {
	res, ctx := start(ctx)
	l, err := load.NewLoader(load.WithWorkers(cfg.Workers))
	if err != nil {
		return res, err
	}
	if res.Schemas, err = l.LoadValues(ctx, docs, res.Diags); err != nil {
		return res, err
	}
	return res, res.analyze(ctx, cfg)
}

// start tags the run and its logger with a fresh run id.
func start(ctx context.Context) (*Result, context.Context) {
	res := &Result{RunID: uuid.NewString(), Diags: &diag.List{}}
	logger := slogcontext.FromCtx(ctx).With("run_id", res.RunID)
	return res, slogcontext.NewCtx(ctx, logger)
}

func (r *Result) analyze(ctx context.Context, cfg *gen.Config) (err error) {
	logger := slogcontext.FromCtx(ctx)
	logger.Debug("corpus loaded", "files", len(r.Schemas), "diagnostics", r.Diags.Len())

	if r.Graph, err = graph.Build(ctx, r.Schemas, r.Diags); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if r.Cycles, err = graph.AnalyzeCycles(r.Graph); err != nil {
		return err
	}
	logger.Debug("cycles analyzed", "groups", len(r.Cycles.Groups()))

	if r.Shapes, err = shape.DetectAll(ctx, r.Graph); err != nil {
		return err
	}
	prims := classify.NewPrimitives(resolveAll(r.Graph, cfg.Primitives, r.Diags)...)
	if r.Table, err = classify.ClassifyAll(ctx, r.Graph, r.Shapes, r.Cycles, prims, r.Diags); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	external := make(map[graph.SchemaID]string, len(cfg.External))
	for ref, path := range cfg.External {
		if ids := resolveAll(r.Graph, []string{ref}, r.Diags); len(ids) == 1 {
			external[ids[0]] = path
		}
	}
	if r.Names, err = names.Resolve(r.Graph, r.Table, r.Diags, names.WithExternal(external)); err != nil {
		return err
	}
	logger.Debug("names resolved", "names", len(r.Names.IDs()))

	if r.Context, err = gen.Build(ctx, r.Graph, r.Table, r.Names); err != nil {
		return err
	}
	logger.Debug("compilation finished",
		"regions", r.Context.Len(),
		"errors", r.Diags.Count(diag.Error),
		"warnings", r.Diags.Count(diag.Warning))
	return nil
}

// resolveAll maps configured schema references to ids. References that
// match nothing are reported.
func resolveAll(g *graph.Graph, refs []string, diags *diag.List) []graph.SchemaID {
	ids := make([]graph.SchemaID, 0, len(refs))
	for _, ref := range refs {
		if id, ok := g.ResolveRef(ref); ok {
			ids = append(ids, id)
			continue
		}
		if n, ok := g.Resolve(ref); ok {
			ids = append(ids, n.ID)
			continue
		}
		diags.Errorf(diag.UnresolvedRef, ref, "configured schema %q is not in the corpus", ref)
	}
	return ids
}

// Validate runs v over the graph and adds its findings to the result.
func (r *Result) Validate(ctx context.Context, v validate.Validator) error {
	if r.Graph == nil {
		return gen.NewConfigError("Graph", nil, "compilation did not reach the graph phase")
	}
	findings, err := v.Validate(ctx, r.Graph)
	if err != nil {
		return err
	}
	r.Diags.Merge(findings)
	slogcontext.FromCtx(ctx).Debug("corpus validated", "findings", len(findings))
	return nil
}

// Lint runs the lint rules over the classified corpus.
func (r *Result) Lint(ctx context.Context, opts ...lint.Option) error {
	if r.Table == nil {
		return gen.NewConfigError("Table", nil, "compilation did not reach the classify phase")
	}
	return lint.Run(ctx, &lint.Input{Graph: r.Graph, Shapes: r.Shapes, Table: r.Table}, r.Diags, opts...)
}
