// Package lint runs style rules over a classified corpus.
//
// Rules never change the compilation. They only add diagnostics, each
// carrying the name of the rule that produced it:
//
//	var diags diag.List
//	err := lint.Run(ctx, &lint.Input{Graph: g, Shapes: shapes, Table: table}, &diags,
//	    lint.WithRequireKind(true),
//	)
package lint

import (
	"context"
	"slices"

	"github.com/syssam/schemac/compiler/classify"
	"github.com/syssam/schemac/compiler/diag"
	"github.com/syssam/schemac/compiler/gen"
	"github.com/syssam/schemac/compiler/shape"
	"github.com/syssam/schemac/graph"
)

// Rule names.
const (
	UntaggedUnion = "UNTAGGED_UNION"
	AnyOfObjects  = "ANYOF_OBJECTS"
	MissingKind   = "MISSING_KIND"
)

// Input is the frozen output of the analysis phases.
type Input struct {
	Graph  *graph.Graph
	Shapes map[graph.SchemaID]shape.Shape
	Table  *classify.Table
}

type (
	// Rule checks one schema and reports its findings.
	Rule interface {
		Check(ctx context.Context, in *Input, n *graph.Node) []diag.Diagnostic
	}

	// RuleFunc is an adapter which allows the use of ordinary functions
	// as rules.
	RuleFunc func(context.Context, *Input, *graph.Node) []diag.Diagnostic

	// Policy is a named set of rules evaluated in order.
	Policy []NamedRule

	// NamedRule attaches a name to a rule. The name is stamped on every
	// diagnostic the rule reports.
	NamedRule struct {
		Name string
		Rule Rule
	}
)

// Check returns f(ctx, in, n).
func (f RuleFunc) Check(ctx context.Context, in *Input, n *graph.Node) []diag.Diagnostic {
	return f(ctx, in, n)
}

// Check evaluates every rule of the policy against every schema.
func (p Policy) Check(ctx context.Context, in *Input, diags *diag.List) error {
	for _, n := range in.Graph.Nodes() {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, r := range p {
			for _, d := range r.Rule.Check(ctx, in, n) {
				d.Rule = r.Name
				diags.Add(d)
			}
		}
	}
	return nil
}

type config struct {
	requireKind bool
	disabled    []string
}

// Option configures a lint run.
type Option func(*config) error

// WithRequireKind enables MISSING_KIND.
func WithRequireKind(require bool) Option {
	return func(c *config) error {
		c.requireKind = require
		return nil
	}
}

// WithDisabled turns rules off by name.
func WithDisabled(rules ...string) Option {
	return func(c *config) error {
		for _, r := range rules {
			if !slices.Contains(Rules(), r) {
				return gen.NewConfigError("Disabled", r, "unknown lint rule")
			}
		}
		c.disabled = append(c.disabled, rules...)
		return nil
	}
}

// Rules returns the names of the built-in rules.
func Rules() []string {
	return []string{AnyOfObjects, MissingKind, UntaggedUnion}
}

// Default returns the built-in policy for the options.
func Default(opts ...Option) (Policy, error) {
	c := &config{}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	p := Policy{
		{Name: UntaggedUnion, Rule: RuleFunc(untaggedUnion)},
		{Name: AnyOfObjects, Rule: RuleFunc(anyOfObjects)},
	}
	if c.requireKind {
		p = append(p, NamedRule{Name: MissingKind, Rule: RuleFunc(missingKind)})
	}
	return slices.DeleteFunc(p, func(r NamedRule) bool {
		return slices.Contains(c.disabled, r.Name)
	}), nil
}

// Run evaluates the built-in policy.
func Run(ctx context.Context, in *Input, diags *diag.List, opts ...Option) error {
	p, err := Default(opts...)
	if err != nil {
		return err
	}
	return p.Check(ctx, in, diags)
}
