// Package graphql renders regions as GraphQL SDL type definitions.
//
// Records become object types, string enums become enums and unions of
// records become unions. Aliases and newtypes have no structural
// counterpart in SDL and are declared as custom scalars.
package graphql

import (
	"fmt"
	"slices"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/syssam/schemac/compiler/classify"
	"github.com/syssam/schemac/compiler/gen"
	"github.com/syssam/schemac/compiler/names"
)

// Emitter renders GraphQL SDL.
type Emitter struct{}

// New returns a GraphQL emitter.
func New() *Emitter { return &Emitter{} }

// Language implements gen.Emitter.
func (*Emitter) Language() string { return "graphql" }

var (
	_ gen.Emitter = (*Emitter)(nil)
	_ gen.Bundler = (*Emitter)(nil)
)

// Bundle implements gen.Bundler. It declares the custom scalars the
// regions use and checks that the document parses.
func (*Emitter) Bundle(p *gen.RenderProfile, regions []*gen.Region, decls []string) (string, error) {
	var b strings.Builder
	for _, s := range scalars(p, regions) {
		fmt.Fprintf(&b, "scalar %s\n", s)
	}
	for _, d := range decls {
		b.WriteString("\n")
		b.WriteString(d)
	}
	text := b.String()
	if _, err := parser.ParseSchema(&ast.Source{Name: "schema.graphql", Input: text}); err != nil {
		return "", err
	}
	return text, nil
}

// scalars returns the custom scalar names the regions need: the JSON
// scalar and every referenced type that is not generated.
func scalars(p *gen.RenderProfile, regions []*gen.Region) []string {
	set := map[string]bool{p.Any(): true}
	var visit func(t *gen.TypeRef)
	visit = func(t *gen.TypeRef) {
		for ; t != nil; t = t.Elem {
			if t.Kind == classify.FieldRef && t.Origin != names.Generated {
				set[p.TypeName(t.Name)] = true
			}
		}
	}
	for _, r := range regions {
		for i := range r.Inherited {
			visit(&r.Inherited[i].Type)
		}
		for i := range r.Fields {
			visit(&r.Fields[i].Type)
		}
		for i := range r.Variants {
			visit(&r.Variants[i].Type)
		}
	}
	builtin := []string{"String", "Int", "Float", "Boolean", "ID"}
	var out []string
	for s := range set {
		if !slices.Contains(builtin, s) {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return out
}

// Emit implements gen.Emitter.
func (*Emitter) Emit(r *gen.Region, p *gen.RenderProfile) (string, error) {
	var b strings.Builder
	description(&b, "", r.Description)
	name := p.TypeName(r.Name)
	switch r.Kind {
	case classify.Record:
		fmt.Fprintf(&b, "type %s {\n", name)
		fields := append(slices.Clone(r.Inherited), r.Fields...)
		for _, f := range fields {
			description(&b, "  ", f.Description)
			typ := typeExpr(&f.Type, p)
			if f.Required && !f.Type.Nullable {
				typ += "!"
			}
			fmt.Fprintf(&b, "  %s: %s\n", p.FieldName(f.Name), typ)
		}
		if len(fields) == 0 {
			b.WriteString("  _empty: Boolean\n")
		}
		b.WriteString("}\n")
	case classify.Enum:
		fmt.Fprintf(&b, "enum %s {\n", name)
		for _, v := range r.Enum {
			fmt.Fprintf(&b, "  %s\n", p.VariantName(v.Name))
		}
		b.WriteString("}\n")
	case classify.DiscriminatedUnion:
		return union(&b, r, p, name)
	case classify.Alias, classify.NewType:
		fmt.Fprintf(&b, "scalar %s\n", name)
	default:
		return "", gen.NewUnsupportedTypeKindError("graphql", r.Name, r.Kind.String(), "not a generated kind")
	}
	return b.String(), nil
}

// union renders a union of object types. Inline object variants get a
// wrapper type holding their JSON payload.
func union(b *strings.Builder, r *gen.Region, p *gen.RenderProfile, name string) (string, error) {
	var members, wrappers []string
	for _, v := range r.Variants {
		switch {
		case v.Type.Kind == classify.FieldRef && v.Type.Origin == names.Generated && v.Type.TargetKind == classify.Record:
			members = append(members, p.TypeName(v.Type.Name))
		case v.Type.Kind == classify.FieldAny:
			wrapper := name + p.TypeName(v.Name)
			members = append(members, wrapper)
			wrappers = append(wrappers, fmt.Sprintf("type %s {\n  %s: %s\n}\n", wrapper, p.FieldName("value"), p.Any()))
		default:
			return "", gen.NewUnsupportedTypeKindError("graphql", r.Name, "union",
				"member "+v.Name+" is not an object type")
		}
	}
	fmt.Fprintf(b, "union %s = %s\n", name, strings.Join(members, " | "))
	for _, w := range wrappers {
		b.WriteString("\n")
		b.WriteString(w)
	}
	return b.String(), nil
}

func typeExpr(t *gen.TypeRef, p *gen.RenderProfile) string {
	return p.TypeExpr(t, func(t *gen.TypeRef) string { return p.TypeName(t.Name) })
}

func description(b *strings.Builder, indent, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	fmt.Fprintf(b, "%s\"\"\"%s\"\"\"\n", indent, strings.ReplaceAll(text, `"""`, `\"""`))
}
