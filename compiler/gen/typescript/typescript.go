// Package typescript renders regions as TypeScript interfaces and type
// aliases.
package typescript

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/syssam/schemac/compiler/classify"
	"github.com/syssam/schemac/compiler/gen"
	"github.com/syssam/schemac/compiler/names"
)

// Emitter renders TypeScript.
type Emitter struct{}

// New returns a TypeScript emitter.
func New() *Emitter { return &Emitter{} }

// Language implements gen.Emitter.
func (*Emitter) Language() string { return "typescript" }

var (
	_ gen.Emitter  = (*Emitter)(nil)
	_ gen.Preamble = (*Emitter)(nil)
)

// Preamble implements gen.Preamble. It imports the generated types that
// the regions reference but do not declare.
func (*Emitter) Preamble(p *gen.RenderProfile, regions []*gen.Region) string {
	declared := make(map[string]bool, len(regions))
	for _, r := range regions {
		declared[r.Name] = true
	}
	var imports []string
	for _, r := range regions {
		for _, ref := range r.Refs() {
			if !declared[ref.Name] {
				declared[ref.Name] = true
				imports = append(imports, ref.Name)
			}
		}
	}
	if len(imports) == 0 {
		return ""
	}
	slices.Sort(imports)
	var b strings.Builder
	for _, name := range imports {
		fmt.Fprintf(&b, "import type { %s } from \"./%s\";\n", p.TypeName(name), gen.FileStem(name))
	}
	b.WriteString("\n")
	return b.String()
}

// Emit implements gen.Emitter.
func (*Emitter) Emit(r *gen.Region, p *gen.RenderProfile) (string, error) {
	var b strings.Builder
	doc(&b, "", r.Description)
	name := p.TypeName(r.Name)
	switch r.Kind {
	case classify.Record:
		record(&b, r, p, name)
	case classify.Enum:
		members := make([]string, len(r.Enum))
		for i, v := range r.Enum {
			members[i] = strconv.Quote(v.Value)
		}
		fmt.Fprintf(&b, "export type %s = %s;\n", name, union(members, "never"))
	case classify.DiscriminatedUnion:
		members := make([]string, len(r.Variants))
		for i, v := range r.Variants {
			members[i] = variant(r, p, v)
		}
		fmt.Fprintf(&b, "export type %s = %s;\n", name, union(members, "never"))
	case classify.Alias:
		fmt.Fprintf(&b, "export type %s = %s;\n", name, target(r, p))
	case classify.NewType:
		fmt.Fprintf(&b, "export type %s = %s & { readonly __brand: %q };\n", name, target(r, p), name)
	default:
		return "", gen.NewUnsupportedTypeKindError("typescript", r.Name, r.Kind.String(), "not a generated kind")
	}
	return b.String(), nil
}

func record(b *strings.Builder, r *gen.Region, p *gen.RenderProfile, name string) {
	var bases []string
	for i := range r.Bases {
		if base := &r.Bases[i]; base.Kind == classify.FieldRef && base.TargetKind == classify.Record {
			bases = append(bases, typeExpr(base, p))
		}
	}
	fmt.Fprintf(b, "export interface %s ", name)
	if len(bases) > 0 {
		fmt.Fprintf(b, "extends %s ", strings.Join(bases, ", "))
	}
	b.WriteString("{\n")
	for _, f := range r.Fields {
		doc(b, "  ", f.Description)
		marker := ""
		if !f.Required {
			marker = "?"
		}
		typ := typeExpr(&f.Type, p)
		if f.Const != "" {
			typ = strconv.Quote(f.Const)
		}
		fmt.Fprintf(b, "  %s%s: %s;\n", key(p.FieldCase.Apply(f.Name)), marker, typ)
	}
	if r.Extra != nil {
		// An index signature must admit every declared property.
		extra := "unknown"
		if len(r.Fields) == 0 && len(bases) == 0 {
			extra = typeExpr(r.Extra, p)
		}
		fmt.Fprintf(b, "  [key: string]: %s;\n", extra)
	}
	b.WriteString("}\n")
}

// variant renders one union member. Tagged members are intersected with
// their tag literal so the union narrows on the discriminator.
func variant(r *gen.Region, p *gen.RenderProfile, v gen.RegionVariant) string {
	typ := typeExpr(&v.Type, p)
	if r.Ambiguous || v.Tag == "" || r.Discriminator == "" {
		return typ
	}
	tag := fmt.Sprintf("{ %s: %q }", key(r.Discriminator), v.Tag)
	if v.Type.Kind != classify.FieldRef {
		return tag
	}
	return fmt.Sprintf("(%s & %s)", typ, tag)
}

func target(r *gen.Region, p *gen.RenderProfile) string {
	if r.Target == nil {
		return p.Any()
	}
	return typeExpr(r.Target, p)
}

func typeExpr(t *gen.TypeRef, p *gen.RenderProfile) string {
	return p.TypeExpr(t, func(t *gen.TypeRef) string {
		if t.Origin == names.External && t.External != "" {
			return t.External
		}
		return p.TypeName(t.Name)
	})
}

func union(members []string, empty string) string {
	if len(members) == 0 {
		return empty
	}
	return strings.Join(members, " | ")
}

// key quotes property names that are not identifiers.
func key(name string) string {
	if gen.IsIdentifier(name) {
		return name
	}
	return strconv.Quote(name)
}

func doc(b *strings.Builder, indent, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	lines := strings.Split(text, "\n")
	if len(lines) == 1 {
		fmt.Fprintf(b, "%s/** %s */\n", indent, text)
		return
	}
	fmt.Fprintf(b, "%s/**\n", indent)
	for _, l := range lines {
		b.WriteString(strings.TrimRight(indent+" * "+l, " ") + "\n")
	}
	fmt.Fprintf(b, "%s */\n", indent)
}
