// Package python renders regions as typing.TypedDict classes, str enums
// and typing aliases.
package python

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/syssam/schemac/compiler/classify"
	"github.com/syssam/schemac/compiler/gen"
	"github.com/syssam/schemac/compiler/names"
)

// Emitter renders Python.
type Emitter struct{}

// New returns a Python emitter.
func New() *Emitter { return &Emitter{} }

// Language implements gen.Emitter.
func (*Emitter) Language() string { return "python" }

var (
	_ gen.Emitter  = (*Emitter)(nil)
	_ gen.Preamble = (*Emitter)(nil)
)

// Preamble implements gen.Preamble. Record bases declared in other files
// are imported at runtime since the class statement evaluates them. Every
// other type from another file is imported for type checkers only, which
// keeps mutually recursive modules importable.
func (*Emitter) Preamble(p *gen.RenderProfile, regions []*gen.Region) string {
	var b strings.Builder
	b.WriteString("from __future__ import annotations\n\n")
	var enums bool
	declared := make(map[string]bool, len(regions))
	for _, r := range regions {
		declared[r.Name] = true
		enums = enums || r.Kind == classify.Enum
	}
	if enums {
		b.WriteString("from enum import Enum\n")
	}
	var bases, imports []string
	for _, r := range regions {
		for i := range r.Bases {
			if base := &r.Bases[i]; isRecordBase(base) && base.Origin == names.Generated && !declared[base.Name] {
				declared[base.Name] = true
				bases = append(bases, base.Name)
			}
		}
	}
	for _, r := range regions {
		for _, ref := range r.Refs() {
			if !declared[ref.Name] {
				declared[ref.Name] = true
				imports = append(imports, ref.Name)
			}
		}
	}
	b.WriteString("from typing import ")
	if len(imports) > 0 {
		b.WriteString("TYPE_CHECKING, ")
	}
	b.WriteString("Any, Literal, NewType, NotRequired, Optional, TypedDict, Union\n\n")
	if len(bases) > 0 {
		slices.Sort(bases)
		for _, name := range bases {
			fmt.Fprintf(&b, "from .%s import %s\n", gen.FileStem(name), p.TypeName(name))
		}
		b.WriteString("\n")
	}
	if len(imports) > 0 {
		slices.Sort(imports)
		b.WriteString("if TYPE_CHECKING:\n")
		for _, name := range imports {
			fmt.Fprintf(&b, "    from .%s import %s\n", gen.FileStem(name), p.TypeName(name))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

// Emit implements gen.Emitter.
func (*Emitter) Emit(r *gen.Region, p *gen.RenderProfile) (string, error) {
	var b strings.Builder
	name := p.TypeName(r.Name)
	switch r.Kind {
	case classify.Record:
		record(&b, r, p, name)
	case classify.Enum:
		fmt.Fprintf(&b, "class %s(str, Enum):\n", name)
		docstring(&b, r.Description)
		for _, v := range r.Enum {
			fmt.Fprintf(&b, "    %s = %s\n", p.VariantName(v.Name), strconv.Quote(v.Value))
		}
		if len(r.Enum) == 0 {
			b.WriteString("    pass\n")
		}
	case classify.DiscriminatedUnion:
		members := make([]string, len(r.Variants))
		for i := range r.Variants {
			members[i] = typeExpr(&r.Variants[i].Type, p, true)
		}
		comment(&b, r.Description)
		switch len(members) {
		case 0:
			fmt.Fprintf(&b, "%s = Any\n", name)
		case 1:
			fmt.Fprintf(&b, "%s = %s\n", name, members[0])
		default:
			fmt.Fprintf(&b, "%s = Union[%s]\n", name, strings.Join(members, ", "))
		}
	case classify.Alias:
		comment(&b, r.Description)
		fmt.Fprintf(&b, "%s = %s\n", name, target(r, p))
	case classify.NewType:
		comment(&b, r.Description)
		fmt.Fprintf(&b, "%s = NewType(%q, %s)\n", name, name, target(r, p))
	default:
		return "", gen.NewUnsupportedTypeKindError("python", r.Name, r.Kind.String(), "not a generated kind")
	}
	return b.String(), nil
}

// record renders a TypedDict. The class syntax cannot declare keys that
// are not identifiers, so such records use the functional syntax with
// inherited keys spelled out.
func record(b *strings.Builder, r *gen.Region, p *gen.RenderProfile, name string) {
	functional := false
	for _, f := range append(slices.Clone(r.Inherited), r.Fields...) {
		if !gen.IsIdentifier(f.Name) || p.IsKeyword(f.Name) {
			functional = true
		}
	}
	if functional {
		comment(b, r.Description)
		fmt.Fprintf(b, "%s = TypedDict(%q, {\n", name, name)
		for _, f := range append(slices.Clone(r.Inherited), r.Fields...) {
			fmt.Fprintf(b, "    %s: %s,\n", strconv.Quote(f.Name), fieldType(f, p, true))
		}
		b.WriteString("})\n")
		return
	}

	var bases []string
	for i := range r.Bases {
		if base := &r.Bases[i]; isRecordBase(base) {
			bases = append(bases, p.TypeName(base.Name))
		}
	}
	if len(bases) == 0 {
		bases = []string{"TypedDict"}
	}
	fmt.Fprintf(b, "class %s(%s):\n", name, strings.Join(bases, ", "))
	docstring(b, r.Description)
	for _, f := range r.Fields {
		fmt.Fprintf(b, "    %s: %s\n", f.Name, fieldType(f, p, false))
	}
	if len(r.Fields) == 0 && r.Description == "" {
		b.WriteString("    pass\n")
	}
}

func isRecordBase(t *gen.TypeRef) bool {
	return t.Kind == classify.FieldRef && t.TargetKind == classify.Record
}

func fieldType(f gen.RegionField, p *gen.RenderProfile, quote bool) string {
	typ := typeExpr(&f.Type, p, quote)
	if f.Const != "" {
		typ = fmt.Sprintf("Literal[%s]", strconv.Quote(f.Const))
	}
	if !f.Required && strings.Contains(p.OptionalTemplate, "%s") {
		typ = fmt.Sprintf(p.OptionalTemplate, typ)
	}
	return typ
}

func target(r *gen.Region, p *gen.RenderProfile) string {
	if r.Target == nil {
		return p.Any()
	}
	return typeExpr(r.Target, p, true)
}

// typeExpr renders t. Generated names are quoted in expressions that are
// evaluated at import time.
func typeExpr(t *gen.TypeRef, p *gen.RenderProfile, quote bool) string {
	return p.TypeExpr(t, func(t *gen.TypeRef) string {
		if t.Origin == names.External && t.External != "" {
			return t.External
		}
		name := p.TypeName(t.Name)
		if quote && t.Origin == names.Generated {
			return strconv.Quote(name)
		}
		return name
	})
}

func docstring(b *strings.Builder, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	fmt.Fprintf(b, "    \"\"\"%s\"\"\"\n", strings.ReplaceAll(text, `"""`, `\"\"\"`))
	b.WriteString("\n")
}

func comment(b *strings.Builder, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	for _, l := range strings.Split(text, "\n") {
		b.WriteString(strings.TrimRight("# "+l, " ") + "\n")
	}
}
