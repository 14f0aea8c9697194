// Package rust renders regions as Rust types deriving serde's Serialize and
// Deserialize.
package rust

import (
	"fmt"
	"strings"

	"github.com/syssam/schemac/compiler/casing"
	"github.com/syssam/schemac/compiler/classify"
	"github.com/syssam/schemac/compiler/gen"
	"github.com/syssam/schemac/compiler/names"
)

const (
	derive     = "#[derive(Debug, Clone, PartialEq, Serialize, Deserialize)]"
	deriveEnum = "#[derive(Debug, Clone, Copy, PartialEq, Eq, Hash, Serialize, Deserialize)]"
)

// renameAll maps wire casings to serde rename_all rules.
var renameAll = map[string]string{
	casing.CamelCase:  "camelCase",
	casing.PascalCase: "PascalCase",
	casing.SnakeCase:  "snake_case",
	casing.KebabCase:  "kebab-case",
}

// Emitter renders Rust.
type Emitter struct{}

// New returns a Rust emitter.
func New() *Emitter { return &Emitter{} }

// Language implements gen.Emitter.
func (*Emitter) Language() string { return "rust" }

// Preamble implements gen.Preamble.
func (*Emitter) Preamble(*gen.RenderProfile, []*gen.Region) string {
	return "use serde::{Deserialize, Serialize};\n\n"
}

var (
	_ gen.Emitter  = (*Emitter)(nil)
	_ gen.Preamble = (*Emitter)(nil)
)

// Emit implements gen.Emitter.
func (*Emitter) Emit(r *gen.Region, p *gen.RenderProfile) (string, error) {
	w := &writer{p: p}
	w.doc("", r.Description)
	name := p.TypeName(r.Name)
	switch r.Kind {
	case classify.Record:
		w.record(r, name)
	case classify.Enum:
		w.enum(r, name)
	case classify.DiscriminatedUnion:
		w.union(r, name)
	case classify.Alias:
		w.linef("pub type %s = %s;", name, w.target(r))
	case classify.NewType:
		w.line(derive)
		w.line("#[serde(transparent)]")
		w.linef("pub struct %s(pub %s);", name, w.target(r))
	default:
		return "", gen.NewUnsupportedTypeKindError("rust", r.Name, r.Kind.String(), "not a generated kind")
	}
	return w.String(), nil
}

type writer struct {
	strings.Builder
	p *gen.RenderProfile
}

func (w *writer) line(s string) {
	w.WriteString(s)
	w.WriteByte('\n')
}

func (w *writer) linef(format string, args ...any) {
	fmt.Fprintf(w, format, args...)
	w.WriteByte('\n')
}

func (w *writer) doc(indent, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	for _, l := range strings.Split(text, "\n") {
		w.line(strings.TrimRight(indent+"/// "+l, " "))
	}
}

func (w *writer) typ(t *gen.TypeRef) string {
	return w.p.TypeExpr(t, func(t *gen.TypeRef) string {
		if t.Origin == names.External && t.External != "" {
			return t.External
		}
		return w.p.TypeName(t.Name)
	})
}

func (w *writer) target(r *gen.Region) string {
	if r.Target == nil {
		return w.p.Any()
	}
	return w.typ(r.Target)
}

func (w *writer) record(r *gen.Region, name string) {
	rule, hasRule := renameAll[r.Hints.Casing]
	w.line(derive)
	if hasRule {
		w.linef("#[serde(rename_all = %q)]", rule)
	}
	w.linef("pub struct %s {", name)
	for i := range r.Bases {
		b := &r.Bases[i]
		if b.Kind != classify.FieldRef || b.TargetKind != classify.Record {
			continue
		}
		w.line("    #[serde(flatten)]")
		w.linef("    pub %s: %s,", w.p.FieldName(b.Name), w.typ(b))
	}
	for _, f := range r.Fields {
		ident := w.p.FieldName(f.Name)
		serdeName := strings.TrimPrefix(ident, "r#")
		if hasRule {
			serdeName = casing.Convert(serdeName, r.Hints.Casing)
		}
		var attrs []string
		if serdeName != f.Name {
			attrs = append(attrs, fmt.Sprintf("rename = %q", f.Name))
		}
		typ := w.typ(&f.Type)
		if !f.Required {
			if !f.Type.Nullable {
				typ = w.p.WrapOptional(typ)
			}
			attrs = append(attrs, "default")
			if r.Hints.SkipNone {
				attrs = append(attrs, `skip_serializing_if = "Option::is_none"`)
			}
		}
		w.doc("    ", f.Description)
		if len(attrs) > 0 {
			w.linef("    #[serde(%s)]", strings.Join(attrs, ", "))
		}
		w.linef("    pub %s: %s,", ident, typ)
	}
	if r.Extra != nil {
		w.line("    #[serde(flatten)]")
		w.linef("    pub extra: %s,", w.p.WrapMap(w.typ(r.Extra)))
	}
	w.line("}")
}

func (w *writer) enum(r *gen.Region, name string) {
	w.line(deriveEnum)
	w.linef("pub enum %s {", name)
	for _, v := range r.Enum {
		w.linef("    #[serde(rename = %q)]", v.Value)
		w.linef("    %s,", w.p.VariantName(v.Name))
	}
	w.line("}")
}

// union renders an internally tagged enum, or an untagged one when the
// union has no discriminator.
func (w *writer) union(r *gen.Region, name string) {
	tagged := !r.Ambiguous && r.Discriminator != ""
	for _, v := range r.Variants {
		tagged = tagged && v.Tag != ""
	}
	w.line(derive)
	if tagged {
		w.linef("#[serde(tag = %q)]", r.Discriminator)
	} else {
		w.line("#[serde(untagged)]")
	}
	w.linef("pub enum %s {", name)
	for _, v := range r.Variants {
		if tagged {
			w.linef("    #[serde(rename = %q)]", v.Tag)
		}
		w.linef("    %s(%s),", w.p.VariantName(v.Name), w.typ(&v.Type))
	}
	w.line("}")
}
