// Package golang renders regions as Go type declarations with encoding/json
// struct tags.
//
// Records become structs, string enums become a string type with one
// constant per member, and discriminated unions become a struct holding one
// pointer per variant with hand-written MarshalJSON and UnmarshalJSON
// methods. Unions without a discriminator are refused.
package golang

import (
	"bytes"
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/schemac/compiler/classify"
	"github.com/syssam/schemac/compiler/gen"
	"github.com/syssam/schemac/compiler/names"
)

// Emitter renders Go.
type Emitter struct {
	pkg string
}

// New returns a Go emitter writing package "types".
func New() *Emitter {
	return &Emitter{pkg: "types"}
}

// WithPackage sets the package name of bundled files.
func (e *Emitter) WithPackage(name string) *Emitter {
	if name != "" {
		e.pkg = name
	}
	return e
}

// Language implements gen.Emitter.
func (*Emitter) Language() string { return "go" }

// Emit implements gen.Emitter. The declarations are gofmt-formatted and
// qualify imported types by their package name.
func (e *Emitter) Emit(r *gen.Region, p *gen.RenderProfile) (string, error) {
	codes, err := decl(r, p)
	if err != nil {
		return "", err
	}
	s := jen.Null()
	for i, c := range codes {
		if i > 0 {
			s.Line().Line()
		}
		s.Add(c)
	}
	var buf bytes.Buffer
	if err := s.Render(&buf); err != nil {
		return "", gen.NewGenerationError("emit", r.Path, "format go source", err)
	}
	return buf.String(), nil
}

// Bundle implements gen.Bundler. Go files need a package clause and an
// import block covering every declaration, so the regions are rendered
// again into one jennifer file.
func (e *Emitter) Bundle(p *gen.RenderProfile, regions []*gen.Region, _ []string) (string, error) {
	f := jen.NewFile(e.pkg)
	for _, r := range regions {
		codes, err := decl(r, p)
		if err != nil {
			return "", err
		}
		for _, c := range codes {
			f.Add(c)
			f.Line()
		}
	}
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return "", gen.NewGenerationError("bundle", e.pkg, "format go source", err)
	}
	return buf.String(), nil
}

var (
	_ gen.Emitter = (*Emitter)(nil)
	_ gen.Bundler = (*Emitter)(nil)
)

func decl(r *gen.Region, p *gen.RenderProfile) ([]jen.Code, error) {
	name := p.TypeName(r.Name)
	var codes []jen.Code
	switch r.Kind {
	case classify.Record:
		codes = []jen.Code{record(r, p, name)}
	case classify.Enum:
		codes = enum(r, p, name)
	case classify.DiscriminatedUnion:
		u, err := union(r, p, name)
		if err != nil {
			return nil, err
		}
		codes = u
	case classify.Alias:
		codes = []jen.Code{jen.Type().Id(name).Op("=").Add(target(r, p))}
	case classify.NewType:
		codes = []jen.Code{jen.Type().Id(name).Add(target(r, p))}
	default:
		return nil, gen.NewUnsupportedTypeKindError("go", r.Name, r.Kind.String(), "not a generated kind")
	}
	if r.Description != "" {
		codes[0] = jen.Add(doc(r.Description), jen.Line(), codes[0])
	}
	return codes, nil
}

func doc(text string) *jen.Statement {
	return jen.Comment(strings.TrimSpace(text))
}

func target(r *gen.Region, p *gen.RenderProfile) *jen.Statement {
	if r.Target == nil {
		return qual(p.Any())
	}
	s, _ := typeOf(r.Target, p)
	return s
}

func record(r *gen.Region, p *gen.RenderProfile, name string) *jen.Statement {
	return jen.Type().Id(name).StructFunc(func(g *jen.Group) {
		for i := range r.Bases {
			b := &r.Bases[i]
			if b.Kind == classify.FieldRef && b.TargetKind == classify.Record {
				s, _ := typeOf(b, p)
				g.Add(s)
			}
		}
		for _, f := range r.Fields {
			s, nillable := typeOf(&f.Type, p)
			tag := f.Name
			if !f.Required {
				if !nillable {
					s = jen.Op("*").Add(s)
				}
				tag += ",omitempty"
			}
			if f.Description != "" {
				g.Add(doc(f.Description))
			}
			g.Id(p.FieldName(f.Name)).Add(s).Tag(map[string]string{"json": tag})
		}
	})
}

func enum(r *gen.Region, p *gen.RenderProfile, name string) []jen.Code {
	consts := make([]string, len(r.Enum))
	for i, v := range r.Enum {
		consts[i] = name + p.VariantName(v.Name)
	}
	codes := []jen.Code{jen.Type().Id(name).String()}
	if len(consts) == 0 {
		return codes
	}
	codes = append(codes,
		jen.Const().DefsFunc(func(g *jen.Group) {
			for i, v := range r.Enum {
				g.Id(consts[i]).Id(name).Op("=").Lit(v.Value)
			}
		}),
		jen.Commentf("Valid reports whether v is a known %s.", name).Line().
			Func().Params(jen.Id("v").Id(name)).Id("Valid").Params().Bool().Block(
			jen.Switch(jen.Id("v")).Block(
				jen.CaseFunc(func(g *jen.Group) {
					for _, c := range consts {
						g.Id(c)
					}
				}).Block(jen.Return(jen.True())),
			),
			jen.Return(jen.False()),
		),
	)
	return codes
}

func union(r *gen.Region, p *gen.RenderProfile, name string) ([]jen.Code, error) {
	if r.Ambiguous || r.Discriminator == "" {
		return nil, gen.NewUnsupportedTypeKindError("go", r.Name, "untagged union", "no discriminator")
	}
	type variant struct {
		field string
		elem  *jen.Statement
		tag   string
	}
	vs := make([]variant, len(r.Variants))
	for i, v := range r.Variants {
		if v.Tag == "" {
			return nil, gen.NewUnsupportedTypeKindError("go", r.Name, "untagged union",
				"variant "+v.Name+" has no "+r.Discriminator+" literal")
		}
		vs[i] = variant{field: p.VariantName(v.Name), elem: elemOf(&v.Type, p), tag: v.Tag}
	}

	typ := jen.Type().Id(name).StructFunc(func(g *jen.Group) {
		for _, v := range vs {
			g.Id(v.field).Op("*").Add(v.elem.Clone())
		}
	})
	marshal := jen.Commentf("MarshalJSON encodes the variant that is set.").Line().
		Func().Params(jen.Id("u").Id(name)).Id("MarshalJSON").Params().Params(jen.Index().Byte(), jen.Error()).Block(
		jen.Switch().BlockFunc(func(g *jen.Group) {
			for _, v := range vs {
				g.Case(jen.Id("u").Dot(v.field).Op("!=").Nil()).Block(
					jen.Return(jen.Qual("encoding/json", "Marshal").Call(jen.Id("u").Dot(v.field))),
				)
			}
		}),
		jen.Return(jen.Index().Byte().Call(jen.Lit("null")), jen.Nil()),
	)
	unmarshal := jen.Commentf("UnmarshalJSON decodes the variant named by the %q property.", r.Discriminator).Line().
		Func().Params(jen.Id("u").Op("*").Id(name)).Id("UnmarshalJSON").Params(jen.Id("data").Index().Byte()).Error().Block(
		jen.Var().Id("head").Struct(
			jen.Id("Tag").String().Tag(map[string]string{"json": r.Discriminator}),
		),
		jen.If(
			jen.Err().Op(":=").Qual("encoding/json", "Unmarshal").Call(jen.Id("data"), jen.Op("&").Id("head")),
			jen.Err().Op("!=").Nil(),
		).Block(jen.Return(jen.Err())),
		jen.Switch(jen.Id("head").Dot("Tag")).BlockFunc(func(g *jen.Group) {
			for _, v := range vs {
				g.Case(jen.Lit(v.tag)).Block(
					jen.Id("u").Dot(v.field).Op("=").New(v.elem.Clone()),
					jen.Return(jen.Qual("encoding/json", "Unmarshal").Call(jen.Id("data"), jen.Id("u").Dot(v.field))),
				)
			}
		}),
		jen.Return(jen.Qual("fmt", "Errorf").Call(
			jen.Lit(name+": unknown "+r.Discriminator+" %q"), jen.Id("head").Dot("Tag"),
		)),
	)
	return []jen.Code{typ, marshal, unmarshal}, nil
}

// typeOf returns the Go type of t and whether its zero value is nil.
func typeOf(t *gen.TypeRef, p *gen.RenderProfile) (*jen.Statement, bool) {
	switch t.Kind {
	case classify.FieldRef:
		s := refType(t, p)
		if t.Strategy != classify.Direct || t.Nullable {
			return jen.Op("*").Add(s), true
		}
		return s, false
	case classify.FieldScalar:
		s := qual(p.Scalar(t.Scalar, t.Format))
		if t.Nullable {
			return jen.Op("*").Add(s), true
		}
		return s, false
	case classify.FieldArray:
		elem, _ := typeOf(t.Elem, p)
		return jen.Index().Add(elem), true
	case classify.FieldMap:
		elem, _ := typeOf(t.Elem, p)
		return jen.Map(jen.String()).Add(elem), true
	}
	// json.RawMessage and interface types are nillable.
	return qual(p.Any()), true
}

// elemOf returns the type a union variant points to.
func elemOf(t *gen.TypeRef, p *gen.RenderProfile) *jen.Statement {
	if t.Kind == classify.FieldRef {
		return refType(t, p)
	}
	direct := *t
	direct.Nullable = false
	s, _ := typeOf(&direct, p)
	return s
}

func refType(t *gen.TypeRef, p *gen.RenderProfile) *jen.Statement {
	if t.Origin == names.External && t.External != "" {
		return qual(t.External)
	}
	return jen.Id(p.TypeName(t.Name))
}

// qual splits "path/to/pkg.Type" into an imported identifier. Names
// without a dot are predeclared or local.
func qual(s string) *jen.Statement {
	if i := strings.LastIndex(s, "."); i > 0 {
		return jen.Qual(s[:i], s[i+1:])
	}
	return jen.Id(s)
}
