// Package classify derives the semantic category of every schema from its
// shape, the cycle decisions of its outgoing edges and the primitive set.
package classify

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/syssam/schemac/compiler/casing"
	"github.com/syssam/schemac/compiler/diag"
	"github.com/syssam/schemac/compiler/shape"
	"github.com/syssam/schemac/graph"
)

// TypeKind is the category the emitted type must realize.
type TypeKind uint8

// Type kinds.
const (
	Unsupported TypeKind = iota
	Record
	Enum
	DiscriminatedUnion
	NewType
	Alias
	Primitive
)

var typeKindNames = [...]string{
	"unsupported", "record", "enum", "discriminated-union", "newtype", "alias", "primitive",
}

func (k TypeKind) String() string {
	if int(k) < len(typeKindNames) {
		return typeKindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Generated reports whether types of this kind are emitted.
func (k TypeKind) Generated() bool {
	return k != Unsupported && k != Primitive
}

// EmitStrategy is how a recursive reference is realized.
type EmitStrategy uint8

// Emit strategies.
const (
	// Direct embeds the referenced type by value.
	Direct EmitStrategy = iota
	// Boxed goes through a uniquely owned heap indirection.
	Boxed
	// Shared goes through a shared-ownership indirection. It is chosen
	// when the cycle spans more than two schemas.
	Shared
)

var strategyNames = [...]string{"direct", "boxed", "shared"}

func (s EmitStrategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return "strategy(" + strconv.Itoa(int(s)) + ")"
}

// StrategyOf returns the strategy for references inside grp.
func StrategyOf(grp *graph.CycleGroup) EmitStrategy {
	switch {
	case grp == nil:
		return Direct
	case grp.Size() > 2:
		return Shared
	default:
		return Boxed
	}
}

// FieldKind is the kind of a resolved field type.
type FieldKind uint8

// Field kinds.
const (
	FieldUnsupported FieldKind = iota
	FieldRef
	FieldScalar
	FieldArray
	FieldMap
	// FieldAny holds arbitrary JSON: untyped and inline object schemas.
	FieldAny
)

var fieldKindNames = [...]string{"unsupported", "ref", "scalar", "array", "map", "any"}

func (k FieldKind) String() string {
	if int(k) < len(fieldKindNames) {
		return fieldKindNames[k]
	}
	return "field(" + strconv.Itoa(int(k)) + ")"
}

// FieldType is a type with every reference resolved to a SchemaID.
type FieldType struct {
	Kind   FieldKind
	Ref    graph.SchemaID `json:",omitempty"`
	Scalar shape.Scalar   `json:",omitempty"`
	Format string         `json:",omitempty"`
	Elem   *FieldType     `json:",omitempty"`
	// Nullable is set when the schema admits null.
	Nullable bool `json:",omitempty"`
	// Strategy is Boxed or Shared when the reference crosses an indirect edge.
	Strategy EmitStrategy `json:",omitempty"`
	// Unresolved holds the reference text of a dangling reference.
	Unresolved string `json:",omitempty"`
}

// Indirect reports whether t or any of its element types is indirect.
func (t *FieldType) Indirect() bool {
	for ; t != nil; t = t.Elem {
		if t.Strategy != Direct {
			return true
		}
	}
	return false
}

// Refs returns the schema ids t references.
func (t *FieldType) Refs() []graph.SchemaID {
	var ids []graph.SchemaID
	for ; t != nil; t = t.Elem {
		if t.Kind == FieldRef {
			ids = append(ids, t.Ref)
		}
	}
	return ids
}

// Field is one Record field.
type Field struct {
	Name        string
	Type        FieldType
	Required    bool
	Description string `json:",omitempty"`
	Const       string `json:",omitempty"`
}

// Variant is one union branch.
type Variant struct {
	Name string
	Tag  string `json:",omitempty"`
	Type FieldType
}

// EnumValue is one string enum member.
type EnumValue struct {
	// Name is the PascalCase identifier derived from Value.
	Name  string
	Value string
}

// Classification is the classifier output for one schema.
type Classification struct {
	ID   graph.SchemaID
	Kind TypeKind
	// Strategy is Direct unless the schema is part of a cycle group.
	Strategy EmitStrategy
	Shape    shape.Kind
	// Ambiguous marks a union without a usable discriminator. Emitters
	// decide whether they can render it.
	Ambiguous     bool        `json:",omitempty"`
	Discriminator string      `json:",omitempty"`
	Variants      []Variant   `json:",omitempty"`
	Fields        []Field     `json:",omitempty"`
	Bases         []FieldType `json:",omitempty"`
	Extra         *FieldType  `json:",omitempty"`
	Enum          []EnumValue `json:",omitempty"`
	// Target is the wrapped type of an Alias or NewType.
	Target *FieldType `json:",omitempty"`
	Reason string     `json:",omitempty"`
}

// Resolver maps a normalized reference to a schema id.
type Resolver interface {
	ResolveRef(ref string) (graph.SchemaID, bool)
}

// Input is everything the classification of one schema depends on.
type Input struct {
	ID    graph.SchemaID
	Shape shape.Shape
	// Outgoing holds the decisions of the schema's outgoing edges.
	Outgoing []graph.Decision
	// Group is the cycle group of the schema, if any.
	Group     *graph.CycleGroup
	Primitive bool
}

// Classify classifies one schema. Problems local to the schema are
// reported to diags; classification never fails.
func Classify(in Input, r Resolver, diags *diag.List) Classification {
	c := Classification{ID: in.ID, Shape: in.Shape.Kind, Strategy: StrategyOf(in.Group)}
	if in.Primitive {
		c.Kind = Primitive
		if !scalarShape(in.Shape) {
			diags.Warnf(diag.ShapeMismatchPrimitive, string(in.ID), "primitive has %s shape", in.Shape.Kind)
		}
		return c
	}
	cl := &classifier{in: in, r: r, group: c.Strategy}
	s := in.Shape
	switch s.Kind {
	case shape.Record:
		c.Kind = Record
		for _, p := range s.Properties {
			c.Fields = append(c.Fields, Field{
				Name:        p.Name,
				Type:        cl.fieldType(p.Type, fieldEdge(p.Name)),
				Required:    p.Required,
				Description: p.Description,
				Const:       p.Const,
			})
		}
		for _, b := range s.Bases {
			c.Bases = append(c.Bases, cl.fieldType(b, baseEdge))
		}
		if s.Extra != nil {
			t := cl.fieldType(*s.Extra, extraEdge)
			c.Extra = &t
		}
	case shape.StringEnum:
		c.Kind = Enum
		c.Enum = enumValues(in.ID, s.Enum, diags)
	case shape.DiscriminatedUnion, shape.UntaggedUnion:
		c.Kind = DiscriminatedUnion
		c.Discriminator = s.Discriminator
		c.Ambiguous = s.Kind == shape.UntaggedUnion
		for i, v := range s.Variants {
			c.Variants = append(c.Variants, Variant{
				Name: v.Name,
				Tag:  v.Tag,
				Type: cl.fieldType(v.Type, variantEdge(i)),
			})
		}
		if c.Ambiguous {
			c.Reason = fmt.Sprintf("%s without discriminator", s.Reason)
			diags.Warnf(diag.AmbiguousUnion, string(in.ID), "%s union of %d branches has no discriminator", s.Reason, len(s.Variants))
		}
	case shape.NewType:
		c.Kind = NewType
		t := cl.fieldType(*s.Target, anyEdge)
		c.Target = &t
	case shape.Alias, shape.ArrayOf:
		c.Kind = Alias
		t := cl.fieldType(*s.Target, rootEdge)
		if s.Kind == shape.ArrayOf {
			elem := t
			t = FieldType{Kind: FieldArray, Elem: &elem}
		}
		c.Target = &t
	case shape.MapOf:
		c.Kind = Alias
		t := cl.fieldType(*s.Extra, rootEdge)
		c.Target = &t
	default:
		c.Kind = Unsupported
		c.Reason = s.Reason
		diags.Warnf(diag.UnsupportedShape, string(in.ID), "unsupported shape: %s", s.Reason)
	}
	return c
}

func scalarShape(s shape.Shape) bool {
	switch s.Kind {
	case shape.Alias, shape.NewType:
		return s.Target.Kind == shape.TypeScalar
	case shape.StringEnum:
		return true
	}
	return false
}

// edgeMatch selects the outgoing edges a type position corresponds to.
type edgeMatch func(e *graph.Edge) bool

func fieldEdge(name string) edgeMatch {
	return func(e *graph.Edge) bool { return e.Field == name }
}

func variantEdge(i int) edgeMatch {
	oneOf, anyOf := "<oneOf:"+strconv.Itoa(i)+">", "<anyOf:"+strconv.Itoa(i)+">"
	return func(e *graph.Edge) bool {
		return e.Field == "" && (strings.HasPrefix(e.Path, oneOf) || strings.HasPrefix(e.Path, anyOf))
	}
}

func baseEdge(e *graph.Edge) bool {
	return e.Field == "" && (e.Kind == graph.Ref || e.Kind == graph.AllOf)
}

func extraEdge(e *graph.Edge) bool {
	return e.Field == "" && e.Kind == graph.AdditionalProperties
}

func rootEdge(e *graph.Edge) bool { return e.Field == "" }

func anyEdge(*graph.Edge) bool { return true }

type classifier struct {
	in    Input
	r     Resolver
	group EmitStrategy
}

// fieldType resolves t. A reference is indirect when any edge at its
// position pointing at the same target was marked indirect.
func (cl *classifier) fieldType(t shape.Type, at edgeMatch) FieldType {
	ft := FieldType{Nullable: t.Nullable}
	switch t.Kind {
	case shape.TypeRef:
		id, ok := cl.r.ResolveRef(t.Ref)
		if !ok {
			ft.Kind = FieldUnsupported
			ft.Unresolved = t.Ref
			return ft
		}
		ft.Kind = FieldRef
		ft.Ref = id
		if cl.indirect(id, at) {
			ft.Strategy = cl.group
		}
	case shape.TypeScalar:
		ft.Kind = FieldScalar
		ft.Scalar = t.Scalar
		ft.Format = t.Format
	case shape.TypeArray, shape.TypeMap:
		ft.Kind = FieldArray
		if t.Kind == shape.TypeMap {
			ft.Kind = FieldMap
		}
		elem := FieldType{Kind: FieldAny}
		if t.Elem != nil {
			elem = cl.fieldType(*t.Elem, at)
		}
		ft.Elem = &elem
	default:
		ft.Kind = FieldAny
	}
	return ft
}

func (cl *classifier) indirect(to graph.SchemaID, at edgeMatch) bool {
	for _, d := range cl.in.Outgoing {
		if d.Indirect && d.Edge.To == to && at(d.Edge) {
			return true
		}
	}
	return false
}

// enumValues derives member identifiers and reports values that collapse
// to the same identifier.
func enumValues(id graph.SchemaID, values []string, diags *diag.List) []EnumValue {
	out := make([]EnumValue, 0, len(values))
	seen := make(map[string]string, len(values))
	for i, v := range values {
		name := Identifier(v, i)
		if prev, ok := seen[name]; ok {
			diags.Errorf(diag.EnumVariantConflict, string(id), "enum values %q and %q both map to %s", prev, v, name)
			continue
		}
		seen[name] = v
		out = append(out, EnumValue{Name: name, Value: v})
	}
	return out
}

// Identifier returns a PascalCase identifier for a literal. Literals
// without letters or digits become Value<i>; a leading digit gets a V prefix.
func Identifier(literal string, i int) string {
	name := casing.Pascal(literal)
	switch {
	case name == "":
		return "Value" + strconv.Itoa(i)
	case unicode.IsDigit([]rune(name)[0]):
		return "V" + name
	}
	return name
}
