package shape

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/schemac/compiler/load"
	"github.com/syssam/schemac/graph"
)

// Detect returns the shape of the schema id in g.
func Detect(g *graph.Graph, id graph.SchemaID) Shape {
	n, ok := g.Node(id)
	if !ok {
		return Shape{Kind: Unsupported, Reason: "unknown schema"}
	}
	return DetectValue(n.Path, g.Raw(id), n.Ext)
}

// DetectAll detects the shape of every node in parallel.
func DetectAll(ctx context.Context, g *graph.Graph) (map[graph.SchemaID]Shape, error) {
	var (
		mu  sync.Mutex
		out = make(map[graph.SchemaID]Shape, g.Len())
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for _, id := range g.IDs() {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s := Detect(g, id)
			mu.Lock()
			out[id] = s
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// DetectValue returns the shape of the document at path. The first
// matching rule wins:
//
//  1. enum of strings without $ref: StringEnum
//  2. oneOf whose branches are all string literals: StringEnum
//  3. oneOf/anyOf of object branches with a discriminator: DiscriminatedUnion
//  4. any other oneOf/anyOf: UntaggedUnion
//  5. newtype flag around one property, one scalar or one ref: NewType
//  6. properties or allOf, unless the schema is a pure reference: Record
//  7. a single $ref without constraining siblings: Alias
//  8. items without properties: ArrayOf
//  9. additionalProperties without properties: MapOf
//  10. a bare scalar type: Alias of the scalar
//
// Anything else is Unsupported.
func DetectValue(path string, v *load.Value, ext load.Extensions) Shape {
	if !v.IsObject() {
		return Shape{Kind: Unsupported, Reason: "document is not an object"}
	}
	if values, ok := stringEnum(v); ok && !v.Has("$ref") {
		return Shape{Kind: StringEnum, Enum: values}
	}
	if key, branches := unionBranches(v); branches != nil {
		if values, ok := literalBranches(branches); ok && key == "oneOf" {
			return Shape{Kind: StringEnum, Enum: values}
		}
		if t, ok := nullableBranch(path, branches); ok {
			return Shape{Kind: Alias, Target: &t}
		}
		return union(path, key, branches, discriminator(v, ext))
	}
	if ext.NewType {
		if s, ok := newType(path, v); ok {
			return s
		}
	}
	ref, isRef := pureRef(path, v)
	if !isRef && (v.Get("properties").IsObject() || len(v.Get("allOf").List()) > 0) {
		return record(path, v)
	}
	if isRef {
		return Shape{Kind: Alias, Target: &ref}
	}
	if items := v.Get("items"); items != nil {
		t := TypeOf(path, items)
		return Shape{Kind: ArrayOf, Target: &t}
	}
	if extra := v.Get("additionalProperties"); extra.IsObject() || extra.Truthy() {
		t := mapValue(path, extra)
		return Shape{Kind: MapOf, Extra: &t}
	}
	if sc, format, nullable := scalarType(v); sc != ScalarNone {
		return Shape{Kind: Alias, Target: &Type{Kind: TypeScalar, Scalar: sc, Format: format, Nullable: nullable}}
	}
	return Shape{Kind: Unsupported, Reason: unsupportedReason(v)}
}

func stringEnum(v *load.Value) ([]string, bool) {
	enum := v.Get("enum")
	if !enum.IsArray() || len(enum.Items) == 0 {
		return nil, false
	}
	values := make([]string, 0, len(enum.Items))
	for _, it := range enum.Items {
		if !it.IsString() {
			return nil, false
		}
		values = append(values, it.Str)
	}
	return values, true
}

func unionBranches(v *load.Value) (string, []*load.Value) {
	for _, key := range []string{"oneOf", "anyOf"} {
		if b := v.Get(key); b.IsArray() && len(b.Items) > 0 {
			return key, b.Items
		}
	}
	return "", nil
}

func discriminator(v *load.Value, ext load.Extensions) string {
	if ext.Discriminator != "" {
		return ext.Discriminator
	}
	if d := v.Get("discriminator"); d != nil {
		if d.IsString() {
			return d.Str
		}
		name, _ := d.Text("propertyName")
		return name
	}
	return ""
}

// literalBranches returns the values of branches that are all
// {"const": "x"} or {"enum": ["x"]}.
func literalBranches(branches []*load.Value) ([]string, bool) {
	values := make([]string, 0, len(branches))
	for _, b := range branches {
		if b.Has("$ref") || b.Has("properties") {
			return nil, false
		}
		lit := literal(b)
		if lit == "" && !b.Get("const").IsString() {
			return nil, false
		}
		values = append(values, lit)
	}
	return values, true
}

// nullableBranch matches [X, {"type": "null"}] in either order.
func nullableBranch(path string, branches []*load.Value) (Type, bool) {
	if len(branches) != 2 {
		return Type{}, false
	}
	for i, b := range branches {
		if isNull(b) {
			t := TypeOf(path, branches[1-i])
			t.Nullable = true
			return t, true
		}
	}
	return Type{}, false
}

func isNull(v *load.Value) bool {
	t, ok := v.Text("type")
	return ok && t == "null"
}

func union(path, key string, branches []*load.Value, disc string) Shape {
	allObjects := true
	variants := make([]Variant, len(branches))
	for i, b := range branches {
		t := TypeOf(path, b)
		if t.Kind != TypeRef && t.Kind != TypeInlineObject {
			allObjects = false
		}
		variants[i] = Variant{Type: t, Tag: tagOf(b, disc)}
		variants[i].Name = variantName(b, t, variants[i].Tag, i)
	}
	if disc != "" && allObjects {
		return Shape{Kind: DiscriminatedUnion, Discriminator: disc, Variants: variants}
	}
	return Shape{Kind: UntaggedUnion, Discriminator: disc, Variants: variants, Reason: key}
}

// tagOf reads the literal of the discriminator property of an inline branch.
func tagOf(b *load.Value, disc string) string {
	if disc == "" {
		return ""
	}
	return literal(b.Get("properties").Get(disc))
}

// literal returns the value of {"const": X} or {"enum": [X]}.
func literal(v *load.Value) string {
	if c, ok := v.Text("const"); ok {
		return c
	}
	if values, ok := stringEnum(v); ok && len(values) == 1 {
		return values[0]
	}
	return ""
}

func variantName(b *load.Value, t Type, tag string, i int) string {
	if title, ok := b.Text("title"); ok && title != "" {
		return title
	}
	if t.Kind == TypeRef {
		return load.FileStem(t.Ref)
	}
	if tag != "" {
		return tag
	}
	return fmt.Sprintf("Variant%d", i)
}

func newType(path string, v *load.Value) (Shape, bool) {
	if props := v.Get("properties"); props.IsObject() {
		if len(props.Members) != 1 {
			return Shape{}, false
		}
		t := TypeOf(path, props.Members[0].Value)
		return Shape{Kind: NewType, Target: &t, Properties: []Property{{
			Name:     props.Members[0].Key,
			Type:     t,
			Required: true,
		}}}, true
	}
	if ref, ok := pureRef(path, v); ok {
		return Shape{Kind: NewType, Target: &ref}, true
	}
	if sc, format, nullable := scalarType(v); sc != ScalarNone {
		return Shape{Kind: NewType, Target: &Type{Kind: TypeScalar, Scalar: sc, Format: format, Nullable: nullable}}, true
	}
	return Shape{}, false
}

func record(path string, v *load.Value) Shape {
	s := Shape{Kind: Record}
	required := requiredSet(v)
	if ref, ok := v.Text("$ref"); ok {
		s.Bases = append(s.Bases, refType(path, ref))
	}
	for _, b := range v.Get("allOf").List() {
		if ref, ok := pureRef(path, b); ok {
			s.Bases = append(s.Bases, ref)
			continue
		}
		// Inline allOf branches contribute their properties.
		breq := requiredSet(b)
		for _, m := range b.Get("properties").Entries() {
			s.Properties = append(s.Properties, property(path, m, breq[m.Key] || required[m.Key]))
		}
	}
	for _, m := range v.Get("properties").Entries() {
		s.Properties = append(s.Properties, property(path, m, required[m.Key]))
	}
	if extra := v.Get("additionalProperties"); extra != nil && (extra.IsObject() || extra.Truthy()) {
		t := mapValue(path, extra)
		s.Extra = &t
	}
	return s
}

func property(path string, m load.Member, required bool) Property {
	p := Property{Name: m.Key, Type: TypeOf(path, m.Value), Required: required}
	p.Description, _ = m.Value.Text("description")
	p.Const = literal(m.Value)
	return p
}

func requiredSet(v *load.Value) map[string]bool {
	out := map[string]bool{}
	for _, r := range v.Get("required").List() {
		if r.IsString() {
			out[r.Str] = true
		}
	}
	return out
}

// metaKey reports whether a sibling of $ref leaves the reference unconstrained.
func metaKey(key string) bool {
	switch key {
	case "title", "description", "examples", "default", "deprecated", "readOnly", "writeOnly":
		return true
	}
	return strings.HasPrefix(key, "$") || strings.HasPrefix(key, "x-")
}

// pureRef matches {"$ref": X} and {"allOf": [{"$ref": X}]} with only meta siblings.
func pureRef(path string, v *load.Value) (Type, bool) {
	var ref string
	switch {
	case v.Has("$ref"):
		r, ok := v.Text("$ref")
		if !ok {
			return Type{}, false
		}
		ref = r
	case len(v.Get("allOf").List()) == 1:
		r, ok := v.Get("allOf").List()[0].Text("$ref")
		if !ok {
			return Type{}, false
		}
		ref = r
	default:
		return Type{}, false
	}
	for _, key := range v.Keys() {
		if key != "allOf" && !metaKey(key) {
			return Type{}, false
		}
	}
	return refType(path, ref), true
}

func refType(path, ref string) Type {
	target, fragment := load.NormalizeRef(path, ref)
	if target == "" && (fragment == "" || fragment == "/") {
		target = path
	}
	return Type{Kind: TypeRef, Ref: target}
}

// TypeOf returns the type of a property or branch schema.
func TypeOf(path string, v *load.Value) Type {
	if !v.IsObject() {
		return Type{Kind: TypeUnknown}
	}
	if ref, ok := v.Text("$ref"); ok {
		return refType(path, ref)
	}
	if all := v.Get("allOf").List(); len(all) == 1 {
		if ref, ok := all[0].Text("$ref"); ok {
			return refType(path, ref)
		}
	}
	if _, branches := unionBranches(v); branches != nil {
		if t, ok := nullableBranch(path, branches); ok {
			return t
		}
		return Type{Kind: TypeUnknown}
	}
	if _, ok := stringEnum(v); ok {
		return Type{Kind: TypeScalar, Scalar: String}
	}
	if v.Get("const").IsString() {
		return Type{Kind: TypeScalar, Scalar: String}
	}
	typ, nullable := typeKeyword(v)
	switch {
	case typ == "array" || (typ == "" && v.Has("items")):
		elem := TypeOf(path, v.Get("items"))
		return Type{Kind: TypeArray, Elem: &elem, Nullable: nullable}
	case typ == "object" || (typ == "" && (v.Has("properties") || v.Has("additionalProperties"))):
		if v.Get("properties").IsObject() {
			return Type{Kind: TypeInlineObject, Nullable: nullable}
		}
		if extra := v.Get("additionalProperties"); extra.IsObject() {
			elem := TypeOf(path, extra)
			return Type{Kind: TypeMap, Elem: &elem, Nullable: nullable}
		}
		return Type{Kind: TypeInlineObject, Nullable: nullable}
	}
	if sc := ParseScalar(typ); sc != ScalarNone {
		format, _ := v.Text("format")
		return Type{Kind: TypeScalar, Scalar: sc, Format: format, Nullable: nullable}
	}
	return Type{Kind: TypeUnknown, Nullable: nullable}
}

func mapValue(path string, extra *load.Value) Type {
	if extra.IsObject() {
		elem := TypeOf(path, extra)
		return Type{Kind: TypeMap, Elem: &elem}
	}
	return Type{Kind: TypeMap, Elem: &Type{Kind: TypeUnknown}}
}

// typeKeyword returns the type keyword, unwrapping ["T", "null"].
func typeKeyword(v *load.Value) (string, bool) {
	t := v.Get("type")
	switch {
	case t.IsString():
		return t.Str, false
	case t.IsArray():
		var typ string
		nullable := false
		for _, it := range t.Items {
			switch {
			case !it.IsString():
			case it.Str == "null":
				nullable = true
			case typ == "":
				typ = it.Str
			}
		}
		return typ, nullable
	}
	return "", false
}

func scalarType(v *load.Value) (Scalar, string, bool) {
	typ, nullable := typeKeyword(v)
	sc := ParseScalar(typ)
	if sc == ScalarNone {
		return ScalarNone, "", false
	}
	format, _ := v.Text("format")
	return sc, format, nullable
}

func unsupportedReason(v *load.Value) string {
	switch {
	case len(v.Members) == 0:
		return "empty schema"
	case v.Has("enum"):
		return "enum with non-string values"
	case v.Has("const"):
		return "const schema"
	case v.Has("not"):
		return "negated schema"
	}
	if typ, _ := typeKeyword(v); typ != "" {
		return fmt.Sprintf("type %q without structure", typ)
	}
	return "no recognized structure"
}
