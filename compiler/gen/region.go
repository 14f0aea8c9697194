package gen

import (
	"bytes"

	digest "github.com/opencontainers/go-digest"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/schemac/compiler/classify"
	"github.com/syssam/schemac/compiler/names"
	"github.com/syssam/schemac/compiler/shape"
	"github.com/syssam/schemac/graph"
)

// Region is the emitter-facing view of one generated schema. Every
// reference is resolved to the name and kind of its target, so emitters
// never consult the graph or the source document.
type Region struct {
	ID          graph.SchemaID
	Name        string
	Path        string
	Description string `msgpack:",omitempty"`
	Kind        classify.TypeKind
	Strategy    classify.EmitStrategy
	// Ambiguous marks a union without a usable discriminator.
	Ambiguous     bool   `msgpack:",omitempty"`
	Discriminator string `msgpack:",omitempty"`

	Fields []RegionField `msgpack:",omitempty"`
	// Inherited holds the fields of Bases that are records, outermost base
	// first, for targets that cannot express inheritance.
	Inherited []RegionField        `msgpack:",omitempty"`
	Bases     []TypeRef            `msgpack:",omitempty"`
	Extra     *TypeRef             `msgpack:",omitempty"`
	Variants  []RegionVariant      `msgpack:",omitempty"`
	Enum      []classify.EnumValue `msgpack:",omitempty"`
	Target    *TypeRef             `msgpack:",omitempty"`
	Hints     Hints
}

// Hints are the extension settings that affect rendering.
type Hints struct {
	// Casing is the wire casing convention of the field names.
	Casing string `msgpack:",omitempty"`
	// SkipNone omits absent optional fields when serializing.
	SkipNone bool `msgpack:",omitempty"`
	// Kind is the x-familiar-kind tag.
	Kind string `msgpack:",omitempty"`
}

// TypeRef is a fully resolved type.
type TypeRef struct {
	Kind classify.FieldKind
	// ID, Name and Origin describe the referenced schema of a FieldRef.
	ID     graph.SchemaID `msgpack:",omitempty"`
	Name   string         `msgpack:",omitempty"`
	Origin names.Origin   `msgpack:",omitempty"`
	// External is the qualified type path of an External reference.
	External string `msgpack:",omitempty"`
	// TargetKind is the classification of the referenced schema.
	TargetKind classify.TypeKind     `msgpack:",omitempty"`
	Scalar     shape.Scalar          `msgpack:",omitempty"`
	Format     string                `msgpack:",omitempty"`
	Elem       *TypeRef              `msgpack:",omitempty"`
	Nullable   bool                  `msgpack:",omitempty"`
	Strategy   classify.EmitStrategy `msgpack:",omitempty"`
	// Unresolved is the reference text of a dangling or unemitted target.
	Unresolved string `msgpack:",omitempty"`
}

// RegionField is a record field.
type RegionField struct {
	// Name is the property name as it appears on the wire.
	Name        string
	Type        TypeRef
	Required    bool
	Description string `msgpack:",omitempty"`
	Const       string `msgpack:",omitempty"`
}

// RegionVariant is a union branch.
type RegionVariant struct {
	Name string
	Tag  string `msgpack:",omitempty"`
	Type TypeRef
}

// Refs returns the generated schemas r refers to, in field order.
func (r *Region) Refs() []*TypeRef {
	var out []*TypeRef
	collect := func(t *TypeRef) {
		for ; t != nil; t = t.Elem {
			if t.Kind == classify.FieldRef && t.Origin == names.Generated {
				out = append(out, t)
			}
		}
	}
	for i := range r.Fields {
		collect(&r.Fields[i].Type)
	}
	for i := range r.Bases {
		collect(&r.Bases[i])
	}
	for i := range r.Variants {
		collect(&r.Variants[i].Type)
	}
	collect(r.Extra)
	collect(r.Target)
	return out
}

// Fingerprint returns a digest of the region together with the profile it
// is rendered with. Equal fingerprints render to equal text.
func Fingerprint(r *Region, p *RenderProfile) (digest.Digest, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Encode(p); err != nil {
		return "", err
	}
	return digest.FromBytes(buf.Bytes()), nil
}
