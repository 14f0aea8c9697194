// Package shape detects the structural pattern of a schema document.
//
// Detection is a pure function of one document: it reads no other schema,
// no configuration and no target language.
package shape

import (
	"strconv"
)

// Kind is the structural category of a schema.
type Kind uint8

// Shape kinds.
const (
	Unsupported Kind = iota
	StringEnum
	DiscriminatedUnion
	UntaggedUnion
	Record
	Alias
	NewType
	ArrayOf
	MapOf
)

var kindNames = [...]string{
	"unsupported", "string-enum", "discriminated-union", "untagged-union",
	"record", "alias", "newtype", "array", "map",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "shape(" + strconv.Itoa(int(k)) + ")"
}

// Shape is the detected pattern with the data that pattern needs.
type Shape struct {
	Kind Kind
	// Enum holds StringEnum values in declaration order.
	Enum []string
	// Discriminator is the tag property of a DiscriminatedUnion.
	Discriminator string
	// Variants holds union branches in declaration order.
	Variants []Variant
	// Properties holds Record fields in declaration order.
	Properties []Property
	// Bases holds allOf references a Record flattens in.
	Bases []Type
	// Extra is the additionalProperties type of a Record, or the value type of a MapOf.
	Extra *Type
	// Target is the wrapped type of an Alias or NewType, or the item type of an ArrayOf.
	Target *Type
	// Reason explains an Unsupported shape.
	Reason string
}

// Variant is one union branch.
type Variant struct {
	// Name is the branch title, the referenced file stem, the tag, or
	// "Variant<i>", whichever is found first.
	Name string
	// Tag is the discriminator literal, if declared.
	Tag  string
	Type Type
}

// Property is one Record field.
type Property struct {
	Name        string
	Type        Type
	Required    bool
	Description string
	// Const is the single literal the property admits, if declared.
	Const string
}

// TypeKind is the kind of a property or branch type.
type TypeKind uint8

// Type kinds.
const (
	TypeUnknown TypeKind = iota
	TypeRef
	TypeScalar
	TypeArray
	TypeMap
	TypeInlineObject
)

var typeKindNames = [...]string{"unknown", "ref", "scalar", "array", "map", "inline-object"}

func (k TypeKind) String() string {
	if int(k) < len(typeKindNames) {
		return typeKindNames[k]
	}
	return "typekind(" + strconv.Itoa(int(k)) + ")"
}

// Scalar is a JSON primitive type.
type Scalar uint8

// Scalars.
const (
	ScalarNone Scalar = iota
	String
	Integer
	Number
	Boolean
)

var scalarNames = [...]string{"", "string", "integer", "number", "boolean"}

func (s Scalar) String() string {
	if int(s) < len(scalarNames) {
		return scalarNames[s]
	}
	return "scalar(" + strconv.Itoa(int(s)) + ")"
}

// ParseScalar maps a JSON Schema type keyword to a Scalar.
func ParseScalar(s string) Scalar {
	for i, n := range scalarNames {
		if i > 0 && n == s {
			return Scalar(i)
		}
	}
	return ScalarNone
}

// Type describes the type of a property, branch, item or map value.
type Type struct {
	Kind TypeKind
	// Ref is the normalized reference target of a TypeRef.
	Ref    string
	Scalar Scalar
	Format string
	// Elem is the item type of a TypeArray or value type of a TypeMap.
	Elem     *Type
	Nullable bool
}
