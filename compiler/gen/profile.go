package gen

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode"

	"github.com/syssam/schemac/compiler/casing"
	"github.com/syssam/schemac/compiler/classify"
	"github.com/syssam/schemac/compiler/shape"
)

// Case is an identifier casing convention.
type Case string

// Casing conventions.
const (
	// CaseWire keeps the wire name as written.
	CaseWire      Case = "wire"
	CasePascal    Case = "pascal"
	CaseCamel     Case = "camel"
	CaseSnake     Case = "snake"
	CaseScreaming Case = "screaming"
)

// Apply converts s to the convention.
func (c Case) Apply(s string) string {
	switch c {
	case CasePascal:
		return casing.Pascal(s)
	case CaseCamel:
		return casing.Camel(s)
	case CaseSnake:
		return casing.Snake(s)
	case CaseScreaming:
		return casing.ScreamingSnake(s)
	}
	return s
}

// UnionStyle is how a discriminated union is encoded on the wire.
type UnionStyle string

// Union styles.
const (
	// UnionInternal carries the tag inside the variant object.
	UnionInternal UnionStyle = "internal"
	// UnionUntagged relies on the variant shapes alone.
	UnionUntagged UnionStyle = "untagged"
)

// OptionalStrategy is how an optional field is declared.
type OptionalStrategy string

// Optional strategies.
const (
	// OptionalWrap wraps the field type with the Optional template.
	OptionalWrap OptionalStrategy = "wrap"
	// OptionalMarker marks the field optional and keeps its type.
	OptionalMarker OptionalStrategy = "marker"
	// OptionalNullable wraps the field type with the Nullable template.
	OptionalNullable OptionalStrategy = "nullable"
)

// RenderProfile is the language policy an emitter renders with.
type RenderProfile struct {
	Language string
	// Ext is the file extension of rendered files, without the dot.
	Ext string
	// Types maps "string", "integer", "number", "boolean" and "any" to
	// target types. A "<scalar>:<format>" key overrides one format.
	Types    map[string]string
	Optional OptionalStrategy
	Union    UnionStyle

	// Templates take the wrapped type as their only verb.
	OptionalTemplate string
	NullableTemplate string
	ArrayTemplate    string
	MapTemplate      string
	BoxTemplate      string
	SharedTemplate   string

	TypeCase    Case
	FieldCase   Case
	VariantCase Case

	Keywords     []string
	EscapePrefix string
	EscapeSuffix string
}

// Clone returns a deep copy of p.
func (p *RenderProfile) Clone() *RenderProfile {
	c := *p
	c.Types = maps.Clone(p.Types)
	c.Keywords = slices.Clone(p.Keywords)
	return &c
}

// Override replaces type mappings and, if set, the optional strategy.
func (p *RenderProfile) Override(types map[string]string, optional OptionalStrategy) error {
	switch optional {
	case "", OptionalWrap, OptionalMarker, OptionalNullable:
	default:
		return NewConfigError("Optional", optional, "use wrap, marker or nullable")
	}
	if p.Types == nil {
		p.Types = make(map[string]string, len(types))
	}
	maps.Copy(p.Types, types)
	if optional != "" {
		p.Optional = optional
	}
	return nil
}

// Scalar returns the target type of a scalar with an optional format.
func (p *RenderProfile) Scalar(s shape.Scalar, format string) string {
	if format != "" {
		if t, ok := p.Types[s.String()+":"+format]; ok {
			return t
		}
	}
	if t, ok := p.Types[s.String()]; ok {
		return t
	}
	return p.Any()
}

// Any returns the type that holds arbitrary JSON.
func (p *RenderProfile) Any() string { return p.Types["any"] }

// IsKeyword reports whether s is reserved in the target.
func (p *RenderProfile) IsKeyword(s string) bool {
	return slices.Contains(p.Keywords, s)
}

// Escape makes a reserved identifier usable.
func (p *RenderProfile) Escape(s string) string {
	if !p.IsKeyword(s) {
		return s
	}
	return p.EscapePrefix + s + p.EscapeSuffix
}

// TypeName returns the identifier of a type.
func (p *RenderProfile) TypeName(name string) string {
	return p.Escape(ident(p.TypeCase.Apply(name), "T"))
}

// FieldName returns the identifier of a field.
func (p *RenderProfile) FieldName(wire string) string {
	return p.Escape(ident(p.FieldCase.Apply(wire), "F"))
}

// VariantName returns the identifier of an enum member or union variant.
func (p *RenderProfile) VariantName(name string) string {
	return p.Escape(ident(p.VariantCase.Apply(name), "V"))
}

// ident prefixes identifiers that are empty or start with a digit.
func ident(s, prefix string) string {
	if s == "" {
		return prefix
	}
	if unicode.IsDigit([]rune(s)[0]) {
		return prefix + s
	}
	return s
}

// IsIdentifier reports whether s is an ASCII identifier.
func IsIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return s != ""
}

// wrap applies a template. A template without a verb replaces the type.
func wrap(template, inner string) string {
	switch {
	case template == "":
		return inner
	case !strings.Contains(template, "%s"):
		return template
	}
	return fmt.Sprintf(template, inner)
}

// WrapOptional applies the optional strategy.
func (p *RenderProfile) WrapOptional(inner string) string {
	switch p.Optional {
	case OptionalWrap:
		return wrap(p.OptionalTemplate, inner)
	case OptionalNullable:
		return wrap(p.NullableTemplate, inner)
	}
	return inner
}

// WrapNullable wraps a type that admits null.
func (p *RenderProfile) WrapNullable(inner string) string { return wrap(p.NullableTemplate, inner) }

// WrapArray returns the array type of elem.
func (p *RenderProfile) WrapArray(elem string) string { return wrap(p.ArrayTemplate, elem) }

// WrapMap returns the string-keyed map type of elem.
func (p *RenderProfile) WrapMap(elem string) string { return wrap(p.MapTemplate, elem) }

// WrapIndirect applies the indirection of an emit strategy.
func (p *RenderProfile) WrapIndirect(s classify.EmitStrategy, inner string) string {
	switch s {
	case classify.Boxed:
		return wrap(p.BoxTemplate, inner)
	case classify.Shared:
		return wrap(p.SharedTemplate, inner)
	}
	return inner
}

// TypeExpr renders t with the profile templates. Named references are
// passed through name, which lets emitters qualify or quote them.
func (p *RenderProfile) TypeExpr(t *TypeRef, name func(*TypeRef) string) string {
	var s string
	switch t.Kind {
	case classify.FieldRef:
		s = p.WrapIndirect(t.Strategy, name(t))
	case classify.FieldScalar:
		s = p.Scalar(t.Scalar, t.Format)
	case classify.FieldArray:
		s = p.WrapArray(p.TypeExpr(t.Elem, name))
	case classify.FieldMap:
		s = p.WrapMap(p.TypeExpr(t.Elem, name))
	default:
		s = p.Any()
	}
	if t.Nullable {
		s = p.WrapNullable(s)
	}
	return s
}

// Profile returns a copy of the built-in profile of a language.
func Profile(language string) (*RenderProfile, bool) {
	p, ok := builtin[strings.ToLower(language)]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Languages returns the languages with a built-in profile.
func Languages() []string {
	return slices.Sorted(maps.Keys(builtin))
}

var builtin = map[string]*RenderProfile{
	"go": {
		Language: "go",
		Ext:      "go",
		Types: map[string]string{
			"string":           "string",
			"integer":          "int64",
			"number":           "float64",
			"boolean":          "bool",
			"any":              "encoding/json.RawMessage",
			"string:date-time": "time.Time",
		},
		Optional:         OptionalWrap,
		Union:            UnionInternal,
		OptionalTemplate: "*%s",
		NullableTemplate: "*%s",
		ArrayTemplate:    "[]%s",
		MapTemplate:      "map[string]%s",
		BoxTemplate:      "*%s",
		SharedTemplate:   "*%s",
		TypeCase:         CasePascal,
		FieldCase:        CasePascal,
		VariantCase:      CasePascal,
		Keywords: []string{
			"break", "case", "chan", "const", "continue", "default", "defer", "else",
			"fallthrough", "for", "func", "go", "goto", "if", "import", "interface",
			"map", "package", "range", "return", "select", "struct", "switch", "type", "var",
		},
		EscapeSuffix: "_",
	},
	"rust": {
		Language: "rust",
		Ext:      "rs",
		Types: map[string]string{
			"string":  "String",
			"integer": "i64",
			"number":  "f64",
			"boolean": "bool",
			"any":     "serde_json::Value",
		},
		Optional:         OptionalWrap,
		Union:            UnionInternal,
		OptionalTemplate: "Option<%s>",
		NullableTemplate: "Option<%s>",
		ArrayTemplate:    "Vec<%s>",
		MapTemplate:      "std::collections::BTreeMap<String, %s>",
		BoxTemplate:      "Box<%s>",
		SharedTemplate:   "std::sync::Arc<%s>",
		TypeCase:         CasePascal,
		FieldCase:        CaseSnake,
		VariantCase:      CasePascal,
		Keywords: []string{
			"as", "async", "await", "break", "const", "continue", "crate", "dyn", "else",
			"enum", "extern", "false", "fn", "for", "if", "impl", "in", "let", "loop",
			"match", "mod", "move", "mut", "pub", "ref", "return", "static", "struct",
			"super", "trait", "true", "type", "unsafe", "use", "where", "while", "abstract",
			"become", "box", "do", "final", "macro", "override", "priv", "typeof",
			"unsized", "virtual", "yield", "try",
		},
		EscapePrefix: "r#",
	},
	"typescript": {
		Language: "typescript",
		Ext:      "ts",
		Types: map[string]string{
			"string":  "string",
			"integer": "number",
			"number":  "number",
			"boolean": "boolean",
			"any":     "unknown",
		},
		Optional:         OptionalMarker,
		Union:            UnionInternal,
		NullableTemplate: "%s | null",
		ArrayTemplate:    "Array<%s>",
		MapTemplate:      "Record<string, %s>",
		TypeCase:         CasePascal,
		FieldCase:        CaseWire,
		VariantCase:      CasePascal,
		Keywords: []string{
			"any", "boolean", "break", "case", "catch", "class", "const", "continue",
			"debugger", "default", "delete", "do", "else", "enum", "export", "extends",
			"false", "finally", "for", "function", "if", "import", "in", "instanceof",
			"never", "new", "null", "number", "object", "string", "super", "switch",
			"symbol", "this", "throw", "true", "try", "typeof", "undefined", "unknown",
			"var", "void", "while", "with",
		},
		EscapeSuffix: "_",
	},
	"python": {
		Language: "python",
		Ext:      "py",
		Types: map[string]string{
			"string":  "str",
			"integer": "int",
			"number":  "float",
			"boolean": "bool",
			"any":     "Any",
		},
		Optional:         OptionalMarker,
		Union:            UnionInternal,
		OptionalTemplate: "NotRequired[%s]",
		NullableTemplate: "Optional[%s]",
		ArrayTemplate:    "list[%s]",
		MapTemplate:      "dict[str, %s]",
		TypeCase:         CasePascal,
		FieldCase:        CaseWire,
		VariantCase:      CaseScreaming,
		Keywords: []string{
			"False", "None", "True", "and", "as", "assert", "async", "await", "break",
			"class", "continue", "def", "del", "elif", "else", "except", "finally", "for",
			"from", "global", "if", "import", "in", "is", "lambda", "nonlocal", "not",
			"or", "pass", "raise", "return", "try", "while", "with", "yield",
		},
		EscapeSuffix: "_",
	},
	"graphql": {
		Language: "graphql",
		Ext:      "graphql",
		Types: map[string]string{
			"string":  "String",
			"integer": "Int",
			"number":  "Float",
			"boolean": "Boolean",
			"any":     "JSON",
		},
		Optional:      OptionalMarker,
		Union:         UnionInternal,
		ArrayTemplate: "[%s]",
		MapTemplate:   "JSON",
		TypeCase:      CasePascal,
		FieldCase:     CaseCamel,
		VariantCase:   CaseScreaming,
		Keywords:      []string{"true", "false", "null"},
		EscapeSuffix:  "_",
	},
}
