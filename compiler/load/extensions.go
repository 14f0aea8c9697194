package load

import (
	"slices"
	"strings"
)

// ExtensionPrefix is the prefix of every recognized extension attribute.
const ExtensionPrefix = "x-familiar-"

// Recognized extension keys.
const (
	ExtKind          = ExtensionPrefix + "kind"
	ExtService       = ExtensionPrefix + "service"
	ExtEnumRepr      = ExtensionPrefix + "enum-repr"
	ExtDiscriminator = ExtensionPrefix + "discriminator"
	ExtContent       = ExtensionPrefix + "content"
	ExtCasing        = ExtensionPrefix + "casing"
	ExtFlatten       = ExtensionPrefix + "flatten"
	ExtSkipNone      = ExtensionPrefix + "skip-none"
	ExtNewType       = ExtensionPrefix + "newtype"
)

// Extensions holds the typed x-familiar-* attributes of one document.
// They are read once at load time; later passes never look them up by key.
type Extensions struct {
	Kind          string   `json:"kind,omitempty"`
	Service       string   `json:"service,omitempty"`
	EnumRepr      string   `json:"enum_repr,omitempty"`
	Discriminator string   `json:"discriminator,omitempty"`
	Content       string   `json:"content,omitempty"`
	Casing        string   `json:"casing,omitempty"`
	Flatten       []string `json:"flatten,omitempty"`
	SkipNone      bool     `json:"skip_none,omitempty"`
	NewType       bool     `json:"newtype,omitempty"`
	// Unknown lists x-familiar-* keys that are not recognized.
	Unknown []string `json:"unknown,omitempty"`
}

// ParseExtensions extracts the extension attributes of a schema object.
func ParseExtensions(v *Value) Extensions {
	var ext Extensions
	if !v.IsObject() {
		return ext
	}
	for _, m := range v.Members {
		if !strings.HasPrefix(m.Key, ExtensionPrefix) {
			continue
		}
		switch m.Key {
		case ExtKind:
			ext.Kind = m.Value.Str
		case ExtService:
			ext.Service = m.Value.Str
		case ExtEnumRepr:
			ext.EnumRepr = m.Value.Str
		case ExtDiscriminator:
			ext.Discriminator = discriminatorName(m.Value)
		case ExtContent:
			ext.Content = m.Value.Str
		case ExtCasing:
			ext.Casing = m.Value.Str
		case ExtFlatten:
			ext.Flatten = stringList(m.Value)
		case ExtSkipNone:
			ext.SkipNone = m.Value.Truthy()
		case ExtNewType:
			ext.NewType = m.Value.Truthy()
		default:
			ext.Unknown = append(ext.Unknown, m.Key)
		}
	}
	slices.Sort(ext.Unknown)
	return ext
}

// discriminatorName accepts both "kind" and {"propertyName": "kind"}.
func discriminatorName(v *Value) string {
	if v.IsString() {
		return v.Str
	}
	if s, ok := v.Text("propertyName"); ok {
		return s
	}
	return ""
}

func stringList(v *Value) []string {
	switch {
	case v.IsString():
		return []string{v.Str}
	case v.IsArray():
		var out []string
		for _, it := range v.Items {
			if it.IsString() {
				out = append(out, it.Str)
			}
		}
		return out
	case v.Truthy():
		return []string{"*"}
	}
	return nil
}
