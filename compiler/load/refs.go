package load

import (
	"path"
	"strconv"
	"strings"
)

// EdgeKind is the syntactic position a reference was found in.
type EdgeKind uint8

// Edge kinds.
const (
	Ref EdgeKind = iota
	AllOf
	OneOf
	AnyOf
	Items
	AdditionalProperties
	Property
)

var edgeKindNames = [...]string{"ref", "allOf", "oneOf", "anyOf", "items", "additionalProperties", "property"}

func (k EdgeKind) String() string {
	if int(k) < len(edgeKindNames) {
		return edgeKindNames[k]
	}
	return "edgekind(" + strconv.Itoa(int(k)) + ")"
}

// Composition reports whether the kind is allOf, oneOf or anyOf.
func (k EdgeKind) Composition() bool {
	return k == AllOf || k == OneOf || k == AnyOf
}

// Reference is one $ref found in a document.
type Reference struct {
	// Target is the normalized reference, without fragment.
	Target string `json:"target"`
	// Fragment is the part after '#', if any.
	Fragment string   `json:"fragment,omitempty"`
	Kind     EdgeKind `json:"kind"`
	// Path locates the reference inside the document, e.g. ".tags[]".
	Path string `json:"path,omitempty"`
	// Field is the top-level property the reference sits under.
	Field string `json:"field,omitempty"`
	// Index is the branch position for composition kinds, otherwise -1.
	Index int `json:"index"`
}

// Local reports whether the reference points inside its own document.
func (r Reference) Local() bool {
	return r.Target == ""
}

// NormalizeRef resolves ref relative to the directory of the document at
// from. Fragment-only refs return an empty target and URL refs are returned
// unchanged.
func NormalizeRef(from, ref string) (target, fragment string) {
	if i := strings.IndexByte(ref, '#'); i >= 0 {
		ref, fragment = ref[:i], ref[i+1:]
	}
	if ref == "" {
		return "", fragment
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref, fragment
	}
	if strings.HasPrefix(ref, "/") {
		return strings.TrimPrefix(path.Clean(ref), "/"), fragment
	}
	return path.Join(path.Dir(from), ref), fragment
}

// Keys whose values are data, not subschemas.
var dataKeys = map[string]bool{
	"enum":     true,
	"const":    true,
	"default":  true,
	"examples": true,
	"example":  true,
}

var compositionKinds = map[string]EdgeKind{"allOf": AllOf, "oneOf": OneOf, "anyOf": AnyOf}

type collector struct {
	from string
	refs []Reference
}

// CollectRefs returns every $ref in the document in document order.
// A reference is tagged with the kind of its innermost container.
func CollectRefs(from string, root *Value) []Reference {
	c := &collector{from: from}
	c.walk(root, Ref, "", "", -1)
	return c.refs
}

func (c *collector) walk(v *Value, kind EdgeKind, at, field string, index int) {
	switch {
	case v.IsArray():
		for _, it := range v.Items {
			c.walk(it, kind, at, field, index)
		}
		return
	case !v.IsObject():
		return
	}
	for _, m := range v.Members {
		switch key := m.Key; {
		case key == "$ref":
			if m.Value.IsString() {
				c.add(m.Value.Str, kind, at, field, index)
			}
		case key == "allOf" || key == "oneOf" || key == "anyOf":
			for i, it := range m.Value.List() {
				c.walk(it, compositionKinds[key], at+"<"+key+":"+strconv.Itoa(i)+">", field, i)
			}
		case key == "items":
			c.walk(m.Value, Items, at+"[]", field, -1)
		case key == "additionalProperties":
			c.walk(m.Value, AdditionalProperties, at+"[*]", field, -1)
		case key == "properties":
			for _, p := range m.Value.Entries() {
				f := field
				if f == "" {
					f = p.Key
				}
				c.walk(p.Value, Property, at+"."+p.Key, f, -1)
			}
		case dataKeys[key] || strings.HasPrefix(key, "x-"):
		default:
			c.walk(m.Value, kind, at, field, index)
		}
	}
}

func (c *collector) add(ref string, kind EdgeKind, at, field string, index int) {
	target, fragment := NormalizeRef(c.from, ref)
	if !kind.Composition() {
		index = -1
	}
	c.refs = append(c.refs, Reference{
		Target:   target,
		Fragment: fragment,
		Kind:     kind,
		Path:     at,
		Field:    field,
		Index:    index,
	})
}
