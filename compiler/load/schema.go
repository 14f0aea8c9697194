package load

import (
	"fmt"
	"path"
	"strings"

	jsoncanonicalizer "github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"github.com/opencontainers/go-digest"
)

// Schema represents one schema document that was loaded from the corpus.
// It is created once and never mutated by later passes.
type Schema struct {
	ID          string        `json:"id"`
	Path        string        `json:"path"`
	Name        string        `json:"name"`
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description,omitempty"`
	Ext         Extensions    `json:"ext,omitempty"`
	Fields      []*Field      `json:"fields,omitempty"`
	Refs        []Reference   `json:"refs,omitempty"`
	Digest      digest.Digest `json:"digest"`
	// Raw is the parsed document. Only shape detection reads it.
	Raw *Value `json:"-"`
}

// Field represents one declared property of a schema.
type Field struct {
	Name string `json:"name"`
	// Ref is the normalized target of a direct reference, if any.
	Ref string `json:"ref,omitempty"`
	// Type is the inline JSON type keyword, if any.
	Type     string `json:"type,omitempty"`
	Required bool   `json:"required,omitempty"`
}

// NewSchema extracts the metadata of the document at path.
func NewSchema(p string, raw *Value) (*Schema, error) {
	if !raw.IsObject() {
		return nil, fmt.Errorf("top-level value is %s, want object", kindOf(raw))
	}
	s := &Schema{
		Path: p,
		Raw:  raw,
		Ext:  ParseExtensions(raw),
		Refs: CollectRefs(p, raw),
	}
	s.ID, _ = raw.Text("$id")
	if s.ID == "" {
		s.ID = p
	}
	s.Title, _ = raw.Text("title")
	s.Description, _ = raw.Text("description")
	s.Name = s.Title
	if s.Name == "" {
		s.Name = FileStem(p)
	}
	s.Fields = fields(p, raw)
	d, err := Digest(raw)
	if err != nil {
		return nil, err
	}
	s.Digest = d
	return s, nil
}

// FileStem returns the base name without extension and ".schema" suffix.
func FileStem(p string) string {
	base := path.Base(p)
	base = strings.TrimSuffix(base, path.Ext(base))
	return strings.TrimSuffix(base, ".schema")
}

// Digest returns the digest of the canonical JSON form of v, so two
// documents differing only in key order or whitespace hash equally.
func Digest(v *Value) (digest.Digest, error) {
	b, err := v.MarshalJSON()
	if err != nil {
		return "", err
	}
	canon, err := jsoncanonicalizer.Transform(b)
	if err != nil {
		return "", fmt.Errorf("canonicalize: %w", err)
	}
	return digest.FromBytes(canon), nil
}

func fields(from string, raw *Value) []*Field {
	props := raw.Get("properties")
	if !props.IsObject() {
		return nil
	}
	required := map[string]bool{}
	for _, r := range raw.Get("required").List() {
		if r.IsString() {
			required[r.Str] = true
		}
	}
	out := make([]*Field, 0, len(props.Members))
	for _, m := range props.Members {
		f := &Field{Name: m.Key, Required: required[m.Key]}
		if ref, ok := directRef(m.Value); ok {
			f.Ref, _ = NormalizeRef(from, ref)
		}
		f.Type, _ = m.Value.Text("type")
		out = append(out, f)
	}
	return out
}

// directRef returns the reference of {"$ref": X} or {"allOf": [{"$ref": X}]}.
func directRef(v *Value) (string, bool) {
	if ref, ok := v.Text("$ref"); ok {
		return ref, true
	}
	if all := v.Get("allOf"); all.IsArray() && len(all.Items) == 1 {
		return all.Items[0].Text("$ref")
	}
	return "", false
}

func kindOf(v *Value) string {
	if v == nil {
		return "empty"
	}
	return v.Kind.String()
}
