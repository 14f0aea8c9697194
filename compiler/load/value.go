package load

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"
)

// Kind is the JSON type of a Value.
type Kind uint8

// Value kinds.
const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

var kindNames = [...]string{"null", "boolean", "number", "string", "array", "object"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a parsed JSON or YAML tree. Unlike map[string]any it keeps
// object members in document order, which decides field and variant order
// in generated code.
type Value struct {
	Kind    Kind
	Bool    bool
	Number  string // literal text of a number
	Str     string
	Items   []*Value
	Members []Member
}

// Member is one key/value pair of an object.
type Member struct {
	Key   string
	Value *Value
}

// NewString returns a string value.
func NewString(s string) *Value { return &Value{Kind: KindString, Str: s} }

// NewObject returns an object value with the given members.
func NewObject(members ...Member) *Value { return &Value{Kind: KindObject, Members: members} }

// NewArray returns an array value.
func NewArray(items ...*Value) *Value { return &Value{Kind: KindArray, Items: items} }

// IsObject reports whether v is a non-nil object.
func (v *Value) IsObject() bool { return v != nil && v.Kind == KindObject }

// IsArray reports whether v is a non-nil array.
func (v *Value) IsArray() bool { return v != nil && v.Kind == KindArray }

// IsString reports whether v is a non-nil string.
func (v *Value) IsString() bool { return v != nil && v.Kind == KindString }

// Get returns the member value for key, or nil. It is nil-safe.
func (v *Value) Get(key string) *Value {
	if !v.IsObject() {
		return nil
	}
	for _, m := range v.Members {
		if m.Key == key {
			return m.Value
		}
	}
	return nil
}

// List returns the array items. It is nil-safe and returns nil for
// anything but an array.
func (v *Value) List() []*Value {
	if !v.IsArray() {
		return nil
	}
	return v.Items
}

// Entries returns the object members. It is nil-safe and returns nil for
// anything but an object.
func (v *Value) Entries() []Member {
	if !v.IsObject() {
		return nil
	}
	return v.Members
}

// Has reports whether the object has the key.
func (v *Value) Has(key string) bool {
	return v.Get(key) != nil
}

// Text returns the member string for key.
func (v *Value) Text(key string) (string, bool) {
	m := v.Get(key)
	if !m.IsString() {
		return "", false
	}
	return m.Str, true
}

// Keys returns the object keys in document order.
func (v *Value) Keys() []string {
	if !v.IsObject() {
		return nil
	}
	keys := make([]string, len(v.Members))
	for i, m := range v.Members {
		keys[i] = m.Key
	}
	return keys
}

// Set replaces the member for key or appends it.
func (v *Value) Set(key string, val *Value) {
	for i, m := range v.Members {
		if m.Key == key {
			v.Members[i].Value = val
			return
		}
	}
	v.Members = append(v.Members, Member{Key: key, Value: val})
}

// Truthy reports whether the value is boolean true.
func (v *Value) Truthy() bool {
	return v != nil && v.Kind == KindBool && v.Bool
}

// Interface converts the tree into plain Go values. Object order is lost.
func (v *Value) Interface() any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindNumber:
		return json.Number(v.Number)
	case KindString:
		return v.Str
	case KindArray:
		out := make([]any, len(v.Items))
		for i, it := range v.Items {
			out[i] = it.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.Members))
		for _, m := range v.Members {
			out[m.Key] = m.Value.Interface()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON encodes the tree keeping member order.
func (v *Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v *Value) encode(buf *bytes.Buffer) error {
	if v == nil {
		buf.WriteString("null")
		return nil
	}
	switch v.Kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.Bool))
	case KindNumber:
		buf.WriteString(v.Number)
	case KindString:
		b, err := json.Marshal(v.Str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindArray:
		buf.WriteByte('[')
		for i, it := range v.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := it.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, m := range v.Members {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(m.Key)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := m.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}
