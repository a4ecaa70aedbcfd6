package schema

import (
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Type is the JSON type a Schema describes.
type Type string

const (
	Null    Type = "null"
	Boolean Type = "boolean"
	Integer Type = "integer"
	Number  Type = "number"
	String  Type = "string"
	Array   Type = "array"
	Object  Type = "object"
)

// Known reports whether t is one of the seven supported types.
func (t Type) Known() bool {
	switch t {
	case Null, Boolean, Integer, Number, String, Array, Object:
		return true
	}
	return false
}

// RefPrefix prefixes component schema references in exported documents.
const RefPrefix = "#/components/schemas/"

// Properties keeps object properties in insertion order.
type Properties = orderedmap.OrderedMap[string, *Schema]

// Schema is a JSON-Schema-like type description. A schema with Ref set is a
// named pointer into a registry and carries no other keyword.
type Schema struct {
	Ref         string   `json:"$ref,omitempty" yaml:"$ref,omitempty"`
	Type        Type     `json:"type,omitempty" yaml:"type,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Format      string   `json:"format,omitempty" yaml:"format,omitempty"`
	Pattern     string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	MinLength   *int     `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength   *int     `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Minimum     *float64 `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum     *float64 `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	Enum        []any    `json:"enum,omitempty" yaml:"enum,omitempty"`

	Items      *Schema     `json:"items,omitempty" yaml:"items,omitempty"`
	Properties *Properties `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required   []string    `json:"required,omitempty" yaml:"required,omitempty"`
}

// Ref returns a reference to the named registry entry. Full pointers such as
// "#/components/schemas/Pet" are reduced to the name.
func Ref(name string) *Schema { return &Schema{Ref: RefName(name)} }

// Of returns an unconstrained schema of type t.
func Of(t Type) *Schema { return &Schema{Type: t} }

// ArrayOf returns an array schema with the given item schema.
func ArrayOf(items *Schema) *Schema { return &Schema{Type: Array, Items: items} }

// NewObject returns an object schema with an empty, ordered property set.
func NewObject() *Schema {
	return &Schema{Type: Object, Properties: orderedmap.New[string, *Schema]()}
}

// RefName strips the component pointer prefix from ref.
func RefName(ref string) string {
	return strings.TrimPrefix(strings.TrimSpace(ref), RefPrefix)
}

// IsRef reports whether s is a reference.
func (s *Schema) IsRef() bool { return s != nil && s.Ref != "" }

// SetProperty adds or replaces a property and returns s for chaining.
func (s *Schema) SetProperty(name string, prop *Schema, required bool) *Schema {
	if s.Properties == nil {
		s.Properties = orderedmap.New[string, *Schema]()
	}
	s.Properties.Set(name, prop)
	if required && !s.IsRequired(name) {
		s.Required = append(s.Required, name)
	}
	return s
}

// Property returns the named property.
func (s *Schema) Property(name string) (*Schema, bool) {
	if s == nil || s.Properties == nil {
		return nil, false
	}
	return s.Properties.Get(name)
}

// IsRequired reports whether name is listed in Required.
func (s *Schema) IsRequired(name string) bool {
	if s == nil {
		return false
	}
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of s.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	out := *s
	if s.MinLength != nil {
		v := *s.MinLength
		out.MinLength = &v
	}
	if s.MaxLength != nil {
		v := *s.MaxLength
		out.MaxLength = &v
	}
	if s.Minimum != nil {
		v := *s.Minimum
		out.Minimum = &v
	}
	if s.Maximum != nil {
		v := *s.Maximum
		out.Maximum = &v
	}
	if s.Enum != nil {
		out.Enum = append([]any(nil), s.Enum...)
	}
	if s.Required != nil {
		out.Required = append([]string(nil), s.Required...)
	}
	out.Items = s.Items.Clone()
	if s.Properties != nil {
		out.Properties = orderedmap.New[string, *Schema]()
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			out.Properties.Set(pair.Key, pair.Value.Clone())
		}
	}
	return &out
}

// NormalizeRefs rewrites every reference in the tree to its bare name.
func (s *Schema) NormalizeRefs() {
	Walk(s, "", func(_ string, n *Schema) {
		if n.Ref != "" {
			n.Ref = RefName(n.Ref)
		}
	})
}

// Use is a reference found inside a schema tree.
type Use struct {
	Pointer string
	Name    string
}

// References lists every reference in s with its pointer relative to base.
func References(s *Schema, base string) []Use {
	var uses []Use
	Walk(s, base, func(ptr string, n *Schema) {
		if n.Ref != "" {
			uses = append(uses, Use{Pointer: ptr, Name: RefName(n.Ref)})
		}
	})
	return uses
}

// Walk visits s and all nested schemas depth-first. References are not
// followed.
func Walk(s *Schema, ptr string, fn func(ptr string, n *Schema)) {
	if s == nil {
		return
	}
	fn(ptr, s)
	if s.Items != nil {
		Walk(s.Items, Join(ptr, "items"), fn)
	}
	if s.Properties != nil {
		props := Join(ptr, "properties")
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			Walk(pair.Value, Join(props, pair.Key), fn)
		}
	}
}

// Resolver looks up registered schemas by name.
type Resolver interface {
	Resolve(name string) (*Schema, bool)
}

// Map is a Resolver backed by a plain map.
type Map map[string]*Schema

// Resolve implements Resolver.
func (m Map) Resolve(name string) (*Schema, bool) {
	s, ok := m[name]
	return s, ok && s != nil
}
