// Package infer derives a schema from a single example value.
//
// Inference from one sample is approximate. Requiredness in particular is a
// guess: by default a property is required when the sample carries a non-null
// value for it. WithRequiredPolicy changes that rule.
package infer

import (
	"encoding/json"

	"github.com/mark3labs/oasbuilder/internal/schema"
	"github.com/mark3labs/oasbuilder/internal/value"
)

// RequiredPolicy decides which sampled object keys become required.
type RequiredPolicy string

const (
	// RequiredNonNull marks keys whose sampled value is not null.
	RequiredNonNull RequiredPolicy = "non-null"
	// RequiredAll marks every sampled key.
	RequiredAll RequiredPolicy = "all"
	// RequiredNone marks no key.
	RequiredNone RequiredPolicy = "none"
)

// ParseRequiredPolicy maps a policy name to its value.
func ParseRequiredPolicy(s string) (RequiredPolicy, bool) {
	switch RequiredPolicy(s) {
	case RequiredNonNull, RequiredAll, RequiredNone:
		return RequiredPolicy(s), true
	case "":
		return RequiredNonNull, true
	}
	return "", false
}

// Settings configures inference.
type Settings struct {
	Required      RequiredPolicy
	DetectFormats bool
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{Required: RequiredNonNull}
}

// Option mutates Settings.
type Option func(*Settings)

func WithRequiredPolicy(p RequiredPolicy) Option { return func(s *Settings) { s.Required = p } }
func WithFormatDetection(on bool) Option         { return func(s *Settings) { s.DetectFormats = on } }

// Infer returns a schema describing v. It never fails: values outside the
// JSON model are normalized through a JSON round trip first.
func Infer(v any, opts ...Option) *schema.Schema {
	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	return infer(value.Normalize(v), &settings)
}

func infer(v any, settings *Settings) *schema.Schema {
	switch t := v.(type) {
	case nil:
		return schema.Of(schema.Null)
	case bool:
		return schema.Of(schema.Boolean)
	case string:
		s := schema.Of(schema.String)
		if settings.DetectFormats {
			s.Format = schema.DetectFormat(t)
		}
		return s
	case json.Number:
		if value.IsInteger(t) {
			return schema.Of(schema.Integer)
		}
		return schema.Of(schema.Number)
	case []any:
		if len(t) == 0 {
			// Nothing to learn from; string is the documented placeholder.
			return schema.ArrayOf(schema.Of(schema.String))
		}
		items := infer(t[0], settings)
		for _, e := range t[1:] {
			if merged, ok := merge(items, infer(e, settings)); ok {
				items = merged
			}
		}
		return schema.ArrayOf(items)
	case *value.Object:
		obj := schema.NewObject()
		for pair := t.Oldest(); pair != nil; pair = pair.Next() {
			obj.SetProperty(pair.Key, infer(pair.Value, settings), isRequired(pair.Value, settings.Required))
		}
		return obj
	}
	return schema.Of(schema.String)
}

func isRequired(v any, policy RequiredPolicy) bool {
	switch policy {
	case RequiredAll:
		return true
	case RequiredNone:
		return false
	}
	return v != nil
}

// merge widens a so that it also describes b. Integer and number widen to
// number, objects take the union of their properties and keep only keys
// required by both, and arrays merge their items. Where two types cannot
// share one schema the first is kept; ok is false when that happens at the
// top level.
func merge(a, b *schema.Schema) (*schema.Schema, bool) {
	switch {
	case a.Type == b.Type:
	case isNumeric(a.Type) && isNumeric(b.Type):
		return schema.Of(schema.Number), true
	default:
		return a, false
	}

	switch a.Type {
	case schema.String:
		if a.Format != b.Format {
			return schema.Of(schema.String), true
		}
		return a, true
	case schema.Array:
		if items, ok := merge(a.Items, b.Items); ok {
			return schema.ArrayOf(items), true
		}
		return a, true
	case schema.Object:
		out := schema.NewObject()
		for pair := a.Properties.Oldest(); pair != nil; pair = pair.Next() {
			prop := pair.Value
			if other, found := b.Property(pair.Key); found {
				if merged, ok := merge(prop, other); ok {
					prop = merged
				}
			}
			out.SetProperty(pair.Key, prop, a.IsRequired(pair.Key) && b.IsRequired(pair.Key))
		}
		for pair := b.Properties.Oldest(); pair != nil; pair = pair.Next() {
			if _, found := a.Property(pair.Key); !found {
				out.SetProperty(pair.Key, pair.Value, false)
			}
		}
		return out, true
	}
	return a, true
}

func isNumeric(t schema.Type) bool { return t == schema.Integer || t == schema.Number }
