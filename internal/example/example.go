// Package example synthesizes representative values from schemas.
package example

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/mark3labs/oasbuilder/internal/schema"
	"github.com/mark3labs/oasbuilder/internal/value"
)

var formatLiterals = map[string]string{
	"email":     "user@example.com",
	"date-time": "2024-01-01T00:00:00Z",
	"date":      "2024-01-01",
	"uri":       "https://example.com",
	"hostname":  "example.com",
	"ipv4":      "192.0.2.1",
	"ipv6":      "2001:db8::1",
}

// Generate returns an example value for s. References resolve through r; a
// dangling reference yields nil so partial documents still preview.
func Generate(s *schema.Schema, r schema.Resolver) any {
	if r == nil {
		r = schema.Map(nil)
	}
	g := &generator{resolver: r, active: map[string]bool{}}
	v, _ := g.gen(s, "")
	return v
}

type generator struct {
	resolver schema.Resolver
	active   map[string]bool
}

// gen reports recursive=true when s re-enters a reference that is already
// being generated further up.
func (g *generator) gen(s *schema.Schema, ptr string) (v any, recursive bool) {
	if s == nil {
		return nil, false
	}
	if s.Ref != "" {
		name := schema.RefName(s.Ref)
		if g.active[name] {
			return nil, true
		}
		target, ok := g.resolver.Resolve(name)
		if !ok {
			return nil, false
		}
		g.active[name] = true
		defer delete(g.active, name)
		return g.gen(target, ptr)
	}
	if len(s.Enum) > 0 {
		return value.Normalize(s.Enum[0]), false
	}

	switch s.Type {
	case schema.Null:
		return nil, false
	case schema.Boolean:
		return true, false
	case schema.Integer:
		return json.Number(strconv.FormatFloat(integerExample(s), 'f', -1, 64)), false
	case schema.Number:
		return json.Number(strconv.FormatFloat(numberExample(s), 'g', -1, 64)), false
	case schema.String:
		return stringExample(s, ptr), false
	case schema.Array:
		item, rec := g.gen(s.Items, schema.Index(ptr, 0))
		if rec {
			return []any{}, false
		}
		return []any{item}, false
	case schema.Object:
		obj := value.NewObject()
		if s.Properties != nil {
			for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
				prop, rec := g.gen(pair.Value, schema.Join(ptr, pair.Key))
				if rec && !s.IsRequired(pair.Key) {
					continue
				}
				obj.Set(pair.Key, prop)
			}
		}
		return obj, false
	}
	return nil, false
}

// integerExample is integral but may exceed the int64 range, so callers
// format it as a float.
func integerExample(s *schema.Schema) float64 {
	var f float64
	switch {
	case s.Minimum != nil:
		f = math.Ceil(*s.Minimum)
	case s.Maximum != nil && *s.Maximum < 0:
		f = math.Floor(*s.Maximum)
	}
	if f == 0 {
		return 0 // no "-0"
	}
	return f
}

func numberExample(s *schema.Schema) float64 {
	switch {
	case s.Minimum != nil:
		return *s.Minimum
	case s.Maximum != nil && *s.Maximum < 0:
		return *s.Maximum
	}
	return 0
}

// shortest holds the shortest value satisfying each format that grow can
// lengthen.
var shortest = map[string]string{
	"":          "",
	"email":     "a@b.co",
	"uri":       "http://a",
	"hostname":  "a",
	"date-time": "2024-01-01T00:00:00Z",
}

func stringExample(s *schema.Schema, ptr string) string {
	if s.Format == "uuid" {
		// Stable per location so repeated generations diff cleanly.
		return uuid.NewSHA1(uuid.NameSpaceURL, []byte("example:"+schema.Display(ptr))).String()
	}
	out, ok := formatLiterals[s.Format]
	if !ok {
		out = "string"
	}
	short, growable := shortest[s.Format]
	if !ok && !growable {
		// Unknown format: any string passes, only the length bounds matter.
		short, growable = "", true
	}
	if !growable {
		return out
	}

	if s.MaxLength != nil && len(out) > *s.MaxLength {
		switch {
		case s.Format == "" || !ok:
			out = out[:*s.MaxLength]
		case len(short) <= *s.MaxLength:
			out = short
		default:
			// No value of this format is short enough; the format wins.
			return out
		}
	}
	if s.MinLength != nil && len(out) < *s.MinLength {
		out = grow(s.Format, out, *s.MinLength-len(out))
	}
	return out
}

// grow lengthens a value of the given format by n characters, keeping it
// valid for that format.
func grow(format, v string, n int) string {
	switch format {
	case "email":
		at := strings.IndexByte(v, '@')
		return v[:at] + strings.Repeat("x", n) + v[at:]
	case "uri":
		return v + "/" + strings.Repeat("x", n-1)
	case "hostname":
		var prefix strings.Builder
		for n >= 2 {
			k := min(n-1, 63)
			prefix.WriteString(strings.Repeat("x", k) + ".")
			n -= k + 1
		}
		if n == 1 {
			v = "x" + v
		}
		return prefix.String() + v
	case "date-time":
		// Fractional seconds; a single extra character cannot be added.
		if n < 2 {
			n = 2
		}
		return strings.TrimSuffix(v, "Z") + "." + strings.Repeat("0", n-1) + "Z"
	}
	return v + strings.Repeat("x", n)
}
