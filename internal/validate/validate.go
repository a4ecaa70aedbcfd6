// Package validate checks payloads against schemas and reports every
// violation with its JSON pointer.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mark3labs/oasbuilder/internal/schema"
	"github.com/mark3labs/oasbuilder/internal/value"
)

// Rule names the constraint an Error violates.
const (
	RuleType                = "type"
	RuleRequired            = "required"
	RuleMinimum             = "minimum"
	RuleMaximum             = "maximum"
	RuleMinLength           = "minLength"
	RuleMaxLength           = "maxLength"
	RulePattern             = "pattern"
	RuleFormat              = "format"
	RuleEnum                = "enum"
	RuleUnresolvedReference = "unresolved-reference"
)

// Error is a single violation.
type Error struct {
	Path    string `json:"path" yaml:"path"`
	Message string `json:"message" yaml:"message"`
	Rule    string `json:"ruleViolated" yaml:"ruleViolated"`
}

// Result is the outcome of a validation. A failed validation is a Result,
// not an error.
type Result struct {
	Valid  bool    `json:"valid" yaml:"valid"`
	Errors []Error `json:"errors" yaml:"errors"`
}

// Validate walks v against s, resolving references through r (which may be
// nil). The returned error is non-nil only when the schema itself is
// malformed; it is then a *schema.MalformedError with a pointer into the
// schema. s is checked in full before any data is looked at, and each
// referenced schema when it is first resolved.
func Validate(v any, s *schema.Schema, r schema.Resolver) (Result, error) {
	if r == nil {
		r = schema.Map(nil)
	}
	if err := schema.Check(s); err != nil {
		return Result{}, err
	}
	w := &walker{resolver: r, patterns: map[string]*regexp.Regexp{}, checked: map[string]bool{}, errs: []Error{}}
	if err := w.walk(value.Normalize(v), s, "", nil); err != nil {
		return Result{}, err
	}
	return Result{Valid: len(w.errs) == 0, Errors: w.errs}, nil
}

type walker struct {
	resolver schema.Resolver
	patterns map[string]*regexp.Regexp
	checked  map[string]bool
	errs     []Error
}

func (w *walker) fail(ptr, rule, format string, args ...any) {
	w.errs = append(w.errs, Error{Path: schema.Display(ptr), Message: fmt.Sprintf(format, args...), Rule: rule})
}

// walk validates v at ptr. chain holds the reference names followed at this
// position without consuming any data, to stop alias cycles.
func (w *walker) walk(v any, s *schema.Schema, ptr string, chain []string) error {
	if s == nil {
		return &schema.MalformedError{Pointer: ptr, Reason: "schema is empty"}
	}
	if s.Ref != "" {
		name := schema.RefName(s.Ref)
		for _, seen := range chain {
			if seen == name {
				w.fail(ptr, RuleUnresolvedReference, "reference %q is circular", name)
				return nil
			}
		}
		target, ok := w.resolver.Resolve(name)
		if !ok {
			w.fail(ptr, RuleUnresolvedReference, "reference %q is not registered", name)
			return nil
		}
		if !w.checked[name] {
			if err := schema.Check(target); err != nil {
				var me *schema.MalformedError
				if errors.As(err, &me) {
					return &schema.MalformedError{Pointer: me.Pointer, Reason: fmt.Sprintf("referenced schema %q: %s", name, me.Reason)}
				}
				return err
			}
			w.checked[name] = true
		}
		return w.walk(v, target, ptr, append(chain, name))
	}

	if !w.checkType(v, s.Type, ptr) {
		return nil
	}
	if len(s.Enum) > 0 && !inEnum(v, s.Enum) {
		w.fail(ptr, RuleEnum, "value is not one of the %d allowed values", len(s.Enum))
	}

	switch t := v.(type) {
	case string:
		w.checkString(t, s, ptr)
	case json.Number:
		w.checkNumber(t, s, ptr)
	case []any:
		for i, item := range t {
			if err := w.walk(item, s.Items, schema.Index(ptr, i), nil); err != nil {
				return err
			}
		}
	case *value.Object:
		if s.Properties != nil {
			for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
				child, ok := t.Get(pair.Key)
				if !ok {
					continue
				}
				if err := w.walk(child, pair.Value, schema.Join(ptr, pair.Key), nil); err != nil {
					return err
				}
			}
		}
		for _, name := range s.Required {
			if _, ok := t.Get(name); !ok {
				w.fail(schema.Join(ptr, name), RuleRequired, "required property %q is missing", name)
			}
		}
	}
	return nil
}

func (w *walker) checkType(v any, want schema.Type, ptr string) bool {
	ok := false
	switch want {
	case schema.Null:
		ok = v == nil
	case schema.Boolean:
		_, ok = v.(bool)
	case schema.String:
		_, ok = v.(string)
	case schema.Number:
		_, ok = v.(json.Number)
	case schema.Integer:
		n, isNum := v.(json.Number)
		ok = isNum && value.IsInteger(n)
	case schema.Array:
		_, ok = v.([]any)
	case schema.Object:
		_, ok = v.(*value.Object)
	}
	if !ok {
		w.fail(ptr, RuleType, "expected %s, got %s", want, value.TypeName(v))
	}
	return ok
}

func (w *walker) checkString(str string, s *schema.Schema, ptr string) {
	n := utf8.RuneCountInString(str)
	if s.MinLength != nil && n < *s.MinLength {
		w.fail(ptr, RuleMinLength, "length %d is shorter than %d", n, *s.MinLength)
	}
	if s.MaxLength != nil && n > *s.MaxLength {
		w.fail(ptr, RuleMaxLength, "length %d is longer than %d", n, *s.MaxLength)
	}
	if s.Pattern != "" {
		re, ok := w.patterns[s.Pattern]
		if !ok {
			// Check already compiled it once.
			re = regexp.MustCompile(s.Pattern)
			w.patterns[s.Pattern] = re
		}
		if !re.MatchString(str) {
			w.fail(ptr, RulePattern, "value does not match pattern %q", s.Pattern)
		}
	}
	if s.Format != "" {
		if ok, known := schema.MatchFormat(s.Format, str); known && !ok {
			w.fail(ptr, RuleFormat, "value is not a valid %s", s.Format)
		}
	}
}

func (w *walker) checkNumber(n json.Number, s *schema.Schema, ptr string) {
	f, ok := value.Float(n)
	if !ok {
		return
	}
	if s.Minimum != nil && f < *s.Minimum {
		w.fail(ptr, RuleMinimum, "%s is less than minimum %v", n, *s.Minimum)
	}
	if s.Maximum != nil && f > *s.Maximum {
		w.fail(ptr, RuleMaximum, "%s is greater than maximum %v", n, *s.Maximum)
	}
}

func inEnum(v any, enum []any) bool {
	for _, candidate := range enum {
		if value.Equal(v, value.Normalize(candidate)) {
			return true
		}
	}
	return false
}

// Summary renders the first few errors on one line.
func (r Result) Summary() string {
	if r.Valid {
		return "valid"
	}
	const maxShown = 3
	parts := make([]string, 0, maxShown)
	for i, e := range r.Errors {
		if i == maxShown {
			parts = append(parts, fmt.Sprintf("... (total %d)", len(r.Errors)))
			break
		}
		parts = append(parts, fmt.Sprintf("%s at %s", e.Rule, e.Path))
	}
	return strings.Join(parts, "; ")
}
