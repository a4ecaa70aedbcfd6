package schema

import (
	"fmt"
	"regexp"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

var fixedFormatLength = map[string]int{"uuid": 36, "date": 10}

// ValidName reports whether name is usable as a component name.
func ValidName(name string) bool { return namePattern.MatchString(name) }

// MalformedError reports a schema that is structurally invalid, as opposed to
// data that fails to conform to a valid schema.
type MalformedError struct {
	Pointer string
	Reason  string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("schema malformed at %s: %s", Display(e.Pointer), e.Reason)
}

func malformed(ptr, format string, args ...any) error {
	return &MalformedError{Pointer: ptr, Reason: fmt.Sprintf(format, args...)}
}

// Check verifies that s and every nested schema is well formed. References
// are checked for syntax only; whether they resolve is the caller's concern.
func Check(s *Schema) error { return check(s, "") }

func check(s *Schema, ptr string) error {
	if s == nil {
		return malformed(ptr, "schema is empty")
	}
	if s.Ref != "" {
		if kw := siblingKeyword(s); kw != "" {
			return malformed(ptr, "reference %q must not carry sibling keyword %s", s.Ref, kw)
		}
		if name := RefName(s.Ref); !ValidName(name) {
			return malformed(ptr, "reference %q is not a valid component name", s.Ref)
		}
		return nil
	}
	if err := checkNode(s, ptr); err != nil {
		return err
	}
	if s.Minimum != nil && s.Maximum != nil && *s.Minimum > *s.Maximum {
		return malformed(ptr, "minimum %v exceeds maximum %v", *s.Minimum, *s.Maximum)
	}
	if s.MinLength != nil && *s.MinLength < 0 {
		return malformed(ptr, "minLength %d is negative", *s.MinLength)
	}
	if s.MaxLength != nil && *s.MaxLength < 0 {
		return malformed(ptr, "maxLength %d is negative", *s.MaxLength)
	}
	if s.MinLength != nil && s.MaxLength != nil && *s.MinLength > *s.MaxLength {
		return malformed(ptr, "minLength %d exceeds maxLength %d", *s.MinLength, *s.MaxLength)
	}
	if n, fixed := fixedFormatLength[s.Format]; fixed && s.Type == String {
		if s.MinLength != nil && *s.MinLength > n || s.MaxLength != nil && *s.MaxLength < n {
			return malformed(ptr, "format %s is always %d characters long, outside minLength/maxLength", s.Format, n)
		}
	}
	if s.Items != nil && s.Type != Array {
		return malformed(ptr, "items is only allowed on array schemas")
	}
	if (s.Properties != nil && s.Properties.Len() > 0 || len(s.Required) > 0) && s.Type != Object {
		return malformed(ptr, "properties and required are only allowed on object schemas")
	}

	switch s.Type {
	case Array:
		return check(s.Items, Join(ptr, "items"))
	case Object:
		props := Join(ptr, "properties")
		if s.Properties != nil {
			for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
				if err := check(pair.Value, Join(props, pair.Key)); err != nil {
					return err
				}
			}
		}
		seen := make(map[string]struct{}, len(s.Required))
		for i, name := range s.Required {
			if _, ok := s.Property(name); !ok {
				return malformed(Index(Join(ptr, "required"), i), "required property %q is not declared", name)
			}
			if _, dup := seen[name]; dup {
				return malformed(Index(Join(ptr, "required"), i), "required property %q is listed twice", name)
			}
			seen[name] = struct{}{}
		}
	}
	return nil
}

// siblingKeyword names the first keyword set next to a reference, or "".
func siblingKeyword(s *Schema) string {
	switch {
	case s.Type != "":
		return "type"
	case s.Description != "":
		return "description"
	case s.Format != "":
		return "format"
	case s.Pattern != "":
		return "pattern"
	case s.MinLength != nil:
		return "minLength"
	case s.MaxLength != nil:
		return "maxLength"
	case s.Minimum != nil:
		return "minimum"
	case s.Maximum != nil:
		return "maximum"
	case s.Enum != nil:
		return "enum"
	case s.Items != nil:
		return "items"
	case s.Properties != nil:
		return "properties"
	case s.Required != nil:
		return "required"
	}
	return ""
}

// checkNode verifies the keywords needed to interpret a single, non-reference
// node. Nested schemas are not visited.
func checkNode(s *Schema, ptr string) error {
	if s.Type == "" {
		return malformed(ptr, "type is absent")
	}
	if !s.Type.Known() {
		return malformed(ptr, "unknown type %q", s.Type)
	}
	if s.Type == Array && s.Items == nil {
		return malformed(ptr, "array schema declares no items")
	}
	if s.Pattern != "" {
		if _, err := regexp.Compile(s.Pattern); err != nil {
			return malformed(ptr, "pattern does not compile: %v", err)
		}
	}
	return nil
}
