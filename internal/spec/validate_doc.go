package spec

import (
	"fmt"
	"regexp"

	"github.com/mark3labs/oasbuilder/internal/schema"
)

// Problem codes reported by ValidateDocument.
const (
	ProblemDanglingReference = "dangling-reference"
	ProblemStructural        = "structural"
	ProblemDuplicateRoute    = "duplicate-route"
	ProblemPathParameter     = "path-parameter"
)

// Problem is one finding of ValidateDocument, located by JSON pointer into
// the exported layout.
type Problem struct {
	Path    string `json:"path" yaml:"path"`
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"` // the missing component, for dangling references
}

// Report is the outcome of ValidateDocument.
type Report struct {
	Valid  bool      `json:"valid" yaml:"valid"`
	Errors []Problem `json:"errors" yaml:"errors"`
}

// Has reports whether the report contains a problem with code.
func (r Report) Has(code string) bool {
	for _, p := range r.Errors {
		if p.Code == code {
			return true
		}
	}
	return false
}

var templateParam = regexp.MustCompile(`\{([^{}/]+)\}`)

// ValidateDocument checks referential integrity and route uniqueness of the
// whole document. Problems are reported, never returned as errors.
func ValidateDocument(d *Document) Report {
	problems := []Problem{}

	for pair := d.schemas.Oldest(); pair != nil; pair = pair.Next() {
		base := schema.Join("/components/schemas", pair.Key)
		if err := checkSchema(pair.Value, base); err != nil {
			problems = append(problems, Problem{Path: err.Pointer, Code: ProblemStructural, Message: err.Message})
		}
		for _, use := range schema.References(pair.Value, base) {
			if _, ok := d.schemas.Get(use.Name); !ok {
				problems = append(problems, Problem{
					Path:    use.Pointer,
					Code:    ProblemDanglingReference,
					Message: fmt.Sprintf("schema %q is not registered", use.Name),
					Name:    use.Name,
				})
			}
		}
	}

	seenShape := map[string]RouteKey{}
	for pair := d.endpoints.Oldest(); pair != nil; pair = pair.Next() {
		ep := pair.Value
		key := ep.Key()
		ptr := operationPointer(key)
		for _, p := range d.danglingInEndpoint(ep) {
			problems = append(problems, p.Problem)
		}

		// Keys are unique in the endpoint map, so two routes collide only
		// when their templates differ in parameter names alone.
		shape := string(key.Method) + " " + templateParam.ReplaceAllString(key.Path, "{}")
		if prev, ok := seenShape[shape]; ok {
			problems = append(problems, Problem{
				Path:    ptr,
				Code:    ProblemDuplicateRoute,
				Message: fmt.Sprintf("endpoint %s matches the same requests as %s", key, prev),
			})
		} else {
			seenShape[shape] = key
		}

		problems = append(problems, pathParameterProblems(ep, ptr)...)
	}

	return Report{Valid: len(problems) == 0, Errors: problems}
}

// pathParameterProblems pairs the {param} segments of the path template with
// the declared in: path parameters.
func pathParameterProblems(ep *Endpoint, ptr string) []Problem {
	var out []Problem
	inTemplate := map[string]struct{}{}
	for _, m := range templateParam.FindAllStringSubmatch(ep.Path, -1) {
		inTemplate[m[1]] = struct{}{}
	}
	declared := map[string]struct{}{}
	for i, p := range ep.Parameters {
		if p.In != InPath {
			continue
		}
		declared[p.Name] = struct{}{}
		if _, ok := inTemplate[p.Name]; !ok {
			out = append(out, Problem{
				Path:    schema.Index(schema.Join(ptr, "parameters"), i),
				Code:    ProblemPathParameter,
				Message: fmt.Sprintf("path parameter %q does not appear in %s", p.Name, ep.Path),
			})
		}
	}
	for _, m := range templateParam.FindAllStringSubmatch(ep.Path, -1) {
		if _, ok := declared[m[1]]; !ok {
			out = append(out, Problem{
				Path:    schema.Join(ptr, "parameters"),
				Code:    ProblemPathParameter,
				Message: fmt.Sprintf("path template variable {%s} has no in: path parameter", m[1]),
			})
		}
	}
	return out
}

// danglingNames collects the distinct components behind dangling-reference
// problems, in report order.
func danglingNames(r Report) []string {
	var names []string
	seen := map[string]struct{}{}
	for _, p := range r.Errors {
		if p.Code != ProblemDanglingReference {
			continue
		}
		if _, dup := seen[p.Name]; dup {
			continue
		}
		seen[p.Name] = struct{}{}
		names = append(names, p.Name)
	}
	return names
}
