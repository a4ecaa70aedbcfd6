package session

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gobuffalo/flect"
	"github.com/stoewer/go-strcase"

	"github.com/mark3labs/oasbuilder/internal/scan"
	"github.com/mark3labs/oasbuilder/internal/schema"
	"github.com/mark3labs/oasbuilder/internal/spec"
)

var pathParam = regexp.MustCompile(`^\{([^{}/]+)\}$`)

// promote adds one endpoint per draft. Drafts whose route is already taken,
// or that the document rejects, are returned as skipped.
func promote(d *spec.Document, drafts []scan.Draft) ([]spec.EndpointSummary, []Skipped) {
	taken := map[string]struct{}{}
	for _, ep := range d.Endpoints() {
		if ep.OperationID != "" {
			taken[ep.OperationID] = struct{}{}
		}
	}

	var added []spec.EndpointSummary
	var skipped []Skipped
	for _, dr := range drafts {
		method, ok := spec.ParseMethod(dr.Method)
		if !ok {
			skipped = append(skipped, Skipped{Method: dr.Method, Path: dr.Path, Line: dr.Line, Reason: "unsupported method"})
			continue
		}
		if _, exists := d.Endpoint(method, dr.Path); exists {
			skipped = append(skipped, Skipped{Method: dr.Method, Path: dr.Path, Line: dr.Line, Reason: "route already exists"})
			continue
		}
		ep := draftEndpoint(method, dr.Path)
		ep.OperationID = uniqueID(ep.OperationID, taken)
		if err := d.AddEndpoint(ep); err != nil {
			skipped = append(skipped, Skipped{Method: dr.Method, Path: dr.Path, Line: dr.Line, Reason: err.Error()})
			continue
		}
		taken[ep.OperationID] = struct{}{}
		added = append(added, spec.EndpointSummary{
			Method:      strings.ToUpper(string(method)),
			Path:        dr.Path,
			OperationID: ep.OperationID,
			Summary:     ep.Summary,
			Tags:        ep.Tags,
		})
	}
	return added, skipped
}

// draftEndpoint names a bare route. GET /users becomes listUsers "List
// users", GET /users/{id} becomes getUser "Get user".
func draftEndpoint(method spec.HttpMethod, path string) spec.Endpoint {
	ep := spec.Endpoint{Method: method, Path: path}

	var statics []string
	endsWithParam := false
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		if m := pathParam.FindStringSubmatch(seg); m != nil {
			ep.Parameters = append(ep.Parameters, spec.Parameter{Name: m[1], In: spec.InPath, Required: true, Schema: schema.Of(schema.String)})
			endsWithParam = true
			continue
		}
		statics = append(statics, seg)
		endsWithParam = false
	}
	if len(statics) > 0 {
		ep.Tags = []string{statics[0]}
	}

	collection := !endsWithParam && len(statics) > 0 && isPlural(statics[len(statics)-1])
	words := []string{verb(method, collection)}
	for i, seg := range statics {
		if i == len(statics)-1 && collection && method == spec.GET {
			words = append(words, seg)
			continue
		}
		words = append(words, flect.Singularize(seg))
	}
	if len(statics) == 0 {
		words = append(words, "root")
	}

	phrase := strings.Join(words, " ")
	ep.OperationID = strcase.LowerCamelCase(phrase)
	ep.Summary = flect.Humanize(strings.ToLower(phrase))
	return ep
}

func isPlural(word string) bool {
	return flect.Pluralize(word) == word && flect.Singularize(word) != word
}

func verb(method spec.HttpMethod, collection bool) string {
	switch method {
	case spec.GET:
		if collection {
			return "list"
		}
		return "get"
	case spec.POST:
		return "create"
	case spec.PUT, spec.PATCH:
		return "update"
	case spec.DELETE:
		return "delete"
	}
	return string(method)
}

func uniqueID(id string, taken map[string]struct{}) string {
	if _, dup := taken[id]; !dup {
		return id
	}
	for n := 2; ; n++ {
		candidate := id + strconv.Itoa(n)
		if _, dup := taken[candidate]; !dup {
			return candidate
		}
	}
}

// String renders a skipped draft for logs and CLI output.
func (s Skipped) String() string {
	return fmt.Sprintf("%s %s (line %d): %s", s.Method, s.Path, s.Line, s.Reason)
}
