package spec

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/mark3labs/oasbuilder/internal/schema"
)

// DefaultContentType is used for bodies and responses that name none.
const DefaultContentType = "application/json"

var statusCodePattern = regexp.MustCompile(`^(?:[1-5][0-9]{2}|[1-5]XX|default)$`)

// Document is the in-memory API description. Endpoints, schemas and security
// schemes keep insertion order; re-registering a schema or security scheme
// replaces its body in place.
//
// Every mutating method either succeeds completely or leaves the document
// unchanged. Document is not safe for concurrent use; session.Session
// serializes access.
type Document struct {
	Title       string
	Version     string
	Description string
	Servers     []Server

	endpoints       *orderedmap.OrderedMap[RouteKey, *Endpoint]
	schemas         *orderedmap.OrderedMap[string, *schema.Schema]
	securitySchemes *orderedmap.OrderedMap[string, *SecurityScheme]
}

// NewDocument returns an empty document. Title and version are required.
func NewDocument(title, version, description string, servers []Server) (*Document, error) {
	title, version = strings.TrimSpace(title), strings.TrimSpace(version)
	if title == "" {
		return nil, structural("/info/title", "title is required")
	}
	if version == "" {
		return nil, structural("/info/version", "version is required")
	}
	out := make([]Server, 0, len(servers))
	for i, s := range servers {
		s.URL = strings.TrimSpace(s.URL)
		if s.URL == "" {
			return nil, structural(schema.Join(schema.Index("/servers", i), "url"), "server url is required")
		}
		out = append(out, s)
	}
	return &Document{
		Title:           title,
		Version:         version,
		Description:     strings.TrimSpace(description),
		Servers:         out,
		endpoints:       orderedmap.New[RouteKey, *Endpoint](),
		schemas:         orderedmap.New[string, *schema.Schema](),
		securitySchemes: orderedmap.New[string, *SecurityScheme](),
	}, nil
}

func structural(ptr, format string, args ...any) *SpecError {
	return &SpecError{Code: Structural, Message: fmt.Sprintf(format, args...), Pointer: ptr}
}

// RegisterSchema stores s under name, replacing any previous definition. The
// stored value is a normalized copy: "#/components/schemas/X" references are
// reduced to "X".
func (d *Document) RegisterSchema(name string, s *schema.Schema) error {
	base := schema.Join("/components/schemas", name)
	if !schema.ValidName(name) {
		return &SpecError{Code: Structural, Message: fmt.Sprintf("schema name %q is not a valid component name", name), Pointer: base, Names: []string{name}}
	}
	stored := s.Clone()
	stored.NormalizeRefs()
	if err := checkSchema(stored, base); err != nil {
		err.Names = []string{name}
		return err
	}
	d.schemas.Set(name, stored)
	return nil
}

// checkSchema wraps schema.Check, rebasing the malformed pointer onto base.
func checkSchema(s *schema.Schema, base string) *SpecError {
	err := schema.Check(s)
	if err == nil {
		return nil
	}
	var me *schema.MalformedError
	if errors.As(err, &me) {
		return &SpecError{
			Code:    Structural,
			Message: fmt.Sprintf("schema malformed at %s: %s", base+me.Pointer, me.Reason),
			Pointer: base + me.Pointer,
			Cause:   err,
		}
	}
	return &SpecError{Code: Structural, Message: err.Error(), Pointer: base, Cause: err}
}

// RegisterSecurityScheme stores scheme under name, replacing any previous
// definition.
func (d *Document) RegisterSecurityScheme(name string, scheme SecurityScheme) error {
	base := schema.Join("/components/securitySchemes", name)
	if !schema.ValidName(name) {
		return &SpecError{Code: Structural, Message: fmt.Sprintf("security scheme name %q is not a valid component name", name), Pointer: base, Names: []string{name}}
	}
	normalized, err := normalizeScheme(scheme, base)
	if err != nil {
		err.Names = []string{name}
		return err
	}
	d.securitySchemes.Set(name, normalized)
	return nil
}

// AddEndpoint validates ep and appends it. It fails with DuplicateRoute when
// the method and path are taken and with DanglingReference when a schema or
// security scheme it names is not registered yet.
func (d *Document) AddEndpoint(ep Endpoint) error {
	normalized, err := normalizeEndpoint(ep)
	if err != nil {
		return err
	}
	key := normalized.Key()
	if _, exists := d.endpoints.Get(key); exists {
		return &SpecError{
			Code:    DuplicateRoute,
			Message: fmt.Sprintf("endpoint %s already exists", key),
			Pointer: operationPointer(key),
		}
	}
	if dangling := d.danglingInEndpoint(normalized); len(dangling) > 0 {
		names := make([]string, 0, len(dangling))
		for _, p := range dangling {
			names = append(names, p.Name)
		}
		return &SpecError{
			Code:    DanglingReference,
			Message: fmt.Sprintf("endpoint %s references unregistered %s", key, describeDangling(dangling)),
			Pointer: dangling[0].Path,
			Names:   names,
		}
	}
	d.endpoints.Set(key, normalized)
	return nil
}

func describeDangling(ps []danglingRef) string {
	parts := make([]string, 0, len(ps))
	for _, p := range ps {
		parts = append(parts, fmt.Sprintf("%s %q", p.kind, p.Name))
	}
	return strings.Join(parts, ", ")
}

// normalizeEndpoint returns a deep, validated copy of ep with lowercase
// method, collapsed tags, forced path-parameter requiredness and default
// content types.
func normalizeEndpoint(ep Endpoint) (*Endpoint, error) {
	method, ok := ParseMethod(string(ep.Method))
	if !ok {
		return nil, &SpecError{Code: Structural, Message: fmt.Sprintf("unsupported HTTP method %q", ep.Method)}
	}
	path := strings.TrimSpace(ep.Path)
	if !strings.HasPrefix(path, "/") {
		return nil, &SpecError{Code: Structural, Message: fmt.Sprintf("path %q must start with /", ep.Path)}
	}
	out := ep
	out.Method = method
	out.Path = path
	base := operationPointer(out.Key())

	out.Tags = nil
	seenTags := map[string]struct{}{}
	for _, t := range ep.Tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seenTags[t]; dup {
			continue
		}
		seenTags[t] = struct{}{}
		out.Tags = append(out.Tags, t)
	}

	out.Parameters = make([]Parameter, 0, len(ep.Parameters))
	seenParams := map[string]struct{}{}
	for i, p := range ep.Parameters {
		ptr := schema.Index(schema.Join(base, "parameters"), i)
		if strings.TrimSpace(p.Name) == "" {
			return nil, structural(schema.Join(ptr, "name"), "parameter name is required")
		}
		switch p.In {
		case InPath:
			p.Required = true
		case InQuery, InHeader, InCookie:
		default:
			return nil, structural(schema.Join(ptr, "in"), "parameter %q has unsupported location %q", p.Name, p.In)
		}
		id := string(p.In) + ":" + p.Name
		if _, dup := seenParams[id]; dup {
			return nil, structural(ptr, "parameter %q in %s is declared twice", p.Name, p.In)
		}
		seenParams[id] = struct{}{}
		if p.Schema == nil {
			p.Schema = schema.Of(schema.String)
		}
		s, err := normalizedSchema(p.Schema, schema.Join(ptr, "schema"))
		if err != nil {
			return nil, err
		}
		p.Schema = s
		out.Parameters = append(out.Parameters, p)
	}

	if ep.RequestBody != nil {
		body := *ep.RequestBody
		if body.ContentType == "" {
			body.ContentType = DefaultContentType
		}
		if body.Schema != nil {
			s, err := normalizedSchema(body.Schema, schema.Join(schema.Join(schema.Join(base, "requestBody"), "content"), body.ContentType)+"/schema")
			if err != nil {
				return nil, err
			}
			body.Schema = s
		}
		out.RequestBody = &body
	}

	out.Responses = make(map[string]Response, len(ep.Responses))
	for code, r := range ep.Responses {
		ptr := schema.Join(schema.Join(base, "responses"), code)
		if !statusCodePattern.MatchString(code) {
			return nil, structural(ptr, "response key %q is not a status code, range or default", code)
		}
		if r.Description == "" {
			r.Description = defaultDescription(code)
		}
		if r.Schema != nil {
			if r.ContentType == "" {
				r.ContentType = DefaultContentType
			}
			s, err := normalizedSchema(r.Schema, schema.Join(schema.Join(ptr, "content"), r.ContentType)+"/schema")
			if err != nil {
				return nil, err
			}
			r.Schema = s
		}
		out.Responses[code] = r
	}
	if len(out.Responses) == 0 {
		out.Responses["default"] = Response{Description: defaultDescription("default")}
	}

	out.Security = make([]SecurityRequirement, 0, len(ep.Security))
	for i, req := range ep.Security {
		if strings.TrimSpace(req.Scheme) == "" {
			return nil, structural(schema.Index(schema.Join(base, "security"), i), "security requirement names no scheme")
		}
		req.Scopes = append([]string(nil), req.Scopes...)
		out.Security = append(out.Security, req)
	}
	if len(out.Security) == 0 {
		out.Security = nil
	}
	return &out, nil
}

func normalizedSchema(s *schema.Schema, ptr string) (*schema.Schema, error) {
	c := s.Clone()
	c.NormalizeRefs()
	if err := checkSchema(c, ptr); err != nil {
		return nil, err
	}
	return c, nil
}

func defaultDescription(code string) string {
	if code == "default" {
		return "Default response"
	}
	var n int
	if _, err := fmt.Sscanf(code, "%d", &n); err == nil {
		if text := http.StatusText(n); text != "" {
			return text
		}
	}
	return "Response " + code
}

// operationPointer is the JSON pointer of key's operation in an export.
func operationPointer(key RouteKey) string {
	return schema.Join(schema.Join("/paths", key.Path), string(key.Method))
}

// located is a schema together with its pointer in the exported document.
type located struct {
	ptr    string
	schema *schema.Schema
}

// endpointSchemas lists the inline schemas of ep in document order.
func endpointSchemas(ep *Endpoint) []located {
	base := operationPointer(ep.Key())
	var out []located
	for i, p := range ep.Parameters {
		if p.Schema != nil {
			out = append(out, located{schema.Join(schema.Index(schema.Join(base, "parameters"), i), "schema"), p.Schema})
		}
	}
	if ep.RequestBody != nil && ep.RequestBody.Schema != nil {
		ptr := schema.Join(schema.Join(schema.Join(base, "requestBody"), "content"), ep.RequestBody.ContentType)
		out = append(out, located{schema.Join(ptr, "schema"), ep.RequestBody.Schema})
	}
	for _, code := range sortedResponseCodes(ep.Responses) {
		r := ep.Responses[code]
		if r.Schema == nil {
			continue
		}
		ptr := schema.Join(schema.Join(schema.Join(schema.Join(base, "responses"), code), "content"), r.ContentType)
		out = append(out, located{schema.Join(ptr, "schema"), r.Schema})
	}
	return out
}

type danglingRef struct {
	Problem
	kind string // "schema" or "security scheme"
}

func (d *Document) danglingInEndpoint(ep *Endpoint) []danglingRef {
	var out []danglingRef
	for _, loc := range endpointSchemas(ep) {
		for _, use := range schema.References(loc.schema, loc.ptr) {
			if _, ok := d.schemas.Get(use.Name); !ok {
				out = append(out, danglingRef{
					Problem: Problem{Path: use.Pointer, Code: ProblemDanglingReference, Message: fmt.Sprintf("schema %q is not registered", use.Name), Name: use.Name},
					kind:    "schema",
				})
			}
		}
	}
	for i, req := range ep.Security {
		if _, ok := d.securitySchemes.Get(req.Scheme); !ok {
			out = append(out, danglingRef{
				Problem: Problem{
					Path:    schema.Index(schema.Join(operationPointer(ep.Key()), "security"), i),
					Code:    ProblemDanglingReference,
					Message: fmt.Sprintf("security scheme %q is not registered", req.Scheme),
					Name:    req.Scheme,
				},
				kind: "security scheme",
			})
		}
	}
	return out
}

// RemoveEndpoint deletes the endpoint and reports whether it existed.
func (d *Document) RemoveEndpoint(method HttpMethod, path string) bool {
	m, ok := ParseMethod(string(method))
	if !ok {
		return false
	}
	_, present := d.endpoints.Delete(RouteKey{Method: m, Path: strings.TrimSpace(path)})
	return present
}

// RemoveSchema deletes the named schema and reports whether it existed.
// Endpoints and schemas still referencing it are left dangling until the
// next ValidateDocument or Export.
func (d *Document) RemoveSchema(name string) bool {
	_, present := d.schemas.Delete(name)
	return present
}

// RemoveSecurityScheme deletes the named scheme and reports whether it
// existed. References to it are not checked.
func (d *Document) RemoveSecurityScheme(name string) bool {
	_, present := d.securitySchemes.Delete(name)
	return present
}

// Resolve implements schema.Resolver over the schema registry.
func (d *Document) Resolve(name string) (*schema.Schema, bool) {
	return d.schemas.Get(schema.RefName(name))
}

// Schema returns the registered schema.
func (d *Document) Schema(name string) (*schema.Schema, bool) { return d.Resolve(name) }

// SecurityScheme returns the registered scheme.
func (d *Document) SecurityScheme(name string) (*SecurityScheme, bool) {
	return d.securitySchemes.Get(name)
}

// Endpoint returns the endpoint stored under method and path.
func (d *Document) Endpoint(method HttpMethod, path string) (*Endpoint, bool) {
	m, ok := ParseMethod(string(method))
	if !ok {
		return nil, false
	}
	return d.endpoints.Get(RouteKey{Method: m, Path: path})
}

// NamedSchema pairs a registry entry with its name.
type NamedSchema struct {
	Name   string
	Schema *schema.Schema
}

// NamedScheme pairs a security scheme with its name.
type NamedScheme struct {
	Name   string
	Scheme *SecurityScheme
}

// Schemas returns the registry in insertion order.
func (d *Document) Schemas() []NamedSchema {
	out := make([]NamedSchema, 0, d.schemas.Len())
	for pair := d.schemas.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, NamedSchema{Name: pair.Key, Schema: pair.Value})
	}
	return out
}

// SecuritySchemes returns the security registry in insertion order.
func (d *Document) SecuritySchemes() []NamedScheme {
	out := make([]NamedScheme, 0, d.securitySchemes.Len())
	for pair := d.securitySchemes.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, NamedScheme{Name: pair.Key, Scheme: pair.Value})
	}
	return out
}

// Endpoints returns the endpoints in insertion order.
func (d *Document) Endpoints() []*Endpoint {
	out := make([]*Endpoint, 0, d.endpoints.Len())
	for pair := d.endpoints.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// ListSchemas summarizes the registry. References counts the uses of each
// schema across endpoints and other schemas.
func (d *Document) ListSchemas() []SchemaSummary {
	uses := map[string]int{}
	for pair := d.schemas.Oldest(); pair != nil; pair = pair.Next() {
		for _, u := range schema.References(pair.Value, "") {
			uses[u.Name]++
		}
	}
	for pair := d.endpoints.Oldest(); pair != nil; pair = pair.Next() {
		for _, loc := range endpointSchemas(pair.Value) {
			for _, u := range schema.References(loc.schema, "") {
				uses[u.Name]++
			}
		}
	}
	out := make([]SchemaSummary, 0, d.schemas.Len())
	for pair := d.schemas.Oldest(); pair != nil; pair = pair.Next() {
		s := pair.Value
		row := SchemaSummary{Name: pair.Key, Type: s.Type, References: uses[pair.Key]}
		if s.Ref != "" {
			row.Ref = s.Ref
		}
		if s.Properties != nil {
			row.Properties = s.Properties.Len()
		}
		out = append(out, row)
	}
	return out
}

// ListEndpoints summarizes the endpoints in insertion order.
func (d *Document) ListEndpoints() []EndpointSummary {
	out := make([]EndpointSummary, 0, d.endpoints.Len())
	for pair := d.endpoints.Oldest(); pair != nil; pair = pair.Next() {
		ep := pair.Value
		out = append(out, EndpointSummary{
			Method:      strings.ToUpper(string(ep.Method)),
			Path:        ep.Path,
			OperationID: ep.OperationID,
			Summary:     ep.Summary,
			Tags:        ep.Tags,
		})
	}
	return out
}
