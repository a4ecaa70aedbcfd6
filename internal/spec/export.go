package spec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gojson "github.com/goccy/go-json"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/oasbuilder/internal/schema"
	"github.com/mark3labs/oasbuilder/internal/value"
)

// OpenAPIVersion is written to the openapi field of every export.
const OpenAPIVersion = "3.0.3"

// Format selects the export serialization.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat accepts json, yaml and their structured-* aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "structured-json":
		return JSON, nil
	case "yaml", "yml", "structured-yaml":
		return YAML, nil
	}
	return "", &SpecError{Code: UnsupportedFormat, Message: fmt.Sprintf("unsupported export format %q (allowed: json, yaml)", s)}
}

type node = orderedmap.OrderedMap[string, any]

func newNode() *node { return orderedmap.New[string, any]() }

// Export serializes d in OpenAPI 3.0 layout. It fails with DanglingReference
// when a reference no longer resolves, with Structural when a stored schema
// is malformed or a path template and its path parameters disagree, and with
// DuplicateRoute when two templated routes collide.
func Export(d *Document, format Format) ([]byte, error) {
	report := ValidateDocument(d)
	if names := danglingNames(report); len(names) > 0 {
		first := firstProblem(report, ProblemDanglingReference)
		msg := "export: " + first.Message
		if len(names) > 1 {
			msg += fmt.Sprintf(" (and %d more unregistered names)", len(names)-1)
		}
		return nil, &SpecError{
			Code:    DanglingReference,
			Message: msg,
			Pointer: first.Path,
			Names:   names,
		}
	}
	if report.Has(ProblemStructural) {
		first := firstProblem(report, ProblemStructural)
		return nil, &SpecError{Code: Structural, Message: "export: " + first.Message, Pointer: first.Path}
	}
	// OpenAPI validators reject both of these, so the file would not load back.
	if report.Has(ProblemPathParameter) {
		first := firstProblem(report, ProblemPathParameter)
		return nil, &SpecError{Code: Structural, Message: "export: " + first.Message, Pointer: first.Path}
	}
	if report.Has(ProblemDuplicateRoute) {
		first := firstProblem(report, ProblemDuplicateRoute)
		return nil, &SpecError{Code: DuplicateRoute, Message: "export: " + first.Message, Pointer: first.Path}
	}

	tree := documentTree(d)
	switch format {
	case JSON:
		out, err := gojson.MarshalIndent(tree, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("export json: %w", err)
		}
		return append(out, '\n'), nil
	case YAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(tree); err != nil {
			return nil, fmt.Errorf("export yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("export yaml: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, &SpecError{Code: UnsupportedFormat, Message: fmt.Sprintf("unsupported export format %q (allowed: json, yaml)", format)}
}

func firstProblem(r Report, code string) Problem {
	for _, p := range r.Errors {
		if p.Code == code {
			return p
		}
	}
	return Problem{}
}

func documentTree(d *Document) *node {
	root := newNode()
	root.Set("openapi", OpenAPIVersion)

	info := newNode()
	info.Set("title", d.Title)
	if d.Description != "" {
		info.Set("description", d.Description)
	}
	info.Set("version", d.Version)
	root.Set("info", info)

	if len(d.Servers) > 0 {
		servers := make([]any, 0, len(d.Servers))
		for _, s := range d.Servers {
			n := newNode()
			n.Set("url", s.URL)
			if s.Description != "" {
				n.Set("description", s.Description)
			}
			servers = append(servers, n)
		}
		root.Set("servers", servers)
	}

	paths := newNode()
	for pair := d.endpoints.Oldest(); pair != nil; pair = pair.Next() {
		ep := pair.Value
		item, ok := paths.Get(ep.Path)
		if !ok {
			item = newNode()
			paths.Set(ep.Path, item)
		}
		item.(*node).Set(string(ep.Method), operationTree(ep))
	}
	root.Set("paths", paths)

	components := newNode()
	if d.schemas.Len() > 0 {
		schemas := newNode()
		for pair := d.schemas.Oldest(); pair != nil; pair = pair.Next() {
			schemas.Set(pair.Key, schemaTree(pair.Value))
		}
		components.Set("schemas", schemas)
	}
	if d.securitySchemes.Len() > 0 {
		schemes := newNode()
		for pair := d.securitySchemes.Oldest(); pair != nil; pair = pair.Next() {
			schemes.Set(pair.Key, schemeTree(pair.Value))
		}
		components.Set("securitySchemes", schemes)
	}
	if components.Len() > 0 {
		root.Set("components", components)
	}
	return root
}

func operationTree(ep *Endpoint) *node {
	op := newNode()
	if len(ep.Tags) > 0 {
		op.Set("tags", append([]string(nil), ep.Tags...))
	}
	if ep.Summary != "" {
		op.Set("summary", ep.Summary)
	}
	if ep.Description != "" {
		op.Set("description", ep.Description)
	}
	if ep.OperationID != "" {
		op.Set("operationId", ep.OperationID)
	}
	if len(ep.Parameters) > 0 {
		params := make([]any, 0, len(ep.Parameters))
		for _, p := range ep.Parameters {
			n := newNode()
			n.Set("name", p.Name)
			n.Set("in", string(p.In))
			if p.Description != "" {
				n.Set("description", p.Description)
			}
			if p.Required {
				n.Set("required", true)
			}
			if p.Schema != nil {
				n.Set("schema", schemaTree(p.Schema))
			}
			params = append(params, n)
		}
		op.Set("parameters", params)
	}
	if ep.RequestBody != nil {
		body := newNode()
		if ep.RequestBody.Description != "" {
			body.Set("description", ep.RequestBody.Description)
		}
		body.Set("content", contentTree(ep.RequestBody.ContentType, ep.RequestBody.Schema))
		if ep.RequestBody.Required {
			body.Set("required", true)
		}
		op.Set("requestBody", body)
	}
	responses := newNode()
	for _, code := range sortedResponseCodes(ep.Responses) {
		r := ep.Responses[code]
		n := newNode()
		n.Set("description", r.Description)
		if r.Schema != nil {
			n.Set("content", contentTree(r.ContentType, r.Schema))
		}
		responses.Set(code, n)
	}
	op.Set("responses", responses)
	if ep.Deprecated {
		op.Set("deprecated", true)
	}
	if len(ep.Security) > 0 {
		reqs := make([]any, 0, len(ep.Security))
		for _, req := range ep.Security {
			n := newNode()
			scopes := req.Scopes
			if scopes == nil {
				scopes = []string{}
			}
			n.Set(req.Scheme, scopes)
			reqs = append(reqs, n)
		}
		op.Set("security", reqs)
	}
	return op
}

func contentTree(contentType string, s *schema.Schema) *node {
	media := newNode()
	if s != nil {
		media.Set("schema", schemaTree(s))
	}
	content := newNode()
	content.Set(contentType, media)
	return content
}

// sortedResponseCodes orders status codes ascending, ranges after the codes
// they cover, default last.
func sortedResponseCodes(responses map[string]Response) []string {
	codes := make([]string, 0, len(responses))
	for code := range responses {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		if codes[i] == "default" || codes[j] == "default" {
			return codes[j] == "default" && codes[i] != "default"
		}
		return codes[i] < codes[j]
	})
	return codes
}

// schemaTree renders s in OpenAPI 3.0 form: references get the component
// prefix and the null type becomes nullable.
func schemaTree(s *schema.Schema) *node {
	n := newNode()
	if s.Ref != "" {
		n.Set("$ref", schema.RefPrefix+schema.RefName(s.Ref))
		return n
	}
	if s.Type == schema.Null {
		n.Set("nullable", true)
	} else {
		n.Set("type", string(s.Type))
	}
	if s.Description != "" {
		n.Set("description", s.Description)
	}
	if s.Format != "" {
		n.Set("format", s.Format)
	}
	if s.Pattern != "" {
		n.Set("pattern", s.Pattern)
	}
	if s.MinLength != nil {
		n.Set("minLength", *s.MinLength)
	}
	if s.MaxLength != nil {
		n.Set("maxLength", *s.MaxLength)
	}
	if s.Minimum != nil {
		n.Set("minimum", *s.Minimum)
	}
	if s.Maximum != nil {
		n.Set("maximum", *s.Maximum)
	}
	if len(s.Enum) > 0 {
		enum := make([]any, 0, len(s.Enum))
		for _, v := range s.Enum {
			enum = append(enum, plainValue(value.Normalize(v)))
		}
		n.Set("enum", enum)
	}
	if s.Items != nil {
		n.Set("items", schemaTree(s.Items))
	}
	if s.Properties != nil && s.Properties.Len() > 0 {
		props := newNode()
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			props.Set(pair.Key, schemaTree(pair.Value))
		}
		n.Set("properties", props)
	}
	if len(s.Required) > 0 {
		n.Set("required", append([]string(nil), s.Required...))
	}
	return n
}

// plainValue converts json.Number leaves into int64 or float64 so that both
// encoders write them as numbers.
func plainValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case *value.Object:
		out := newNode()
		for pair := t.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(pair.Key, plainValue(pair.Value))
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plainValue(e)
		}
		return out
	}
	return v
}

func schemeTree(s *SecurityScheme) *node {
	n := newNode()
	n.Set("type", string(s.Type))
	if s.Description != "" {
		n.Set("description", s.Description)
	}
	switch s.Type {
	case APIKey:
		n.Set("name", s.Name)
		n.Set("in", s.In)
	case HTTPAuth:
		n.Set("scheme", s.Scheme)
		if s.BearerFormat != "" {
			n.Set("bearerFormat", s.BearerFormat)
		}
	case OAuth2:
		flows := newNode()
		if s.Flows != nil {
			setFlow(flows, "implicit", s.Flows.Implicit)
			setFlow(flows, "password", s.Flows.Password)
			setFlow(flows, "clientCredentials", s.Flows.ClientCredentials)
			setFlow(flows, "authorizationCode", s.Flows.AuthorizationCode)
		}
		n.Set("flows", flows)
	case OpenIDConnect:
		n.Set("openIdConnectUrl", s.OpenIDConnectURL)
	}
	return n
}

func setFlow(flows *node, name string, f *OAuthFlow) {
	if f == nil {
		return
	}
	n := newNode()
	if f.AuthorizationURL != "" {
		n.Set("authorizationUrl", f.AuthorizationURL)
	}
	if f.TokenURL != "" {
		n.Set("tokenUrl", f.TokenURL)
	}
	if f.RefreshURL != "" {
		n.Set("refreshUrl", f.RefreshURL)
	}
	scopes := newNode()
	keys := make([]string, 0, len(f.Scopes))
	for k := range f.Scopes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		scopes.Set(k, f.Scopes[k])
	}
	n.Set("scopes", scopes)
	flows.Set(name, n)
}

// WriteFile writes data to path atomically via a temp file and rename,
// creating parent directories as needed.
func WriteFile(path string, data []byte) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return &SpecError{Code: InputError, Message: fmt.Sprintf("resolve output path: %v", err), Location: path, Cause: err}
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return &SpecError{Code: InputError, Message: fmt.Sprintf("create parent directory: %v", err), Location: abs, Cause: err}
	}
	tmp, err := os.CreateTemp(filepath.Dir(abs), "."+filepath.Base(abs)+".*.tmp")
	if err != nil {
		return &SpecError{Code: InputError, Message: fmt.Sprintf("create temp file: %v", err), Location: abs, Cause: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &SpecError{Code: InputError, Message: fmt.Sprintf("write temp file: %v", err), Location: abs, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &SpecError{Code: InputError, Message: fmt.Sprintf("close temp file: %v", err), Location: abs, Cause: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return &SpecError{Code: InputError, Message: fmt.Sprintf("chmod temp file: %v", err), Location: abs, Cause: err}
	}
	if err := os.Rename(tmpName, abs); err != nil {
		_ = os.Remove(tmpName)
		return &SpecError{Code: InputError, Message: fmt.Sprintf("place file at %s: %v", abs, err), Location: abs, Cause: err}
	}
	return nil
}
