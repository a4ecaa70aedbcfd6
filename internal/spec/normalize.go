package spec

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/oasbuilder/internal/schema"
	"github.com/mark3labs/oasbuilder/internal/value"
)

// orderHints maps the JSON pointer of every mapping in the source document
// to its keys in source order. kin-openapi decodes into Go maps, so order is
// recovered from here.
type orderHints map[string][]string

func readOrderHints(raw []byte, version int) (orderHints, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("parse spec: %w", err)
	}
	hints := orderHints{}
	if len(root.Content) > 0 {
		collectKeyOrder(root.Content[0], "", hints)
	}
	if version == 2 {
		// Swagger 2 definitions become components.schemas.
		for ptr, keys := range hints {
			if rest, ok := strings.CutPrefix(ptr, "/definitions"); ok {
				hints["/components/schemas"+rest] = keys
			}
		}
	}
	return hints, nil
}

func collectKeyOrder(n *yaml.Node, ptr string, hints orderHints) {
	switch n.Kind {
	case yaml.MappingNode:
		keys := make([]string, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			keys = append(keys, key)
			collectKeyOrder(n.Content[i+1], schema.Join(ptr, key), hints)
		}
		hints[ptr] = keys
	case yaml.SequenceNode:
		for i, c := range n.Content {
			collectKeyOrder(c, schema.Index(ptr, i), hints)
		}
	case yaml.AliasNode:
		if n.Alias != nil {
			collectKeyOrder(n.Alias, ptr, hints)
		}
	}
}

// order returns the keys of m: those the source lists at ptr first, in
// source order, then the rest sorted.
func order[V any](hints orderHints, ptr string, m map[string]V) []string {
	out := make([]string, 0, len(m))
	seen := make(map[string]struct{}, len(m))
	for _, k := range hints[ptr] {
		if _, ok := m[k]; ok {
			if _, dup := seen[k]; !dup {
				out = append(out, k)
				seen[k] = struct{}{}
			}
		}
	}
	rest := make([]string, 0, len(m)-len(out))
	for k := range m {
		if _, ok := seen[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// declares reports whether the source mapping at ptr spells out key.
func (h orderHints) declares(ptr, key string) bool {
	for _, k := range h[ptr] {
		if k == key {
			return true
		}
	}
	return false
}

func conversion(ptr, format string, args ...any) *SpecError {
	return &SpecError{Code: ConversionError, Message: fmt.Sprintf("%s: %s", schema.Display(ptr), fmt.Sprintf(format, args...)), Pointer: ptr}
}

// fromOpenAPI converts a loaded OpenAPI 3 document into a Document.
// Endpoints are inserted without the dangling-reference guard so that
// documents with unresolved references still load; ValidateDocument reports
// them.
func fromOpenAPI(doc *openapi3.T, hints orderHints, log *slog.Logger) (*Document, error) {
	var title, version, description string
	if doc.Info != nil {
		title, version, description = doc.Info.Title, doc.Info.Version, doc.Info.Description
	}
	var servers []Server
	for _, s := range doc.Servers {
		if s == nil {
			continue
		}
		servers = append(servers, Server{URL: strings.TrimSpace(s.URL), Description: strings.TrimSpace(s.Description)})
	}
	out, err := NewDocument(title, version, description, servers)
	if err != nil {
		return nil, err
	}

	if doc.Components != nil {
		for _, name := range order(hints, "/components/securitySchemes", doc.Components.SecuritySchemes) {
			ref := doc.Components.SecuritySchemes[name]
			if ref == nil || ref.Value == nil {
				continue
			}
			if err := out.RegisterSecurityScheme(name, fromSecurityScheme(ref.Value)); err != nil {
				return nil, err
			}
		}
		for _, name := range order(hints, "/components/schemas", doc.Components.Schemas) {
			ptr := schema.Join("/components/schemas", name)
			s, err := fromSchemaRef(doc.Components.Schemas[name], ptr, hints, log)
			if err != nil {
				return nil, err
			}
			if err := out.RegisterSchema(name, s); err != nil {
				return nil, err
			}
		}
	}

	for _, path := range order(hints, "/paths", doc.Paths) {
		item := doc.Paths[path]
		if item == nil {
			continue
		}
		itemPtr := schema.Join("/paths", path)
		ops := map[string]*openapi3.Operation{}
		for m, op := range item.Operations() {
			ops[strings.ToLower(m)] = op
		}
		for _, m := range order(hints, itemPtr, ops) {
			method, ok := ParseMethod(m)
			if !ok {
				continue
			}
			ep, err := fromOperation(doc, item, ops[m], method, path, hints, log)
			if err != nil {
				return nil, err
			}
			if err := out.insertEndpoint(ep); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// insertEndpoint is AddEndpoint without the dangling-reference guard.
func (d *Document) insertEndpoint(ep Endpoint) error {
	normalized, err := normalizeEndpoint(ep)
	if err != nil {
		return err
	}
	key := normalized.Key()
	if _, exists := d.endpoints.Get(key); exists {
		return &SpecError{Code: DuplicateRoute, Message: fmt.Sprintf("endpoint %s already exists", key), Pointer: operationPointer(key)}
	}
	d.endpoints.Set(key, normalized)
	return nil
}

func fromOperation(doc *openapi3.T, item *openapi3.PathItem, op *openapi3.Operation, method HttpMethod, path string, hints orderHints, log *slog.Logger) (Endpoint, error) {
	ptr := schema.Join(schema.Join("/paths", path), string(method))
	ep := Endpoint{
		Method:      method,
		Path:        path,
		OperationID: strings.TrimSpace(op.OperationID),
		Summary:     strings.TrimSpace(op.Summary),
		Description: strings.TrimSpace(op.Description),
		Tags:        op.Tags,
		Deprecated:  op.Deprecated,
	}

	// Path-level parameters first, overridden in place by operation-level ones.
	index := map[string]int{}
	addParam := func(pref *openapi3.ParameterRef, pptr string) error {
		if pref == nil || pref.Value == nil {
			return nil
		}
		p := pref.Value
		param := Parameter{
			Name:        p.Name,
			In:          ParamLocation(p.In),
			Required:    p.Required,
			Description: strings.TrimSpace(p.Description),
		}
		if p.Schema != nil {
			s, err := fromSchemaRef(p.Schema, schema.Join(pptr, "schema"), hints, log)
			if err != nil {
				return err
			}
			param.Schema = s
		}
		key := p.In + ":" + p.Name
		if i, ok := index[key]; ok {
			ep.Parameters[i] = param
			return nil
		}
		index[key] = len(ep.Parameters)
		ep.Parameters = append(ep.Parameters, param)
		return nil
	}
	for i, pref := range item.Parameters {
		if err := addParam(pref, schema.Index(schema.Join(schema.Join("/paths", path), "parameters"), i)); err != nil {
			return Endpoint{}, err
		}
	}
	for i, pref := range op.Parameters {
		if err := addParam(pref, schema.Index(schema.Join(ptr, "parameters"), i)); err != nil {
			return Endpoint{}, err
		}
	}

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		rb := op.RequestBody.Value
		body := &RequestBody{Description: strings.TrimSpace(rb.Description), Required: rb.Required}
		contentPtr := schema.Join(schema.Join(ptr, "requestBody"), "content")
		if ct, media := pickMedia(rb.Content, hints, contentPtr); media != nil {
			body.ContentType = ct
			if media.Schema != nil {
				s, err := fromSchemaRef(media.Schema, schema.Join(schema.Join(contentPtr, ct), "schema"), hints, log)
				if err != nil {
					return Endpoint{}, err
				}
				body.Schema = s
			}
		}
		ep.RequestBody = body
	}

	ep.Responses = map[string]Response{}
	for code, rref := range op.Responses {
		if rref == nil || rref.Value == nil {
			continue
		}
		r := Response{}
		if rref.Value.Description != nil {
			r.Description = strings.TrimSpace(*rref.Value.Description)
		}
		contentPtr := schema.Join(schema.Join(schema.Join(ptr, "responses"), code), "content")
		if ct, media := pickMedia(rref.Value.Content, hints, contentPtr); media != nil {
			r.ContentType = ct
			if media.Schema != nil {
				s, err := fromSchemaRef(media.Schema, schema.Join(schema.Join(contentPtr, ct), "schema"), hints, log)
				if err != nil {
					return Endpoint{}, err
				}
				r.Schema = s
			}
		}
		ep.Responses[code] = r
	}

	reqs, reqsPtr := doc.Security, "/security"
	if op.Security != nil {
		reqs, reqsPtr = *op.Security, schema.Join(ptr, "security")
	}
	for i, req := range reqs {
		// Requirements are alternatives; the schemes inside one requirement
		// must all be satisfied, which the flat list cannot express.
		if len(req) > 1 {
			names := make([]string, 0, len(req))
			for name := range req {
				names = append(names, name)
			}
			sort.Strings(names)
			return Endpoint{}, conversion(schema.Index(reqsPtr, i), "security requirement combining %s is not supported", strings.Join(names, " and "))
		}
		for name, scopes := range req {
			ep.Security = append(ep.Security, SecurityRequirement{Scheme: name, Scopes: append([]string(nil), scopes...)})
		}
	}
	return ep, nil
}

// pickMedia prefers application/json, then the first content type in
// source order.
func pickMedia(content openapi3.Content, hints orderHints, ptr string) (string, *openapi3.MediaType) {
	if len(content) == 0 {
		return "", nil
	}
	if mt := content[DefaultContentType]; mt != nil {
		return DefaultContentType, mt
	}
	for _, ct := range order(hints, ptr, content) {
		if mt := content[ct]; mt != nil {
			return ct, mt
		}
	}
	return "", nil
}

func fromSchemaRef(ref *openapi3.SchemaRef, ptr string, hints orderHints, log *slog.Logger) (*schema.Schema, error) {
	if ref == nil {
		return nil, conversion(ptr, "schema is empty")
	}
	if ref.Ref != "" {
		if name, ok := strings.CutPrefix(ref.Ref, schema.RefPrefix); ok {
			return schema.Ref(name), nil
		}
		log.Debug("inlining external schema reference", "ref", ref.Ref, "pointer", ptr)
	}
	if ref.Value == nil {
		return nil, conversion(ptr, "reference %q did not resolve", ref.Ref)
	}
	v := ref.Value
	switch {
	case len(v.AllOf) > 0:
		return nil, conversion(ptr, "allOf is not supported")
	case len(v.OneOf) > 0:
		return nil, conversion(ptr, "oneOf is not supported")
	case len(v.AnyOf) > 0:
		return nil, conversion(ptr, "anyOf is not supported")
	case v.Not != nil:
		return nil, conversion(ptr, "not is not supported")
	}

	t := schema.Type(v.Type)
	if t == "" {
		switch {
		case len(v.Properties) > 0:
			t = schema.Object
		case v.Items != nil:
			t = schema.Array
		case v.Nullable:
			t = schema.Null
		default:
			return nil, conversion(ptr, "schema declares no type")
		}
	}
	if !t.Known() {
		return nil, conversion(ptr, "unknown type %q", v.Type)
	}

	s := &schema.Schema{
		Type:        t,
		Description: strings.TrimSpace(v.Description),
		Format:      v.Format,
		Pattern:     v.Pattern,
		Minimum:     v.Min,
		Maximum:     v.Max,
		Required:    append([]string(nil), v.Required...),
	}
	if v.MinLength > 0 || hints.declares(ptr, "minLength") {
		n := int(v.MinLength)
		s.MinLength = &n
	}
	if v.MaxLength != nil {
		n := int(*v.MaxLength)
		s.MaxLength = &n
	}
	for _, e := range v.Enum {
		s.Enum = append(s.Enum, value.Normalize(e))
	}
	if v.Items != nil {
		items, err := fromSchemaRef(v.Items, schema.Join(ptr, "items"), hints, log)
		if err != nil {
			return nil, err
		}
		s.Items = items
	}
	if len(v.Properties) > 0 {
		propsPtr := schema.Join(ptr, "properties")
		for _, name := range order(hints, propsPtr, v.Properties) {
			prop, err := fromSchemaRef(v.Properties[name], schema.Join(propsPtr, name), hints, log)
			if err != nil {
				return nil, err
			}
			s.SetProperty(name, prop, false)
		}
	}
	if len(s.Required) == 0 {
		s.Required = nil
	}
	return s, nil
}

func fromSecurityScheme(v *openapi3.SecurityScheme) SecurityScheme {
	out := SecurityScheme{
		Type:        SchemeType(v.Type),
		Description: strings.TrimSpace(v.Description),
	}
	switch out.Type {
	case APIKey:
		out.In, out.Name = v.In, v.Name
	case HTTPAuth:
		out.Scheme, out.BearerFormat = v.Scheme, v.BearerFormat
	case OAuth2:
		if v.Flows != nil {
			out.Flows = &OAuthFlows{
				Implicit:          fromFlow(v.Flows.Implicit),
				Password:          fromFlow(v.Flows.Password),
				ClientCredentials: fromFlow(v.Flows.ClientCredentials),
				AuthorizationCode: fromFlow(v.Flows.AuthorizationCode),
			}
		}
	case OpenIDConnect:
		out.OpenIDConnectURL = v.OpenIdConnectUrl
	}
	return out
}

func fromFlow(f *openapi3.OAuthFlow) *OAuthFlow {
	if f == nil {
		return nil
	}
	return &OAuthFlow{
		AuthorizationURL: f.AuthorizationURL,
		TokenURL:         f.TokenURL,
		RefreshURL:       f.RefreshURL,
		Scopes:           f.Scopes,
	}
}
