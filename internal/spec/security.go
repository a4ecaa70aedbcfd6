package spec

import (
	"strings"

	"github.com/mark3labs/oasbuilder/internal/schema"
)

// variantFields lists, per scheme type, the fields that may be set.
var variantFields = map[SchemeType][]string{
	APIKey:        {"in", "name"},
	HTTPAuth:      {"scheme", "bearerFormat"},
	OAuth2:        {"flows"},
	OpenIDConnect: {"openIdConnectUrl"},
}

// setFields names the variant-specific fields carrying a value.
func (s *SecurityScheme) setFields() []string {
	var out []string
	if s.In != "" {
		out = append(out, "in")
	}
	if s.Name != "" {
		out = append(out, "name")
	}
	if s.Scheme != "" {
		out = append(out, "scheme")
	}
	if s.BearerFormat != "" {
		out = append(out, "bearerFormat")
	}
	if s.Flows != nil {
		out = append(out, "flows")
	}
	if s.OpenIDConnectURL != "" {
		out = append(out, "openIdConnectUrl")
	}
	return out
}

// normalizeScheme validates the variant of in and returns a copy with
// lowercase enumerations and non-nil scope maps.
func normalizeScheme(in SecurityScheme, base string) (*SecurityScheme, *SpecError) {
	allowed, ok := variantFields[in.Type]
	if !ok {
		return nil, structural(schema.Join(base, "type"), "unknown security scheme type %q (allowed: apiKey, http, oauth2, openIdConnect)", in.Type)
	}
	for _, f := range in.setFields() {
		if !contains(allowed, f) {
			return nil, structural(schema.Join(base, f), "field %s does not apply to %s schemes", f, in.Type)
		}
	}

	out := in
	switch in.Type {
	case APIKey:
		out.In = strings.ToLower(strings.TrimSpace(in.In))
		switch out.In {
		case "header", "query", "cookie":
		case "":
			return nil, structural(schema.Join(base, "in"), "apiKey scheme requires in")
		default:
			return nil, structural(schema.Join(base, "in"), "apiKey location %q is not one of header, query, cookie", in.In)
		}
		if strings.TrimSpace(in.Name) == "" {
			return nil, structural(schema.Join(base, "name"), "apiKey scheme requires name")
		}
	case HTTPAuth:
		out.Scheme = strings.ToLower(strings.TrimSpace(in.Scheme))
		switch out.Scheme {
		case "bearer":
		case "basic":
			if in.BearerFormat != "" {
				return nil, structural(schema.Join(base, "bearerFormat"), "bearerFormat only applies to bearer schemes")
			}
		case "":
			return nil, structural(schema.Join(base, "scheme"), "http scheme requires scheme")
		default:
			return nil, structural(schema.Join(base, "scheme"), "http scheme %q is not one of bearer, basic", in.Scheme)
		}
	case OAuth2:
		flows, err := normalizeFlows(in.Flows, schema.Join(base, "flows"))
		if err != nil {
			return nil, err
		}
		out.Flows = flows
	case OpenIDConnect:
		if strings.TrimSpace(in.OpenIDConnectURL) == "" {
			return nil, structural(schema.Join(base, "openIdConnectUrl"), "openIdConnect scheme requires openIdConnectUrl")
		}
	}
	return &out, nil
}

func normalizeFlows(in *OAuthFlows, base string) (*OAuthFlows, *SpecError) {
	if in == nil || (in.Implicit == nil && in.Password == nil && in.ClientCredentials == nil && in.AuthorizationCode == nil) {
		return nil, structural(base, "oauth2 scheme requires at least one flow")
	}
	out := &OAuthFlows{}
	var err *SpecError
	if out.Implicit, err = normalizeFlow(in.Implicit, schema.Join(base, "implicit"), true, false); err != nil {
		return nil, err
	}
	if out.Password, err = normalizeFlow(in.Password, schema.Join(base, "password"), false, true); err != nil {
		return nil, err
	}
	if out.ClientCredentials, err = normalizeFlow(in.ClientCredentials, schema.Join(base, "clientCredentials"), false, true); err != nil {
		return nil, err
	}
	if out.AuthorizationCode, err = normalizeFlow(in.AuthorizationCode, schema.Join(base, "authorizationCode"), true, true); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeFlow(f *OAuthFlow, ptr string, needsAuthURL, needsTokenURL bool) (*OAuthFlow, *SpecError) {
	if f == nil {
		return nil, nil
	}
	if needsAuthURL && strings.TrimSpace(f.AuthorizationURL) == "" {
		return nil, structural(schema.Join(ptr, "authorizationUrl"), "flow requires authorizationUrl")
	}
	if needsTokenURL && strings.TrimSpace(f.TokenURL) == "" {
		return nil, structural(schema.Join(ptr, "tokenUrl"), "flow requires tokenUrl")
	}
	out := *f
	out.Scopes = make(map[string]string, len(f.Scopes))
	for k, v := range f.Scopes {
		out.Scopes[k] = v
	}
	return &out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
