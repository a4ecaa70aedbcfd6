package spec

import (
	"strings"

	"github.com/mark3labs/oasbuilder/internal/schema"
)

// Document model shared by the builder, the validator and the exporter.

type HttpMethod string

const (
	GET     HttpMethod = "get"
	POST    HttpMethod = "post"
	PUT     HttpMethod = "put"
	DELETE  HttpMethod = "delete"
	PATCH   HttpMethod = "patch"
	HEAD    HttpMethod = "head"
	OPTIONS HttpMethod = "options"
	TRACE   HttpMethod = "trace"
)

// ParseMethod accepts any letter case.
func ParseMethod(s string) (HttpMethod, bool) {
	m := HttpMethod(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS, TRACE:
		return m, true
	}
	return "", false
}

// RouteKey is the composite identity of an endpoint.
type RouteKey struct {
	Method HttpMethod
	Path   string
}

func (k RouteKey) String() string { return strings.ToUpper(string(k.Method)) + " " + k.Path }

type Server struct {
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

type ParamLocation string

const (
	InPath   ParamLocation = "path"
	InQuery  ParamLocation = "query"
	InHeader ParamLocation = "header"
	InCookie ParamLocation = "cookie"
)

type Endpoint struct {
	Method      HttpMethod            `json:"method" yaml:"method"`
	Path        string                `json:"path" yaml:"path"`
	OperationID string                `json:"operationId,omitempty" yaml:"operationId,omitempty"`
	Summary     string                `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string                `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string              `json:"tags,omitempty" yaml:"tags,omitempty"`
	Parameters  []Parameter           `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	RequestBody *RequestBody          `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
	Responses   map[string]Response   `json:"responses,omitempty" yaml:"responses,omitempty"`
	Security    []SecurityRequirement `json:"security,omitempty" yaml:"security,omitempty"`
	Deprecated  bool                  `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
}

// Key returns the endpoint's route key.
func (e *Endpoint) Key() RouteKey { return RouteKey{Method: e.Method, Path: e.Path} }

type Parameter struct {
	Name        string         `json:"name" yaml:"name"`
	In          ParamLocation  `json:"in" yaml:"in"`
	Required    bool           `json:"required,omitempty" yaml:"required,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Schema      *schema.Schema `json:"schema,omitempty" yaml:"schema,omitempty"`
}

type RequestBody struct {
	ContentType string         `json:"contentType,omitempty" yaml:"contentType,omitempty"` // defaults to application/json
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool           `json:"required,omitempty" yaml:"required,omitempty"`
	Schema      *schema.Schema `json:"schema,omitempty" yaml:"schema,omitempty"`
}

type Response struct {
	Description string         `json:"description" yaml:"description"`
	ContentType string         `json:"contentType,omitempty" yaml:"contentType,omitempty"`
	Schema      *schema.Schema `json:"schema,omitempty" yaml:"schema,omitempty"`
}

type SecurityRequirement struct {
	Scheme string   `json:"scheme" yaml:"scheme"`
	Scopes []string `json:"scopes,omitempty" yaml:"scopes,omitempty"`
}

// SchemeType tags the SecurityScheme variant.
type SchemeType string

const (
	APIKey        SchemeType = "apiKey"
	HTTPAuth      SchemeType = "http"
	OAuth2        SchemeType = "oauth2"
	OpenIDConnect SchemeType = "openIdConnect"
)

// SecurityScheme is a tagged union on Type; only the fields of that variant
// are meaningful.
type SecurityScheme struct {
	Type        SchemeType `json:"type" yaml:"type"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`

	// apiKey
	In   string `json:"in,omitempty" yaml:"in,omitempty"` // header|query|cookie
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// http
	Scheme       string `json:"scheme,omitempty" yaml:"scheme,omitempty"` // bearer|basic
	BearerFormat string `json:"bearerFormat,omitempty" yaml:"bearerFormat,omitempty"`

	// oauth2
	Flows *OAuthFlows `json:"flows,omitempty" yaml:"flows,omitempty"`

	// openIdConnect
	OpenIDConnectURL string `json:"openIdConnectUrl,omitempty" yaml:"openIdConnectUrl,omitempty"`
}

type OAuthFlows struct {
	Implicit          *OAuthFlow `json:"implicit,omitempty" yaml:"implicit,omitempty"`
	Password          *OAuthFlow `json:"password,omitempty" yaml:"password,omitempty"`
	ClientCredentials *OAuthFlow `json:"clientCredentials,omitempty" yaml:"clientCredentials,omitempty"`
	AuthorizationCode *OAuthFlow `json:"authorizationCode,omitempty" yaml:"authorizationCode,omitempty"`
}

type OAuthFlow struct {
	AuthorizationURL string            `json:"authorizationUrl,omitempty" yaml:"authorizationUrl,omitempty"`
	TokenURL         string            `json:"tokenUrl,omitempty" yaml:"tokenUrl,omitempty"`
	RefreshURL       string            `json:"refreshUrl,omitempty" yaml:"refreshUrl,omitempty"`
	Scopes           map[string]string `json:"scopes" yaml:"scopes"`
}

// SchemaSummary is a listing row for a registered schema.
type SchemaSummary struct {
	Name       string      `json:"name" yaml:"name"`
	Type       schema.Type `json:"type,omitempty" yaml:"type,omitempty"`
	Ref        string      `json:"ref,omitempty" yaml:"ref,omitempty"`
	Properties int         `json:"properties" yaml:"properties"`
	References int         `json:"references" yaml:"references"`
}

// EndpointSummary is a listing row for an endpoint.
type EndpointSummary struct {
	Method      string   `json:"method" yaml:"method"`
	Path        string   `json:"path" yaml:"path"`
	OperationID string   `json:"operationId,omitempty" yaml:"operationId,omitempty"`
	Summary     string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}
