package session

import (
	"github.com/mark3labs/oasbuilder/internal/infer"
	"github.com/mark3labs/oasbuilder/internal/schema"
	"github.com/mark3labs/oasbuilder/internal/spec"
)

// Command is one operation on a Session. The set is closed: only the types
// in this file implement it, and Execute switches over all of them.
type Command interface {
	op() string
}

// Initialize creates the session's document. With Reset it replaces an
// existing one.
type Initialize struct {
	Title       string        `json:"title" yaml:"title"`
	Version     string        `json:"version" yaml:"version"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Servers     []spec.Server `json:"servers,omitempty" yaml:"servers,omitempty"`
	Reset       bool          `json:"reset,omitempty" yaml:"reset,omitempty"`
}

type RegisterSchema struct {
	Name   string         `json:"name" yaml:"name"`
	Schema *schema.Schema `json:"schema" yaml:"schema"`
}

type RegisterSecurityScheme struct {
	Name   string              `json:"name" yaml:"name"`
	Scheme spec.SecurityScheme `json:"scheme" yaml:"scheme"`
}

type AddEndpoint struct {
	Endpoint spec.Endpoint `json:"endpoint" yaml:"endpoint"`
}

type RemoveEndpoint struct {
	Method spec.HttpMethod `json:"method" yaml:"method"`
	Path   string          `json:"path" yaml:"path"`
}

type RemoveSchema struct {
	Name string `json:"name" yaml:"name"`
}

type RemoveSecurityScheme struct {
	Name string `json:"name" yaml:"name"`
}

// ScanSource scans Source, or the file at File when Source is empty. An empty
// Framework is detected from File's extension. Promote adds the drafts to
// the document as endpoints.
type ScanSource struct {
	Source    string `json:"source,omitempty" yaml:"source,omitempty"`
	File      string `json:"file,omitempty" yaml:"file,omitempty"`
	Framework string `json:"framework,omitempty" yaml:"framework,omitempty"`
	Promote   bool   `json:"promote,omitempty" yaml:"promote,omitempty"`
}

// ValidateValue checks Value against an inline Schema or the registered
// schema named Ref. Exactly one of the two must be set.
type ValidateValue struct {
	Value  any            `json:"value" yaml:"value"`
	Schema *schema.Schema `json:"schema,omitempty" yaml:"schema,omitempty"`
	Ref    string         `json:"ref,omitempty" yaml:"ref,omitempty"`
}

type ValidateDocument struct{}

// GenerateExample builds a sample for an inline Schema or the registered
// schema named Ref.
type GenerateExample struct {
	Schema *schema.Schema `json:"schema,omitempty" yaml:"schema,omitempty"`
	Ref    string         `json:"ref,omitempty" yaml:"ref,omitempty"`
}

// InferSchema derives a schema from Value. A non-empty Register stores the
// result in the document under that name.
type InferSchema struct {
	Value         any                  `json:"value" yaml:"value"`
	Register      string               `json:"register,omitempty" yaml:"register,omitempty"`
	Required      infer.RequiredPolicy `json:"required,omitempty" yaml:"required,omitempty"`
	DetectFormats bool                 `json:"detectFormats,omitempty" yaml:"detectFormats,omitempty"`
}

// Export serializes the document. A non-empty Path also writes the result
// to disk.
type Export struct {
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`
}

// ImportDocument replaces the session's document with one read from Input
// (a file path or http(s) URL) or from Data. Like Initialize it needs Reset
// once a document exists.
type ImportDocument struct {
	Input string `json:"input,omitempty" yaml:"input,omitempty"`
	Data  []byte `json:"-" yaml:"-"`
	Reset bool   `json:"reset,omitempty" yaml:"reset,omitempty"`
}

type ListSchemas struct{}

type ListEndpoints struct{}

func (Initialize) op() string             { return "initialize" }
func (RegisterSchema) op() string         { return "registerSchema" }
func (RegisterSecurityScheme) op() string { return "registerSecurityScheme" }
func (AddEndpoint) op() string            { return "addEndpoint" }
func (RemoveEndpoint) op() string         { return "removeEndpoint" }
func (RemoveSchema) op() string           { return "removeSchema" }
func (RemoveSecurityScheme) op() string   { return "removeSecurityScheme" }
func (ScanSource) op() string             { return "scanSource" }
func (ValidateValue) op() string          { return "validateValue" }
func (ValidateDocument) op() string       { return "validateDocument" }
func (GenerateExample) op() string        { return "generateExample" }
func (InferSchema) op() string            { return "inferSchema" }
func (Export) op() string                 { return "export" }
func (ImportDocument) op() string         { return "importDocument" }
func (ListSchemas) op() string            { return "listSchemas" }
func (ListEndpoints) op() string          { return "listEndpoints" }

// Name returns the operation name of cmd as used in batch files.
func Name(cmd Command) string { return cmd.op() }
