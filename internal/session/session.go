// Package session owns one API document and runs commands against it.
//
// Every command holds the session lock for its whole duration, so callers on
// different goroutines are serialized. Independent sessions share nothing.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/mark3labs/oasbuilder/internal/example"
	"github.com/mark3labs/oasbuilder/internal/infer"
	"github.com/mark3labs/oasbuilder/internal/scan"
	"github.com/mark3labs/oasbuilder/internal/schema"
	"github.com/mark3labs/oasbuilder/internal/spec"
	"github.com/mark3labs/oasbuilder/internal/validate"
)

// Session holds the document built by a sequence of commands.
type Session struct {
	mu  sync.Mutex
	doc *spec.Document

	log       *slog.Logger
	inferOpts []infer.Option
	loadOpts  []spec.Option
}

// Option configures a Session.
type Option func(*Session)

// WithLogger routes session and importer logs to l.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithInferOptions sets the defaults for InferSchema.
func WithInferOptions(opts ...infer.Option) Option {
	return func(s *Session) { s.inferOpts = append(s.inferOpts, opts...) }
}

// WithLoadOptions sets the importer options for ImportDocument.
func WithLoadOptions(opts ...spec.Option) Option {
	return func(s *Session) { s.loadOpts = append(s.loadOpts, opts...) }
}

// New returns a session without a document.
func New(opts ...Option) *Session {
	s := &Session{log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Skipped is a scanned draft that could not be promoted to an endpoint.
type Skipped struct {
	Method string `json:"method" yaml:"method"`
	Path   string `json:"path" yaml:"path"`
	Line   int    `json:"line" yaml:"line"`
	Reason string `json:"reason" yaml:"reason"`
}

// Result is the structured outcome of a command. Only the fields relevant to
// the command are set.
type Result struct {
	Op      string `json:"op" yaml:"op"`
	Changed bool   `json:"changed" yaml:"changed"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	Drafts     []scan.Draft           `json:"drafts,omitempty" yaml:"drafts,omitempty"`
	Promoted   []spec.EndpointSummary `json:"promoted,omitempty" yaml:"promoted,omitempty"`
	Skipped    []Skipped              `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Validation *validate.Result       `json:"validation,omitempty" yaml:"validation,omitempty"`
	Report     *spec.Report           `json:"report,omitempty" yaml:"report,omitempty"`
	Example    any                    `json:"example,omitempty" yaml:"example,omitempty"`
	Schema     *schema.Schema         `json:"schema,omitempty" yaml:"schema,omitempty"`
	Output     string                 `json:"output,omitempty" yaml:"output,omitempty"`
	Path       string                 `json:"path,omitempty" yaml:"path,omitempty"`
	Schemas    []spec.SchemaSummary   `json:"schemas,omitempty" yaml:"schemas,omitempty"`
	Endpoints  []spec.EndpointSummary `json:"endpoints,omitempty" yaml:"endpoints,omitempty"`
}

// Execute runs cmd to completion. Rejections are *spec.SpecError values and
// leave the document unchanged.
func (s *Session) Execute(ctx context.Context, cmd Command) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.dispatch(ctx, cmd)
	res.Op = cmd.op()
	if err != nil {
		s.log.Debug("command rejected", "op", cmd.op(), "error", err)
		return res, err
	}
	s.log.Debug("command done", "op", cmd.op(), "changed", res.Changed)
	return res, nil
}

func (s *Session) dispatch(ctx context.Context, cmd Command) (Result, error) {
	switch c := cmd.(type) {
	case Initialize:
		return s.initialize(c)
	case RegisterSchema:
		return s.withDocument(func(d *spec.Document) (Result, error) {
			if err := d.RegisterSchema(c.Name, c.Schema); err != nil {
				return Result{}, err
			}
			return Result{Changed: true, Message: fmt.Sprintf("schema %s registered", c.Name)}, nil
		})
	case RegisterSecurityScheme:
		return s.withDocument(func(d *spec.Document) (Result, error) {
			if err := d.RegisterSecurityScheme(c.Name, c.Scheme); err != nil {
				return Result{}, err
			}
			return Result{Changed: true, Message: fmt.Sprintf("security scheme %s registered", c.Name)}, nil
		})
	case AddEndpoint:
		return s.withDocument(func(d *spec.Document) (Result, error) {
			if err := d.AddEndpoint(c.Endpoint); err != nil {
				return Result{}, err
			}
			key := c.Endpoint.Key()
			return Result{Changed: true, Message: fmt.Sprintf("endpoint %s added", key)}, nil
		})
	case RemoveEndpoint:
		return s.withDocument(func(d *spec.Document) (Result, error) {
			return removal(d.RemoveEndpoint(c.Method, c.Path), "endpoint", spec.RouteKey{Method: c.Method, Path: c.Path}.String()), nil
		})
	case RemoveSchema:
		return s.withDocument(func(d *spec.Document) (Result, error) {
			return removal(d.RemoveSchema(c.Name), "schema", c.Name), nil
		})
	case RemoveSecurityScheme:
		return s.withDocument(func(d *spec.Document) (Result, error) {
			return removal(d.RemoveSecurityScheme(c.Name), "security scheme", c.Name), nil
		})
	case ScanSource:
		return s.scanSource(c)
	case ValidateValue:
		return s.validateValue(c)
	case ValidateDocument:
		return s.withDocument(func(d *spec.Document) (Result, error) {
			report := spec.ValidateDocument(d)
			return Result{Report: &report}, nil
		})
	case GenerateExample:
		return s.generateExample(c)
	case InferSchema:
		return s.inferSchema(c)
	case Export:
		return s.withDocument(func(d *spec.Document) (Result, error) { return export(d, c) })
	case ImportDocument:
		return s.importDocument(ctx, c)
	case ListSchemas:
		return s.withDocument(func(d *spec.Document) (Result, error) {
			return Result{Schemas: d.ListSchemas()}, nil
		})
	case ListEndpoints:
		return s.withDocument(func(d *spec.Document) (Result, error) {
			return Result{Endpoints: d.ListEndpoints()}, nil
		})
	default:
		return Result{}, fmt.Errorf("session: unhandled command %T", cmd)
	}
}

func (s *Session) withDocument(fn func(*spec.Document) (Result, error)) (Result, error) {
	if s.doc == nil {
		return Result{}, &spec.SpecError{Code: spec.NotInitialized, Message: "no document: run initialize or importDocument first"}
	}
	return fn(s.doc)
}

func removal(removed bool, kind, name string) Result {
	if !removed {
		return Result{Message: fmt.Sprintf("%s %s not present", kind, name)}
	}
	return Result{Changed: true, Message: fmt.Sprintf("%s %s removed", kind, name)}
}

func (s *Session) initialize(c Initialize) (Result, error) {
	if s.doc != nil && !c.Reset {
		return Result{}, &spec.SpecError{Code: spec.AlreadyInitialized, Message: fmt.Sprintf("document %q already initialized; pass reset to replace it", s.doc.Title)}
	}
	doc, err := spec.NewDocument(c.Title, c.Version, c.Description, c.Servers)
	if err != nil {
		return Result{}, err
	}
	s.doc = doc
	return Result{Changed: true, Message: fmt.Sprintf("document %s %s initialized", doc.Title, doc.Version)}, nil
}

func (s *Session) importDocument(ctx context.Context, c ImportDocument) (Result, error) {
	if s.doc != nil && !c.Reset {
		return Result{}, &spec.SpecError{Code: spec.AlreadyInitialized, Message: fmt.Sprintf("document %q already initialized; pass reset to replace it", s.doc.Title)}
	}
	opts := append([]spec.Option{spec.WithLogger(s.log)}, s.loadOpts...)
	var (
		doc *spec.Document
		err error
	)
	switch {
	case c.Input != "" && len(c.Data) > 0:
		return Result{}, inputError("importDocument takes input or data, not both")
	case c.Input != "":
		doc, err = spec.Load(ctx, c.Input, opts...)
	case len(c.Data) > 0:
		doc, err = spec.LoadData(ctx, c.Data, opts...)
	default:
		return Result{}, inputError("importDocument needs input")
	}
	if err != nil {
		return Result{}, err
	}
	s.doc = doc
	s.log.Info("document imported", "title", doc.Title, "endpoints", len(doc.Endpoints()), "schemas", len(doc.Schemas()))
	return Result{Changed: true, Message: fmt.Sprintf("document %s %s imported", doc.Title, doc.Version)}, nil
}

func (s *Session) scanSource(c ScanSource) (Result, error) {
	if c.Promote && s.doc == nil {
		return Result{}, &spec.SpecError{Code: spec.NotInitialized, Message: "no document to promote drafts into"}
	}
	var fw scan.Framework
	if c.Framework != "" {
		parsed, err := scan.ParseFramework(c.Framework)
		if err != nil {
			return Result{}, &spec.SpecError{Code: spec.InputError, Message: err.Error(), Cause: err}
		}
		fw = parsed
	}

	var drafts []scan.Draft
	switch {
	case c.Source != "":
		if fw == "" {
			return Result{}, inputError("scanSource on inline source needs a framework")
		}
		drafts = scan.Scan(c.Source, fw)
	case c.File != "":
		found, err := scan.ScanFile(c.File, fw)
		if err != nil {
			return Result{}, &spec.SpecError{Code: spec.InputError, Message: err.Error(), Location: c.File, Cause: err}
		}
		drafts = found
	default:
		return Result{}, inputError("scanSource needs source or file")
	}

	res := Result{Drafts: drafts}
	if len(drafts) == 0 {
		res.Message = "no routes recognized"
	}
	if c.Promote {
		res.Promoted, res.Skipped = promote(s.doc, drafts)
		res.Changed = len(res.Promoted) > 0
		for _, sk := range res.Skipped {
			s.log.Warn("draft not promoted", "method", sk.Method, "path", sk.Path, "line", sk.Line, "reason", sk.Reason)
		}
	}
	return res, nil
}

// target resolves the inline-or-named schema argument shared by
// ValidateValue and GenerateExample. The resolver is the document when
// there is one.
func (s *Session) target(inline *schema.Schema, ref string) (*schema.Schema, schema.Resolver, error) {
	var resolver schema.Resolver = schema.Map(nil)
	if s.doc != nil {
		resolver = s.doc
	}
	switch {
	case inline != nil && ref != "":
		return nil, nil, inputError("pass an inline schema or a ref, not both")
	case ref != "":
		if s.doc == nil {
			return nil, nil, &spec.SpecError{Code: spec.NotInitialized, Message: "no document to resolve " + ref}
		}
		name := schema.RefName(ref)
		if _, ok := s.doc.Schema(name); !ok {
			return nil, nil, &spec.SpecError{Code: spec.DanglingReference, Message: fmt.Sprintf("schema %q is not registered", name), Names: []string{name}}
		}
		return schema.Ref(name), resolver, nil
	case inline != nil:
		c := inline.Clone()
		c.NormalizeRefs()
		return c, resolver, nil
	}
	return nil, nil, inputError("a schema or ref is required")
}

func (s *Session) validateValue(c ValidateValue) (Result, error) {
	target, resolver, err := s.target(c.Schema, c.Ref)
	if err != nil {
		return Result{}, err
	}
	result, err := validate.Validate(c.Value, target, resolver)
	if err != nil {
		return Result{}, malformed(err)
	}
	return Result{Validation: &result}, nil
}

func (s *Session) generateExample(c GenerateExample) (Result, error) {
	target, resolver, err := s.target(c.Schema, c.Ref)
	if err != nil {
		return Result{}, err
	}
	if !target.IsRef() {
		if err := schema.Check(target); err != nil {
			return Result{}, malformed(err)
		}
	}
	return Result{Example: example.Generate(target, resolver)}, nil
}

func (s *Session) inferSchema(c InferSchema) (Result, error) {
	opts := append([]infer.Option(nil), s.inferOpts...)
	if c.Required != "" {
		policy, ok := infer.ParseRequiredPolicy(string(c.Required))
		if !ok {
			return Result{}, inputError(fmt.Sprintf("unknown required policy %q (allowed: non-null, all, none)", c.Required))
		}
		opts = append(opts, infer.WithRequiredPolicy(policy))
	}
	if c.DetectFormats {
		opts = append(opts, infer.WithFormatDetection(true))
	}
	inferred := infer.Infer(c.Value, opts...)
	res := Result{Schema: inferred}
	if c.Register == "" {
		return res, nil
	}
	if s.doc == nil {
		return Result{}, &spec.SpecError{Code: spec.NotInitialized, Message: "no document to register " + c.Register + " in"}
	}
	if err := s.doc.RegisterSchema(c.Register, inferred); err != nil {
		return Result{}, err
	}
	res.Changed = true
	res.Message = fmt.Sprintf("schema %s registered", c.Register)
	return res, nil
}

func export(d *spec.Document, c Export) (Result, error) {
	format := spec.JSON
	if c.Format != "" {
		f, err := spec.ParseFormat(c.Format)
		if err != nil {
			return Result{}, err
		}
		format = f
	}
	out, err := spec.Export(d, format)
	if err != nil {
		return Result{}, err
	}
	res := Result{Output: string(out)}
	if c.Path != "" {
		if err := spec.WriteFile(c.Path, out); err != nil {
			return Result{}, err
		}
		res.Path = c.Path
		res.Message = "written to " + c.Path
	}
	return res, nil
}

func inputError(msg string) error {
	return &spec.SpecError{Code: spec.InputError, Message: msg}
}

// malformed turns a schema check failure into a Structural error.
func malformed(err error) error {
	var me *schema.MalformedError
	if errors.As(err, &me) {
		return &spec.SpecError{Code: spec.Structural, Message: err.Error(), Pointer: me.Pointer, Cause: err}
	}
	return &spec.SpecError{Code: spec.Structural, Message: err.Error(), Cause: err}
}
