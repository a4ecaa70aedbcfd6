package spec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/avast/retry-go"
	openapi2 "github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Settings configures loader behavior.
type Settings struct {
	// HTTPTimeout bounds each HTTP request.
	HTTPTimeout time.Duration
	// MaxRetries for transient HTTP failures (>=500, 429, or network errors).
	MaxRetries int
	// BackoffBase is the base delay for exponential backoff.
	BackoffBase time.Duration
	// AllowFileRefs permits file:// external references. Local file roots
	// always allow them.
	AllowFileRefs bool
	// Logger receives permissive-mode warnings.
	Logger *slog.Logger
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{
		HTTPTimeout: 10 * time.Second,
		MaxRetries:  3,
		BackoffBase: 200 * time.Millisecond,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Option mutates Settings.
type Option func(*Settings)

func WithHTTPTimeout(d time.Duration) Option  { return func(s *Settings) { s.HTTPTimeout = d } }
func WithMaxRetries(n int) Option             { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option  { return func(s *Settings) { s.BackoffBase = d } }
func WithAllowFileRefs(allow bool) Option     { return func(s *Settings) { s.AllowFileRefs = allow } }
func WithLogger(l *slog.Logger) Option        { return func(s *Settings) { s.Logger = l } }

func settingsFrom(opts []Option) Settings {
	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	if settings.Logger == nil {
		settings.Logger = DefaultSettings().Logger
	}
	return settings
}

// Load reads an OpenAPI 3.x or Swagger 2.0 document and converts it into a
// Document. input may be a filesystem path or an http/https URL; file://
// URLs are rejected.
func Load(ctx context.Context, input string, opts ...Option) (*Document, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &SpecError{Code: InputError, Message: "spec: input is empty"}
	}
	settings := settingsFrom(opts)

	u, uerr := url.Parse(input)
	if uerr == nil && u.Scheme != "" && u.Host != "" {
		scheme := strings.ToLower(u.Scheme)
		if scheme == "file" {
			return nil, &SpecError{Code: InputError, Message: "spec: file:// URLs are blocked", Location: input}
		}
		if scheme != "http" && scheme != "https" {
			return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: unsupported URL scheme %q (only http/https allowed)", scheme), Location: input}
		}
		raw, err := fetchWithRetry(ctx, input, settings)
		if err != nil {
			return nil, &SpecError{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", input, err), Location: input, Cause: err}
		}
		return load(ctx, raw, input, u, false, settings)
	}

	abs, err := filepath.Abs(input)
	if err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: input, Cause: err}
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
	}
	return load(ctx, raw, abs, &url.URL{Path: filepath.ToSlash(abs)}, true, settings)
}

// LoadData converts an in-memory document. External file references are
// only followed with WithAllowFileRefs.
func LoadData(ctx context.Context, data []byte, opts ...Option) (*Document, error) {
	return load(ctx, data, "", nil, false, settingsFrom(opts))
}

func load(ctx context.Context, raw []byte, location string, base *url.URL, rootIsFile bool, settings Settings) (*Document, error) {
	version, err := detectSpecVersion(raw)
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: location, Cause: err}
	}

	var doc *openapi3.T
	switch version {
	case 3:
		loader := newLoader(settings, rootIsFile)
		if base != nil {
			doc, err = loader.LoadFromDataWithPath(raw, base)
		} else {
			doc, err = loader.LoadFromData(raw)
		}
		if err != nil {
			return nil, mapValidateOrParseErr(err, location)
		}
	case 2:
		if fixed, changed, rerr := repairV2Bodies(raw); rerr == nil && changed {
			settings.Logger.Debug("rewrote swagger 2 body parameters", "location", location)
			raw = fixed
		}
		doc, err = convertV2ToV3(raw)
		if err != nil {
			return nil, &SpecError{Code: ConversionError, Message: fmt.Sprintf("convert v2→v3: %v", err), Location: location, Cause: err}
		}
		loader := newLoader(settings, rootIsFile)
		if err := loader.ResolveRefsIn(doc, base); err != nil {
			settings.Logger.Warn("resolve refs after conversion", "location", location, "err", err)
		}
	default:
		return nil, &SpecError{Code: ParseError, Message: "spec: unknown or unsupported OpenAPI/Swagger version", Location: location}
	}

	if err := doc.Validate(ctx); err != nil {
		if !canProceedDespiteValidation(err) {
			return nil, mapValidateOrParseErr(err, location)
		}
		settings.Logger.Warn("document has unresolved references, continuing", "location", location, "err", err)
	}

	hints, err := readOrderHints(raw, version)
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: location, Cause: err}
	}
	out, err := fromOpenAPI(doc, hints, settings.Logger)
	if err != nil {
		var se *SpecError
		if errors.As(err, &se) && se.Location == "" {
			se.Location = location
		}
		return nil, err
	}
	return out, nil
}

func newLoader(settings Settings, rootIsFile bool) *openapi3.Loader {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	client := &http.Client{Timeout: settings.HTTPTimeout}
	allowFile := settings.AllowFileRefs || rootIsFile
	loader.ReadFromURIFunc = func(l *openapi3.Loader, uri *url.URL) ([]byte, error) {
		switch strings.ToLower(uri.Scheme) {
		case "", "file":
			if !allowFile {
				return nil, fmt.Errorf("blocked file ref: %s", uri.String())
			}
			path := uri.Path
			if path == "" {
				path = uri.Opaque
			}
			return os.ReadFile(path)
		case "http", "https":
			req, err := http.NewRequest(http.MethodGet, uri.String(), nil)
			if err != nil {
				return nil, err
			}
			resp, err := client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 400 {
				return nil, fmt.Errorf("http %d: %s", resp.StatusCode, uri.String())
			}
			return io.ReadAll(resp.Body)
		default:
			return nil, fmt.Errorf("unsupported ref scheme: %s", uri.Scheme)
		}
	}
	return loader
}

// detectSpecVersion returns 3 for OpenAPI v3, 2 for Swagger v2, else error.
func detectSpecVersion(data []byte) (int, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return 0, fmt.Errorf("parse spec: %w", err)
	}
	if v, ok := root["openapi"]; ok {
		if s, _ := v.(string); strings.HasPrefix(strings.TrimSpace(s), "3.") {
			return 3, nil
		}
	}
	if v, ok := root["swagger"]; ok {
		if s, _ := v.(string); strings.HasPrefix(strings.TrimSpace(s), "2.") {
			return 2, nil
		}
	}
	return 0, fmt.Errorf("spec: missing or unknown version (expected 'openapi: 3.x' or 'swagger: 2.0')")
}

// convertV2ToV3 goes through JSON because openapi2.T only carries json tags.
func convertV2ToV3(data []byte) (*openapi3.T, error) {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	asJSON, err := gojson.Marshal(generic)
	if err != nil {
		return nil, err
	}
	var v2 openapi2.T
	if err := gojson.Unmarshal(asJSON, &v2); err != nil {
		return nil, err
	}
	return openapi2conv.ToV3(&v2)
}

// errPermanent marks a fetch failure that retrying cannot fix.
type errPermanent struct{ error }

func fetchWithRetry(ctx context.Context, rawURL string, settings Settings) ([]byte, error) {
	client := &http.Client{Timeout: settings.HTTPTimeout}
	attempts := settings.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	backoff := settings.BackoffBase
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}

	var body []byte
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if err != nil {
				return errPermanent{err}
			}
			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			switch {
			case resp.StatusCode < 300:
				body, err = io.ReadAll(resp.Body)
				return err
			case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
				return fmt.Errorf("transient http error %d", resp.StatusCode)
			default:
				snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
				return errPermanent{fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))}
			}
		},
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.Delay(backoff),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var p errPermanent
			return !errors.As(err, &p) && ctx.Err() == nil
		}),
		retry.OnRetry(func(n uint, err error) {
			settings.Logger.Debug("retrying fetch", "url", rawURL, "attempt", n+1, "err", err)
		}),
	)
	if err != nil {
		var p errPermanent
		if errors.As(err, &p) {
			return nil, p.error
		}
		return nil, err
	}
	return body, nil
}

func mapValidateOrParseErr(err error, location string) error {
	pointer := extractJSONPointer(err)
	code := ValidationError
	// Some loader errors are parse errors.
	if msg := strings.ToLower(err.Error()); strings.Contains(msg, "parse") || strings.Contains(msg, "invalid character") {
		code = ParseError
	}
	return &SpecError{Code: code, Message: err.Error(), Location: location, Pointer: pointer, Cause: err}
}

var jsonPtrRe = regexp.MustCompile(`#/[^\s'"]+`)

// extractJSONPointer returns the pointer of err without the leading "#".
func extractJSONPointer(err error) string {
	if err == nil {
		return ""
	}
	if me, ok := err.(openapi3.MultiError); ok {
		if len(me) > 0 {
			return extractJSONPointer(me[0])
		}
	}
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		if parts := se.JSONPointer(); len(parts) > 0 {
			return "/" + strings.Join(parts, "/")
		}
	}
	if m := jsonPtrRe.FindString(err.Error()); m != "" {
		return strings.TrimPrefix(m, "#")
	}
	return ""
}

// canProceedDespiteValidation returns true for validation errors where a
// best-effort conversion can still proceed (unresolved $ref entries end up
// as dangling references that ValidateDocument reports).
func canProceedDespiteValidation(err error) bool {
	if err == nil {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unresolved ref") || strings.Contains(s, "found unresolved ref")
}
