package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/oasbuilder/internal/infer"
	"github.com/mark3labs/oasbuilder/internal/schema"
	"github.com/mark3labs/oasbuilder/internal/spec"
	"github.com/mark3labs/oasbuilder/internal/validate"
)

const expressRoutes = `const express = require('express');
const app = express();

// app.get('/commented', handler);
app.get('/users', listUsers);
app.post("/users", createUser);
app.get('/users/:id', getUser);
app.get('/users', again);
`

func initialized(t *testing.T, opts ...Option) *Session {
	t.Helper()
	s := New(opts...)
	_, err := s.Execute(context.Background(), Initialize{Title: "Users API", Version: "1.0.0"})
	require.NoError(t, err)
	return s
}

func adultSchema() *schema.Schema {
	min := 18.0
	return schema.NewObject().SetProperty("age", &schema.Schema{Type: schema.Integer, Minimum: &min}, false)
}

func TestExecute_RequiresDocument(t *testing.T) {
	t.Parallel()
	s := New()
	for _, cmd := range []Command{
		RegisterSchema{Name: "User", Schema: schema.Of(schema.String)},
		AddEndpoint{Endpoint: spec.Endpoint{Method: spec.GET, Path: "/x"}},
		RemoveSchema{Name: "User"},
		ValidateDocument{},
		Export{},
		ListSchemas{},
		ListEndpoints{},
		ScanSource{Source: expressRoutes, Framework: "express", Promote: true},
		ValidateValue{Value: 1, Ref: "User"},
	} {
		_, err := s.Execute(context.Background(), cmd)
		assert.ErrorIs(t, err, spec.ErrNotInitialized, Name(cmd))
	}
}

func TestInitialize_ResetPolicy(t *testing.T) {
	t.Parallel()
	s := initialized(t)
	ctx := context.Background()
	_, err := s.Execute(ctx, RegisterSchema{Name: "User", Schema: adultSchema()})
	require.NoError(t, err)

	_, err = s.Execute(ctx, Initialize{Title: "Other", Version: "2"})
	require.ErrorIs(t, err, spec.ErrAlreadyInitialized)

	res, err := s.Execute(ctx, ListSchemas{})
	require.NoError(t, err)
	assert.Len(t, res.Schemas, 1, "rejected initialize keeps the document")

	res, err = s.Execute(ctx, Initialize{Title: "Other", Version: "2", Reset: true})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "initialize", res.Op)

	res, err = s.Execute(ctx, ListSchemas{})
	require.NoError(t, err)
	assert.Empty(t, res.Schemas)
}

func TestValidateValue_ByNameAndInline(t *testing.T) {
	t.Parallel()
	s := initialized(t)
	ctx := context.Background()
	_, err := s.Execute(ctx, RegisterSchema{Name: "Adult", Schema: adultSchema()})
	require.NoError(t, err)

	res, err := s.Execute(ctx, ValidateValue{Value: map[string]any{"age": 15}, Ref: "Adult"})
	require.NoError(t, err)
	require.NotNil(t, res.Validation)
	assert.False(t, res.Validation.Valid)
	require.Len(t, res.Validation.Errors, 1)
	assert.Equal(t, "/age", res.Validation.Errors[0].Path)
	assert.Equal(t, validate.RuleMinimum, res.Validation.Errors[0].Rule)

	res, err = s.Execute(ctx, ValidateValue{Value: []any{map[string]any{"age": 30}}, Schema: schema.ArrayOf(schema.Ref("#/components/schemas/Adult"))})
	require.NoError(t, err)
	assert.True(t, res.Validation.Valid)

	_, err = s.Execute(ctx, ValidateValue{Value: 1, Ref: "Missing"})
	require.ErrorIs(t, err, spec.ErrDanglingReference)

	_, err = s.Execute(ctx, ValidateValue{Value: 1, Schema: &schema.Schema{}})
	require.ErrorIs(t, err, spec.ErrStructural)
}

func TestValidateValue_WorksWithoutDocument(t *testing.T) {
	t.Parallel()
	res, err := New().Execute(context.Background(), ValidateValue{Value: "x", Schema: schema.Of(schema.Integer)})
	require.NoError(t, err)
	assert.False(t, res.Validation.Valid)
	assert.Equal(t, "/", res.Validation.Errors[0].Path)
}

func TestGenerateExample(t *testing.T) {
	t.Parallel()
	s := initialized(t)
	ctx := context.Background()
	_, err := s.Execute(ctx, RegisterSchema{Name: "Adult", Schema: adultSchema()})
	require.NoError(t, err)

	res, err := s.Execute(ctx, GenerateExample{Ref: "Adult"})
	require.NoError(t, err)
	check, err := s.Execute(ctx, ValidateValue{Value: res.Example, Ref: "Adult"})
	require.NoError(t, err)
	assert.True(t, check.Validation.Valid, "%+v", check.Validation.Errors)

	res, err = s.Execute(ctx, GenerateExample{Schema: schema.Ref("Nope")})
	require.NoError(t, err)
	assert.Nil(t, res.Example)
}

func TestInferSchema_Register(t *testing.T) {
	t.Parallel()
	s := initialized(t)
	ctx := context.Background()
	sample := map[string]any{"name": "Ada", "nickname": nil}

	res, err := s.Execute(ctx, InferSchema{Value: sample, Register: "Person"})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, []string{"name"}, res.Schema.Required)

	res, err = s.Execute(ctx, InferSchema{Value: sample, Required: infer.RequiredAll})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "nickname"}, res.Schema.Required)

	_, err = s.Execute(ctx, InferSchema{Value: sample, Required: "most"})
	require.ErrorIs(t, err, spec.ErrInputError)

	list, err := s.Execute(ctx, ListSchemas{})
	require.NoError(t, err)
	assert.Equal(t, "Person", list.Schemas[0].Name)
}

func TestScanSource_Promote(t *testing.T) {
	t.Parallel()
	s := initialized(t)
	ctx := context.Background()
	_, err := s.Execute(ctx, AddEndpoint{Endpoint: spec.Endpoint{Method: spec.POST, Path: "/users", Summary: "hand written"}})
	require.NoError(t, err)

	res, err := s.Execute(ctx, ScanSource{Source: expressRoutes, Framework: "expressLike", Promote: true})
	require.NoError(t, err)

	require.Len(t, res.Drafts, 3)
	assert.Equal(t, "GET", res.Drafts[0].Method)
	assert.Equal(t, "/users", res.Drafts[0].Path)
	assert.Equal(t, "/users/{id}", res.Drafts[2].Path)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "/users", res.Skipped[0].Path)
	assert.Equal(t, "POST", res.Skipped[0].Method)

	assert.Equal(t, []spec.EndpointSummary{
		{Method: "GET", Path: "/users", OperationID: "listUsers", Summary: "List users", Tags: []string{"users"}},
		{Method: "GET", Path: "/users/{id}", OperationID: "getUser", Summary: "Get user", Tags: []string{"users"}},
	}, res.Promoted)

	report, err := s.Execute(ctx, ValidateDocument{})
	require.NoError(t, err)
	assert.True(t, report.Report.Valid, "%+v", report.Report.Errors)
}

func TestScanSource_EmptyIsNotAnError(t *testing.T) {
	t.Parallel()
	res, err := New().Execute(context.Background(), ScanSource{Source: "print('hello')\n", Framework: "fastapi"})
	require.NoError(t, err)
	assert.Empty(t, res.Drafts)
	assert.Equal(t, "no routes recognized", res.Message)

	_, err = New().Execute(context.Background(), ScanSource{Source: "x", Framework: "rails"})
	require.ErrorIs(t, err, spec.ErrInputError)
}

func TestDraftEndpoint_Naming(t *testing.T) {
	t.Parallel()
	cases := []struct {
		method  spec.HttpMethod
		path    string
		id      string
		summary string
	}{
		{spec.GET, "/users", "listUsers", "List users"},
		{spec.GET, "/users/{id}", "getUser", "Get user"},
		{spec.POST, "/users", "createUser", "Create user"},
		{spec.PUT, "/users/{id}", "updateUser", "Update user"},
		{spec.DELETE, "/users/{id}", "deleteUser", "Delete user"},
	}
	for _, tc := range cases {
		ep := draftEndpoint(tc.method, tc.path)
		assert.Equal(t, tc.id, ep.OperationID, tc.path)
		assert.Equal(t, tc.summary, ep.Summary, tc.path)
	}

	ep := draftEndpoint(spec.GET, "/orgs/{org}/repos/{repo}")
	require.Len(t, ep.Parameters, 2)
	assert.Equal(t, "org", ep.Parameters[0].Name)
	assert.Equal(t, spec.InPath, ep.Parameters[1].In)
	assert.Equal(t, []string{"orgs"}, ep.Tags)
}

func TestUniqueID(t *testing.T) {
	t.Parallel()
	taken := map[string]struct{}{"getUser": {}, "getUser2": {}}
	assert.Equal(t, "getUser3", uniqueID("getUser", taken))
	assert.Equal(t, "listUsers", uniqueID("listUsers", taken))
}

func TestExport_WritesFileAndImportsBack(t *testing.T) {
	t.Parallel()
	s := initialized(t)
	ctx := context.Background()
	_, err := s.Execute(ctx, RegisterSchema{Name: "Adult", Schema: adultSchema()})
	require.NoError(t, err)
	_, err = s.Execute(ctx, AddEndpoint{Endpoint: spec.Endpoint{
		Method:    spec.GET,
		Path:      "/adults",
		Responses: map[string]spec.Response{"200": {Schema: schema.ArrayOf(schema.Ref("Adult"))}},
	}})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "openapi.yaml")
	res, err := s.Execute(ctx, Export{Format: "structured-yaml", Path: path})
	require.NoError(t, err)
	assert.Equal(t, path, res.Path)
	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, res.Output, string(written))
	assert.True(t, strings.HasPrefix(res.Output, "openapi: 3.0.3"))

	_, err = s.Execute(ctx, ImportDocument{Input: path})
	require.ErrorIs(t, err, spec.ErrAlreadyInitialized)

	other := New()
	_, err = other.Execute(ctx, ImportDocument{Input: path})
	require.NoError(t, err)
	list, err := other.Execute(ctx, ListEndpoints{})
	require.NoError(t, err)
	require.Len(t, list.Endpoints, 1)
	assert.Equal(t, "/adults", list.Endpoints[0].Path)
}

func TestExport_UnsupportedFormat(t *testing.T) {
	t.Parallel()
	_, err := initialized(t).Execute(context.Background(), Export{Format: "xml"})
	code, ok := spec.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, spec.UnsupportedFormat, code)
}

func TestRemovals_ReportPresence(t *testing.T) {
	t.Parallel()
	s := initialized(t)
	ctx := context.Background()
	_, err := s.Execute(ctx, RegisterSecurityScheme{Name: "token", Scheme: spec.SecurityScheme{Type: spec.HTTPAuth, Scheme: "bearer"}})
	require.NoError(t, err)
	_, err = s.Execute(ctx, AddEndpoint{Endpoint: spec.Endpoint{Method: "GET", Path: "/me", Security: []spec.SecurityRequirement{{Scheme: "token"}}}})
	require.NoError(t, err)

	res, err := s.Execute(ctx, RemoveSecurityScheme{Name: "token"})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	res, err = s.Execute(ctx, RemoveSecurityScheme{Name: "token"})
	require.NoError(t, err)
	assert.False(t, res.Changed)

	_, err = s.Execute(ctx, Export{})
	require.ErrorIs(t, err, spec.ErrDanglingReference)

	res, err = s.Execute(ctx, RemoveEndpoint{Method: "get", Path: "/me"})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	_, err = s.Execute(ctx, Export{})
	require.NoError(t, err)
}

func TestExecute_SerializesConcurrentCallers(t *testing.T) {
	t.Parallel()
	s := initialized(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Execute(ctx, AddEndpoint{Endpoint: spec.Endpoint{Method: spec.GET, Path: "/items/" + string(rune('a'+i))}})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	res, err := s.Execute(ctx, ListEndpoints{})
	require.NoError(t, err)
	assert.Len(t, res.Endpoints, 20)
}

func TestExecute_CanceledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Execute(ctx, ListSchemas{})
	assert.ErrorIs(t, err, context.Canceled)
}
