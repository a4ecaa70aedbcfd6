package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/oasbuilder/internal/session"
	"github.com/mark3labs/oasbuilder/internal/spec"
)

const usersBatch = `
- op: initialize
  title: Users API
  version: 1.0.0
  servers:
    - url: https://api.example.com
- op: registerSecurityScheme
  name: token
  scheme:
    type: http
    scheme: bearer
    bearerFormat: JWT
- op: inferSchema
  register: User
  value:
    name: Ada
    age: 36
    email: null
- op: addEndpoint
  endpoint:
    method: GET
    path: /users/{id}
    parameters:
      - name: id
        in: path
    responses:
      "200":
        description: The user
        schema:
          $ref: "#/components/schemas/User"
    security:
      - scheme: token
- op: validateValue
  ref: User
  value:
    name: Grace
    age: 1.5
- op: export
  format: yaml
  path: %s
`

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRun_BuildsAndExports(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	exportPath := filepath.Join(dir, "openapi.yaml")
	opsPath := filepath.Join(dir, "ops.yaml")
	if err := os.WriteFile(opsPath, []byte(strings.Replace(usersBatch, "%s", exportPath, 1)), 0o600); err != nil {
		t.Fatalf("write ops: %v", err)
	}

	out, err := runRoot(t, "run", opsPath)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	for _, want := range []string{"op: initialize", "op: inferSchema", "ruleViolated: type", "path: /age", "written to"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	doc := string(data)
	if !strings.Contains(doc, "/users/{id}:") || !strings.Contains(doc, "bearerFormat: JWT") {
		t.Fatalf("unexpected export:\n%s", doc)
	}
	user := doc[strings.Index(doc, "    User:"):]
	if strings.Index(user, "name:") > strings.Index(user, "age:") {
		t.Fatalf("expected sample key order name, age in export:\n%s", doc)
	}
}

func TestRun_StopsAtFirstRejection(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	opsPath := filepath.Join(dir, "ops.yaml")
	ops := `
- op: initialize
  title: T
  version: "1"
- op: addEndpoint
  endpoint: {method: get, path: /foos, responses: {"200": {schema: {$ref: Foo}}}}
- op: listEndpoints
`
	if err := os.WriteFile(opsPath, []byte(ops), 0o600); err != nil {
		t.Fatalf("write ops: %v", err)
	}

	out, err := runRoot(t, "--format", "json", "run", opsPath)
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "DanglingReferenceError") || !strings.Contains(err.Error(), "Pointer: /paths/~1foos/get") {
		t.Fatalf("unexpected error text: %v", err)
	}
	if !strings.Contains(out, `"op": "initialize"`) || strings.Contains(out, "listEndpoints") {
		t.Fatalf("expected only the results before the failure:\n%s", out)
	}
}

func TestParseBatch(t *testing.T) {
	t.Parallel()
	cmds, err := parseBatch([]byte(`[{op: listSchemas}, {op: removeEndpoint, method: DELETE, path: /x}, {op: inferSchema, value: {b: 1, a: 2}}]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cmds) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(cmds))
	}
	if _, ok := cmds[0].(session.ListSchemas); !ok {
		t.Fatalf("expected ListSchemas, got %T", cmds[0])
	}
	if rm, ok := cmds[1].(session.RemoveEndpoint); !ok || rm.Method != spec.HttpMethod("DELETE") || rm.Path != "/x" {
		t.Fatalf("unexpected remove command %#v", cmds[1])
	}
	inf := cmds[2].(session.InferSchema)
	res, err := session.New().Execute(context.Background(), inf)
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	keys := []string{}
	for pair := res.Schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	if strings.Join(keys, ",") != "b,a" {
		t.Fatalf("expected sample order b,a, got %v", keys)
	}

	for _, bad := range []string{
		`{op: initialize}`,
		`[{title: x}]`,
		`[{op: frobnicate}]`,
		`[{op: removeSchema, name: x, extra: 1}]`,
	} {
		if _, err := parseBatch([]byte(bad)); err == nil {
			t.Fatalf("expected error for %s", bad)
		}
	}
}
