package infer

import (
	"bytes"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/oasbuilder/internal/schema"
	"github.com/mark3labs/oasbuilder/internal/value"
)

func mustDecode(t *testing.T, s string) any {
	t.Helper()
	v, err := value.Decode([]byte(s))
	require.NoError(t, err)
	return v
}

func propertyNames(s *schema.Schema) []string {
	var out []string
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// compile hands the inferred schema to an independent JSON Schema validator.
func compile(t *testing.T, s *schema.Schema) *jsonschema.Schema {
	t.Helper()
	data, err := gojson.Marshal(s)
	require.NoError(t, err)
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	require.NoError(t, err)

	c := jsonschema.NewCompiler()
	c.AssertFormat()
	require.NoError(t, c.AddResource("inferred.json", doc))
	compiled, err := c.Compile("inferred.json")
	require.NoError(t, err)
	return compiled
}

func TestInfer_ObjectShape(t *testing.T) {
	t.Parallel()
	s := Infer(mustDecode(t, `{"name": "Ada", "age": 36, "score": 9.5, "admin": false, "email": null, "tags": ["x"]}`))

	require.Equal(t, schema.Object, s.Type)
	assert.Equal(t, []string{"name", "age", "score", "admin", "email", "tags"}, propertyNames(s))
	assert.Equal(t, []string{"name", "age", "score", "admin", "tags"}, s.Required)

	want := map[string]schema.Type{
		"name": schema.String, "age": schema.Integer, "score": schema.Number,
		"admin": schema.Boolean, "email": schema.Null, "tags": schema.Array,
	}
	for name, typ := range want {
		p, ok := s.Property(name)
		require.True(t, ok, name)
		assert.Equal(t, typ, p.Type, name)
	}
	tags, _ := s.Property("tags")
	assert.Equal(t, schema.String, tags.Items.Type)
	require.NoError(t, schema.Check(s))
}

func TestInfer_RequiredPolicies(t *testing.T) {
	t.Parallel()
	sample := mustDecode(t, `{"a": 1, "b": null}`)
	assert.Equal(t, []string{"a", "b"}, Infer(sample, WithRequiredPolicy(RequiredAll)).Required)
	assert.Empty(t, Infer(sample, WithRequiredPolicy(RequiredNone)).Required)
	assert.Equal(t, []string{"a"}, Infer(sample).Required)

	p, ok := ParseRequiredPolicy("")
	assert.True(t, ok)
	assert.Equal(t, RequiredNonNull, p)
	_, ok = ParseRequiredPolicy("most")
	assert.False(t, ok)
}

func TestInfer_Arrays(t *testing.T) {
	t.Parallel()
	empty := Infer([]any{})
	assert.Equal(t, schema.Array, empty.Type)
	assert.Equal(t, schema.String, empty.Items.Type)

	numbers := Infer(mustDecode(t, `[1, 2.5, 3]`))
	assert.Equal(t, schema.Number, numbers.Items.Type)

	objects := Infer(mustDecode(t, `[{"a": 1, "c": "x"}, {"b": 2, "a": 1.5, "c": "y"}]`))
	assert.Equal(t, []string{"a", "c", "b"}, propertyNames(objects.Items))
	assert.Equal(t, []string{"a", "c"}, objects.Items.Required)
	a, _ := objects.Items.Property("a")
	assert.Equal(t, schema.Number, a.Type)

	formats := Infer(mustDecode(t, `["3f2504e0-4f89-11d3-9a0c-0305e82c3301", "plain"]`), WithFormatDetection(true))
	assert.Empty(t, formats.Items.Format)

	// Types with no common schema keep the first element's.
	mixed := Infer(mustDecode(t, `[{"id": 1}, "x"]`))
	assert.Equal(t, schema.Object, mixed.Items.Type)
	assert.Equal(t, []string{"id"}, propertyNames(mixed.Items))
}

func TestInfer_FormatsAreOptIn(t *testing.T) {
	t.Parallel()
	sample := mustDecode(t, `{"id": "3f2504e0-4f89-11d3-9a0c-0305e82c3301", "at": "2024-01-02T03:04:05Z", "word": "hello"}`)

	plain := Infer(sample)
	id, _ := plain.Property("id")
	assert.Empty(t, id.Format)

	detected := Infer(sample, WithFormatDetection(true))
	for name, format := range map[string]string{"id": "uuid", "at": "date-time", "word": ""} {
		p, _ := detected.Property(name)
		assert.Equal(t, format, p.Format, name)
	}
}

func TestInfer_GoValues(t *testing.T) {
	t.Parallel()
	s := Infer(map[string]any{"n": 3, "f": 1.25, "list": []string{"a"}})
	assert.Equal(t, []string{"f", "list", "n"}, propertyNames(s))
	n, _ := s.Property("n")
	assert.Equal(t, schema.Integer, n.Type)
}

func TestInfer_SampleConformsToInferredSchema(t *testing.T) {
	t.Parallel()
	samples := []string{
		`{"name": "Ada", "age": 36, "email": null, "tags": ["a", "b"], "address": {"city": "London", "zip": "N1"}}`,
		`[{"id": "3f2504e0-4f89-11d3-9a0c-0305e82c3301", "at": "2024-01-02T03:04:05Z", "ip": "10.0.0.1"}]`,
		`{"matrix": [[1, 2], [3.5]], "ratio": 0.5, "ok": true}`,
		`[1, 2.5]`,
		`[{"a": 1}, {"b": 2}, {"a": 3, "b": 4.5}]`,
		`[]`,
		`"plain"`,
		`null`,
	}
	for _, raw := range samples {
		for _, opts := range [][]Option{nil, {WithRequiredPolicy(RequiredAll), WithFormatDetection(true)}} {
			sample := mustDecode(t, raw)
			compiled := compile(t, Infer(sample, opts...))
			inst, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(raw)))
			require.NoError(t, err)
			assert.NoError(t, compiled.Validate(inst), raw)
		}
	}
}
