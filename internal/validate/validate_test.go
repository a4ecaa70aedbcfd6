package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/oasbuilder/internal/schema"
	"github.com/mark3labs/oasbuilder/internal/value"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func decode(t *testing.T, s string) any {
	t.Helper()
	v, err := value.Decode([]byte(s))
	require.NoError(t, err)
	return v
}

func adult() *schema.Schema {
	return schema.NewObject().SetProperty("age", &schema.Schema{Type: schema.Integer, Minimum: floatp(18)}, false)
}

func TestValidate_MinimumViolation(t *testing.T) {
	t.Parallel()
	res, err := Validate(decode(t, `{"age": 15}`), adult(), nil)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "/age", res.Errors[0].Path)
	assert.Equal(t, RuleMinimum, res.Errors[0].Rule)

	res, err = Validate(decode(t, `{"age": 18}`), adult(), nil)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Parallel()
	user := schema.NewObject().
		SetProperty("name", &schema.Schema{Type: schema.String, MinLength: intp(2), MaxLength: intp(5)}, true).
		SetProperty("email", &schema.Schema{Type: schema.String, Format: "email"}, true).
		SetProperty("code", &schema.Schema{Type: schema.String, Pattern: `^[A-Z]{3}$`}, false).
		SetProperty("role", &schema.Schema{Type: schema.String, Enum: []any{"admin", "user"}}, false).
		SetProperty("tags", schema.ArrayOf(&schema.Schema{Type: schema.Integer, Maximum: floatp(9)}), false)

	res, err := Validate(decode(t, `{"name": "abcdefgh", "code": "ab1", "role": "root", "tags": [1, 10, "x"]}`), user, nil)
	require.NoError(t, err)
	assert.False(t, res.Valid)

	got := map[string]string{}
	for _, e := range res.Errors {
		got[e.Path] = e.Rule
	}
	assert.Equal(t, map[string]string{
		"/name":   RuleMaxLength,
		"/code":   RulePattern,
		"/role":   RuleEnum,
		"/tags/1": RuleMaximum,
		"/tags/2": RuleType,
		"/email":  RuleRequired,
	}, got)
	assert.Contains(t, res.Summary(), "(total 6)")
}

func TestValidate_TypeRules(t *testing.T) {
	t.Parallel()
	cases := []struct {
		typ   schema.Type
		raw   string
		valid bool
	}{
		{schema.Integer, `3`, true},
		{schema.Integer, `3.0`, true},
		{schema.Integer, `3.5`, false},
		{schema.Number, `3.5`, true},
		{schema.Number, `"3"`, false},
		{schema.Null, `null`, true},
		{schema.Boolean, `0`, false},
		{schema.String, `null`, false},
	}
	for _, tc := range cases {
		res, err := Validate(decode(t, tc.raw), schema.Of(tc.typ), nil)
		require.NoError(t, err)
		assert.Equal(t, tc.valid, res.Valid, "%s %s", tc.typ, tc.raw)
	}
}

func TestValidate_ReferencesAndRecursion(t *testing.T) {
	t.Parallel()
	node := schema.NewObject().
		SetProperty("value", schema.Of(schema.Integer), true).
		SetProperty("next", schema.Ref("Node"), false)
	reg := schema.Map{"Node": node, "Alias": schema.Ref("Alias")}

	res, err := Validate(decode(t, `{"value": 1, "next": {"value": 2, "next": {"value": "x"}}}`), schema.Ref("Node"), reg)
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "/next/next/value", res.Errors[0].Path)

	res, err = Validate(decode(t, `{}`), schema.Ref("Missing"), reg)
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, Error{Path: "/", Message: `reference "Missing" is not registered`, Rule: RuleUnresolvedReference}, res.Errors[0])

	res, err = Validate(decode(t, `1`), schema.Ref("Alias"), reg)
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, RuleUnresolvedReference, res.Errors[0].Rule)
}

func TestValidate_MalformedSchema(t *testing.T) {
	t.Parallel()
	for _, s := range []*schema.Schema{
		nil,
		{},
		{Type: schema.Array},
		{Type: schema.String, Pattern: "("},
		schema.NewObject().SetProperty("bad", &schema.Schema{Type: "decimal"}, false),
	} {
		_, err := Validate(decode(t, `{"bad": 1}`), s, nil)
		var me *schema.MalformedError
		assert.True(t, errors.As(err, &me), "expected malformed error for %#v, got %v", s, err)
	}
}

func TestValidate_MalformedSchemaUnreachedByData(t *testing.T) {
	t.Parallel()
	cases := map[string]struct {
		schema  *schema.Schema
		raw     string
		pointer string
	}{
		"absent property": {
			schema.NewObject().SetProperty("bad", &schema.Schema{Type: "decimal"}, false),
			`{}`,
			"/properties/bad",
		},
		"empty array": {
			schema.ArrayOf(&schema.Schema{Type: schema.String, Pattern: "("}),
			`[]`,
			"/items",
		},
		"wrong top-level type": {
			schema.NewObject().SetProperty("n", schema.ArrayOf(nil), false),
			`"not an object"`,
			"/properties/n",
		},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			res, err := Validate(decode(t, tc.raw), tc.schema, nil)
			var me *schema.MalformedError
			require.True(t, errors.As(err, &me), "expected malformed error, got %v (result %+v)", err, res)
			assert.Equal(t, tc.pointer, me.Pointer)
		})
	}
}

func TestValidate_MalformedReferencedSchema(t *testing.T) {
	t.Parallel()
	reg := schema.Map{"Broken": schema.NewObject().SetProperty("x", &schema.Schema{}, false)}
	s := schema.NewObject().SetProperty("b", schema.Ref("Broken"), false)

	res, err := Validate(decode(t, `{}`), s, reg)
	require.NoError(t, err, "unreached references are not resolved")
	assert.True(t, res.Valid)

	_, err = Validate(decode(t, `{"b": {}}`), s, reg)
	var me *schema.MalformedError
	require.True(t, errors.As(err, &me), "got %v", err)
	assert.Equal(t, "/properties/x", me.Pointer)
	assert.Contains(t, me.Reason, `"Broken"`)
}

func TestValidate_UnknownFormatAccepted(t *testing.T) {
	t.Parallel()
	res, err := Validate("anything", &schema.Schema{Type: schema.String, Format: "int32"}, nil)
	require.NoError(t, err)
	assert.True(t, res.Valid)
}
