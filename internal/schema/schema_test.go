package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func TestPointer_Escaping(t *testing.T) {
	t.Parallel()
	ptr := Join(Join("", "paths"), "/users/{id}")
	assert.Equal(t, "/paths/~1users~1{id}", ptr)
	assert.Equal(t, "/a~0b", Join("", "a~b"))
	assert.Equal(t, "/items/3", Index("/items", 3))
	assert.Equal(t, "/", Display(""))
	assert.Equal(t, "/x", Display("/x"))
}

func TestCheck_WellFormed(t *testing.T) {
	t.Parallel()
	user := NewObject().
		SetProperty("name", &Schema{Type: String, MinLength: intp(1)}, true).
		SetProperty("tags", ArrayOf(Of(String)), false).
		SetProperty("owner", Ref("#/components/schemas/User"), false)
	require.NoError(t, Check(user))
}

func TestCheck_Malformed(t *testing.T) {
	t.Parallel()
	cases := map[string]struct {
		schema  *Schema
		pointer string
	}{
		"nil":            {nil, ""},
		"no type":        {&Schema{}, ""},
		"unknown type":   {&Schema{Type: "date"}, ""},
		"array no items": {&Schema{Type: Array}, ""},
		"bad pattern":    {&Schema{Type: String, Pattern: "("}, ""},
		"min over max":   {&Schema{Type: Number, Minimum: floatp(5), Maximum: floatp(1)}, ""},
		"negative len":   {&Schema{Type: String, MinLength: intp(-1)}, ""},
		"ref siblings":   {&Schema{Ref: "Pet", Type: Object}, ""},
		"ref description": {&Schema{Ref: "Pet", Description: "the pet"}, ""},
		"ref enum":        {&Schema{Ref: "Pet", Enum: []any{"a"}}, ""},
		"ref bound": {
			NewObject().SetProperty("age", &Schema{Ref: "Age", Minimum: floatp(0)}, false),
			"/properties/age",
		},
		"bad ref name":    {Ref("has space"), ""},
		"uuid too short":  {&Schema{Type: String, Format: "uuid", MaxLength: intp(10)}, ""},
		"date too long":   {&Schema{Type: String, Format: "date", MinLength: intp(11)}, ""},
		"items on string": {&Schema{Type: String, Items: Of(String)}, ""},
		"undeclared required": {
			&Schema{Type: Object, Required: []string{"id"}},
			"/required/0",
		},
		"nested": {
			NewObject().SetProperty("a/b", ArrayOf(&Schema{}), false),
			"/properties/a~1b/items",
		},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			err := Check(tc.schema)
			var me *MalformedError
			require.True(t, errors.As(err, &me), "expected MalformedError, got %v", err)
			assert.Equal(t, tc.pointer, me.Pointer)
		})
	}
}

func TestCheck_ReferenceSiblingNamed(t *testing.T) {
	t.Parallel()
	err := Check(&Schema{Ref: "Pet", Format: "uuid"})
	var me *MalformedError
	require.ErrorAs(t, err, &me)
	assert.Contains(t, me.Reason, "sibling keyword format")
}

func TestClone_IsDeep(t *testing.T) {
	t.Parallel()
	orig := NewObject().SetProperty("n", &Schema{Type: Integer, Minimum: floatp(0)}, true)
	cp := orig.Clone()
	p, _ := cp.Property("n")
	*p.Minimum = 10
	cp.Required[0] = "m"

	op, _ := orig.Property("n")
	assert.Equal(t, 0.0, *op.Minimum)
	assert.Equal(t, []string{"n"}, orig.Required)
}

func TestReferences(t *testing.T) {
	t.Parallel()
	s := NewObject().
		SetProperty("pet", Ref("#/components/schemas/Pet"), false).
		SetProperty("owners", ArrayOf(Ref("Owner")), false)
	assert.Equal(t, []Use{
		{Pointer: "/base/properties/pet", Name: "Pet"},
		{Pointer: "/base/properties/owners/items", Name: "Owner"},
	}, References(s, "/base"))

	s.NormalizeRefs()
	p, _ := s.Property("pet")
	assert.Equal(t, "Pet", p.Ref)
}

func TestMatchFormat(t *testing.T) {
	t.Parallel()
	cases := []struct {
		format, value string
		ok            bool
	}{
		{"email", "ada@example.com", true},
		{"email", "ada", false},
		{"uuid", "3f2504e0-4f89-11d3-9a0c-0305e82c3301", true},
		{"uuid", "3f2504e04f8911d39a0c0305e82c3301", false},
		{"date-time", "2024-01-02T03:04:05Z", true},
		{"date-time", "2024-01-02", false},
		{"date", "2024-01-02", true},
		{"uri", "https://example.com/x", true},
		{"uri", "example.com", false},
		{"hostname", "api.example.com", true},
		{"hostname", "-bad-", false},
		{"ipv4", "10.0.0.1", true},
		{"ipv4", "::1", false},
		{"ipv6", "::1", true},
	}
	for _, tc := range cases {
		ok, known := MatchFormat(tc.format, tc.value)
		assert.True(t, known, tc.format)
		assert.Equal(t, tc.ok, ok, "%s %q", tc.format, tc.value)
	}
	ok, known := MatchFormat("int32", "anything")
	assert.True(t, ok)
	assert.False(t, known)
}

func TestDetectFormat(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "uuid", DetectFormat("3f2504e0-4f89-11d3-9a0c-0305e82c3301"))
	assert.Equal(t, "date-time", DetectFormat("2024-01-02T03:04:05Z"))
	assert.Equal(t, "date", DetectFormat("2024-01-02"))
	assert.Equal(t, "email", DetectFormat("ada@example.com"))
	assert.Equal(t, "ipv4", DetectFormat("192.168.1.1"))
	assert.Equal(t, "uri", DetectFormat("https://example.com"))
	assert.Equal(t, "", DetectFormat("mailto:ada@example.com"))
	assert.Equal(t, "", DetectFormat("hello"))
}
