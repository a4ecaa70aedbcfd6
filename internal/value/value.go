// Package value models JSON-representable payloads with stable key order.
//
// Decoded values are one of: nil, bool, string, json.Number, []any or
// *Object. Normalize converts arbitrary Go values into that shape so the
// inference, validation and example packages only handle these cases.
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
	"strconv"

	gojson "github.com/goccy/go-json"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is a JSON object that remembers key order.
type Object = orderedmap.OrderedMap[string, any]

// NewObject returns an empty Object.
func NewObject() *Object { return orderedmap.New[string, any]() }

// Decode parses a single JSON document.
func Decode(data []byte) (any, error) {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeNext(dec)
	if err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("decode json: unexpected data after document")
	}
	return v, nil
}

func decodeNext(dec *gojson.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *gojson.Decoder, tok any) (any, error) {
	switch t := tok.(type) {
	case gojson.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T, not a string", keyTok)
				}
				v, err := decodeNext(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := []any{}
			for dec.More() {
				v, err := decodeNext(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q", rune(t))
	case gojson.Number:
		return json.Number(t), nil
	case float64:
		return json.Number(strconv.FormatFloat(t, 'g', -1, 64)), nil
	case string, bool, nil:
		return t, nil
	}
	return nil, fmt.Errorf("unexpected token %T", tok)
}

// Normalize converts v into the decoded value shape. Go maps are visited in
// sorted key order; values of other types go through a JSON round trip.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil, bool, string, json.Number:
		return t
	case *Object:
		out := NewObject()
		for pair := t.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(pair.Key, Normalize(pair.Value))
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := NewObject()
		for _, k := range keys {
			out.Set(k, Normalize(t[k]))
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Normalize(e)
		}
		return out
	case float64:
		return floatNumber(t)
	case float32:
		return floatNumber(float64(t))
	case int, int8, int16, int32, int64:
		return json.Number(strconv.FormatInt(reflect.ValueOf(t).Int(), 10))
	case uint, uint8, uint16, uint32, uint64:
		return json.Number(strconv.FormatUint(reflect.ValueOf(t).Uint(), 10))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			m := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				m[iter.Key().String()] = iter.Value().Interface()
			}
			return Normalize(m)
		}
	}

	data, err := gojson.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	out, err := Decode(data)
	if err != nil {
		return fmt.Sprint(v)
	}
	return out
}

func floatNumber(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return json.Number(strconv.FormatFloat(f, 'g', -1, 64))
}

// Float returns n as float64.
func Float(n json.Number) (float64, bool) {
	f, err := strconv.ParseFloat(string(n), 64)
	return f, err == nil
}

// IsInteger reports whether n has a zero fractional part.
func IsInteger(n json.Number) bool {
	if _, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return true
	}
	f, ok := Float(n)
	return ok && !math.IsInf(f, 0) && f == math.Trunc(f)
}

// Equal compares two normalized values.
func Equal(a, b any) bool {
	switch x := a.(type) {
	case json.Number:
		y, ok := b.(json.Number)
		if !ok {
			return false
		}
		fx, okx := Float(x)
		fy, oky := Float(y)
		return okx && oky && fx == fy
	case *Object:
		y, ok := b.(*Object)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for pair := x.Oldest(); pair != nil; pair = pair.Next() {
			other, ok := y.Get(pair.Key)
			if !ok || !Equal(pair.Value, other) {
				return false
			}
		}
		return true
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}

// TypeName names the JSON type of a normalized value for messages.
func TypeName(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case json.Number:
		if IsInteger(t) {
			return "integer"
		}
		return "number"
	case []any:
		return "array"
	case *Object:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
