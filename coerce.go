package wizard

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	str2duration "github.com/xhit/go-str2duration/v2"
)

// Truthy string forms accepted for bool targets, lowercased.
var truthyStrings = map[string]bool{
	"1": true, "t": true, "true": true, "y": true, "yes": true, "on": true,
	"0": false, "f": false, "false": false, "n": false, "no": false, "off": false,
}

// asBool coerces a tree scalar to bool. Strings go through the truthy
// table; numbers are accepted only as exactly 0 or 1.
func asBool(in any) (bool, error) {
	switch v := in.(type) {
	case bool:
		return v, nil
	case string:
		b, ok := truthyStrings[strings.ToLower(strings.TrimSpace(v))]
		if !ok {
			return false, fmt.Errorf("cannot parse %q as bool", v)
		}
		return b, nil
	}
	n, err := asInt64(in)
	if err != nil {
		return false, fmt.Errorf("cannot coerce %T to bool", in)
	}
	switch n {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("cannot coerce %d to bool", n)
}

// asInt64 coerces a tree scalar to int64. Booleans are rejected outright,
// and fractional floats or strings that do not represent whole numbers fail.
func asInt64(in any) (int64, error) {
	switch v := in.(type) {
	case bool:
		return 0, fmt.Errorf("boolean value where integer expected")
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", v)
		}
		return int64(v), nil
	case float32:
		return wholeToInt64(float64(v))
	case float64:
		return wholeToInt64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as integer", v.String())
		}
		return wholeToInt64(f)
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as integer", v)
		}
		return wholeToInt64(f)
	}
	return reflectInt64(in)
}

// wholeToInt64 converts a float that represents a whole number, rejecting
// fractions.
func wholeToInt64(f float64) (int64, error) {
	if math.Trunc(f) != f {
		return 0, fmt.Errorf("fractional value %v where integer expected", f)
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("value %v overflows int64", f)
	}
	return int64(f), nil
}

// reflectInt64 handles named numeric types in hand-built trees.
func reflectInt64(in any) (int64, error) {
	rv := reflect.ValueOf(in)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return wholeToInt64(rv.Float())
	}
	return 0, fmt.Errorf("cannot coerce %T to integer", in)
}

// asUint64 coerces a tree scalar to uint64, rejecting booleans, negatives
// and fractions.
func asUint64(in any) (uint64, error) {
	if _, ok := in.(bool); ok {
		return 0, fmt.Errorf("boolean value where integer expected")
	}
	if v, ok := in.(uint64); ok {
		return v, nil
	}
	if s, ok := in.(string); ok {
		if n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64); err == nil {
			return n, nil
		}
	}
	if n, ok := in.(json.Number); ok {
		if u, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
			return u, nil
		}
	}
	n, err := asInt64(in)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d where unsigned integer expected", n)
	}
	return uint64(n), nil
}

// asFloat64 coerces a tree scalar to float64.
func asFloat64(in any) (float64, error) {
	switch v := in.(type) {
	case bool:
		return 0, fmt.Errorf("boolean value where number expected")
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case json.Number:
		return v.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as number", v)
		}
		return f, nil
	}
	if n, err := reflectInt64(in); err == nil {
		return float64(n), nil
	}
	return 0, fmt.Errorf("cannot coerce %T to number", in)
}

// asComplex128 coerces a tree scalar to complex128. Complex values travel
// through trees in their string form.
func asComplex128(in any) (complex128, error) {
	switch v := in.(type) {
	case complex64:
		return complex128(v), nil
	case complex128:
		return v, nil
	case string:
		c, err := strconv.ParseComplex(strings.TrimSpace(v), 128)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as complex", v)
		}
		return c, nil
	}
	f, err := asFloat64(in)
	if err != nil {
		return 0, fmt.Errorf("cannot coerce %T to complex", in)
	}
	return complex(f, 0), nil
}

// asString coerces a tree scalar to its string form.
func asString(in any) (string, error) {
	switch v := in.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	case nil:
		return "", fmt.Errorf("nil value where string expected")
	case map[string]any, []any:
		return "", fmt.Errorf("cannot coerce %T to string", in)
	}
	rv := reflect.ValueOf(in)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64), nil
	case reflect.String:
		return rv.String(), nil
	}
	return "", fmt.Errorf("cannot coerce %T to string", in)
}

// asBytes coerces base64 text (or raw bytes) to a byte slice.
func asBytes(in any) ([]byte, error) {
	switch v := in.(type) {
	case []byte:
		return v, nil
	case string:
		b, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("cannot decode base64 text: %w", err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("cannot coerce %T to bytes", in)
}

// asDuration coerces a tree scalar to a duration. Numbers are seconds; a
// string that is purely a decimal literal is seconds; anything else goes
// through the duration-text parser.
func asDuration(in any) (time.Duration, error) {
	switch v := in.(type) {
	case time.Duration:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
			return time.Duration(f * float64(time.Second)), nil
		}
		d, err := str2duration.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as duration: %w", v, err)
		}
		return d, nil
	}
	f, err := asFloat64(in)
	if err != nil {
		return 0, fmt.Errorf("cannot coerce %T to duration", in)
	}
	return time.Duration(f * float64(time.Second)), nil
}

// asStringMap normalizes tree mappings to string keys. YAML and msgpack
// decoders may hand back map[any]any.
func asStringMap(in any) (map[string]any, bool) {
	switch m := in.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			ks, err := asString(k)
			if err != nil {
				return nil, false
			}
			out[ks] = v
		}
		return out, true
	}
	return nil, false
}

// asSlice normalizes tree sequences.
func asSlice(in any) ([]any, bool) {
	if s, ok := in.([]any); ok {
		return s, true
	}
	return nil, false
}
