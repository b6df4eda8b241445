package ingest

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Value is one report field as it arrived on the wire: a JSON number, a JSON
// string, or a query parameter. Coercion happens during validation so that a
// bad value becomes a client error instead of a decode failure.
type Value struct {
	raw string
	set bool
}

// Text wraps a string as a present field.
func Text(s string) Value {
	return Value{raw: s, set: true}
}

// Number wraps a float as a present field.
func Number(f float64) Value {
	return Value{raw: strconv.FormatFloat(f, 'f', -1, 64), set: true}
}

func queryValue(q url.Values, key string) Value {
	vs, ok := q[key]
	if !ok || len(vs) == 0 {
		return Value{}
	}
	return Value{raw: vs[0], set: true}
}

func (v *Value) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*v = Value{}
	case strings.HasPrefix(s, `"`):
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*v = Value{raw: str, set: true}
	default:
		*v = Value{raw: s, set: true}
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.set {
		return []byte("null"), nil
	}
	return json.Marshal(v.raw)
}

// Present reports whether the field was sent with a non-blank value.
func (v Value) Present() bool {
	return v.set && strings.TrimSpace(v.raw) != ""
}

func (v Value) String() string {
	return v.raw
}

// Float parses the field as a finite number.
func (v Value) Float() (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v.raw), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", v.raw)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %q", v.raw)
	}
	return f, nil
}
