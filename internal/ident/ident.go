// Package ident canonicalizes hotel identifiers that may arrive as either
// strings or numbers into a single string key.
package ident

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidID is returned by FromJSON when the raw value is neither a JSON
// string nor a JSON number.
var ErrInvalidID = errors.New("identifier must be a string or a number")

// Normalize converts id to its canonical string form. It never fails:
// numbers render in base 10 as JavaScript prints them (integral floats drop
// their fractional part, very small or large magnitudes use exponents),
// strings are trimmed and nil becomes the empty string.
func Normalize(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case int:
		return strconv.FormatInt(int64(v), 10)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return formatFloat(float64(v), 32)
	case float64:
		return formatFloat(v, 64)
	case json.Number:
		return normalizeNumber(string(v))
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// FromJSON decodes a raw JSON id, accepting both "7" and 7.
func FromJSON(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("failed to decode identifier: %w", err)
		}
		return Normalize(s), nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return "", fmt.Errorf("failed to decode identifier: %w", err)
		}
		return Normalize(n), nil
	default:
		return "", ErrInvalidID
	}
}

// Equal reports whether a and b normalize to the same key.
func Equal(a, b any) bool {
	return Normalize(a) == Normalize(b)
}

// formatFloat renders f the way JavaScript's Number#toString does, so a
// numeric id sent by a JS client normalizes to the same key.
func formatFloat(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, bitSize)
	}

	// Go pads the exponent ("1e-07"); JS does not.
	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, bitSize), "e")
	digits := strings.TrimLeft(exp[1:], "0")
	return mantissa + "e" + exp[:1] + digits
}

// normalizeNumber keeps large integer literals exact and folds "7.0" or
// "7e0" onto "7".
func normalizeNumber(s string) string {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return strconv.FormatUint(u, 10)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return formatFloat(f, 64)
	}
	return s
}
