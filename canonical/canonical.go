// Package canonical implements deterministic JSON encoding for signing.
package canonical

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Encode is the single mandatory canonicalization choke point for transaction
// signing and verification.
//
// All signing, hashing, and archive-CID derivation MUST pass through Encode.
// Rules:
// - Object keys are sorted lexicographically by their UTF-8 bytes, recursively.
// - Arrays preserve element order.
// - Numbers must be integers in minimal decimal form; fractional or exponent
//   forms are rejected as non-canonicalizable.
// - Strings use encoding/json escaping.
// - No insignificant whitespace.
//
// Two deeply equal values produce byte-identical output regardless of field
// insertion order.
func Encode(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: marshal: %w", err)
	}
	return Transform(raw)
}

// Transform rewrites arbitrary JSON into canonical form.
//
// It accepts any valid JSON document and returns the canonical byte encoding,
// rejecting values that have no canonical form (non-integer numbers).
func Transform(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("canonical: invalid JSON: %w", err)
	}
	// A single trailing document only.
	if dec.More() {
		return nil, errors.New("canonical: trailing data after JSON value")
	}

	var buf bytes.Buffer
	if err := appendCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func appendCanonical(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if x {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Errorf("canonical: string: %w", err)
		}
		buf.Write(b)
	case json.Number:
		if !canonicalInteger(string(x)) {
			return fmt.Errorf("canonical: non-integer number %q has no canonical form", x)
		}
		buf.WriteString(string(x))
	case []any:
		buf.WriteByte('[')
		for i, elem := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendCanonical(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return fmt.Errorf("canonical: key: %w", err)
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := appendCanonical(buf, x[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("canonical: unsupported value type %T", v)
	}
	return nil
}

// canonicalInteger reports whether s is an integer in minimal decimal form:
// an optional leading '-', no leading zeros, no fraction, no exponent.
func canonicalInteger(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' {
		s = s[1:]
		if s == "" || s == "0" {
			return false
		}
	}
	if s == "0" {
		return true
	}
	if s[0] == '0' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
