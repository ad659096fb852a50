// Package cryptoutil provides the gateway's crypto primitives: canonical JSON encoding,
// content hashing, hybrid RSA+AES envelope encryption, and HMAC token signing.
package cryptoutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Canonical returns a stable byte encoding of v: object keys sorted recursively, no
// insignificant whitespace, numbers rendered in a single stable form. Two values that are
// structurally equal (regardless of map key order at construction time) canonicalize to
// identical bytes, which is the property spec_hash/payload_hash/cache fingerprints depend on.
func Canonical(v any) ([]byte, error) {
	// Round-trip through encoding/json first so struct tags, field ordering rules, and
	// custom MarshalJSON implementations are respected exactly as the wire format would
	// see them, then re-normalize maps and numbers.
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: marshal: %w", err)
	}

	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonical: decode: %w", err)
	}

	var buf []byte
	buf, err = appendCanonical(buf, generic)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// CanonicalHash returns the SHA-256 digest of the canonical encoding of v.
func CanonicalHash(v any) ([32]byte, error) {
	data, err := Canonical(v)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

func appendCanonical(buf []byte, v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return append(buf, "null"...), nil
	case bool:
		if val {
			return append(buf, "true"...), nil
		}
		return append(buf, "false"...), nil
	case json.Number:
		return appendCanonicalNumber(buf, val)
	case string:
		enc, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return append(buf, enc...), nil
	case []any:
		buf = append(buf, '[')
		for i, item := range val {
			if i > 0 {
				buf = append(buf, ',')
			}
			var err error
			buf, err = appendCanonical(buf, item)
			if err != nil {
				return nil, err
			}
		}
		return append(buf, ']'), nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf = append(buf, '{')
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			enc, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf = append(buf, enc...)
			buf = append(buf, ':')
			buf, err = appendCanonical(buf, val[k])
			if err != nil {
				return nil, err
			}
		}
		return append(buf, '}'), nil
	default:
		return nil, fmt.Errorf("canonical: unsupported type %T", v)
	}
}

// appendCanonicalNumber renders a json.Number in a single stable representation: integers
// that fit an int64 without a decimal point, everything else as the shortest float64 form
// ('g' format), which uses exponential notation for very small or very large magnitudes.
func appendCanonicalNumber(buf []byte, n json.Number) ([]byte, error) {
	if i, err := n.Int64(); err == nil {
		return append(buf, strconv.FormatInt(i, 10)...), nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("canonical: invalid number %q", n.String())
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("canonical: non-finite number %q", n.String())
	}
	return append(buf, strconv.FormatFloat(f, 'g', -1, 64)...), nil
}
