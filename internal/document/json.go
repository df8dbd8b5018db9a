package document

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrDuplicateKey is returned when a JSON object carries the same member
// name twice at one nesting level. spec.md §9 leaves this an open
// question ("duplicate keys in an object are not rejected by the source")
// and resolves it as an error.
var ErrDuplicateKey = errors.New("duplicate key in object")

// ParseJSONValue decodes exactly one JSON value from s into a Value,
// preserving object member order and rejecting duplicate keys within the
// same object. encoding/json's ordinary Unmarshal into map[string]any
// silently keeps the last occurrence of a duplicate key, so this walks
// the token stream by hand.
func ParseJSONValue(s string) (Value, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}
	// Reject trailing garbage after the value (spec.md §9: "the spec
	// requires strict end-of-input matching after the final grammar
	// rule").
	if dec.More() {
		return Value{}, errors.New("trailing data after JSON value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, errors.Wrap(err, "decode json token")
	}
	return decodeFromToken(dec, tok)
}

func decodeFromToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		default:
			return Value{}, errors.Newf("unexpected delimiter %q", t)
		}
	case string:
		return NewString(t), nil
	case bool:
		return NewBool(t), nil
	case nil:
		return NewNull(), nil
	case json.Number:
		return numberValue(t), nil
	case float64:
		return NewFloat(t), nil
	default:
		return Value{}, errors.Newf("unexpected JSON token %T", tok)
	}
}

func numberValue(n json.Number) Value {
	if i, err := n.Int64(); err == nil {
		return NewInt(i)
	}
	f, _ := n.Float64()
	return NewFloat(f)
}

func decodeObject(dec *json.Decoder) (Value, error) {
	seen := make(map[string]bool)
	var pairs []Pair
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Value{}, errors.Wrap(err, "decode object key")
		}
		key, ok := keyTok.(string)
		if !ok {
			return Value{}, errors.Newf("object key is not a string: %v", keyTok)
		}
		if seen[key] {
			return Value{}, errors.Wrapf(ErrDuplicateKey, "key %q", key)
		}
		seen[key] = true

		val, err := decodeValue(dec)
		if err != nil {
			return Value{}, err
		}
		pairs = append(pairs, Pair{Key: key, Value: val})
	}
	// consume closing '}'
	if _, err := dec.Token(); err != nil {
		return Value{}, errors.Wrap(err, "decode object end")
	}
	return NewObject(pairs), nil
}

func decodeArray(dec *json.Decoder) (Value, error) {
	var items []Value
	for dec.More() {
		val, err := decodeValue(dec)
		if err != nil {
			return Value{}, err
		}
		items = append(items, val)
	}
	if _, err := dec.Token(); err != nil {
		return Value{}, errors.Wrap(err, "decode array end")
	}
	return NewArray(items), nil
}
