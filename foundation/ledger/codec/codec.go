// Package codec implements the canonical serialization used by the ledger.
// The encoding is a type tag followed by a deterministic rendering of the
// value. It is used both to build hashing/signing input and as the wire
// format for exported blocks, so it must be a bijection for every value it
// accepts and must reject anything it can't round trip.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strings"
)

// Kind identifies the type tag carried by an encoded value.
type Kind string

// Set of supported type tags.
const (
	KindString Kind = "string"
	KindBigInt Kind = "bigint"
	KindObject Kind = "object"
)

// Set of errors the codec can return.
var (
	ErrUnsupportedType = errors.New("type can't be canonically encoded")
	ErrBadEncoding     = errors.New("value is not canonically encoded")
	ErrWrongKind       = errors.New("encoded value has the wrong kind")
)

// Marshal encodes a value into its tagged canonical string form. Strings
// and big integers get scalar tags, everything else is rendered as a
// deterministic JSON object. Values that would not round trip, like
// floats, are rejected.
func Marshal(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return string(KindString) + ":" + v, nil

	case *big.Int:
		if v == nil {
			return "", fmt.Errorf("nil big integer: %w", ErrUnsupportedType)
		}
		return string(KindBigInt) + ":" + v.String(), nil
	}

	if err := check(reflect.ValueOf(value)); err != nil {
		return "", err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode object: %w", err)
	}

	return string(KindObject) + ":" + string(data), nil
}

// Unmarshal decodes a tagged canonical string back into its value and
// reports the kind that was encoded. Objects come back as raw JSON to be
// decoded into a concrete type with Into.
func Unmarshal(blob string) (any, Kind, error) {
	kind, body, err := split(blob)
	if err != nil {
		return nil, "", err
	}

	switch kind {
	case KindString:
		return body, KindString, nil

	case KindBigInt:
		value, ok := new(big.Int).SetString(body, 10)
		if !ok {
			return nil, "", fmt.Errorf("parse big integer %q: %w", body, ErrBadEncoding)
		}
		return value, KindBigInt, nil

	case KindObject:
		return json.RawMessage(body), KindObject, nil
	}

	return nil, "", fmt.Errorf("tag %q: %w", kind, ErrBadEncoding)
}

// Into decodes a tagged canonical string into the provided value,
// rejecting the blob when it doesn't carry the expected kind.
func Into(blob string, kind Kind, value any) error {
	gotKind, body, err := split(blob)
	if err != nil {
		return err
	}
	if gotKind != kind {
		return fmt.Errorf("got %q, exp %q: %w", gotKind, kind, ErrWrongKind)
	}

	switch kind {
	case KindString:
		s, ok := value.(*string)
		if !ok {
			return fmt.Errorf("string target required: %w", ErrWrongKind)
		}
		*s = body
		return nil

	case KindBigInt:
		b, ok := value.(*big.Int)
		if !ok {
			return fmt.Errorf("big integer target required: %w", ErrWrongKind)
		}
		if _, ok := b.SetString(body, 10); !ok {
			return fmt.Errorf("parse big integer %q: %w", body, ErrBadEncoding)
		}
		return nil

	case KindObject:
		if err := json.Unmarshal([]byte(body), value); err != nil {
			return fmt.Errorf("decode object: %w", err)
		}
		return nil
	}

	return fmt.Errorf("tag %q: %w", kind, ErrBadEncoding)
}

// =============================================================================

func split(blob string) (Kind, string, error) {
	idx := strings.Index(blob, ":")
	if idx < 0 {
		return "", "", fmt.Errorf("missing type tag: %w", ErrBadEncoding)
	}

	return Kind(blob[:idx]), blob[idx+1:], nil
}

// check walks the value rejecting kinds that don't survive a round trip
// through the canonical encoding.
func check(v reflect.Value) error {
	if !v.IsValid() {
		return fmt.Errorf("untyped nil: %w", ErrUnsupportedType)
	}

	switch v.Kind() {
	case reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Uintptr:
		return fmt.Errorf("%s: %w", v.Kind(), ErrUnsupportedType)

	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		if v.Kind() == reflect.Pointer && v.Type() == reflect.TypeOf((*big.Int)(nil)) {
			return nil
		}
		return check(v.Elem())

	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := check(v.Index(i)); err != nil {
				return err
			}
		}

	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("map key %s: %w", v.Type().Key().Kind(), ErrUnsupportedType)
		}
		iter := v.MapRange()
		for iter.Next() {
			if err := check(iter.Value()); err != nil {
				return err
			}
		}

	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if err := check(v.Field(i)); err != nil {
				return err
			}
		}
	}

	return nil
}
