package testutil

import (
	"errors"
	"os"
	"reflect"
	"testing"
)

func ReadFile(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file %s: %v", path, err)
	}

	return data
}

func Assert[T comparable](t *testing.T, expected T, actual T, meta string) {
	t.Helper()

	if expected != actual {
		t.Fatalf("%s: expected %v got %v", meta, expected, actual)
	}
}

func IsNil(t *testing.T, v any, meta string) {
	t.Helper()

	if err, ok := v.(error); ok && err != nil {
		t.Fatalf("%s: expected nil got error: %v", meta, err)
	} else if !ok && v != nil && !isTypedNil(v) {
		t.Fatalf("%s: expected nil got %v", meta, v)
	}
}

// isTypedNil reports whether v is a nil pointer-like value boxed into a
// non-nil interface, e.g. a nil *struct passed as any.
func isTypedNil(v any) bool {
	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Map, reflect.Pointer, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}

func IsNotNil(t *testing.T, v any, meta string) {
	t.Helper()

	if v == nil {
		t.Fatalf("%s: expected a value got nil", meta)
	}

	if err, ok := v.(error); ok && err == nil {
		t.Fatalf("%s: expected an error got nil", meta)
	}
}

func ErrorIs(t *testing.T, err error, target error, meta string) {
	t.Helper()

	if !errors.Is(err, target) {
		t.Fatalf("%s: expected error %v got %v", meta, target, err)
	}
}
