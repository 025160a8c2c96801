// Package keymat validates key, IV and seed material before it reaches a
// cryptographic primitive.
package keymat

import (
	"encoding/hex"
	"fmt"
	"slices"
	"strings"

	"github.com/TheusHen/xform/xform/errs"
)

// Spec lists the acceptable lengths of one piece of key material.
type Spec struct {
	Name  string
	Sizes []int
}

// Exact accepts only n bytes.
func Exact(name string, n int) Spec {
	return Spec{Name: name, Sizes: []int{n}}
}

// OneOf accepts any of the given lengths.
func OneOf(name string, sizes ...int) Spec {
	s := slices.Clone(sizes)
	slices.Sort(s)
	return Spec{Name: name, Sizes: s}
}

// None accepts no material at all; only a nil or empty slice passes Optional.
func None(name string) Spec {
	return Spec{Name: name}
}

// Accepts reports whether n is an acceptable length.
func (s Spec) Accepts(n int) bool {
	return slices.Contains(s.Sizes, n)
}

// Size returns the single acceptable length and true for an exact spec.
func (s Spec) Size() (int, bool) {
	if len(s.Sizes) != 1 {
		return 0, false
	}
	return s.Sizes[0], true
}

func (s Spec) describe() string {
	switch len(s.Sizes) {
	case 0:
		return "absent"
	case 1:
		return fmt.Sprintf("exactly %d bytes", s.Sizes[0])
	default:
		parts := make([]string, len(s.Sizes))
		for i, n := range s.Sizes {
			parts[i] = fmt.Sprint(n)
		}
		return "one of " + strings.Join(parts, ", ") + " bytes"
	}
}

// Key returns a private copy of b, or ErrInvalidKeyLength naming the
// acceptable lengths.
func (s Spec) Key(b []byte) ([]byte, error) {
	if !s.Accepts(len(b)) {
		return nil, errs.Wrapf(errs.ErrInvalidKeyLength, "%s must be %s, not %d", s.Name, s.describe(), len(b))
	}
	return slices.Clone(b), nil
}

// IV validates an initialization vector. A nil iv means the caller passed
// none and yields an all-zero IV of the exact size. A non-nil iv of any other
// length, including zero, fails with ErrInvalidIVLength.
func (s Spec) IV(iv []byte) ([]byte, error) {
	if iv == nil {
		n, ok := s.Size()
		if !ok {
			return nil, errs.Wrapf(errs.ErrInvalidIVLength, "%s is required", s.Name)
		}
		return make([]byte, n), nil
	}
	if !s.Accepts(len(iv)) {
		return nil, errs.Wrapf(errs.ErrInvalidIVLength, "if %s is passed, it must be %s, not %d", s.Name, s.describe(), len(iv))
	}
	return slices.Clone(iv), nil
}

// Optional validates material that may be absent. nil passes through as nil;
// present material must have an acceptable length.
func (s Spec) Optional(b []byte) ([]byte, error) {
	if b == nil {
		return nil, nil
	}
	if len(s.Sizes) == 0 && len(b) == 0 {
		return nil, nil
	}
	return s.Key(b)
}

// FromValue converts a dynamically typed value, as found in configuration
// files or flags, into bytes. []byte is returned as is and a string must be
// hex. Any other type fails with ErrTypeMismatch so that callers can tell a
// wrong type from a wrong size.
func FromValue(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(t), "0x"))
		if err != nil {
			return nil, errs.Wrapf(errs.ErrTypeMismatch, "must be bytes or a hex string: %v", err)
		}
		return b, nil
	case nil:
		return nil, errs.Wrapf(errs.ErrTypeMismatch, "must be bytes, not nil")
	default:
		return nil, errs.Wrapf(errs.ErrTypeMismatch, "must be bytes, not %T", v)
	}
}
