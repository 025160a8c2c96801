package keymat

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TheusHen/xform/xform/errs"
)

func TestKeyLengths(t *testing.T) {
	spec := OneOf("aes key", 32, 16, 24)
	for i := 0; i < 70; i++ {
		_, err := spec.Key(bytes.Repeat([]byte{'a'}, i))
		switch i {
		case 16, 24, 32:
			require.NoError(t, err, "length %d", i)
		default:
			require.ErrorIs(t, err, errs.ErrInvalidKeyLength, "length %d", i)
		}
	}
}

func TestKeyCopies(t *testing.T) {
	in := make([]byte, 32)
	out, err := Exact("key", 32).Key(in)
	require.NoError(t, err)
	in[0] = 1
	require.Zero(t, out[0])
}

func TestKeyErrorNamesLengths(t *testing.T) {
	_, err := OneOf("aes key", 16, 24, 32).Key(make([]byte, 17))
	require.ErrorContains(t, err, "one of 16, 24, 32 bytes, not 17")

	_, err = Exact("xsalsa20 key", 32).Key(make([]byte, 1))
	require.ErrorContains(t, err, "exactly 32 bytes, not 1")
}

func TestIV(t *testing.T) {
	spec := Exact("iv", 24)

	iv, err := spec.IV(nil)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 24), iv)

	for i := 0; i < 70; i++ {
		_, err := spec.IV(bytes.Repeat([]byte{'i'}, i))
		if i == 24 {
			require.NoError(t, err)
		} else {
			require.ErrorIs(t, err, errs.ErrInvalidIVLength, "length %d", i)
		}
	}

	// present but empty is not the same as absent
	_, err = spec.IV([]byte{})
	require.ErrorIs(t, err, errs.ErrInvalidIVLength)
}

func TestOptional(t *testing.T) {
	b, err := None("sha256 key").Optional(nil)
	require.NoError(t, err)
	require.Nil(t, b)

	_, err = None("sha256 key").Optional([]byte("k"))
	require.ErrorIs(t, err, errs.ErrInvalidKeyLength)

	_, err = OneOf("blake2b key", 16, 32, 64).Optional(make([]byte, 32))
	require.NoError(t, err)
}

func TestFromValue(t *testing.T) {
	b, err := FromValue([]byte{1, 2})
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2}, b)

	b, err = FromValue("0x0a0b")
	require.NoError(t, err)
	require.Equal(t, []byte{0x0a, 0x0b}, b)

	for _, v := range []any{nil, 42, "zz", []int{1}} {
		_, err := FromValue(v)
		require.ErrorIs(t, err, errs.ErrTypeMismatch, "%#v", v)
		require.NotErrorIs(t, err, errs.ErrInvalidKeyLength)
	}
}
