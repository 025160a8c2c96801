package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrappedKindsStayMatchable(t *testing.T) {
	err := Wrapf(ErrInvalidKeyLength, "aes-ctr key must be one of %v bytes, got %d", []int{16, 24, 32}, 17)
	require.ErrorIs(t, err, ErrInvalidKeyLength)
	require.NotErrorIs(t, err, ErrTypeMismatch)
	require.Contains(t, err.Error(), "got 17")

	outer := fmt.Errorf("stream: %w", err)
	require.ErrorIs(t, outer, ErrInvalidKeyLength)
}

func TestCode(t *testing.T) {
	require.Equal(t, uint32(3), Code(Wrapf(ErrInvalidKeyLength, "x")))
	require.Equal(t, uint32(7), Code(ErrFinalized))
	require.Zero(t, Code(nil))
	require.Zero(t, Code(errors.New("plain")))
}

func TestKindsAreDistinct(t *testing.T) {
	kinds := []error{
		ErrTypeMismatch, ErrInvalidKeyLength, ErrInvalidIVLength, ErrKeySizeTooSmall,
		ErrSeedTooShort, ErrFinalized, ErrSelfTestFailure, ErrDecode,
		ErrSeedUnsupported, ErrNotInitialized, ErrUnknownAlgorithm,
	}
	for i, a := range kinds {
		for j, b := range kinds {
			if i != j && errors.Is(a, b) {
				t.Fatalf("%v matches %v", a, b)
			}
		}
	}
}
