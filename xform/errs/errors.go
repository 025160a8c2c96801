// Package errs holds the error kinds shared by every xform package.
//
// Each kind is registered under the "xform" codespace so it carries a stable
// numeric code. Call sites wrap a kind with a message naming the required
// length or violated state; callers match kinds with errors.Is.
package errs

import (
	errorsmod "cosmossdk.io/errors"
)

// Codespace is the error codespace of all xform errors.
const Codespace = "xform"

var (
	ErrTypeMismatch     = errorsmod.Register(Codespace, 2, "type mismatch")
	ErrInvalidKeyLength = errorsmod.Register(Codespace, 3, "invalid key length")
	ErrInvalidIVLength  = errorsmod.Register(Codespace, 4, "invalid iv length")
	ErrKeySizeTooSmall  = errorsmod.Register(Codespace, 5, "key size too small")
	ErrSeedTooShort     = errorsmod.Register(Codespace, 6, "seed too short")
	ErrFinalized        = errorsmod.Register(Codespace, 7, "digest() has already been called")
	ErrSelfTestFailure  = errorsmod.Register(Codespace, 8, "self-test failure")
	ErrDecode           = errorsmod.Register(Codespace, 9, "decode error")
	ErrSeedUnsupported  = errorsmod.Register(Codespace, 10, "seed not supported")
	ErrNotInitialized   = errorsmod.Register(Codespace, 11, "self-test has not run")
	ErrUnknownAlgorithm = errorsmod.Register(Codespace, 12, "unknown algorithm")
)

// Wrapf annotates a kind with a formatted message. The kind stays matchable
// with errors.Is.
func Wrapf(kind error, format string, args ...any) error {
	return errorsmod.Wrapf(kind, format, args...)
}

// Code returns the registered code of err, or 0 if err is not an xform error.
func Code(err error) uint32 {
	if err == nil {
		return 0
	}
	codespace, code, _ := errorsmod.ABCIInfo(err, false)
	if codespace != Codespace {
		return 0
	}
	return code
}
