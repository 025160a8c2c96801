// Package sign generates, serializes and uses asymmetric signing keys.
//
// Key sizes and seeds are validated against the family's policy before the
// provider is asked to generate anything. Verification reports a boolean and
// never returns an error.
package sign

import (
	"time"

	"github.com/TheusHen/xform/internal/metrics"
	"github.com/TheusHen/xform/xform/errs"
	"github.com/TheusHen/xform/xform/provider"
)

// SigningKey is the private half of a key pair.
type SigningKey struct {
	alg provider.SignAlgorithm
	p   provider.SignPrimitive
	k   provider.SigningKey
}

// VerifyingKey is the public half of a key pair.
type VerifyingKey struct {
	alg provider.SignAlgorithm
	p   provider.SignPrimitive
	k   provider.VerifyingKey
}

// Generate creates a signing key of the given size. bits == 0 selects the
// family default. A nil seed draws fresh randomness; a non-nil seed derives
// the key deterministically.
func Generate(p provider.SignPrimitive, bits int, seed []byte) (*SigningKey, error) {
	if bits == 0 {
		bits = p.DefaultBits()
	}
	if bits < p.MinBits() {
		return nil, errs.Wrapf(errs.ErrKeySizeTooSmall, "%s keys must be at least %d bits, not %d", p.Algorithm(), p.MinBits(), bits)
	}
	if !p.SupportsBits(bits) {
		return nil, errs.Wrapf(errs.ErrInvalidKeyLength, "%s does not support %d-bit keys", p.Algorithm(), bits)
	}
	if seed != nil {
		if err := checkSeed(p, bits, seed); err != nil {
			return nil, err
		}
	}
	k, err := p.GenerateKey(bits, seed)
	if err != nil {
		return nil, err
	}
	return &SigningKey{alg: p.Algorithm(), p: p, k: k}, nil
}

func checkSeed(p provider.SignPrimitive, bits int, seed []byte) error {
	pol := p.Seed(bits)
	switch {
	case !pol.Supported:
		return errs.Wrapf(errs.ErrSeedUnsupported, "%s keys cannot be derived from a seed", p.Algorithm())
	case len(seed) < pol.Min:
		return errs.Wrapf(errs.ErrSeedTooShort, "%s seed for %d-bit keys must be at least %d bytes, not %d", p.Algorithm(), bits, pol.Min, len(seed))
	case pol.Max > 0 && len(seed) > pol.Max:
		return errs.Wrapf(errs.ErrInvalidKeyLength, "%s seed must be at most %d bytes, not %d", p.Algorithm(), pol.Max, len(seed))
	}
	return nil
}

func (k *SigningKey) Algorithm() provider.SignAlgorithm { return k.alg }
func (k *SigningKey) Bits() int                         { return k.k.Bits() }

// SignatureSize is the length of every signature this key produces.
func (k *SigningKey) SignatureSize() int { return k.p.SignatureSize(k.k.Bits()) }

// Sign signs msg. Messages of any length, including empty, are accepted.
func (k *SigningKey) Sign(msg []byte) ([]byte, error) {
	return k.k.Sign(msg)
}

// VerifyingKey derives the public half.
func (k *SigningKey) VerifyingKey() *VerifyingKey {
	return &VerifyingKey{alg: k.alg, p: k.p, k: k.k.Public()}
}

func (k *VerifyingKey) Algorithm() provider.SignAlgorithm { return k.alg }
func (k *VerifyingKey) Bits() int                         { return k.k.Bits() }

// Verify reports whether sig is a valid signature of msg. Any malformed input
// yields false.
func (k *VerifyingKey) Verify(msg, sig []byte) bool {
	start := time.Now()
	ok := k.k.Verify(msg, sig)
	metrics.VerifyObserver().Observe(time.Since(start).Seconds())
	metrics.VerificationsCounter().WithLabelValues(string(k.alg), metrics.Result(ok)).Inc()
	return ok
}
