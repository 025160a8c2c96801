package provider

import (
	"bytes"

	"github.com/cloudflare/circl/sign"
	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/cloudflare/circl/sign/mldsa/mldsa65"

	"github.com/TheusHen/xform/xform/errs"
)

// circlFamily adapts a circl sign.Scheme with a single parameter set. bits is
// the nominal security level used for key size checks.
type circlFamily struct {
	alg    SignAlgorithm
	bits   int
	scheme sign.Scheme
}

func newEd25519() circlFamily {
	return circlFamily{alg: Ed25519, bits: 256, scheme: ed25519.Scheme()}
}

func newMLDSA65() circlFamily {
	return circlFamily{alg: MLDSA65, bits: 192, scheme: mldsa65.Scheme()}
}

func (f circlFamily) Algorithm() SignAlgorithm   { return f.alg }
func (f circlFamily) MinBits() int               { return f.bits }
func (f circlFamily) DefaultBits() int           { return f.bits }
func (f circlFamily) SupportsBits(bits int) bool { return bits == f.bits }
func (f circlFamily) SignatureSize(int) int      { return f.scheme.SignatureSize() }

func (f circlFamily) Seed(int) SeedPolicy {
	n := f.scheme.SeedSize()
	return SeedPolicy{Supported: true, Min: n, Max: n}
}

func (f circlFamily) GenerateKey(bits int, seed []byte) (SigningKey, error) {
	if seed == nil {
		pk, sk, err := f.scheme.GenerateKey()
		if err != nil {
			return nil, err
		}
		return &circlSigningKey{f: f, sk: sk, pk: pk}, nil
	}
	if len(seed) != f.scheme.SeedSize() {
		return nil, errs.Wrapf(errs.ErrSeedTooShort, "%s seed must be %d bytes, not %d", f.alg, f.scheme.SeedSize(), len(seed))
	}
	pk, sk := f.scheme.DeriveKey(bytes.Clone(seed))
	return &circlSigningKey{f: f, sk: sk, pk: pk}, nil
}

func (f circlFamily) ParseSigningKey(b []byte) (SigningKey, error) {
	if len(b) != f.scheme.PrivateKeySize() {
		return nil, errs.Wrapf(errs.ErrDecode, "%s private key must be %d bytes, not %d", f.alg, f.scheme.PrivateKeySize(), len(b))
	}
	sk, err := f.scheme.UnmarshalBinaryPrivateKey(b)
	if err != nil {
		return nil, errs.Wrapf(errs.ErrDecode, "%s private key: %v", f.alg, err)
	}
	pk, ok := sk.Public().(sign.PublicKey)
	if !ok {
		return nil, errs.Wrapf(errs.ErrDecode, "%s private key has no public half", f.alg)
	}
	return &circlSigningKey{f: f, sk: sk, pk: pk}, nil
}

func (f circlFamily) ParseVerifyingKey(b []byte) (VerifyingKey, error) {
	if len(b) != f.scheme.PublicKeySize() {
		return nil, errs.Wrapf(errs.ErrDecode, "%s public key must be %d bytes, not %d", f.alg, f.scheme.PublicKeySize(), len(b))
	}
	pk, err := f.scheme.UnmarshalBinaryPublicKey(b)
	if err != nil {
		return nil, errs.Wrapf(errs.ErrDecode, "%s public key: %v", f.alg, err)
	}
	return &circlVerifyingKey{f: f, pk: pk}, nil
}

type circlSigningKey struct {
	f  circlFamily
	sk sign.PrivateKey
	pk sign.PublicKey
}

func (s *circlSigningKey) Bits() int { return s.f.bits }

func (s *circlSigningKey) Sign(msg []byte) ([]byte, error) {
	return s.f.scheme.Sign(s.sk, msg, nil), nil
}

func (s *circlSigningKey) Public() VerifyingKey {
	return &circlVerifyingKey{f: s.f, pk: s.pk}
}

func (s *circlSigningKey) MarshalBinary() ([]byte, error) {
	return s.sk.MarshalBinary()
}

type circlVerifyingKey struct {
	f  circlFamily
	pk sign.PublicKey
}

func (v *circlVerifyingKey) Bits() int { return v.f.bits }

func (v *circlVerifyingKey) Verify(msg, sig []byte) bool {
	if len(sig) != v.f.scheme.SignatureSize() {
		return false
	}
	return v.f.scheme.Verify(v.pk, msg, sig, nil)
}

func (v *circlVerifyingKey) MarshalBinary() ([]byte, error) {
	return v.pk.MarshalBinary()
}
