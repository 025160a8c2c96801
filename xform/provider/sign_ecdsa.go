package provider

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"math/big"

	"github.com/TheusHen/xform/xform/errs"
)

type ecCurve struct {
	bits  int
	curve elliptic.Curve
	// digest hashes a message to the curve's strength
	digest func([]byte) []byte
}

func (c ecCurve) byteLen() int { return (c.bits + 7) / 8 }

var ecCurves = []ecCurve{
	{256, elliptic.P256(), func(m []byte) []byte { h := sha256.Sum256(m); return h[:] }},
	{384, elliptic.P384(), func(m []byte) []byte { h := sha512.Sum384(m); return h[:] }},
	{521, elliptic.P521(), func(m []byte) []byte { h := sha512.Sum512(m); return h[:] }},
}

func curveForBits(bits int) (ecCurve, bool) {
	for _, c := range ecCurves {
		if c.bits == bits {
			return c, true
		}
	}
	return ecCurve{}, false
}

// ecdsaFamily is ECDSA over the NIST prime curves. Signatures are the raw
// fixed-width r||s concatenation.
type ecdsaFamily struct{}

func (ecdsaFamily) Algorithm() SignAlgorithm { return ECDSA }
func (ecdsaFamily) MinBits() int             { return 256 }
func (ecdsaFamily) DefaultBits() int         { return 256 }

func (ecdsaFamily) SupportsBits(bits int) bool {
	_, ok := curveForBits(bits)
	return ok
}

// Seed requires at least half the curve size in bytes.
func (ecdsaFamily) Seed(bits int) SeedPolicy {
	return SeedPolicy{Supported: true, Min: (bits + 15) / 16}
}

func (ecdsaFamily) SignatureSize(bits int) int { return 2 * ((bits + 7) / 8) }

func (ecdsaFamily) GenerateKey(bits int, seed []byte) (SigningKey, error) {
	c, ok := curveForBits(bits)
	if !ok {
		return nil, errs.Wrapf(errs.ErrInvalidKeyLength, "ecdsa supports 256, 384, 521 bits, not %d", bits)
	}
	if seed == nil {
		k, err := ecdsa.GenerateKey(c.curve, rand.Reader)
		if err != nil {
			return nil, err
		}
		return &ecdsaSigningKey{c: c, k: k}, nil
	}
	d, err := deriveScalar(seed, []byte("xform-ecdsa-"+c.curve.Params().Name), c.curve.Params().N)
	if err != nil {
		return nil, err
	}
	return &ecdsaSigningKey{c: c, k: privateFromScalar(c, d)}, nil
}

func privateFromScalar(c ecCurve, d *big.Int) *ecdsa.PrivateKey {
	k := &ecdsa.PrivateKey{D: d}
	k.PublicKey.Curve = c.curve
	k.PublicKey.X, k.PublicKey.Y = c.curve.ScalarBaseMult(d.FillBytes(make([]byte, c.byteLen())))
	return k
}

func (ecdsaFamily) ParseSigningKey(b []byte) (SigningKey, error) {
	for _, c := range ecCurves {
		if len(b) != c.byteLen() {
			continue
		}
		d := new(big.Int).SetBytes(b)
		if d.Sign() == 0 || d.Cmp(c.curve.Params().N) >= 0 {
			return nil, errs.Wrapf(errs.ErrDecode, "ecdsa scalar out of range for %s", c.curve.Params().Name)
		}
		return &ecdsaSigningKey{c: c, k: privateFromScalar(c, d)}, nil
	}
	return nil, errs.Wrapf(errs.ErrDecode, "ecdsa private key of %d bytes", len(b))
}

func (ecdsaFamily) ParseVerifyingKey(b []byte) (VerifyingKey, error) {
	for _, c := range ecCurves {
		if len(b) != 1+c.byteLen() {
			continue
		}
		x, y := elliptic.UnmarshalCompressed(c.curve, b)
		if x == nil {
			return nil, errs.Wrapf(errs.ErrDecode, "invalid %s point", c.curve.Params().Name)
		}
		return &ecdsaVerifyingKey{c: c, k: &ecdsa.PublicKey{Curve: c.curve, X: x, Y: y}}, nil
	}
	return nil, errs.Wrapf(errs.ErrDecode, "ecdsa public key of %d bytes", len(b))
}

type ecdsaSigningKey struct {
	c ecCurve
	k *ecdsa.PrivateKey
}

func (s *ecdsaSigningKey) Bits() int { return s.c.bits }

func (s *ecdsaSigningKey) Sign(msg []byte) ([]byte, error) {
	r, ss, err := ecdsa.Sign(rand.Reader, s.k, s.c.digest(msg))
	if err != nil {
		return nil, err
	}
	n := s.c.byteLen()
	sig := make([]byte, 2*n)
	r.FillBytes(sig[:n])
	ss.FillBytes(sig[n:])
	return sig, nil
}

func (s *ecdsaSigningKey) Public() VerifyingKey {
	return &ecdsaVerifyingKey{c: s.c, k: &s.k.PublicKey}
}

func (s *ecdsaSigningKey) MarshalBinary() ([]byte, error) {
	return s.k.D.FillBytes(make([]byte, s.c.byteLen())), nil
}

type ecdsaVerifyingKey struct {
	c ecCurve
	k *ecdsa.PublicKey
}

func (v *ecdsaVerifyingKey) Bits() int { return v.c.bits }

func (v *ecdsaVerifyingKey) Verify(msg, sig []byte) bool {
	n := v.c.byteLen()
	if len(sig) != 2*n {
		return false
	}
	r := new(big.Int).SetBytes(sig[:n])
	s := new(big.Int).SetBytes(sig[n:])
	return ecdsa.Verify(v.k, v.c.digest(msg), r, s)
}

func (v *ecdsaVerifyingKey) MarshalBinary() ([]byte, error) {
	return elliptic.MarshalCompressed(v.c.curve, v.k.X, v.k.Y), nil
}
