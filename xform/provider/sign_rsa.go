package provider

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"

	"github.com/TheusHen/xform/xform/errs"
)

const (
	rsaMinBits     = 1024
	rsaMaxBits     = 16384
	rsaDefaultBits = 2048
)

var pssOptions = &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: crypto.SHA256}

// rsaPSS is RSASSA-PSS over SHA-256 with a salt as long as the hash.
type rsaPSS struct{}

func (rsaPSS) Algorithm() SignAlgorithm { return RSAPSS }
func (rsaPSS) MinBits() int             { return rsaMinBits }
func (rsaPSS) DefaultBits() int         { return rsaDefaultBits }
func (rsaPSS) Seed(int) SeedPolicy      { return SeedPolicy{} }

func (rsaPSS) SupportsBits(bits int) bool {
	return bits >= rsaMinBits && bits <= rsaMaxBits
}

func (rsaPSS) SignatureSize(bits int) int { return (bits + 7) / 8 }

func (rsaPSS) GenerateKey(bits int, seed []byte) (SigningKey, error) {
	if seed != nil {
		return nil, errs.Wrapf(errs.ErrSeedUnsupported, "rsa keys cannot be derived from a seed")
	}
	k, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	return &rsaSigningKey{k: k}, nil
}

func (rsaPSS) ParseSigningKey(b []byte) (SigningKey, error) {
	k, err := x509.ParsePKCS1PrivateKey(b)
	if err != nil {
		return nil, errs.Wrapf(errs.ErrDecode, "rsa private key: %v", err)
	}
	if k.N.BitLen() < rsaMinBits {
		return nil, errs.Wrapf(errs.ErrKeySizeTooSmall, "rsa key is %d bits, minimum is %d", k.N.BitLen(), rsaMinBits)
	}
	return &rsaSigningKey{k: k}, nil
}

func (rsaPSS) ParseVerifyingKey(b []byte) (VerifyingKey, error) {
	pub, err := x509.ParsePKIXPublicKey(b)
	if err != nil {
		return nil, errs.Wrapf(errs.ErrDecode, "rsa public key: %v", err)
	}
	k, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errs.Wrapf(errs.ErrDecode, "not an rsa public key: %T", pub)
	}
	if k.N.BitLen() < rsaMinBits {
		return nil, errs.Wrapf(errs.ErrKeySizeTooSmall, "rsa key is %d bits, minimum is %d", k.N.BitLen(), rsaMinBits)
	}
	return &rsaVerifyingKey{k: k}, nil
}

type rsaSigningKey struct {
	k *rsa.PrivateKey
}

func (s *rsaSigningKey) Bits() int { return s.k.N.BitLen() }

func (s *rsaSigningKey) Sign(msg []byte) ([]byte, error) {
	h := sha256.Sum256(msg)
	return rsa.SignPSS(rand.Reader, s.k, crypto.SHA256, h[:], pssOptions)
}

func (s *rsaSigningKey) Public() VerifyingKey {
	return &rsaVerifyingKey{k: &s.k.PublicKey}
}

func (s *rsaSigningKey) MarshalBinary() ([]byte, error) {
	return x509.MarshalPKCS1PrivateKey(s.k), nil
}

type rsaVerifyingKey struct {
	k *rsa.PublicKey
}

func (v *rsaVerifyingKey) Bits() int { return v.k.N.BitLen() }

func (v *rsaVerifyingKey) Verify(msg, sig []byte) bool {
	if len(sig) != v.k.Size() {
		return false
	}
	h := sha256.Sum256(msg)
	return rsa.VerifyPSS(v.k, crypto.SHA256, h[:], sig, pssOptions) == nil
}

func (v *rsaVerifyingKey) MarshalBinary() ([]byte, error) {
	return x509.MarshalPKIXPublicKey(v.k)
}
