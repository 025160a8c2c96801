// Package provider defines the primitive interface the xform engines consume
// and ships the default backend built on golang.org/x/crypto, circl and the
// Go standard crypto packages.
//
// Primitives receive key material that has already been validated against
// their KeySpec/IVSpec. They do not re-check lengths beyond what is needed to
// avoid a panic.
package provider

import (
	"hash"

	"github.com/TheusHen/xform/xform/keymat"
)

type StreamAlgorithm string

const (
	AESCTR   StreamAlgorithm = "aes-ctr"
	XSalsa20 StreamAlgorithm = "xsalsa20"
	ChaCha20 StreamAlgorithm = "chacha20"
)

type HashAlgorithm string

const (
	SHA256     HashAlgorithm = "sha256"
	SHA3_256   HashAlgorithm = "sha3-256"
	BLAKE2b256 HashAlgorithm = "blake2b-256"
)

type SignAlgorithm string

const (
	RSAPSS  SignAlgorithm = "rsa-pss-sha256"
	ECDSA   SignAlgorithm = "ecdsa"
	Ed25519 SignAlgorithm = "ed25519"
	MLDSA65 SignAlgorithm = "ml-dsa-65"
)

// Provider hands out primitives by algorithm name. Unknown names fail with
// errs.ErrUnknownAlgorithm.
type Provider interface {
	Name() string
	Stream(alg StreamAlgorithm) (StreamPrimitive, error)
	Hash(alg HashAlgorithm) (HashPrimitive, error)
	Signature(alg SignAlgorithm) (SignPrimitive, error)
}

// Keystream produces keystream blocks on demand.
type Keystream interface {
	// Block writes keystream block number index into dst[:BlockSize].
	// It is a pure function of (key, iv, index).
	Block(dst []byte, index uint64)
}

// StreamPrimitive is a keyed keystream generator.
type StreamPrimitive interface {
	Algorithm() StreamAlgorithm
	KeySpec() keymat.Spec
	IVSpec() keymat.Spec
	BlockSize() int
	NewKeystream(key, iv []byte) (Keystream, error)
}

// HashPrimitive creates running hash states. Write absorbs input and Sum
// finalizes; the engine never calls Write after Sum.
type HashPrimitive interface {
	Algorithm() HashAlgorithm
	Size() int
	KeySpec() keymat.Spec
	New(key []byte) (hash.Hash, error)
}

// SigningKey is a provider-side private key handle.
type SigningKey interface {
	Bits() int
	Sign(msg []byte) ([]byte, error)
	Public() VerifyingKey
	MarshalBinary() ([]byte, error)
}

// VerifyingKey is a provider-side public key handle.
type VerifyingKey interface {
	Bits() int
	// Verify never panics on malformed input.
	Verify(msg, sig []byte) bool
	MarshalBinary() ([]byte, error)
}

// SeedPolicy describes how a family derives keys from seeds.
type SeedPolicy struct {
	Supported bool
	Min       int
	Max       int // 0 means unbounded
}

// SignPrimitive is an asymmetric signature family.
type SignPrimitive interface {
	Algorithm() SignAlgorithm
	MinBits() int
	DefaultBits() int
	SupportsBits(bits int) bool
	Seed(bits int) SeedPolicy
	SignatureSize(bits int) int
	GenerateKey(bits int, seed []byte) (SigningKey, error)
	ParseSigningKey(b []byte) (SigningKey, error)
	ParseVerifyingKey(b []byte) (VerifyingKey, error)
}
