package provider

import (
	"crypto/sha256"
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"github.com/TheusHen/xform/xform/keymat"
)

type sha256Hash struct{}

func (sha256Hash) Algorithm() HashAlgorithm { return SHA256 }
func (sha256Hash) Size() int               { return sha256.Size }
func (sha256Hash) KeySpec() keymat.Spec    { return keymat.None("sha256 key") }

func (sha256Hash) New(key []byte) (hash.Hash, error) {
	return sha256.New(), nil
}

type sha3Hash struct{}

func (sha3Hash) Algorithm() HashAlgorithm { return SHA3_256 }
func (sha3Hash) Size() int               { return 32 }
func (sha3Hash) KeySpec() keymat.Spec    { return keymat.None("sha3-256 key") }

func (sha3Hash) New(key []byte) (hash.Hash, error) {
	return sha3.New256(), nil
}

// blake2bHash is BLAKE2b with a 32-byte digest, optionally keyed (MAC mode).
type blake2bHash struct{}

func (blake2bHash) Algorithm() HashAlgorithm { return BLAKE2b256 }
func (blake2bHash) Size() int               { return blake2b.Size256 }
func (blake2bHash) KeySpec() keymat.Spec    { return keymat.OneOf("blake2b-256 key", 16, 32, 64) }

func (blake2bHash) New(key []byte) (hash.Hash, error) {
	return blake2b.New256(key)
}
