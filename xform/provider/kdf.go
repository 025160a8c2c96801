package provider

import (
	"crypto/sha256"
	"io"
	"math/big"

	"golang.org/x/crypto/hkdf"
)

// deriveKey expands seed into length bytes using HKDF-SHA256.
// salt can be nil (uses zero salt), info provides context binding.
func deriveKey(seed, salt, info []byte, length int) ([]byte, error) {
	hk := hkdf.New(sha256.New, seed, salt, info)
	out := make([]byte, length)
	if _, err := io.ReadFull(hk, out); err != nil {
		return nil, err
	}
	return out, nil
}

// deriveScalar maps a seed to a scalar in [1, n-1] by drawing 64 extra bits
// and reducing, as in FIPS 186-4 B.4.1.
func deriveScalar(seed, info []byte, n *big.Int) (*big.Int, error) {
	c, err := deriveKey(seed, nil, info, (n.BitLen()+7)/8+8)
	if err != nil {
		return nil, err
	}
	nm1 := new(big.Int).Sub(n, big.NewInt(1))
	k := new(big.Int).SetBytes(c)
	k.Mod(k, nm1)
	return k.Add(k, big.NewInt(1)), nil
}
