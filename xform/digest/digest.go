// Package digest wraps a provider hash in an update/finalize state machine.
//
// A Hasher absorbs data with Update until the first call to Digest, which
// finalizes it. Digest may be called again and returns the same bytes;
// Update after Digest fails with errs.ErrFinalized.
package digest

import (
	"bytes"
	"encoding/hex"
	"hash"

	"github.com/TheusHen/xform/xform/errs"
	"github.com/TheusHen/xform/xform/provider"
)

// Hasher is an incremental hash instance. It is not safe for concurrent use.
type Hasher struct {
	alg provider.HashAlgorithm
	h   hash.Hash
	sum []byte // non-nil once finalized
}

// New returns an unkeyed hasher that has already absorbed initial.
func New(p provider.HashPrimitive, initial []byte) (*Hasher, error) {
	return NewKeyed(p, nil, initial)
}

// NewKeyed returns a hasher keyed with key. Primitives without a keyed mode
// reject any non-empty key.
func NewKeyed(p provider.HashPrimitive, key, initial []byte) (*Hasher, error) {
	k, err := p.KeySpec().Optional(key)
	if err != nil {
		return nil, err
	}
	h, err := p.New(k)
	if err != nil {
		return nil, err
	}
	d := &Hasher{alg: p.Algorithm(), h: h}
	if len(initial) > 0 {
		h.Write(initial)
	}
	return d, nil
}

func (d *Hasher) Algorithm() provider.HashAlgorithm { return d.alg }

// Size is the digest length in bytes.
func (d *Hasher) Size() int { return d.h.Size() }

// Finalized reports whether Digest has been called.
func (d *Hasher) Finalized() bool { return d.sum != nil }

// Update absorbs data. Empty data is a no-op but still fails once finalized.
func (d *Hasher) Update(data []byte) error {
	if d.sum != nil {
		return errs.Wrapf(errs.ErrFinalized, "%s: update after digest", d.alg)
	}
	d.h.Write(data)
	return nil
}

// Write implements io.Writer on top of Update.
func (d *Hasher) Write(p []byte) (int, error) {
	if err := d.Update(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Digest finalizes on first use and returns a copy of the digest.
func (d *Hasher) Digest() []byte {
	if d.sum == nil {
		d.sum = d.h.Sum(make([]byte, 0, d.h.Size()))
	}
	return bytes.Clone(d.sum)
}

// HexDigest is Digest in lower-case hex.
func (d *Hasher) HexDigest() string {
	return hex.EncodeToString(d.Digest())
}

// Sum hashes data in one call.
func Sum(p provider.HashPrimitive, data []byte) ([]byte, error) {
	d, err := New(p, data)
	if err != nil {
		return nil, err
	}
	return d.Digest(), nil
}
