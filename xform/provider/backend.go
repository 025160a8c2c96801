package provider

import (
	"sync"

	"github.com/TheusHen/xform/xform/errs"
)

// BackendXCrypto names the default backend.
const BackendXCrypto = "xcrypto"

var (
	activeBackend = "unknown"
	defaultOnce   sync.Once
	defaultTable  *Table
)

// ActiveBackend reports the name of the backend returned by Default, or
// "unknown" before Default has been called.
func ActiveBackend() string { return activeBackend }

// Default returns the shared default backend.
func Default() *Table {
	defaultOnce.Do(func() {
		defaultTable = NewTable(BackendXCrypto)
		defaultTable.AddStream(aesCTR{})
		defaultTable.AddStream(xsalsa20Stream{})
		defaultTable.AddStream(chacha20Stream{})
		defaultTable.AddHash(sha256Hash{})
		defaultTable.AddHash(sha3Hash{})
		defaultTable.AddHash(blake2bHash{})
		defaultTable.AddSignature(rsaPSS{})
		defaultTable.AddSignature(ecdsaFamily{})
		defaultTable.AddSignature(newEd25519())
		defaultTable.AddSignature(newMLDSA65())
		activeBackend = BackendXCrypto
	})
	return defaultTable
}

// Table is a Provider assembled from individual primitives. Hosts and tests
// use it to swap a single primitive while keeping the rest of a backend.
type Table struct {
	name    string
	streams map[StreamAlgorithm]StreamPrimitive
	hashes  map[HashAlgorithm]HashPrimitive
	signers map[SignAlgorithm]SignPrimitive
}

// NewTable creates an empty provider table.
func NewTable(name string) *Table {
	return &Table{
		name:    name,
		streams: make(map[StreamAlgorithm]StreamPrimitive),
		hashes:  make(map[HashAlgorithm]HashPrimitive),
		signers: make(map[SignAlgorithm]SignPrimitive),
	}
}

// Clone copies the table under a new name.
func (t *Table) Clone(name string) *Table {
	c := NewTable(name)
	for k, v := range t.streams {
		c.streams[k] = v
	}
	for k, v := range t.hashes {
		c.hashes[k] = v
	}
	for k, v := range t.signers {
		c.signers[k] = v
	}
	return c
}

// AddStream registers p under its algorithm name, replacing any earlier
// primitive for that name.
func (t *Table) AddStream(p StreamPrimitive) { t.streams[p.Algorithm()] = p }

// AddHash registers p under its algorithm name, replacing any earlier one.
func (t *Table) AddHash(p HashPrimitive) { t.hashes[p.Algorithm()] = p }

// AddSignature registers p under its algorithm name, replacing any earlier one.
func (t *Table) AddSignature(p SignPrimitive) { t.signers[p.Algorithm()] = p }

// Name is the backend name given to NewTable or Clone.
func (t *Table) Name() string { return t.name }

// Stream looks up a stream cipher.
func (t *Table) Stream(alg StreamAlgorithm) (StreamPrimitive, error) {
	p, ok := t.streams[alg]
	if !ok {
		return nil, errs.Wrapf(errs.ErrUnknownAlgorithm, "stream cipher %q", alg)
	}
	return p, nil
}

// Hash looks up a hash.
func (t *Table) Hash(alg HashAlgorithm) (HashPrimitive, error) {
	p, ok := t.hashes[alg]
	if !ok {
		return nil, errs.Wrapf(errs.ErrUnknownAlgorithm, "hash %q", alg)
	}
	return p, nil
}

// Signature looks up a signature family.
func (t *Table) Signature(alg SignAlgorithm) (SignPrimitive, error) {
	p, ok := t.signers[alg]
	if !ok {
		return nil, errs.Wrapf(errs.ErrUnknownAlgorithm, "signature %q", alg)
	}
	return p, nil
}
