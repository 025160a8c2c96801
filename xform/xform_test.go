package xform

import (
	"bytes"
	"hash"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TheusHen/xform/xform/errs"
	"github.com/TheusHen/xform/xform/provider"
	"github.com/TheusHen/xform/xform/selftest"
)

type zeroKeystream struct{}

func (zeroKeystream) Block(dst []byte, _ uint64) { clear(dst[:16]) }

// nullAES returns an all-zero keystream.
type nullAES struct{ provider.StreamPrimitive }

func (nullAES) NewKeystream(_, _ []byte) (provider.Keystream, error) { return zeroKeystream{}, nil }

// zeroDigest wraps a hash primitive so that every digest is all zeros.
type zeroDigest struct{ provider.HashPrimitive }

func (z zeroDigest) New(key []byte) (hash.Hash, error) {
	h, err := z.HashPrimitive.New(key)
	if err != nil {
		return nil, err
	}
	return zeroSum{h}, nil
}

type zeroSum struct{ hash.Hash }

func (z zeroSum) Sum(b []byte) []byte { return append(b, make([]byte, z.Size())...) }

func TestInitialize(t *testing.T) {
	a, err := Initialize()
	require.NoError(t, err)
	b, err := Initialize()
	require.NoError(t, err)
	require.Same(t, a, b)
	require.Equal(t, selftest.Passed, a.State())
	require.Equal(t, provider.BackendXCrypto, a.Provider().Name())
}

func TestEngines(t *testing.T) {
	lib, err := New(provider.Default())
	require.NoError(t, err)

	c, err := lib.NewStream(provider.XSalsa20, bytes.Repeat([]byte{1}, 32), nil)
	require.NoError(t, err)
	ct := c.Process([]byte("hello"))
	d, _ := lib.NewStream(provider.XSalsa20, bytes.Repeat([]byte{1}, 32), nil)
	require.Equal(t, "hello", string(d.Process(ct)))

	h, err := lib.NewHash(provider.SHA256, []byte("abc"))
	require.NoError(t, err)
	require.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", h.HexDigest())

	_, err = lib.NewKeyedHash(provider.BLAKE2b256, make([]byte, 32), nil)
	require.NoError(t, err)

	sk, err := lib.GenerateKey(provider.Ed25519, 0, nil)
	require.NoError(t, err)
	skb, err := sk.Marshal()
	require.NoError(t, err)
	sk2, err := lib.ParseSigningKey(skb)
	require.NoError(t, err)
	vkb, err := sk2.VerifyingKey().Marshal()
	require.NoError(t, err)
	vk, err := lib.ParseVerifyingKey(vkb)
	require.NoError(t, err)
	sig, err := sk.Sign([]byte("msg"))
	require.NoError(t, err)
	require.True(t, vk.Verify([]byte("msg"), sig))

	_, err = lib.NewStream("rc4", nil, nil)
	require.ErrorIs(t, err, errs.ErrUnknownAlgorithm)
	_, err = lib.NewStream(provider.AESCTR, make([]byte, 17), nil)
	require.ErrorIs(t, err, errs.ErrInvalidKeyLength)
}

func TestFailedGateRefusesEngines(t *testing.T) {
	aes, err := provider.Default().Stream(provider.AESCTR)
	require.NoError(t, err)
	tbl := provider.Default().Clone("null-aes")
	tbl.AddStream(nullAES{aes})

	lib, err := New(tbl)
	require.ErrorIs(t, err, errs.ErrSelfTestFailure)
	require.NotNil(t, lib)
	require.Equal(t, selftest.Failed, lib.State())
	require.ErrorIs(t, lib.Check(), errs.ErrSelfTestFailure)

	_, err = lib.NewStream(provider.XSalsa20, make([]byte, 32), nil)
	require.ErrorIs(t, err, errs.ErrSelfTestFailure)
	_, err = lib.NewHash(provider.SHA256, nil)
	require.ErrorIs(t, err, errs.ErrSelfTestFailure)
	_, err = lib.NewKeyedHash(provider.BLAKE2b256, nil, nil)
	require.ErrorIs(t, err, errs.ErrSelfTestFailure)
	_, err = lib.GenerateKey(provider.Ed25519, 0, nil)
	require.ErrorIs(t, err, errs.ErrSelfTestFailure)
	_, err = lib.ParseSigningKey([]byte{3, 1, 0, 0, 0, 0})
	require.ErrorIs(t, err, errs.ErrSelfTestFailure)
	_, err = lib.ParseVerifyingKey([]byte{3, 2, 0, 0, 0, 0})
	require.ErrorIs(t, err, errs.ErrSelfTestFailure)

	// an independent library on a healthy provider is unaffected
	good, err := New(provider.Default())
	require.NoError(t, err)
	_, err = good.NewHash(provider.SHA256, nil)
	require.NoError(t, err)
}

func TestExtraVectors(t *testing.T) {
	ran := false
	v := selftest.Vector{Name: "extra", Check: func(provider.Provider) error { ran = true; return nil }}
	_, err := New(provider.Default(), WithExtraVectors(v), WithMetrics(true))
	require.NoError(t, err)
	require.True(t, ran)
}

func TestBrokenHashNeverHandedOut(t *testing.T) {
	for _, alg := range []provider.HashAlgorithm{provider.SHA3_256, provider.BLAKE2b256} {
		t.Run(string(alg), func(t *testing.T) {
			hp, err := provider.Default().Hash(alg)
			require.NoError(t, err)
			tbl := provider.Default().Clone("zero-" + string(alg))
			tbl.AddHash(zeroDigest{hp})

			lib, err := New(tbl)
			require.ErrorIs(t, err, errs.ErrSelfTestFailure)
			require.Equal(t, selftest.Failed, lib.State())
			_, err = lib.NewHash(alg, []byte("abc"))
			require.ErrorIs(t, err, errs.ErrSelfTestFailure)
		})
	}
}
