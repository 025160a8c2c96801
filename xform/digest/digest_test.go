package digest

import (
	"bytes"
	"encoding/hex"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TheusHen/xform/xform/errs"
	"github.com/TheusHen/xform/xform/provider"
)

func sha256Prim(t testing.TB) provider.HashPrimitive {
	t.Helper()
	p, err := provider.Default().Hash(provider.SHA256)
	require.NoError(t, err)
	return p
}

func TestKnownDigests(t *testing.T) {
	p := sha256Prim(t)
	for _, tc := range []struct {
		chunks []string
		want   string
	}{
		{nil, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{[]string{"\xbd"}, "68325720aabd7c82f30f554b313d0570c95accbb7dc4b5aae11204c08ffe732b"},
		{[]string{"\x5f", "\xd4"}, "7c4fbf484498d21b487b9d61de8914b2eadaf2698712936d47c3ada2558f6788"},
		{[]string{"a", "", "bc"}, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	} {
		d, err := New(p, nil)
		require.NoError(t, err)
		for _, c := range tc.chunks {
			require.NoError(t, d.Update([]byte(c)))
		}
		require.Equal(t, tc.want, d.HexDigest())
	}
}

func TestInitialData(t *testing.T) {
	d, err := New(sha256Prim(t), []byte("ab"))
	require.NoError(t, err)
	require.NoError(t, d.Update([]byte("c")))
	require.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", d.HexDigest())
}

func TestRecursiveChunkSizes(t *testing.T) {
	p := sha256Prim(t)
	s := make([]byte, 65)
	for i := range s {
		s[i] = byte(i)
	}
	hx, err := New(p, nil)
	require.NoError(t, err)
	for i := 0; i <= 64; i++ {
		hy, err := Sum(p, s[:i])
		require.NoError(t, err)
		require.NoError(t, hx.Update(hy))
	}
	for i := 0; i <= 64; i++ {
		require.NoError(t, hx.Update([]byte{0xfe}))
		require.NoError(t, hx.Update(s[:64]))
	}
	require.Equal(t, "5191c7841dd4e16aa454d40af924585dffc67157ffdbfd0236acddd07901629d", hx.HexDigest())
}

func TestChunkIndependence(t *testing.T) {
	seed := rand.Int63()
	rng := rand.New(rand.NewSource(seed))
	for _, alg := range []provider.HashAlgorithm{provider.SHA256, provider.SHA3_256, provider.BLAKE2b256} {
		p, err := provider.Default().Hash(alg)
		require.NoError(t, err)
		for trial := 0; trial < 20; trial++ {
			msg := make([]byte, rng.Intn(600))
			rng.Read(msg)
			want, err := Sum(p, msg)
			require.NoError(t, err)

			a := rng.Intn(len(msg) + 1)
			d, err := New(p, msg[:a])
			require.NoError(t, err)
			rest := msg[a:]
			for len(rest) > 0 {
				n := rng.Intn(len(rest) + 1)
				require.NoError(t, d.Update(rest[:n]))
				rest = rest[n:]
			}
			require.Equal(t, want, d.Digest(), "%s seed %d", alg, seed)
		}
	}
}

func TestFinalize(t *testing.T) {
	d, err := New(sha256Prim(t), []byte("abc"))
	require.NoError(t, err)
	require.False(t, d.Finalized())

	first := d.Digest()
	require.True(t, d.Finalized())
	first[0] ^= 0xff // callers get a copy
	require.Equal(t, d.HexDigest(), hex.EncodeToString(d.Digest()))
	require.NotEqual(t, first, d.Digest())

	err = d.Update([]byte("x"))
	require.ErrorIs(t, err, errs.ErrFinalized)
	require.ErrorContains(t, err, "digest() has already been called")
	require.ErrorIs(t, d.Update(nil), errs.ErrFinalized)

	n, err := d.Write([]byte("x"))
	require.ErrorIs(t, err, errs.ErrFinalized)
	require.Zero(t, n)
	require.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", d.HexDigest())
}

func TestWriter(t *testing.T) {
	d, err := New(sha256Prim(t), nil)
	require.NoError(t, err)
	_, err = io.Copy(d, bytes.NewReader([]byte("abc")))
	require.NoError(t, err)
	require.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", d.HexDigest())
	require.Equal(t, 32, d.Size())
	require.Equal(t, provider.SHA256, d.Algorithm())
}

func TestKeyed(t *testing.T) {
	b2, err := provider.Default().Hash(provider.BLAKE2b256)
	require.NoError(t, err)

	a, err := NewKeyed(b2, bytes.Repeat([]byte{1}, 32), []byte("msg"))
	require.NoError(t, err)
	b, err := NewKeyed(b2, bytes.Repeat([]byte{2}, 32), []byte("msg"))
	require.NoError(t, err)
	require.NotEqual(t, a.Digest(), b.Digest())

	_, err = NewKeyed(b2, make([]byte, 20), nil)
	require.ErrorIs(t, err, errs.ErrInvalidKeyLength)

	_, err = NewKeyed(sha256Prim(t), []byte("key"), nil)
	require.ErrorIs(t, err, errs.ErrInvalidKeyLength)
}

func BenchmarkUpdate(b *testing.B) {
	d, err := New(sha256Prim(b), nil)
	if err != nil {
		b.Fatalf("New: %v", err)
	}
	buf := make([]byte, 4096)
	b.SetBytes(int64(len(buf)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := d.Update(buf); err != nil {
			b.Fatalf("Update: %v", err)
		}
	}
}
