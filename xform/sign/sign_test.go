package sign

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TheusHen/xform/xform/errs"
	"github.com/TheusHen/xform/xform/provider"
)

func family(t testing.TB, alg provider.SignAlgorithm) provider.SignPrimitive {
	t.Helper()
	p, err := provider.Default().Signature(alg)
	require.NoError(t, err, alg)
	return p
}

// testBits keeps RSA at the minimum size so the suite stays fast.
func testBits(alg provider.SignAlgorithm) int {
	if alg == provider.RSAPSS {
		return 1024
	}
	return 0
}

var allFamilies = []provider.SignAlgorithm{provider.RSAPSS, provider.ECDSA, provider.Ed25519, provider.MLDSA65}

func TestSignVerify(t *testing.T) {
	for _, alg := range allFamilies {
		t.Run(string(alg), func(t *testing.T) {
			sk, err := Generate(family(t, alg), testBits(alg), nil)
			require.NoError(t, err)
			vk := sk.VerifyingKey()
			for _, msg := range [][]byte{nil, []byte("hello"), bytes.Repeat([]byte{0xa5}, 1500)} {
				sig, err := sk.Sign(msg)
				require.NoError(t, err)
				require.Len(t, sig, sk.SignatureSize())
				require.True(t, vk.Verify(msg, sig), "%d-byte message", len(msg))

				for _, bit := range []int{0, 7, 8*len(sig) - 1} {
					bad := bytes.Clone(sig)
					bad[bit/8] ^= 1 << (bit % 8)
					require.False(t, vk.Verify(msg, bad), "bit %d of the signature flipped", bit)
				}
				if len(msg) > 0 {
					bad := bytes.Clone(msg)
					bad[len(bad)-1] ^= 0x80
					require.False(t, vk.Verify(bad, sig), "tampered message")
				}
				require.False(t, vk.Verify(msg, append(bytes.Clone(sig), 0)))
				require.False(t, vk.Verify(msg, nil))
			}

			other, err := Generate(family(t, alg), testBits(alg), nil)
			require.NoError(t, err)
			sig, err := sk.Sign([]byte("hello"))
			require.NoError(t, err)
			require.False(t, other.VerifyingKey().Verify([]byte("hello"), sig), "different public key")
		})
	}
}

func TestKeyRoundTrip(t *testing.T) {
	for _, alg := range allFamilies {
		t.Run(string(alg), func(t *testing.T) {
			sk, err := Generate(family(t, alg), testBits(alg), nil)
			require.NoError(t, err)
			skb, err := sk.Marshal()
			require.NoError(t, err)
			vkb, err := sk.VerifyingKey().Marshal()
			require.NoError(t, err)

			sk2, err := UnmarshalSigningKey(provider.Default(), skb)
			require.NoError(t, err)
			skb2, err := sk2.Marshal()
			require.NoError(t, err)
			require.Equal(t, skb, skb2)

			vk2, err := UnmarshalVerifyingKey(provider.Default(), vkb)
			require.NoError(t, err)
			vkb2, err := sk2.VerifyingKey().Marshal()
			require.NoError(t, err)
			require.Equal(t, vkb, vkb2)
			require.Equal(t, alg, vk2.Algorithm())
			require.Equal(t, sk.Bits(), vk2.Bits())

			for _, msg := range [][]byte{{}, []byte("abc"), bytes.Repeat([]byte{1}, 1025)} {
				sig, err := sk2.Sign(msg)
				require.NoError(t, err)
				require.True(t, vk2.Verify(msg, sig))
				require.True(t, sk.VerifyingKey().Verify(msg, sig))
			}

			// a signing key is not a verifying key
			_, err = UnmarshalVerifyingKey(provider.Default(), skb)
			require.ErrorIs(t, err, errs.ErrDecode)
			_, err = UnmarshalSigningKey(provider.Default(), vkb)
			require.ErrorIs(t, err, errs.ErrDecode)
		})
	}
}

func TestUnmarshalMalformed(t *testing.T) {
	sk, err := Generate(family(t, provider.Ed25519), 0, bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)
	good, err := sk.VerifyingKey().Marshal()
	require.NoError(t, err)

	cases := map[string][]byte{
		"empty":     nil,
		"short":     good[:3],
		"truncated": good[:len(good)-1],
		"trailing":  append(bytes.Clone(good), 0),
		"tag":       append([]byte{99}, good[1:]...),
		"kind":      append([]byte{good[0], 7}, good[2:]...),
		"huge":      {3, 2, 0xff, 0xff, 0xff, 0xff},
	}
	for name, b := range cases {
		_, err := UnmarshalVerifyingKey(provider.Default(), b)
		require.ErrorIs(t, err, errs.ErrDecode, name)
	}

	// a well-formed envelope for an algorithm the provider lacks
	_, err = UnmarshalVerifyingKey(provider.NewTable("empty"), good)
	require.ErrorIs(t, err, errs.ErrUnknownAlgorithm)
}

func TestGenerateValidation(t *testing.T) {
	_, err := Generate(family(t, provider.RSAPSS), 512, nil)
	require.ErrorIs(t, err, errs.ErrKeySizeTooSmall)

	_, err = Generate(family(t, provider.ECDSA), 128, nil)
	require.ErrorIs(t, err, errs.ErrKeySizeTooSmall)
	_, err = Generate(family(t, provider.ECDSA), 300, nil)
	require.ErrorIs(t, err, errs.ErrInvalidKeyLength)

	_, err = Generate(family(t, provider.ECDSA), 256, make([]byte, 15))
	require.ErrorIs(t, err, errs.ErrSeedTooShort)
	_, err = Generate(family(t, provider.ECDSA), 521, make([]byte, 32))
	require.ErrorIs(t, err, errs.ErrSeedTooShort)
	_, err = Generate(family(t, provider.ECDSA), 256, make([]byte, 16))
	require.NoError(t, err)

	_, err = Generate(family(t, provider.Ed25519), 0, make([]byte, 31))
	require.ErrorIs(t, err, errs.ErrSeedTooShort)
	_, err = Generate(family(t, provider.Ed25519), 0, make([]byte, 33))
	require.ErrorIs(t, err, errs.ErrInvalidKeyLength)

	_, err = Generate(family(t, provider.RSAPSS), 1024, []byte("seed"))
	require.ErrorIs(t, err, errs.ErrSeedUnsupported)
}

type countingFamily struct {
	provider.SignPrimitive
	calls int
}

func (c *countingFamily) GenerateKey(bits int, seed []byte) (provider.SigningKey, error) {
	c.calls++
	return c.SignPrimitive.GenerateKey(bits, seed)
}

func TestValidatesBeforeProvider(t *testing.T) {
	p := &countingFamily{SignPrimitive: family(t, provider.ECDSA)}
	_, err := Generate(p, 64, nil)
	require.ErrorIs(t, err, errs.ErrKeySizeTooSmall)
	_, err = Generate(p, 256, []byte{1})
	require.ErrorIs(t, err, errs.ErrSeedTooShort)
	require.Zero(t, p.calls)
	_, err = Generate(p, 0, nil)
	require.NoError(t, err)
	require.Equal(t, 1, p.calls)
}

func TestSeedDeterminism(t *testing.T) {
	for _, alg := range []provider.SignAlgorithm{provider.ECDSA, provider.Ed25519, provider.MLDSA65} {
		seed := bytes.Repeat([]byte{0x42}, 32)
		a, err := Generate(family(t, alg), 0, seed)
		require.NoError(t, err)
		b, err := Generate(family(t, alg), 0, seed)
		require.NoError(t, err)
		ab, err := a.Marshal()
		require.NoError(t, err)
		bb, err := b.Marshal()
		require.NoError(t, err)
		require.Equal(t, ab, bb, alg)
	}
}

func TestFingerprint(t *testing.T) {
	sk, err := Generate(family(t, provider.Ed25519), 0, nil)
	require.NoError(t, err)
	f1, err := sk.VerifyingKey().Fingerprint()
	require.NoError(t, err)
	f2, err := sk.VerifyingKey().Fingerprint()
	require.NoError(t, err)
	require.Equal(t, f1, f2)

	parsed, err := ParseFingerprint(f1.String())
	require.NoError(t, err)
	require.Equal(t, f1, parsed)

	_, err = ParseFingerprint("abcd")
	require.ErrorIs(t, err, errs.ErrDecode)
	_, err = ParseFingerprint("zz")
	require.ErrorIs(t, err, errs.ErrDecode)
}

func BenchmarkVerify(b *testing.B) {
	for _, alg := range []provider.SignAlgorithm{provider.ECDSA, provider.Ed25519, provider.MLDSA65} {
		b.Run(string(alg), func(b *testing.B) {
			sk, err := Generate(family(b, alg), 0, nil)
			require.NoError(b, err)
			msg := []byte("benchmark")
			sig, err := sk.Sign(msg)
			require.NoError(b, err)
			vk := sk.VerifyingKey()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				vk.Verify(msg, sig)
			}
		})
	}
}
