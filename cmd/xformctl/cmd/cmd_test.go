package cmd

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TheusHen/xform/xform/errs"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

const katDir = "../../../xform/kat/testdata"

func run(t *testing.T, stdin []byte, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetIn(bytes.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestSelfTest(t *testing.T) {
	out, _, err := run(t, nil, "selftest")
	require.NoError(t, err)
	require.Contains(t, out, "provider xcrypto: passed")
}

func TestEncryptDecrypt(t *testing.T) {
	msg := []byte(strings.Repeat("stream me through the cli ", 100))
	for _, c := range []string{"xsalsa20", "chacha20", "aes-ctr"} {
		ct, _, err := run(t, msg, "encrypt", "--cipher", c, "--key", testKeyHex)
		require.NoError(t, err, c)
		require.Len(t, ct, len(msg))
		require.NotEqual(t, string(msg), ct)

		pt, _, err := run(t, []byte(ct), "decrypt", "--cipher", c, "--key", testKeyHex)
		require.NoError(t, err, c)
		require.Equal(t, string(msg), pt)
	}

	_, _, err := run(t, msg, "encrypt", "--cipher", "aes-ctr", "--key", "00")
	require.ErrorIs(t, err, errs.ErrInvalidKeyLength)
	_, _, err = run(t, msg, "encrypt", "--key", testKeyHex, "--iv", "0102")
	require.ErrorIs(t, err, errs.ErrInvalidIVLength)
	_, _, err = run(t, msg, "encrypt", "--key", "zz")
	require.ErrorIs(t, err, errs.ErrTypeMismatch)
}

func TestEnvSelectsCipher(t *testing.T) {
	msg := []byte("environment")
	def, _, err := run(t, msg, "encrypt", "--key", testKeyHex)
	require.NoError(t, err)

	t.Setenv("XFORM_CIPHER", "chacha20")
	env, _, err := run(t, msg, "encrypt", "--key", testKeyHex)
	require.NoError(t, err)
	explicit, _, err := run(t, msg, "encrypt", "--key", testKeyHex, "--cipher", "chacha20")
	require.NoError(t, err)

	require.Equal(t, explicit, env)
	require.NotEqual(t, def, env)
}

func TestHash(t *testing.T) {
	out, _, err := run(t, []byte("abc"), "hash")
	require.NoError(t, err)
	require.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad  -\n", out)

	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(a, []byte("abc"), 0o600))
	out, _, err = run(t, nil, "hash", "--hash", "blake2b-256", a)
	require.NoError(t, err)
	require.Equal(t, "bddd813c634239723171ef3fee98579b94964e3bb1cb3e427262c8c068d52319  "+a+"\n", out)

	_, _, err = run(t, nil, "hash", "--hash", "md5", a)
	require.ErrorIs(t, err, errs.ErrUnknownAlgorithm)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "xform.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("hash: sha3-256\nlog-level: debug\n"), 0o600))

	out, _, err := run(t, []byte("abc"), "hash", "--config", cfg)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "3a985da74fe225b2045c172d6bd390bd855f086e3e9d525b46bfe24511431532"), out)

	_, _, err = run(t, nil, "hash", "--config", filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestLogLevel(t *testing.T) {
	_, stderr, err := run(t, nil, "selftest", "--log-level", "info", "--log-json")
	require.NoError(t, err)
	require.Contains(t, stderr, "self-test passed")

	_, _, err = run(t, nil, "selftest", "--log-level", "loud")
	require.Error(t, err)
}

func TestKeygenSignVerify(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "id")
	msgPath := filepath.Join(dir, "msg")
	require.NoError(t, os.WriteFile(msgPath, []byte("signed by the cli"), 0o600))

	for _, alg := range []string{"ed25519", "ecdsa", "ml-dsa-65"} {
		out, _, err := run(t, nil, "keygen", "--sign-alg", alg, "-o", keyPath)
		require.NoError(t, err, alg)
		require.Contains(t, out, alg+" ")

		sig, _, err := run(t, nil, "sign", "--signing-key", keyPath, msgPath)
		require.NoError(t, err, alg)
		sig = strings.TrimSpace(sig)

		out, _, err = run(t, nil, "verify", "--verifying-key", keyPath+".pub", "--signature", sig, msgPath)
		require.NoError(t, err, alg)
		require.True(t, strings.HasPrefix(out, "OK "+alg), out)

		_, _, err = run(t, []byte("something else"), "verify", "--verifying-key", keyPath+".pub", "--signature", sig)
		require.ErrorIs(t, err, ErrBadSignature, alg)
	}

	_, _, err := run(t, nil, "sign", msgPath)
	require.Error(t, err)
	_, _, err = run(t, nil, "verify", "--signature", "00", msgPath)
	require.Error(t, err)
}

func TestKeygenSeeded(t *testing.T) {
	seed := strings.Repeat("07", 32)
	a, _, err := run(t, nil, "keygen", "--seed", seed)
	require.NoError(t, err)
	b, _, err := run(t, nil, "keygen", "--seed", seed)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Contains(t, a, "signing-key: ")

	_, _, err = run(t, nil, "keygen", "--seed", "0707")
	require.ErrorIs(t, err, errs.ErrSeedTooShort)
	_, _, err = run(t, nil, "keygen", "--sign-alg", "rsa-pss-sha256", "--bits", "512")
	require.ErrorIs(t, err, errs.ErrKeySizeTooSmall)
}

func TestKAT(t *testing.T) {
	cases := []struct {
		file, kind, alg string
		flag            string
	}{
		{"aes_ctr.rsp", "cipher", "aes-ctr", "--cipher"},
		{"xsalsa20.rsp", "cipher", "xsalsa20", "--cipher"},
		{"chacha20.rsp", "cipher", "chacha20", "--cipher"},
		{"sha256_short.rsp", "hash", "sha256", "--hash"},
		{"sha256_monte.rsp", "monte", "sha256", "--hash"},
	}
	for _, tc := range cases {
		t.Run(tc.file, func(t *testing.T) {
			out, _, err := run(t, nil, "kat", "--kind", tc.kind, tc.flag, tc.alg, filepath.Join(katDir, tc.file))
			require.NoError(t, err)
			require.Contains(t, out, "vectors ok")
		})
	}

	// vectors for one cipher checked against another must fail the gate
	_, _, err := run(t, nil, "kat", "--kind", "cipher", "--cipher", "chacha20", filepath.Join(katDir, "xsalsa20.rsp"))
	require.ErrorIs(t, err, errs.ErrSelfTestFailure)

	_, _, err = run(t, nil, "kat", "--kind", "bogus", filepath.Join(katDir, "aes_ctr.rsp"))
	require.Error(t, err)
	_, _, err = run(t, nil, "kat", "--kind", "cipher", "--cipher", "rc4", filepath.Join(katDir, "aes_ctr.rsp"))
	require.ErrorIs(t, err, errs.ErrUnknownAlgorithm)
}

func TestSealOpen(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	sealed := filepath.Join(dir, "in.xfs")
	keyPath := filepath.Join(dir, "id")
	data := bytes.Repeat([]byte("0123456789abcdef"), 5000)
	require.NoError(t, os.WriteFile(in, data, 0o600))

	_, _, err := run(t, nil, "keygen", "-o", keyPath)
	require.NoError(t, err)

	_, _, err = run(t, nil, "seal", "--key", testKeyHex, "--chunk-size", "4096", "--compress", "fast",
		"--parity-shards", "2", "--signing-key", keyPath, "-o", sealed, in)
	require.NoError(t, err)

	out, _, err := run(t, nil, "open", "--key", testKeyHex, "--verifying-key", keyPath+".pub", sealed)
	require.NoError(t, err)
	require.Equal(t, string(data), out)

	wrong := bytes.Repeat([]byte{0xee}, 32)
	_, _, err = run(t, nil, "open", "--key", hex.EncodeToString(wrong), sealed)
	require.Error(t, err)

	_, _, err = run(t, nil, "seal", "--key", testKeyHex, "--compress", "extreme", in)
	require.Error(t, err)
	_, _, err = run(t, []byte("not sealed"), "open", "--key", testKeyHex)
	require.Error(t, err)
}
