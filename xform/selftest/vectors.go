package selftest

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/TheusHen/xform/xform/digest"
	"github.com/TheusHen/xform/xform/errs"
	"github.com/TheusHen/xform/xform/provider"
	"github.com/TheusHen/xform/xform/sign"
	"github.com/TheusHen/xform/xform/stream"
)

// Vector is one known-answer check. Check returns nil on a bit-exact match.
type Vector struct {
	Name  string
	Check func(p provider.Provider) error
}

// errSkipped marks a vector whose algorithm the provider does not offer.
var errSkipped = errors.New("selftest: algorithm not provided")

const powerupMsg = "crypto libraries should always test themselves at powerup"

func unhex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic("selftest: bad vector constant: " + err.Error())
	}
	return b
}

func expect(what string, got, want []byte) error {
	if !bytes.Equal(got, want) {
		return fmt.Errorf("%s: got %x, want %x", what, got, want)
	}
	return nil
}

func lookupStream(p provider.Provider, alg provider.StreamAlgorithm) (provider.StreamPrimitive, error) {
	sp, err := p.Stream(alg)
	if errors.Is(err, errs.ErrUnknownAlgorithm) {
		return nil, errSkipped
	}
	return sp, err
}

func lookupHash(p provider.Provider, alg provider.HashAlgorithm) (provider.HashPrimitive, error) {
	hp, err := p.Hash(alg)
	if errors.Is(err, errs.ErrUnknownAlgorithm) {
		return nil, errSkipped
	}
	return hp, err
}

func lookupSignature(p provider.Provider, alg provider.SignAlgorithm) (provider.SignPrimitive, error) {
	sp, err := p.Signature(alg)
	if errors.Is(err, errs.ErrUnknownAlgorithm) {
		return nil, errSkipped
	}
	return sp, err
}

// processChunks runs data through a fresh cipher in chunks of the given
// sizes. Sizes past the end of data yield empty chunks.
func processChunks(sp provider.StreamPrimitive, key, iv, data []byte, sizes ...int) ([]byte, error) {
	c, err := stream.New(sp, key, iv)
	if err != nil {
		return nil, err
	}
	if len(sizes) == 0 {
		return c.Process(data), nil
	}
	var out []byte
	for _, n := range sizes {
		n = min(n, len(data))
		out = append(out, c.Process(data[:n])...)
		data = data[n:]
	}
	return append(out, c.Process(data)...), nil
}

// DefaultVectors returns the power-up vectors run by a gate unless
// WithVectors overrides them.
func DefaultVectors() []Vector {
	return []Vector{
		{"aes-256-ctr zero", aesZero(32, "dc95c078a2408989ad48a21492842087530f8afbc74536b9a963b4f1c4cb738b", 15, 17)},
		{"aes-128-ctr zero", aesZero(16, "66e94bd4ef8a2c3b884cfa59ca342b2e", 8, 8)},
		{"aes-128 monte carlo", aesMonteCarlo(16, "bd883f01035e58f42f9d812f2dacbcd8")},
		{"aes-256 monte carlo", aesMonteCarlo(32, "c84b0f3a2c76dd9871900b07f09bdd3e")},
		{"xsalsa20 powerup", powerup(provider.XSalsa20, "23a8ed0475150e988c545b11e3660de78bf88e6628c4c99ba36330c05cb919e7901295db479c9a8a0401d5e040b8919b7d64b2f728c59703c3")},
		{"chacha20 powerup", powerup(provider.ChaCha20, "6c845801d0df33d8aa5ad8c8ff3ebfd59ab66b64f2157e8c6521e0c34ef0f233baf02fa7a2c289d1b725905667696ac9ba966d72b2d6cac601")},
		{"xsalsa20 zero 139", xsalsaZero139},
		{"sha256 empty", sha256Empty},
		{"sha256 recursive", sha256Recursive},
		{"sha3-256 empty", hashKnownAnswer(provider.SHA3_256, nil, nil, "a7ffc6f8bf1ed76651c14756a061d662f580ff4de43b49fa82d80a4b80f8434a")},
		{"sha3-256 powerup", hashKnownAnswer(provider.SHA3_256, nil, []byte(powerupMsg), "cf8b5f8cca82a93bbe3772632f34d05215d5b33d06767fee957d2ccbc4fc6f4d", 1, 20, 7)},
		{"blake2b-256 keyed", hashKnownAnswer(provider.BLAKE2b256, counting(64), counting(255), "fe7b76a61787c089141f9e10fca1e5092488d89c62ea793fb2c5b1f849b4f2cb", 1, 127, 128)},
		{"blake2b-256 keyed powerup", hashKnownAnswer(provider.BLAKE2b256, counting(32), []byte(powerupMsg), "110f9e8d016f4f6a57dc9d0bc4dc8c7523179010fc563d22d576a7cb36e5520c", 33)},
		{"ed25519 known answer", ed25519KnownAnswer},
		{"ecdsa pairwise", pairwise(provider.ECDSA, 32)},
		{"ml-dsa-65 pairwise", pairwise(provider.MLDSA65, 32)},
		{"rsa-pss fixed key", rsaPSSFixedKey},
	}
}

func aesZero(keyLen int, want string, split ...int) func(provider.Provider) error {
	return func(p provider.Provider) error {
		sp, err := lookupStream(p, provider.AESCTR)
		if err != nil {
			return err
		}
		w := unhex(want)
		key := make([]byte, keyLen)
		got, err := processChunks(sp, key, nil, make([]byte, len(w)))
		if err != nil {
			return err
		}
		if err := expect("one shot", got, w); err != nil {
			return err
		}
		got, err = processChunks(sp, key, nil, make([]byte, len(w)), split...)
		if err != nil {
			return err
		}
		return expect(fmt.Sprintf("split %v", split), got, w)
	}
}

// aesMonteCarlo chains 1000 double encryptions, using CTR mode with the
// plaintext as IV over a zero block as a stand-in for ECB.
func aesMonteCarlo(keyLen int, want string) func(provider.Provider) error {
	return func(p provider.Provider) error {
		sp, err := lookupStream(p, provider.AESCTR)
		if err != nil {
			return err
		}
		const b = 16
		ecb := func(k, pt []byte) ([]byte, error) {
			return processChunks(sp, k, pt, make([]byte, b))
		}
		s := make([]byte, keyLen+b)
		for i := 0; i < 1000; i++ {
			k := s[len(s)-keyLen:]
			pt := s[len(s)-keyLen-b : len(s)-keyLen]
			c, err := ecb(k, pt)
			if err != nil {
				return err
			}
			if c, err = ecb(k, c); err != nil {
				return err
			}
			s = append(s[b:], c...)
		}
		return expect("final block", s[len(s)-b:], unhex(want))
	}
}

var (
	powerupKey = unhex("ad5eadf7163b0d36e44c126037a03419fcda2b3a1bb4ab064b6070e61b0fa5ca")
	powerupIV  = unhex("6a059adb8c7d4acb1c537767d541506fc5ef0ace9a2a65bd")
)

func powerup(alg provider.StreamAlgorithm, ciphertext string) func(provider.Provider) error {
	return func(p provider.Provider) error {
		sp, err := lookupStream(p, alg)
		if err != nil {
			return err
		}
		ct := unhex(ciphertext)
		got, err := processChunks(sp, powerupKey, powerupIV, ct)
		if err != nil {
			return err
		}
		if err := expect("one shot", got, []byte(powerupMsg)); err != nil {
			return err
		}
		got, err = processChunks(sp, powerupKey, powerupIV, ct, 13, 11, 1, 2, 3, 20, 999)
		if err != nil {
			return err
		}
		return expect("chunked", got, []byte(powerupMsg))
	}
}

func xsalsaZero139(p provider.Provider) error {
	sp, err := lookupStream(p, provider.XSalsa20)
	if err != nil {
		return err
	}
	key := unhex("1b27556473e985d462cd51197a9a46c76009549eac6474f206c4ee0844f68389")
	iv := unhex("69696ee955b62b73cd62bda875fc73d68219e0036b7a0b37")
	got, err := processChunks(sp, key, iv, make([]byte, 139), 69, 69, 1)
	if err != nil {
		return err
	}
	return expect("69+69+1", got, unhex("eea6a7251c1e72916d11c2cb214d3c252539121d8e234e652d651fa4c8cff880309e645a74e9e0a60d8243acd9177ab51a1beb8d5a2f5d700c093c5e5585579625337bd3ab619d615760d8c5b224a85b1d0efe0eb8a7ee163abb0376529fcc09bab506c618e13ce777d82c3ae9d1a6f972d4160287cbfe60bf2130fc0a6ff6049d0a5c8a82f429231f0080"))
}

// counting returns the bytes 0, 1, ..., n-1.
func counting(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

// hashKnownAnswer checks msg in one update, then again fed in the given
// split sizes with the remainder last.
func hashKnownAnswer(alg provider.HashAlgorithm, key, msg []byte, want string, split ...int) func(provider.Provider) error {
	return func(p provider.Provider) error {
		hp, err := lookupHash(p, alg)
		if err != nil {
			return err
		}
		w := unhex(want)
		d, err := digest.NewKeyed(hp, key, msg)
		if err != nil {
			return err
		}
		if err := expect("one shot", d.Digest(), w); err != nil {
			return err
		}
		if d, err = digest.NewKeyed(hp, key, nil); err != nil {
			return err
		}
		rest := msg
		for _, n := range split {
			n = min(n, len(rest))
			if err := d.Update(rest[:n]); err != nil {
				return err
			}
			rest = rest[n:]
		}
		if err := d.Update(rest); err != nil {
			return err
		}
		return expect(fmt.Sprintf("split %v", split), d.Digest(), w)
	}
}

func sha256Empty(p provider.Provider) error {
	hp, err := lookupHash(p, provider.SHA256)
	if err != nil {
		return err
	}
	got, err := digest.Sum(hp, nil)
	if err != nil {
		return err
	}
	return expect("empty", got, unhex("e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"))
}

// sha256Recursive hashes digests of every prefix of a 65-byte string, then
// a run of odd-sized updates, so that finalization after many different
// buffer fill levels feeds one result.
func sha256Recursive(p provider.Provider) error {
	hp, err := lookupHash(p, provider.SHA256)
	if err != nil {
		return err
	}
	s := counting(65)
	hx, err := digest.New(hp, nil)
	if err != nil {
		return err
	}
	for i := 0; i <= 64; i++ {
		hy, err := digest.Sum(hp, s[:i])
		if err != nil {
			return err
		}
		if err := hx.Update(hy); err != nil {
			return err
		}
	}
	for i := 0; i <= 64; i++ {
		if err := hx.Update([]byte{0xfe}); err != nil {
			return err
		}
		if err := hx.Update(s[:64]); err != nil {
			return err
		}
	}
	if err := expect("recursive", hx.Digest(), unhex("5191c7841dd4e16aa454d40af924585dffc67157ffdbfd0236acddd07901629d")); err != nil {
		return err
	}
	// the cached digest must survive a second call
	return expect("second digest", hx.Digest(), unhex("5191c7841dd4e16aa454d40af924585dffc67157ffdbfd0236acddd07901629d"))
}

func ed25519KnownAnswer(p provider.Provider) error {
	sp, err := lookupSignature(p, provider.Ed25519)
	if err != nil {
		return err
	}
	sk, err := sign.Generate(sp, 0, unhex("548b1f9f938519ad3d527d8c47a1e6ec1439fbec61710b245363865c6f234899"))
	if err != nil {
		return err
	}
	vkb, err := sk.VerifyingKey().Marshal()
	if err != nil {
		return err
	}
	vk, err := sign.UnmarshalVerifyingKey(p, vkb)
	if err != nil {
		return err
	}
	if err := expect("verifying key", vkb[len(vkb)-32:], unhex("787162d9ad1ad571237681560c1ad653fb7df9e09e637e6a8072e4520fd288ca")); err != nil {
		return err
	}
	sig, err := sk.Sign([]byte(powerupMsg))
	if err != nil {
		return err
	}
	if err := expect("signature", sig, unhex("13f42bc2d485e76c7cfaad25e1a840ede25b44a73befb0a528d836d7b434cf87e260c09d980388fab4cb564885857ea4dc3fb04107ca74960cc5a4d415fbf50d")); err != nil {
		return err
	}
	if !vk.Verify([]byte(powerupMsg), sig) {
		return errors.New("valid signature rejected")
	}
	sig[63] ^= 0x80
	if vk.Verify([]byte(powerupMsg), sig) {
		return errors.New("tampered signature accepted")
	}
	return nil
}

// rsaPSSKey is a fixed 1024-bit PKCS#1 key and rsaPSSSignature a PSS
// signature (SHA-256, MGF1-SHA-256, 32-byte salt) of powerupMsg made by an
// independent implementation with it.
var (
	rsaPSSKey       = unhex("3082025d02010002818100e4fc0226eb1e96ed1aa19ba9a2be89ce3bc09d99523ef7ba29a38c2744e305068b600a8992d6296ae463350372040754b81ff030db3367940780d0d1bce7e794e657675e933a452f34e8d01b1ab819658c836d2cd1f2a43f3fb0cf79216ba5f89e293cc1a85292b6f5a6b7ce06d7df98a3adda1f803ee5342ddd1ab3859a5767020301000102818100aeaac8dd75060d6c699f12c5503df5925a23f0538ed837514b07d515f34714834c77833233cea7234179a76bac6204518c6dd862fc21f70584bfaf09fe060bb028a07f3cfd323b6cfdf4c21c866ae5e20dbfc651cd99847cbfab1f8149e2374331ea0fbd80109240ef2e22a019d6dcd727ae08588fd846866804691a33e670b9024100f6aa5061b3489c31ce4921e9161efefb62c9d9dfa8be649d994458053a2a6b71ae5d4a261c10f743a7e2fee48ad2aa88e23f4669a122722c6c01739d8fdf36b5024100eda6670e585b305aeacd17aa1882db3a573077ad1b618edb19d5a642cfebda13da738c070d69224d5b031300d2bf9af7c19c36ea91e8b0b6a39ac3ce4ed4eb2b02410093f5f5e1a53998f80755b711aa434d905de1d6df62c9527176ce983e0a76079d598a7c3ffff5ed5c980881fd758888e33353e158db5f5e3d674c379dfbff594102400873e1b87de6086b436cb609c3c36bbec07925d88f5fc1f00314394ca90e8f7c2349f6d20d650ee647756d889af65bb1b23e3729d2b4bf0c4ff7623d854a476f02406c6f5fe965c744d1223a989426d0f3b45f3ae8d73fa7f55eb0292e12511ada9e2cfa6ce5047bc73b9d30d44416ea590dc828d88bfa84b26ca0ac44c7ecb3d424")
	rsaPSSSignature = unhex("d074bb0eec6fd7dcd23417d540af2cdaceeeecba86739e045b2d20ab8dd114900cbccb19409f2c356da9150b0e60047fe2f16171ef3e5c4f77775e556d6576787fffac50b009da3896e3c07d0b16e0d2162073272833dcc607d8e965234465f9f315b1a09bbe2ab7d72ea7cadcb98de83557984c4e428ab994bd39513c9dc4eb")
)

// rsaPSSFixedKey parses the fixed key, checks that the reference signature
// verifies, then signs, verifies and tampers. PSS signatures are salted, so
// the fresh one cannot be compared byte for byte.
func rsaPSSFixedKey(p provider.Provider) error {
	sp, err := lookupSignature(p, provider.RSAPSS)
	if err != nil {
		return err
	}
	sk, err := sp.ParseSigningKey(rsaPSSKey)
	if err != nil {
		return err
	}
	if sk.Bits() != 1024 {
		return fmt.Errorf("key size: got %d bits, want 1024", sk.Bits())
	}
	vkb, err := sk.Public().MarshalBinary()
	if err != nil {
		return err
	}
	vk, err := sp.ParseVerifyingKey(vkb)
	if err != nil {
		return err
	}
	msg := []byte(powerupMsg)
	if !vk.Verify(msg, rsaPSSSignature) {
		return errors.New("reference signature rejected")
	}
	sig, err := sk.Sign(msg)
	if err != nil {
		return err
	}
	if len(sig) != sp.SignatureSize(1024) {
		return fmt.Errorf("signature size: got %d, want %d", len(sig), sp.SignatureSize(1024))
	}
	if !vk.Verify(msg, sig) {
		return errors.New("valid signature rejected")
	}
	sig[len(sig)/2] ^= 1
	if vk.Verify(msg, sig) {
		return errors.New("tampered signature accepted")
	}
	if vk.Verify(msg[1:], rsaPSSSignature) {
		return errors.New("signature accepted for another message")
	}
	return nil
}

// pairwise signs with a seed-derived key and checks that the signature
// verifies and that a tampered signature does not.
func pairwise(alg provider.SignAlgorithm, seedLen int) func(provider.Provider) error {
	return func(p provider.Provider) error {
		sp, err := lookupSignature(p, alg)
		if err != nil {
			return err
		}
		sk, err := sign.Generate(sp, 0, bytes.Repeat([]byte{0x5a}, seedLen))
		if err != nil {
			return err
		}
		sig, err := sk.Sign([]byte(powerupMsg))
		if err != nil {
			return err
		}
		vk := sk.VerifyingKey()
		if !vk.Verify([]byte(powerupMsg), sig) {
			return errors.New("valid signature rejected")
		}
		sig[0] ^= 1
		if vk.Verify([]byte(powerupMsg), sig) {
			return errors.New("tampered signature accepted")
		}
		return nil
	}
}
