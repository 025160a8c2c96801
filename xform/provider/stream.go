package provider

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"math/bits"

	chacha20pkg "golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/salsa20/salsa"

	"github.com/TheusHen/xform/xform/keymat"
)

// aesCTR is AES in counter mode with a 128-bit big-endian counter that
// starts at the IV and wraps modulo 2^128.
type aesCTR struct{}

func (aesCTR) Algorithm() StreamAlgorithm { return AESCTR }
func (aesCTR) KeySpec() keymat.Spec      { return keymat.OneOf("aes-ctr key", 16, 24, 32) }
func (aesCTR) IVSpec() keymat.Spec       { return keymat.Exact("aes-ctr iv", aes.BlockSize) }
func (aesCTR) BlockSize() int            { return aes.BlockSize }

func (aesCTR) NewKeystream(key, iv []byte) (Keystream, error) {
	b, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &aesKeystream{
		block: b,
		hi:    binary.BigEndian.Uint64(iv[:8]),
		lo:    binary.BigEndian.Uint64(iv[8:16]),
	}, nil
}

type aesKeystream struct {
	block  cipher.Block
	hi, lo uint64
}

func (k *aesKeystream) Block(dst []byte, index uint64) {
	var ctr [aes.BlockSize]byte
	lo, carry := bits.Add64(k.lo, index, 0)
	binary.BigEndian.PutUint64(ctr[:8], k.hi+carry)
	binary.BigEndian.PutUint64(ctr[8:], lo)
	k.block.Encrypt(dst, ctr[:])
}

const salsaBlockSize = 64

// xsalsa20Stream derives a subkey from the first 16 IV bytes with HSalsa20 and runs
// Salsa20 over the remaining 8 bytes with a 64-bit little-endian block counter.
type xsalsa20Stream struct{}

func (xsalsa20Stream) Algorithm() StreamAlgorithm { return XSalsa20 }
func (xsalsa20Stream) KeySpec() keymat.Spec      { return keymat.Exact("xsalsa20 key", 32) }
func (xsalsa20Stream) IVSpec() keymat.Spec       { return keymat.Exact("xsalsa20 iv", 24) }
func (xsalsa20Stream) BlockSize() int            { return salsaBlockSize }

func (xsalsa20Stream) NewKeystream(key, iv []byte) (Keystream, error) {
	var k [32]byte
	copy(k[:], key)
	var hNonce [16]byte
	copy(hNonce[:], iv[:16])

	ks := &xsalsaKeystream{}
	salsa.HSalsa20(&ks.subKey, &hNonce, &k, &salsa.Sigma)
	copy(ks.nonce[:], iv[16:24])
	return ks, nil
}

type xsalsaKeystream struct {
	subKey [32]byte
	nonce  [8]byte
}

func (k *xsalsaKeystream) Block(dst []byte, index uint64) {
	var counter [16]byte
	copy(counter[:8], k.nonce[:])
	binary.LittleEndian.PutUint64(counter[8:], index)
	out := dst[:salsaBlockSize]
	clear(out)
	salsa.XORKeyStream(out, out, &counter, &k.subKey)
}

// chacha20Stream is the original 20-round ChaCha with a 64-bit block counter and a
// 64-bit nonce. The IV is 24 bytes for interface compatibility with XSalsa20;
// only its first 8 bytes are used as the nonce.
//
// x/crypto implements the RFC 8439 layout (32-bit counter, 96-bit nonce). The
// two coincide when the first nonce word carries the high half of the block
// counter, which is how blocks past 2^32 are addressed here.
type chacha20Stream struct{}

func (chacha20Stream) Algorithm() StreamAlgorithm { return ChaCha20 }
func (chacha20Stream) KeySpec() keymat.Spec      { return keymat.Exact("chacha20 key", chacha20pkg.KeySize) }
func (chacha20Stream) IVSpec() keymat.Spec       { return keymat.Exact("chacha20 iv", 24) }
func (chacha20Stream) BlockSize() int            { return salsaBlockSize }

func (chacha20Stream) NewKeystream(key, iv []byte) (Keystream, error) {
	ks := &chachaKeystream{}
	copy(ks.key[:], key)
	copy(ks.nonce[4:], iv[:8])
	return ks, nil
}

type chachaKeystream struct {
	key   [32]byte
	nonce [chacha20pkg.NonceSize]byte
	c     *chacha20pkg.Cipher
	hi    uint32
	next  uint32
}

func (k *chachaKeystream) Block(dst []byte, index uint64) {
	hi, lo := uint32(index>>32), uint32(index)
	if k.c == nil || hi != k.hi || lo != k.next {
		binary.LittleEndian.PutUint32(k.nonce[:4], hi)
		c, err := chacha20pkg.NewUnauthenticatedCipher(k.key[:], k.nonce[:])
		if err != nil {
			// key and nonce sizes are fixed above
			panic("provider: chacha20: " + err.Error())
		}
		if lo != 0 {
			c.SetCounter(lo)
		}
		k.c, k.hi = c, hi
	}
	out := dst[:salsaBlockSize]
	clear(out)
	k.c.XORKeyStream(out, out)
	k.next = lo + 1
	if k.next == 0 {
		// the low word wrapped; the next block needs a new nonce word
		k.c = nil
	}
}
