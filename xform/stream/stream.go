// Package stream turns a provider keystream into an incremental stream
// cipher. Output depends only on the total byte position, never on how the
// input was split into chunks.
package stream

import (
	"crypto/cipher"
	"io"

	"github.com/TheusHen/xform/xform/provider"
)

// Cipher is a keyed stream cipher instance. It is not safe for concurrent use.
type Cipher struct {
	alg       provider.StreamAlgorithm
	ks        provider.Keystream
	blockSize int

	pos uint64
	buf []byte // keystream block containing pos, valid when bufOK
	// index of the block held in buf
	bufIdx uint64
	bufOK  bool
}

var _ cipher.Stream = (*Cipher)(nil)

// New validates key and iv against p and returns a cipher at position 0.
// A nil iv selects the all-zero IV.
func New(p provider.StreamPrimitive, key, iv []byte) (*Cipher, error) {
	k, err := p.KeySpec().Key(key)
	if err != nil {
		return nil, err
	}
	v, err := p.IVSpec().IV(iv)
	if err != nil {
		return nil, err
	}
	ks, err := p.NewKeystream(k, v)
	if err != nil {
		return nil, err
	}
	return &Cipher{
		alg:       p.Algorithm(),
		ks:        ks,
		blockSize: p.BlockSize(),
		buf:       make([]byte, p.BlockSize()),
	}, nil
}

func (c *Cipher) Algorithm() provider.StreamAlgorithm { return c.alg }

// Position is the number of bytes processed so far.
func (c *Cipher) Position() uint64 { return c.pos }

// Process returns chunk XORed with the keystream at the current position and
// advances the position by len(chunk). chunk is not modified.
func (c *Cipher) Process(chunk []byte) []byte {
	out := make([]byte, len(chunk))
	c.XORKeyStream(out, chunk)
	return out
}

// XORKeyStream implements cipher.Stream. dst and src may overlap entirely.
func (c *Cipher) XORKeyStream(dst, src []byte) {
	if len(dst) < len(src) {
		panic("stream: output smaller than input")
	}
	bs := uint64(c.blockSize)
	for len(src) > 0 {
		idx, off := c.pos/bs, int(c.pos%bs)
		if !c.bufOK || c.bufIdx != idx {
			c.ks.Block(c.buf, idx)
			c.bufIdx, c.bufOK = idx, true
		}
		n := min(len(src), c.blockSize-off)
		ks := c.buf[off : off+n]
		for i := range n {
			dst[i] = src[i] ^ ks[i]
		}
		dst, src = dst[n:], src[n:]
		c.pos += uint64(n)
	}
}

// NewReader decrypts (or encrypts) everything read from r.
func NewReader(r io.Reader, c *Cipher) io.Reader {
	return cipher.StreamReader{S: c, R: r}
}

// NewWriter encrypts (or decrypts) everything written to w. Closing the
// returned writer closes w if it is an io.Closer.
func NewWriter(w io.Writer, c *Cipher) io.WriteCloser {
	return cipher.StreamWriter{S: c, W: w}
}
