package seal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/TheusHen/xform/xform/provider"
)

const (
	magic   = "XFS1"
	version = 1

	// MaxFramePayload limits a single frame of a sealed file.
	MaxFramePayload = 1 << 30
)

var (
	ErrBadMagic      = errors.New("seal: not a sealed file")
	ErrBadVersion    = errors.New("seal: unsupported version")
	ErrFrameTooLarge = errors.New("seal: frame payload too large")
	ErrInvalidFrame  = errors.New("seal: invalid frame")
)

type frameType byte

const (
	frameHeader    frameType = 0x01
	frameShard     frameType = 0x02
	frameSignature frameType = 0x03
)

// Encode writes s as a sequence of frames:
//
//	1 byte: type
//	4 bytes: payload length (big endian)
//	N bytes: payload
//
// The header frame comes first, then one frame per present shard, then an
// optional signature frame. Lost (nil) shards are omitted.
func (s *Sealed) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := writeFrame(bw, frameHeader, s.Header.marshal()); err != nil {
		return err
	}
	for i, sh := range s.Shards {
		if sh == nil {
			continue
		}
		payload := binary.BigEndian.AppendUint16(make([]byte, 0, 2+len(sh)), uint16(i))
		if err := writeFrame(bw, frameShard, append(payload, sh...)); err != nil {
			return err
		}
	}
	if s.Signature != nil {
		payload := appendString(nil, string(s.SignatureAlgorithm))
		if err := writeFrame(bw, frameSignature, append(payload, s.Signature...)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Decode reads a sealed file written by Encode. Shards absent from the
// stream are left nil so that Open can rebuild them.
func Decode(r io.Reader) (*Sealed, error) {
	br := bufio.NewReader(r)
	t, payload, err := readFrame(br)
	if err != nil {
		return nil, err
	}
	if t != frameHeader {
		return nil, fmt.Errorf("%w: first frame is 0x%02x", ErrInvalidFrame, byte(t))
	}
	hd, err := unmarshalHeader(payload)
	if err != nil {
		return nil, err
	}
	s := &Sealed{Header: hd, Shards: make([][]byte, len(hd.ShardHashes))}
	for {
		t, payload, err := readFrame(br)
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		if err != nil {
			return nil, err
		}
		switch t {
		case frameShard:
			if len(payload) < 2 {
				return nil, ErrInvalidFrame
			}
			i := int(binary.BigEndian.Uint16(payload))
			if i >= len(s.Shards) || s.Shards[i] != nil {
				return nil, fmt.Errorf("%w: shard %d", ErrInvalidFrame, i)
			}
			s.Shards[i] = payload[2:]
		case frameSignature:
			alg, rest, err := readString(payload)
			if err != nil || s.Signature != nil || len(rest) == 0 {
				return nil, fmt.Errorf("%w: signature", ErrInvalidFrame)
			}
			s.SignatureAlgorithm, s.Signature = provider.SignAlgorithm(alg), rest
		default:
			return nil, fmt.Errorf("%w: type 0x%02x", ErrInvalidFrame, byte(t))
		}
	}
}

func writeFrame(w *bufio.Writer, t frameType, payload []byte) error {
	if len(payload) > MaxFramePayload {
		return ErrFrameTooLarge
	}
	if err := w.WriteByte(byte(t)); err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// readFrame returns io.EOF only at a clean frame boundary.
func readFrame(r *bufio.Reader) (frameType, []byte, error) {
	t, err := r.ReadByte()
	if err != nil {
		return 0, nil, err
	}
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return 0, nil, unexpected(err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxFramePayload {
		return 0, nil, fmt.Errorf("%w: %d", ErrFrameTooLarge, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, unexpected(err)
	}
	return frameType(t), payload, nil
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// header layout:
//
//	4 bytes: magic "XFS1"
//	1 byte: version
//	string: cipher, string: hash (1 byte length prefix)
//	4 bytes: chunk size
//	8 bytes: plain size
//	string: nonce
//	8 bytes: body size
//	2 bytes: data shards, 2 bytes: parity shards
//	1 byte: shard hash size, then data+parity hashes
func (h Header) marshal() []byte {
	b := append([]byte(magic), version)
	b = appendString(b, string(h.Cipher))
	b = appendString(b, string(h.Hash))
	b = binary.BigEndian.AppendUint32(b, uint32(h.ChunkSize))
	b = binary.BigEndian.AppendUint64(b, h.PlainSize)
	b = appendString(b, string(h.Nonce))
	b = binary.BigEndian.AppendUint64(b, h.BodySize)
	b = binary.BigEndian.AppendUint16(b, uint16(h.DataShards))
	b = binary.BigEndian.AppendUint16(b, uint16(h.ParityShards))
	var size int
	if len(h.ShardHashes) > 0 {
		size = len(h.ShardHashes[0])
	}
	b = append(b, byte(size))
	for _, sh := range h.ShardHashes {
		b = append(b, sh...)
	}
	return b
}

func unmarshalHeader(b []byte) (Header, error) {
	var h Header
	if len(b) < len(magic)+1 || string(b[:len(magic)]) != magic {
		return h, ErrBadMagic
	}
	if b[len(magic)] != version {
		return h, fmt.Errorf("%w: %d", ErrBadVersion, b[len(magic)])
	}
	b = b[len(magic)+1:]

	cipher, b, err := readString(b)
	if err != nil {
		return h, err
	}
	hash, b, err := readString(b)
	if err != nil {
		return h, err
	}
	if len(b) < 12 {
		return h, ErrInvalidFrame
	}
	h.Cipher, h.Hash = provider.StreamAlgorithm(cipher), provider.HashAlgorithm(hash)
	h.ChunkSize = int(binary.BigEndian.Uint32(b))
	h.PlainSize = binary.BigEndian.Uint64(b[4:])
	nonce, b, err := readString(b[12:])
	if err != nil {
		return h, err
	}
	h.Nonce = []byte(nonce)
	if len(b) < 13 {
		return h, ErrInvalidFrame
	}
	h.BodySize = binary.BigEndian.Uint64(b)
	h.DataShards = int(binary.BigEndian.Uint16(b[8:]))
	h.ParityShards = int(binary.BigEndian.Uint16(b[10:]))
	size := int(b[12])
	b = b[13:]
	n := h.DataShards + h.ParityShards
	if h.DataShards == 0 || n > MaxShards || size == 0 || len(b) != n*size {
		return h, fmt.Errorf("%w: shard table", ErrInvalidFrame)
	}
	for i := 0; i < n; i++ {
		h.ShardHashes = append(h.ShardHashes, b[i*size:(i+1)*size])
	}
	return h, nil
}

func appendString(b []byte, s string) []byte {
	return append(append(b, byte(len(s))), s...)
}

func readString(b []byte) (string, []byte, error) {
	if len(b) < 1 || len(b) < 1+int(b[0]) {
		return "", nil, ErrInvalidFrame
	}
	n := int(b[0])
	return string(b[1 : 1+n]), b[1+n:], nil
}
