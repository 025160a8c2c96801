// Package seal encrypts a blob into a self-describing sealed file.
//
// The input is split into fixed-size chunks, each optionally LZ4-compressed
// and hashed. A manifest of chunk hashes plus their Merkle root is encrypted
// together with the chunk data under one stream cipher. The ciphertext can
// be spread over Reed-Solomon shards so that lost or corrupted shards are
// recovered on open. A sealed file may carry a signature over its header.
//
// Chunk hashes detect corruption. They do not authenticate the content;
// use a signature for that.
package seal

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/TheusHen/xform/xform"
	"github.com/TheusHen/xform/xform/digest"
	"github.com/TheusHen/xform/xform/provider"
	"github.com/TheusHen/xform/xform/sign"
)

// DefaultChunkSize is the default chunk size (256 KB).
const DefaultChunkSize = 256 * 1024

var (
	ErrChunkMismatch = errors.New("seal: chunk hash mismatch")
	ErrRootMismatch  = errors.New("seal: merkle root mismatch")
	ErrShardMismatch = errors.New("seal: shard hash mismatch")
	ErrManifest      = errors.New("seal: malformed manifest")
	ErrUnsigned      = errors.New("seal: file is not signed")
)

// Options control Seal. The zero value selects XSalsa20, SHA-256, the
// default chunk size, no compression and no parity.
type Options struct {
	Cipher       provider.StreamAlgorithm
	Hash         provider.HashAlgorithm
	ChunkSize    int
	Compression  CompressionLevel
	DataShards   int
	ParityShards int
	// Signer, if set, signs the header.
	Signer *sign.SigningKey
}

func (o Options) withDefaults() Options {
	if o.Cipher == "" {
		o.Cipher = provider.XSalsa20
	}
	if o.Hash == "" {
		o.Hash = provider.SHA256
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.ParityShards > 0 && o.DataShards <= 0 {
		o.DataShards = 4
	}
	return o
}

// Header is the cleartext part of a sealed file.
type Header struct {
	Cipher       provider.StreamAlgorithm
	Hash         provider.HashAlgorithm
	ChunkSize    int
	PlainSize    uint64
	Nonce        []byte
	BodySize     uint64
	DataShards   int
	ParityShards int
	// ShardHashes holds one hash per shard, or a single hash of the body
	// when there is no parity.
	ShardHashes [][]byte
}

// Sealed is an encrypted file. Shards holds the body split into data and
// parity shards, or the whole body as a single shard. A nil shard is lost.
type Sealed struct {
	Header    Header
	Shards    [][]byte
	Signature []byte
	// SignatureAlgorithm is empty when Signature is nil.
	SignatureAlgorithm provider.SignAlgorithm
}

// Contents is the result of opening a sealed file.
type Contents struct {
	Data   []byte
	Chunks int
	Tree   *MerkleTree
	// Repaired counts shards that were missing or corrupt and rebuilt.
	Repaired int
}

type chunkEntry struct {
	compressed bool
	stored     int
	hash       []byte
}

// Seal encrypts data under key.
func Seal(lib *xform.Library, key, data []byte, opts Options) (*Sealed, error) {
	if err := lib.Check(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	sp, err := lib.Provider().Stream(opts.Cipher)
	if err != nil {
		return nil, err
	}
	ivSize, ok := sp.IVSpec().Size()
	if !ok {
		return nil, fmt.Errorf("seal: %s has no fixed iv size", opts.Cipher)
	}
	hp, err := lib.Provider().Hash(opts.Hash)
	if err != nil {
		return nil, err
	}

	var (
		entries []chunkEntry
		hashes  [][]byte
		payload bytes.Buffer
	)
	for off := 0; off < len(data) || off == 0; off += opts.ChunkSize {
		end := min(off+opts.ChunkSize, len(data))
		chunk := data[off:end]
		h, err := lib.NewHash(opts.Hash, chunk)
		if err != nil {
			return nil, err
		}
		sum := h.Digest()
		stored, compressed := packChunk(chunk, opts.Compression)
		entries = append(entries, chunkEntry{compressed: compressed, stored: len(stored), hash: sum})
		hashes = append(hashes, sum)
		payload.Write(stored)
		if len(data) == 0 {
			break
		}
	}
	tree, err := BuildMerkleTree(hp, hashes)
	if err != nil {
		return nil, err
	}

	body := append(encodeManifest(entries, tree.Root()), payload.Bytes()...)
	nonce := make([]byte, ivSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	c, err := lib.NewStream(opts.Cipher, key, nonce)
	if err != nil {
		return nil, err
	}
	c.XORKeyStream(body, body)

	s := &Sealed{Header: Header{
		Cipher:       opts.Cipher,
		Hash:         opts.Hash,
		ChunkSize:    opts.ChunkSize,
		PlainSize:    uint64(len(data)),
		Nonce:        nonce,
		BodySize:     uint64(len(body)),
		DataShards:   1,
		ParityShards: 0,
	}}
	if opts.ParityShards > 0 {
		codec, err := newShardCodec(opts.DataShards, opts.ParityShards)
		if err != nil {
			return nil, err
		}
		if s.Shards, err = codec.encode(body); err != nil {
			return nil, err
		}
		s.Header.DataShards, s.Header.ParityShards = opts.DataShards, opts.ParityShards
	} else {
		s.Shards = [][]byte{body}
	}
	for _, sh := range s.Shards {
		sum, err := digest.Sum(hp, sh)
		if err != nil {
			return nil, err
		}
		s.Header.ShardHashes = append(s.Header.ShardHashes, sum)
	}

	if opts.Signer != nil {
		if s.Signature, err = opts.Signer.Sign(s.Header.marshal()); err != nil {
			return nil, err
		}
		s.SignatureAlgorithm = opts.Signer.Algorithm()
	}
	lib.Logger().Debug("sealed", "bytes", len(data), "chunks", len(entries), "cipher", opts.Cipher, "shards", len(s.Shards))
	return s, nil
}

// Verify checks the header signature with vk. It fails with ErrUnsigned if
// the file carries no signature.
func (s *Sealed) Verify(vk *sign.VerifyingKey) error {
	if s.Signature == nil {
		return ErrUnsigned
	}
	if s.SignatureAlgorithm != vk.Algorithm() || !vk.Verify(s.Header.marshal(), s.Signature) {
		return fmt.Errorf("seal: signature does not verify under the %s key", vk.Algorithm())
	}
	return nil
}

// Open decrypts s with key, repairing lost or corrupt shards when parity
// allows, and checks every chunk against its hash and the Merkle root.
func Open(lib *xform.Library, key []byte, s *Sealed) (*Contents, error) {
	if err := lib.Check(); err != nil {
		return nil, err
	}
	hd := s.Header
	hp, err := lib.Provider().Hash(hd.Hash)
	if err != nil {
		return nil, err
	}
	if len(hd.ShardHashes) != hd.DataShards+hd.ParityShards || len(s.Shards) != len(hd.ShardHashes) {
		return nil, fmt.Errorf("%w: %d shards, header lists %d", ErrManifest, len(s.Shards), len(hd.ShardHashes))
	}

	shards := make([][]byte, len(s.Shards))
	repaired := 0
	for i, sh := range s.Shards {
		if sh != nil {
			sum, err := digest.Sum(hp, sh)
			if err != nil {
				return nil, err
			}
			if bytes.Equal(sum, hd.ShardHashes[i]) {
				shards[i] = bytes.Clone(sh)
				continue
			}
		}
		repaired++
	}

	var body []byte
	if hd.ParityShards > 0 {
		codec, err := newShardCodec(hd.DataShards, hd.ParityShards)
		if err != nil {
			return nil, err
		}
		if err := codec.reconstruct(shards); err != nil {
			return nil, err
		}
		// the header is not covered by the shard hashes, so BodySize is
		// checked against what is actually present before sizing anything
		if avail := codec.dataLen(shards); hd.BodySize > uint64(avail) {
			return nil, fmt.Errorf("%w: header says %d body bytes, shards hold %d", ErrManifest, hd.BodySize, avail)
		}
		body = codec.join(shards, int(hd.BodySize))
	} else {
		if shards[0] == nil {
			return nil, ErrShardMismatch
		}
		body = shards[0]
	}
	if uint64(len(body)) != hd.BodySize {
		return nil, fmt.Errorf("%w: body is %d bytes, header says %d", ErrManifest, len(body), hd.BodySize)
	}

	c, err := lib.NewStream(hd.Cipher, key, hd.Nonce)
	if err != nil {
		return nil, err
	}
	c.XORKeyStream(body, body)

	entries, root, payload, err := decodeManifest(body, hp.Size())
	if err != nil {
		return nil, err
	}
	data := make([]byte, 0, len(payload))
	hashes := make([][]byte, len(entries))
	for i, e := range entries {
		stored := payload[:e.stored]
		payload = payload[e.stored:]
		chunk := stored
		if e.compressed {
			if chunk, err = decompress(stored, hd.ChunkSize); err != nil {
				return nil, fmt.Errorf("chunk %d: %w", i, err)
			}
		}
		h, err := lib.NewHash(hd.Hash, chunk)
		if err != nil {
			return nil, err
		}
		if hashes[i] = h.Digest(); !bytes.Equal(hashes[i], e.hash) {
			return nil, fmt.Errorf("%w: chunk %d", ErrChunkMismatch, i)
		}
		data = append(data, chunk...)
	}
	if len(payload) != 0 || uint64(len(data)) != hd.PlainSize {
		return nil, fmt.Errorf("%w: %d bytes decoded, header says %d", ErrManifest, len(data), hd.PlainSize)
	}
	tree, err := BuildMerkleTree(hp, hashes)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(tree.Root(), root) {
		return nil, ErrRootMismatch
	}
	if repaired > 0 {
		lib.Logger().Info("repaired sealed file", "shards", repaired)
	}
	return &Contents{Data: data, Chunks: len(entries), Tree: tree, Repaired: repaired}, nil
}

// manifest layout:
//
//	4 bytes: chunk count (big endian)
//	per chunk: 1 byte flags, 4 bytes stored length, hash
//	hash: merkle root
func encodeManifest(entries []chunkEntry, root []byte) []byte {
	var b []byte
	b = binary.BigEndian.AppendUint32(b, uint32(len(entries)))
	for _, e := range entries {
		var flags byte
		if e.compressed {
			flags = 1
		}
		b = append(b, flags)
		b = binary.BigEndian.AppendUint32(b, uint32(e.stored))
		b = append(b, e.hash...)
	}
	return append(b, root...)
}

func decodeManifest(b []byte, hashSize int) ([]chunkEntry, []byte, []byte, error) {
	if len(b) < 4 {
		return nil, nil, nil, ErrManifest
	}
	n := int(binary.BigEndian.Uint32(b))
	b = b[4:]
	per := 5 + hashSize
	if n == 0 || n > len(b)/per {
		return nil, nil, nil, fmt.Errorf("%w: %d chunks", ErrManifest, n)
	}
	entries := make([]chunkEntry, n)
	total := 0
	for i := range entries {
		e := b[i*per : (i+1)*per]
		entries[i] = chunkEntry{
			compressed: e[0]&1 != 0,
			stored:     int(binary.BigEndian.Uint32(e[1:5])),
			hash:       e[5:],
		}
		total += entries[i].stored
	}
	b = b[n*per:]
	if len(b) < hashSize || len(b)-hashSize != total {
		return nil, nil, nil, fmt.Errorf("%w: payload size", ErrManifest)
	}
	return entries, b[:hashSize], b[hashSize:], nil
}
