package seal

import (
	"bytes"
	"encoding/hex"
	"errors"

	"github.com/TheusHen/xform/xform/digest"
	"github.com/TheusHen/xform/xform/provider"
)

var (
	ErrMerkleEmpty      = errors.New("seal: merkle: no chunks provided")
	ErrMerkleProofFail  = errors.New("seal: merkle: proof verification failed")
	ErrMerkleIndexRange = errors.New("seal: merkle: chunk index out of range")
)

// MerkleTree commits to the ordered chunk hashes of a sealed file so that a
// single chunk can be checked against the root without the others.
type MerkleTree struct {
	h      provider.HashPrimitive
	count  int      // real leaves before padding
	nodes  [][]byte // complete binary tree, root at 0, leaves at the end
	leaves int      // padded leaf count, a power of two
}

// BuildMerkleTree builds a tree over chunkHashes with h. The leaf level is
// padded to a power of two with the hash of the empty string.
func BuildMerkleTree(h provider.HashPrimitive, chunkHashes [][]byte) (*MerkleTree, error) {
	if len(chunkHashes) == 0 {
		return nil, ErrMerkleEmpty
	}
	n := 1
	for n < len(chunkHashes) {
		n *= 2
	}
	pad, err := digest.Sum(h, nil)
	if err != nil {
		return nil, err
	}
	nodes := make([][]byte, 2*n-1)
	for i := 0; i < n; i++ {
		if i < len(chunkHashes) {
			nodes[n-1+i] = chunkHashes[i]
		} else {
			nodes[n-1+i] = pad
		}
	}
	for i := n - 2; i >= 0; i-- {
		if nodes[i], err = hashPair(h, nodes[2*i+1], nodes[2*i+2]); err != nil {
			return nil, err
		}
	}
	return &MerkleTree{h: h, count: len(chunkHashes), nodes: nodes, leaves: n}, nil
}

func hashPair(h provider.HashPrimitive, left, right []byte) ([]byte, error) {
	d, err := digest.New(h, left)
	if err != nil {
		return nil, err
	}
	if err := d.Update(right); err != nil {
		return nil, err
	}
	return d.Digest(), nil
}

func (m *MerkleTree) Root() []byte    { return bytes.Clone(m.nodes[0]) }
func (m *MerkleTree) RootHex() string { return hex.EncodeToString(m.nodes[0]) }

// Len is the number of chunks the tree commits to.
func (m *MerkleTree) Len() int { return m.count }

// Proof carries the sibling hashes from a chunk's leaf up to the root.
type Proof struct {
	ChunkIndex int
	ChunkHash  []byte
	Siblings   [][]byte
	IsLeft     []bool // true if the sibling is on the left
}

func (m *MerkleTree) GenerateProof(chunkIndex int) (Proof, error) {
	if chunkIndex < 0 || chunkIndex >= m.count {
		return Proof{}, ErrMerkleIndexRange
	}
	p := Proof{ChunkIndex: chunkIndex, ChunkHash: bytes.Clone(m.nodes[m.leaves-1+chunkIndex])}
	for idx := m.leaves - 1 + chunkIndex; idx > 0; idx = (idx - 1) / 2 {
		sibling := idx + 1
		if idx%2 == 0 {
			sibling = idx - 1
		}
		p.Siblings = append(p.Siblings, m.nodes[sibling])
		p.IsLeft = append(p.IsLeft, idx%2 == 0)
	}
	return p, nil
}

// VerifyProof recomputes the root from proof with h and compares it to
// expectedRoot.
func VerifyProof(h provider.HashPrimitive, proof Proof, expectedRoot []byte) error {
	if len(proof.Siblings) != len(proof.IsLeft) {
		return ErrMerkleProofFail
	}
	current := proof.ChunkHash
	for i, sibling := range proof.Siblings {
		var err error
		if proof.IsLeft[i] {
			current, err = hashPair(h, sibling, current)
		} else {
			current, err = hashPair(h, current, sibling)
		}
		if err != nil {
			return err
		}
	}
	if !bytes.Equal(current, expectedRoot) {
		return ErrMerkleProofFail
	}
	return nil
}
