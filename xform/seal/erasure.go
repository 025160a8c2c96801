package seal

import (
	"errors"

	"github.com/klauspost/reedsolomon"
)

var (
	ErrTooManyLost   = errors.New("seal: too many shards lost, cannot recover")
	ErrInvalidShards = errors.New("seal: invalid data/parity shard configuration")
)

// MaxShards bounds data plus parity shards.
const MaxShards = 256

// shardCodec spreads the sealed body over data shards plus Reed-Solomon
// parity so that up to parity shards can be lost.
type shardCodec struct {
	enc    reedsolomon.Encoder
	data   int
	parity int
}

func newShardCodec(data, parity int) (*shardCodec, error) {
	if data <= 0 || parity <= 0 || data+parity > MaxShards {
		return nil, ErrInvalidShards
	}
	enc, err := reedsolomon.New(data, parity)
	if err != nil {
		return nil, err
	}
	return &shardCodec{enc: enc, data: data, parity: parity}, nil
}

// encode splits body into data shards and computes parity.
func (c *shardCodec) encode(body []byte) ([][]byte, error) {
	if len(body) == 0 {
		// reedsolomon refuses empty input; one zero byte per shard keeps the
		// layout uniform and join trims it
		body = []byte{0}
	}
	shards, err := c.enc.Split(body)
	if err != nil {
		return nil, err
	}
	if err := c.enc.Encode(shards); err != nil {
		return nil, err
	}
	return shards, nil
}

// reconstruct fills in nil data shards.
func (c *shardCodec) reconstruct(shards [][]byte) error {
	err := c.enc.ReconstructData(shards)
	if errors.Is(err, reedsolomon.ErrTooFewShards) {
		return ErrTooManyLost
	}
	return err
}

// dataLen is the total length of the data shards.
func (c *shardCodec) dataLen(shards [][]byte) int {
	n := 0
	for _, sh := range shards[:c.data] {
		n += len(sh)
	}
	return n
}

// join concatenates the data shards and trims the padding to size.
func (c *shardCodec) join(shards [][]byte, size int) []byte {
	out := make([]byte, 0, size)
	for i := 0; i < c.data && len(out) < size; i++ {
		n := min(size-len(out), len(shards[i]))
		out = append(out, shards[i][:n]...)
	}
	return out
}
