package seal

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/pierrec/lz4/v4"
)

var (
	ErrCompressionFailed   = errors.New("seal: compression failed")
	ErrDecompressionFailed = errors.New("seal: decompression failed")
)

// CompressionLevel controls the speed/ratio tradeoff.
type CompressionLevel int

const (
	CompressionNone CompressionLevel = iota
	CompressionFast
	CompressionDefault
	CompressionBest
)

var compressorPool = sync.Pool{
	New: func() interface{} {
		return lz4.NewWriter(nil)
	},
}

var decompressorPool = sync.Pool{
	New: func() interface{} {
		return lz4.NewReader(nil)
	},
}

func compress(data []byte, level CompressionLevel) ([]byte, error) {
	var buf bytes.Buffer
	w := compressorPool.Get().(*lz4.Writer)
	defer compressorPool.Put(w)

	w.Reset(&buf)
	lvl := lz4.Level4
	switch level {
	case CompressionFast:
		lvl = lz4.Fast
	case CompressionBest:
		lvl = lz4.Level9
	}
	_ = w.Apply(lz4.CompressionLevelOption(lvl))
	if _, err := w.Write(data); err != nil {
		return nil, ErrCompressionFailed
	}
	if err := w.Close(); err != nil {
		return nil, ErrCompressionFailed
	}
	return buf.Bytes(), nil
}

// decompress inflates data, refusing output larger than limit.
func decompress(data []byte, limit int) ([]byte, error) {
	r := decompressorPool.Get().(*lz4.Reader)
	defer decompressorPool.Put(r)

	r.Reset(bytes.NewReader(data))
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, int64(limit)+1))
	if err != nil || n > int64(limit) {
		return nil, ErrDecompressionFailed
	}
	return buf.Bytes(), nil
}

// packChunk compresses a chunk when that makes it smaller.
func packChunk(data []byte, level CompressionLevel) (stored []byte, compressed bool) {
	if level == CompressionNone {
		return data, false
	}
	c, err := compress(data, level)
	if err != nil || len(c) >= len(data) {
		return data, false
	}
	return c, true
}
