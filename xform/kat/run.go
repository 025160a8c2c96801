package kat

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"

	"github.com/TheusHen/xform/xform/digest"
	"github.com/TheusHen/xform/xform/provider"
	"github.com/TheusHen/xform/xform/selftest"
	"github.com/TheusHen/xform/xform/stream"
)

// MonteCarloRounds is the number of chained hashes between checkpoints.
const MonteCarloRounds = 1000

var ErrMismatch = errors.New("kat: output mismatch")

func mismatch(line int, what string, got, want []byte) error {
	return fmt.Errorf("%w: line %d: %s: got %x, want %x", ErrMismatch, line, what, got, want)
}

// RunCipher checks every vector in both directions: in one call, split at a
// pseudo-random point and one byte at a time.
func RunCipher(p provider.StreamPrimitive, vectors []CipherVector) error {
	for _, v := range vectors {
		rng := rand.New(rand.NewSource(int64(v.Count) + 1))
		for _, dir := range []struct {
			name     string
			in, want []byte
		}{
			{"encrypt", v.Plaintext, v.Ciphertext},
			{"decrypt", v.Ciphertext, v.Plaintext},
		} {
			c, err := stream.New(p, v.Key, v.IV)
			if err != nil {
				return fmt.Errorf("line %d: %w", v.Line, err)
			}
			if got := c.Process(dir.in); !bytes.Equal(got, dir.want) {
				return mismatch(v.Line, dir.name, got, dir.want)
			}

			if c, err = stream.New(p, v.Key, v.IV); err != nil {
				return fmt.Errorf("line %d: %w", v.Line, err)
			}
			at := rng.Intn(len(dir.in) + 1)
			got := append(c.Process(dir.in[:at]), c.Process(dir.in[at:])...)
			if !bytes.Equal(got, dir.want) {
				return mismatch(v.Line, fmt.Sprintf("%s split at %d", dir.name, at), got, dir.want)
			}

			if c, err = stream.New(p, v.Key, v.IV); err != nil {
				return fmt.Errorf("line %d: %w", v.Line, err)
			}
			got = got[:0]
			for i := range dir.in {
				got = append(got, c.Process(dir.in[i:i+1])...)
			}
			if !bytes.Equal(got, dir.want) {
				return mismatch(v.Line, dir.name+" bytewise", got, dir.want)
			}
		}
	}
	return nil
}

// RunHash checks every vector in one update and split in two.
func RunHash(p provider.HashPrimitive, vectors []HashVector) error {
	for _, v := range vectors {
		got, err := digest.Sum(p, v.Msg)
		if err != nil {
			return fmt.Errorf("line %d: %w", v.Line, err)
		}
		if !bytes.Equal(got, v.MD) {
			return mismatch(v.Line, "one shot", got, v.MD)
		}

		at := len(v.Msg) / 3
		d, err := digest.New(p, v.Msg[:at])
		if err != nil {
			return fmt.Errorf("line %d: %w", v.Line, err)
		}
		if err := d.Update(v.Msg[at:]); err != nil {
			return fmt.Errorf("line %d: %w", v.Line, err)
		}
		if got := d.Digest(); !bytes.Equal(got, v.MD) {
			return mismatch(v.Line, fmt.Sprintf("split at %d", at), got, v.MD)
		}
	}
	return nil
}

// RunMonteCarlo runs the chained-hash test: starting from three copies of
// the seed, each round hashes the concatenation of the three most recent
// digests, and the last digest of each checkpoint seeds the next.
func RunMonteCarlo(p provider.HashPrimitive, mc *MonteCarlo) error {
	seed := mc.Seed
	for _, cp := range mc.Checkpoints {
		a, b, c := seed, seed, seed
		for i := 0; i < MonteCarloRounds; i++ {
			d, err := digest.New(p, a)
			if err != nil {
				return err
			}
			if err := d.Update(b); err != nil {
				return err
			}
			if err := d.Update(c); err != nil {
				return err
			}
			a, b, c = b, c, d.Digest()
		}
		seed = c
		if !bytes.Equal(seed, cp.MD) {
			return mismatch(cp.Line, fmt.Sprintf("checkpoint %d", cp.Count), seed, cp.MD)
		}
	}
	return nil
}

// CipherCheck turns cipher vectors into a self-test vector for alg.
func CipherCheck(name string, alg provider.StreamAlgorithm, vectors []CipherVector) selftest.Vector {
	return selftest.Vector{Name: name, Check: func(p provider.Provider) error {
		sp, err := p.Stream(alg)
		if err != nil {
			return err
		}
		return RunCipher(sp, vectors)
	}}
}

// HashCheck turns hash vectors into a self-test vector for alg.
func HashCheck(name string, alg provider.HashAlgorithm, vectors []HashVector) selftest.Vector {
	return selftest.Vector{Name: name, Check: func(p provider.Provider) error {
		hp, err := p.Hash(alg)
		if err != nil {
			return err
		}
		return RunHash(hp, vectors)
	}}
}

// MonteCarloCheck turns a Monte-Carlo file into a self-test vector for alg.
func MonteCarloCheck(name string, alg provider.HashAlgorithm, mc *MonteCarlo) selftest.Vector {
	return selftest.Vector{Name: name, Check: func(p provider.Provider) error {
		hp, err := p.Hash(alg)
		if err != nil {
			return err
		}
		return RunMonteCarlo(hp, mc)
	}}
}
