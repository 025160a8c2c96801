// Package kat reads known-answer vector files in the NIST response-file
// layout and checks them against the stream and hash engines.
package kat

import (
	"bufio"
	"encoding/hex"
	"io"
	"strconv"
	"strings"

	"github.com/TheusHen/xform/xform/errs"
)

// CipherVector is one COUNT/KEY/IV/PLAINTEXT/CIPHERTEXT record. IV is nil
// when the record has none.
type CipherVector struct {
	Count      int
	Key        []byte
	IV         []byte
	Plaintext  []byte
	Ciphertext []byte
	Line       int
}

// HashVector is one Len/Msg/MD record. Msg is already truncated to Len bits.
type HashVector struct {
	Len  int
	Msg  []byte
	MD   []byte
	Line int
}

// MonteCarlo is a Seed followed by COUNT/MD checkpoints.
type MonteCarlo struct {
	Seed        []byte
	Checkpoints []Checkpoint
}

type Checkpoint struct {
	Count int
	MD    []byte
	Line  int
}

type field struct {
	key, value string
	line       int
}

// scanFields yields the KEY = value lines of r, skipping blanks, comments
// and [section] headers.
func scanFields(r io.Reader, fn func(field) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" || s[0] == '#' || s[0] == '[' {
			continue
		}
		k, v, ok := strings.Cut(s, "=")
		if !ok {
			return errs.Wrapf(errs.ErrDecode, "line %d: expected KEY = value", line)
		}
		f := field{key: strings.ToUpper(strings.TrimSpace(k)), value: strings.TrimSpace(v), line: line}
		if err := fn(f); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return errs.Wrapf(errs.ErrDecode, "line %d: %v", line, err)
	}
	return nil
}

func (f field) hexBytes() ([]byte, error) {
	b, err := hex.DecodeString(f.value)
	if err != nil {
		return nil, errs.Wrapf(errs.ErrDecode, "line %d: %s: %v", f.line, f.key, err)
	}
	return b, nil
}

func (f field) count() (int, error) {
	n, err := strconv.Atoi(f.value)
	if err != nil || n < 0 {
		return 0, errs.Wrapf(errs.ErrDecode, "line %d: %s: not a count: %q", f.line, f.key, f.value)
	}
	return n, nil
}

// ParseCipherVectors reads stream cipher records. Each record starts at a
// COUNT line and needs KEY, PLAINTEXT and CIPHERTEXT of equal length.
func ParseCipherVectors(r io.Reader) ([]CipherVector, error) {
	var (
		out []CipherVector
		cur *CipherVector
	)
	flush := func() error {
		if cur == nil {
			return nil
		}
		switch {
		case cur.Key == nil || cur.Plaintext == nil || cur.Ciphertext == nil:
			return errs.Wrapf(errs.ErrDecode, "line %d: record %d is incomplete", cur.Line, cur.Count)
		case len(cur.Plaintext) != len(cur.Ciphertext):
			return errs.Wrapf(errs.ErrDecode, "line %d: record %d: plaintext and ciphertext lengths differ", cur.Line, cur.Count)
		}
		out = append(out, *cur)
		cur = nil
		return nil
	}
	err := scanFields(r, func(f field) error {
		if f.key == "COUNT" {
			if err := flush(); err != nil {
				return err
			}
			n, err := f.count()
			if err != nil {
				return err
			}
			cur = &CipherVector{Count: n, Line: f.line}
			return nil
		}
		if cur == nil {
			return errs.Wrapf(errs.ErrDecode, "line %d: %s before COUNT", f.line, f.key)
		}
		b, err := f.hexBytes()
		if err != nil {
			return err
		}
		switch f.key {
		case "KEY":
			cur.Key = b
		case "IV", "NONCE":
			cur.IV = b
		case "PLAINTEXT":
			cur.Plaintext = b
		case "CIPHERTEXT":
			cur.Ciphertext = b
		default:
			return errs.Wrapf(errs.ErrDecode, "line %d: unknown field %s", f.line, f.key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

// ParseHashVectors reads Len/Msg/MD records. Len is in bits and must be a
// multiple of 8; a Len of 0 with Msg = 00 is the empty message.
func ParseHashVectors(r io.Reader) ([]HashVector, error) {
	var (
		out    []HashVector
		cur    HashVector
		hasLen bool
		hasMsg bool
	)
	err := scanFields(r, func(f field) error {
		switch f.key {
		case "LEN":
			n, err := f.count()
			if err != nil {
				return err
			}
			if n%8 != 0 {
				return errs.Wrapf(errs.ErrDecode, "line %d: Len %d is not a whole number of bytes", f.line, n)
			}
			cur, hasLen, hasMsg = HashVector{Len: n, Line: f.line}, true, false
		case "MSG":
			if !hasLen {
				return errs.Wrapf(errs.ErrDecode, "line %d: Msg before Len", f.line)
			}
			b, err := f.hexBytes()
			if err != nil {
				return err
			}
			if len(b) < cur.Len/8 {
				return errs.Wrapf(errs.ErrDecode, "line %d: Msg is %d bytes, Len says %d", f.line, len(b), cur.Len/8)
			}
			cur.Msg, hasMsg = b[:cur.Len/8], true
		case "MD":
			if !hasMsg {
				return errs.Wrapf(errs.ErrDecode, "line %d: MD before Msg", f.line)
			}
			b, err := f.hexBytes()
			if err != nil {
				return err
			}
			cur.MD = b
			out = append(out, cur)
			hasLen, hasMsg = false, false
		default:
			return errs.Wrapf(errs.ErrDecode, "line %d: unknown field %s", f.line, f.key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if hasLen {
		return nil, errs.Wrapf(errs.ErrDecode, "line %d: record has no MD", cur.Line)
	}
	return out, nil
}

// ParseMonteCarlo reads a Seed line and its checkpoints. COUNT values must
// run 0, 1, 2, ...
func ParseMonteCarlo(r io.Reader) (*MonteCarlo, error) {
	mc := &MonteCarlo{}
	next := -1
	err := scanFields(r, func(f field) error {
		switch f.key {
		case "SEED":
			if mc.Seed != nil {
				return errs.Wrapf(errs.ErrDecode, "line %d: second Seed", f.line)
			}
			b, err := f.hexBytes()
			if err != nil {
				return err
			}
			mc.Seed = b
		case "COUNT":
			n, err := f.count()
			if err != nil {
				return err
			}
			if n != len(mc.Checkpoints) || next >= 0 {
				return errs.Wrapf(errs.ErrDecode, "line %d: COUNT %d out of sequence", f.line, n)
			}
			next = n
		case "MD":
			if mc.Seed == nil || next < 0 {
				return errs.Wrapf(errs.ErrDecode, "line %d: MD before Seed and COUNT", f.line)
			}
			b, err := f.hexBytes()
			if err != nil {
				return err
			}
			mc.Checkpoints = append(mc.Checkpoints, Checkpoint{Count: next, MD: b, Line: f.line})
			next = -1
		default:
			return errs.Wrapf(errs.ErrDecode, "line %d: unknown field %s", f.line, f.key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if mc.Seed == nil {
		return nil, errs.Wrapf(errs.ErrDecode, "no Seed")
	}
	return mc, nil
}
