package sign

import (
	"encoding/binary"

	"github.com/TheusHen/xform/xform/errs"
	"github.com/TheusHen/xform/xform/provider"
)

// MaxKeyPayload limits the payload of a serialized key.
const MaxKeyPayload = 1 << 16

const headerLen = 6

type keyKind byte

const (
	kindSigning   keyKind = 1
	kindVerifying keyKind = 2
)

func (k keyKind) String() string {
	switch k {
	case kindSigning:
		return "signing"
	case kindVerifying:
		return "verifying"
	default:
		return "unknown"
	}
}

var algTags = map[provider.SignAlgorithm]byte{
	provider.RSAPSS:  1,
	provider.ECDSA:   2,
	provider.Ed25519: 3,
	provider.MLDSA65: 4,
}

func tagAlgorithm(tag byte) (provider.SignAlgorithm, bool) {
	for alg, t := range algTags {
		if t == tag {
			return alg, true
		}
	}
	return "", false
}

// Serialized keys use the format:
//
//	1 byte: algorithm tag
//	1 byte: key kind (1 signing, 2 verifying)
//	4 bytes: payload length (big endian)
//	N bytes: payload
func seal(alg provider.SignAlgorithm, kind keyKind, payload []byte) ([]byte, error) {
	tag, ok := algTags[alg]
	if !ok {
		return nil, errs.Wrapf(errs.ErrUnknownAlgorithm, "no serialization tag for %q", alg)
	}
	if len(payload) > MaxKeyPayload {
		return nil, errs.Wrapf(errs.ErrDecode, "key payload of %d bytes exceeds %d", len(payload), MaxKeyPayload)
	}
	out := make([]byte, headerLen+len(payload))
	out[0] = tag
	out[1] = byte(kind)
	binary.BigEndian.PutUint32(out[2:headerLen], uint32(len(payload)))
	copy(out[headerLen:], payload)
	return out, nil
}

func unseal(b []byte, want keyKind) (provider.SignAlgorithm, []byte, error) {
	if len(b) < headerLen {
		return "", nil, errs.Wrapf(errs.ErrDecode, "serialized key too short: %d bytes", len(b))
	}
	alg, ok := tagAlgorithm(b[0])
	if !ok {
		return "", nil, errs.Wrapf(errs.ErrDecode, "unknown algorithm tag %d", b[0])
	}
	if got := keyKind(b[1]); got != want {
		return "", nil, errs.Wrapf(errs.ErrDecode, "expected a %s key, got %s", want, got)
	}
	n := binary.BigEndian.Uint32(b[2:headerLen])
	if n > MaxKeyPayload {
		return "", nil, errs.Wrapf(errs.ErrDecode, "key payload of %d bytes exceeds %d", n, MaxKeyPayload)
	}
	if uint64(len(b)-headerLen) != uint64(n) {
		return "", nil, errs.Wrapf(errs.ErrDecode, "key payload is %d bytes, header says %d", len(b)-headerLen, n)
	}
	return alg, b[headerLen:], nil
}

// Marshal serializes the signing key.
func (k *SigningKey) Marshal() ([]byte, error) {
	payload, err := k.k.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return seal(k.alg, kindSigning, payload)
}

// Marshal serializes the verifying key.
func (k *VerifyingKey) Marshal() ([]byte, error) {
	payload, err := k.k.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return seal(k.alg, kindVerifying, payload)
}

// UnmarshalSigningKey parses a key produced by SigningKey.Marshal, resolving
// the algorithm through p.
func UnmarshalSigningKey(p provider.Provider, b []byte) (*SigningKey, error) {
	alg, payload, err := unseal(b, kindSigning)
	if err != nil {
		return nil, err
	}
	prim, err := p.Signature(alg)
	if err != nil {
		return nil, err
	}
	k, err := prim.ParseSigningKey(payload)
	if err != nil {
		return nil, err
	}
	return &SigningKey{alg: alg, p: prim, k: k}, nil
}

// UnmarshalVerifyingKey parses a key produced by VerifyingKey.Marshal.
func UnmarshalVerifyingKey(p provider.Provider, b []byte) (*VerifyingKey, error) {
	alg, payload, err := unseal(b, kindVerifying)
	if err != nil {
		return nil, err
	}
	prim, err := p.Signature(alg)
	if err != nil {
		return nil, err
	}
	k, err := prim.ParseVerifyingKey(payload)
	if err != nil {
		return nil, err
	}
	return &VerifyingKey{alg: alg, p: prim, k: k}, nil
}
