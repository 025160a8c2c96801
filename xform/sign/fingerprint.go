package sign

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/TheusHen/xform/xform/errs"
)

// Fingerprint is the stable identifier of a verifying key.
// It is defined as: Fingerprint = SHA-256(serialized verifying key).
type Fingerprint [32]byte

// Fingerprint hashes the serialized form of k, so keys of different
// algorithms never collide on the same payload.
func (k *VerifyingKey) Fingerprint() (Fingerprint, error) {
	b, err := k.Marshal()
	if err != nil {
		return Fingerprint{}, err
	}
	return Fingerprint(sha256.Sum256(b)), nil
}

// ParseFingerprint parses the hex form printed by Fingerprint.String.
func ParseFingerprint(s string) (Fingerprint, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Fingerprint{}, errs.Wrapf(errs.ErrDecode, "fingerprint: %v", err)
	}
	if len(b) != 32 {
		return Fingerprint{}, errs.Wrapf(errs.ErrDecode, "fingerprint must be 32 bytes, not %d", len(b))
	}
	var f Fingerprint
	copy(f[:], b)
	return f, nil
}

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}
