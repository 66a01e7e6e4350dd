package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithmID = "argon2id"

	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
)

// Profile is one named Argon2id parameter set.
type Profile struct {
	Memory      uint32 // KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// ProfileCredential is the high-work-factor profile for account passwords.
var ProfileCredential = Profile{
	Memory:      64 * 1024,
	Time:        3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// ProfileBackupCode is the lower-work-factor profile for backup codes.
// A verification may compare a code against every stored hash in the batch,
// so the per-hash cost is kept an order of magnitude below the credential
// profile.
var ProfileBackupCode = Profile{
	Memory:      16 * 1024,
	Time:        1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

func (p Profile) validate() error {
	switch {
	case p.Memory < minMemoryKB:
		return errors.New("argon2 memory must be >= 8192 KB")
	case p.Time < minTimeCost:
		return errors.New("argon2 time must be >= 1")
	case p.Parallelism < minParallelism:
		return errors.New("argon2 parallelism must be >= 1")
	case p.SaltLength < minSaltLength:
		return errors.New("argon2 salt length must be >= 16")
	case p.KeyLength < minKeyLength:
		return errors.New("argon2 key length must be >= 16")
	}
	return nil
}

// Hasher hashes and verifies secrets with a fixed [Profile]. Safe for
// concurrent use.
type Hasher struct {
	profile Profile
}

// NewHasher validates the profile and returns a Hasher.
func NewHasher(p Profile) (*Hasher, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Hasher{profile: p}, nil
}

// Hash derives a PHC-encoded Argon2id hash of secret with a fresh random salt.
func (h *Hasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("empty secret")
	}

	salt := make([]byte, h.profile.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(secret), salt,
		h.profile.Time, h.profile.Memory, h.profile.Parallelism, h.profile.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version,
		h.profile.Memory, h.profile.Time, h.profile.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether secret matches the PHC-encoded hash. The comparison
// is constant-time; the cost parameters come from the stored hash, not from
// the Hasher's profile.
func (h *Hasher) Verify(secret, encoded string) (bool, error) {
	memory, timeCost, parallelism, salt, key, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(secret), salt,
		timeCost, memory, parallelism, uint32(len(key)))

	return subtle.ConstantTimeCompare(computed, key) == 1, nil
}

// NeedsRehash reports whether the stored hash was produced with parameters
// weaker than the Hasher's profile.
func (h *Hasher) NeedsRehash(encoded string) (bool, error) {
	memory, timeCost, parallelism, _, key, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}
	return memory < h.profile.Memory ||
		timeCost < h.profile.Time ||
		parallelism < h.profile.Parallelism ||
		uint32(len(key)) != h.profile.KeyLength, nil
}

func decodePHC(encoded string) (memory, timeCost uint32, parallelism uint8, salt, key []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return 0, 0, 0, nil, nil, errors.New("invalid PHC hash")
	}

	var version int
	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return 0, 0, 0, nil, nil, errors.New("unsupported argon2 version")
	}

	var p uint32
	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &p); err != nil {
		return 0, 0, 0, nil, nil, errors.New("invalid argon2 parameters")
	}
	if memory < minMemoryKB || timeCost < minTimeCost || p < uint32(minParallelism) || p > 255 {
		return 0, 0, 0, nil, nil, errors.New("argon2 parameters out of range")
	}
	parallelism = uint8(p)

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || uint32(len(salt)) < minSaltLength {
		return 0, 0, 0, nil, nil, errors.New("invalid salt")
	}
	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || uint32(len(key)) < minKeyLength {
		return 0, 0, 0, nil, nil, errors.New("invalid hash")
	}
	return memory, timeCost, parallelism, salt, key, nil
}
