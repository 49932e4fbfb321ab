// AngelaMos | 2026
// password.go

package identity

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

var ErrMalformedHash = errors.New("malformed password hash")

// ArgonParams are the argon2id cost settings. They are encoded into every
// hash, so changing them does not invalidate stored passwords.
type ArgonParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  int
	KeyLength   uint32
}

var DefaultArgonParams = ArgonParams{
	Memory:      64 * 1024,
	Iterations:  1,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

// PasswordHasher produces and checks PHC-formatted argon2id hashes:
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
type PasswordHasher struct {
	params ArgonParams
	decoy  func() string
}

func NewPasswordHasher(params ArgonParams) *PasswordHasher {
	h := &PasswordHasher{params: params}
	h.decoy = sync.OnceValue(func() string {
		// only its cost matters, the value is never accepted
		encoded, err := h.Hash("decoy-password-never-matches")
		if err != nil {
			return ""
		}
		return encoded
	})
	return h
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey(
		[]byte(password),
		salt,
		h.params.Iterations,
		h.params.Memory,
		h.params.Parallelism,
		h.params.KeyLength,
	)

	return encodeHash(h.params, salt, key), nil
}

// Verify reports whether password matches encoded. An empty encoded hash
// is checked against a decoy so an unknown account costs one full
// derivation, the same as a wrong password.
func (h *PasswordHasher) Verify(password, encoded string) (bool, error) {
	if encoded == "" {
		_, _ = h.compare(password, h.decoy()) //nolint:errcheck // timing only
		return false, nil
	}
	return h.compare(password, encoded)
}

func (h *PasswordHasher) compare(password, encoded string) (bool, error) {
	params, salt, key, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey(
		[]byte(password),
		salt,
		params.Iterations,
		params.Memory,
		params.Parallelism,
		params.KeyLength,
	)

	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

func encodeHash(p ArgonParams, salt, key []byte) string {
	b64 := base64.RawStdEncoding
	return "$argon2id$v=" + strconv.Itoa(argon2.Version) +
		"$m=" + strconv.FormatUint(uint64(p.Memory), 10) +
		",t=" + strconv.FormatUint(uint64(p.Iterations), 10) +
		",p=" + strconv.FormatUint(uint64(p.Parallelism), 10) +
		"$" + b64.EncodeToString(salt) +
		"$" + b64.EncodeToString(key)
}

func decodeHash(encoded string) (ArgonParams, []byte, []byte, error) {
	var p ArgonParams

	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return p, nil, nil, ErrMalformedHash
	}

	version, ok := strings.CutPrefix(fields[2], "v=")
	if !ok || version != strconv.Itoa(argon2.Version) {
		return p, nil, nil, fmt.Errorf("%w: version %q", ErrMalformedHash, fields[2])
	}

	for _, kv := range strings.Split(fields[3], ",") {
		name, raw, found := strings.Cut(kv, "=")
		if !found {
			return p, nil, nil, ErrMalformedHash
		}
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return p, nil, nil, fmt.Errorf("%w: %s", ErrMalformedHash, kv)
		}
		switch name {
		case "m":
			p.Memory = uint32(n)
		case "t":
			p.Iterations = uint32(n)
		case "p":
			if n > 255 {
				return p, nil, nil, fmt.Errorf("%w: %s", ErrMalformedHash, kv)
			}
			p.Parallelism = uint8(n)
		}
	}
	if p.Memory == 0 || p.Iterations == 0 || p.Parallelism == 0 {
		return p, nil, nil, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(fields[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	key, err := base64.RawStdEncoding.DecodeString(fields[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, fmt.Errorf("%w: key", ErrMalformedHash)
	}

	p.SaltLength = len(salt)
	p.KeyLength = uint32(len(key)) //nolint:gosec // argon2 keys are tens of bytes

	return p, salt, key, nil
}
