package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

var errUnsupportedHash = errors.New("unsupported password hash")

// Argon2Params are the Argon2id cost settings used for new hashes. Stored
// hashes carry their own settings, so changing these never locks out
// existing principals.
type Argon2Params struct {
	MemoryKB   uint32
	Iterations uint32
	Threads    uint8
}

// DefaultArgon2Params: 64 MiB, one pass, four lanes.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{MemoryKB: 64 * 1024, Iterations: 1, Threads: 4}
}

// Argon2HashService implements ports.HashService using Argon2id.
type Argon2HashService struct {
	params Argon2Params
}

// NewArgon2HashService creates an Argon2id hash service. Zero fields in p
// fall back to DefaultArgon2Params.
func NewArgon2HashService(p Argon2Params) *Argon2HashService {
	def := DefaultArgon2Params()
	if p.MemoryKB == 0 {
		p.MemoryKB = def.MemoryKB
	}
	if p.Iterations == 0 {
		p.Iterations = def.Iterations
	}
	if p.Threads == 0 {
		p.Threads = def.Threads
	}
	return &Argon2HashService{params: p}
}

// Hash returns the PHC-style encoding
// $argon2id$v=19$m=<kb>,t=<iterations>,p=<threads>$<salt>$<hash>.
func (s *Argon2HashService) Hash(password string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	p := s.params
	hash := argon2.IDKey([]byte(password), salt, p.Iterations, p.MemoryKB, p.Threads, argon2KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.MemoryKB, p.Iterations, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify checks password against an encoded hash, using the cost settings
// recorded in the hash rather than the service's own.
func (s *Argon2HashService) Verify(password string, encodedHash string) (bool, error) {
	decoded, err := decodeArgon2Hash(encodedHash)
	if err != nil {
		return false, err
	}

	p := decoded.params
	otherHash := argon2.IDKey([]byte(password), decoded.salt, p.Iterations, p.MemoryKB, p.Threads, uint32(len(decoded.hash)))

	return subtle.ConstantTimeCompare(decoded.hash, otherHash) == 1, nil
}

type argon2Hash struct {
	params Argon2Params
	salt   []byte
	hash   []byte
}

func decodeArgon2Hash(encodedHash string) (*argon2Hash, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return nil, fmt.Errorf("%w: expected 6 parts, got %d", errUnsupportedHash, len(parts))
	}
	if parts[1] != "argon2id" {
		return nil, fmt.Errorf("%w: algorithm %q", errUnsupportedHash, parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, fmt.Errorf("parsing version: %w", err)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("%w: argon2 version %d", errUnsupportedHash, version)
	}

	out := &argon2Hash{}
	p := &out.params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.MemoryKB, &p.Iterations, &p.Threads); err != nil {
		return nil, fmt.Errorf("parsing params: %w", err)
	}
	if p.Iterations == 0 || p.Threads == 0 {
		return nil, fmt.Errorf("%w: zero cost parameter", errUnsupportedHash)
	}

	var err error
	if out.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, fmt.Errorf("decoding salt: %w", err)
	}
	if out.hash, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, fmt.Errorf("decoding hash: %w", err)
	}
	if len(out.hash) == 0 {
		return nil, fmt.Errorf("%w: empty digest", errUnsupportedHash)
	}
	return out, nil
}
