package application

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	// ErrInvalidPasswordHash is returned for stored hashes that are not argon2id PHC strings.
	ErrInvalidPasswordHash         = errors.New("invalid password hash format")
	ErrIncompatiblePasswordVersion = errors.New("incompatible password hash version")
)

// Argon2idParams tunes the argon2id key derivation.
type Argon2idParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var DefaultArgon2idParams = Argon2idParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

var phcEncoding = base64.RawStdEncoding

// HashPassword hashes a password with DefaultArgon2idParams.
func HashPassword(password string) (string, error) {
	return CreatePasswordHash(password, DefaultArgon2idParams)
}

// CreatePasswordHash returns a PHC-encoded argon2id hash with a random salt:
// $argon2id$v=19$m=<memory>,t=<iterations>,p=<parallelism>$<salt>$<key>.
func CreatePasswordHash(password string, params Argon2idParams) (string, error) {
	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read password salt: %w", err)
	}
	stored := storedHash{params: params, salt: salt}
	stored.key = stored.derive(password)
	return stored.String(), nil
}

// VerifyPassword compares password with an encoded hash. A mismatch returns
// ErrInvalidCredentials.
func VerifyPassword(hashedPassword, password string) error {
	stored, err := parseStoredHash(hashedPassword)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(stored.key, stored.derive(password)) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}

type storedHash struct {
	params Argon2idParams
	salt   []byte
	key    []byte
}

func (h storedHash) derive(password string) []byte {
	p := h.params
	return argon2.IDKey([]byte(password), h.salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
}

func (h storedHash) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Iterations,
		h.params.Parallelism,
		phcEncoding.EncodeToString(h.salt),
		phcEncoding.EncodeToString(h.key),
	)
}

func parseStoredHash(encoded string) (storedHash, error) {
	// A leading "$" yields an empty first field.
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return storedHash{}, ErrInvalidPasswordHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return storedHash{}, fmt.Errorf("%w: version: %v", ErrInvalidPasswordHash, err)
	}
	if version != argon2.Version {
		return storedHash{}, ErrIncompatiblePasswordVersion
	}

	var h storedHash
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &h.params.Memory, &h.params.Iterations, &h.params.Parallelism); err != nil {
		return storedHash{}, fmt.Errorf("%w: params: %v", ErrInvalidPasswordHash, err)
	}

	var err error
	if h.salt, err = phcEncoding.DecodeString(fields[4]); err != nil {
		return storedHash{}, fmt.Errorf("%w: salt: %v", ErrInvalidPasswordHash, err)
	}
	if h.key, err = phcEncoding.DecodeString(fields[5]); err != nil {
		return storedHash{}, fmt.Errorf("%w: key: %v", ErrInvalidPasswordHash, err)
	}
	h.params.SaltLength = uint32(len(h.salt))
	h.params.KeyLength = uint32(len(h.key))
	return h, nil
}
