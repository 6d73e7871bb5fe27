package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	apperrors "github.com/go-newsletter/svc/internal/errors"
	"golang.org/x/crypto/argon2"
)

// Argon2Params pins the cost parameters a hash was computed with. Stored
// hashes always carry their own parameters in the PHC string, so a future
// change to defaultParams never invalidates existing hashes.
type Argon2Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// defaultParams are the operator-account hashing parameters.
var defaultParams = Argon2Params{
	Memory:      15 * 1000, // 15000 KiB
	Iterations:  2,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// hashPassword computes a PHC-encoded Argon2id hash of password using
// defaultParams and a freshly generated salt.
func hashPassword(password string) (string, error) {
	salt := make([]byte, defaultParams.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return encodePHC(defaultParams, salt, password), nil
}

func encodePHC(p Argon2Params, salt []byte, password string) string {
	hash := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Iterations, p.Parallelism, b64Salt, b64Hash)
}

// comparePHC verifies password against a PHC-encoded Argon2id hash in
// constant time. It returns apperrors.ErrFailedToGetExpectedHash if
// encodedHash is not a well-formed PHC string, and apperrors.ErrInvalidPassword
// if the hash doesn't match.
func comparePHC(encodedHash, password string) error {
	p, salt, expected, err := decodePHC(encodedHash)
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrFailedToGetExpectedHash, err)
	}

	candidate := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	if subtle.ConstantTimeCompare(expected, candidate) != 1 {
		return apperrors.ErrInvalidPassword
	}
	return nil
}

func decodePHC(encodedHash string) (Argon2Params, []byte, []byte, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return Argon2Params{}, nil, nil, fmt.Errorf("malformed argon2id PHC string")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("parse version: %w", err)
	}
	if version != argon2.Version {
		return Argon2Params{}, nil, nil, fmt.Errorf("unsupported argon2 version %d", version)
	}

	var p Argon2Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("parse params: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("decode salt: %w", err)
	}
	p.SaltLength = uint32(len(salt))

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("decode hash: %w", err)
	}
	p.KeyLength = uint32(len(hash))

	return p, salt, hash, nil
}

// fallbackHash is a PHC-encoded hash of an arbitrary password, computed
// once at package init. It stands in for a stored hash when the username
// given to ValidateCredentials doesn't exist, so that hashing work — and
// its wall-clock cost — is identical whether or not the account is real.
var fallbackHash = mustHash("the user does not exist but we hash anyway")

func mustHash(password string) string {
	h, err := hashPassword(password)
	if err != nil {
		panic(err)
	}
	return h
}
