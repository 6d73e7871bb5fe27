package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/go-newsletter/svc/internal/errors"
	"github.com/go-newsletter/svc/internal/models"
)

const (
	minPasswordLength = 12
	maxPasswordLength = 128
)

// UserRepository is the persistence capability Verifier needs: look up a
// user by username, and persist a new password hash.
type UserRepository interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
}

// Verifier is the password verifier (component C). It never touches
// plaintext passwords outside the CPU-bound pool, and never returns early
// for an unknown username before doing the same hashing work a known
// username would require.
type Verifier struct {
	users UserRepository
	pool  *Pool
}

// NewVerifier builds a Verifier backed by users and dispatching hashing
// work onto pool.
func NewVerifier(users UserRepository, pool *Pool) *Verifier {
	return &Verifier{users: users, pool: pool}
}

// ValidateCredentials looks up username, then unconditionally performs
// Argon2id verification on the CPU-bound pool — against the real stored
// hash if the user exists, against a fixed fallback hash otherwise — so
// the wall-clock cost of an unknown username is indistinguishable from
// that of a known username with a wrong password.
func (v *Verifier) ValidateCredentials(ctx context.Context, username, password string) (string, error) {
	user, err := v.users.GetUserByUsername(ctx, username)

	expectedHash := fallbackHash
	userID := ""
	knownUser := false
	if err == nil {
		expectedHash = user.PasswordHash
		userID = user.UserID
		knownUser = true
	} else if !errors.Is(err, apperrors.ErrUserNotFound) {
		return "", fmt.Errorf("look up user: %w", err)
	}

	_, err = v.pool.Run(ctx, func() (string, error) {
		return "", comparePHC(expectedHash, password)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrFailedToGetExpectedHash) {
			return "", err
		}
		if errors.Is(err, apperrors.ErrInvalidPassword) {
			return "", apperrors.ErrInvalidPassword
		}
		return "", err
	}

	if !knownUser {
		return "", apperrors.ErrUnknownUsername
	}
	return userID, nil
}

// Username resolves the username currently associated with userID. Used by
// the password-change flow, which receives a user id from the session and
// needs a username to re-run ValidateCredentials against the current
// password before accepting a new one.
func (v *Verifier) Username(ctx context.Context, userID string) (string, error) {
	user, err := v.users.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Username, nil
}

// PasswordPolicyError reports every password policy rule newPassword
// violated (spec §4.3: "violations collected and returned as a set"),
// rather than stopping at the first one. Callers that only need an error
// class should check errors.Is(err, apperrors.ErrValidation); callers that
// want to display the violations type-assert for a `Violations() []string`
// method instead of importing this concrete type.
type PasswordPolicyError struct {
	violations []string
}

func (e *PasswordPolicyError) Error() string {
	return fmt.Sprintf("%s: %s", apperrors.ErrValidation, strings.Join(e.violations, "; "))
}

func (e *PasswordPolicyError) Unwrap() error {
	return apperrors.ErrValidation
}

// Violations returns every password policy rule that was broken.
func (e *PasswordPolicyError) Violations() []string {
	return e.violations
}

// validateNewPassword returns every policy violation newPassword commits,
// or nil if it satisfies all of them.
func validateNewPassword(newPassword string) []string {
	var violations []string
	if l := len(newPassword); l < minPasswordLength {
		violations = append(violations, fmt.Sprintf("password must be at least %d bytes, got %d", minPasswordLength, l))
	} else if l > maxPasswordLength {
		violations = append(violations, fmt.Sprintf("password must be at most %d bytes, got %d", maxPasswordLength, l))
	}
	return violations
}

// ChangePassword validates newPassword against the password policy and
// replaces userID's stored hash. Hashing runs on the CPU-bound pool like
// verification does.
func (v *Verifier) ChangePassword(ctx context.Context, userID, newPassword string) error {
	if violations := validateNewPassword(newPassword); len(violations) > 0 {
		return &PasswordPolicyError{violations: violations}
	}

	hash, err := v.pool.Run(ctx, func() (string, error) {
		return hashPassword(newPassword)
	})
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	if err := v.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("store new password hash: %w", err)
	}
	return nil
}
