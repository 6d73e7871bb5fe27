package subscription

import (
	"net/mail"
	"strings"

	apperrors "github.com/go-newsletter/svc/internal/errors"
)

const (
	minNameLength = 1
	maxNameLength = 256
)

// forbiddenNameChars are individually disallowed in a subscriber name,
// regardless of position (spec §3).
const forbiddenNameChars = `/(){}"\<>`

// validateName enforces spec §3's bound on subscriber names: 1-256 grapheme
// clusters (approximated here with rune count, which coincides with grapheme
// count for the BMP text this form realistically receives), forbidding a
// fixed punctuation set and whitespace-only input.
func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return apperrors.ErrNameEmpty
	}

	runes := []rune(name)
	if len(runes) < minNameLength || len(runes) > maxNameLength {
		return apperrors.ErrNameInvalid
	}

	if strings.ContainsAny(name, forbiddenNameChars) {
		return apperrors.ErrNameInvalid
	}

	return nil
}

// validateEmail checks email is RFC-5322-valid the same way mail.ParseAddress
// does, and rejects any input that isn't exactly the bare address (no
// display name, no comment) — mirroring househunt's email.ParseAddress.
func validateEmail(email string) (string, error) {
	trimmed := strings.TrimSpace(email)
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", apperrors.ErrInvalidEmail
	}
	return addr.Address, nil
}
