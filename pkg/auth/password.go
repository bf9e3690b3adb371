package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	xunicode "golang.org/x/text/encoding/unicode"
)

const (
	SaltLength     = 32 // bytes
	HashLength     = sha256.Size
	MinPasswordLen = 8
	MaxPasswordLen = 128
)

// ErrInvalidArgument is returned for missing salt, password or hash inputs
// and for generator lengths below MinGeneratedLen.
var ErrInvalidArgument = errors.New("invalid argument")

var utf16le = xunicode.UTF16(xunicode.LittleEndian, xunicode.IgnoreBOM)

// PasswordValidationError holds validation error details (internal use only)
type PasswordValidationError struct {
	Errors []string
}

func (e *PasswordValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "password validation failed"
	}
	// Return generic error to users - never expose specific requirements to prevent enumeration attacks
	return "invalid password"
}

// Common weak passwords to reject
var commonPasswords = map[string]bool{
	"password":       true,
	"12345678":       true,
	"qwerty":         true,
	"abc123":         true,
	"password123":    true,
	"password123!":   true,
	"123456":         true,
	"admin":          true,
	"letmein":        true,
	"welcome":        true,
	"monkey":         true,
	"dragon":         true,
	"master":         true,
	"123123":         true,
	"passw0rd":       true,
	"shadow":         true,
	"sunshine":       true,
	"princess":       true,
	"starwars":       true,
	"football":       true,
	"trustno1":       true,
}

// GenerateSalt returns SaltLength bytes from the system CSPRNG.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// HashPassword computes SHA-256 over the salt followed by the UTF-16LE
// encoding of the password. Stored hashes depend on this exact byte layout.
func HashPassword(salt []byte, password string) ([]byte, error) {
	if len(salt) == 0 {
		return nil, fmt.Errorf("%w: salt is required", ErrInvalidArgument)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidArgument)
	}
	// The encoder replaces invalid bytes with U+FFFD, which would collapse
	// distinct passwords onto one digest.
	if !utf8.ValidString(password) {
		return nil, fmt.Errorf("%w: password is not valid UTF-8", ErrInvalidArgument)
	}

	encoded, err := utf16le.NewEncoder().Bytes([]byte(password))
	if err != nil {
		return nil, fmt.Errorf("failed to encode password: %w", err)
	}

	h := sha256.New()
	h.Write(salt)
	h.Write(encoded)
	return h.Sum(nil), nil
}

// VerifyPassword recomputes the hash of candidate and compares it to
// storedHash in constant time. A candidate that is not valid UTF-8 never
// matches.
func VerifyPassword(salt, storedHash []byte, candidate string) (bool, error) {
	if len(storedHash) == 0 {
		return false, fmt.Errorf("%w: stored hash is required", ErrInvalidArgument)
	}
	if candidate != "" && !utf8.ValidString(candidate) {
		return false, nil
	}
	computed, err := HashPassword(salt, candidate)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(computed, storedHash) == 1, nil
}

// ValidatePassword enforces strong password requirements on passwords chosen
// by account holders. Generated passwords are not run through it.
func ValidatePassword(password string) error {
	errors := make([]string, 0)

	// Check length
	if len(password) < MinPasswordLen {
		errors = append(errors, fmt.Sprintf("must be at least %d characters", MinPasswordLen))
	}
	if len(password) > MaxPasswordLen {
		errors = append(errors, fmt.Sprintf("must be at most %d characters", MaxPasswordLen))
	}

	// Check character requirements
	hasUpper := false
	hasLower := false
	hasDigit := false
	hasSpecial := false

	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !hasUpper {
		errors = append(errors, "must contain at least one uppercase letter")
	}
	if !hasLower {
		errors = append(errors, "must contain at least one lowercase letter")
	}
	if !hasDigit {
		errors = append(errors, "must contain at least one digit")
	}
	if !hasSpecial {
		errors = append(errors, "must contain at least one special character")
	}

	// Check against common passwords (case-insensitive)
	if commonPasswords[strings.ToLower(password)] {
		errors = append(errors, "is too common, please choose a more unique password")
	}

	if len(errors) > 0 {
		return &PasswordValidationError{Errors: errors}
	}

	return nil
}
