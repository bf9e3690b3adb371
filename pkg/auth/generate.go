package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	DefaultGeneratedLen = 8
	MinGeneratedLen     = 6
)

const (
	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars   = "0123456789"
	specialChars = "!@#$%^&*()-_=+[]{}|;:,.<>?"
	allChars     = lowerChars + upperChars + digitChars + specialChars
)

// GeneratePassword returns a random password of the given length holding at
// least one lowercase letter, uppercase letter, digit and symbol.
func GeneratePassword(length int) (string, error) {
	if length < MinGeneratedLen {
		return "", fmt.Errorf("%w: password length must be at least %d", ErrInvalidArgument, MinGeneratedLen)
	}

	out := make([]byte, 0, length)
	for _, set := range []string{lowerChars, upperChars, digitChars, specialChars} {
		c, err := pick(set)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	for len(out) < length {
		c, err := pick(allChars)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}

	// Fisher-Yates so the guaranteed characters do not sit at fixed positions.
	for i := len(out) - 1; i > 0; i-- {
		j, err := randIndex(i + 1)
		if err != nil {
			return "", err
		}
		out[i], out[j] = out[j], out[i]
	}

	return string(out), nil
}

func pick(set string) (byte, error) {
	i, err := randIndex(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

func randIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to read random source: %w", err)
	}
	return int(v.Int64()), nil
}
