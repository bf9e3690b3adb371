package auth

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name          string
		password      string
		shouldFail    bool
		errorContains string
	}{
		{
			name:       "valid strong password",
			password:   "SecureP@ss123",
			shouldFail: false,
		},
		{
			name:          "too short",
			password:      "Pass@1",
			shouldFail:    true,
			errorContains: "invalid password",
		},
		{
			name:          "missing uppercase",
			password:      "securepass@123",
			shouldFail:    true,
			errorContains: "invalid password",
		},
		{
			name:          "missing lowercase",
			password:      "SECUREPASS@123",
			shouldFail:    true,
			errorContains: "invalid password",
		},
		{
			name:          "missing digit",
			password:      "SecurePass@xyz",
			shouldFail:    true,
			errorContains: "invalid password",
		},
		{
			name:          "missing special character",
			password:      "SecurePass123",
			shouldFail:    true,
			errorContains: "invalid password",
		},
		{
			name:          "common password rejected",
			password:      "password123",
			shouldFail:    true,
			errorContains: "invalid password",
		},
		{
			name:       "valid with symbols",
			password:   "MyP@ssw0rd!",
			shouldFail: false,
		},
		{
			name:       "valid with multiple special chars",
			password:   "Secure#P@ssw0rd",
			shouldFail: false,
		},
		{
			name:          "too long",
			password:      "A" + string(make([]byte, 150)) + "1@a",
			shouldFail:    true,
			errorContains: "invalid password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)

			if tt.shouldFail {
				if err == nil {
					t.Errorf("expected error, got nil")
				} else if tt.errorContains != "" && !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("error message should contain '%s', got: %v", tt.errorContains, err)
				}
			} else {
				if err != nil {
					t.Errorf("expected no error, got: %v", err)
				}
			}
		})
	}
}

func testSalt() []byte {
	salt := make([]byte, SaltLength)
	for i := range salt {
		salt[i] = byte(i)
	}
	return salt
}

func TestHashPassword_KnownVectors(t *testing.T) {
	tests := []struct {
		password string
		want     string
	}{
		{"NewP@ss1", "056c3285a23d08a1e8104375902cc9da66fb1f2bcbf62a0bea62f09f7066d08f"},
		{"contraseña", "53abd6fe31172d2ed3204565f3945be153b35bcbb85e996d0664219821b281c4"},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			hash, err := HashPassword(testSalt(), tt.password)
			if err != nil {
				t.Fatalf("HashPassword failed: %v", err)
			}
			if len(hash) != HashLength {
				t.Errorf("expected %d byte hash, got %d", HashLength, len(hash))
			}
			if got := hex.EncodeToString(hash); got != tt.want {
				t.Errorf("hash mismatch: got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	password := "SecureP@ss123"

	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt failed: %v", err)
	}
	if len(salt) != SaltLength {
		t.Fatalf("expected %d byte salt, got %d", SaltLength, len(salt))
	}

	hash, err := HashPassword(salt, password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	again, _ := HashPassword(salt, password)
	if !bytes.Equal(hash, again) {
		t.Error("hash should be deterministic for the same salt and password")
	}

	if string(hash) == password {
		t.Error("hash should not equal plaintext password")
	}

	ok, err := VerifyPassword(salt, hash, password)
	if err != nil || !ok {
		t.Errorf("VerifyPassword with correct password failed: ok=%v err=%v", ok, err)
	}

	ok, err = VerifyPassword(salt, hash, "WrongPassword123!")
	if err != nil || ok {
		t.Errorf("VerifyPassword with wrong password should be false: ok=%v err=%v", ok, err)
	}

	otherSalt, _ := GenerateSalt()
	ok, _ = VerifyPassword(otherSalt, hash, password)
	if ok {
		t.Error("VerifyPassword with a different salt should be false")
	}
}

func TestHashPassword_InvalidArguments(t *testing.T) {
	salt := testSalt()
	hash, _ := HashPassword(salt, "SecureP@ss123")

	cases := map[string]func() error{
		"nil salt": func() error {
			_, err := HashPassword(nil, "SecureP@ss123")
			return err
		},
		"empty password": func() error {
			_, err := HashPassword(salt, "")
			return err
		},
		"verify empty salt": func() error {
			_, err := VerifyPassword([]byte{}, hash, "SecureP@ss123")
			return err
		},
		"verify empty stored hash": func() error {
			_, err := VerifyPassword(salt, nil, "SecureP@ss123")
			return err
		},
		"verify empty candidate": func() error {
			_, err := VerifyPassword(salt, hash, "")
			return err
		},
		"invalid utf-8 password": func() error {
			_, err := HashPassword(salt, "pw\xff")
			return err
		},
	}

	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			if err := fn(); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestVerifyPassword_InvalidUTF8NeverMatches(t *testing.T) {
	salt := testSalt()
	hash, err := HashPassword(salt, "pw\uFFFD")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	// Both would encode to the same UTF-16 as the stored password if
	// invalid bytes were replaced.
	for _, candidate := range []string{"pw\xff", "pw\xfe"} {
		ok, err := VerifyPassword(salt, hash, candidate)
		if err != nil {
			t.Fatalf("VerifyPassword(%q) returned error: %v", candidate, err)
		}
		if ok {
			t.Errorf("VerifyPassword(%q) should be false", candidate)
		}
	}
}

func TestGenerateSalt_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		salt, err := GenerateSalt()
		if err != nil {
			t.Fatalf("GenerateSalt failed: %v", err)
		}
		key := hex.EncodeToString(salt)
		if seen[key] {
			t.Fatalf("duplicate salt after %d samples", i)
		}
		seen[key] = true
	}
}

func TestGeneratePassword(t *testing.T) {
	for _, length := range []int{MinGeneratedLen, DefaultGeneratedLen, 12, 64} {
		for i := 0; i < 200; i++ {
			pwd, err := GeneratePassword(length)
			if err != nil {
				t.Fatalf("GeneratePassword(%d) failed: %v", length, err)
			}
			if len(pwd) != length {
				t.Fatalf("expected length %d, got %d", length, len(pwd))
			}
			if !strings.ContainsAny(pwd, lowerChars) || !strings.ContainsAny(pwd, upperChars) ||
				!strings.ContainsAny(pwd, digitChars) || !strings.ContainsAny(pwd, specialChars) {
				t.Fatalf("password %q is missing a character class", pwd)
			}
			for _, r := range pwd {
				if !strings.ContainsRune(allChars, r) {
					t.Fatalf("password %q contains %q outside the alphabet", pwd, r)
				}
			}
		}
	}
}

func TestGeneratePassword_TooShort(t *testing.T) {
	for _, length := range []int{-1, 0, 5} {
		if _, err := GeneratePassword(length); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("GeneratePassword(%d): expected ErrInvalidArgument, got %v", length, err)
		}
	}
}

func TestCommonPasswordRejection(t *testing.T) {
	commonPasswords := []string{
		"password123",
		"12345678",
		"qwerty123",
		"Password1!",
	}

	for _, pwd := range commonPasswords {
		t.Run(pwd, func(t *testing.T) {
			// Add uppercase, lowercase, digit, special char if missing
			testPwd := pwd
			if !containsUpper(pwd) {
				testPwd = "A" + testPwd
			}
			if !containsLower(pwd) {
				testPwd = testPwd + "a"
			}
			if !containsDigit(pwd) {
				testPwd = testPwd + "1"
			}
			if !containsSpecial(pwd) {
				testPwd = testPwd + "!"
			}

			// Verify it still contains the common pattern
			if contains(testPwd, pwd) {
				err := ValidatePassword(testPwd)
				// Should either reject for being common or accept if modified enough
				// This test just verifies the function runs without panicking
				_ = err
			}
		})
	}
}

// Helper functions
func containsUpper(s string) bool {
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			return true
		}
	}
	return false
}

func containsLower(s string) bool {
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			return true
		}
	}
	return false
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

func containsSpecial(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return true
		}
	}
	return false
}

func contains(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
