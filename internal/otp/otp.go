// Package otp provides generation and constant-time verification of the
// numeric one-time codes used during registration.
package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

const digits = 6

// Generate returns a 6-digit numeric code string (e.g. "123456").
// Uses crypto/rand with rejection sampling so every digit is uniform.
func Generate() (string, error) {
	s := make([]byte, digits)
	buf := make([]byte, digits)
	for i := 0; i < digits; {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if i == digits {
				break
			}
			// 250 is the largest multiple of 10 that fits in a byte;
			// values above it would skew the low digits.
			if b >= 250 {
				continue
			}
			s[i] = '0' + b%10
			i++
		}
	}
	return string(s), nil
}

// Hash returns a SHA-256 hash of the code string, hex-encoded.
func Hash(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}

// Equal performs constant-time comparison of the provided code's hash with the stored hash.
func Equal(providedCode, storedHash string) bool {
	providedHash := Hash(providedCode)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}
