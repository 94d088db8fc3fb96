// Package auth generates time-based one-time passwords for the login
// collaborator. Codes follow RFC 6238 with the SHA-1 / 6 digit / 30 second
// profile authenticator apps expect. Secrets and generated codes are never
// logged and never embedded in returned errors.
package auth

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	// CodeDigits is the OTP length.
	CodeDigits = 6
	// Step is the TOTP time step.
	Step = 30 * time.Second
	// MinSecretLength is the minimum accepted base32 secret length.
	MinSecretLength = 16
)

var (
	base32Re = regexp.MustCompile(`^[A-Z2-7]+=*$`)

	// ErrInvalidSecret covers every malformed-secret case without echoing
	// the secret itself.
	ErrInvalidSecret = errors.New("auth: invalid totp secret")
	// ErrSecretWiped is returned when a code is requested after Wipe.
	ErrSecretWiped = errors.New("auth: secret has been wiped")
)

// Secret wraps a base32 TOTP secret so its disposal is explicit. Call Wipe
// when the secret is no longer needed; zeroing is best-effort in a managed
// runtime (the GC may have copied the bytes), but the wrapper guarantees the
// secret is unusable afterwards.
type Secret struct {
	key   []byte
	wiped bool
}

// NewSecret normalizes (strips spaces, uppercases) and validates a base32
// secret, then decodes it. The error never contains the secret text.
func NewSecret(s string) (*Secret, error) {
	norm := normalize(s)
	if !validFormat(norm) {
		return nil, ErrInvalidSecret
	}
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.TrimRight(norm, "="))
	if err != nil {
		return nil, ErrInvalidSecret
	}
	return &Secret{key: key}, nil
}

// Wipe zeroes the decoded key material and marks the secret unusable.
// Safe to call more than once.
func (s *Secret) Wipe() {
	for i := range s.key {
		s.key[i] = 0
	}
	s.key = nil
	s.wiped = true
}

// Code returns the current 6-digit code.
func (s *Secret) Code() (string, error) {
	return s.CodeAt(time.Now())
}

// CodeAt returns the code for the 30-second step containing t.
func (s *Secret) CodeAt(t time.Time) (string, error) {
	if s.wiped || len(s.key) == 0 {
		return "", ErrSecretWiped
	}
	counter := uint64(t.Unix()) / uint64(Step/time.Second)

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, s.key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	// dynamic truncation per RFC 4226 §5.3
	offset := sum[len(sum)-1] & 0x0f
	code := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff
	return fmt.Sprintf("%06d", code%1_000_000), nil
}

// ValidateSecret reports whether s is an acceptable base32 TOTP secret:
// A-Z and 2-7 with optional padding, at least 16 characters.
func ValidateSecret(s string) bool {
	return validFormat(normalize(s))
}

// GenerateCode validates secret and returns the current code. It is the
// one-shot form of NewSecret + Code for callers that do not manage the
// secret's lifetime themselves.
func GenerateCode(secret string) (string, error) {
	s, err := NewSecret(secret)
	if err != nil {
		return "", err
	}
	defer s.Wipe()
	return s.Code()
}

func normalize(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, " ", ""))
}

func validFormat(s string) bool {
	return len(strings.TrimRight(s, "=")) >= MinSecretLength && base32Re.MatchString(s)
}
