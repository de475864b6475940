// Package qrtoken issues and checks the short entry tokens encoded in the QR codes
// parents show at the desk.
package qrtoken

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Prefix starts every entry token
const Prefix = "AJ-"

// bodyLength is the number of hex characters after the prefix
const bodyLength = 16

var tokenPattern = regexp.MustCompile(`^AJ-[A-F0-9]{16}$`)

// Issuer derives entry tokens keyed with a server secret
type Issuer struct {
	secret []byte
}

// NewIssuer creates a token issuer. The secret must not be empty.
func NewIssuer(secret string) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	return &Issuer{secret: []byte(secret)}, nil
}

// Generate returns a new token for the child. Each call mixes in fresh randomness,
// so two tokens for the same child at the same instant differ.
func (i *Issuer) Generate(childID int64, now time.Time) (string, error) {
	nonce, err := randomHex(8)
	if err != nil {
		return "", fmt.Errorf("failed to generate token nonce: %w", err)
	}

	mac := hmac.New(sha256.New, i.secret)
	fmt.Fprintf(mac, "%d-%d-%s", childID, now.UnixMilli(), nonce)
	sum := hex.EncodeToString(mac.Sum(nil))

	return Prefix + strings.ToUpper(sum[:bodyLength]), nil
}

// ValidFormat reports whether token looks like an entry token
func ValidFormat(token string) bool {
	return tokenPattern.MatchString(token)
}

// Normalize cleans up a token typed in by hand at the desk
func Normalize(token string) string {
	return strings.ToUpper(strings.TrimSpace(token))
}

// randomHex returns n random bytes encoded as hex
func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
