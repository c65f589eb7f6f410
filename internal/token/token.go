// Package token mints and fingerprints gate pass secrets.
//
// A secret is an opaque random string. It carries nothing about the
// permission or direction it was minted for; the service finds those by
// looking up the secret's keyed hash in the store.
package token

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
	"github.com/zeebo/blake3"

	"github.com/diewo77/gatepass/internal/models"
)

// Alphabet is the character set of a secret. URL and QR alphanumeric safe.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length of a secret. 43 symbols over 62 characters is just above 256 bits.
const Length = 43

// ErrMalformed is returned by Validate for strings that cannot be a secret.
var ErrMalformed = errors.New("token: malformed secret")

// hashKey separates secret fingerprints from any other BLAKE3 use.
var hashKey = [32]byte{
	'g', 'a', 't', 'e', 'p', 'a', 's', 's', '.', 's', 'e', 'c', 'r', 'e', 't',
}

// Generator mints a new secret for a permission and direction.
type Generator interface {
	Mint(permissionID uint, dir models.Direction) (string, error)
}

// NanoidGenerator draws secrets from crypto/rand through nanoid.
type NanoidGenerator struct{}

// NewGenerator returns the production generator.
func NewGenerator() *NanoidGenerator {
	return &NanoidGenerator{}
}

// Mint returns a fresh secret. The arguments only scope error messages; they
// never influence the output.
func (g *NanoidGenerator) Mint(permissionID uint, dir models.Direction) (string, error) {
	s, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("token: mint %s for permission %d: %w", dir, permissionID, err)
	}
	return s, nil
}

// Validate checks that s has the shape of a secret.
func Validate(s string) error {
	if len(s) != Length {
		return ErrMalformed
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(Alphabet, rune(s[i])) {
			return ErrMalformed
		}
	}
	return nil
}

// Hash returns the hex BLAKE3 keyed hash of a secret, the form in which
// secrets are stored and looked up.
func Hash(secret string) string {
	h, err := blake3.NewKeyed(hashKey[:])
	if err != nil {
		// only fails on a key that is not 32 bytes
		panic("token: blake3 keyed init: " + err.Error())
	}
	_, _ = h.Write([]byte(secret))
	return hex.EncodeToString(h.Sum(nil))
}
