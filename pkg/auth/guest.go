package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

const (
	guestNonceSize = 32
	guestTagSize   = 16
)

// ErrInvalidGuestToken is returned for tokens this server did not issue.
var ErrInvalidGuestToken = errors.New("invalid guest session token")

// GuestSessions issues and verifies opaque guest cart tokens.
//
// A token is base64url(nonce || tag) where nonce is 32 random bytes and tag is a
// keyed BLAKE2b MAC over the nonce. Verification needs no storage, and a client
// cannot invent a token the server will adopt. The cache key is a second keyed
// hash so raw tokens never appear in Redis.
type GuestSessions struct {
	macKey []byte
	keyKey []byte
}

// NewGuestSessions derives the MAC and cache-key secrets from secret.
func NewGuestSessions(secret string) (*GuestSessions, error) {
	if secret == "" {
		return nil, errors.New("guest session secret is required")
	}
	root := blake2b.Sum512([]byte(secret))
	mac := blake2b.Sum256(append([]byte("mac:"), root[:]...))
	key := blake2b.Sum256(append([]byte("key:"), root[:]...))
	return &GuestSessions{macKey: mac[:], keyKey: key[:]}, nil
}

// Issue returns a fresh token.
func (g *GuestSessions) Issue() (string, error) {
	nonce := make([]byte, guestNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("reading random nonce: %w", err)
	}
	tag, err := g.tag(nonce)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(append(nonce, tag...)), nil
}

// SessionKey verifies token and returns the stable, non-reversible session id used
// to address the guest cart.
func (g *GuestSessions) SessionKey(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != guestNonceSize+guestTagSize {
		return "", ErrInvalidGuestToken
	}
	nonce, tag := raw[:guestNonceSize], raw[guestNonceSize:]
	want, err := g.tag(nonce)
	if err != nil {
		return "", err
	}
	if subtle.ConstantTimeCompare(tag, want) != 1 {
		return "", ErrInvalidGuestToken
	}

	h, err := blake2b.New256(g.keyKey)
	if err != nil {
		return "", err
	}
	h.Write(nonce)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (g *GuestSessions) tag(nonce []byte) ([]byte, error) {
	h, err := blake2b.New(guestTagSize, g.macKey)
	if err != nil {
		return nil, err
	}
	h.Write(nonce)
	return h.Sum(nil), nil
}
