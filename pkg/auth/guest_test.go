package auth

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestGuestTokenRoundTrip(t *testing.T) {
	sessions, err := NewGuestSessions("bakery-guest")
	if err != nil {
		t.Fatalf("new guest sessions: %v", err)
	}

	token, err := sessions.Issue()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if strings.ContainsAny(token, "+/=") {
		t.Fatalf("expected url-safe unpadded token, got %q", token)
	}

	first, err := sessions.SessionKey(token)
	if err != nil {
		t.Fatalf("session key: %v", err)
	}
	second, err := sessions.SessionKey(token)
	if err != nil {
		t.Fatalf("session key: %v", err)
	}
	if first != second {
		t.Fatal("session key must be stable for a token")
	}
	if strings.Contains(first, token) || len(first) != 64 {
		t.Fatalf("unexpected session key %q", first)
	}

	other, _ := sessions.Issue()
	otherKey, _ := sessions.SessionKey(other)
	if otherKey == first {
		t.Fatal("distinct tokens must map to distinct sessions")
	}
}

func TestGuestTokenRejectsForgeries(t *testing.T) {
	sessions, _ := NewGuestSessions("bakery-guest")
	foreign, _ := NewGuestSessions("another-deployment")
	foreignToken, _ := foreign.Issue()

	token, _ := sessions.Issue()
	raw, _ := base64.RawURLEncoding.DecodeString(token)
	raw[0] ^= 0xff
	tampered := base64.RawURLEncoding.EncodeToString(raw)

	invented := base64.RawURLEncoding.EncodeToString(make([]byte, 48))

	for name, candidate := range map[string]string{
		"empty":    "",
		"not b64":  "%%%",
		"short":    base64.RawURLEncoding.EncodeToString([]byte("guest")),
		"tampered": tampered,
		"invented": invented,
		"foreign":  foreignToken,
	} {
		if _, err := sessions.SessionKey(candidate); !errors.Is(err, ErrInvalidGuestToken) {
			t.Fatalf("%s: expected ErrInvalidGuestToken, got %v", name, err)
		}
	}

	if _, err := NewGuestSessions(""); err == nil {
		t.Fatal("expected empty secret to be rejected")
	}
}
