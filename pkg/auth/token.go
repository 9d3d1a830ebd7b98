package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/bakery-backend/pkg/config"
)

// clockSkew tolerates small drift between the auth service and this API.
const clockSkew = 30 * time.Second

var (
	signingMethod = jwt.SigningMethodHS256

	ErrUnknownRole = errors.New("token carries an unknown role")
	ErrNoSubject   = errors.New("token carries no user id")
)

// Verifier checks HS256 bearer tokens from the external auth service. Build it
// once; it is safe for concurrent use.
type Verifier struct {
	key    []byte
	parser *jwt.Parser
}

func NewVerifier(cfg config.JWTConfig) (*Verifier, error) {
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}
	return &Verifier{
		key: []byte(cfg.Secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{signingMethod.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(clockSkew),
		),
	}, nil
}

// Verify returns the claims of a valid token. Roles are normalized to lower
// case; an empty role reads as customer.
func (v *Verifier) Verify(token string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if _, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	}); err != nil {
		return nil, err
	}
	if claims.UserID == uuid.Nil {
		return nil, ErrNoSubject
	}
	role, ok := normalizeRole(claims.Role)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownRole, claims.Role)
	}
	claims.Role = role
	return claims, nil
}

// MintAccessToken signs claims the way the auth service does. The API never
// calls it; contract tests and local tooling do.
func MintAccessToken(cfg config.JWTConfig, now time.Time, ttl time.Duration, userID uuid.UUID, role string) (string, error) {
	if err := checkConfig(cfg); err != nil {
		return "", err
	}
	switch {
	case ttl <= 0:
		return "", errors.New("jwt ttl must be positive")
	case userID == uuid.Nil:
		return "", errors.New("user id is required")
	}

	claims := AccessTokenClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

func checkConfig(cfg config.JWTConfig) error {
	if strings.TrimSpace(cfg.Secret) == "" {
		return errors.New("jwt secret is required")
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		return errors.New("jwt issuer is required")
	}
	return nil
}
