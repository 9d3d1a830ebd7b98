package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
)

// AccessTokenClaims is the JWT minted by the external auth service.
type AccessTokenClaims struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

// IsStaff reports whether the bearer may drive the order state machine.
func (c AccessTokenClaims) IsStaff() bool {
	return c.Role == RoleStaff
}

func normalizeRole(role string) (string, bool) {
	switch r := strings.ToLower(strings.TrimSpace(role)); r {
	case "":
		return RoleCustomer, true
	case RoleCustomer, RoleStaff:
		return r, true
	default:
		return "", false
	}
}
