// Package identity resolves who owns a cart operation: a signed-in user or an
// anonymous guest session. Exactly one applies to every operation.
package identity

import (
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
)

type Kind string

const (
	KindUser  Kind = "user"
	KindGuest Kind = "guest"
)

// Identity is either User or Guest. Switch on the concrete type to handle both.
type Identity interface {
	Kind() Kind
	// ID is the user uuid or guest session key, unique within Kind.
	ID() string
	sealed()
}

// User addresses an authenticated account.
type User struct {
	UserID uuid.UUID
}

func (User) Kind() Kind   { return KindUser }
func (u User) ID() string { return u.UserID.String() }
func (User) sealed()      {}

// Guest addresses an anonymous session. SessionID is the server-derived session
// key, never the raw client token.
type Guest struct {
	SessionID string
}

func (Guest) Kind() Kind   { return KindGuest }
func (g Guest) ID() string { return g.SessionID }
func (Guest) sealed()      {}

// ErrIdentityRequired is the error returned when neither identity is present.
func ErrIdentityRequired() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeIdentity, "sign in or start a guest session to continue")
}

// Resolve picks the identity for an operation. When both a user and a guest
// session are present the user wins; the guest session then only matters as a
// merge source.
func Resolve(userID *uuid.UUID, sessionID string) (Identity, error) {
	if userID != nil && *userID != uuid.Nil {
		return User{UserID: *userID}, nil
	}
	if s := strings.TrimSpace(sessionID); s != "" {
		return Guest{SessionID: s}, nil
	}
	return nil, ErrIdentityRequired()
}

// Key renders an identity as "<kind>:<id>" for logs and process-local maps.
func Key(id Identity) string {
	return string(id.Kind()) + ":" + id.ID()
}
