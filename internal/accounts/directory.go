// Package accounts resolves customer contact details for signed-in users.
package accounts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakery-backend/internal/repo"
	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
)

// Contact is the customer data copied onto an order at checkout.
type Contact struct {
	Name  string
	Email *string
	Phone *string
}

// Directory is the read-only account lookup used by checkout.
type Directory interface {
	Resolve(ctx context.Context, userID uuid.UUID) (*Contact, error)
}

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Resolve loads an active account. Unknown or deactivated users are an identity
// error: the token names someone this bakery cannot sell to.
func (r *Repository) Resolve(ctx context.Context, userID uuid.UUID) (*Contact, error) {
	var user models.User
	err := r.DB(ctx).Where("id = ? AND is_active = ?", userID, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeIdentity, "account not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	email := user.Email
	return &Contact{Name: user.Name, Email: &email, Phone: user.Phone}, nil
}
