package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
	"github.com/angelmondragon/bakery-backend/pkg/pagination"
)

// Service is the staff view over recorded notifications plus the delivery
// acknowledgement the external sender posts back.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	// MarkSent returns when the notification was first acknowledged. Repeated
	// calls keep that original time.
	MarkSent(ctx context.Context, notificationID uuid.UUID) (time.Time, error)
}

type ListParams struct {
	OrderID     *uuid.UUID
	Limit       int
	Cursor      string
	PendingOnly bool
}

type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, listNotificationsParams{
		OrderID:     params.OrderID,
		Limit:       params.Limit,
		Cursor:      cursor,
		PendingOnly: params.PendingOnly,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	result := &ListResult{Items: rows}
	if result.Items == nil {
		result.Items = []models.Notification{}
	}
	if next != nil {
		result.Cursor = next.Encode()
	}
	return result, nil
}

func (s *service) MarkSent(ctx context.Context, notificationID uuid.UUID) (time.Time, error) {
	if notificationID == uuid.Nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	sentAt, err := s.repo.MarkSent(ctx, notificationID, s.now().UTC())
	if err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification sent")
	}
	if sentAt == nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return sentAt.UTC(), nil
}
