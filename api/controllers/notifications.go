package controllers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bakery-backend/api/responses"
	"github.com/angelmondragon/bakery-backend/api/validators"
	"github.com/angelmondragon/bakery-backend/internal/notifications"
	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
	"github.com/angelmondragon/bakery-backend/pkg/pagination"
)

type NotificationResponse struct {
	ID             uuid.UUID              `json:"id"`
	OrderID        uuid.UUID              `json:"order_id"`
	Type           enums.NotificationType `json:"type"`
	RecipientName  string                 `json:"recipient_name"`
	RecipientEmail *string                `json:"recipient_email,omitempty"`
	RecipientPhone *string                `json:"recipient_phone,omitempty"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	Context        json.RawMessage        `json:"context,omitempty"`
	SentAt         *time.Time             `json:"sent_at,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

type NotificationList struct {
	Items  []NotificationResponse `json:"items"`
	Cursor string                 `json:"cursor,omitempty"`
}

// AdminNotificationsList pages through recorded notifications, newest first.
// pending=true limits the page to unsent rows; order_id filters to one order.
func AdminNotificationsList(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := notifications.ListParams{
			Limit:       limit,
			Cursor:      strings.TrimSpace(r.URL.Query().Get("cursor")),
			PendingOnly: strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("pending")), "true"),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("order_id")); raw != "" {
			orderID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order_id"))
				return
			}
			params.OrderID = &orderID
		}

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newNotificationList(result))
	}
}

// AdminNotificationMarkSent is called by the external sender after delivery.
// Repeat calls answer with the first acknowledgement time.
func AdminNotificationMarkSent(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		notificationID, err := validators.ParsePathUUID(r, "notificationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sentAt, err := svc.MarkSent(r.Context(), notificationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]time.Time{"sent_at": sentAt})
	}
}

func newNotificationList(result *notifications.ListResult) NotificationList {
	list := NotificationList{Items: []NotificationResponse{}}
	if result == nil {
		return list
	}
	list.Cursor = result.Cursor
	for _, n := range result.Items {
		list.Items = append(list.Items, newNotificationResponse(n))
	}
	return list
}

func newNotificationResponse(n models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:             n.ID,
		OrderID:        n.OrderID,
		Type:           n.Type,
		RecipientName:  n.RecipientName,
		RecipientEmail: n.RecipientEmail,
		RecipientPhone: n.RecipientPhone,
		Title:          n.Title,
		Message:        n.Message,
		Context:        n.Context,
		SentAt:         n.SentAt,
		CreatedAt:      n.CreatedAt,
	}
}
