package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bakery-backend/internal/notifications"
	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealthReadyDegradesOnRedisFailure(t *testing.T) {
	handler := HealthReady("test", stubPinger{}, stubPinger{err: errors.New("connection refused")}, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data ReadyStatus `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "degraded", envelope.Data.Status)
	assert.Equal(t, "unreachable", envelope.Data.Checks["redis"])
}

func TestHealthReadyFailsWithoutDatabase(t *testing.T) {
	handler := HealthReady("test", stubPinger{err: errors.New("down")}, stubPinger{}, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestHealthLive(t *testing.T) {
	resp := httptest.NewRecorder()
	HealthLive("dev").ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "dev", resp.Header().Get("X-Bakery-Env"))
}

type stubNotificationService struct {
	params notifications.ListParams
	result *notifications.ListResult
	marked uuid.UUID
	err    error
}

func (s *stubNotificationService) List(_ context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	s.params = params
	return s.result, s.err
}

func (s *stubNotificationService) MarkSent(_ context.Context, id uuid.UUID) (time.Time, error) {
	s.marked = id
	if s.err != nil {
		return time.Time{}, s.err
	}
	return time.Date(2026, 10, 14, 8, 30, 0, 0, time.UTC), nil
}

func TestAdminNotificationsListParsesFilters(t *testing.T) {
	orderID := uuid.New()
	svc := &stubNotificationService{result: &notifications.ListResult{
		Items: []models.Notification{{
			ID:            uuid.New(),
			OrderID:       orderID,
			Type:          enums.NotificationTypeOrderConfirmation,
			RecipientName: "Ada",
			Title:         "Order BK-1 received",
			Context:       json.RawMessage(`{"order_number":"BK-1"}`),
			CreatedAt:     time.Now().UTC(),
		}},
		Cursor: "next",
	}}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/notifications?limit=10&pending=true&order_id="+orderID.String(), nil)
	resp := httptest.NewRecorder()
	AdminNotificationsList(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 10, svc.params.Limit)
	assert.True(t, svc.params.PendingOnly)
	require.NotNil(t, svc.params.OrderID)
	assert.Equal(t, orderID, *svc.params.OrderID)

	var envelope struct {
		Data NotificationList `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Len(t, envelope.Data.Items, 1)
	assert.Equal(t, "next", envelope.Data.Cursor)
	assert.JSONEq(t, `{"order_number":"BK-1"}`, string(envelope.Data.Items[0].Context))
}

func TestAdminNotificationsListRejectsLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/notifications?limit=1000", nil)
	resp := httptest.NewRecorder()
	AdminNotificationsList(&stubNotificationService{}, nil).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAdminNotificationMarkSent(t *testing.T) {
	id := uuid.New()
	svc := &stubNotificationService{}
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("notificationId", id.String())
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	resp := httptest.NewRecorder()
	AdminNotificationMarkSent(svc, nil).ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, id, svc.marked)
	assert.JSONEq(t, `{"data":{"sent_at":"2026-10-14T08:30:00Z"}}`, resp.Body.String())

	svc.err = pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	resp = httptest.NewRecorder()
	AdminNotificationMarkSent(svc, nil).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
