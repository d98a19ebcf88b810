package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"authcore/internal/delivery/http/middleware"
	"authcore/internal/domain/entity"
	domainerrors "authcore/internal/domain/errors"
	mockusecase "authcore/internal/mocks/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newSessionContext(e *echo.Echo, method, target string, userID uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.ContextKeyUserID, userID)

	return c, rec
}

func TestSessionHandler_ListSessions_Success(t *testing.T) {
	uc := mockusecase.NewMockSessionUsecase(t)
	h := &SessionHandler{uc: uc, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	userID := uuid.New()
	sessionID := uuid.New()
	uc.EXPECT().ListSessions(mock.Anything, userID).Return([]*entity.SessionInfo{
		{
			ID:        sessionID,
			UserID:    userID,
			CreatedAt: time.Now().Add(-time.Hour),
			ExpiresAt: time.Now().Add(time.Hour),
			IsActive:  true,
		},
	}, nil)

	e := newTestEcho()
	c, rec := newSessionContext(e, http.MethodGet, "/sessions", userID)

	assert.NoError(t, h.ListSessions(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), sessionID.String())
	assert.Contains(t, rec.Body.String(), `"isActive":true`)
}

func TestSessionHandler_ListSessions_MissingUser(t *testing.T) {
	uc := mockusecase.NewMockSessionUsecase(t)
	h := &SessionHandler{uc: uc, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	assert.NoError(t, h.ListSessions(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionHandler_RevokeSession_Success(t *testing.T) {
	uc := mockusecase.NewMockSessionUsecase(t)
	h := &SessionHandler{uc: uc, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	userID := uuid.New()
	sessionID := uuid.New()
	uc.EXPECT().RevokeSession(mock.Anything, userID, sessionID).Return(nil)

	e := newTestEcho()
	c, rec := newSessionContext(e, http.MethodDelete, "/sessions/"+sessionID.String(), userID)
	c.SetParamNames("id")
	c.SetParamValues(sessionID.String())

	assert.NoError(t, h.RevokeSession(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionHandler_RevokeSession_InvalidID(t *testing.T) {
	uc := mockusecase.NewMockSessionUsecase(t)
	h := &SessionHandler{uc: uc, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	e := newTestEcho()
	c, rec := newSessionContext(e, http.MethodDelete, "/sessions/not-a-uuid", uuid.New())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	assert.NoError(t, h.RevokeSession(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionHandler_RevokeSession_WrongOwner(t *testing.T) {
	uc := mockusecase.NewMockSessionUsecase(t)
	h := &SessionHandler{uc: uc, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	userID := uuid.New()
	sessionID := uuid.New()
	uc.EXPECT().RevokeSession(mock.Anything, userID, sessionID).
		Return(domainerrors.ErrForbidden)

	e := newTestEcho()
	c, rec := newSessionContext(e, http.MethodDelete, "/sessions/"+sessionID.String(), userID)
	c.SetParamNames("id")
	c.SetParamValues(sessionID.String())

	err := h.RevokeSession(c)
	assert.Error(t, err)

	handleError(t, err, c)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSessionHandler_RevokeAllSessions_Success(t *testing.T) {
	uc := mockusecase.NewMockSessionUsecase(t)
	h := &SessionHandler{uc: uc, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	userID := uuid.New()
	uc.EXPECT().RevokeAllSessions(mock.Anything, userID).Return(nil)

	e := newTestEcho()
	c, rec := newSessionContext(e, http.MethodDelete, "/sessions", userID)

	assert.NoError(t, h.RevokeAllSessions(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionHandler_PurgeExpired_Success(t *testing.T) {
	uc := mockusecase.NewMockSessionUsecase(t)
	h := &SessionHandler{uc: uc, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	uc.EXPECT().PurgeExpired(mock.Anything).Return(int64(7), nil)

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodDelete, "/admin/sessions/expired", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	assert.NoError(t, h.PurgeExpired(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"purged":7`)
}
