package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"tessera/internal/domain"
	"tessera/internal/handler"
	"tessera/internal/service"
	"tessera/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newSessionHandler() (*handler.SessionHandler, *mocks.MockSessionService, *mocks.MockGridService) {
	sessionSvc := new(mocks.MockSessionService)
	gridSvc := new(mocks.MockGridService)
	return handler.NewSessionHandler(sessionSvc, gridSvc), sessionSvc, gridSvc
}

func TestSessionHandler_Create_Success(t *testing.T) {
	h, sessionSvc, _ := newSessionHandler()

	projectID := uuid.New()
	expected := &domain.ExtractionSession{
		ID:        uuid.New(),
		ProjectID: projectID,
		Status:    domain.SessionStatusInProgress,
	}
	sessionSvc.On("CreateSession", mock.Anything, mock.MatchedBy(func(in service.CreateSessionInput) bool {
		return in.ProjectID == projectID && in.DocumentCount == 4
	})).Return(expected, nil)

	body, _ := json.Marshal(map[string]interface{}{
		"project_id":     projectID,
		"document_count": 4,
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp handler.APIResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	sessionSvc.AssertExpectations(t)
}

func TestSessionHandler_Create_MissingProjectID(t *testing.T) {
	h, _, _ := newSessionHandler()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewReader([]byte(`{}`)))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_GetByID_NotFound(t *testing.T) {
	h, sessionSvc, _ := newSessionHandler()

	sessionID := uuid.New()
	sessionSvc.On("GetSession", mock.Anything, sessionID).Return(nil, domain.ErrSessionNotFound)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/sessions/"+sessionID.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: sessionID.String()}}

	h.GetByID(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp handler.APIResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "SESSION_NOT_FOUND", resp.Error.Code)
}

func TestSessionHandler_GetByID_InvalidID(t *testing.T) {
	h, _, _ := newSessionHandler()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/sessions/not-a-uuid", nil)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

	h.GetByID(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_Close_DefaultsToCompleted(t *testing.T) {
	h, sessionSvc, _ := newSessionHandler()

	sessionID := uuid.New()
	closed := &domain.ExtractionSession{ID: sessionID, Status: domain.SessionStatusCompleted}
	sessionSvc.On("CloseSession", mock.Anything, sessionID, domain.SessionStatusCompleted).
		Return(closed, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID.String()+"/close", bytes.NewReader(nil))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: sessionID.String()}}

	h.Close(c)

	assert.Equal(t, http.StatusOK, w.Code)
	sessionSvc.AssertExpectations(t)
}

func TestSessionHandler_Close_Conflict(t *testing.T) {
	h, sessionSvc, _ := newSessionHandler()

	sessionID := uuid.New()
	sessionSvc.On("CloseSession", mock.Anything, sessionID, domain.SessionStatusFailed).
		Return(nil, domain.ErrSessionClosed)

	body, _ := json.Marshal(map[string]string{"status": "failed"})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID.String()+"/close", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: sessionID.String()}}

	h.Close(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSessionHandler_Export_RejectsUnknownFormat(t *testing.T) {
	h, _, _ := newSessionHandler()

	sessionID := uuid.New()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/sessions/"+sessionID.String()+"/export?format=pdf", nil)
	c.Params = gin.Params{{Key: "id", Value: sessionID.String()}}

	h.Export(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
