package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"corpsite/internal/models"
	contextutils "corpsite/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupFeedbackRouter(svc *MockFeedbackService, limiter *stubLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	var h *FeedbackHandler
	if limiter != nil {
		h = NewFeedbackHandler(svc, limiter, testLogger())
	} else {
		h = NewFeedbackHandler(svc, nil, testLogger())
	}
	router.POST("/api/feedback", h.SubmitFeedback)
	router.GET("/api/feedback", h.MethodNotAllowed)
	return router
}

func postFeedback(router *gin.Engine, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req, _ := http.NewRequest(http.MethodPost, "/api/feedback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &response)
	return w, response
}

func TestSubmitFeedback_Success(t *testing.T) {
	svc := new(MockFeedbackService)
	svc.On("CreateFeedback", mock.Anything, &models.FeedbackSubmission{
		Type:    "inquiry",
		Content: "資料を送ってください。",
		Email:   "taro@example.com",
	}).Return(&models.Feedback{ID: 1}, nil)

	w, response := postFeedback(setupFeedbackRouter(svc, nil),
		`{"feedback-type":"inquiry","feedback-content":"資料を送ってください。","email":"taro@example.com"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, response["success"])
	assert.Equal(t, MsgFeedbackThanks, response["message"])
	svc.AssertExpectations(t)
}

func TestSubmitFeedback_InvalidJSON(t *testing.T) {
	for _, body := range []string{"", "not json", "{}", "[]", `"text"`, "null"} {
		t.Run(body, func(t *testing.T) {
			svc := new(MockFeedbackService)
			w, response := postFeedback(setupFeedbackRouter(svc, nil), body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, MsgInvalidJSON, response["error"])
			svc.AssertNotCalled(t, "CreateFeedback", mock.Anything, mock.Anything)
		})
	}
}

func TestSubmitFeedback_ValidationMessagesPassThrough(t *testing.T) {
	svc := new(MockFeedbackService)
	msg := "フィードバックの種類を選択してください\nフィードバックの内容を入力してください"
	svc.On("CreateFeedback", mock.Anything, mock.Anything).
		Return(nil, contextutils.NewAppError(contextutils.ErrorCodeValidationFailed, contextutils.SeverityWarn, msg, ""))

	w, response := postFeedback(setupFeedbackRouter(svc, nil), `{"name":"太郎"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, msg, response["error"])
}

func TestSubmitFeedback_StorageFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"database", contextutils.WrapError(contextutils.ErrDatabaseQuery, "insert failed"), MsgDatabaseError},
		{"other", contextutils.ErrInternalError, MsgUnexpectedError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockFeedbackService)
			svc.On("CreateFeedback", mock.Anything, mock.Anything).Return(nil, tt.err)

			w, response := postFeedback(setupFeedbackRouter(svc, nil), `{"feedback-type":"bug","feedback-content":"壊れています"}`)

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, tt.want, response["error"])
		})
	}
}

func TestSubmitFeedback_RateLimited(t *testing.T) {
	svc := new(MockFeedbackService)
	limiter := &stubLimiter{allow: false}

	w, response := postFeedback(setupFeedbackRouter(svc, limiter), `{"feedback-type":"bug","feedback-content":"x"}`)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, response["error"])
	require.Len(t, limiter.keys, 1)
	assert.True(t, strings.HasPrefix(limiter.keys[0], "feedback:"))
	svc.AssertNotCalled(t, "CreateFeedback", mock.Anything, mock.Anything)
}

func TestSubmitFeedback_WrongMethod(t *testing.T) {
	router := setupFeedbackRouter(new(MockFeedbackService), nil)

	req, _ := http.NewRequest(http.MethodGet, "/api/feedback", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.JSONEq(t, `{"error":"不正なリクエストです"}`, w.Body.String())
}
