package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"corpsite/internal/config"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSessionTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	store := cookie.NewStore([]byte("test-secret"))
	r.Use(sessions.Sessions(config.SessionName, store))
	return r
}

func checkSessionAdmin(t *testing.T, value interface{}) (bool, float64) {
	t.Helper()
	router := setupSessionTestRouter()

	router.GET("/check", func(c *gin.Context) {
		if value != nil {
			session := sessions.Default(c)
			session.Set(config.SessionKeyAdminID, value)
			_ = session.Save()
		}
		id, ok := GetAdminIDFromSession(c)
		c.JSON(http.StatusOK, gin.H{"ok": ok, "id": id})
	})

	req, _ := http.NewRequest("GET", "/check", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp["ok"].(bool), resp["id"].(float64) // json unmarshals numbers as float64
}

func TestGetAdminIDFromSession_NoAdmin(t *testing.T) {
	ok, id := checkSessionAdmin(t, nil)
	assert.False(t, ok)
	assert.Equal(t, float64(0), id)
}

func TestGetAdminIDFromSession_ValidInt(t *testing.T) {
	ok, id := checkSessionAdmin(t, 42)
	assert.True(t, ok)
	assert.Equal(t, float64(42), id)
}

func TestGetAdminIDFromSession_InvalidType(t *testing.T) {
	ok, _ := checkSessionAdmin(t, "42")
	assert.False(t, ok)
}

func TestGetAdminIDFromSession_NonPositive(t *testing.T) {
	ok, _ := checkSessionAdmin(t, 0)
	assert.False(t, ok)
}
