package sessionstore

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"corpsite/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{SessionSecret: "test-secret"},
		Redis:   config.RedisConfig{URL: "redis://unused", KeyPrefix: "test:"},
		Session: config.SessionConfig{IdleTimeout: time.Hour, MaxAge: 2 * time.Hour},
	}
}

func newRouter(store sessions.Store) *gin.Engine {
	r := gin.New()
	r.Use(sessions.Sessions(config.SessionName, store))
	r.GET("/set", func(c *gin.Context) {
		s := sessions.Default(c)
		s.Set(config.SessionKeyAdminID, 42)
		s.Set(config.SessionKeyCSRFToken, "abc")
		if err := s.Save(); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})
	r.GET("/login", func(c *gin.Context) {
		s := sessions.Default(c)
		if err := Regenerate(c.Request.Context(), s); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		s.Clear()
		s.Set(config.SessionKeyAdminID, 42)
		if err := s.Save(); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})
	r.GET("/visit", func(c *gin.Context) {
		s := sessions.Default(c)
		s.Set(config.SessionKeyCSRFToken, "pre-login")
		_ = s.Save()
		c.Status(http.StatusOK)
	})
	r.GET("/get", func(c *gin.Context) {
		s := sessions.Default(c)
		id, _ := s.Get(config.SessionKeyAdminID).(int)
		c.JSON(http.StatusOK, gin.H{"admin_id": id})
	})
	r.GET("/logout", func(c *gin.Context) {
		s := sessions.Default(c)
		s.Clear()
		s.Options(sessions.Options{Path: config.SessionPath, MaxAge: -1})
		_ = s.Save()
		c.Status(http.StatusOK)
	})
	return r
}

func do(r *gin.Engine, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == config.SessionName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", config.SessionName)
	return nil
}

func TestRedisStore_RoundTrip(t *testing.T) {
	mr, client := newRedis(t)
	store := NewStore(testConfig(), client)
	r := newRouter(store)

	w := do(r, "/set", nil)
	require.Equal(t, http.StatusOK, w.Code)
	c := sessionCookie(t, w)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, 7200, c.MaxAge)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "test:session:"))
	assert.Equal(t, 2*time.Hour, mr.TTL(keys[0]))

	// the cookie carries only the signed id
	assert.NotContains(t, c.Value, "abc")

	w = do(r, "/get", c)
	assert.JSONEq(t, `{"admin_id":42}`, w.Body.String())
}

func TestRedisStore_ForgedCookieStartsFreshSession(t *testing.T) {
	_, client := newRedis(t)
	r := newRouter(NewStore(testConfig(), client))

	w := do(r, "/get", &http.Cookie{Name: config.SessionName, Value: "forged"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"admin_id":0}`, w.Body.String())
}

func TestRedisStore_ExpiredKeyStartsFreshSession(t *testing.T) {
	mr, client := newRedis(t)
	r := newRouter(NewStore(testConfig(), client))

	c := sessionCookie(t, do(r, "/set", nil))
	mr.FastForward(3 * time.Hour)

	w := do(r, "/get", c)
	assert.JSONEq(t, `{"admin_id":0}`, w.Body.String())
}

func TestRedisStore_NegativeMaxAgeDeletesSession(t *testing.T) {
	mr, client := newRedis(t)
	r := newRouter(NewStore(testConfig(), client))

	c := sessionCookie(t, do(r, "/set", nil))
	require.Len(t, mr.Keys(), 1)

	w := do(r, "/logout", c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, mr.Keys())
	assert.Equal(t, "", sessionCookie(t, w).Value)

	w = do(r, "/get", c)
	assert.JSONEq(t, `{"admin_id":0}`, w.Body.String())
}

func TestRedisStore_LoginIssuesNewSessionID(t *testing.T) {
	mr, client := newRedis(t)
	r := newRouter(NewStore(testConfig(), client))

	planted := sessionCookie(t, do(r, "/visit", nil))
	require.Len(t, mr.Keys(), 1)
	oldKey := mr.Keys()[0]

	w := do(r, "/login", planted)
	require.Equal(t, http.StatusOK, w.Code)
	issued := sessionCookie(t, w)
	assert.NotEqual(t, planted.Value, issued.Value)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.NotEqual(t, oldKey, keys[0])

	// the cookie handed out before sign-in no longer resolves to the admin
	w = do(r, "/get", planted)
	assert.JSONEq(t, `{"admin_id":0}`, w.Body.String())
	w = do(r, "/get", issued)
	assert.JSONEq(t, `{"admin_id":42}`, w.Body.String())
}

func TestRegenerate_CookieStoreIsNoop(t *testing.T) {
	r := newRouter(NewStore(testConfig(), nil))

	planted := sessionCookie(t, do(r, "/visit", nil))
	w := do(r, "/login", planted)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(r, "/get", sessionCookie(t, w))
	assert.JSONEq(t, `{"admin_id":42}`, w.Body.String())
}

func TestRedisStore_SaveFailsWhenRedisDown(t *testing.T) {
	mr, client := newRedis(t)
	r := newRouter(NewStore(testConfig(), client))
	mr.Close()

	w := do(r, "/set", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestNewStore_CookieFallback(t *testing.T) {
	r := newRouter(NewStore(testConfig(), nil))

	c := sessionCookie(t, do(r, "/set", nil))
	w := do(r, "/get", c)
	assert.JSONEq(t, `{"admin_id":42}`, w.Body.String())
}

func TestCookieOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Server.SecureCookies = true
	opts := CookieOptions(cfg)
	assert.Equal(t, config.SessionPath, opts.Path)
	assert.Equal(t, 7200, opts.MaxAge)
	assert.True(t, opts.Secure)
	assert.True(t, opts.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, opts.SameSite)

	cfg.Session.MaxAge = 0
	assert.Equal(t, int(config.SessionMaxAge.Seconds()), CookieOptions(cfg).MaxAge)
}
