// Package sessionstore provides the admin console session backend. Sessions
// live in Redis when it is configured and in signed cookies otherwise.
package sessionstore

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"net/http"
	"time"

	"corpsite/internal/config"
	contextutils "corpsite/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	gsessions "github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps session values in Redis and only the signed session id in
// the cookie.
type RedisStore struct {
	client  *redis.Client
	codecs  []securecookie.Codec
	options *gsessions.Options
	prefix  string
	ttl     time.Duration
}

// NewRedisStore builds a store signing cookies with keyPairs. ttl applies when
// the session options carry no MaxAge.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration, keyPairs ...[]byte) *RedisStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = config.SessionMaxAge
	}
	s := &RedisStore{
		client:  client,
		codecs:  securecookie.CodecsFromPairs(keyPairs...),
		options: &gsessions.Options{Path: config.SessionPath, MaxAge: int(ttl.Seconds())},
		prefix:  prefix,
		ttl:     ttl,
	}
	s.setCodecMaxAge(s.options.MaxAge)
	return s
}

// Options implements sessions.Store
func (s *RedisStore) Options(opts sessions.Options) {
	s.options = opts.ToGorillaOptions()
	s.setCodecMaxAge(s.options.MaxAge)
}

func (s *RedisStore) setCodecMaxAge(age int) {
	if age <= 0 {
		age = int(s.ttl.Seconds())
	}
	for _, c := range s.codecs {
		if sc, ok := c.(*securecookie.SecureCookie); ok {
			sc.MaxAge(age)
		}
	}
}

// Get returns the session cached for the request or loads it
func (s *RedisStore) Get(r *http.Request, name string) (*gsessions.Session, error) {
	return gsessions.GetRegistry(r).Get(s, name)
}

// New loads the session named by the request cookie. A missing, forged or
// expired cookie yields a fresh empty session.
func (s *RedisStore) New(r *http.Request, name string) (*gsessions.Session, error) {
	session := gsessions.NewSession(s, name)
	opts := *s.options
	session.Options = &opts
	session.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}
	var id string
	if err := securecookie.DecodeMulti(name, c.Value, &id, s.codecs...); err != nil {
		return session, nil
	}

	found, err := s.load(r.Context(), id, session)
	if err != nil {
		return session, err
	}
	if found {
		session.ID = id
		session.IsNew = false
	}
	return session, nil
}

// Save persists the session and writes the cookie. A negative MaxAge deletes
// both.
func (s *RedisStore) Save(r *http.Request, w http.ResponseWriter, session *gsessions.Session) error {
	ctx := r.Context()
	if session.Options == nil {
		opts := *s.options
		session.Options = &opts
	}

	if session.Options.MaxAge < 0 {
		if session.ID != "" {
			if err := s.client.Del(ctx, s.key(session.ID)).Err(); err != nil {
				return contextutils.WrapErrorf(contextutils.ErrServiceUnavailable, "failed to delete session: %v", err)
			}
		}
		http.SetCookie(w, gsessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(session.Values); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to encode session: %v", err)
	}
	ttl := s.ttl
	if session.Options.MaxAge > 0 {
		ttl = time.Duration(session.Options.MaxAge) * time.Second
	}
	if err := s.client.Set(ctx, s.key(session.ID), buf.Bytes(), ttl).Err(); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrServiceUnavailable, "failed to store session: %v", err)
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.codecs...)
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to sign session cookie: %v", err)
	}
	http.SetCookie(w, gsessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

// Regenerate moves session to a new id on its next Save and deletes the state
// stored under the current one. Cookie sessions keep no server-side id and are
// left as they are.
func Regenerate(ctx context.Context, session sessions.Session) error {
	inner, ok := session.(interface{ Session() *gsessions.Session })
	if !ok {
		return nil
	}
	gs := inner.Session()
	if gs == nil {
		return nil
	}
	store, ok := gs.Store().(*RedisStore)
	if !ok {
		return nil
	}
	return store.regenerate(ctx, gs)
}

func (s *RedisStore) regenerate(ctx context.Context, session *gsessions.Session) error {
	if session.ID != "" {
		if err := s.client.Del(ctx, s.key(session.ID)).Err(); err != nil {
			return contextutils.WrapErrorf(contextutils.ErrServiceUnavailable, "failed to drop old session: %v", err)
		}
	}
	session.ID = ""
	session.IsNew = true
	return nil
}

func (s *RedisStore) load(ctx context.Context, id string, session *gsessions.Session) (bool, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, contextutils.WrapErrorf(contextutils.ErrServiceUnavailable, "failed to load session: %v", err)
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&session.Values); err != nil {
		// unreadable payloads are treated as a logged-out session
		return false, nil
	}
	return true, nil
}

func (s *RedisStore) key(id string) string {
	return s.prefix + "session:" + id
}

// NewStore picks the Redis store when client is set and the cookie store
// otherwise, and applies the console cookie options to either.
func NewStore(cfg *config.Config, client *redis.Client) sessions.Store {
	secret := []byte(cfg.Server.SessionSecret)

	var store sessions.Store
	if client != nil {
		store = NewRedisStore(client, cfg.Redis.KeyPrefix, cfg.Session.MaxAge, secret)
	} else {
		store = cookie.NewStore(secret)
	}
	store.Options(CookieOptions(cfg))
	return store
}

// CookieOptions returns the admin session cookie settings
func CookieOptions(cfg *config.Config) sessions.Options {
	maxAge := cfg.Session.MaxAge
	if maxAge <= 0 {
		maxAge = config.SessionMaxAge
	}
	return sessions.Options{
		Path:     config.SessionPath,
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: config.SessionHTTPOnly,
		Secure:   cfg.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}
