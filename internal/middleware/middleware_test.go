package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/Dan9191/aromastream/internal/auth"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := UserIDFromContext(r.Context()); ok {
			w.Header().Set("X-User", strconv.FormatInt(id, 10))
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func newTestIssuer(refresh time.Duration) *auth.JWTIssuer {
	return auth.NewJWTIssuer("test-secret", time.Hour, refresh)
}

func TestAuthMiddleware(t *testing.T) {
	logger, _ := test.NewNullLogger()
	issuer := newTestIssuer(time.Minute)
	h := AuthMiddleware(issuer, logger)(echoUser())

	token, err := issuer.Issue(7)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/user", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestAuthMiddleware_AttachesUserAndRefreshes(t *testing.T) {
	logger, _ := test.NewNullLogger()
	issuer := newTestIssuer(time.Minute)
	token, err := issuer.Issue(7)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	AuthMiddleware(issuer, logger)(echoUser()).ServeHTTP(rec, req)

	assert.Equal(t, "7", rec.Header().Get("X-User"))
	refreshed := rec.Header().Get(RefreshedTokenHeader)
	require.NotEmpty(t, refreshed)
	claims, err := issuer.Validate(refreshed)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
}

func TestAuthMiddleware_NoRefreshAfterWindow(t *testing.T) {
	logger, _ := test.NewNullLogger()
	now := time.Now()
	issuer := newTestIssuer(time.Second).WithClock(func() time.Time { return now })
	token, err := issuer.Issue(3)
	require.NoError(t, err)
	now = now.Add(2 * time.Second)

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	AuthMiddleware(issuer, logger)(echoUser()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get(RefreshedTokenHeader))
}

func TestOptionalAuthMiddleware(t *testing.T) {
	logger, _ := test.NewNullLogger()
	issuer := newTestIssuer(time.Minute)
	h := OptionalAuthMiddleware(issuer, logger)(echoUser())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/videos", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("X-User"))

	req := httptest.NewRequest(http.MethodGet, "/videos", nil)
	req.Header.Set("Authorization", "Bearer broken")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"Given token not valid for any token type"}`, rec.Body.String())
}

func TestRequestLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, http.StatusNotFound, entry.Data["status"])
	assert.Equal(t, "/missing", entry.Data["path"])
}

func TestStripTrailingSlash(t *testing.T) {
	var seen string
	h := StripTrailingSlash(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.Path
	}))

	for in, want := range map[string]string{
		"/api/v1/videos/": "/api/v1/videos",
		"/api/v1/videos":  "/api/v1/videos",
		"/":               "/",
	} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, in, nil))
		assert.Equal(t, want, seen, in)
	}
}
