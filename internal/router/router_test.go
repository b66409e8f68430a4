package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"socialpulse/internal/db/dbtest"
	"socialpulse/internal/moderation"
)

func newEngine(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	require.NoError(t, RegisterRoutes(r, Deps{
		DB:         dbtest.New(t),
		Moderation: moderation.NewEngine(moderation.DefaultThresholds()),
		Logger:     zaptest.NewLogger(t),
	}))
	return r
}

func TestHealthAndMetrics(t *testing.T) {
	r := newEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestProtectedRoutesRequireLogin(t *testing.T) {
	r := newEngine(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/posts"},
		{http.MethodPost, "/api/posts/p1/comments"},
		{http.MethodDelete, "/api/comments/c1"},
		{http.MethodPost, "/api/votes"},
		{http.MethodDelete, "/api/votes/post/p1/emotion"},
		{http.MethodGet, "/api/reviews"},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}")))
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)
	}
}
