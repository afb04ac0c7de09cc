package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/maikekai/surf-house-backend/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJWTService() *jwt.Service {
	return jwt.NewService("test-secret-key-that-is-long-enough-for-hs256", time.Hour, "maikekai")
}

func protectedRouter(middlewares ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/", middlewares...)
	group.GET("/protected", func(c *gin.Context) {
		userCtx, _ := GetUserContext(c)
		c.JSON(http.StatusOK, gin.H{"role": userCtx.Role})
	})
	return router
}

func TestAuthMiddleware(t *testing.T) {
	jwtSvc := newJWTService()
	router := protectedRouter(AuthMiddleware(jwtSvc))

	t.Run("valid token passes", func(t *testing.T) {
		token, _, err := jwtSvc.Generate(uuid.New(), "staff@maikekai.cr", "admin")
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "admin")
	})

	t.Run("missing header rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed token rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestOptionalAuthLetsAnonymousThrough(t *testing.T) {
	jwtSvc := newJWTService()
	router := protectedRouter(OptionalAuth(jwtSvc))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRole(t *testing.T) {
	jwtSvc := newJWTService()
	router := protectedRouter(AuthMiddleware(jwtSvc), RequireRole("admin", "volunteer"))

	t.Run("listed role passes", func(t *testing.T) {
		token, _, err := jwtSvc.Generate(uuid.New(), "vol@maikekai.cr", "volunteer")
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("guest role forbidden", func(t *testing.T) {
		token, _, err := jwtSvc.Generate(uuid.New(), "guest@example.com", "guest")
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestSweepSecret(t *testing.T) {
	router := protectedRouter(SweepSecret("super-secret"))

	t.Run("correct secret passes", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("X-Sweep-Secret", "super-secret")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("X-Sweep-Secret", "nope")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("empty configured secret rejects everything", func(t *testing.T) {
		unguarded := protectedRouter(SweepSecret(""))
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("X-Sweep-Secret", "")
		unguarded.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
