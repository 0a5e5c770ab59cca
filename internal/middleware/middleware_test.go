package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tienda_perfumes/internal/models"
	"tienda_perfumes/internal/utils"
)

func init() { gin.SetMode(gin.TestMode) }

const secret = "test-secret"

func tokenFor(t *testing.T, role string) string {
	t.Helper()
	tok, err := utils.GenerateJWT(models.User{ID: "u1", Username: "marie", Role: role}, secret, time.Hour)
	require.NoError(t, err)
	return tok
}

func protected(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append([]gin.HandlerFunc{AuthRequired(secret)}, mw...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(CtxUserID), "role": c.GetString(CtxRole)})
	})
	r.GET("/me", handlers...)
	return r
}

func do(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	r := protected()

	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Bearer pas.un.jwt").Code)

	w := do(r, "Bearer "+tokenFor(t, models.RoleUser))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":"u1"`)
}

func TestRequireRole(t *testing.T) {
	r := protected(RequireRole(models.RoleSeller, models.RoleAdmin))

	assert.Equal(t, http.StatusForbidden, do(r, "Bearer "+tokenFor(t, models.RoleUser)).Code)
	assert.Equal(t, http.StatusOK, do(r, "Bearer "+tokenFor(t, models.RoleSeller)).Code)
	assert.Equal(t, http.StatusOK, do(r, "Bearer "+tokenFor(t, models.RoleAdmin)).Code)
}

type memLimiter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (l *memLimiter) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	if l.err != nil {
		return 0, l.err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[key]++
	return l.counts[key], nil
}

func TestAPIRateLimit(t *testing.T) {
	r := gin.New()
	r.GET("/me", APIRateLimit(&memLimiter{counts: map[string]int64{}}, "checkout", 2), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, "").Code)
	w := do(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusTooManyRequests, do(r, "").Code)
}

func TestAPIRateLimit_FailsOpen(t *testing.T) {
	r := gin.New()
	r.GET("/me", APIRateLimit(&memLimiter{err: errors.New("redis down")}, "checkout", 1), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(r, "").Code)
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	r := gin.New()
	r.Use(m.Handler())
	r.GET("/me", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	do(r, "")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("/me", http.MethodGet, "418")))
}
