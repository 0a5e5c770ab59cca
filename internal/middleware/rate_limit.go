package middleware

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const APIWindow = 1 * time.Minute

type Limiter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// APIRateLimit limite le nombre de requêtes par IP et par groupe de routes.
// Si Redis ne répond pas, la requête passe.
func APIRateLimit(limiter Limiter, scope string, max int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || max <= 0 {
			c.Next()
			return
		}

		key := "rate:" + scope + ":" + c.ClientIP()
		count, err := limiter.Incr(c.Request.Context(), key, APIWindow)
		if err != nil {
			log.Printf("⚠️ Rate limit indisponible: %v", err)
			c.Next()
			return
		}

		remaining := int64(max) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(max))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(max) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Trop de requêtes. Réessayez dans 1 minute",
				"retry_after": int(APIWindow.Seconds()),
			})
			return
		}
		c.Next()
	}
}
