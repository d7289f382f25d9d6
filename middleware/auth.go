package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hellasmmo/server/cache"
)

const PlayerKey = "player"

// SessionKey is the cache key under which the account gateway stores the player
// name for a bearer token.
func SessionKey(token string) string { return "session:" + token }

// Auth resolves the Bearer token to a player name through the session cache.
func Auth(c cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		cacheCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		player, err := c.Get(cacheCtx, SessionKey(token))
		if err != nil || player == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}

		ctx.Set(PlayerKey, player)
		ctx.Next()
	}
}

// GetPlayer retrieves the authenticated player name from the Gin context.
func GetPlayer(c *gin.Context) string {
	if v, exists := c.Get(PlayerKey); exists {
		return v.(string)
	}
	return ""
}
