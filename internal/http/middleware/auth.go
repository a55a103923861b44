package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-market/internal/service"
)

// ContextActorKey ключ, под которым в gin.Context лежит service.Actor.
const ContextActorKey = "actor"

// Authenticator проверяет токен и загружает пользователя.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (service.Actor, error)
}

// AuthMiddleware требует access токен. Роль и блокировка берутся из базы на каждый запрос.
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			_ = c.Error(apperror.ErrUnauthorized)
			c.Abort()
			return
		}

		actor, err := auth.Authenticate(c.Request.Context(), raw)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(ContextActorKey, actor)
		c.Next()
	}
}

// OptionalAuth подставляет пользователя, если токен передан и валиден. Без токена запрос идёт анонимно.
func OptionalAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, ok := bearerToken(c); ok {
			if actor, err := auth.Authenticate(c.Request.Context(), raw); err == nil {
				c.Set(ContextActorKey, actor)
			}
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return raw, raw != ""
}
