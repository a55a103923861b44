package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
)

// UUIDValidator проверяет, что параметр с указанным именем является валидным UUID.
// Использование: router.GET("/orders/:id", UUIDValidator("id"), handler.Get)
func UUIDValidator(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		idStr := c.Param(paramName)
		if idStr == "" {
			Abort(c, apperror.ErrCodeBadRequest, "параметр "+paramName+" обязателен")
			return
		}

		if _, err := uuid.Parse(idStr); err != nil {
			Abort(c, apperror.ErrCodeBadRequest, "параметр "+paramName+" должен быть валидным UUID")
			return
		}

		c.Next()
	}
}
