package common

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-market/internal/http/middleware"
	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-market/internal/service"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// CurrentActor достаёт пользователя, положенного AuthMiddleware.
func CurrentActor(c *gin.Context) (service.Actor, error) {
	if actor, ok := OptionalActor(c); ok {
		return *actor, nil
	}
	return service.Actor{}, apperror.ErrUnauthorized
}

// OptionalActor возвращает пользователя, если запрос авторизован.
func OptionalActor(c *gin.Context) (*service.Actor, bool) {
	raw, exists := c.Get(middleware.ContextActorKey)
	if !exists {
		return nil, false
	}
	actor, ok := raw.(service.Actor)
	if !ok {
		return nil, false
	}
	return &actor, true
}

// ParseUUIDParam разбирает UUID из параметра пути.
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	param := c.Param(paramName)
	if param == "" {
		return uuid.Nil, apperror.Newf(apperror.ErrCodeBadRequest, "параметр %s отсутствует", paramName)
	}

	parsed, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, apperror.Newf(apperror.ErrCodeBadRequest, "параметр %s должен быть валидным UUID", paramName)
	}
	return parsed, nil
}

// BindJSON разбирает тело запроса. Правила полей проверяет сервис.
func BindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeBadRequest, "некорректное тело запроса")
	}
	return nil
}

// Fail передаёт ошибку в ErrorHandler и прерывает цепочку.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ParseIntQuery читает целый query параметр, при ошибке возвращает fallback.
func ParseIntQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// GetPagination limit и offset из query с размером страницы по умолчанию.
func GetPagination(c *gin.Context, defaultLimit int) (limit, offset int) {
	if defaultLimit <= 0 {
		defaultLimit = DefaultPageSize
	}
	limit = ParseIntQuery(c, "limit", defaultLimit)
	offset = ParseIntQuery(c, "offset", 0)
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
