package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
)

// ErrCodeRateLimited код ответа при превышении лимита.
const ErrCodeRateLimited apperror.ErrorCode = "RATE_LIMITED"

// RateLimitMiddleware ограничивает количество запросов с одного IP.
// По умолчанию: 10 запросов в минуту.
func RateLimitMiddleware(limit int64, period time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = 10
	}
	if period <= 0 {
		period = time.Minute
	}

	instance := limiter.New(memory.NewStore(), limiter.Rate{Period: period, Limit: limit})

	return func(c *gin.Context) {
		lctx, err := instance.Get(c.Request.Context(), c.ClientIP())
		if err != nil {
			_ = c.Error(apperror.Wrap(err, apperror.ErrCodeInternal, "ошибка ограничителя запросов"))
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorBody{Error: ErrorDetail{
				Code:    ErrCodeRateLimited,
				Message: "слишком много запросов, попробуйте позже",
			}})
			return
		}

		c.Next()
	}
}
