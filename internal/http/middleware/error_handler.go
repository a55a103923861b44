package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-market/internal/logger"
	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
)

// ErrorBody тело ответа с ошибкой.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    apperror.ErrorCode `json:"code"`
	Message string             `json:"message"`
}

// ErrorHandler превращает ошибку, положенную хэндлером в c.Errors, в ответ {"error": {"code", "message"}}.
// Внутренние ошибки логируются, клиенту уходит только общее сообщение.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status, body := Render(err)

		fields := logrus.Fields{
			"error":  err.Error(),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"status": status,
		}
		if status >= http.StatusInternalServerError {
			logger.Log.WithFields(fields).Error("request error")
		} else {
			logger.Log.WithFields(fields).Debug("request rejected")
		}

		c.JSON(status, body)
	}
}

// Render HTTP статус и тело для ошибки.
func Render(err error) (int, ErrorBody) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code == apperror.ErrCodeInternal {
		return http.StatusInternalServerError, ErrorBody{Error: ErrorDetail{
			Code:    apperror.ErrCodeInternal,
			Message: "внутренняя ошибка сервера",
		}}
	}
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return status, ErrorBody{Error: ErrorDetail{Code: appErr.Code, Message: appErr.Message}}
}

// Abort прерывает запрос с ошибкой нужного кода, минуя хэндлер.
func Abort(c *gin.Context, code apperror.ErrorCode, message string) {
	_ = c.Error(apperror.New(code, message))
	c.Abort()
}
