package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest        ErrorCode = "BAD_REQUEST"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeInvalidState      ErrorCode = "INVALID_STATE"
	ErrCodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
)

// AppError ошибка с кодом из таксономии, понятная транспортному слою.
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду и сообщению, чтобы errors.Is работал с сентинелами.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Newf как New, но с форматированием сообщения.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest:
		return http.StatusBadRequest
	case ErrCodeValidation:
		return http.StatusUnprocessableEntity
	case ErrCodeConflict, ErrCodeInvalidState:
		return http.StatusConflict
	case ErrCodeInsufficientFunds:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf возвращает код ошибки через всю цепочку обёрток.
// Для ошибок вне таксономии возвращается ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// Is проверяет, что ошибка принадлежит указанному виду.
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return Is(err, ErrCodeNotFound)
}

func IsForbidden(err error) bool {
	return Is(err, ErrCodeForbidden)
}

func IsValidation(err error) bool {
	return Is(err, ErrCodeValidation)
}

func IsConflict(err error) bool {
	return Is(err, ErrCodeConflict)
}

func IsInvalidState(err error) bool {
	return Is(err, ErrCodeInvalidState)
}

func IsInsufficientFunds(err error) bool {
	return Is(err, ErrCodeInsufficientFunds)
}

var (
	ErrOrderNotFound      = New(ErrCodeNotFound, "заказ не найден")
	ErrBidNotFound        = New(ErrCodeNotFound, "отклик не найден")
	ErrDisputeNotFound    = New(ErrCodeNotFound, "спор не найден")
	ErrUserNotFound       = New(ErrCodeNotFound, "пользователь не найден")
	ErrCategoryNotFound   = New(ErrCodeNotFound, "категория не найдена")
	ErrUnauthorized       = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden          = New(ErrCodeForbidden, "недостаточно прав")
	ErrUserBanned         = New(ErrCodeForbidden, "пользователь заблокирован")
	ErrInvalidCredentials = New(ErrCodeUnauthorized, "неверные учетные данные")
	ErrInsufficientFunds  = New(ErrCodeInsufficientFunds, "недостаточно средств")
)
