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
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrCodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"
	ErrCodeAlreadySettled    ErrorCode = "ALREADY_SETTLED"
	ErrCodeContention        ErrorCode = "CONTENTION"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeTokenExpired      ErrorCode = "TOKEN_EXPIRED"
	ErrCodeTokenConsumed     ErrorCode = "TOKEN_CONSUMED"
	ErrCodeTokenNotFound     ErrorCode = "TOKEN_NOT_FOUND"
)

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

// Is позволяет сравнивать AppError по коду через errors.Is.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
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
	case ErrCodeNotFound, ErrCodeTokenNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeAlreadySettled, ErrCodeInvalidTransition:
		return http.StatusConflict
	case ErrCodeInsufficientFunds:
		return http.StatusPaymentRequired
	case ErrCodeContention:
		return http.StatusServiceUnavailable
	case ErrCodeTokenExpired, ErrCodeTokenConsumed:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && (appErr.Code == ErrCodeNotFound || appErr.Code == ErrCodeTokenNotFound)
}

func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeValidation
}

// IsAlreadySettled распознаёт мягкую ошибку повторного проведения операции.
func IsAlreadySettled(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeAlreadySettled
}

// IsContention распознаёт транзиентный конфликт одновременного доступа.
func IsContention(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeContention
}

var (
	ErrWalletNotFound      = New(ErrCodeNotFound, "кошелёк не найден")
	ErrDepositNotFound     = New(ErrCodeNotFound, "заявка на пополнение не найдена")
	ErrJobNotFound         = New(ErrCodeNotFound, "задание не найдено")
	ErrApplicationNotFound = New(ErrCodeNotFound, "отклик не найден")
	ErrListingNotFound     = New(ErrCodeNotFound, "объявление не найдено")
	ErrOrderNotFound       = New(ErrCodeNotFound, "заказ не найден")
	ErrUserNotFound        = New(ErrCodeNotFound, "пользователь не найден")
	ErrUnauthorized        = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden           = New(ErrCodeForbidden, "недостаточно прав")

	// Ошибки расчётного ядра. InsufficientFunds и AlreadySettled — ожидаемые
	// состояния, а не сбои: UI показывает их пользователю как есть.
	ErrInsufficientFunds = New(ErrCodeInsufficientFunds, "недостаточно средств на балансе")
	ErrAlreadySettled    = New(ErrCodeAlreadySettled, "операция уже проведена")
	ErrContention        = New(ErrCodeContention, "конфликт одновременного доступа, повторите попытку")
	ErrInvalidTransition = New(ErrCodeInvalidTransition, "недопустимый переход статуса")

	ErrTokenExpired  = New(ErrCodeTokenExpired, "срок действия ссылки истёк")
	ErrTokenConsumed = New(ErrCodeTokenConsumed, "ссылка уже была использована")
	ErrTokenNotFound = New(ErrCodeTokenNotFound, "ссылка не найдена")
)
