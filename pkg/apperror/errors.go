// Package apperror defines the error codes returned to API clients.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes. Clients branch on these, so they never change meaning.
const (
	CodeValidation       = "VAL_001"
	CodeInvalidAccountID = "VAL_002"
	CodePayloadTooLarge  = "VAL_003"

	CodeInvalidCredentials  = "AUTH_001"
	CodeUsernameExists      = "AUTH_002"
	CodeInvalidToken        = "AUTH_003"
	CodeAccountAlreadyBound = "AUTH_004"

	CodeLedgerNotInitialized     = "LEDGER_001"
	CodeLedgerAlreadyInitialized = "LEDGER_002"

	CodeRateLimited = "RATE_001"

	CodeInternal = "SYS_001"
	CodeCanceled = "SYS_002"
)

// AppError carries a client-facing code and message plus the HTTP status it
// renders with. Err is for logs only and never reaches the client.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any *AppError with the same code, so
// errors.Is(err, apperror.ErrInvalidToken()) works on wrapped errors.
func (e *AppError) Is(target error) bool {
	var t *AppError
	return errors.As(target, &t) && t.Code == e.Code
}

// New builds an AppError with no cause.
func New(code, message string, httpStatus int) *AppError {
	return Wrap(code, message, httpStatus, nil)
}

// Wrap builds an AppError around cause.
func Wrap(code, message string, httpStatus int, cause error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus, Err: cause}
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Validation reports malformed input with message shown to the client.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

func ErrInvalidAccountID(err error) *AppError {
	return Wrap(CodeInvalidAccountID, "Invalid account id", http.StatusBadRequest, err)
}

func ErrPayloadTooLarge() *AppError {
	return New(CodePayloadTooLarge, "Request body too large", http.StatusRequestEntityTooLarge)
}

func ErrInvalidCredentials() *AppError {
	return New(CodeInvalidCredentials, "Invalid credentials", http.StatusUnauthorized)
}

func ErrUsernameExists() *AppError {
	return New(CodeUsernameExists, "Username already exists", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)
}

func ErrAccountAlreadyBound() *AppError {
	return New(CodeAccountAlreadyBound, "Account already has a principal", http.StatusConflict)
}

// ErrLedgerNotInitialized guards every authenticated route until the owner is set.
func ErrLedgerNotInitialized() *AppError {
	return New(CodeLedgerNotInitialized, "Ledger is not initialized", http.StatusServiceUnavailable)
}

func ErrLedgerAlreadyInitialized(err error) *AppError {
	return Wrap(CodeLedgerAlreadyInitialized, "Ledger is already initialized", http.StatusConflict, err)
}

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimited, "Rate limit exceeded", http.StatusTooManyRequests)
}

func ErrDatabaseError(err error) *AppError {
	return Wrap(CodeInternal, "Internal database error", http.StatusInternalServerError, err)
}

func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}

// Canceled maps a context error from an abandoned request.
func Canceled(err error) *AppError {
	return Wrap(CodeCanceled, "Request canceled", http.StatusServiceUnavailable, err)
}
