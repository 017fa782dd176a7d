package api

import (
	"errors"
	"net/http"
)

// Error kinds form the stable machine-readable taxonomy exposed to clients.
const (
	KindQuotaExceeded  = "QuotaExceeded"
	KindValidation     = "ValidationError"
	KindAuthorization  = "AuthorizationError"
	KindInfrastructure = "InfrastructureError"
	KindNotFound       = "NotFound"
)

// AppError carries an HTTP status, a taxonomy kind, and a short
// human-readable message. The message never exposes internal identifiers.
type AppError struct {
	Code    int    `json:"-"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrBadRequest   = &AppError{Code: http.StatusBadRequest, Kind: KindValidation, Message: "bad request"}
	ErrForbidden    = &AppError{Code: http.StatusForbidden, Kind: KindAuthorization, Message: "forbidden"}
	ErrNotFound     = &AppError{Code: http.StatusNotFound, Kind: KindNotFound, Message: "not found"}
	ErrStorage      = &AppError{Code: http.StatusBadGateway, Kind: KindInfrastructure, Message: "image storage failed"}
	ErrAnalysis     = &AppError{Code: http.StatusBadGateway, Kind: KindInfrastructure, Message: "image analysis failed"}
	ErrQuotaBackend = &AppError{Code: http.StatusServiceUnavailable, Kind: KindInfrastructure, Message: "quota check unavailable"}
)

func NewValidationError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Kind: KindValidation, Message: msg}
}

func NewQuotaExceededError(msg string) *AppError {
	return &AppError{Code: http.StatusTooManyRequests, Kind: KindQuotaExceeded, Message: msg}
}

func NewAuthorizationError(msg string) *AppError {
	return &AppError{Code: http.StatusForbidden, Kind: KindAuthorization, Message: msg}
}

// HandleError writes err through the response envelope. Anything that is not
// an *AppError is masked as a generic infrastructure failure so internal
// details never leak.
func HandleError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		Fail(w, appErr)
		return
	}
	Fail(w, &AppError{Code: http.StatusInternalServerError, Kind: KindInfrastructure, Message: "internal server error"})
}
