package rest

import (
	"blockRewards/domain"
	"errors"
	"net/http"
)

// ResponseError represent the response error struct
type ResponseError struct {
	Message string `json:"message"`
}

// statusFor maps ledger and credential errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidPassword):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrRewardNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateEmail),
		errors.Is(err, domain.ErrAlreadyReferred),
		errors.Is(err, domain.ErrOutOfStock):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotRegistered):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInsufficientPoints):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrChainTxUnconfirmed):
		return http.StatusAccepted
	case errors.Is(err, domain.ErrChainTxAbandoned):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrChainTxFailed), errors.Is(err, domain.ErrExternalServiceUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(err error) ResponseError {
	if statusFor(err) == http.StatusInternalServerError {
		return ResponseError{Message: "internal server error"}
	}
	return ResponseError{Message: err.Error()}
}
