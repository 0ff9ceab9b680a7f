package domain

import (
	"errors"
	"math/big"
	"net/http"
)

// HTTPStatus maps an error kind to a response code.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ParseAmount parses a non-negative decimal string into an integer amount.
func ParseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, Validationf("amount is required")
	}
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, Validationf("malformed amount %q", s)
	}
	if amount.Sign() < 0 {
		return nil, Validationf("amount must not be negative")
	}
	return amount, nil
}
