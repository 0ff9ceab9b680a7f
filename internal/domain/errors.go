package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every operation failure wraps exactly one of these so callers
// (and the HTTP layer) can classify without string matching.
var (
	// ErrValidation covers malformed input: zero or negative amounts and
	// prices, empty required strings, future-dated vintages.
	ErrValidation = errors.New("validation error")

	// ErrAuthorization covers missing capabilities and not-resource-owner.
	ErrAuthorization = errors.New("authorization error")

	// ErrState covers operations that are well-formed but illegal in the
	// current state: already retired, already verified, inactive listing,
	// insufficient balance or payment, buying one's own listing.
	ErrState = errors.New("state error")

	// ErrNotFound covers identifiers outside the issued range.
	ErrNotFound = errors.New("not found")
)

func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Authorizationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrAuthorization, fmt.Sprintf(format, args...))
}

func Statef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrState, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
