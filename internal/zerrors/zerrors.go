// Package zerrors defines the error taxonomy shared by the calendar core.
//
// Callers branch on the sentinels with errors.Is; the HTTP layer maps them
// to status codes with HTTPStatus. ErrCredentialExpired wraps
// ErrUnauthorized so "reconnect the calendar" failures still satisfy
// errors.Is(err, ErrUnauthorized).
package zerrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrConflict            = errors.New("conflict")
	ErrCredentialExpired   = fmt.Errorf("credential expired: %w", ErrUnauthorized)
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// NotFoundf returns an error wrapping ErrNotFound.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// Unauthorizedf returns an error wrapping ErrUnauthorized.
func Unauthorizedf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrUnauthorized)...)
}

// Conflictf returns an error wrapping ErrConflict.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrConflict)...)
}

// CredentialExpiredf returns an error wrapping ErrCredentialExpired.
func CredentialExpiredf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrCredentialExpired)...)
}

// ProviderUnavailablef returns an error wrapping ErrProviderUnavailable.
func ProviderUnavailablef(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrProviderUnavailable)...)
}

// HTTPStatus maps a taxonomy error to the status code the thin controllers
// respond with. Unknown errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		// Includes ErrCredentialExpired: the caller must reconnect.
		return http.StatusUnauthorized
	case errors.Is(err, ErrProviderUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
