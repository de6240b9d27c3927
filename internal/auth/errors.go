package auth

import "errors"

var (
	ErrAuthRejected  = errors.New("email domain not allowed")
	ErrTokenInvalid  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
	ErrNotConfigured = errors.New("google oauth provider is not configured")
)
