package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrNotConnected         = errors.New("no wallet identity connected")
	ErrCredentialDerivation = errors.New("credential derivation failed")
	ErrApprovalCheck        = errors.New("approval check failed")
	ErrSessionNotReady      = errors.New("trading session not ready")
	ErrSessionExpired       = errors.New("trading session expired")
	ErrInvalidOrder         = errors.New("invalid order parameters")
	ErrSigningFailed        = errors.New("signing failed")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrRateLimited          = errors.New("rate limited")
)
