package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrConflict            = errors.New("state conflict")
	ErrOperationFailed     = errors.New("operation failed")
	ErrInvalidExecContext  = errors.New("invalid execution context")
	ErrGatewayUnavailable  = errors.New("payment gateway unavailable")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrLockNotAcquired     = errors.New("lock not acquired")

	// Voucher redemption errors. Each maps to a distinct user-facing response.
	ErrCodeNotFound    = errors.New("redemption code not found")
	ErrAlreadyRedeemed = errors.New("voucher already redeemed")
	ErrCodeExpired     = errors.New("redemption code expired")
)
