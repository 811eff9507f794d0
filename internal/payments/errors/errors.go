package errors

import "errors"

var (
	ErrNotFound = errors.New("payment not found")

	ErrInvalidID = errors.New("invalid payment ID format")

	ErrIllegalTransition = errors.New("illegal payment status transition")

	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)
