package errors

import "errors"

var (
	ErrNotFound = errors.New("reservation not found")

	ErrInvalidID = errors.New("invalid reservation ID format")

	ErrIllegalTransition = errors.New("illegal reservation status transition")

	ErrNotEditable = errors.New("reservation can no longer be edited")
)
