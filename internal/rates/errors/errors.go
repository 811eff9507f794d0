package errors

import "errors"

var (
	ErrUnknownCity = errors.New("no tax rate configured for city")
)
