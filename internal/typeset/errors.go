package typeset

import "errors"

// Sentinel errors for typesetting.
var (
	// ErrUnavailable indicates the engine never became available.
	ErrUnavailable = errors.New("typesetting engine unavailable")

	// ErrExpression indicates one math expression could not be converted.
	ErrExpression = errors.New("math expression could not be typeset")
)
