package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnknownOrder       = errors.New("unknown order")
	ErrSignatureInvalid   = errors.New("signature invalid")
	ErrGatewayUnreachable = errors.New("gateway unreachable")
	ErrGatewayMalformed   = errors.New("gateway malformed response")
	ErrNoFreeUnit         = errors.New("no free unit")
	ErrStatusConflict     = errors.New("transaction status changed concurrently")
)
