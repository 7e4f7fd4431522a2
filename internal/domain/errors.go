package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrMarketNotOpen = errors.New("market is not open")
	ErrMarketExpired = errors.New("market has expired")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrLockHeld      = errors.New("lock already held")
)
