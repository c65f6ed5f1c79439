package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

var (
	ErrEmptyQuery         = errors.New("empty query")
	ErrQueryTooLong       = errors.New("query too long")
	ErrInvalidCount       = errors.New("count must be positive")
	ErrCountTooLarge      = errors.New("count exceeds maximum")
	ErrInvalidStart       = errors.New("start must be positive")
	ErrInvalidOrientation = errors.New("unknown orientation")
)

var (
	ErrAggregateNotFound  = errors.New("aggregate not found")
	ErrAggregateExpired   = errors.New("aggregate expired")
	ErrAllProvidersFailed = errors.New("all providers failed")
	ErrProviderNotFound   = errors.New("provider not registered")
	ErrNoProviders        = errors.New("no providers configured")
)
