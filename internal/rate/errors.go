package rate

import "errors"

var (
	// ErrRateLimited is returned when a counter exceeds its configured budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps transport and server failures from Redis.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
