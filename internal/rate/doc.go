// Package rate provides fixed-window Redis counters for login and refresh
// throttling. Counters are best-effort: a Redis outage surfaces as
// ErrRedisUnavailable and the engine decides whether to fail open or closed.
package rate
