// Package authcore provides the authentication core for a user-facing store
// backend: argon2id credential verification, HS256 JWT access tokens,
// rotating refresh tokens with Redis-backed replay protection, and account
// lifecycle management.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (TokenPair, AuthResult, MetricsSnapshot). Flow
// orchestration, rate limiting, and audit dispatch live under internal/ and
// are never exported.
//
// # Performance contract
//
// ValidateAccess is the hot path: signature and claim checks only, no Redis
// round-trip. Refresh, Login, Logout, and account operations are allowed
// one Redis round-trip per call plus the argon2 work where applicable.
package authcore
