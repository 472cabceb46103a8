// Package password implements argon2id hashing and verification for user
// credentials. Digests use the PHC string format with cost parameters and
// salt embedded, so stored digests remain verifiable after cost upgrades.
//
// Hashing is memory-hard and deliberately slow; callers that serve
// concurrent request traffic should keep Hash and Verify off latency-critical
// goroutine pools.
package password
