// Package revocation owns the record of consumed and revoked refresh token
// ids. The record lives in Redis, never in the primary database: entries
// are written with a TTL matching the token's remaining validity and the
// check-and-set is a single atomic SET NX, which is what makes refresh
// rotation safe under concurrent replay.
package revocation
