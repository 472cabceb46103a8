// Package token issues and verifies the signed access and refresh tokens
// that make up the engine's credential pair. Access and refresh tokens are
// HS256 JWTs signed with distinct secrets; refresh tokens additionally carry
// a unique jti used by the revocation record for single-use rotation.
package token
