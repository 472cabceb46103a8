// Package flows contains the request-scoped authentication flows behind the
// root engine API. Each flow is a pure function over an explicit dependency
// struct, so the engine wires stores, hashers, and token managers once and
// the flows stay trivially testable without Redis or real crypto.
package flows
