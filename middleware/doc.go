// Package middleware exposes an HTTP middleware adapter for bearer-token
// enforcement built on top of authcore.Engine validation.
//
// [Guard] reads the Authorization header, calls Engine.ValidateAccess, and
// injects the validated result into the request context. It does not
// implement authentication logic itself; all decisions are delegated to the
// engine.
package middleware
