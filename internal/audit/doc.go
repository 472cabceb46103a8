// Package audit provides the audit event model, sink implementations, and
// the asynchronous dispatcher used by the root engine. The dispatcher keeps
// audit emission off the request hot path; sinks decide where events land.
package audit
