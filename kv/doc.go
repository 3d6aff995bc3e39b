// Package kv provides the durable string key-value stores the session core
// persists its token and user record to.
//
// # Contract
//
// A [Store] offers batched reads, writes and deletes. MultiSet and MultiRemove
// apply to all given keys as one operation: implementations must not leave a
// half-written pair visible to a later MultiGet.
//
// # Implementations
//
//   - [Memory]: process-local map, used by tests and as a fallback.
//   - [Redis]: go-redis backed store (MGET / MSET / SET / DEL).
//
// # What this package must NOT do
//
//   - Interpret values (JSON, tokens); values are opaque strings.
//   - Import goBarber (no upward imports).
package kv
