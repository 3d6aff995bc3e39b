// Package api is the HTTP transport to the GoBarber backend.
//
// A [Client] carries a mutable set of default headers applied to every
// request; the session core uses it to attach and drop the bearer token.
// Bodies are JSON except for [Client.Upload], which sends multipart form
// data. Every request gets a fresh request ID header.
//
// # What this package must NOT do
//
//   - Know about sessions, users or storage keys.
//   - Retry requests; callers decide what is retry-eligible.
package api
