// Package jwt inspects bearer tokens issued by the GoBarber API so the client
// can tell, without a network call, whether a persisted token is still usable.
//
// Backend tokens are usually opaque to the client (the signing secret lives on
// the server), so inspection is unverified by default and reads only the
// registered claims. When a verify key is configured the signature is checked
// as well.
package jwt
