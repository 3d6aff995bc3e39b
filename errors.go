package goBarber

import "errors"

var (
	// ErrConfiguration is returned (or raised by MustFromContext) when the
	// session store is read from a context that never received one.
	ErrConfiguration = errors.New("session store not configured")
	// ErrAuthentication is returned by SignIn when the API rejects the
	// credentials, the transport fails, or the response is unusable.
	ErrAuthentication = errors.New("authentication failed")
	// ErrPersistence wraps key-value store failures.
	ErrPersistence = errors.New("session persistence failed")
	// ErrDeserialization marks a persisted user record that cannot be decoded.
	ErrDeserialization = errors.New("persisted user record is malformed")
	// ErrNoSession is returned by operations that need a signed-in user.
	ErrNoSession = errors.New("no active session")
	// ErrInvalidUser is returned when a user record has no id or belongs to
	// someone other than the signed-in user.
	ErrInvalidUser = errors.New("invalid user record")
	// ErrStoreClosed is returned by mutations after Close.
	ErrStoreClosed = errors.New("session store closed")
)
