// Package goBarber is the client-side session core of the GoBarber booking
// app. A [SessionStore] restores the signed-in user from a durable key-value
// store at startup, then creates, updates and destroys that session in
// response to sign-in, profile and sign-out events, keeping the API client's
// Authorization header in step.
//
// Build a store with [New], [Builder.WithStore] and [Builder.Build], then call
// [SessionStore.Start] (or Bootstrap) once. Until bootstrap finishes
// [SessionStore.Loading] reports true; afterwards the store is either
// authenticated or anonymous.
//
// # Lifecycle
//
//	Loading --bootstrap--> Ready[anonymous] <--SignOut-- Ready[authenticated]
//	                       Ready[anonymous] --SignIn--> Ready[authenticated]
//
// UpdateUser, UpdateProfile and UpdateAvatar keep the store authenticated and
// replace only the user record.
//
// # Concurrency
//
// SessionStore methods are safe for concurrent use. Mutations run one at a
// time, each holding the writer lock across its network and storage calls.
// Reads never block on I/O. Subscribers are called on the mutating goroutine
// after the commit.
//
// # What this package must NOT do
//
//   - Persist a partial session: the token and user entries are written and
//     removed together.
//   - Put passwords or tokens in logs or audit events.
//   - Fail the program on bootstrap: unusable records end in the anonymous
//     state.
package goBarber
