// Package form validates the sign-in, sign-up and profile forms and builds
// the request payloads sent to the API.
//
// Validation collects every failing field instead of stopping at the first
// one, so a UI can mark all of them at once. Messages are plain English;
// presentation is the caller's concern.
package form
