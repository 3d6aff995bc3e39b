package goBarber

import "context"

type sessionStoreContextKey struct{}

// WithSessionStore attaches s to ctx so deeper layers can reach the session
// without threading it through every call.
func WithSessionStore(ctx context.Context, s *SessionStore) context.Context {
	return context.WithValue(ctx, sessionStoreContextKey{}, s)
}

// FromContext returns the store attached by [WithSessionStore], or
// ErrConfiguration when there is none.
func FromContext(ctx context.Context) (*SessionStore, error) {
	if ctx == nil {
		return nil, ErrConfiguration
	}

	s, _ := ctx.Value(sessionStoreContextKey{}).(*SessionStore)
	if s == nil {
		return nil, ErrConfiguration
	}
	return s, nil
}

// MustFromContext is like [FromContext] but panics with ErrConfiguration.
func MustFromContext(ctx context.Context) *SessionStore {
	s, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return s
}
