package goBarber

// User is the signed-in user's identity and display data as returned by the
// API. Field names follow the API's JSON.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

// Credentials are sent to the session endpoint by SignIn.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Snapshot is a read-only view of the store handed to subscribers.
//
// User is nil when no session exists. Version increases with every committed
// mutation, including the bootstrap transition.
type Snapshot struct {
	User          *User
	Loading       bool
	Authenticated bool
	Version       uint64
}

// session is the in-memory record. A nil *session is the absent state; a
// non-nil one always has a non-empty token and a user with an id.
type session struct {
	token string
	user  User
}

type signInResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
