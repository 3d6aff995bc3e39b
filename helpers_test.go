package goBarber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/MrEthical07/goBarber/api"
	"github.com/MrEthical07/goBarber/kv"
)

const testPassword = "123456"

// fakeBackend is a minimal GoBarber API: sessions, users, profile and avatar.
type fakeBackend struct {
	mu      sync.Mutex
	users   map[string]User // by email
	tokens  map[string]string
	avatar  []byte
	calls   atomic.Int64
	lastHdr http.Header
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		users: map[string]User{
			"john@x.com": {ID: "u1", Name: "John", Email: "john@x.com"},
			"mary@x.com": {ID: "u2", Name: "Mary", Email: "mary@x.com"},
		},
		tokens: map[string]string{
			"john@x.com": "tok-john",
			"mary@x.com": "tok-mary",
		},
	}
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.calls.Add(1)
	b.mu.Lock()
	b.lastHdr = r.Header.Clone()
	b.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/sessions":
		b.signIn(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/users":
		b.signUp(w, r)
	case r.Method == http.MethodPut && r.URL.Path == "/profile":
		b.profile(w, r)
	case r.Method == http.MethodPatch && r.URL.Path == "/users/avatar":
		b.avatarUpload(w, r)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
	}
}

func (b *fakeBackend) signIn(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	_ = json.NewDecoder(r.Body).Decode(&creds)

	b.mu.Lock()
	user, ok := b.users[creds.Email]
	token := b.tokens[creds.Email]
	b.mu.Unlock()

	if !ok || creds.Password != testPassword {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "error", "message": "Incorrect email/password combination."})
		return
	}
	writeJSON(w, http.StatusOK, signInResponse{Token: token, User: user})
}

func (b *fakeBackend) signUp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.users[body.Email]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Email address already used."})
		return
	}
	user := User{ID: "u-" + body.Email, Name: body.Name, Email: body.Email}
	b.users[body.Email] = user
	b.tokens[body.Email] = "tok-" + body.Email
	writeJSON(w, http.StatusOK, user)
}

func (b *fakeBackend) userForAuth(r *http.Request) (User, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	b.mu.Lock()
	defer b.mu.Unlock()
	for email, t := range b.tokens {
		if t == token {
			return b.users[email], true
		}
	}
	return User{}, false
}

func (b *fakeBackend) profile(w http.ResponseWriter, r *http.Request) {
	user, ok := b.userForAuth(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "JWT token is missing"})
		return
	}
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	if old, ok := body["old_password"]; ok && old != testPassword {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Old password does not match."})
		return
	}
	user.Name = body["name"]
	user.Email = body["email"]
	writeJSON(w, http.StatusOK, user)
}

func (b *fakeBackend) avatarUpload(w http.ResponseWriter, r *http.Request) {
	user, ok := b.userForAuth(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "JWT token is missing"})
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	b.mu.Lock()
	b.avatar = data
	b.mu.Unlock()

	user.AvatarURL = "http://localhost:3333/files/" + header.Filename
	writeJSON(w, http.StatusOK, user)
}

func (b *fakeBackend) header() http.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastHdr
}

func (b *fakeBackend) uploaded() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.avatar
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// faultyStore wraps a Memory store and fails selected operations.
type faultyStore struct {
	*kv.Memory

	failGet    atomic.Bool
	failSet    atomic.Bool
	failRemove atomic.Bool

	multiGets    atomic.Int64
	multiSets    atomic.Int64
	setItems     atomic.Int64
	multiRemoves atomic.Int64
}

var errStoreDown = errors.New("store down")

func newFaultyStore() *faultyStore {
	return &faultyStore{Memory: kv.NewMemory()}
}

func (f *faultyStore) MultiGet(ctx context.Context, keys []string) ([]kv.Entry, error) {
	f.multiGets.Add(1)
	if f.failGet.Load() {
		return nil, errStoreDown
	}
	return f.Memory.MultiGet(ctx, keys)
}

func (f *faultyStore) MultiSet(ctx context.Context, pairs []kv.Pair) error {
	f.multiSets.Add(1)
	if f.failSet.Load() {
		return errStoreDown
	}
	return f.Memory.MultiSet(ctx, pairs)
}

func (f *faultyStore) SetItem(ctx context.Context, key, value string) error {
	f.setItems.Add(1)
	if f.failSet.Load() {
		return errStoreDown
	}
	return f.Memory.SetItem(ctx, key, value)
}

func (f *faultyStore) MultiRemove(ctx context.Context, keys []string) error {
	f.multiRemoves.Add(1)
	if f.failRemove.Load() {
		return errStoreDown
	}
	return f.Memory.MultiRemove(ctx, keys)
}

func (f *faultyStore) get(t *testing.T, key string) (string, bool) {
	t.Helper()
	entries, err := f.Memory.MultiGet(context.Background(), []string{key})
	if err != nil {
		t.Fatalf("MultiGet failed: %v", err)
	}
	return entries[0].Value, entries[0].Present
}

func (f *faultyStore) seed(t *testing.T, token string, user any) {
	t.Helper()
	var raw string
	switch u := user.(type) {
	case string:
		raw = u
	default:
		data, err := json.Marshal(u)
		if err != nil {
			t.Fatalf("marshal user: %v", err)
		}
		raw = string(data)
	}
	err := f.Memory.MultiSet(context.Background(), []kv.Pair{
		{Key: "@GoBarber:token", Value: token},
		{Key: "@GoBarber:user", Value: raw},
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
}

type testEnv struct {
	store   *SessionStore
	kv      *faultyStore
	client  *api.Client
	backend *fakeBackend
}

func newTestEnv(t *testing.T, mutate func(*Config), opts ...func(*Builder)) *testEnv {
	t.Helper()

	backend := newFakeBackend()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client, err := api.New(api.Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("api.New failed: %v", err)
	}

	cfg := DefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	if mutate != nil {
		mutate(&cfg)
	}

	store := newFaultyStore()
	b := New().WithConfig(cfg).WithStore(store).WithHTTPClient(client)
	for _, opt := range opts {
		opt(b)
	}

	s, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(s.Close)

	return &testEnv{store: s, kv: store, client: client, backend: backend}
}

func (e *testEnv) bootstrap(t *testing.T) {
	t.Helper()
	if err := e.store.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
}

func (e *testEnv) signIn(t *testing.T, email string) {
	t.Helper()
	if err := e.store.SignIn(context.Background(), Credentials{Email: email, Password: testPassword}); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
}

func jpeg() io.Reader {
	return bytes.NewReader([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10})
}
