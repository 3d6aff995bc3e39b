package goBarber

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/MrEthical07/goBarber/api"
	"github.com/MrEthical07/goBarber/form"
)

func TestSignUpRegistersWithoutSession(t *testing.T) {
	env := newTestEnv(t, nil)
	env.bootstrap(t)

	err := env.store.SignUp(context.Background(), form.SignUpData{
		Name:     "Ana",
		Email:    "ana@x.com",
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if env.store.Authenticated() {
		t.Fatal("expected sign up to leave the session alone")
	}

	env.signIn(t, "ana@x.com")
	if u, _ := env.store.User(); u.Name != "Ana" {
		t.Fatalf("expected new account to sign in, got %+v", u)
	}
	if v := env.store.MetricsSnapshot().Counters[MetricSignUpSuccess]; v != 1 {
		t.Fatalf("expected sign up metric 1, got %d", v)
	}
}

func TestSignUpValidationSkipsNetwork(t *testing.T) {
	env := newTestEnv(t, nil)
	env.bootstrap(t)
	before := env.backend.calls.Load()

	err := env.store.SignUp(context.Background(), form.SignUpData{Email: "bad", Password: "123"})
	if !errors.Is(err, form.ErrInvalid) {
		t.Fatalf("expected form.ErrInvalid, got %v", err)
	}
	var verr *form.ValidationError
	if !errors.As(err, &verr) || verr.Field("name") == "" || verr.Field("email") == "" || verr.Field("password") == "" {
		t.Fatalf("expected name, email and password errors, got %v", err)
	}
	if env.backend.calls.Load() != before {
		t.Fatal("expected no request")
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	env := newTestEnv(t, nil)

	err := env.store.SignUp(context.Background(), form.SignUpData{
		Name:     "John",
		Email:    "john@x.com",
		Password: testPassword,
	})
	var se *api.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 status error, got %v", err)
	}
	if se.Message != "Email address already used." {
		t.Fatalf("unexpected message %q", se.Message)
	}
}

func TestUpdateProfileReplacesUser(t *testing.T) {
	env := newTestEnv(t, nil)
	env.bootstrap(t)
	env.signIn(t, "john@x.com")

	got, err := env.store.UpdateProfile(context.Background(), form.ProfileData{
		Name:  "John Doe",
		Email: "john.doe@x.com",
	})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if got.ID != "u1" || got.Name != "John Doe" || got.Email != "john.doe@x.com" {
		t.Fatalf("unexpected user %+v", got)
	}
	if cur, _ := env.store.User(); cur != got {
		t.Fatalf("session user %+v, want %+v", cur, got)
	}
	if auth := env.backend.header().Get("Authorization"); auth != "Bearer tok-john" {
		t.Fatalf("expected bearer token on request, got %q", auth)
	}
	raw, _ := env.kv.get(t, "@GoBarber:user")
	if !strings.Contains(raw, "John Doe") {
		t.Fatalf("expected persisted user updated, got %s", raw)
	}
}

func TestUpdateProfileWrongOldPassword(t *testing.T) {
	env := newTestEnv(t, nil)
	env.bootstrap(t)
	env.signIn(t, "john@x.com")

	_, err := env.store.UpdateProfile(context.Background(), form.ProfileData{
		Name:                 "John",
		Email:                "john@x.com",
		OldPassword:          "nope",
		Password:             "abcdef",
		PasswordConfirmation: "abcdef",
	})
	if !api.IsStatus(err, http.StatusBadRequest) {
		t.Fatalf("expected 400, got %v", err)
	}
	if cur, _ := env.store.User(); cur.Name != "John" {
		t.Fatalf("session changed to %+v", cur)
	}
	if v := env.store.MetricsSnapshot().Counters[MetricProfileUpdateFailure]; v != 1 {
		t.Fatalf("expected profile failure metric 1, got %d", v)
	}
}

func TestUpdateProfileRequiresSession(t *testing.T) {
	env := newTestEnv(t, nil)
	env.bootstrap(t)

	_, err := env.store.UpdateProfile(context.Background(), form.ProfileData{Name: "X", Email: "x@x.com"})
	if !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestUpdateProfileValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	env.bootstrap(t)
	env.signIn(t, "john@x.com")

	_, err := env.store.UpdateProfile(context.Background(), form.ProfileData{
		Name:                 "John",
		Email:                "john@x.com",
		OldPassword:          testPassword,
		Password:             "abcdef",
		PasswordConfirmation: "abcdeg",
	})
	var verr *form.ValidationError
	if !errors.As(err, &verr) || verr.Field("password_confirmation") == "" {
		t.Fatalf("expected confirmation error, got %v", err)
	}
}

func TestUpdateAvatarUploadsMultipart(t *testing.T) {
	env := newTestEnv(t, nil)
	env.bootstrap(t)
	env.signIn(t, "john@x.com")

	got, err := env.store.UpdateAvatar(context.Background(), jpeg())
	if err != nil {
		t.Fatalf("UpdateAvatar failed: %v", err)
	}
	if got.AvatarURL != "http://localhost:3333/files/u1.jpg" {
		t.Fatalf("unexpected avatar url %q", got.AvatarURL)
	}
	if cur, _ := env.store.User(); cur.AvatarURL != got.AvatarURL {
		t.Fatalf("session not updated: %+v", cur)
	}
	if n := len(env.backend.uploaded()); n != 6 {
		t.Fatalf("expected 6 uploaded bytes, got %d", n)
	}
	if ct := env.backend.header().Get("Content-Type"); !strings.HasPrefix(ct, "multipart/form-data") {
		t.Fatalf("expected multipart request, got %q", ct)
	}
}

func TestUpdateAvatarRequiresSession(t *testing.T) {
	env := newTestEnv(t, nil)
	env.bootstrap(t)

	_, err := env.store.UpdateAvatar(context.Background(), jpeg())
	if !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestRejectedProfileResponseRecordedOnce(t *testing.T) {
	client := newScriptedClient(map[string]any{
		"token": "t1",
		"user":  map[string]string{"id": "1", "name": "A"},
	})
	sink := NewChannelSink(16)
	s, err := New().
		WithStore(newFaultyStore()).
		WithHTTPClient(client).
		WithMetricsEnabled(true).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	ctx := context.Background()
	if err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if err := s.SignIn(ctx, Credentials{Email: "a@b.com", Password: "x"}); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	// The sign-in body decodes to a User without an id.
	_, err = s.UpdateProfile(ctx, form.ProfileData{Name: "B", Email: "b@b.com"})
	if !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser, got %v", err)
	}
	s.Close()

	counters := s.MetricsSnapshot().Counters
	if v := counters[MetricProfileUpdateFailure]; v != 1 {
		t.Fatalf("expected profile failure metric 1, got %d", v)
	}
	if v := counters[MetricUserUpdateRejected]; v != 0 {
		t.Fatalf("expected no user update rejection, got %d", v)
	}

	var failures int
	for {
		select {
		case ev := <-sink.Events():
			switch ev.EventType {
			case auditEventProfileUpdateFailed:
				failures++
			case auditEventUserUpdateRejected:
				t.Fatalf("unexpected %s event", ev.EventType)
			}
			continue
		default:
		}
		break
	}
	if failures != 1 {
		t.Fatalf("expected one profile failure event, got %d", failures)
	}
	if cur, _ := s.User(); cur.Name != "A" {
		t.Fatalf("session changed to %+v", cur)
	}
}
