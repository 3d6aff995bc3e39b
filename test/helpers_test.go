//go:build integration
// +build integration

package test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	goBarber "github.com/MrEthical07/goBarber"
	"github.com/MrEthical07/goBarber/kv"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// redisMode describes which Redis backend the suite is running against.
type redisMode struct {
	name  string
	setup func(t *testing.T) (redis.UniversalClient, func())
}

// redisModes returns miniredis, plus a real standalone Redis when REDIS_ADDR
// is set (e.g. "127.0.0.1:6379").
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{
		{
			name: "miniredis",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				mr, err := miniredis.Run()
				if err != nil {
					t.Fatalf("miniredis: %v", err)
				}
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				return rdb, func() { _ = rdb.Close(); mr.Close() }
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{
					Addr:     addr,
					Password: os.Getenv("REDIS_PASSWORD"),
				})
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				return rdb, func() { _ = rdb.Close() }
			},
		})
	}

	return modes
}

// newAPI serves sessions for one account: john@x.com / 123456.
func newAPI(t *testing.T) *httptest.Server {
	t.Helper()

	john := goBarber.User{ID: "u1", Name: "John", Email: "john@x.com"}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", func(w http.ResponseWriter, r *http.Request) {
		var creds goBarber.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		w.Header().Set("Content-Type", "application/json")
		if creds.Email != john.Email || creds.Password != "123456" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":"error","message":"Incorrect email/password combination."}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"token": "tok-john", "user": john})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// openStore builds a store over rdb as if the app had just started.
func openStore(t *testing.T, rdb redis.UniversalClient, prefix, apiURL string) *goBarber.SessionStore {
	t.Helper()

	cfg := goBarber.DefaultConfig()
	cfg.API.BaseURL = apiURL
	cfg.Metrics.Enabled = true

	s, err := goBarber.New().
		WithConfig(cfg).
		WithStore(kv.NewRedis(rdb, prefix)).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(s.Close)

	if err := s.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	return s
}
