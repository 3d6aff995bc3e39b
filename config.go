package goBarber

import (
	"errors"
	"strings"
	"time"
)

// Config defines the session store configuration.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Storage StorageConfig
	API     APIConfig
	Session SessionConfig
	Token   TokenConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageConfig names the two persistent entries.
type StorageConfig struct {
	TokenKey string
	UserKey  string
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig is used when the builder creates the HTTP client itself.
type APIConfig struct {
	BaseURL         string
	Timeout         time.Duration
	UserAgent       string
	RequestIDHeader string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls lifecycle behavior.
type SessionConfig struct {
	// ClearHeaderOnSignOut drops the Authorization default header on sign-out.
	ClearHeaderOnSignOut bool
	// PurgeCorruptRecord removes a persisted pair that bootstrap rejected.
	PurgeCorruptRecord bool
	// BootstrapTimeout bounds the bootstrap read; 0 disables the bound.
	BootstrapTimeout time.Duration
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls how bootstrap inspects a persisted JWT. Opaque tokens
// are never inspected.
type TokenConfig struct {
	DiscardExpired bool
	CheckSubject   bool
	Leeway         time.Duration
	Issuer         string
	SigningMethod  string // "hs256" or "ed25519"; only used with VerifyKey
	VerifyKey      []byte
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration used by [New].
func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			TokenKey: "@GoBarber:token",
			UserKey:  "@GoBarber:user",
		},
		API: APIConfig{
			Timeout:         15 * time.Second,
			UserAgent:       "gobarber-client",
			RequestIDHeader: "X-Request-ID",
		},
		Session: SessionConfig{
			ClearHeaderOnSignOut: true,
			PurgeCorruptRecord:   true,
			BootstrapTimeout:     5 * time.Second,
		},
		Token: TokenConfig{
			DiscardExpired: true,
			CheckSubject:   true,
			Leeway:         30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Token.VerifyKey != nil {
		out.Token.VerifyKey = append([]byte(nil), cfg.Token.VerifyKey...)
	}
	return out
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	// Storage
	if strings.TrimSpace(c.Storage.TokenKey) == "" {
		return errors.New("Storage TokenKey must not be empty")
	}
	if strings.TrimSpace(c.Storage.UserKey) == "" {
		return errors.New("Storage UserKey must not be empty")
	}
	if c.Storage.TokenKey == c.Storage.UserKey {
		return errors.New("Storage TokenKey and UserKey must differ")
	}

	// API
	if c.API.Timeout < 0 {
		return errors.New("API Timeout must be >= 0")
	}

	// Session
	if c.Session.BootstrapTimeout < 0 {
		return errors.New("Session BootstrapTimeout must be >= 0")
	}

	// Token
	if c.Token.Leeway < 0 || c.Token.Leeway > 24*time.Hour {
		return errors.New("Token Leeway must be within [0, 24h]")
	}
	if len(c.Token.VerifyKey) > 0 &&
		c.Token.SigningMethod != "hs256" && c.Token.SigningMethod != "ed25519" {
		return errors.New("Token SigningMethod must be 'hs256' or 'ed25519' when VerifyKey is set")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
