package goBarber

import (
	"errors"
	"log/slog"

	"github.com/MrEthical07/goBarber/api"
	"github.com/MrEthical07/goBarber/jwt"
	"github.com/MrEthical07/goBarber/kv"
)

// Builder assembles a [SessionStore].
//
// Builder instances are single-use: Build may succeed only once.
type Builder struct {
	config Config
	store  kv.Store
	client HTTPClient
	logger *slog.Logger

	auditSink AuditSink

	built bool
}

// New starts from [DefaultConfig]; no I/O happens until Build and Bootstrap.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the persistent key-value store. Required.
func (b *Builder) WithStore(store kv.Store) *Builder {
	b.store = store
	return b
}

// WithHTTPClient sets the API transport. When omitted, Build creates an
// [api.Client] from Config.API.
func (b *Builder) WithHTTPClient(client HTTPClient) *Builder {
	b.client = client
	return b
}

// WithLogger sets the structured logger. The default discards output.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit sink and enables auditing. A nil sink disables it.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the sign-in latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a store in the loading
// state. Call Bootstrap or Start next.
func (b *Builder) Build() (*SessionStore, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, errors.New("kv store required")
	}

	client := b.client
	if client == nil {
		if cfg.API.BaseURL == "" {
			return nil, errors.New("API BaseURL required when no HTTP client is provided")
		}
		c, err := api.New(api.Config{
			BaseURL:         cfg.API.BaseURL,
			Timeout:         cfg.API.Timeout,
			UserAgent:       cfg.API.UserAgent,
			RequestIDHeader: cfg.API.RequestIDHeader,
		})
		if err != nil {
			return nil, err
		}
		client = c
	}

	var inspector *jwt.Inspector
	if cfg.Token.DiscardExpired || cfg.Token.CheckSubject {
		in, err := jwt.NewInspector(jwt.Config{
			Leeway:        cfg.Token.Leeway,
			Issuer:        cfg.Token.Issuer,
			SigningMethod: jwt.SigningMethod(cfg.Token.SigningMethod),
			VerifyKey:     cfg.Token.VerifyKey,
		})
		if err != nil {
			return nil, err
		}
		inspector = in
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := newSessionStore(cfg, b.store, client, logger)
	s.tokens = inspector
	s.metrics = NewMetrics(cfg.Metrics)
	s.audit = newAuditDispatcher(cfg.Audit, b.auditSink)

	b.built = true

	return s, nil
}
