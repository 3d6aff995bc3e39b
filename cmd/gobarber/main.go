package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	goBarber "github.com/MrEthical07/goBarber"
	"github.com/MrEthical07/goBarber/form"
	"github.com/MrEthical07/goBarber/kv"
	"github.com/MrEthical07/goBarber/metrics/export/prometheus"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const usage = `usage: gobarber [flags] <command> [command flags]

commands:
  signin   -email E -password P
  signout
  whoami
  signup   -name N -email E -password P
  profile  -name N -email E [-old-password O -password P -confirm P]
  avatar   -file path.jpg

flags:
`

func main() {
	var (
		apiURL      = flag.String("api", "", "API base URL; if empty, GOBARBER_API_URL env or http://localhost:3333 is used")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "", "redis key prefix")
		verbose     = flag.Bool("v", false, "debug logging")
		audit       = flag.String("audit", "", `audit events to stderr: "json" lines or "log" records`)
		metricsAddr = flag.String("metrics-addr", "", "serve Prometheus metrics on this address until interrupted")
	)
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, cleanup, err := openRedis(*redisAddr, logger)
	if err != nil {
		logger.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	cfg := goBarber.DefaultConfig()
	cfg.API.BaseURL = firstNonEmpty(*apiURL, os.Getenv("GOBARBER_API_URL"), "http://localhost:3333")
	cfg.Metrics.Enabled = *metricsAddr != ""
	cfg.Metrics.EnableLatencyHistograms = cfg.Metrics.Enabled

	builder := goBarber.New().
		WithConfig(cfg).
		WithStore(kv.NewRedis(client, *prefix)).
		WithLogger(logger)
	switch *audit {
	case "":
	case "json":
		builder.WithAuditSink(goBarber.NewJSONWriterSink(os.Stderr))
	case "log":
		builder.WithAuditSink(goBarber.NewLogSink(logger))
	default:
		logger.Error("unknown audit format", "audit", *audit)
		os.Exit(2)
	}

	store, err := builder.Build()
	if err != nil {
		logger.Error("build session store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Bootstrap(ctx); err != nil {
		logger.Error("bootstrap", "error", err)
		os.Exit(1)
	}

	ctx = goBarber.WithSessionStore(ctx, store)
	if err := run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *metricsAddr != "" {
		serveMetrics(ctx, *metricsAddr, store, logger)
	}
}

func run(ctx context.Context, command string, args []string) error {
	store := goBarber.MustFromContext(ctx)

	switch command {
	case "signin":
		fs := flag.NewFlagSet("signin", flag.ExitOnError)
		email := fs.String("email", "", "account email")
		password := fs.String("password", "", "account password")
		_ = fs.Parse(args)

		data := form.SignInData{Email: *email, Password: *password}
		if err := data.Validate(); err != nil {
			return err
		}
		if err := store.SignIn(ctx, goBarber.Credentials{Email: data.Email, Password: data.Password}); err != nil {
			return err
		}
		return printUser(store)

	case "signout":
		if err := store.SignOut(ctx); err != nil {
			return err
		}
		fmt.Println("signed out")
		return nil

	case "whoami":
		return printUser(store)

	case "signup":
		fs := flag.NewFlagSet("signup", flag.ExitOnError)
		name := fs.String("name", "", "full name")
		email := fs.String("email", "", "account email")
		password := fs.String("password", "", "account password")
		_ = fs.Parse(args)

		err := store.SignUp(ctx, form.SignUpData{Name: *name, Email: *email, Password: *password})
		if err != nil {
			return err
		}
		fmt.Println("account created; sign in to continue")
		return nil

	case "profile":
		fs := flag.NewFlagSet("profile", flag.ExitOnError)
		data := form.ProfileData{}
		fs.StringVar(&data.Name, "name", "", "full name")
		fs.StringVar(&data.Email, "email", "", "account email")
		fs.StringVar(&data.OldPassword, "old-password", "", "current password, to change it")
		fs.StringVar(&data.Password, "password", "", "new password")
		fs.StringVar(&data.PasswordConfirmation, "confirm", "", "new password again")
		_ = fs.Parse(args)

		if _, err := store.UpdateProfile(ctx, data); err != nil {
			return err
		}
		return printUser(store)

	case "avatar":
		fs := flag.NewFlagSet("avatar", flag.ExitOnError)
		path := fs.String("file", "", "JPEG image")
		_ = fs.Parse(args)

		f, err := os.Open(*path)
		if err != nil {
			return err
		}
		defer f.Close()

		if _, err := store.UpdateAvatar(ctx, f); err != nil {
			return err
		}
		return printUser(store)

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func printUser(store *goBarber.SessionStore) error {
	user, ok := store.User()
	if !ok {
		return errors.New("not signed in")
	}
	fmt.Printf("id:     %s\nname:   %s\nemail:  %s\navatar: %s\n", user.ID, user.Name, user.Email, user.AvatarURL)
	return nil
}

func openRedis(addr string, logger *slog.Logger) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{mr.Addr()},
		})
		logger.Warn("using in-process miniredis; the session will not outlive this run", "addr", mr.Addr())
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{addr},
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	logger.Debug("using redis", "addr", addr)
	return client, func() { _ = client.Close() }, nil
}

func serveMetrics(ctx context.Context, addr string, store *goBarber.SessionStore, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", prometheus.NewPrometheusExporter(store).Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server", "error", err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
