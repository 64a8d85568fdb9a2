package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/sessionkit/internal/store"
	"github.com/aussiebroadwan/sessionkit/internal/store/drivers/memory"
	"github.com/aussiebroadwan/sessionkit/internal/store/drivers/redis"
	"github.com/aussiebroadwan/sessionkit/internal/store/drivers/sqlite"
	"github.com/aussiebroadwan/sessionkit/pkg/authsdk"
	"github.com/aussiebroadwan/sessionkit/pkg/fingerprint"
	"github.com/aussiebroadwan/sessionkit/pkg/session"
	"github.com/aussiebroadwan/sessionkit/pkg/signup"
	"github.com/aussiebroadwan/sessionkit/pkg/slogx"
	"golang.org/x/time/rate"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application owns the single session store of the process and everything
// that reads or writes it.
type Application struct {
	cfg    Config
	logger *slog.Logger

	kv  store.KV
	jar *authsdk.CookieJar

	Session *session.Store
	Client  *authsdk.SDKClient
	Wrapper *authsdk.Wrapper
}

// Option customises New.
type Option func(*options)

type options struct {
	logOutput io.Writer
	transport http.RoundTripper
}

// WithLogOutput sends logs to w instead of stdout.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithTransport replaces the outbound round tripper. Tests use it to reach
// in-process servers.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// New opens the configured store, rehydrates the session from it and builds
// the client stack around it.
func New(ctx context.Context, cfg Config, opts ...Option) (*Application, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "sessionkit",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Output:  o.logOutput,
		}),
	}

	if err := app.initStore(ctx); err != nil {
		return nil, err
	}
	if err := app.initSession(ctx); err != nil {
		_ = app.kv.Close()
		return nil, err
	}
	app.initClient(o.transport)

	if err := app.restoreCookies(ctx); err != nil {
		app.logger.Warn("discarding saved cookies", "err", err)
	}

	return app, nil
}

// Logger returns the application logger.
func (app *Application) Logger() *slog.Logger { return app.logger }

// Signup starts a registration flow that commits into the application
// session.
func (app *Application) Signup() *signup.Flow {
	return signup.New(app.Client, app.Session,
		signup.WithMaxProbeAttempts(app.cfg.MaxProbeAttempts),
		signup.WithProbeLimiter(rate.NewLimiter(rate.Limit(app.cfg.ProbeRatePerSecond), 1)),
		signup.WithLogger(app.logger),
	)
}

// Close saves the cookie jar and releases the store.
func (app *Application) Close(ctx context.Context) error {
	if err := app.saveCookies(ctx); err != nil {
		app.logger.Error("failed to save cookies", "err", err)
	}
	if err := app.kv.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	return nil
}

func (app *Application) initStore(ctx context.Context) error {
	kv, err := openStore(ctx, app.cfg)
	if err != nil {
		return err
	}
	app.kv = kv
	app.logger.Debug("session store opened", "driver", app.cfg.StoreDriver)
	return nil
}

func openStore(ctx context.Context, cfg Config) (store.KV, error) {
	switch cfg.StoreDriver {
	case store.DriverMemory:
		return memory.NewStore(), nil

	case store.DriverSQLite:
		dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", cfg.DatabaseFile)
		db, err := sqlite.NewStore(dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := db.ApplyMigrations(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply database migrations: %w", err)
		}
		return db, nil

	case store.DriverRedis:
		rs, err := redis.NewStore(ctx, redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return rs, nil

	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.StoreDriver)
	}
}

func (app *Application) initSession(ctx context.Context) error {
	app.Session = session.New(
		session.WithPersistence(session.Restrict(store.Persistence(app.kv))),
		session.WithLogger(app.logger),
	)
	if err := app.Session.Rehydrate(ctx); err != nil {
		return fmt.Errorf("failed to rehydrate session: %w", err)
	}
	return nil
}

func (app *Application) initClient(transport http.RoundTripper) {
	app.jar = authsdk.NewCookieJar()

	client := authsdk.NewSDKClient(app.cfg.BaseURL)
	client.Locale = app.cfg.Locale
	client.UserAgent = app.cfg.UserAgent
	client.Logger = app.logger
	client.HTTPClient = &http.Client{
		Timeout:   app.cfg.HTTPTimeout,
		Jar:       app.jar,
		Transport: slogx.Transport(app.logger, transport),
	}
	if app.cfg.Fingerprint != "" {
		client.Fingerprint = fingerprint.Static(app.cfg.Fingerprint)
	}

	app.Client = client
	app.Wrapper = authsdk.NewWrapper(client, app.Session,
		authsdk.WithSharedRefresh(app.cfg.SharedRefresh),
		authsdk.WithWrapperLogger(app.logger),
	)
}
