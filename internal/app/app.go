// Package app is the process bootstrap shared by every service binary:
// .env loading, logger, database, token verification and the HTTP server
// lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-kanban-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-kanban-go/pkg/token"
	"github.com/ovaphlow/pitchfork/service-kanban-go/pkg/utilities"
)

// ShutdownGrace bounds how long in-flight requests get after a stop signal.
const ShutdownGrace = 5 * time.Second

var ErrMissingSecret = errors.New("JWT_SECRET is required")

type Config struct {
	Service     string
	Addr        string
	CORSOrigins []string
	Secret      []byte
}

// ConfigFromEnv reads HTTP_ADDR, CORS_ORIGINS and JWT_SECRET. A service
// without a signing secret must not start.
func ConfigFromEnv(service, defaultAddr string) (Config, error) {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = defaultAddr
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return Config{}, ErrMissingSecret
	}
	return Config{
		Service:     service,
		Addr:        addr,
		CORSOrigins: splitList(os.Getenv("CORS_ORIGINS")),
		Secret:      []byte(secret),
	}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Runtime holds what a service needs once the process is up.
type Runtime struct {
	Config Config
	Logger *zap.SugaredLogger
	DB     *sqlx.DB
	Tokens *token.HMAC
	Auth   *router.Authenticator

	base *zap.Logger
}

// Start loads configuration and opens the logger and the database.
func Start(service, defaultAddr string) (*Runtime, error) {
	// best effort: a missing .env leaves the real environment in charge
	_ = godotenv.Load()

	cfg, err := ConfigFromEnv(service, defaultAddr)
	if err != nil {
		return nil, err
	}
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	sugar := lg.Sugar().With("service", service)

	tokens, err := token.NewHMAC(cfg.Secret)
	if err != nil {
		return nil, err
	}
	sqlDB, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	sugar.Infow("starting", "addr", cfg.Addr)
	return &Runtime{
		Config: cfg,
		Logger: sugar,
		DB:     sqlx.NewDb(sqlDB, "postgres"),
		Tokens: tokens,
		Auth:   router.NewAuthenticator(tokens, sugar),
		base:   lg,
	}, nil
}

// Handler wraps the service routes in the shared middleware chain.
func (rt *Runtime) Handler(register ...func(*http.ServeMux)) http.Handler {
	return Handler(rt.Logger, rt.Config, register...)
}

func Handler(logger *zap.SugaredLogger, cfg Config, register ...func(*http.ServeMux)) http.Handler {
	return router.New(logger, router.Options{Service: cfg.Service, CORSOrigins: cfg.CORSOrigins}, func(mux *http.ServeMux) {
		for _, r := range register {
			r(mux)
		}
	})
}

// Serve listens on addr until ctx is done, then drains for ShutdownGrace.
func Serve(ctx context.Context, logger *zap.SugaredLogger, addr string, handler http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return serve(ctx, logger, ln, handler)
}

func serve(ctx context.Context, logger *zap.SugaredLogger, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()
	logger.Infow("listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	doneCtx, cancel := context.WithTimeout(context.Background(), ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(doneCtx); err != nil {
		logger.Warnf("http server shutdown failed: %v", err)
		return err
	}
	return <-errc
}

// Run serves the handler until ctx is cancelled.
func (rt *Runtime) Run(ctx context.Context, handler http.Handler) error {
	return Serve(ctx, rt.Logger, rt.Config.Addr, handler)
}

func (rt *Runtime) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownGrace)
	defer cancel()
	if err := rt.DB.PingContext(ctx); err != nil {
		rt.Logger.Warnf("db ping on shutdown failed: %v", err)
	}
	_ = rt.DB.Close()
	rt.Logger.Info("goodbye")
	_ = rt.base.Sync()
}
