// Package server wires configuration, storage, token machinery and both
// transports into a runnable session server.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/demoauth/internal/logging"
	"github.com/dmitrijs2005/demoauth/internal/server/auth"
	"github.com/dmitrijs2005/demoauth/internal/server/config"
	"github.com/dmitrijs2005/demoauth/internal/server/denylist"
	"github.com/dmitrijs2005/demoauth/internal/server/httpapi"
	"github.com/dmitrijs2005/demoauth/internal/server/metrics"
	"github.com/dmitrijs2005/demoauth/internal/server/refresh"
	"github.com/dmitrijs2005/demoauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/demoauth/internal/server/services"
	"github.com/gin-gonic/gin"

	gs "github.com/dmitrijs2005/demoauth/internal/server/grpc"
)

const startupTimeout = 30 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	denylist *denylist.RedisDenylist
	metrics  *metrics.Metrics
	sessions *services.SessionService
}

// NewApp opens the database, applies migrations and builds the session
// service. Resources opened before a failure are released.
func NewApp(c *config.Config) (app *App, err error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	rm, err := repomanager.NewRepositoryManager(c.DatabaseDriver)
	if err != nil {
		return nil, err
	}

	db, err := rm.Open(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	defer func() {
		if err != nil {
			_ = db.Close()
		}
	}()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, err
	}

	issuer, err := auth.NewIssuer(auth.IssuerConfig{
		SigningKey:    []byte(c.SecretKey),
		SigningMethod: c.SigningMethod,
		Issuer:        c.Issuer,
		Audience:      c.Audience,
		TTL:           c.AccessTokenValidityDuration,
	})
	if err != nil {
		return nil, err
	}

	store, err := refresh.NewStore(rm.RefreshTokens(db), c.RefreshTokenValidityDuration)
	if err != nil {
		return nil, err
	}
	engine := refresh.NewEngine(store, logger)

	m := metrics.New()

	deps := services.SessionDeps{
		Users:   rm.Users(db),
		Issuer:  issuer,
		Engine:  engine,
		Metrics: m,
		Logger:  logger,
	}

	var dl *denylist.RedisDenylist
	if c.RedisURL != "" {
		dl, err = denylist.Connect(ctx, c.RedisURL)
		if err != nil {
			return nil, err
		}
		deps.Denylist = dl
	} else {
		logger.Warn(ctx, "redis is not configured, access tokens stay valid until expiry after logout")
	}

	sessions, err := services.NewSessionService(deps)
	if err != nil {
		if dl != nil {
			_ = dl.Close()
		}
		return nil, err
	}

	return &App{config: c, logger: logger, db: db, denylist: dl, metrics: m, sessions: sessions}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context) error {
	s, err := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.sessions, app.metrics)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}

func (app *App) startHTTPServer(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)

	h := httpapi.NewAuthHandler(app.sessions, app.logger, app.config.RefreshTokenValidityDuration, app.config.SecureCookies)
	router := httpapi.NewRouter(h, httpapi.RouterConfig{
		AllowedOrigins: app.config.AllowedOrigins,
		Metrics:        app.metrics,
	})
	return httpapi.NewServer(app.config.EndpointAddrHTTP, router, app.logger).Run(ctx)
}

// Run serves gRPC and HTTP until ctx is cancelled, a termination signal
// arrives or one of the servers fails. A transport with an empty address is
// not started. Storage is closed before Run returns.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var (
		wg      sync.WaitGroup
		errMu   sync.Mutex
		runErrs []error
	)
	start := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				app.logger.Error(ctx, "server failed", "server", name, "error", err.Error())
				errMu.Lock()
				runErrs = append(runErrs, fmt.Errorf("%s: %w", name, err))
				errMu.Unlock()
				cancelFunc()
			}
		}()
	}

	if app.config.EndpointAddrGRPC != "" {
		start("grpc", app.startGRPCServer)
	}
	if app.config.EndpointAddrHTTP != "" {
		start("http", app.startHTTPServer)
	}

	wg.Wait()
	app.logger.Info(context.Background(), "App stopped")

	return errors.Join(append(runErrs, app.Close())...)
}

// Close releases the database and the denylist connection.
func (app *App) Close() error {
	var errs []error
	if app.denylist != nil {
		errs = append(errs, app.denylist.Close())
	}
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	return errors.Join(errs...)
}
