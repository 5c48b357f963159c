// Package server wires the playlistdash server together: database and
// migrations, object storage, the dashboard cache, error reporting and the
// HTTP API, and runs it until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/playlistdash/internal/common"
	"github.com/dmitrijs2005/playlistdash/internal/logging"
	"github.com/dmitrijs2005/playlistdash/internal/server/access"
	"github.com/dmitrijs2005/playlistdash/internal/server/actions"
	"github.com/dmitrijs2005/playlistdash/internal/server/cache"
	"github.com/dmitrijs2005/playlistdash/internal/server/config"
	"github.com/dmitrijs2005/playlistdash/internal/server/httpapi"
	"github.com/dmitrijs2005/playlistdash/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/playlistdash/internal/server/services"
	"github.com/dmitrijs2005/playlistdash/internal/server/storage"
	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

const sentryFlushTimeout = 2 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	rdb    *redis.Client
	server *httpapi.Server
	sentry bool
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.LogFormat, c.LogLevel, os.Stdout)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	store, err := storage.New(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}

	var dashCache cache.Dashboard = cache.Nop{}
	if c.RedisAddr != "" {
		app.rdb = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		if err := app.rdb.Ping(ctx).Err(); err != nil {
			logger.Warn(ctx, "redis unreachable, dashboard cache degraded", "addr", c.RedisAddr, "error", err)
		}
		rc := cache.NewRedisDashboard(app.rdb, c.DashboardCacheTTL)
		if rc.TTL() != c.DashboardCacheTTL {
			logger.Warn(ctx, "dashboard cache ttl clamped", "configured", c.DashboardCacheTTL, "effective", rc.TTL())
		}
		dashCache = rc
	}

	if c.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: c.SentryDSN, TracesSampleRate: 1.0}); err != nil {
			logger.Error(ctx, "sentry init failed", "error", err)
		} else {
			app.sentry = true
		}
	}

	gate := access.NewGate(c.ReadOnlyUsers)
	sessions := services.NewSessionService(db, rm, c, logger)
	a := actions.New(
		sessions,
		services.NewMembershipService(db, rm, logger),
		services.NewLibraryService(db, rm, store, c, logger),
		services.NewPlaylistService(db, rm, logger),
		services.NewDashboardService(db, rm, store, gate, dashCache, logger),
		gate,
		logger,
	)

	app.server = httpapi.NewServer(httpapi.Options{
		Address:        c.HTTPAddr,
		SecureCookies:  c.SecureCookies,
		MaxUploadBytes: c.MaxAudioBytes + common.MaxCoverBytes + 1<<20,
	}, logger, a, sessions)

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) middlewares() []func(http.Handler) http.Handler {
	mws := []func(http.Handler) http.Handler{middleware.Recoverer}
	if app.sentry {
		mws = append(mws, sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}
	return mws
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx, app.middlewares()...); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close(ctx)
}

func (app *App) close(ctx context.Context) {
	if app.rdb != nil {
		if err := app.rdb.Close(); err != nil {
			app.logger.Warn(ctx, "redis close", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close", "error", err)
	}
	if app.sentry {
		sentry.Flush(sentryFlushTimeout)
	}
	app.logger.Info(ctx, "Stopped")
}
