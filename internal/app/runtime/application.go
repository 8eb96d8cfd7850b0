// Package runtime turns a loaded configuration into running listeners.
package runtime

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/jmoiron/sqlx"

	app "github.com/R3E-Network/marina/internal/app"
	"github.com/R3E-Network/marina/internal/app/auth"
	"github.com/R3E-Network/marina/internal/app/cache"
	"github.com/R3E-Network/marina/internal/app/httpapi"
	"github.com/R3E-Network/marina/internal/app/metrics"
	"github.com/R3E-Network/marina/internal/app/services/maintenance"
	"github.com/R3E-Network/marina/internal/app/storage/postgres"
	"github.com/R3E-Network/marina/internal/app/swagger"
	"github.com/R3E-Network/marina/internal/app/system"
	"github.com/R3E-Network/marina/internal/config"
	"github.com/R3E-Network/marina/internal/logging"
	"github.com/R3E-Network/marina/internal/middleware"
	"github.com/R3E-Network/marina/internal/platform/database"
	"github.com/R3E-Network/marina/internal/platform/migrations"
)

// Version is reported by /health and /info. Overridden at link time.
var Version = "dev"

// RedisPrefix namespaces cache keys in a shared Redis.
const RedisPrefix = "marina:"

// Application wires core dependencies and manages the listener lifecycle.
type Application struct {
	cfg *config.Config
	log *logging.Logger

	app       *app.Application
	handler   *httpapi.Handler
	scheduler *maintenance.Scheduler
	api       *listener
	docs      *listener

	db    *sqlx.DB
	redis *cache.Redis

	errCh chan error
}

// NewApplication builds every component selected by cfg. Nothing listens
// until Run.
func NewApplication(ctx context.Context, cfg *config.Config, log *logging.Logger) (*Application, error) {
	if log == nil {
		log = logging.NewDefault("gateway")
	}
	a := &Application{cfg: cfg, log: log, errCh: make(chan error, 2)}

	stores, err := a.buildStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("configure stores: %w", err)
	}
	c, mem, err := a.buildCache(ctx)
	if err != nil {
		a.closeResources()
		return nil, fmt.Errorf("configure cache: %w", err)
	}

	m := metrics.New(metrics.DefaultNamespace)
	application, err := app.New(stores, app.Options{
		Tokens:        auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer),
		Cache:         c,
		Metrics:       m,
		BcryptCost:    cfg.Auth.BcryptCost,
		AdminEmails:   cfg.Auth.AdminList(),
		TokenCacheTTL: cfg.Cache.TokenTTL,
		CacheTTL:      cfg.Cache.DefaultTTL,
	}, log.Named("app"))
	if err != nil {
		a.closeResources()
		return nil, fmt.Errorf("build application: %w", err)
	}
	a.app = application

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, log.Named("ratelimit"), m)
	}

	var ping func(context.Context) error
	if a.db != nil {
		ping = a.db.PingContext
	}
	a.handler = httpapi.New(httpapi.Config{
		App:            application,
		BasePath:       cfg.Server.BasePath,
		Version:        Version,
		Logger:         log.Named("http"),
		RateLimiter:    limiter,
		AllowedOrigins: cfg.CORS.Origins(),
		Ping:           ping,
	})

	a.scheduler = maintenance.NewScheduler(log.Named("maintenance"))
	if limiter != nil {
		if err := a.scheduler.Add("prune-limiters", maintenance.LimiterPruneSpec, maintenance.PruneLimiters(limiter, log)); err != nil {
			a.closeResources()
			return nil, err
		}
	}
	if mem != nil {
		if err := a.scheduler.Add("sweep-cache", maintenance.CacheSweepSpec, maintenance.SweepCache(mem, log)); err != nil {
			a.closeResources()
			return nil, err
		}
	}

	a.api = &listener{
		name: "http-api",
		server: &http.Server{
			Addr:         cfg.Server.Addr(),
			Handler:      a.handler.Router(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		log:   log,
		errCh: a.errCh,
	}
	services := []system.Service{a.scheduler, a.api}

	if cfg.Docs.Enabled {
		docsHandler, err := a.buildDocs()
		if err != nil {
			a.closeResources()
			return nil, fmt.Errorf("configure docs: %w", err)
		}
		a.docs = &listener{
			name: "http-docs",
			server: &http.Server{
				Addr:         cfg.Docs.Addr(),
				Handler:      docsHandler,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			},
			log:   log,
			errCh: a.errCh,
		}
		services = append(services, a.docs)
	}

	for _, svc := range services {
		if err := application.Attach(svc); err != nil {
			a.closeResources()
			return nil, fmt.Errorf("attach %s: %w", svc.Name(), err)
		}
	}
	return a, nil
}

// App exposes the wired domain services.
func (a *Application) App() *app.Application { return a.app }

// APIAddr returns the bound API address once running.
func (a *Application) APIAddr() string { return a.api.addr() }

// DocsAddr returns the bound docs address, or "" when docs are disabled.
func (a *Application) DocsAddr() string {
	if a.docs == nil {
		return ""
	}
	return a.docs.addr()
}

// Run starts every service and blocks until ctx is cancelled or a listener
// fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return err
	}
	a.log.WithFields(map[string]interface{}{
		"api":      a.APIAddr(),
		"docs":     a.DocsAddr(),
		"services": a.app.Services(),
	}).Info("gateway started")

	select {
	case <-ctx.Done():
		return nil
	case err := <-a.errCh:
		return err
	}
}

// Shutdown stops the services in reverse order within the configured timeout,
// then closes the database and Redis.
func (a *Application) Shutdown(ctx context.Context) error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := a.app.Stop(ctx)
	return stderrors.Join(err, a.closeResources())
}

func (a *Application) buildStores(ctx context.Context) (app.Stores, error) {
	if a.cfg.Database.Driver != config.DriverPostgres {
		return app.Stores{}, nil
	}

	db, err := database.Open(ctx, a.cfg.Database)
	if err != nil {
		return app.Stores{}, err
	}
	if a.cfg.Database.Migrate {
		if err := migrations.Up(a.cfg.Database.URL); err != nil {
			db.Close()
			return app.Stores{}, err
		}
	}
	a.db = db

	store := postgres.New(db)
	a.log.Info("using postgres stores")
	return app.Stores{Users: store, Boats: store}, nil
}

// buildCache returns the selected cache and, for the memory driver, the
// concrete store so that the scheduler can sweep it.
func (a *Application) buildCache(ctx context.Context) (cache.Cache, *cache.Memory, error) {
	switch a.cfg.Cache.Driver {
	case config.CacheRedis:
		r, err := cache.DialRedis(ctx, a.cfg.Cache.RedisURL, RedisPrefix)
		if err != nil {
			return nil, nil, err
		}
		a.redis = r
		return r, nil, nil
	case config.CacheNone:
		return cache.Noop{}, nil, nil
	default:
		mem := cache.NewMemory()
		return mem, mem, nil
	}
}

func (a *Application) buildDocs() (http.Handler, error) {
	info, err := config.LoadDocsInfo(a.cfg.Docs.InfoFile)
	if err != nil {
		return nil, err
	}
	doc, err := swagger.Build(swagger.Options{
		Info:      info,
		ServerURL: a.cfg.Docs.PublicURL,
		BasePath:  a.handler.BasePath(),
	}, a.handler.Actions())
	if err != nil {
		return nil, err
	}

	srv, err := swagger.NewServer(doc, a.log.Named("docs"))
	if err != nil {
		return nil, err
	}
	return srv.Router(), nil
}

func (a *Application) closeResources() error {
	var errs []error
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
			errs = append(errs, err)
		}
		a.db = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("error closing redis connection")
			errs = append(errs, err)
		}
		a.redis = nil
	}
	return stderrors.Join(errs...)
}

// listener runs an http.Server as a lifecycle service. Binding happens in
// Start so address errors fail startup.
type listener struct {
	name   string
	server *http.Server
	log    *logging.Logger
	errCh  chan<- error

	mu    sync.Mutex
	bound net.Addr
}

func (l *listener) Name() string { return l.name }

func (l *listener) Start(context.Context) error {
	ln, err := net.Listen("tcp", l.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", l.server.Addr, err)
	}
	l.mu.Lock()
	l.bound = ln.Addr()
	l.mu.Unlock()

	go func() {
		l.log.WithField("addr", ln.Addr().String()).Infof("%s listening", l.name)
		if err := l.server.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			l.errCh <- fmt.Errorf("%s: %w", l.name, err)
		}
	}()
	return nil
}

func (l *listener) Stop(ctx context.Context) error {
	return l.server.Shutdown(ctx)
}

func (l *listener) addr() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.bound == nil {
		return l.server.Addr
	}
	return l.bound.String()
}
