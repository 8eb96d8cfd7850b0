package app

import (
	"context"
	"fmt"
	"time"

	"github.com/R3E-Network/marina/internal/app/auth"
	"github.com/R3E-Network/marina/internal/app/cache"
	"github.com/R3E-Network/marina/internal/app/events"
	"github.com/R3E-Network/marina/internal/app/metrics"
	"github.com/R3E-Network/marina/internal/app/services/boats"
	"github.com/R3E-Network/marina/internal/app/services/users"
	"github.com/R3E-Network/marina/internal/app/storage"
	"github.com/R3E-Network/marina/internal/app/storage/memory"
	"github.com/R3E-Network/marina/internal/app/system"
	"github.com/R3E-Network/marina/internal/app/validation"
	"github.com/R3E-Network/marina/internal/logging"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users storage.UserStore
	Boats storage.BoatStore
}

// Options tunes the services. Zero values fall back to service defaults.
type Options struct {
	Tokens          *auth.TokenManager
	Cache           cache.Cache
	Metrics         *metrics.Metrics
	BcryptCost      int
	AdminEmails     []string
	TokenCacheTTL   time.Duration
	CacheTTL        time.Duration
	EventBufferSize int
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logging.Logger

	Events  *events.Bus
	Cache   cache.Cache
	Tokens  *auth.TokenManager
	Metrics *metrics.Metrics

	Users *users.Service
	Boats *boats.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logging.Logger) (*Application, error) {
	if log == nil {
		log = logging.NewDefault("app")
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Boats == nil {
		stores.Boats = mem
	}
	if opts.Tokens == nil {
		log.Warn("no token manager configured; using an ephemeral development secret")
		opts.Tokens = auth.NewTokenManager("jwt-secret", auth.DefaultTokenTTL, "marina")
	}

	base := opts.Cache
	if base == nil {
		base = cache.NewMemory()
	}
	// Metrics is a typed pointer; a nil one must not become a non-nil Observer.
	c := base
	if opts.Metrics != nil {
		c = cache.Observed(base, opts.Metrics)
	}

	bus := events.NewBus(opts.EventBufferSize)
	bus.Subscribe(cache.CleanOnChange(c, log.Named("cache")))
	if opts.Metrics != nil {
		m := opts.Metrics
		bus.Subscribe(func(_ context.Context, ev events.EntityChanged) {
			m.RecordEntityChange(ev.Entity, string(ev.Action))
		})
	}
	bus.Subscribe(events.LogChanges(log.Named("events")))

	validator := validation.New()

	usersService := users.New(users.Config{
		Store:         stores.Users,
		Tokens:        opts.Tokens,
		Cache:         c,
		Events:        bus,
		Validator:     validator,
		Logger:        log.Named("users"),
		BcryptCost:    opts.BcryptCost,
		AdminEmails:   opts.AdminEmails,
		TokenCacheTTL: opts.TokenCacheTTL,
		CacheTTL:      opts.CacheTTL,
	})
	boatsService := boats.New(boats.Config{
		Store:     stores.Boats,
		Admins:    usersService,
		Cache:     c,
		Events:    bus,
		Validator: validator,
		Logger:    log.Named("boats"),
		CacheTTL:  opts.CacheTTL,
	})

	manager := system.NewManager()
	for _, name := range []string{"users", "boats"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	return &Application{
		manager: manager,
		log:     log,
		Events:  bus,
		Cache:   c,
		Tokens:  opts.Tokens,
		Metrics: opts.Metrics,
		Users:   usersService,
		Boats:   boatsService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Services lists registered lifecycle services in start order.
func (a *Application) Services() []string {
	return a.manager.Services()
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
