// Package cache stores action results under string keys. Values are JSON
// encoded so every backend round-trips them the same way. Keys follow the
// "<service>.<action>:<param>" convention so Clean("users.*") drops every
// cached users result.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/R3E-Network/marina/internal/app/events"
	"github.com/R3E-Network/marina/internal/logging"
)

// Cache is a key/value cacher with glob-pattern invalidation.
type Cache interface {
	// Get decodes the value at key into dst and reports whether it was found.
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	// Set stores v at key. A non-positive ttl means no expiry.
	Set(ctx context.Context, key string, v interface{}, ttl time.Duration) error
	// Clean removes keys matching a glob pattern such as "users.*".
	Clean(ctx context.Context, pattern string) error
}

// Observer receives hit and miss notifications.
type Observer interface {
	RecordCacheHit()
	RecordCacheMiss()
}

// Key joins an action name and its parameters.
func Key(action string, params ...string) string {
	if len(params) == 0 {
		return action
	}
	return action + ":" + strings.Join(params, "|")
}

// CleanOnChange returns an event handler that drops every cached key of the
// changed entity.
func CleanOnChange(c Cache, log *logging.Logger) events.Handler {
	return func(ctx context.Context, ev events.EntityChanged) {
		if err := c.Clean(ctx, ev.Entity+".*"); err != nil && log != nil {
			log.WithContext(ctx).WithError(err).WithField("entity", ev.Entity).Warn("Cache clean failed")
		}
	}
}

// Observed reports hits and misses of c to obs.
func Observed(c Cache, obs Observer) Cache {
	if obs == nil {
		return c
	}
	return &observed{Cache: c, obs: obs}
}

type observed struct {
	Cache
	obs Observer
}

func (o *observed) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	found, err := o.Cache.Get(ctx, key, dst)
	if err == nil {
		if found {
			o.obs.RecordCacheHit()
		} else {
			o.obs.RecordCacheMiss()
		}
	}
	return found, err
}

// Noop never stores anything.
type Noop struct{}

var _ Cache = Noop{}

func (Noop) Get(context.Context, string, interface{}) (bool, error) { return false, nil }

func (Noop) Set(context.Context, string, interface{}, time.Duration) error { return nil }

func (Noop) Clean(context.Context, string) error { return nil }
