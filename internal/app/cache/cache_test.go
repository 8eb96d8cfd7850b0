package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/marina/internal/app/events"
	"github.com/R3E-Network/marina/internal/logging"
)

type profile struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

func TestKey(t *testing.T) {
	assert.Equal(t, "users.me", Key("users.me"))
	assert.Equal(t, "users.me:7", Key("users.me", "7"))
	assert.Equal(t, "boats.list:a|b", Key("boats.list", "a", "b"))
}

func TestMemoryGetSetExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "users.profile:1", profile{ID: "1", Name: "Ann"}, time.Minute))
	require.NoError(t, m.Set(ctx, "users.me:1", profile{ID: "1"}, 0))

	var got profile
	found, err := m.Get(ctx, "users.profile:1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Ann", got.Name)

	now = now.Add(2 * time.Minute)
	found, err = m.Get(ctx, "users.profile:1", &got)
	require.NoError(t, err)
	assert.False(t, found)

	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Len())

	found, _ = m.Get(ctx, "users.me:1", &got)
	assert.True(t, found, "entries without ttl never expire")
}

func TestMemoryClean(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, k := range []string{"users.me:1", "users.profile:2", "boats.list", "usersx"} {
		require.NoError(t, m.Set(ctx, k, 1, 0))
	}

	require.NoError(t, m.Clean(ctx, "users.*"))
	assert.Equal(t, 2, m.Len())

	var v int
	found, _ := m.Get(ctx, "boats.list", &v)
	assert.True(t, found)
	found, _ = m.Get(ctx, "usersx", &v)
	assert.True(t, found)

	assert.Error(t, m.Clean(ctx, "["))
}

func TestCleanOnChange(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "boats.mine:1", 1, 0))
	require.NoError(t, m.Set(ctx, "users.me:1", 1, 0))

	bus := events.NewBus(10)
	bus.Subscribe(CleanOnChange(m, logging.NewDiscard("test")))
	bus.Publish(ctx, events.Changed(events.EntityUsers, events.ActionUpdated, "1"))

	var v int
	found, _ := m.Get(ctx, "users.me:1", &v)
	assert.False(t, found)
	found, _ = m.Get(ctx, "boats.mine:1", &v)
	assert.True(t, found)
}

type counter struct{ hits, misses int }

func (c *counter) RecordCacheHit()  { c.hits++ }
func (c *counter) RecordCacheMiss() { c.misses++ }

func TestObserved(t *testing.T) {
	ctx := context.Background()
	obs := &counter{}
	c := Observed(NewMemory(), obs)

	var v string
	_, _ = c.Get(ctx, "k", &v)
	require.NoError(t, c.Set(ctx, "k", "v", 0))
	_, _ = c.Get(ctx, "k", &v)

	assert.Equal(t, 1, obs.hits)
	assert.Equal(t, 1, obs.misses)
	assert.Equal(t, "v", v)

	plain := NewMemory()
	assert.Same(t, plain, Observed(plain, nil))
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var c Cache = Noop{}
	require.NoError(t, c.Set(ctx, "k", 1, time.Second))
	found, err := c.Get(ctx, "k", new(int))
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, c.Clean(ctx, "*"))
}

func TestRedisIntegration(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set; skipping redis integration test")
	}
	ctx := context.Background()
	r, err := DialRedis(ctx, url, "marina-test:")
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Set(ctx, "users.me:1", profile{ID: "1"}, time.Minute))
	require.NoError(t, r.Set(ctx, "boats.mine:1", profile{ID: "b"}, time.Minute))

	var got profile
	found, err := r.Get(ctx, "users.me:1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "1", got.ID)

	require.NoError(t, r.Clean(ctx, "users.*"))
	found, err = r.Get(ctx, "users.me:1", &got)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = r.Get(ctx, "boats.mine:1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	require.NoError(t, r.Clean(ctx, "*"))
}
