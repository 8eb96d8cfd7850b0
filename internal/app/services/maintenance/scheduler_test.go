package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/marina/internal/logging"
)

type countingPruner struct{ calls int }

func (p *countingPruner) Cleanup() int { p.calls++; return 3 }

type countingSweeper struct{ calls int }

func (s *countingSweeper) Sweep() int { s.calls++; return 0 }

func TestSchedulerAddAndRunNow(t *testing.T) {
	s := NewScheduler(logging.NewDiscard("test"))
	p := &countingPruner{}
	sw := &countingSweeper{}

	require.NoError(t, s.Add("limiter-prune", LimiterPruneSpec, PruneLimiters(p, logging.NewDiscard("test"))))
	require.NoError(t, s.Add("cache-sweep", CacheSweepSpec, SweepCache(sw, nil)))
	assert.Error(t, s.Add("cache-sweep", CacheSweepSpec, SweepCache(sw, nil)))
	assert.Error(t, s.Add("broken", "not a spec", SweepCache(sw, nil)))

	assert.Equal(t, []string{"cache-sweep", "limiter-prune"}, s.Jobs())

	ctx := context.Background()
	require.NoError(t, s.RunNow(ctx, "limiter-prune"))
	require.NoError(t, s.RunNow(ctx, "cache-sweep"))
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, 1, sw.calls)
	assert.Error(t, s.RunNow(ctx, "missing"))
}

func TestSchedulerStartStop(t *testing.T) {
	s := NewScheduler(logging.NewDiscard("test"))
	assert.Equal(t, "maintenance", s.Name())

	ran := make(chan struct{}, 10)
	require.NoError(t, s.Add("tick", "@every 1s", func(context.Context) error {
		ran <- struct{}{}
		return errors.New("logged, not fatal")
	}))

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Start(ctx))

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))
	require.NoError(t, s.Stop(stopCtx))
}

func TestKV(t *testing.T) {
	fields := kv([]interface{}{"entry", 1, "next", "soon", "dangling"})
	assert.Equal(t, map[string]interface{}{"entry": 1, "next": "soon"}, fields)
}
