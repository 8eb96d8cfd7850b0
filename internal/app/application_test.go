package app

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/marina/internal/app/auth"
	"github.com/R3E-Network/marina/internal/app/metrics"
	"github.com/R3E-Network/marina/internal/app/services/boats"
	"github.com/R3E-Network/marina/internal/app/services/users"
	"github.com/R3E-Network/marina/internal/app/system"
	"github.com/R3E-Network/marina/internal/logging"
)

func TestApplicationDefaultsToMemory(t *testing.T) {
	m := metrics.New("apptest")
	application, err := New(Stores{}, Options{
		Tokens:      auth.NewTokenManager("secret", 0, "marina"),
		Metrics:     m,
		BcryptCost:  4,
		AdminEmails: []string{"boss@example.com"},
	}, logging.NewDiscard("app"))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, application.Attach(system.NoopService{ServiceName: "extra"}))
	assert.Equal(t, []string{"users", "boats", "extra"}, application.Services())
	require.NoError(t, application.Start(ctx))
	defer application.Stop(ctx)

	boss, err := application.Users.Create(ctx, users.CreateInput{
		Firstname: "Big", Lastname: "Boss", Email: "boss@example.com", Password: "secret1",
	})
	require.NoError(t, err)

	ident, err := application.Users.ResolveToken(ctx, boss.Token)
	require.NoError(t, err)
	assert.True(t, ident.IsAdmin())

	year := 2001.0
	b, err := application.Boats.Create(ctx, ident, boats.Input{Make: "Hallberg", Model: "Rassy", Year: &year})
	require.NoError(t, err)

	all, err := application.Boats.List(ctx, ident)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, b.ID, all[0].ID)

	assert.Equal(t, 2, application.Events.Count())
	assert.Equal(t, "boats.created", application.Events.Recent(1)[0].Type)

	// users.created and boats.created both reached the metrics subscriber.
	n, err := testutil.GatherAndCount(m.Registry, "apptest_entities_changes_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestApplicationWithoutMetrics(t *testing.T) {
	application, err := New(Stores{}, Options{BcryptCost: 4}, logging.NewDiscard("app"))
	require.NoError(t, err)
	assert.Nil(t, application.Metrics)
	assert.NotNil(t, application.Tokens)

	_, err = application.Users.Create(context.Background(), users.CreateInput{
		Firstname: "Ann", Lastname: "Bonny", Email: "ann@example.com", Password: "secret1",
	})
	require.NoError(t, err)
}
