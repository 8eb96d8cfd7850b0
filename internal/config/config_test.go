package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:3000", cfg.Server.Addr())
	assert.Equal(t, "/api", cfg.Server.BasePath)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, CacheMemory, cfg.Cache.Driver)
	assert.Equal(t, "jwt-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 60*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, time.Hour, cfg.Cache.TokenTTL)
	assert.True(t, cfg.Docs.Enabled)
	assert.Equal(t, "0.0.0.0:3005", cfg.Docs.Addr())
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins())
	assert.Nil(t, cfg.Auth.AdminList())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("API_BASE_PATH", "v1/")
	t.Setenv("ADMIN_EMAILS", " Root@Example.com, ,ops@example.com")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("CACHE_DRIVER", "NONE")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/v1", cfg.Server.BasePath)
	assert.Equal(t, []string{"root@example.com", "ops@example.com"}, cfg.Auth.AdminList())
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, CacheNone, cfg.Cache.Driver)
}

func TestFromEnvRootBasePath(t *testing.T) {
	t.Setenv("API_BASE_PATH", "/")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Server.BasePath)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without url", map[string]string{"DATABASE_DRIVER": "postgres"}},
		{"redis without url", map[string]string{"CACHE_DRIVER": "redis"}},
		{"unknown driver", map[string]string{"DATABASE_DRIVER": "mongo"}},
		{"unknown cache", map[string]string{"CACHE_DRIVER": "memcached"}},
		{"bcrypt cost", map[string]string{"BCRYPT_COST": "2"}},
		{"bad port", map[string]string{"PORT": "70000"}},
		{"rate limit", map[string]string{"RATE_LIMIT_RPS": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoadDocsInfo(t *testing.T) {
	info, err := LoadDocsInfo("")
	require.NoError(t, err)
	assert.Equal(t, "SOA1", info.Title)
	assert.Equal(t, "4.2.0", info.Version)
	assert.Equal(t, "Apache 2.0", info.License.Name)
	assert.Nil(t, info.Contact)

	path := filepath.Join(t.TempDir(), "docs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("title: Marina\ncontact:\n  name: Harbour Team\n"), 0o600))

	info, err = LoadDocsInfo(path)
	require.NoError(t, err)
	assert.Equal(t, "Marina", info.Title)
	assert.Equal(t, "4.2.0", info.Version)
	require.NotNil(t, info.Contact)
	assert.Equal(t, "Harbour Team", info.Contact.Name)

	_, err = LoadDocsInfo(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
