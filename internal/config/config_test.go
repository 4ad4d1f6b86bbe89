package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"storefront-guard/middleware/ratelimit/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, 250*time.Millisecond, cfg.Server.AcquireTimeout)
	assert.Equal(t, BackendMemory, cfg.RateLimit.Backend)
	assert.Equal(t, 10000, cfg.RateLimit.MaxKeys)
	assert.Equal(t, []string{"/admin/api", "/api/admin", "/guard/"}, cfg.Auth.ProtectedPrefixes)

	rules := cfg.RuleSet()
	require.Len(t, rules, 4)
	assert.Equal(t, domain.Rule{
		Name:       "quote-request",
		PathPrefix: "/api/quote",
		Methods:    []string{"POST"},
		Quota:      domain.Quota{Limit: 5, Window: 10 * time.Minute},
		Algorithm:  domain.AlgorithmFixedWindow,
	}, rules[0])
	assert.Equal(t, "public-api", rules[3].Name)

	require.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  listen_addr: ":9090"
upstream:
  url: "http://storefront:3000"
rate_limit:
  backend: redis
  rules:
    - name: quote
      path_prefix: /api/quote
      methods: [POST]
      limit: 3
      window: 1s
      algorithm: Token_Bucket
`), 0o600))

	t.Setenv("GUARD_AUTH_ADMIN_TOKEN", "s3cr3t")
	t.Setenv("GUARD_SERVER_LISTEN_ADDR", ":7070")
	t.Setenv("GUARD_AUTH_PROTECTED_PREFIXES", "/ops,/guard/")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.ListenAddr)
	assert.Equal(t, "http://storefront:3000", cfg.Upstream.URL)
	assert.Equal(t, "s3cr3t", cfg.Auth.AdminToken)
	assert.Equal(t, []string{"/ops", "/guard/"}, cfg.Auth.ProtectedPrefixes)
	assert.True(t, cfg.UsesRedis())

	require.Len(t, cfg.RateLimit.Rules, 1)
	assert.Equal(t, "token_bucket", cfg.RateLimit.Rules[0].Algorithm)
	assert.Equal(t, time.Second, cfg.RateLimit.Rules[0].Window)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Upstream.URL = "storefront:3000"
	cfg.RateLimit.Backend = "memcached"
	cfg.RateLimit.Rules = append(cfg.RateLimit.Rules,
		RuleConfig{Name: "public-api", PathPrefix: "api", Limit: 0, Window: time.Second, Algorithm: "leaky"})
	cfg.Log.Format = "xml"

	err = cfg.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	for _, want := range []string{"upstream.url", "rate_limit.backend", "duplicated", "path_prefix", "limit > 0", "algorithm", "log.format"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestWriteYAML_MasksSecrets(t *testing.T) {
	t.Setenv("GUARD_AUTH_ADMIN_TOKEN", "s3cr3t")
	t.Setenv("GUARD_REDIS_PASSWORD", "hunter2")

	cfg, err := Load("")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, cfg.WriteYAML(&buf))
	out := buf.String()

	assert.NotContains(t, out, "s3cr3t")
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, masked)
	assert.Contains(t, out, "quote-request")

	// o dump não altera o valor carregado.
	assert.Equal(t, "s3cr3t", cfg.Auth.AdminToken)
}
