package config

import "github.com/spf13/viper"

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Durações ficam como string para o dump YAML sair legível.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.read_header_timeout", "5s")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.max_in_flight", 200)
	v.SetDefault("server.acquire_timeout", "250ms")
	v.SetDefault("server.metrics_namespace", "storefront_guard")

	v.SetDefault("upstream.url", "http://127.0.0.1:3000")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.backend", BackendMemory)
	v.SetDefault("rate_limit.key_header", "")
	v.SetDefault("rate_limit.trust_xff", false)
	v.SetDefault("rate_limit.add_headers", true)
	v.SetDefault("rate_limit.fail_open", true)
	v.SetDefault("rate_limit.retry_after", "1s")
	v.SetDefault("rate_limit.max_keys", 10000)
	v.SetDefault("rate_limit.sweep_interval", "1m")
	v.SetDefault("rate_limit.rules", []map[string]any{
		{"name": "quote-request", "path_prefix": "/api/quote", "methods": []string{"POST"}, "limit": 5, "window": "10m"},
		{"name": "admin-login", "path_prefix": "/admin/login", "methods": []string{"POST"}, "limit": 10, "window": "15m"},
		{"name": "admin-api", "path_prefix": "/api/admin", "limit": 120, "window": "1m"},
		{"name": "public-api", "path_prefix": "/api", "limit": 300, "window": "1m"},
	})

	v.SetDefault("auth.admin_token", "")
	v.SetDefault("auth.protected_prefixes", []string{"/admin/api", "/api/admin", "/guard/"})
	v.SetDefault("auth.failure_limit", 10)
	v.SetDefault("auth.failure_window", "15m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "storefront-guard")
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.max_retries", 5)

	v.SetDefault("stats.enabled", true)
	v.SetDefault("stats.backend", BackendMemory)
	v.SetDefault("stats.prefix", "storefront-guard:stats")
	v.SetDefault("stats.ttl", "24h")
	v.SetDefault("stats.bucket", "minute")
	v.SetDefault("stats.track_keys", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file.path", "")
	v.SetDefault("log.file.max_size_mb", 100)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.max_age_days", 30)
	v.SetDefault("log.file.compress", true)
}
