// Package config carrega a configuração do guard em três camadas: defaults,
// arquivo YAML opcional (--config) e variáveis de ambiente com prefixo GUARD_.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const EnvPrefix = "GUARD"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Stats     StatsConfig     `mapstructure:"stats"`
	Log       LogConfig       `mapstructure:"log"`

	// valores efetivos crus, usados pelo dump YAML.
	settings map[string]any
}

type ServerConfig struct {
	ListenAddr        string        `mapstructure:"listen_addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	MaxInFlight       int           `mapstructure:"max_in_flight"`
	AcquireTimeout    time.Duration `mapstructure:"acquire_timeout"`
	MetricsNamespace  string        `mapstructure:"metrics_namespace"`
}

type UpstreamConfig struct {
	URL string `mapstructure:"url"`
}

type RateLimitConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Backend       string        `mapstructure:"backend"`
	KeyHeader     string        `mapstructure:"key_header"`
	TrustXFF      bool          `mapstructure:"trust_xff"`
	AddHeaders    bool          `mapstructure:"add_headers"`
	FailOpen      bool          `mapstructure:"fail_open"`
	RetryAfter    time.Duration `mapstructure:"retry_after"`
	MaxKeys       int           `mapstructure:"max_keys"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	Rules         []RuleConfig  `mapstructure:"rules"`
}

type RuleConfig struct {
	Name       string        `mapstructure:"name"`
	PathPrefix string        `mapstructure:"path_prefix"`
	Methods    []string      `mapstructure:"methods"`
	Limit      int           `mapstructure:"limit"`
	Window     time.Duration `mapstructure:"window"`
	Algorithm  string        `mapstructure:"algorithm"`
}

type AuthConfig struct {
	AdminToken        string        `mapstructure:"admin_token"`
	ProtectedPrefixes []string      `mapstructure:"protected_prefixes"`
	FailureLimit      int           `mapstructure:"failure_limit"`
	FailureWindow     time.Duration `mapstructure:"failure_window"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	Prefix      string        `mapstructure:"prefix"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

type StatsConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Backend   string        `mapstructure:"backend"`
	Prefix    string        `mapstructure:"prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
	Bucket    string        `mapstructure:"bucket"`
	TrackKeys bool          `mapstructure:"track_keys"`
}

type LogConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"`
	File   LogFileConfig `mapstructure:"file"`
}

type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Load monta a configuração efetiva. path vazio dispensa o arquivo.
// O resultado não é validado; chame Validate.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	cfg.settings = v.AllSettings()
	return cfg, nil
}

func (c *Config) normalize() {
	c.RateLimit.Backend = strings.ToLower(strings.TrimSpace(c.RateLimit.Backend))
	c.Stats.Backend = strings.ToLower(strings.TrimSpace(c.Stats.Backend))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	for i := range c.RateLimit.Rules {
		r := &c.RateLimit.Rules[i]
		r.Algorithm = strings.ToLower(strings.TrimSpace(r.Algorithm))
		if r.Algorithm == "" {
			r.Algorithm = "fixed_window"
		}
	}
}

// UsesRedis indica se algum componente precisa de conexão Redis.
func (c *Config) UsesRedis() bool {
	return (c.RateLimit.Enabled && c.RateLimit.Backend == BackendRedis) ||
		(c.Stats.Enabled && c.Stats.Backend == BackendRedis)
}
