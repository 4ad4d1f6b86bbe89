package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"storefront-guard/middleware/ratelimit/domain"
)

// ErrInvalid marca erros de validação; use errors.Is.
var ErrInvalid = errors.New("invalid configuration")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

// Validate devolve todos os problemas encontrados, juntos.
func (c *Config) Validate() error {
	var errs []error
	add := func(err error) { errs = append(errs, err) }

	if strings.TrimSpace(c.Server.ListenAddr) == "" {
		add(invalid("server.listen_addr is required"))
	}
	if c.Server.MaxInFlight < 0 {
		add(invalid("server.max_in_flight must be >= 0"))
	}

	if u, err := url.Parse(c.Upstream.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add(invalid("upstream.url must be an absolute http(s) URL, got %q", c.Upstream.URL))
	}

	if !oneOf(c.RateLimit.Backend, BackendMemory, BackendRedis) {
		add(invalid("rate_limit.backend must be memory or redis, got %q", c.RateLimit.Backend))
	}
	if c.RateLimit.MaxKeys < 0 {
		add(invalid("rate_limit.max_keys must be >= 0"))
	}
	seen := make(map[string]bool, len(c.RateLimit.Rules))
	for i, r := range c.RateLimit.Rules {
		if r.Name == "" {
			add(invalid("rate_limit.rules[%d].name is required", i))
		} else if seen[r.Name] {
			add(invalid("rate_limit.rules[%d].name %q is duplicated", i, r.Name))
		}
		seen[r.Name] = true
		if !strings.HasPrefix(r.PathPrefix, "/") {
			add(invalid("rate_limit.rules[%d].path_prefix must start with /", i))
		}
		if r.Limit <= 0 || r.Window <= 0 {
			add(invalid("rate_limit.rules[%d] needs limit > 0 and window > 0", i))
		}
		if !oneOf(r.Algorithm, string(domain.AlgorithmFixedWindow), string(domain.AlgorithmTokenBucket)) {
			add(invalid("rate_limit.rules[%d].algorithm %q is unknown", i, r.Algorithm))
		}
	}

	for _, p := range c.Auth.ProtectedPrefixes {
		if !strings.HasPrefix(p, "/") {
			add(invalid("auth.protected_prefixes entry %q must start with /", p))
		}
	}
	if c.Auth.FailureLimit < 0 {
		add(invalid("auth.failure_limit must be >= 0"))
	}
	if c.Auth.FailureLimit > 0 && c.Auth.FailureWindow <= 0 {
		add(invalid("auth.failure_window must be > 0 when failure_limit is set"))
	}

	if !oneOf(c.Stats.Backend, BackendMemory, BackendRedis) {
		add(invalid("stats.backend must be memory or redis, got %q", c.Stats.Backend))
	}
	if c.UsesRedis() && strings.TrimSpace(c.Redis.Addr) == "" {
		add(invalid("redis.addr is required when a redis backend is selected"))
	}

	if !oneOf(c.Log.Level, "debug", "info", "warn", "error") {
		add(invalid("log.level %q is unknown", c.Log.Level))
	}
	if !oneOf(c.Log.Format, "json", "console") {
		add(invalid("log.format must be json or console, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// RuleSet converte as regras para o domínio do rate limit, preservando a ordem.
func (c *Config) RuleSet() domain.RuleSet {
	rules := make(domain.RuleSet, 0, len(c.RateLimit.Rules))
	for _, r := range c.RateLimit.Rules {
		rules = append(rules, domain.Rule{
			Name:       r.Name,
			PathPrefix: r.PathPrefix,
			Methods:    r.Methods,
			Quota:      domain.Quota{Limit: r.Limit, Window: r.Window},
			Algorithm:  domain.Algorithm(r.Algorithm),
		})
	}
	return rules
}
