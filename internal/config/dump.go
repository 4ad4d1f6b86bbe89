package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

const masked = "********"

// WriteYAML escreve a configuração efetiva com segredos mascarados.
func (c *Config) WriteYAML(w io.Writer) error {
	settings := make(map[string]any, len(c.settings))
	for k, v := range c.settings {
		settings[k] = v
	}
	maskSecret(settings, "auth", "admin_token")
	maskSecret(settings, "redis", "password")

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(settings); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

func maskSecret(settings map[string]any, section, key string) {
	sec, ok := settings[section].(map[string]any)
	if !ok {
		return
	}
	cp := make(map[string]any, len(sec))
	for k, v := range sec {
		cp[k] = v
	}
	if s, _ := cp[key].(string); s != "" {
		cp[key] = masked
	}
	settings[section] = cp
}
