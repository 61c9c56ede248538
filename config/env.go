package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

// loadFromEnv overlays ECOHERO_* environment variables onto cfg. Fields
// whose variable is unset keep their current value.
func loadFromEnv(cfg *Config) error {
	return loadFromLookuper(cfg, envconfig.OsLookuper())
}

func loadFromLookuper(cfg *Config, l envconfig.Lookuper) error {
	return envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   cfg,
		Lookuper: l,
	})
}
