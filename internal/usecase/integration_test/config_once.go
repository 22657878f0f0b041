package integrationtest

import (
	"sync"
	"testing"

	"github.com/humanbelnik/soundbyte/internal/config"
)

var (
	cfg     *config.Config
	cfgOnce sync.Once
)

func getConfig() *config.Config {
	cfgOnce.Do(func() {
		cfg = config.FromEnv()
	})
	return cfg
}

// requirePostgres skips the suite unless a database is configured.
func requirePostgres(t *testing.T) {
	if !getConfig().Postgres.Enabled {
		t.Skip("POSTGRES_ENABLED is not set")
	}
}

func requireRedis(t *testing.T) {
	if !getConfig().Redis.Enabled {
		t.Skip("REDIS_ENABLED is not set")
	}
}
