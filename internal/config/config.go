package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port          string        `env:"PORT" envDefault:"8080"`
	DatabasePath  string        `env:"DATABASE_PATH" envDefault:"./quizsmith.db"`
	PublicBaseURL string        `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	EvictDelay    time.Duration `env:"EVICT_DELAY" envDefault:"60s"`
	ExportEnabled bool          `env:"EXPORT_ENABLED" envDefault:"false"`
	ExportFile    string        `env:"EXPORT_FILE" envDefault:"./quizsmith-results.txt"`
}

// Load reads configuration from the environment, honoring a local .env
// file when present.
func Load() (Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}
