// Package config holds the layered Echelon configuration: built-in defaults,
// an optional TOML file, and ECHELON_* environment overrides.
package config

import (
	"fmt"
	"time"
)

// Config is the full runtime configuration.
type Config struct {
	Server   Server   `toml:"server"`
	Advisory Advisory `toml:"advisory"`
	Sim      Sim      `toml:"sim"`
	Store    Store    `toml:"store"`
	Limits   Limits   `toml:"limits"`
}

// Server configures the HTTP API.
type Server struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// CreateRPM caps simulation-creation requests per IP per hour.
	CreatePerHour int `toml:"create_per_hour"`
}

// Advisory configures the external advisory collaborator and the resilience
// stack around it.
type Advisory struct {
	APIKey           string   `toml:"api_key"`
	BaseURL          string   `toml:"base_url"`
	Model            string   `toml:"model"`
	RPM              int      `toml:"rpm"`
	MaxRetries       int      `toml:"max_retries"`
	RetryBase        duration `toml:"retry_base"`
	BreakerThreshold int      `toml:"breaker_threshold"`
	BreakerCooldown  duration `toml:"breaker_cooldown"`
	Timeout          duration `toml:"timeout"`
}

// Sim configures simulation mechanics that are not part of the creation
// request.
type Sim struct {
	CheckpointInterval int     `toml:"checkpoint_interval"`
	VisitsPerMonth     float64 `toml:"visits_per_month"`
	Volatility         float64 `toml:"volatility"`
	MaxConcurrentJobs  int64   `toml:"max_concurrent_jobs"`
}

// Store selects the record store backend.
type Store struct {
	Driver string `toml:"driver"` // "memory" or "sqlite"
	Path   string `toml:"path"`
}

// Limits bounds and defaults for job-creation parameters.
type Limits struct {
	IdeaMaxLen        int     `toml:"idea_max_len"`
	RegionMaxLen      int     `toml:"region_max_len"`
	PopulationMin     float64 `toml:"population_min"`
	PopulationMax     float64 `toml:"population_max"`
	PopulationDefault float64 `toml:"population_default"`
	SentimentDefault  float64 `toml:"sentiment_default"`
	DurationMin       int     `toml:"duration_min"`
	DurationMax       int     `toml:"duration_max"`
	DurationDefault   int     `toml:"duration_default"`
}

// duration wraps time.Duration for TOML decoding from strings like "30s".
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

// Std returns the wrapped time.Duration.
func (d duration) Std() time.Duration { return time.Duration(d) }

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:          8080,
			CreatePerHour: 30,
		},
		Advisory: Advisory{
			BaseURL:          "https://api.anthropic.com/v1/messages",
			Model:            "claude-haiku-4-5-20251001",
			RPM:              12,
			MaxRetries:       3,
			RetryBase:        duration(2 * time.Second),
			BreakerThreshold: 5,
			BreakerCooldown:  duration(30 * time.Second),
			Timeout:          duration(30 * time.Second),
		},
		Sim: Sim{
			CheckpointInterval: 6,
			VisitsPerMonth:     2.5,
			Volatility:         0.15,
			MaxConcurrentJobs:  8,
		},
		Store: Store{
			Driver: "memory",
			Path:   "data/echelon.db",
		},
		Limits: Limits{
			IdeaMaxLen:        2000,
			RegionMaxLen:      120,
			PopulationMin:     1000,
			PopulationMax:     5_000_000,
			PopulationDefault: 20_000,
			SentimentDefault:  0.65,
			DurationMin:       1,
			DurationMax:       60,
			DurationDefault:   24,
		},
	}
}

// Validate checks the configuration for values the rest of the system cannot
// work with. Load does not call it; callers should.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Advisory.RPM < 1 {
		return fmt.Errorf("advisory.rpm must be >= 1, got %d", c.Advisory.RPM)
	}
	if c.Sim.CheckpointInterval < 1 {
		return fmt.Errorf("sim.checkpoint_interval must be >= 1, got %d", c.Sim.CheckpointInterval)
	}
	if c.Sim.MaxConcurrentJobs < 1 {
		return fmt.Errorf("sim.max_concurrent_jobs must be >= 1, got %d", c.Sim.MaxConcurrentJobs)
	}
	switch c.Store.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("store.driver must be memory or sqlite, got %q", c.Store.Driver)
	}
	if c.Limits.PopulationMin > c.Limits.PopulationMax {
		return fmt.Errorf("limits: population_min > population_max")
	}
	if c.Limits.DurationMin > c.Limits.DurationMax {
		return fmt.Errorf("limits: duration_min > duration_max")
	}
	return nil
}
