package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load builds the configuration: defaults, then the TOML file at path (when
// path is non-empty), then ECHELON_* environment variables. A .env file in
// the working directory is loaded first so env overrides can live there.
// The returned Config has NOT been validated; call Config.Validate after.
func Load(path string) (Config, error) {
	cfg := Defaults()

	// Load .env if present (silently ignore if missing).
	_ = godotenv.Load()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides reads well-known ECHELON_* variables and overwrites the
// corresponding fields when a variable is set. This lets operators inject
// secrets at deploy time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	setInt(&cfg.Server.Port, "ECHELON_SERVER_PORT")
	setStrList(&cfg.Server.CORSOrigins, "ECHELON_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.CreatePerHour, "ECHELON_SERVER_CREATE_PER_HOUR")

	setStr(&cfg.Advisory.APIKey, "ECHELON_ADVISORY_API_KEY")
	setStr(&cfg.Advisory.BaseURL, "ECHELON_ADVISORY_BASE_URL")
	setStr(&cfg.Advisory.Model, "ECHELON_ADVISORY_MODEL")
	setInt(&cfg.Advisory.RPM, "ECHELON_ADVISORY_RPM")
	setInt(&cfg.Advisory.MaxRetries, "ECHELON_ADVISORY_MAX_RETRIES")
	setDur(&cfg.Advisory.RetryBase, "ECHELON_ADVISORY_RETRY_BASE")
	setInt(&cfg.Advisory.BreakerThreshold, "ECHELON_ADVISORY_BREAKER_THRESHOLD")
	setDur(&cfg.Advisory.BreakerCooldown, "ECHELON_ADVISORY_BREAKER_COOLDOWN")
	setDur(&cfg.Advisory.Timeout, "ECHELON_ADVISORY_TIMEOUT")

	setInt(&cfg.Sim.CheckpointInterval, "ECHELON_SIM_CHECKPOINT_INTERVAL")
	setFloat(&cfg.Sim.VisitsPerMonth, "ECHELON_SIM_VISITS_PER_MONTH")
	setFloat(&cfg.Sim.Volatility, "ECHELON_SIM_VOLATILITY")
	setInt64(&cfg.Sim.MaxConcurrentJobs, "ECHELON_SIM_MAX_CONCURRENT_JOBS")

	setStr(&cfg.Store.Driver, "ECHELON_STORE_DRIVER")
	setStr(&cfg.Store.Path, "ECHELON_STORE_PATH")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setStrList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDur(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = duration(d)
		}
	}
}
