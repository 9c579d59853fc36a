// Package config loads process configuration from environment
// variables layered over a .env file, read through a single typed
// struct built once at startup. viper binds the ARB_-prefixed
// environment variables and supplies defaults; no config file or
// command-line flags are read.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full process configuration. Every service (orchestrator,
// discovery, shard, signalproc, execution, fanout) loads the same struct
// and reads only the fields relevant to its role.
type Config struct {
	Service string `mapstructure:"service"`
	ShardID string `mapstructure:"shard_id"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	MetricsAddr string `mapstructure:"metrics_addr"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	HotBusAddr string `mapstructure:"hot_bus_addr"`

	PostgresDSN     string `mapstructure:"postgres_dsn"`
	DBPoolPreset    string `mapstructure:"db_pool_preset"` // "high_throughput" or "low_latency"

	AlertsWebhookURL  string `mapstructure:"alerts_webhook_url"`
	AlertsFallbackDir string `mapstructure:"alerts_fallback_dir"`

	RiskLimitsPath string `mapstructure:"risk_limits_path"`

	VenueCEXBaseURL string `mapstructure:"venue_cex_base_url"`
	VenueDEXBaseURL string `mapstructure:"venue_dex_base_url"`
	VenuePaperMode  bool   `mapstructure:"venue_paper_mode"`

	HeartbeatInterval      time.Duration `mapstructure:"heartbeat_interval"`
	HeartbeatMissedLimit   int           `mapstructure:"heartbeat_missed_limit"`
	ReassignCooldown       time.Duration `mapstructure:"reassign_cooldown"`
	ShardCapacity          int           `mapstructure:"shard_capacity"`
	GameStalenessThreshold time.Duration `mapstructure:"game_staleness_threshold"`

	DBHealthCheckInterval      time.Duration `mapstructure:"db_health_check_interval"`
	DBHealthFailureThreshold   int           `mapstructure:"db_health_failure_threshold"`

	BusMaxFailures  int     `mapstructure:"bus_max_failures"`
	BusBaseDelayMs  int     `mapstructure:"bus_base_delay_ms"`
	BusMaxDelayMs   int     `mapstructure:"bus_max_delay_ms"`
	BusJitterPct    float64 `mapstructure:"bus_jitter_pct"`

	NoiseGate      float64       `mapstructure:"noise_gate"`
	EdgeThreshold  float64       `mapstructure:"edge_threshold"`
	LiquidityFloor float64       `mapstructure:"liquidity_floor"`
	SignalMaxAge   time.Duration `mapstructure:"signal_max_age"`

	ExecutionDeadline time.Duration `mapstructure:"execution_deadline"`
	DedupTTL          time.Duration `mapstructure:"dedup_ttl"`

	MaxPositionPercent float64       `mapstructure:"max_position_percent"`
	SignalFreshness    time.Duration `mapstructure:"signal_freshness"`
	MinMatchConfidence float64       `mapstructure:"min_match_confidence"`

	VenuePreference []string `mapstructure:"venue_preference"`
}

// Load reads .env (if present), then environment variables prefixed
// ARB_, applying the defaults below for anything unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ARB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("service", "arb-engine")
	v.SetDefault("shard_id", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("metrics_addr", ":9090")

	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	v.SetDefault("hot_bus_addr", ":8765")

	v.SetDefault("postgres_dsn", "postgres://localhost:5432/arb_engine?sslmode=disable")
	v.SetDefault("db_pool_preset", "low_latency")

	v.SetDefault("alerts_webhook_url", "")
	v.SetDefault("alerts_fallback_dir", "data/alerts")

	v.SetDefault("risk_limits_path", "internal/config/risk_limits.yaml")

	v.SetDefault("venue_cex_base_url", "https://api.elections.kalshi.com")
	v.SetDefault("venue_dex_base_url", "")
	v.SetDefault("venue_paper_mode", true)

	v.SetDefault("heartbeat_interval", 2*time.Second)
	v.SetDefault("heartbeat_missed_limit", 3)
	v.SetDefault("reassign_cooldown", 30*time.Second)
	v.SetDefault("shard_capacity", 25)
	v.SetDefault("game_staleness_threshold", 5*time.Second)

	v.SetDefault("db_health_check_interval", 30*time.Second)
	v.SetDefault("db_health_failure_threshold", 3)

	v.SetDefault("bus_max_failures", 10)
	v.SetDefault("bus_base_delay_ms", 1000)
	v.SetDefault("bus_max_delay_ms", 60000)
	v.SetDefault("bus_jitter_pct", 0.1)

	v.SetDefault("noise_gate", 0.02)
	v.SetDefault("edge_threshold", 0.01)
	v.SetDefault("liquidity_floor", 50.0)
	v.SetDefault("signal_max_age", 5*time.Second)

	v.SetDefault("execution_deadline", 3*time.Second)
	v.SetDefault("dedup_ttl", 10*time.Second)

	v.SetDefault("max_position_percent", 0.80)
	v.SetDefault("signal_freshness", 5*time.Second)
	v.SetDefault("min_match_confidence", 0.7)

	v.SetDefault("venue_preference", []string{"CEX", "DEX"})

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
