package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/akshayg/coach/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Store     StoreConfig               `mapstructure:"store"`
	Broker    BrokerConfig              `mapstructure:"broker"`
	Market    MarketConfig              `mapstructure:"market"`
	LLM       LLMConfig                 `mapstructure:"llm"`
	Signals   SignalsConfig             `mapstructure:"signals"`
	Ideas     IdeasConfig               `mapstructure:"ideas"`
	Risk      RiskConfig                `mapstructure:"risk"`
	Tracking  TrackingConfig            `mapstructure:"tracking"`
	Notifiers map[string]NotifierConfig `mapstructure:"notifiers"`
	Archive   ArchiveConfig             `mapstructure:"archive"`
	Metrics   MetricsConfig             `mapstructure:"metrics"`
	Schedule  ScheduleConfig            `mapstructure:"schedule"`
	Sectors   map[string]string         `mapstructure:"sectors"`
}

type ServerConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	APIKey string `mapstructure:"api_key"`
}

// StoreConfig configures the history store. An empty DSN selects the
// in-memory store, which keeps no cross-run history.
type StoreConfig struct {
	DSN string `mapstructure:"dsn"`
}

type BrokerConfig struct {
	Provider    string        `mapstructure:"provider"`
	AccessToken string        `mapstructure:"access_token"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type MarketConfig struct {
	BenchmarkSymbol string        `mapstructure:"benchmark_symbol"`
	SecondarySymbol string        `mapstructure:"secondary_symbol"`
	FXSymbol        string        `mapstructure:"fx_symbol"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// LLMConfig carries one provider configuration per role. The idea generator
// and the critic are configured independently so they can run on different
// models.
type LLMConfig struct {
	Ideas  ProviderConfig `mapstructure:"ideas"`
	Critic ProviderConfig `mapstructure:"critic"`
}

type ProviderConfig struct {
	Provider string `mapstructure:"provider"` // "openai" or "claude"
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
}

type SignalsConfig struct {
	DriftThresholdPct float64            `mapstructure:"drift_threshold_pct"`
	TargetWeights     map[string]float64 `mapstructure:"target_weights"`
}

type IdeasConfig struct {
	// NewPositionBudget caps the rupee value of a fallback-proposed new position.
	NewPositionBudget float64 `mapstructure:"new_position_budget"`
	MaxTokens         int     `mapstructure:"max_tokens"`
}

type RiskConfig struct {
	MaxPositionSizePct float64 `mapstructure:"max_position_size_pct"`
	MinConfidence      float64 `mapstructure:"min_confidence"`
	MaxDrawdown        float64 `mapstructure:"max_drawdown"`
	MaxDailyTrades     int     `mapstructure:"max_daily_trades"`
}

// SnapshotPolicy values for TrackingConfig.
const (
	SnapshotOverwrite = "overwrite"
	SnapshotReject    = "reject"
)

type TrackingConfig struct {
	// SnapshotPolicy decides what a re-run on the same calendar day does to
	// the already-persisted snapshot: "overwrite" or "reject".
	SnapshotPolicy    string `mapstructure:"snapshot_policy"`
	WinRateWindowDays int    `mapstructure:"win_rate_window_days"`
}

type NotifierConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Email notifier fields
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
	// Webhook notifier fields
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type ScheduleConfig struct {
	// Cron is a robfig/cron expression for the daily run.
	Cron     string `mapstructure:"cron"`
	Timezone string `mapstructure:"timezone"`
	// SkipWeekends suppresses scheduled runs on Saturday and Sunday.
	SkipWeekends bool `mapstructure:"skip_weekends"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults. Thresholds match the
// documented decision rules: 5% drift, 5% max position, 0.5 min confidence.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Broker: BrokerConfig{
			Provider: "upstox",
			BaseURL:  "https://api.upstox.com/v2",
			Timeout:  15 * time.Second,
		},
		Market: MarketConfig{
			BenchmarkSymbol: "^NSEI",
			SecondarySymbol: "^BSESN",
			FXSymbol:        "USDINR=X",
			Timeout:         10 * time.Second,
		},
		Signals: SignalsConfig{
			DriftThresholdPct: 5.0,
		},
		Ideas: IdeasConfig{
			NewPositionBudget: 5000,
			MaxTokens:         1000,
		},
		Risk: RiskConfig{
			MaxPositionSizePct: 0.05,
			MinConfidence:      0.5,
			MaxDrawdown:        0.20,
			MaxDailyTrades:     5,
		},
		Tracking: TrackingConfig{
			SnapshotPolicy:    SnapshotOverwrite,
			WinRateWindowDays: 7,
		},
		Archive: ArchiveConfig{
			Type: "localfs",
			Path: "archive",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Schedule: ScheduleConfig{
			Cron:         "45 8 * * *",
			Timezone:     "Asia/Kolkata",
			SkipWeekends: true,
		},
	}
}

// Validate checks the configuration for errors. Failures here are fatal:
// the pipeline aborts before any stage runs.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.Broker.AccessToken == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("broker access_token is required"))
	}

	if c.Risk.MaxPositionSizePct <= 0 || c.Risk.MaxPositionSizePct > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_position_size_pct must be in (0,1], got %f", c.Risk.MaxPositionSizePct))
	}
	if c.Risk.MinConfidence < 0 || c.Risk.MinConfidence > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("min_confidence must be between 0 and 1, got %f", c.Risk.MinConfidence))
	}

	if c.Signals.DriftThresholdPct < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("drift_threshold_pct cannot be negative, got %f", c.Signals.DriftThresholdPct))
	}
	for symbol, w := range c.Signals.TargetWeights {
		if w < 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("target weight for %s cannot be negative, got %f", symbol, w))
		}
	}

	switch c.Tracking.SnapshotPolicy {
	case SnapshotOverwrite, SnapshotReject:
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("snapshot_policy must be %q or %q, got %q",
				SnapshotOverwrite, SnapshotReject, c.Tracking.SnapshotPolicy))
	}

	if err := validateLLMRole("ideas", c.LLM.Ideas); err != nil {
		return err
	}
	if err := validateLLMRole("critic", c.LLM.Critic); err != nil {
		return err
	}

	return nil
}

func validateLLMRole(role string, cfg ProviderConfig) error {
	switch cfg.Provider {
	case "":
		// Role disabled: the pipeline falls back to deterministic heuristics
		// (ideas) or passes everything through (critic).
		return nil
	case "openai", "claude":
		if cfg.APIKey == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("llm.%s api_key required when provider is %s", role, cfg.Provider))
		}
		return nil
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown llm.%s provider: %s", role, cfg.Provider))
	}
}
