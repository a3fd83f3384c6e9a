package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Check   CheckConfig   `yaml:"check" mapstructure:"check"`
	Audit   AuditConfig   `yaml:"audit" mapstructure:"audit"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// CheckConfig configures the quality check battery. Defaults mirror the
// compliance rules the checks were written against; they are tunable per
// deployment, not per run.
type CheckConfig struct {
	Parallelism             int     `yaml:"parallelism" mapstructure:"parallelism"`
	StaleClaimDays          int     `yaml:"stale_claim_days" mapstructure:"stale_claim_days"`
	HighAmountThreshold     float64 `yaml:"high_amount_threshold" mapstructure:"high_amount_threshold"`
	HighFrequencyCount      int     `yaml:"high_frequency_count" mapstructure:"high_frequency_count"`
	HighFrequencyWindowDays int     `yaml:"high_frequency_window_days" mapstructure:"high_frequency_window_days"`
	StaleRecordDays         int     `yaml:"stale_record_days" mapstructure:"stale_record_days"`
	DocumentationGraceDays  int     `yaml:"documentation_grace_days" mapstructure:"documentation_grace_days"`
	BillingGraceDays        int     `yaml:"billing_grace_days" mapstructure:"billing_grace_days"`
}

// AuditConfig configures finding persistence.
type AuditConfig struct {
	// DedupOpenFindings skips findings that already have an OPEN audit row
	// for the same (check_type, table_name, record_id, issue_type). Off by
	// default: each run records a fresh finding set.
	DedupOpenFindings bool `yaml:"dedup_open_findings" mapstructure:"dedup_open_findings"`
}

// MetricsConfig configures the metrics aggregator.
type MetricsConfig struct {
	RecencyWindowDays  int     `yaml:"recency_window_days" mapstructure:"recency_window_days"`
	CompletenessTarget float64 `yaml:"completeness_target" mapstructure:"completeness_target"`
	RecencyTarget      float64 `yaml:"recency_target" mapstructure:"recency_target"`
}

// ServerConfig configures the dashboard API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("HEALTHQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("check.parallelism", 1)
	v.SetDefault("check.stale_claim_days", 30)
	v.SetDefault("check.high_amount_threshold", 50000)
	v.SetDefault("check.high_frequency_count", 50)
	v.SetDefault("check.high_frequency_window_days", 365)
	v.SetDefault("check.stale_record_days", 730)
	v.SetDefault("check.documentation_grace_days", 7)
	v.SetDefault("check.billing_grace_days", 14)
	v.SetDefault("audit.dedup_open_findings", false)
	v.SetDefault("metrics.recency_window_days", 30)
	v.SetDefault("metrics.completeness_target", 95)
	v.SetDefault("metrics.recency_target", 90)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
