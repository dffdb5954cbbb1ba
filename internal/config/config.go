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
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Scoring  ScoringConfig  `yaml:"scoring" mapstructure:"scoring"`
	Classify ClassifyConfig `yaml:"classify" mapstructure:"classify"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ScoringConfig configures the address scorer and the lazy scoring batch.
type ScoringConfig struct {
	StreetWeight       float64 `yaml:"street_weight" mapstructure:"street_weight"`
	CityStateZipWeight float64 `yaml:"city_state_zip_weight" mapstructure:"city_state_zip_weight"`
	// NoStreetFallback is used as the street component when the candidate has
	// no street line: partial information, deliberately non-zero.
	NoStreetFallback float64 `yaml:"no_street_fallback" mapstructure:"no_street_fallback"`
	ChunkSize        int     `yaml:"chunk_size" mapstructure:"chunk_size"`
	Concurrency      int     `yaml:"concurrency" mapstructure:"concurrency"`
	// PairsPerSecond throttles batch scoring; zero disables the limiter.
	PairsPerSecond float64 `yaml:"pairs_per_second" mapstructure:"pairs_per_second"`
}

// ClassifyConfig holds the status bucket thresholds. Boundaries are
// closed-open: score >= Match is a match, Weak <= score < Match is a weak
// match, below Weak is no match.
type ClassifyConfig struct {
	MatchThreshold float64 `yaml:"match_threshold" mapstructure:"match_threshold"`
	WeakThreshold  float64 `yaml:"weak_threshold" mapstructure:"weak_threshold"`
}

// ServerConfig configures the read-only HTTP API.
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
	v.SetEnvPrefix("LICVERIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("scoring.street_weight", 0.70)
	v.SetDefault("scoring.city_state_zip_weight", 0.30)
	v.SetDefault("scoring.no_street_fallback", 60)
	v.SetDefault("scoring.chunk_size", 500)
	v.SetDefault("scoring.concurrency", 4)
	v.SetDefault("scoring.pairs_per_second", 0)
	v.SetDefault("classify.match_threshold", 85)
	v.SetDefault("classify.weak_threshold", 60)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
