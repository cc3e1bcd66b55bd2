// Package config loads application configuration from config.yaml and
// BUILDSCOUT_* environment variables, and initializes the global logger.
package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
type Config struct {
	VK     VKConfig     `yaml:"vk" mapstructure:"vk"`
	Parse  ParseConfig  `yaml:"parse" mapstructure:"parse"`
	Vision VisionConfig `yaml:"vision" mapstructure:"vision"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// VKConfig holds VK API credentials and endpoint settings.
type VKConfig struct {
	Token      string   `yaml:"token" mapstructure:"token"`
	APIVersion string   `yaml:"api_version" mapstructure:"api_version"`
	Endpoints  []string `yaml:"endpoints" mapstructure:"endpoints"`
	RateRPS    float64  `yaml:"rate_rps" mapstructure:"rate_rps"`
}

// ParseConfig configures the ingest pipeline.
type ParseConfig struct {
	GroupIDs   []int64 `yaml:"group_ids" mapstructure:"group_ids"`
	GroupsFile string  `yaml:"groups_file" mapstructure:"groups_file"`
	MinPrice   float64 `yaml:"min_price" mapstructure:"min_price"`
	FetchLimit int     `yaml:"fetch_limit" mapstructure:"fetch_limit"`
	Workers    int     `yaml:"workers" mapstructure:"workers"`
}

// VisionConfig configures the visual case-color classifier.
type VisionConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	EmbedURL string `yaml:"embed_url" mapstructure:"embed_url"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port                 int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins       []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	PriceComparisonRange float64  `yaml:"price_comparison_range" mapstructure:"price_comparison_range"`
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
	v.SetEnvPrefix("BUILDSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("vk.api_version", "5.199")
	v.SetDefault("vk.rate_rps", 3.0)
	v.SetDefault("parse.min_price", 40000)
	v.SetDefault("parse.fetch_limit", 1000)
	v.SetDefault("parse.workers", 1)
	v.SetDefault("vision.enabled", false)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "pc_builds.db")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.price_comparison_range", 50000)
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

// groupsFile is the on-disk shape of a group list.
type groupsFile struct {
	Groups []struct {
		ID   int64  `yaml:"id"`
		Name string `yaml:"name"` // informational only
	} `yaml:"groups"`
}

// LoadGroupIDs returns the configured group identifiers, merging the
// inline list with the optional groups file. Order is preserved:
// inline IDs first, then file entries, duplicates dropped.
func (c *Config) LoadGroupIDs() ([]int64, error) {
	seen := make(map[int64]bool)
	var ids []int64
	for _, id := range c.Parse.GroupIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if c.Parse.GroupsFile == "" {
		return ids, nil
	}

	data, err := os.ReadFile(c.Parse.GroupsFile)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read groups file %s", c.Parse.GroupsFile)
	}
	var gf groupsFile
	if err := yaml.Unmarshal(data, &gf); err != nil {
		return nil, eris.Wrapf(err, "config: parse groups file %s", c.Parse.GroupsFile)
	}
	for _, g := range gf.Groups {
		if g.ID != 0 && !seen[g.ID] {
			seen[g.ID] = true
			ids = append(ids, g.ID)
		}
	}
	return ids, nil
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
