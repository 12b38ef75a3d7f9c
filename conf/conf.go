// Package conf loads engine configuration from a YAML file with environment
// variable overrides (prefix MONGOMAP_).
package conf

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config carries the engine policies that are deployment decisions rather
// than code decisions.
type Config struct {
	// Database is the database name the engine's collections live in.
	Database string `mapstructure:"database"`

	// PreserveUnknown keeps wire fields absent from the schema on decoded
	// instances instead of dropping them.
	PreserveUnknown bool `mapstructure:"preserve_unknown"`

	// StrictRefs fails dereferencing on a missing target instead of leaving
	// a broken-reference sentinel.
	StrictRefs bool `mapstructure:"strict_refs"`

	LogJSON  bool   `mapstructure:"log_json"`
	LogLevel string `mapstructure:"log_level"`
}

// Load reads configuration from path. Environment variables override file
// values: MONGOMAP_DATABASE, MONGOMAP_STRICT_REFS, and so on.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetEnvPrefix("mongomap")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "conf: read config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "conf: unmarshal config")
	}
	return &cfg, nil
}
