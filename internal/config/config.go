// Package config provides Viper-based hierarchical configuration: defaults,
// then an optional YAML config file, then environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Batch struct {
		Workers            int `mapstructure:"workers" yaml:"workers"`
		FileTimeoutSeconds int `mapstructure:"file_timeout_seconds" yaml:"file_timeout_seconds"`
	} `mapstructure:"batch" yaml:"batch"`

	Ledger struct {
		Path string `mapstructure:"path" yaml:"path"`
	} `mapstructure:"ledger" yaml:"ledger"`

	Parties struct {
		File string `mapstructure:"file" yaml:"file"`
	} `mapstructure:"parties" yaml:"parties"`

	Sheet struct {
		Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
	} `mapstructure:"sheet" yaml:"sheet"`
}

// LoadEnv loads a .env file when present. Missing files are fine; explicit
// environment variables always win.
func LoadEnv() {
	_ = godotenv.Load()
}

// Load initializes Viper configuration with hierarchical loading.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.camt-import")
	v.AddConfigPath(".camt-import")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CAMTIMPORT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file %s: %w", v.ConfigFileUsed(), err)
		}
		// No config file is fine, defaults and env vars apply.
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("batch.workers", 4)
	v.SetDefault("batch.file_timeout_seconds", 30)

	v.SetDefault("ledger.path", "camt-import.db")
	v.SetDefault("parties.file", "")

	v.SetDefault("sheet.delimiter", ",")
}

func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}
	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}
	if config.Batch.Workers < 1 || config.Batch.Workers > 64 {
		return fmt.Errorf("batch.workers must be between 1 and 64, got: %d", config.Batch.Workers)
	}
	if config.Batch.FileTimeoutSeconds < 1 || config.Batch.FileTimeoutSeconds > 600 {
		return fmt.Errorf("batch.file_timeout_seconds must be between 1 and 600, got: %d", config.Batch.FileTimeoutSeconds)
	}
	if config.Ledger.Path == "" {
		return fmt.Errorf("ledger.path must not be empty")
	}
	if len(config.Sheet.Delimiter) != 1 {
		return fmt.Errorf("sheet delimiter must be a single character, got: %s", config.Sheet.Delimiter)
	}
	return nil
}
