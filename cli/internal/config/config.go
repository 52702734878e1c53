// Package config resolves CLI settings from .sqlchain.yaml, SQLCHAIN_*
// environment variables and .env files.
package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// AppFs is the filesystem config and query files are read from
var AppFs = afero.NewOsFs()

// Config holds the CLI configuration
type Config struct {
	Dialect        string
	Provider       string
	DatabaseURL    string
	StatementCache int
	ClientClock    bool
	Debug          bool
	Stats          bool
}

func newViper() (*viper.Viper, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetFs(AppFs)
	v.SetConfigName(".sqlchain")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(home)
	v.AddConfigPath(filepath.Join(home, ".config", "sqlchain"))

	v.SetEnvPrefix("SQLCHAIN")
	v.AutomaticEnv()

	v.SetDefault("dialect", "sqlite")
	v.SetDefault("provider", "sqlite")
	v.SetDefault("statement_cache", 64)
	v.SetDefault("client_clock", false)
	v.SetDefault("debug", false)
	v.SetDefault("stats", false)
	return v, nil
}

// LoadConfig loads configuration. .env never overrides variables already
// set; .env.local does.
func LoadConfig() (*Config, error) {
	if err := loadEnv(".env", false); err != nil {
		return nil, err
	}
	if err := loadEnv(".env.local", true); err != nil {
		return nil, err
	}

	v, err := newViper()
	if err != nil {
		return nil, err
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	url := v.GetString("database_url")
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	return &Config{
		Dialect:        v.GetString("dialect"),
		Provider:       v.GetString("provider"),
		DatabaseURL:    url,
		StatementCache: v.GetInt("statement_cache"),
		ClientClock:    v.GetBool("client_clock"),
		Debug:          v.GetBool("debug"),
		Stats:          v.GetBool("stats"),
	}, nil
}

func loadEnv(name string, override bool) error {
	data, err := afero.ReadFile(AppFs, name)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	vars, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return err
	}
	for k, val := range vars {
		if os.Getenv(k) != "" && !override {
			continue
		}
		if err := os.Setenv(k, val); err != nil {
			return err
		}
	}
	return nil
}

// SaveConfig writes cfg to ~/.config/sqlchain/.sqlchain.yaml
func SaveConfig(cfg *Config) error {
	v, err := newViper()
	if err != nil {
		return err
	}
	v.Set("dialect", cfg.Dialect)
	v.Set("provider", cfg.Provider)
	v.Set("statement_cache", cfg.StatementCache)
	v.Set("client_clock", cfg.ClientClock)

	home, err := homedir.Dir()
	if err != nil {
		return err
	}
	dir := filepath.Join(home, ".config", "sqlchain")
	if err := AppFs.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return v.WriteConfigAs(filepath.Join(dir, ".sqlchain.yaml"))
}
