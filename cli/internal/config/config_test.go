package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useMemFs(t *testing.T) afero.Fs {
	t.Helper()
	prev := AppFs
	fs := afero.NewMemMapFs()
	AppFs = fs
	t.Cleanup(func() { AppFs = prev })
	return fs
}

// local is the config file in the working directory
func local(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Join(dir, ".sqlchain.yaml")
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		useMemFs(t)
		for _, name := range []string{"SQLCHAIN_DIALECT", "SQLCHAIN_PROVIDER", "SQLCHAIN_STATEMENT_CACHE", "SQLCHAIN_CLIENT_CLOCK"} {
			t.Setenv(name, "")
		}

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "sqlite", cfg.Dialect)
		assert.Equal(t, "sqlite", cfg.Provider)
		assert.Equal(t, 64, cfg.StatementCache)
		assert.False(t, cfg.ClientClock)
	})

	t.Run("config file", func(t *testing.T) {
		fs := useMemFs(t)
		t.Setenv("SQLCHAIN_DIALECT", "")
		t.Setenv("SQLCHAIN_STATEMENT_CACHE", "")
		t.Setenv("SQLCHAIN_CLIENT_CLOCK", "")
		require.NoError(t, afero.WriteFile(fs, local(t), []byte("dialect: postgres\nstatement_cache: 8\nclient_clock: true\n"), 0644))

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "postgres", cfg.Dialect)
		assert.Equal(t, 8, cfg.StatementCache)
		assert.True(t, cfg.ClientClock)
	})

	t.Run("environment wins over file", func(t *testing.T) {
		fs := useMemFs(t)
		require.NoError(t, afero.WriteFile(fs, local(t), []byte("dialect: postgres\n"), 0644))
		t.Setenv("SQLCHAIN_DIALECT", "mysql")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "mysql", cfg.Dialect)
	})

	t.Run("env files", func(t *testing.T) {
		fs := useMemFs(t)
		t.Setenv("DATABASE_URL", "")
		t.Setenv("SQLCHAIN_PROVIDER", "")
		require.NoError(t, afero.WriteFile(fs, ".env", []byte("DATABASE_URL=file:base.db\nSQLCHAIN_PROVIDER=sqlite3\n"), 0644))
		require.NoError(t, afero.WriteFile(fs, ".env.local", []byte("DATABASE_URL=file:local.db\n"), 0644))

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "file:local.db", cfg.DatabaseURL)
		assert.Equal(t, "sqlite3", cfg.Provider)
	})

	t.Run(".env keeps existing variables", func(t *testing.T) {
		fs := useMemFs(t)
		t.Setenv("DATABASE_URL", "file:shell.db")
		require.NoError(t, afero.WriteFile(fs, ".env", []byte("DATABASE_URL=file:base.db\n"), 0644))

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "file:shell.db", cfg.DatabaseURL)
	})
}

func TestSaveConfig(t *testing.T) {
	fs := useMemFs(t)
	require.NoError(t, SaveConfig(&Config{Dialect: "mysql", Provider: "mysql", StatementCache: 16}))

	home, err := homedir.Dir()
	require.NoError(t, err)
	data, err := afero.ReadFile(fs, filepath.Join(home, ".config", "sqlchain", ".sqlchain.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "dialect: mysql")
	assert.Contains(t, string(data), "statement_cache: 16")
}
