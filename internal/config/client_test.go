package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadClientDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.yaml")

	v := NewClientViper()
	cfg, err := LoadClient(v, "")
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8080", cfg.Endpoint)
	assert.Equal(t, "assistant", cfg.Persona)
	assert.Equal(t, 6*time.Millisecond, cfg.RevealDelay)
	assert.Equal(t, "dark", cfg.Theme)
	assert.Equal(t, "warn", cfg.LogLevel)

	_, err = LoadClient(NewClientViper(), missing)
	assert.Error(t, err, "an explicit config file must exist")
}

func TestLoadClientFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint: http://chat.local:5000\npersona: pirate\nreveal_delay: 20ms\ntheme: light\n"), 0o600))
	t.Setenv("CHATTY_MODEL", "openai/gpt-oss-20b")

	cfg, err := LoadClient(NewClientViper(), path)
	require.NoError(t, err)

	assert.Equal(t, "http://chat.local:5000", cfg.Endpoint)
	assert.Equal(t, "pirate", cfg.Persona)
	assert.Equal(t, "openai/gpt-oss-20b", cfg.Model)
	assert.Equal(t, 20*time.Millisecond, cfg.RevealDelay)
	assert.Equal(t, "light", cfg.Theme)
}

func TestLoadClientValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint: not a url\ntheme: purple\n"), 0o600))

	_, err := LoadClient(NewClientViper(), path)
	assert.Error(t, err)
}
