package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ClientConfig is the configuration of the terminal client.
// Values come from flags, CHATTY_* environment variables or a config file.
type ClientConfig struct {
	Endpoint    string        `mapstructure:"endpoint" validate:"required,url"`
	Persona     string        `mapstructure:"persona" validate:"max=4000"`
	Model       string        `mapstructure:"model" validate:"max=128"`
	RevealDelay time.Duration `mapstructure:"reveal_delay" validate:"min=0"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"min=0"`
	ExportDir   string        `mapstructure:"export_dir"`
	Theme       string        `mapstructure:"theme" validate:"oneof=dark light"`
	LogLevel    string        `mapstructure:"log_level" validate:"oneof=trace debug info warn error disabled"`
}

// Client config keys.
const (
	KeyEndpoint    = "endpoint"
	KeyPersona     = "persona"
	KeyModel       = "model"
	KeyRevealDelay = "reveal_delay"
	KeyTimeout     = "timeout"
	KeyExportDir   = "export_dir"
	KeyTheme       = "theme"
	KeyLogLevel    = "log_level"
)

// DefaultClientConfigFile is where the client looks for a config file.
func DefaultClientConfigFile() string {
	return filepath.Join(xdg.ConfigHome, "chatty", "config.yaml")
}

// NewClientViper prepares a viper instance with defaults and env binding.
func NewClientViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyEndpoint, "http://127.0.0.1:8080")
	v.SetDefault(KeyPersona, "assistant")
	v.SetDefault(KeyModel, "")
	v.SetDefault(KeyRevealDelay, 6*time.Millisecond)
	v.SetDefault(KeyTimeout, 90*time.Second)
	v.SetDefault(KeyExportDir, ".")
	v.SetDefault(KeyTheme, "dark")
	v.SetDefault(KeyLogLevel, "warn")

	v.SetEnvPrefix("CHATTY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadClient reads the optional config file and decodes the result.
// A missing default config file is fine; a missing explicit one is not.
func LoadClient(v *viper.Viper, configFile string) (*ClientConfig, error) {
	explicit := configFile != ""
	if !explicit {
		configFile = DefaultClientConfigFile()
	}
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !(errors.As(err, &notFound) || isNotExist(err)) {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.Theme = strings.ToLower(strings.TrimSpace(cfg.Theme))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
