// Package config loads server settings from an optional config file,
// APIGATE_ environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const (
	EnvPrefix = "APIGATE"

	// MinSigningKeyLength is the smallest accepted HMAC key, in bytes.
	MinSigningKeyLength = 32
)

var ErrInvalidConfig = errors.New("invalid config")

type Token struct {
	DefaultLifetime time.Duration `mapstructure:"default_lifetime"`
	MaxLifetime     time.Duration `mapstructure:"max_lifetime"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	DBPath          string        `mapstructure:"db_path"`
	SigningKey      string        `mapstructure:"signing_key"`
	Issuer          string        `mapstructure:"issuer"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Token           Token         `mapstructure:"token"`
	Log             Log           `mapstructure:"log"`
}

// Loader wraps a viper instance so the same source can be re-read when the
// config file changes.
type Loader struct {
	v *viper.Viper
}

func NewLoader(path string) *Loader {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	}
	return &Loader{v: v}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8000")
	v.SetDefault("db_path", "apigate.db")
	v.SetDefault("signing_key", "")
	v.SetDefault("issuer", "apigate")
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("token.default_lifetime", time.Hour)
	v.SetDefault("token.max_lifetime", 24*time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads the config file (when one was given), overlays the environment
// and validates the result.
func (l *Loader) Load() (*Config, error) {
	if l.v.ConfigFileUsed() != "" {
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	cfg := new(Config)
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Watch calls onChange with the freshly decoded config whenever the config
// file is written. Invalid edits are reported to onError and otherwise
// ignored. Does nothing without a config file.
func (l *Loader) Watch(onChange func(*Config), onError func(error)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.decode()
		if err != nil {
			onError(err)
			return
		}
		onChange(cfg)
	})
	l.v.WatchConfig()
}

// Load is shorthand for NewLoader(path).Load().
func Load(path string) (*Config, error) {
	return NewLoader(path).Load()
}

func (c *Config) Validate() error {
	if len(c.SigningKey) < MinSigningKeyLength {
		return fmt.Errorf("%w: signing_key must be at least %d bytes", ErrInvalidConfig, MinSigningKeyLength)
	}
	if strings.TrimSpace(c.Issuer) == "" {
		return fmt.Errorf("%w: issuer is required", ErrInvalidConfig)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%w: db_path is required", ErrInvalidConfig)
	}
	if c.Token.DefaultLifetime <= 0 || c.Token.MaxLifetime <= 0 {
		return fmt.Errorf("%w: token lifetimes must be positive", ErrInvalidConfig)
	}
	if c.Token.DefaultLifetime > c.Token.MaxLifetime {
		return fmt.Errorf("%w: token.default_lifetime exceeds token.max_lifetime", ErrInvalidConfig)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: shutdown_timeout must not be negative", ErrInvalidConfig)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalidConfig, err)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: log.format must be json or console, got %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}
