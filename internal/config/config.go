// Package config loads chatvault settings from a yaml file, the environment
// and an optional .env file.
package config

import (
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"chatvault/internal/database"
	"chatvault/internal/logging"
	"chatvault/internal/services"
	"chatvault/internal/utils"
)

const (
	EnvPrefix  = "CHATVAULT"
	ConfigName = "chatvault"
)

type Config struct {
	Database DatabaseConfig
	Logging  logging.Config
	Keyring  services.KeyringConfig

	// EnvFile is the .env file Load applied, if any.
	EnvFile string
}

type DatabaseConfig struct {
	Path     string
	LogLevel string
}

// Options for the store as database.Init expects them.
func (c DatabaseConfig) Options() database.Config {
	return database.Config{
		Path:     c.Path,
		LogLevel: database.ParseLogLevel(c.LogLevel),
	}
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Database),
		validation.Field(&c.Logging, validation.By(validateLogging)),
		validation.Field(&c.Keyring, validation.By(validateKeyring)),
	)
}

func (c DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.LogLevel, validation.In("silent", "error", "warn", "info")),
	)
}

func validateLogging(value interface{}) error {
	cfg, _ := value.(logging.Config)
	return validation.ValidateStruct(&cfg,
		validation.Field(&cfg.Level, validation.In("debug", "info", "warn", "error", "fatal")),
		validation.Field(&cfg.Format, validation.In("text", "json")),
	)
}

func validateKeyring(value interface{}) error {
	cfg, _ := value.(services.KeyringConfig)
	return validation.ValidateStruct(&cfg,
		validation.Field(&cfg.Backend, validation.Required, validation.In(
			services.KeyringBackendFile,
			services.KeyringBackendSystem,
			services.KeyringBackendMemory,
		)),
		validation.Field(&cfg.FileDir, validation.When(cfg.Backend == services.KeyringBackendFile, validation.Required)),
	)
}

// New returns a viper instance with chatvault defaults and env bindings.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("database.path", database.GetDefaultDBPath())
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.with_caller", false)
	v.SetDefault("logging.file", "")
	v.SetDefault("keyring.backend", services.KeyringBackendFile)
	v.SetDefault("keyring.file_dir", defaultKeyringDir())
	v.SetDefault("keyring.password", "")
	return v
}

// Load reads configuration. configPath may be empty, in which case
// chatvault.yaml is looked up in the XDG config dir and the working dir; a
// missing file is not an error.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	envFile, err := utils.LoadEnv(envDirs(configPath)...)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrapf(err, "load %s", envFile)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, ConfigName))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "read config")
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Path:     v.GetString("database.path"),
			LogLevel: v.GetString("database.log_level"),
		},
		Logging: logging.Config{
			Level:      v.GetString("logging.level"),
			Format:     v.GetString("logging.format"),
			WithCaller: v.GetBool("logging.with_caller"),
			File:       v.GetString("logging.file"),
		},
		Keyring: services.KeyringConfig{
			Backend:  v.GetString("keyring.backend"),
			FileDir:  v.GetString("keyring.file_dir"),
			Password: v.GetString("keyring.password"),
		},
		EnvFile: envFile,
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// envDirs lists where a .env may live: beside an explicit config file, then
// in the chatvault config dir.
func envDirs(configPath string) []string {
	var dirs []string
	if configPath != "" {
		dirs = append(dirs, filepath.Dir(configPath))
	}
	if dir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(dir, ConfigName))
	}
	return dirs
}

func defaultKeyringDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", ".chatvault-keyring")
	}
	return filepath.Join(dir, ConfigName, "keyring")
}
