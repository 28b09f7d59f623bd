package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Secrets   SecretsConfig   `mapstructure:"secrets"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	TLS  struct {
		Enabled  bool   `mapstructure:"enabled"`
		CertFile string `mapstructure:"cert_file"`
		KeyFile  string `mapstructure:"key_file"`
	} `mapstructure:"tls"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
// Redis is optional: it backs the distributed per-key signing lock when
// multiple instances share the same hardware provider. When disabled the
// service falls back to in-process locking.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ProviderConfig holds hardware provider configuration.
// The hardware provider is an external command invoked once per operation;
// each operation has its own versioned script and timeout.
type ProviderConfig struct {
	// Interpreter is the command used to run provider scripts
	// (e.g. "powershell.exe" on Windows, "/bin/sh" elsewhere).
	Interpreter string `mapstructure:"interpreter"`
	// InterpreterArgs are passed before the script path
	// (e.g. ["-NoProfile", "-File"] for PowerShell).
	InterpreterArgs []string `mapstructure:"interpreter_args"`
	// ScriptDir is the directory holding the provider scripts.
	ScriptDir string `mapstructure:"script_dir"`
	// Script file names under ScriptDir, one per operation.
	CreateScript string `mapstructure:"create_script"`
	SignScript   string `mapstructure:"sign_script"`
	DeleteScript string `mapstructure:"delete_script"`
	// Per-operation timeouts. The child process is killed on expiry.
	CreateTimeout time.Duration `mapstructure:"create_timeout"`
	SignTimeout   time.Duration `mapstructure:"sign_timeout"`
	DeleteTimeout time.Duration `mapstructure:"delete_timeout"`
}

// SecretsConfig holds the software key store configuration
type SecretsConfig struct {
	// MasterKey is the hex-encoded 256-bit root key used to derive
	// per-key encryption keys for software-backed private key material.
	MasterKey string `mapstructure:"master_key"`
}

// ArtifactsConfig holds signed-artifact output configuration
type ArtifactsConfig struct {
	// OutputDir is where composed artifact files are written.
	// Empty means artifacts are persisted to the database only.
	OutputDir string `mapstructure:"output_dir"`
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/sealdoc")

	// Set defaults
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Bind environment variables
	v.SetEnvPrefix("SEALDOC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.tls.enabled", false)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "sealdoc")
	v.SetDefault("database.user", "sealdoc")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 25)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Provider defaults
	if runtime.GOOS == "windows" {
		v.SetDefault("provider.interpreter", "powershell.exe")
		v.SetDefault("provider.interpreter_args", []string{"-NoProfile", "-ExecutionPolicy", "Bypass", "-File"})
	} else {
		v.SetDefault("provider.interpreter", "/bin/sh")
		v.SetDefault("provider.interpreter_args", []string{})
	}
	v.SetDefault("provider.script_dir", "./scripts/provider")
	v.SetDefault("provider.create_script", "create-key.v1.ps1")
	v.SetDefault("provider.sign_script", "sign-hash.v1.ps1")
	v.SetDefault("provider.delete_script", "delete-key.v1.ps1")
	v.SetDefault("provider.create_timeout", "20s")
	v.SetDefault("provider.sign_timeout", "15s")
	v.SetDefault("provider.delete_timeout", "10s")

	// Secrets defaults (an empty master key disables software key creation
	// until one is configured)
	v.SetDefault("secrets.master_key", "")

	// Artifact defaults
	v.SetDefault("artifacts.output_dir", "")
}
