// Package config provides Viper-based configuration loading for the battle server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds process-wide settings.
type ServerConfig struct {
	// Name identifies this server instance in logs and health checks.
	Name string `mapstructure:"name"`
	// ShutdownTimeout bounds graceful shutdown of every service.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// TransportConfig holds TCP acceptor and per-session settings.
type TransportConfig struct {
	// Host is the bind address for the TCP listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the listener.
	Port int `mapstructure:"port"`
	// ReadTimeout is the idle period after which a silent client is disconnected.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the per-write timeout.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// MaxMessageBytes bounds one newline-delimited message.
	MaxMessageBytes int `mapstructure:"max_message_bytes"`
	// OutboxSize is the number of responses queued per session before it is dropped.
	OutboxSize int `mapstructure:"outbox_size"`
	// RateLimit is the sustained requests per second allowed per session; 0 disables limiting.
	RateLimit float64 `mapstructure:"rate_limit"`
	// RateBurst is the request burst allowed per session.
	RateBurst int `mapstructure:"rate_burst"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (t TransportConfig) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// HTTPConfig holds the WebSocket and status HTTP server settings.
type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	// AllowedOrigins lists accepted WebSocket origins; empty accepts all.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Addr returns the "host:port" listen address.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// HealthConfig holds the gRPC health service settings.
type HealthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	GRPCHost string `mapstructure:"grpc_host"`
	GRPCPort int    `mapstructure:"grpc_port"`
}

// Addr returns the "host:port" gRPC address.
func (h HealthConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.GRPCHost, h.GRPCPort)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// BattleConfig holds gameplay settings.
type BattleConfig struct {
	// TurnTimeout passes a player's turn automatically once it elapses; 0 disables.
	TurnTimeout time.Duration `mapstructure:"turn_timeout"`
	// ScriptInstructionLimit bounds the Lua instructions one AI hook call may run.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
	// DefaultEnemies are the template ids spawned for a PvE battle created
	// without an enemy list.
	DefaultEnemies []string `mapstructure:"default_enemies"`
}

// ContentConfig names the YAML and Lua content directories. An empty
// directory selects the built-in content for that kind.
type ContentConfig struct {
	EffectsDir string `mapstructure:"effects_dir"`
	SkillsDir  string `mapstructure:"skills_dir"`
	EnemiesDir string `mapstructure:"enemies_dir"`
	ScriptsDir string `mapstructure:"scripts_dir"`
}

// DatabaseConfig holds PostgreSQL connection settings for battle history.
type DatabaseConfig struct {
	// Enabled turns on recording of finished battles.
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Transport TransportConfig `mapstructure:"transport"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Health    HealthConfig    `mapstructure:"health"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Battle    BattleConfig    `mapstructure:"battle"`
	Content   ContentConfig   `mapstructure:"content"`
	Database  DatabaseConfig  `mapstructure:"database"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	for _, err := range []error{
		validateServer(c.Server),
		validateTransport(c.Transport),
		validateHTTP(c.HTTP),
		validateHealth(c.Health),
		validateLogging(c.Logging),
		validateBattle(c.Battle),
		validateDatabase(c.Database),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validPort(p int) bool { return p >= 1 && p <= 65535 }

func joined(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.New(strings.Join(errs, "; "))
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.Name == "" {
		errs = append(errs, "server.name must not be empty")
	}
	if s.ShutdownTimeout <= 0 {
		errs = append(errs, "server.shutdown_timeout must be positive")
	}
	return joined(errs)
}

func validateTransport(t TransportConfig) error {
	var errs []string
	if !validPort(t.Port) {
		errs = append(errs, fmt.Sprintf("transport.port must be 1-65535, got %d", t.Port))
	}
	if t.ReadTimeout < 0 {
		errs = append(errs, "transport.read_timeout must not be negative")
	}
	if t.WriteTimeout < 0 {
		errs = append(errs, "transport.write_timeout must not be negative")
	}
	if t.MaxMessageBytes < 64 {
		errs = append(errs, fmt.Sprintf("transport.max_message_bytes must be >= 64, got %d", t.MaxMessageBytes))
	}
	if t.OutboxSize < 1 {
		errs = append(errs, fmt.Sprintf("transport.outbox_size must be >= 1, got %d", t.OutboxSize))
	}
	if t.RateLimit < 0 {
		errs = append(errs, "transport.rate_limit must not be negative")
	}
	if t.RateLimit > 0 && t.RateBurst < 1 {
		errs = append(errs, fmt.Sprintf("transport.rate_burst must be >= 1 when rate limiting, got %d", t.RateBurst))
	}
	return joined(errs)
}

func validateHTTP(h HTTPConfig) error {
	if h.Enabled && !validPort(h.Port) {
		return fmt.Errorf("http.port must be 1-65535, got %d", h.Port)
	}
	return nil
}

func validateHealth(h HealthConfig) error {
	if !h.Enabled {
		return nil
	}
	var errs []string
	if h.GRPCHost == "" {
		errs = append(errs, "health.grpc_host must not be empty")
	}
	if !validPort(h.GRPCPort) {
		errs = append(errs, fmt.Sprintf("health.grpc_port must be 1-65535, got %d", h.GRPCPort))
	}
	return joined(errs)
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateBattle(b BattleConfig) error {
	var errs []string
	if b.TurnTimeout < 0 {
		errs = append(errs, "battle.turn_timeout must not be negative")
	}
	if b.ScriptInstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("battle.script_instruction_limit must be >= 0, got %d", b.ScriptInstructionLimit))
	}
	return joined(errs)
}

func validateDatabase(d DatabaseConfig) error {
	if !d.Enabled {
		return nil
	}
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if !validPort(d.Port) {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	return joined(errs)
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path uses defaults and the
// environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with SKIRMISH_ prefix
	v.SetEnvPrefix("SKIRMISH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a viper instance holding only the default settings.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "skirmish")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("transport.host", "0.0.0.0")
	v.SetDefault("transport.port", 7777)
	v.SetDefault("transport.read_timeout", "30s")
	v.SetDefault("transport.write_timeout", "10s")
	v.SetDefault("transport.max_message_bytes", 64*1024)
	v.SetDefault("transport.outbox_size", 64)
	v.SetDefault("transport.rate_limit", 20)
	v.SetDefault("transport.rate_burst", 40)

	v.SetDefault("http.enabled", true)
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.allowed_origins", []string{})

	v.SetDefault("health.enabled", true)
	v.SetDefault("health.grpc_host", "0.0.0.0")
	v.SetDefault("health.grpc_port", 50051)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("battle.turn_timeout", "60s")
	v.SetDefault("battle.script_instruction_limit", 10000)
	v.SetDefault("battle.default_enemies", []string{"goblin"})

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "skirmish")
	v.SetDefault("database.password", "skirmish")
	v.SetDefault("database.name", "skirmish")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
}
