package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sadopc/datagate/internal/adapter"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Audit       AuditConfig       `yaml:"audit"`
	History     HistoryConfig     `yaml:"history"`
	Connections []SavedConnection `yaml:"connections"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadMB     int           `yaml:"max_upload_mb"`
	DefaultPageSize int           `yaml:"default_page_size"`
	MaxPageSize     int           `yaml:"max_page_size"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Format string `yaml:"format"` // "text" or "json"
	Level  string `yaml:"level"`
}

// AuditConfig controls the JSON Lines audit log of executed statements.
type AuditConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path,omitempty"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// HistoryConfig controls the SQLite query history. An empty Path selects
// ConfigDir()/history.db; ":memory:" keeps history in the process only.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// SavedConnection holds parameters for a connection opened at start-up.
type SavedConnection struct {
	Name     string `yaml:"name"`
	Engine   string `yaml:"engine"`
	DSN      string `yaml:"dsn,omitempty"`
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	Database string `yaml:"database,omitempty"`
	File     string `yaml:"file,omitempty"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":3000",
			RequestTimeout:  60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadMB:     10,
			DefaultPageSize: 100,
			MaxPageSize:     1000,
			CORSOrigins:     []string{"*"},
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
		Audit: AuditConfig{
			Enabled:   false,
			MaxSizeMB: 50,
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}

// ConfigDir returns the datagate configuration directory path.
// It uses os.UserConfigDir to locate the base config directory and
// appends "datagate" to it, typically resulting in ~/.config/datagate/.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config dir: %w", err)
	}
	return filepath.Join(base, "datagate"), nil
}

// DefaultPath returns ConfigDir()/config.yaml.
func DefaultPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads a Config from the YAML file at path. If the file does not exist,
// it returns DefaultConfig without error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault loads configuration from the default path
// (ConfigDir()/config.yaml).
func LoadDefault() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Save writes the Config to the YAML file at path, creating any necessary
// parent directories.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks values that would otherwise fail late, at serve time.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_mb must be positive, got %d", c.Server.MaxUploadMB))
	}
	if c.Server.MaxPageSize <= 0 {
		errs = append(errs, fmt.Errorf("server.max_page_size must be positive, got %d", c.Server.MaxPageSize))
	}
	if c.Server.DefaultPageSize <= 0 || c.Server.DefaultPageSize > c.Server.MaxPageSize {
		errs = append(errs, fmt.Errorf("server.default_page_size must be in [1, %d], got %d",
			c.Server.MaxPageSize, c.Server.DefaultPageSize))
	}
	if c.Server.RequestTimeout < 0 {
		errs = append(errs, errors.New("server.request_timeout must not be negative"))
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	seen := make(map[string]bool, len(c.Connections))
	for i, sc := range c.Connections {
		if sc.Name == "" {
			errs = append(errs, fmt.Errorf("connections[%d]: name is required", i))
		} else if seen[sc.Name] {
			errs = append(errs, fmt.Errorf("connections[%d]: duplicate name %q", i, sc.Name))
		}
		seen[sc.Name] = true
		if _, err := adapter.ParseEngine(sc.Engine); err != nil {
			errs = append(errs, fmt.Errorf("connections[%d] (%s): %w", i, sc.Name, err))
		}
	}

	return errors.Join(errs...)
}

// SlogLevel parses Level ("debug", "info", "warn", "error").
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// EngineConfig converts the saved fields into the config an adapter
// connects with. DSN becomes the URI; File becomes the path.
func (sc *SavedConnection) EngineConfig() adapter.Config {
	return adapter.Config{
		Host:     sc.Host,
		Port:     sc.Port,
		User:     sc.User,
		Password: sc.Password,
		Database: sc.Database,
		Path:     sc.File,
		URI:      sc.DSN,
	}
}

func isFileEngine(engine string) bool {
	e, err := adapter.ParseEngine(engine)
	return err == nil && (e == adapter.SQLite || e == adapter.DuckDB)
}

// DisplayString returns a human-readable representation of the connection,
// formatted as "engine://host:port/database" for network engines or
// "engine://file" for file-based engines. Passwords are never included.
func (sc *SavedConnection) DisplayString() string {
	if isFileEngine(sc.Engine) {
		file := sc.File
		if file == "" {
			file = sc.DSN
		}
		return fmt.Sprintf("%s://%s", sc.Engine, file)
	}

	host := sc.Host
	if host == "" {
		host = "localhost"
	}

	var location string
	if sc.Port > 0 {
		location = fmt.Sprintf("%s:%d", host, sc.Port)
	} else {
		location = host
	}

	db := sc.Database
	if db != "" {
		return fmt.Sprintf("%s://%s/%s", sc.Engine, location, db)
	}
	return fmt.Sprintf("%s://%s", sc.Engine, location)
}
