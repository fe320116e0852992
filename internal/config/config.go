// filepath: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds the application's configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Uploads  UploadConfig   `toml:"uploads"`
	Auth     AuthConfig     `toml:"auth"`
	Grids    []GridConfig   `toml:"grids"`

	MaxUploadBytes int64 `toml:"-"` // Runtime computed value
}

// ServerConfig holds the server configuration.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// DatabaseConfig holds the database connection settings.
// Driver is either "sqlite" or "postgres".
type DatabaseConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// LoggingConfig holds the logging configuration.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// UploadConfig holds settings for the upload action.
type UploadConfig struct {
	Dir     string `toml:"dir"`
	MaxSize string `toml:"max_size"` // e.g. "8MB", "512KB"
}

// AuthConfig protects mutating grid actions with HTTP Basic auth.
// PasswordHash must be a bcrypt hash. Secret signs the grid config tokens;
// when empty a random secret is generated and persisted on first run.
type AuthConfig struct {
	Enabled      bool   `toml:"enabled"`
	Username     string `toml:"username"`
	PasswordHash string `toml:"password_hash"`
	Secret       string `toml:"secret"`
}

// GridConfig declares a grid served by the standalone server.
// Grids can equally be built in code through the grid package.
type GridConfig struct {
	Name       string            `toml:"name"`
	Table      string            `toml:"table"`
	PrimaryKey string            `toml:"primary_key"`
	Columns    []string          `toml:"columns"`
	Titles     map[string]string `toml:"titles"`
	Searchable []string          `toml:"searchable"`
	Fields     []string          `toml:"fields"`
	Required   []string          `toml:"required"`
	PageSize   int               `toml:"page_size"`
	OrderBy    string            `toml:"order_by"`
	OrderDir   string            `toml:"order_dir"`
	Disable    []string          `toml:"disable"`
	SumColumns []string          `toml:"sum_columns"`
	Relations  []RelationConfig  `toml:"relations"`
}

// RelationConfig declares a foreign-key-to-label substitution.
type RelationConfig struct {
	Field   string `toml:"field"`
	Table   string `toml:"table"`
	Key     string `toml:"key"`
	Label   string `toml:"label"`
	OrderBy string `toml:"order_by"`
}

// LoadConfig loads the configuration from a TOML file.
func LoadConfig(path string) (*Config, error) {
	var config Config
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveConfig writes the current configuration back to a TOML file.
// Used to persist the auto-generated signing secret.
func SaveConfig(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file for saving: %w", err)
	}
	defer f.Close()
	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config to file: %w", err)
	}
	return nil
}

// ParseAndValidate processes configuration strings into runtime values.
// It sets defaults if values are missing and parses human-readable sizes.
func (c *Config) ParseAndValidate() error {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.DSN == "" {
		c.Database.DSN = "sqlgrid.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Uploads.Dir == "" {
		c.Uploads.Dir = "uploads"
	}
	if c.Uploads.MaxSize == "" {
		c.Uploads.MaxSize = "8MB"
	}

	sizeBytes, err := parseSize(c.Uploads.MaxSize)
	if err != nil {
		return fmt.Errorf("invalid uploads.max_size: %w", err)
	}
	c.MaxUploadBytes = sizeBytes

	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Auth.Enabled && c.Auth.Username == "" {
		return fmt.Errorf("auth.username is required when auth is enabled")
	}

	return nil
}

// parseSize parses a size string (e.g., "100G", "500MB") into bytes.
func parseSize(sizeStr string) (int64, error) {
	re := regexp.MustCompile(`(?i)^(\d+)\s*(K|M|G|T)?B?$`)
	matches := re.FindStringSubmatch(strings.TrimSpace(sizeStr))

	if len(matches) < 2 {
		return 0, fmt.Errorf("invalid size format: %s", sizeStr)
	}

	value, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size number: %s", matches[1])
	}

	unit := ""
	if len(matches) > 2 {
		unit = strings.ToUpper(matches[2])
	}

	switch unit {
	case "T":
		return value * (1 << 40), nil
	case "G":
		return value * (1 << 30), nil
	case "M":
		return value * (1 << 20), nil
	case "K":
		return value * (1 << 10), nil
	default:
		return value, nil
	}
}
