// Package config loads server configuration from a TOML file.
//
// Every field has a working default, so the server runs with no config file
// at all. A file overrides only the fields it sets.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the top-level server configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Limits   LimitsConfig   `toml:"limits"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// DatabaseConfig holds storage settings. Path ":memory:" runs fully
// in-memory, useful for demos and tests.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// LimitsConfig seeds the shared collection ceilings on first start. Zero or
// negative values fall back to the built-in defaults.
type LimitsConfig struct {
	MaxBreaks             int `toml:"max_breaks"`
	MaxUsedEquipment      int `toml:"max_used_equipment"`
	MaxMobilisedEquipment int `toml:"max_mobilised_equipment"`
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Path: "./data/periods.db",
		},
	}
}

// Read decodes a Config from the provided reader, layered over defaults.
func Read(r io.Reader) (*Config, error) {
	cfg := Default()
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Write encodes a Config to the provided writer.
func Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Addr returns the listen address derived from the configured port.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
