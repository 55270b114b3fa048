// Package config loads project configuration for deebase. It is decoupled
// from any particular entry point so tests and embedding applications can
// load the same file.
package config

import (
	"fmt"
	"strings"

	"github.com/rahulcredcore/deebase-sub000/pkg/adapter"
)

// TargetConfig holds database target configuration.
type TargetConfig struct {
	Type string `koanf:"type"` // sqlite, postgres, duckdb

	// File-based databases (SQLite, DuckDB)
	Path string `koanf:"path"` // file path, or ":memory:"

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`

	// Common
	Schema string `koanf:"schema"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`
}

// Validate checks if the target configuration is valid. It uses the adapter
// registry to determine which adapter types are available.
func (t *TargetConfig) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return fmt.Errorf("unknown target type %q (registered: %v)", t.Type, adapter.Names())
	}
	return nil
}

// AdapterConfig converts the target configuration to the connection config
// consumed by the adapter layer.
func (t *TargetConfig) AdapterConfig() adapter.Config {
	return adapter.Config{
		Type:     strings.ToLower(t.Type),
		Path:     t.Path,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  t.Options,
	}
}

// ProjectConfig holds the project configuration loaded from deebase.yaml.
type ProjectConfig struct {
	Name   string        `koanf:"name"`
	Target *TargetConfig `koanf:"target"`
}
