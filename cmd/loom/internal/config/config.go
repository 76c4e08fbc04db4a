// Package config reads the optional loom.yaml next to a project.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the optional loom.yaml configuration.
type Config struct {
	Devtools DevtoolsConfig `yaml:"devtools"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DevtoolsConfig contains inspector settings.
type DevtoolsConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Addr      string `yaml:"addr,omitempty"`
	Namespace string `yaml:"namespace,omitempty"`
}

// LoadOptional reads loom.yaml if present. A missing file is not an
// error; it yields the zero Config so flags and defaults take over.
func LoadOptional(dir string) (*Config, error) {
	path := filepath.Join(dir, "loom.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read loom.yaml: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse loom.yaml: %w", err)
	}

	return &cfg, nil
}
