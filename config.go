package trainlog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Backend names accepted by Config and the registry.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config selects and parameterizes a backend. It is passed explicitly at
// construction; there is no process-wide default.
type Config struct {
	// Backend is the registered backend name, "memory" or "sqlite".
	Backend string `yaml:"backend"`

	// Database locates the store for file-backed backends: a filesystem
	// path or ":memory:". Ignored by the memory backend.
	Database string `yaml:"database"`
}

// DefaultConfig returns the in-memory backend configuration.
func DefaultConfig() Config {
	return Config{Backend: BackendMemory}
}

// Validate checks the configuration before a backend sees it.
func (c Config) Validate() error {
	if c.Backend == "" {
		return fmt.Errorf("config: backend is required")
	}
	if c.Backend == BackendSQLite && c.Database == "" {
		return fmt.Errorf("config: database is required for the %s backend", BackendSQLite)
	}
	return nil
}

// LoadConfig reads a YAML configuration file. Fields the file omits keep
// their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
