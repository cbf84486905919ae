// Package keyconfig handles the CLI's on-disk configuration file.
package keyconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mstead-audio/keyweave/internal/tonality"
)

// Config is the persisted CLI configuration.
type Config struct {
	// LibraryPath records a music library directory. The order and tune
	// subcommands take the directory to scan as an argument and do not
	// read this field.
	LibraryPath string `json:"libraryPath"`

	// DataDir is where tuner output and other generated data are
	// written.
	DataDir string `json:"dataDir"`

	// Workers is the worker pool size. Zero means runtime.NumCPU();
	// negative values are rejected by Validate.
	Workers int `json:"workers"`

	// Genre tags every analyzed track, enabling the Pop-collapse rule.
	Genre string `json:"genre"`

	// Preset names a built-in coefficient vector. "Orchestral" is the
	// only one defined today; an empty value also resolves to it.
	Preset string `json:"preset"`
}

// DefaultConfig returns the configuration used when no file exists
// yet.
func DefaultConfig() *Config {
	return &Config{
		DataDir: ".keyweave",
		Workers: 0,
		Genre:   "",
		Preset:  "Orchestral",
	}
}

// CoefficientVector resolves the configured preset name to a
// coefficient vector.
func (c *Config) CoefficientVector() (tonality.CoefficientVector, error) {
	switch c.Preset {
	case "", "Orchestral":
		return tonality.OrchestralPreset, nil
	default:
		return tonality.CoefficientVector{}, fmt.Errorf("keyconfig: unknown preset %q", c.Preset)
	}
}

// Validate rejects a configuration the pipeline could not run with: an
// unresolvable preset or a negative worker count (orchestrate.Run
// treats zero as "use runtime.NumCPU()", but a negative count is never
// meaningful).
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("keyconfig: workers must be >= 0, got %d", c.Workers)
	}
	if _, err := c.CoefficientVector(); err != nil {
		return err
	}
	return nil
}

// envOverrides are the environment variables Load checks after reading
// the on-disk file, letting a run override persisted settings without
// rewriting config.json (e.g. a one-off CI run pinning worker count).
const (
	envLibraryPath = "KEYWEAVE_LIBRARY_PATH"
	envDataDir     = "KEYWEAVE_DATA_DIR"
	envWorkers     = "KEYWEAVE_WORKERS"
	envGenre       = "KEYWEAVE_GENRE"
	envPreset      = "KEYWEAVE_PRESET"
)

// applyEnvOverrides mutates c in place with any of the envOverrides
// variables that are set.
func applyEnvOverrides(c *Config) error {
	if v, ok := os.LookupEnv(envLibraryPath); ok {
		c.LibraryPath = v
	}
	if v, ok := os.LookupEnv(envDataDir); ok {
		c.DataDir = v
	}
	if v, ok := os.LookupEnv(envWorkers); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("keyconfig: %s=%q is not an integer: %w", envWorkers, v, err)
		}
		c.Workers = n
	}
	if v, ok := os.LookupEnv(envGenre); ok {
		c.Genre = v
	}
	if v, ok := os.LookupEnv(envPreset); ok {
		c.Preset = v
	}
	return nil
}

// Manager loads and saves a Config from a JSON file.
type Manager struct {
	configDir  string
	configPath string
	config     *Config
}

// NewManager creates a manager rooted at configDir.
func NewManager(configDir string) *Manager {
	return &Manager{
		configDir:  configDir,
		configPath: filepath.Join(configDir, "config.json"),
		config:     DefaultConfig(),
	}
}

// Load reads the configuration from disk, writing out the default
// configuration if none exists yet, then applies any KEYWEAVE_* env
// overrides and validates the result.
func (m *Manager) Load() error {
	if err := os.MkdirAll(m.configDir, 0o700); err != nil {
		return fmt.Errorf("keyconfig: create config directory: %w", err)
	}

	config := DefaultConfig()
	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		m.config = config
		if err := m.Save(); err != nil {
			return err
		}
	} else {
		data, err := os.ReadFile(m.configPath)
		if err != nil {
			return fmt.Errorf("keyconfig: read config: %w", err)
		}
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("keyconfig: parse config: %w", err)
		}
		m.config = config
	}

	if err := applyEnvOverrides(m.config); err != nil {
		return err
	}
	if err := m.config.Validate(); err != nil {
		return fmt.Errorf("keyconfig: invalid configuration: %w", err)
	}
	return nil
}

// Save writes the configuration to disk.
func (m *Manager) Save() error {
	if err := os.MkdirAll(m.configDir, 0o700); err != nil {
		return fmt.Errorf("keyconfig: create config directory: %w", err)
	}

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return fmt.Errorf("keyconfig: marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0o600); err != nil {
		return fmt.Errorf("keyconfig: write config: %w", err)
	}
	return nil
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	return m.config
}

// GetPath returns the config file path.
func (m *Manager) GetPath() string {
	return m.configPath
}

// Update replaces the configuration and saves it, rejecting an invalid
// replacement before it ever reaches disk.
func (m *Manager) Update(config *Config) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("keyconfig: invalid configuration: %w", err)
	}
	m.config = config
	return m.Save()
}
