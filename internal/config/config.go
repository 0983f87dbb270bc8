package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// Control protocol settings
	Control ControlConfig `yaml:"control"`

	// Catalog search settings
	Catalog CatalogConfig `yaml:"catalog"`

	// Audio output settings
	Audio AudioConfig `yaml:"audio"`

	// Spectrum visualizer settings
	Visualizer VisualizerConfig `yaml:"visualizer"`

	// Cache settings
	Cache CacheConfig `yaml:"cache"`

	// Persistence settings
	Store StoreConfig `yaml:"store"`
}

// ControlConfig represents control server settings
type ControlConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// CatalogConfig represents catalog search settings
type CatalogConfig struct {
	BaseURL        string `yaml:"base_url,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Limit          int    `yaml:"limit"`
}

// AudioConfig represents audio output settings
type AudioConfig struct {
	SampleRate    int     `yaml:"sample_rate"`
	BufferMs      int     `yaml:"buffer_ms"`
	InitialVolume float64 `yaml:"initial_volume"`
}

// VisualizerConfig represents spectrum visualizer settings
type VisualizerConfig struct {
	Enabled bool `yaml:"enabled"`
	Width   int  `yaml:"width"`
	Height  int  `yaml:"height"`
	FPS     int  `yaml:"fps"`
}

// CacheConfig represents media cache settings
type CacheConfig struct {
	Directory string `yaml:"directory"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// StoreConfig represents persistence settings
type StoreConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Control: ControlConfig{
			ListenAddr: "localhost:6611",
		},
		Catalog: CatalogConfig{
			TimeoutSeconds: 10,
			Limit:          25,
		},
		Audio: AudioConfig{
			SampleRate:    44100,
			BufferMs:      100,
			InitialVolume: 0.7,
		},
		Visualizer: VisualizerConfig{
			Enabled: true,
			Width:   200,
			Height:  40,
			FPS:     30,
		},
		Cache: CacheConfig{
			Directory: "/tmp/moodfmd-cache",
			MaxSizeMB: 512,
		},
		Store: StoreConfig{
			Path: "/tmp/moodfmd.db",
		},
	}
}

// LoadConfig loads configuration from file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, return default config
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to file
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
