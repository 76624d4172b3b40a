package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/menta2k/image-squarer/pkg/cropper"
	"github.com/menta2k/image-squarer/pkg/types"
)

// Config holds the application configuration
type Config struct {
	Output OutputConfig `json:"output" yaml:"output"`
	Resize ResizeConfig `json:"resize" yaml:"resize"`
	Server ServerConfig `json:"server" yaml:"server"`
	Log    LogConfig    `json:"log" yaml:"log"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Size          int    `json:"size" yaml:"size"`
	Quality       int    `json:"quality" yaml:"quality"`
	SuffixEnabled bool   `json:"suffix_enabled" yaml:"suffix_enabled"`
	Suffix        string `json:"suffix" yaml:"suffix"`
	OutputDir     string `json:"output_dir" yaml:"output_dir"`
}

// ResizeConfig selects the resampling kernel for the final scale
type ResizeConfig struct {
	Filter string `json:"filter" yaml:"filter"`
}

// ServerConfig holds configuration for the HTTP shell
type ServerConfig struct {
	Addr        string `json:"addr" yaml:"addr"`
	MaxUploadMB int    `json:"max_upload_mb" yaml:"max_upload_mb"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Size:          800,
			Quality:       types.DefaultQuality,
			SuffixEnabled: false,
			Suffix:        "-optimg",
			OutputDir:     "./output",
		},
		Resize: ResizeConfig{
			Filter: "lanczos",
		},
		Server: ServerConfig{
			Addr:        "127.0.0.1:8080",
			MaxUploadMB: 64,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromFile loads configuration from a JSON or YAML file. Missing fields
// keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if isYAML(filename) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON or YAML file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	var err error
	if isYAML(filename) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := types.ValidateOutputSize(c.Output.Size); err != nil {
		return fmt.Errorf("output.size: %w", err)
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	if c.Output.SuffixEnabled && c.Output.Suffix == "" {
		return fmt.Errorf("output.suffix cannot be empty when suffix_enabled is set")
	}

	if _, err := cropper.FilterByName(c.Resize.Filter); err != nil {
		return fmt.Errorf("resize.filter: %w", err)
	}

	if c.Server.MaxUploadMB < 1 {
		return fmt.Errorf("server.max_upload_mb must be positive")
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "image-squarer", "config.json")
}

func isYAML(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".yaml" || ext == ".yml"
}
