// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// Default settings
	Defaults struct {
		Format              string `yaml:"format"`
		Series              string `yaml:"series"`
		Verbose             bool   `yaml:"verbose"`
		Debug               bool   `yaml:"debug"`
		NoColor             bool   `yaml:"no_color"`
		EnablePreprocessors bool   `yaml:"enable_preprocessors"`
		Subdivide           bool   `yaml:"subdivide"`
	} `yaml:"defaults"`

	// Matcher holds the fuzzy-cascade tunables. Zero values mean "use the
	// built-in defaults".
	Matcher struct {
		LettersMinRatio float64 `yaml:"letters_min_ratio"`
		NgramSize       int     `yaml:"ngram_size"`
		NgramJaccardMin float64 `yaml:"ngram_jaccard_min"`
		MinLenForNgrams int     `yaml:"min_len_for_ngrams"`
	} `yaml:"matcher"`

	// Preprocessor configurations
	Preprocessors struct {
		TextExtraction struct {
			Enabled bool     `yaml:"enabled"`
			Types   []string `yaml:"types"`
		} `yaml:"text_extraction"`
	} `yaml:"preprocessors"`

	// Profiles for different processing scenarios
	Profiles map[string]Profile `yaml:"profiles"`
}

// Profile represents a processing profile with specific settings
type Profile struct {
	Format              string `yaml:"format"`
	Series              string `yaml:"series"`
	Verbose             bool   `yaml:"verbose"`
	Debug               bool   `yaml:"debug"`
	NoColor             bool   `yaml:"no_color"`
	EnablePreprocessors bool   `yaml:"enable_preprocessors"`
	Subdivide           bool   `yaml:"subdivide"`
	Description         string `yaml:"description"`
}

// LoadConfig loads configuration from the specified file path
func LoadConfig(configPath string) (*Config, error) {
	// Default configuration
	config := &Config{
		Profiles: make(map[string]Profile),
	}

	// Set default values
	config.Defaults.Format = "text"
	config.Defaults.Series = "III"
	config.Defaults.Verbose = false
	config.Defaults.Debug = false
	config.Defaults.NoColor = false
	config.Defaults.EnablePreprocessors = true
	config.Defaults.Subdivide = true

	// Set default preprocessor values
	config.Preprocessors.TextExtraction.Enabled = true
	config.Preprocessors.TextExtraction.Types = []string{"pdf"}

	// Add a default batch profile for unattended runs
	config.Profiles["batch"] = Profile{
		Format:              "json",
		Series:              "III",
		Verbose:             false,
		Debug:               false,
		NoColor:             true,
		EnablePreprocessors: true,
		Subdivide:           true,
		Description:         "Optimized for batch pipelines with machine-readable output",
	}

	// If no config file specified, return default config
	if configPath == "" {
		return config, nil
	}

	// Read config file
	cleanPath := filepath.Clean(configPath)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Store default values before unmarshaling
	defaultEnablePreprocessors := config.Defaults.EnablePreprocessors
	defaultSubdivide := config.Defaults.Subdivide
	defaultTextExtractionEnabled := config.Preprocessors.TextExtraction.Enabled

	// Parse YAML
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Restore defaults if not explicitly set in config file
	// This handles the case where YAML unmarshaling sets bool fields to false
	// when they're not present in the config file
	if !containsField(data, "defaults", "enable_preprocessors") {
		config.Defaults.EnablePreprocessors = defaultEnablePreprocessors
	}
	if !containsField(data, "defaults", "subdivide") {
		config.Defaults.Subdivide = defaultSubdivide
	}
	if !containsField(data, "preprocessors", "text_extraction", "enabled") {
		config.Preprocessors.TextExtraction.Enabled = defaultTextExtractionEnabled
	}

	// Validate the configuration
	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// FindConfigFile looks for a configuration file in standard locations
func FindConfigFile() string {
	// Check current directory first - prioritize config.yaml
	if fileExists("config.yaml") {
		return "config.yaml"
	}
	if fileExists("boletim.yaml") {
		return "boletim.yaml"
	}
	if fileExists("boletim.yml") {
		return "boletim.yml"
	}

	// Check for .boletim-scan.yaml in current directory (project-specific config)
	if fileExists(".boletim-scan.yaml") {
		return ".boletim-scan.yaml"
	}
	if fileExists(".boletim-scan.yml") {
		return ".boletim-scan.yml"
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	// Check legacy locations in home directory
	homeConfig := filepath.Join(home, ".boletim.yaml")
	if fileExists(homeConfig) {
		return homeConfig
	}
	homeConfig = filepath.Join(home, ".boletim.yml")
	if fileExists(homeConfig) {
		return homeConfig
	}

	// Check XDG config directory
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	xdgConfigFile := filepath.Join(xdgConfig, "boletim-scan", "config.yaml")
	if fileExists(xdgConfigFile) {
		return xdgConfigFile
	}
	xdgConfigFile = filepath.Join(xdgConfig, "boletim-scan", "config.yml")
	if fileExists(xdgConfigFile) {
		return xdgConfigFile
	}

	return ""
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return !info.IsDir()
}

// ListProfiles returns a list of available profile names
func (c *Config) ListProfiles() []string {
	profiles := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		profiles = append(profiles, name)
	}
	return profiles
}

// GetProfile returns a profile by name, or nil if not found
func (c *Config) GetProfile(name string) *Profile {
	if profile, exists := c.Profiles[name]; exists {
		return &profile
	}
	return nil
}

// containsField checks if a nested field exists in the YAML data
func containsField(data []byte, path ...string) bool {
	var yamlData map[string]interface{}
	err := yaml.Unmarshal(data, &yamlData)
	if err != nil {
		return false
	}

	current := yamlData
	for i, key := range path {
		if i == len(path)-1 {
			// Last key - check if it exists
			_, exists := current[key]
			return exists
		}
		// Intermediate key - navigate deeper
		if next, ok := current[key].(map[string]interface{}); ok {
			current = next
		} else {
			return false
		}
	}
	return false
}

// ValidateConfig validates the configuration values
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	if r := config.Matcher.LettersMinRatio; r < 0 || r > 1 {
		return fmt.Errorf("matcher.letters_min_ratio must be in [0,1], got %v", r)
	}
	if j := config.Matcher.NgramJaccardMin; j < 0 || j > 1 {
		return fmt.Errorf("matcher.ngram_jaccard_min must be in [0,1], got %v", j)
	}
	if n := config.Matcher.NgramSize; n < 0 {
		return fmt.Errorf("matcher.ngram_size must be non-negative, got %d", n)
	}
	if n := config.Matcher.MinLenForNgrams; n < 0 {
		return fmt.Errorf("matcher.min_len_for_ngrams must be non-negative, got %d", n)
	}

	return nil
}

// LoadConfigOrDefault loads configuration from configFile (or searches standard locations
// when configFile is empty). If loading fails, it returns a default configuration.
func LoadConfigOrDefault(configFile string) *Config {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		// Fall back to defaults — callers should not crash on a missing/bad config file.
		cfg, _ = LoadConfig("")
	}
	return cfg
}
