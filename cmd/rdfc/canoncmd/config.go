package canoncmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML configuration of the canon command.
// Flags and environment variables take precedence over it.
// Budgets are pointers so that an explicit 0 (unlimited) is told apart from
// an absent key.
type Config struct {
	Algorithm         string `yaml:"algorithm,omitempty"`
	Output            string `yaml:"output,omitempty"`
	MaxPermutations   *int64 `yaml:"max_permutations,omitempty"`
	MaxDeepIterations *int64 `yaml:"max_deep_iterations,omitempty"`
	Workers           int    `yaml:"workers,omitempty"`
	SafeLimits        bool   `yaml:"safe_limits,omitempty"`
	LogLevel          string `yaml:"log_level,omitempty"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}
