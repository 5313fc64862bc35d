package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile loads configuration from a YAML file, starting from Default
// so a file that only overrides a few fields still gets sane values for
// the rest.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFileOrDefault loads config from path, falling back to Default if the
// file does not exist or fails to parse.
func LoadFileOrDefault(path string) *Config {
	cfg, err := LoadFile(path)
	if err != nil {
		return Default()
	}
	return cfg
}
