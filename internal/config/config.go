// Package config loads enrollment defaults from a YAML file. Values from
// the file fill in flags the operator did not set; explicit flags always
// win.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config mirrors the enroll command's flag surface.
type Config struct {
	CAURL            string `yaml:"ca-url"`
	CAName           string `yaml:"ca-name"`
	CACert           string `yaml:"cacert"`
	Key              string `yaml:"key"`
	Certificate      string `yaml:"certificate"`
	CommonNamePrefix string `yaml:"common-name-prefix"`
	Profile          string `yaml:"profile"`
}

// Load reads and parses a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}
