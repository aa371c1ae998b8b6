package toa

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	// Validate required fields
	if config.ReceiverFile == "" {
		return nil, fmt.Errorf("receiverFile is required")
	}
	if config.DetectionFile == "" {
		return nil, fmt.Errorf("detectionFile is required")
	}
	if config.Speed <= 0 && config.Calibration == nil {
		return nil, fmt.Errorf("either a positive speed or a calibration block is required")
	}
	if config.Calibration != nil && config.Calibration.InitialSpeed <= 0 {
		return nil, fmt.Errorf("calibration.initialSpeed must be positive")
	}
	if f := config.Output.PlotFormat; f != "" && f != "png" && f != "svg" {
		return nil, fmt.Errorf("output.plotFormat must be png or svg, got %q", f)
	}

	return &config, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
