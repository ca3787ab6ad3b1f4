package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
	"martforge/internal/common"
	"martforge/pkg/models"
)

func GetConfigPath() string {
	// Check for environment variable first
	if configPath := os.Getenv("MARTFORGE_CONFIG"); configPath != "" {
		return filepath.Dir(configPath)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".martforge")
}

func GetConfigFile() string {
	// Check for environment variable first
	if configFile := os.Getenv("MARTFORGE_CONFIG"); configFile != "" {
		// Validate the path to prevent directory traversal
		cleaned, err := common.CleanPath(configFile)
		if err != nil {
			// Fall back to default if invalid
			return filepath.Join(GetConfigPath(), "martforge.yaml")
		}
		return cleaned
	}
	// Prefer a project file in the working directory
	if _, err := os.Stat("martforge.yaml"); err == nil {
		abs, err := filepath.Abs("martforge.yaml")
		if err == nil {
			return abs
		}
	}
	return filepath.Join(GetConfigPath(), "martforge.yaml")
}

func Load() (*models.Config, error) {
	configFile := GetConfigFile()

	cleanedPath, err := common.CleanPath(configFile)
	if err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}

	if _, err := os.Stat(cleanedPath); os.IsNotExist(err) {
		return Defaults(), nil
	}

	data, err := os.ReadFile(cleanedPath) // #nosec G304 - path is validated
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Defaults()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return config, nil
}

func Save(config *models.Config) error {
	configFile := GetConfigFile()
	if err := os.MkdirAll(filepath.Dir(configFile), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func Exists() bool {
	_, err := os.Stat(GetConfigFile())
	return err == nil
}

// Defaults returns a config populated with default vars and seed sizing
func Defaults() *models.Config {
	return &models.Config{
		Vars: models.DefaultVars(),
		Seed: models.DefaultSeed(),
		Checks: models.ChecksConfig{
			Enabled: true,
		},
	}
}
