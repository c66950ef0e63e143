// Package config provides configuration for the assessment orchestrator.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the orchestrator configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Advisor settings
	AdvisorURL     string
	AdvisorModel   string
	AdvisorTimeout time.Duration

	// Tool execution
	DefaultToolTimeout time.Duration

	// Scope file (optional, YAML)
	ScopeFile string
	Scope     ScopeConfig

	// Logging
	LogLevel string
}

// ScopeConfig describes the testing scope loaded from a YAML file. The
// deny-list feeds the target safety screen; by default a match produces a
// warning annotation only.
type ScopeConfig struct {
	AllowTargets []string `yaml:"allow_targets"`
	DenyTargets  []string `yaml:"deny_targets"`
	// HardBlock switches the safety screen from warn-only to blocking.
	HardBlock bool `yaml:"hard_block"`
}

// Load loads configuration from environment variables, reading the scope
// file when REDOPS_SCOPE_FILE points at one.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:           getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:        getEnv("DATABASE_URL", "file:redops.db?cache=shared&mode=rwc"),
		AdvisorURL:         getEnv("ADVISOR_URL", ""),
		AdvisorModel:       getEnv("ADVISOR_MODEL", "deepseek-r1:7b"),
		AdvisorTimeout:     time.Duration(getEnvInt("ADVISOR_TIMEOUT_MS", 15000)) * time.Millisecond,
		DefaultToolTimeout: time.Duration(getEnvInt("TOOL_TIMEOUT_MS", 300000)) * time.Millisecond,
		ScopeFile:          getEnv("REDOPS_SCOPE_FILE", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}

	if cfg.ScopeFile != "" {
		scope, err := LoadScopeFile(cfg.ScopeFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load scope file: %w", err)
		}
		cfg.Scope = scope
	}

	return cfg, nil
}

// LoadScopeFile parses a YAML scope definition.
func LoadScopeFile(path string) (ScopeConfig, error) {
	var scope ScopeConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return scope, err
	}
	if err := yaml.Unmarshal(data, &scope); err != nil {
		return scope, fmt.Errorf("invalid scope file %s: %w", path, err)
	}
	return scope, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
