package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mdahlke/jeoparty/go/internal/rounds"
)

// Config is the server configuration, read from a YAML file with a few
// environment overrides for secrets and deploy-time values.
type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Auth struct {
		// JWTSecret is normally supplied via JWT_SECRET, not the file.
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`

	Board rounds.BoardShape `yaml:"board"`

	Sessions struct {
		EditorIdleTimeout time.Duration `yaml:"editor_idle_timeout"`
		GameIdleTimeout   time.Duration `yaml:"game_idle_timeout"`
	} `yaml:"sessions"`
}

func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
	if config.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return config, nil
}

func defaultConfig() *Config {
	config := &Config{}
	config.Server.Port = "8080"
	config.Server.AllowedOrigins = []string{"*"}
	config.Board = rounds.DefaultBoardShape()
	config.Sessions.EditorIdleTimeout = 2 * time.Hour
	config.Sessions.GameIdleTimeout = 4 * time.Hour
	return config
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
