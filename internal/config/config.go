package config

import (
	"fmt"
	"os"
	"strings"
)

// Config carries every runtime setting the services need. It is built once
// in main and passed to constructors; nothing reads the environment after
// startup.
type Config struct {
	Port        string
	DatabaseDSN string
	JWTSecret   string
	ImagesDir   string

	// Extra origins allowed for CORS and websocket upgrades, on top of the
	// local development defaults.
	ClientOrigins []string
}

var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        os.Getenv("PORT"),
		DatabaseDSN: os.Getenv("DATABASE_DSN"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		ImagesDir:   os.Getenv("IMAGES_DIR"),
	}

	if cfg.Port == "" {
		cfg.Port = "3001"
	}

	if cfg.ImagesDir == "" {
		cfg.ImagesDir = "assets/img"
	}

	if cfg.DatabaseDSN == "" {
		return nil, fmt.Errorf("DATABASE_DSN environment variable is not set")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set")
	}

	if extra := os.Getenv("ALLOWED_ORIGINS"); extra != "" {
		for _, origin := range strings.Split(extra, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				cfg.ClientOrigins = append(cfg.ClientOrigins, trimmed)
			}
		}
	}

	return cfg, nil
}

// AllowedOrigins returns the development defaults plus any configured
// client origins.
func (c *Config) AllowedOrigins() []string {
	origins := make([]string, len(defaultOrigins), len(defaultOrigins)+len(c.ClientOrigins))
	copy(origins, defaultOrigins)
	return append(origins, c.ClientOrigins...)
}
