// Package config loads typed configuration structs from the
// environment using `env` struct tags.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load populates cfg from environment variables.
//
//	type Config struct {
//	    Port     int    `env:"HTTP_PORT" envDefault:"8080"`
//	    LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
//	}
//
// Fields without a matching variable keep their envDefault value.
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
