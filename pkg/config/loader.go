package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load fills cfg from environment variables using `env` struct tags.
// Defaults come from `envDefault`, and `required` marks variables the
// process refuses to start without:
//
//	type Config struct {
//	    Port   int    `env:"ACCOUNT_HTTP_PORT" envDefault:"8080"`
//	    Secret string `env:"ACCESS_TOKEN_SECRET,required"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
