// Package config loads environment configuration and the service catalog.
package config

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config holds the environment configuration for the booking core.
type Config struct {
	SupabaseURL     string        `env:"SUPABASE_URL,required"`
	SupabaseAnonKey string        `env:"SUPABASE_ANON_KEY,required"`
	NominatimURL    string        `env:"NOMINATIM_URL,default=https://nominatim.openstreetmap.org"`
	RefDataURL      string        `env:"REFDATA_URL,default=https://refdata.klynn.app/v1"`
	HTTPTimeout     time.Duration `env:"HTTP_TIMEOUT,default=30s"`
}

// FromEnv decodes configuration from the process environment.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode env config: %w", err)
	}
	return &cfg, nil
}
