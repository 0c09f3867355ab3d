package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if NAUTILUS_CONFIG is set
//  3. env (prefix NAUTILUS_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("NAUTILUS_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: NAUTILUS_ADDR, NAUTILUS_QUEUE_SIZE, ...
	// Map env keys like NAUTILUS_QUEUE_SIZE -> queue_size (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("NAUTILUS_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "nautilus_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.RoundingIncrementMin <= 0:
		return fmt.Errorf("%w: rounding_increment_min must be positive", ErrInvalidConfig)
	case c.PreGraceMin < 0 || c.PostGraceMin < 0:
		return fmt.Errorf("%w: grace windows must not be negative", ErrInvalidConfig)
	case c.MeetingHourCap < 0:
		return fmt.Errorf("%w: meeting_hour_cap must not be negative", ErrInvalidConfig)
	case c.DisputeThreshold < 0 || c.DisputeThreshold > 1:
		return fmt.Errorf("%w: dispute_threshold must be within [0, 1]", ErrInvalidConfig)
	case c.NumericTolerance < 0:
		return fmt.Errorf("%w: numeric_tolerance must not be negative", ErrInvalidConfig)
	}
	return nil
}
