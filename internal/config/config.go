package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"tegalsec-progression/internal/scoring"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		GinMode        string   `yaml:"gin_mode"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Content struct {
		// File is a YAML catalogue; empty means the built-in challenges.
		File string `yaml:"file"`
		TTL  string `yaml:"ttl"`
	} `yaml:"content"`
	Quiz struct {
		Size             int    `yaml:"size"`
		TimeLimitSeconds int    `yaml:"time_limit_seconds"`
		TTL              string `yaml:"ttl"`
	} `yaml:"quiz"`
	Scoring struct {
		Levels          []scoring.Level `yaml:"levels"`
		Grace           string          `yaml:"grace"`
		MaxUntimed      string          `yaml:"max_untimed"`
		MaxRetries      int             `yaml:"max_retries"`
		RetryBackoff    string          `yaml:"retry_backoff"`
		Timezone        string          `yaml:"timezone"`
		LeaderboardSize int             `yaml:"leaderboard_size"`
	} `yaml:"scoring"`
	MiniGame struct {
		GameTypes       []string `yaml:"game_types"`
		Lives           int      `yaml:"lives"`
		DurationSeconds int      `yaml:"duration_seconds"`
	} `yaml:"minigame"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		Issuer    string `yaml:"issuer"`
		TokenTTL  string `yaml:"token_ttl"`
	} `yaml:"auth"`
	Log struct {
		Level      string `yaml:"level"`
		Path       string `yaml:"path"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"log"`
	RateLimit struct {
		PerMinute int `yaml:"per_minute"`
		Burst     int `yaml:"burst"`
	} `yaml:"ratelimit"`
}

// Load reads YAML config from path. Unknown keys are rejected.
// JWT_SECRET overrides the file secret.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	return cfg, cfg.Validate()
}

// Validate checks settings that would otherwise fail at request time.
func (c Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret (or JWT_SECRET) is required"))
	}
	if len(c.Scoring.Levels) > 0 {
		if _, err := scoring.NewLevels(c.Scoring.Levels); err != nil {
			errs = append(errs, fmt.Errorf("scoring.levels: %w", err))
		}
	}
	if c.Scoring.Timezone != "" {
		if _, err := time.LoadLocation(c.Scoring.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("scoring.timezone: %w", err))
		}
	}
	if c.Quiz.Size < 0 || c.Quiz.TimeLimitSeconds < 0 {
		errs = append(errs, errors.New("quiz size and time limit cannot be negative"))
	}
	if c.MiniGame.Lives < 0 || c.MiniGame.DurationSeconds < 0 {
		errs = append(errs, errors.New("minigame lives and duration cannot be negative"))
	}
	return errors.Join(errs...)
}

// Location returns the timezone calendar days are counted in.
func (c Config) Location() *time.Location {
	if c.Scoring.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Scoring.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Levels returns the configured level ladder or the product default.
func (c Config) Levels() scoring.Levels {
	if len(c.Scoring.Levels) == 0 {
		return scoring.DefaultLevels()
	}
	levels, err := scoring.NewLevels(c.Scoring.Levels)
	if err != nil {
		return scoring.DefaultLevels()
	}
	return levels
}

// Timing returns the duration plausibility rules.
func (c Config) Timing() scoring.Timing {
	def := scoring.DefaultTiming()
	return scoring.Timing{
		Grace:      TTLDuration(c.Scoring.Grace, def.Grace),
		MaxUntimed: TTLDuration(c.Scoring.MaxUntimed, def.MaxUntimed),
	}
}

// MiniGameRules applies configured overrides on top of the default rules.
func (c Config) MiniGameRules() scoring.MiniGameRules {
	rules := scoring.DefaultMiniGameRules()
	if c.MiniGame.Lives > 0 {
		rules.Lives = c.MiniGame.Lives
	}
	if c.MiniGame.DurationSeconds > 0 {
		rules.DurationSeconds = c.MiniGame.DurationSeconds
	}
	return rules
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
