package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Catalog struct {
		URL       string `yaml:"url"`
		Timeout   string `yaml:"timeout"`
		UserAgent string `yaml:"userAgent"`
	} `yaml:"catalog"`
	Game struct {
		MaxBatches   int    `yaml:"maxBatches"`
		MaxRetries   *int   `yaml:"maxRetries"`
		RoundDataTTL string `yaml:"roundDataTTL"`
	} `yaml:"game"`
	Sweeper struct {
		Threshold string `yaml:"threshold"`
		Schedule  string `yaml:"schedule"`
	} `yaml:"sweeper"`
	Auth struct {
		JWTSecret  string `yaml:"jwtSecret"`
		CronSecret string `yaml:"cronSecret"`
	} `yaml:"auth"`
}

// Load reads YAML config from path. A missing file yields the zero config so
// the service can start on defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// IntOr returns v when positive, otherwise fallback.
func IntOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// SetIntOr returns *v when the key was present in the file, so an explicit
// zero is kept; a missing or negative value yields fallback.
func SetIntOr(v *int, fallback int) int {
	if v != nil && *v >= 0 {
		return *v
	}
	return fallback
}

// StringOr returns v when non-empty, otherwise fallback.
func StringOr(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
