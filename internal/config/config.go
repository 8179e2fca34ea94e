// Package config loads the server configuration from an optional YAML file
// and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sahithikokkula/samplingapi/internal/logging"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Sampler  SamplerConfig  `yaml:"sampler"`
	Logging  logging.Config `yaml:"logging"`
}

type ServerConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	// RequestTimeout bounds a single handler.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// BatchConcurrency caps parallel items of a batch estimation.
	BatchConcurrency int `yaml:"batch_concurrency"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type SamplerConfig struct {
	// Seed fixes the random generator; 0 seeds from the clock.
	Seed int64 `yaml:"seed"`
	// MaxSampleSize caps the rows a single draw may request.
	MaxSampleSize int `yaml:"max_sample_size"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             "8080",
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     60 * time.Second,
			IdleTimeout:      120 * time.Second,
			RequestTimeout:   15 * time.Second,
			BatchConcurrency: 8,
		},
		Database: DatabaseConfig{Path: "sampling.sqlite"},
		Sampler:  SamplerConfig{MaxSampleSize: 1_000_000},
		Logging:  logging.DefaultConfig(),
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv loads the file named by SAMPLING_CONFIG and applies the environment
// overrides.
func FromEnv() (*Config, error) {
	cfg, err := Load(os.Getenv("SAMPLING_CONFIG"))
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from SAMPLING_DB_PATH, PORT, SAMPLING_LOG_LEVEL,
// SAMPLING_SEED and SAMPLING_MAX_SAMPLE_SIZE.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("SAMPLING_DB_PATH"); ok && v != "" {
		c.Database.Path = v
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		c.Server.Port = v
	}
	if v, ok := lookup("SAMPLING_LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup("SAMPLING_SEED"); ok && v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("SAMPLING_SEED: %w", err)
		}
		c.Sampler.Seed = seed
	}
	if v, ok := lookup("SAMPLING_MAX_SAMPLE_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("SAMPLING_MAX_SAMPLE_SIZE: want a positive integer, got %q", v)
		}
		c.Sampler.MaxSampleSize = n
	}
	return nil
}
