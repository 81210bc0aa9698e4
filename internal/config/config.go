package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Ranking  RankingConfig  `yaml:"ranking"`
	Cache    CacheConfig    `yaml:"cache"`
	Schedule ScheduleConfig `yaml:"schedule"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port      int     `yaml:"port"`
	RateRPS   float64 `yaml:"rate_rps"`
	RateBurst int     `yaml:"rate_burst"`
}

// RankingConfig configures engagement weights and the recency half-life.
type RankingConfig struct {
	LikeWeight    float64 `yaml:"like_weight"`
	CommentWeight float64 `yaml:"comment_weight"`
	RepostWeight  float64 `yaml:"repost_weight"`
	ShareWeight   float64 `yaml:"share_weight"`
	HalfLifeHours float64 `yaml:"half_life_hours"`
}

// CacheConfig configures the trending response cache.
type CacheConfig struct {
	TrendingTTL string `yaml:"trending_ttl"`
}

// ParseTrendingTTL returns the trending cache TTL as time.Duration.
func (c CacheConfig) ParseTrendingTTL() time.Duration {
	d, err := time.ParseDuration(c.TrendingTTL)
	if err != nil {
		return time.Minute
	}
	return d
}

// ScheduleConfig configures the background trending refresh.
type ScheduleConfig struct {
	RefreshInterval string `yaml:"refresh_interval"`
}

// ParseRefreshInterval returns the refresh interval as time.Duration.
func (s ScheduleConfig) ParseRefreshInterval() time.Duration {
	d, err := time.ParseDuration(s.RefreshInterval)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./feedrank.db"},
		Server: ServerConfig{
			Port:      8080,
			RateRPS:   50,
			RateBurst: 100,
		},
		Ranking: RankingConfig{
			LikeWeight:    1,
			CommentWeight: 2,
			RepostWeight:  3,
			ShareWeight:   2,
			HalfLifeHours: 24,
		},
		Cache:    CacheConfig{TrendingTTL: "60s"},
		Schedule: ScheduleConfig{RefreshInterval: "5m"},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FEEDRANK_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("FEEDRANK_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("FEEDRANK_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Server.RateRPS = f
		}
	}
	if v := os.Getenv("FEEDRANK_TRENDING_TTL"); v != "" {
		cfg.Cache.TrendingTTL = v
	}
}
