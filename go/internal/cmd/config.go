package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mcdev12/luckypool/go/internal/models"
	"github.com/mcdev12/luckypool/go/internal/pool"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Pools struct {
		Rules  pool.Rules        `yaml:"rules"`
		Expiry pool.ExpiryPolicy `yaml:"expiry"`
		Seed   []SeedPool        `yaml:"seed"`
	} `yaml:"pools"`
	Events struct {
		StreamName    string `yaml:"stream_name"`
		ConsumerName  string `yaml:"consumer_name"`
		SubjectFilter string `yaml:"subject_filter"`
	} `yaml:"events"`
}

// SeedPool is a mock pool from the config file. EndsIn, when set, places the
// deadline relative to startup instead of at EndTime.
type SeedPool struct {
	models.LotteryPool `yaml:",inline"`
	EndsIn             time.Duration `yaml:"ends_in"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", path).Msg("config file not found, using defaults")
		return defaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := defaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	switch config.Pools.Expiry {
	case pool.ExpiryExternal, pool.ExpiryDerived:
	default:
		return nil, fmt.Errorf("unknown expiry policy %q", config.Pools.Expiry)
	}

	return config, nil
}

func defaultConfig() *Config {
	var config Config
	config.Pools.Rules = pool.DefaultRules()
	config.Pools.Expiry = pool.ExpiryExternal
	config.Events.StreamName = "LOTTERY_POOLS"
	config.Events.ConsumerName = "pool-gateway"
	config.Events.SubjectFilter = "lottery.pools.>"
	return &config
}

// seedRecords resolves relative deadlines against now.
func (c *Config) seedRecords(now time.Time) []models.LotteryPool {
	pools := make([]models.LotteryPool, 0, len(c.Pools.Seed))
	for _, s := range c.Pools.Seed {
		p := s.LotteryPool
		if s.EndsIn != 0 {
			p.EndTime = now.Add(s.EndsIn)
		}
		pools = append(pools, p)
	}
	return pools
}
