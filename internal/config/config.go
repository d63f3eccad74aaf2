package config

import (
	"os"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/pkg/errors"

	"github.com/totegamma/taxonomy-sync/internal/domain"
)

type Config struct {
	Taxonomy Taxonomy `yaml:"taxonomy"`
	Cache    Cache    `yaml:"cache"`
	Server   Server   `yaml:"server"`
}

type Taxonomy struct {
	ApiRoot         string         `yaml:"apiRoot"`
	Timeout         time.Duration  `yaml:"timeout"`
	Concurrency     int            `yaml:"concurrency"`
	DefaultVersion  domain.Version `yaml:"defaultVersion"`
	DefaultLanguage string         `yaml:"defaultLanguage"`
}

type Cache struct {
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanupInterval"`
	MemcachedAddr   string        `yaml:"memcachedAddr"`
}

type Server struct {
	Listen        string `yaml:"listen"`
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

// Domain is the part of the configuration the usecases and handlers see.
func (c Config) Domain() domain.Config {
	return domain.Config{
		DefaultVersion:  c.Taxonomy.DefaultVersion,
		DefaultLanguage: c.Taxonomy.DefaultLanguage,
		Concurrency:     c.Taxonomy.Concurrency,
	}
}

func (c *Config) setDefaults() {
	if c.Taxonomy.Timeout == 0 {
		c.Taxonomy.Timeout = 10 * time.Second
	}
	if c.Taxonomy.Concurrency == 0 {
		c.Taxonomy.Concurrency = 8
	}
	if c.Taxonomy.DefaultVersion == "" {
		c.Taxonomy.DefaultVersion = domain.DefaultVersion
	}
	if c.Taxonomy.DefaultLanguage == "" {
		c.Taxonomy.DefaultLanguage = domain.DefaultLanguage
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 5 * time.Minute
	}
	if c.Cache.CleanupInterval == 0 {
		c.Cache.CleanupInterval = 10 * time.Minute
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":8000"
	}
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "config.Load: open failed")
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, errors.Wrap(err, "config.Load: decode failed")
	}

	if config.Taxonomy.ApiRoot == "" {
		return Config{}, errors.New("config.Load: taxonomy.apiRoot is required")
	}

	config.setDefaults()
	return config, nil
}
