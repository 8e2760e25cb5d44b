// Package config reads the serve binary settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/darkomike/bloggie-sub001/eviction"
	"github.com/darkomike/bloggie-sub001/writepolicy"
)

type Config struct {
	ListenAddr string `env:"BLOGGIE_LISTEN_ADDR" envDefault:":8080"`
	LogLevel   string `env:"BLOGGIE_LOG_LEVEL"   envDefault:"info"`

	// StoragePath is the sqlite file backing the cache. Empty keeps the cache
	// in memory.
	StoragePath string `env:"BLOGGIE_CACHE_STORAGE_PATH" envDefault:"bloggie-cache.db"`
	Shards      int    `env:"BLOGGIE_CACHE_SHARDS"       envDefault:"4"`
	Capacity    int    `env:"BLOGGIE_CACHE_CAPACITY"     envDefault:"1024"`
	Eviction    string `env:"BLOGGIE_CACHE_EVICTION"     envDefault:"LRU"`
	WritePolicy string `env:"BLOGGIE_CACHE_WRITE_POLICY" envDefault:"through"`
	WriteBuffer int    `env:"BLOGGIE_CACHE_WRITE_BUFFER" envDefault:"256"`

	// SessionMaxAge is both the token lifetime and the auth entry TTL.
	SessionMaxAge time.Duration `env:"BLOGGIE_SESSION_MAX_AGE" envDefault:"24h"`
	RefreshWindow time.Duration `env:"BLOGGIE_SESSION_REFRESH_WINDOW" envDefault:"5m"`
	TokenSecret   string        `env:"BLOGGIE_TOKEN_SECRET"`
	TokenIssuer   string        `env:"BLOGGIE_TOKEN_ISSUER" envDefault:"bloggie"`

	// ValkeyAddr enables cross-process sync. Empty syncs only contexts in this
	// process.
	ValkeyAddr     string `env:"BLOGGIE_VALKEY_ADDR"`
	ValkeyPassword string `env:"BLOGGIE_VALKEY_PASSWORD"`
	SyncChannel    string `env:"BLOGGIE_SYNC_CHANNEL" envDefault:"bloggie:cache:sync"`

	DebugCache      bool `env:"BLOGGIE_DEBUG_CACHE"       envDefault:"false"`
	DebugMaxEntries int  `env:"BLOGGIE_DEBUG_MAX_ENTRIES" envDefault:"50"`
}

/*
Load reads .env files (missing ones are skipped; variables already set win)
and then the environment. With no files given it tries ./.env.
*/
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Shards <= 0 {
		errs = append(errs, fmt.Errorf("BLOGGIE_CACHE_SHARDS must be positive, got %d", c.Shards))
	}
	if c.Capacity < 0 {
		errs = append(errs, fmt.Errorf("BLOGGIE_CACHE_CAPACITY must not be negative, got %d", c.Capacity))
	}
	if _, err := c.EvictionPolicy(); err != nil {
		errs = append(errs, err)
	}
	switch writepolicy.Kind(c.WritePolicy) {
	case writepolicy.WriteThrough, writepolicy.WriteBack:
	default:
		errs = append(errs, fmt.Errorf("BLOGGIE_CACHE_WRITE_POLICY must be %q or %q, got %q",
			writepolicy.WriteThrough, writepolicy.WriteBack, c.WritePolicy))
	}
	if c.SessionMaxAge <= 0 {
		errs = append(errs, errors.New("BLOGGIE_SESSION_MAX_AGE must be positive"))
	}
	if c.RefreshWindow < 0 || c.RefreshWindow >= c.SessionMaxAge {
		errs = append(errs, errors.New("BLOGGIE_SESSION_REFRESH_WINDOW must be shorter than the session max age"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c Config) EvictionPolicy() (eviction.PolicyType, error) {
	return eviction.ParsePolicyType(c.Eviction)
}

func (c Config) Level() (logrus.Level, error) {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel, fmt.Errorf("BLOGGIE_LOG_LEVEL: %w", err)
	}
	return lvl, nil
}
