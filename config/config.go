// Package config reads the YAML configuration of a couple service.
//
// A missing file is not an error: Load writes the defaults to the path and returns them,
// so a fresh deployment starts with an editable file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gabrielnfc/eivoucasar-sub001/couple"
	"github.com/gabrielnfc/eivoucasar-sub001/fetch"
	"github.com/gabrielnfc/eivoucasar-sub001/store/memstore"
)

// Config is the root of the configuration file.
type Config struct {
	Cache    CacheConfig    `yaml:"cache"`
	Loader   LoaderConfig   `yaml:"loader"`
	Prefetch PrefetchConfig `yaml:"prefetch"`
	Log      LogConfig      `yaml:"log"`

	// Seed lists couples preloaded into an in-memory repository.
	Seed []*couple.Couple `yaml:"seed,omitempty"`
}

// CacheConfig configures the cache store.
type CacheConfig struct {
	TTL     time.Duration `yaml:"ttl"`
	Buckets int           `yaml:"buckets"`
}

// LoaderConfig configures repository lookups.
type LoaderConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryBackoff  time.Duration `yaml:"retry_backoff"`
}

// PrefetchConfig configures Service.Prefetch.
type PrefetchConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// LogConfig configures the logger.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// Default returns the configuration used for settings absent from a file.
func Default() Config {
	return Config{
		Cache: CacheConfig{
			TTL:     memstore.DefaultTTL,
			Buckets: memstore.DefaultBucketsSize,
		},
		Loader: LoaderConfig{
			Timeout:       couple.DefaultLoadTimeout,
			RetryAttempts: 1,
		},
		Prefetch: PrefetchConfig{
			Concurrency: couple.DefaultPrefetchConcurrency,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Parse decodes data over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Load reads the configuration file at path.
// When the file does not exist, the defaults are written to it and returned.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		c := Default()
		data, err := yaml.Marshal(&c)
		if err != nil {
			return Config{}, fmt.Errorf("failed to create default config: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return Config{}, fmt.Errorf("failed to write default config: %w", err)
		}
		return c, nil
	} else if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.Cache.TTL <= 0:
		return fmt.Errorf("cache.ttl must be positive: %v", c.Cache.TTL)
	case c.Cache.Buckets <= 0:
		return fmt.Errorf("cache.buckets must be positive: %d", c.Cache.Buckets)
	case c.Loader.Timeout < 0:
		return fmt.Errorf("loader.timeout must not be negative: %v", c.Loader.Timeout)
	case c.Loader.RetryAttempts < 1:
		return fmt.Errorf("loader.retry_attempts must be at least 1: %d", c.Loader.RetryAttempts)
	case c.Loader.RetryBackoff < 0:
		return fmt.Errorf("loader.retry_backoff must not be negative: %v", c.Loader.RetryBackoff)
	case c.Prefetch.Concurrency <= 0:
		return fmt.Errorf("prefetch.concurrency must be positive: %d", c.Prefetch.Concurrency)
	}
	if _, err := c.Log.level(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json: %q", c.Log.Format)
	}
	for i, s := range c.Seed {
		if s == nil || s.UserID == "" {
			return fmt.Errorf("seed[%d] has no user_id", i)
		}
	}
	return nil
}

func (c LogConfig) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// Logger builds the logger writing to w.
func (c Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := c.Log.level()
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// ServiceOptions translates the configuration into couple.Service options.
// Extra coordinator options, such as metrics, are appended after the configured ones.
func (c Config) ServiceOptions(logger *slog.Logger, extra ...fetch.Option[couple.UserID, *couple.Couple]) []couple.Option {
	coordinatorOptions := []fetch.Option[couple.UserID, *couple.Couple]{
		fetch.WithStore[couple.UserID, *couple.Couple](memstore.NewInMemoryStore(
			memstore.WithTTL[couple.UserID, *couple.Couple](c.Cache.TTL),
			memstore.WithBucketsSize[couple.UserID, *couple.Couple](c.Cache.Buckets),
		)),
	}
	if logger != nil {
		coordinatorOptions = append(coordinatorOptions, fetch.WithLogger[couple.UserID, *couple.Couple](logger))
	}

	return []couple.Option{
		couple.WithLoadTimeout(c.Loader.Timeout),
		couple.WithRetry(c.Loader.RetryAttempts, c.Loader.RetryBackoff),
		couple.WithPrefetchConcurrency(c.Prefetch.Concurrency),
		couple.WithCoordinatorOptions(append(coordinatorOptions, extra...)...),
	}
}

// Repository returns an in-memory repository holding the seed couples.
func (c Config) Repository() *couple.MemoryRepository {
	repo := &couple.MemoryRepository{}
	for _, s := range c.Seed {
		repo.Save(s)
	}
	return repo
}
