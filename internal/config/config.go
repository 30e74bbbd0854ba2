package config

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. LOOTRAND_SEED.
const EnvPrefix = "LOOTRAND_"

// Config holds the randomizer run configuration.
type Config struct {
	Seed            *int64   `yaml:"seed" env:"SEED"`
	Jar             string   `yaml:"jar" env:"JAR"`
	JarURL          string   `yaml:"jar_url" env:"JAR_URL"`
	OutputDir       string   `yaml:"output_dir" env:"OUTPUT_DIR"`
	RandomizeLoot   []string `yaml:"randomize_loot" env:"RANDOMIZE_LOOT" envSeparator:","`
	Cheatsheet      bool     `yaml:"cheatsheet" env:"CHEATSHEET"`
	Mode            string   `yaml:"mode" env:"MODE"`
	Relaxed         bool     `yaml:"relaxed" env:"RELAXED"`
	SpecialKeyItems bool     `yaml:"special_key_items" env:"SPECIAL_KEY_ITEMS"` // mobs and chests may drop required items
	StartSource     string   `yaml:"start_source" env:"START_SOURCE"`
	ObtainmentFile  string   `yaml:"obtainment_file" env:"OBTAINMENT_FILE"` // empty uses the embedded vanilla data
	PackFormat      int      `yaml:"pack_format" env:"PACK_FORMAT"`
	DBPath          string   `yaml:"db_path" env:"DB_PATH"` // empty disables run history
	LogLevel        string   `yaml:"log_level" env:"LOG_LEVEL"`
	CacheDir        string   `yaml:"cache_dir" env:"CACHE_DIR"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		OutputDir:       "out",
		RandomizeLoot:   []string{"blocks", "entities", "chests", "gameplay"},
		Cheatsheet:      true,
		Mode:            "progression",
		SpecialKeyItems: true,
		PackFormat:      48,
		DBPath:          "runs.db",
		LogLevel:        "info",
		CacheDir:        ".cache",
	}
}

// LoadFile reads a YAML config file into cfg. Keys absent from the file keep
// their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ParseEnv applies LOOTRAND_* environment overrides to cfg.
func ParseEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Merge applies file-loaded config values into cfg, but only for fields
// that were NOT explicitly set via CLI flags. explicitFlags contains the
// flag names that were explicitly provided on the command line.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	if !explicitFlags["seed"] {
		cfg.Seed = fromFile.Seed
	}
	if !explicitFlags["jar"] {
		cfg.Jar = fromFile.Jar
	}
	if !explicitFlags["jar-url"] {
		cfg.JarURL = fromFile.JarURL
	}
	if !explicitFlags["output"] {
		cfg.OutputDir = fromFile.OutputDir
	}
	if !explicitFlags["loot"] {
		cfg.RandomizeLoot = fromFile.RandomizeLoot
	}
	if !explicitFlags["cheatsheet"] {
		cfg.Cheatsheet = fromFile.Cheatsheet
	}
	if !explicitFlags["mode"] {
		cfg.Mode = fromFile.Mode
	}
	if !explicitFlags["relaxed"] {
		cfg.Relaxed = fromFile.Relaxed
	}
	if !explicitFlags["special-key-items"] {
		cfg.SpecialKeyItems = fromFile.SpecialKeyItems
	}
	if !explicitFlags["start"] {
		cfg.StartSource = fromFile.StartSource
	}
	if !explicitFlags["obtainment"] {
		cfg.ObtainmentFile = fromFile.ObtainmentFile
	}
	if !explicitFlags["pack-format"] {
		cfg.PackFormat = fromFile.PackFormat
	}
	if !explicitFlags["db"] {
		cfg.DBPath = fromFile.DBPath
	}
	if !explicitFlags["log-level"] {
		cfg.LogLevel = fromFile.LogLevel
	}
	if !explicitFlags["cache-dir"] {
		cfg.CacheDir = fromFile.CacheDir
	}
}

// Validate reports settings that cannot produce a run.
func (c *Config) Validate() error {
	var errs []error
	if c.Mode == "" {
		errs = append(errs, errors.New("mode is required"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir is required"))
	}
	if c.PackFormat <= 0 {
		errs = append(errs, fmt.Errorf("pack_format must be positive, got %d", c.PackFormat))
	}
	if len(c.RandomizeLoot) == 0 {
		errs = append(errs, errors.New("randomize_loot must name at least one loot table folder"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}

// ResolveSeed returns the configured seed, generating and storing a fresh
// one when none was set.
func (c *Config) ResolveSeed() (int64, error) {
	if c.Seed != nil {
		return *c.Seed, nil
	}
	seed, err := NewSeed()
	if err != nil {
		return 0, err
	}
	c.Seed = &seed
	return seed, nil
}

// NewSeed returns a random non-negative seed.
func NewSeed() (int64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("generate seed: %w", err)
	}
	return int64(binary.BigEndian.Uint64(buf[:]) >> 1), nil
}
