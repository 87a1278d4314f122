package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultListenAddr      = ":8080"
	defaultDBPath          = "montecarlo.db"
	defaultRNG             = "pcg"
	defaultSeed            = 34788
	defaultWarmupCycles    = 1000
	defaultCycles          = 10000
	defaultCycleLength     = 100
	defaultVerbosity       = 1
	defaultRanks           = 1
	defaultLatticeSize     = 16
	defaultBeta            = 0.4
	defaultCheckpointGroup = "ising"

	envListenAddr   = "MC_LISTEN_ADDR"
	envDBPath       = "MC_DB_PATH"
	envLogLevel     = "MC_LOG_LEVEL"
	envRNG          = "MC_RNG"
	envSeed         = "MC_SEED"
	envWarmupCycles = "MC_N_WARMUP_CYCLES"
	envCycles       = "MC_N_CYCLES"
	envCycleLength  = "MC_LENGTH_CYCLE"
	envVerbosity    = "MC_VERBOSITY"
	envMaxTime      = "MC_MAX_TIME"
	envRanks        = "MC_RANKS"
	envLatticeSize  = "MC_LATTICE_SIZE"
	envBeta         = "MC_BETA"
	envTracing      = "MC_TRACING"
)

// Simulation holds the parameters of a warmup and accumulation run.
type Simulation struct {
	RNG          string        `yaml:"rng"`
	Seed         int64         `yaml:"seed"`
	WarmupCycles uint64        `yaml:"n_warmup_cycles"`
	Cycles       uint64        `yaml:"n_cycles"`
	CycleLength  uint64        `yaml:"length_cycle"`
	Verbosity    int           `yaml:"verbosity"`
	MaxTime      time.Duration `yaml:"max_time"`
	Debug        bool          `yaml:"debug"`
	Ranks        int           `yaml:"ranks"`
}

// Ising holds the parameters of the demo lattice model.
type Ising struct {
	Size  int     `yaml:"size"`
	Beta  float64 `yaml:"beta"`
	Field float64 `yaml:"field"`
}

// Checkpoint selects where results are written and what is resumed.
type Checkpoint struct {
	Group  string `yaml:"group"`
	Name   string `yaml:"name"`
	Resume bool   `yaml:"resume"`
}

// Config holds application configuration.
type Config struct {
	ListenAddr string     `yaml:"listen_addr"`
	Serve      bool       `yaml:"serve"`
	DBPath     string     `yaml:"db_path"`
	LogLevel   slog.Level `yaml:"-"`
	Tracing    bool       `yaml:"tracing"`
	Simulation Simulation `yaml:"simulation"`
	Ising      Ising      `yaml:"ising"`
	Checkpoint Checkpoint `yaml:"checkpoint"`
}

// fileConfig mirrors Config for YAML decoding, with the log level as text.
type fileConfig struct {
	Config   `yaml:",inline"`
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when nothing else is specified.
func Default() Config {
	return Config{
		ListenAddr: defaultListenAddr,
		DBPath:     defaultDBPath,
		LogLevel:   slog.LevelInfo,
		Simulation: Simulation{
			RNG:          defaultRNG,
			Seed:         defaultSeed,
			WarmupCycles: defaultWarmupCycles,
			Cycles:       defaultCycles,
			CycleLength:  defaultCycleLength,
			Verbosity:    defaultVerbosity,
			Ranks:        defaultRanks,
		},
		Ising: Ising{
			Size: defaultLatticeSize,
			Beta: defaultBeta,
		},
		Checkpoint: Checkpoint{
			Group: defaultCheckpointGroup,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty and the file exists) and MC_* environment variables, in
// that order, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := loadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("load environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	fc := fileConfig{Config: *cfg}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	*cfg = fc.Config
	if fc.LogLevel != "" {
		cfg.LogLevel = ParseLogLevel(fc.LogLevel)
	}
	return nil
}

func loadEnv(cfg *Config) error {
	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = ParseLogLevel(v)
	}
	if v := os.Getenv(envRNG); v != "" {
		cfg.Simulation.RNG = v
	}

	var errs []error
	parse := func(key string, set func(string) error) {
		if v := os.Getenv(key); v != "" {
			if err := set(v); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
	}
	parse(envSeed, func(v string) (err error) {
		cfg.Simulation.Seed, err = strconv.ParseInt(v, 10, 64)
		return err
	})
	parse(envWarmupCycles, func(v string) (err error) {
		cfg.Simulation.WarmupCycles, err = strconv.ParseUint(v, 10, 64)
		return err
	})
	parse(envCycles, func(v string) (err error) {
		cfg.Simulation.Cycles, err = strconv.ParseUint(v, 10, 64)
		return err
	})
	parse(envCycleLength, func(v string) (err error) {
		cfg.Simulation.CycleLength, err = strconv.ParseUint(v, 10, 64)
		return err
	})
	parse(envVerbosity, func(v string) (err error) {
		cfg.Simulation.Verbosity, err = strconv.Atoi(v)
		return err
	})
	parse(envMaxTime, func(v string) (err error) {
		cfg.Simulation.MaxTime, err = time.ParseDuration(v)
		return err
	})
	parse(envRanks, func(v string) (err error) {
		cfg.Simulation.Ranks, err = strconv.Atoi(v)
		return err
	})
	parse(envLatticeSize, func(v string) (err error) {
		cfg.Ising.Size, err = strconv.Atoi(v)
		return err
	})
	parse(envBeta, func(v string) (err error) {
		cfg.Ising.Beta, err = strconv.ParseFloat(v, 64)
		return err
	})
	parse(envTracing, func(v string) (err error) {
		cfg.Tracing, err = strconv.ParseBool(v)
		return err
	})
	return errors.Join(errs...)
}

// Validate rejects configurations the engine cannot run.
func (c Config) Validate() error {
	if c.Simulation.CycleLength == 0 {
		return fmt.Errorf("length_cycle must be >= 1")
	}
	if c.Simulation.Ranks < 1 {
		return fmt.Errorf("ranks must be >= 1")
	}
	if c.Simulation.Verbosity < 0 {
		return fmt.Errorf("verbosity must be >= 0")
	}
	if c.Simulation.MaxTime < 0 {
		return fmt.Errorf("max_time must be >= 0")
	}
	if c.Ising.Size < 2 {
		return fmt.Errorf("ising size must be >= 2")
	}
	if c.Ising.Beta < 0 {
		return fmt.Errorf("ising beta must be >= 0")
	}
	if c.Checkpoint.Resume && c.Checkpoint.Name == "" {
		return fmt.Errorf("checkpoint name is required to resume")
	}
	return nil
}

// ParseLogLevel maps a level name to a slog level, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
