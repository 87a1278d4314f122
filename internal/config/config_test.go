package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var allEnv = []string{
	envListenAddr, envDBPath, envLogLevel, envRNG, envSeed, envWarmupCycles,
	envCycles, envCycleLength, envVerbosity, envMaxTime, envRanks,
	envLatticeSize, envBeta, envTracing,
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allEnv {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "montecarlo.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddr != defaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, defaultListenAddr)
	}
	if cfg.DBPath != defaultDBPath {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, defaultDBPath)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelInfo)
	}
	if cfg.Simulation.CycleLength != defaultCycleLength {
		t.Errorf("CycleLength = %d, want %d", cfg.Simulation.CycleLength, defaultCycleLength)
	}
	if cfg.Simulation.RNG != defaultRNG {
		t.Errorf("RNG = %q, want %q", cfg.Simulation.RNG, defaultRNG)
	}
	if cfg.Ising.Size != defaultLatticeSize {
		t.Errorf("Ising.Size = %d, want %d", cfg.Ising.Size, defaultLatticeSize)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Simulation.Cycles != defaultCycles {
		t.Errorf("Cycles = %d, want %d", cfg.Simulation.Cycles, defaultCycles)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
listen_addr: ":9999"
log_level: debug
simulation:
  rng: chacha8
  n_cycles: 500
  length_cycle: 10
  max_time: 90s
ising:
  size: 8
  beta: 0.25
checkpoint:
  name: run1
  resume: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddr != ":9999" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, ":9999")
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelDebug)
	}
	if cfg.Simulation.RNG != "chacha8" {
		t.Errorf("RNG = %q, want chacha8", cfg.Simulation.RNG)
	}
	if cfg.Simulation.Cycles != 500 || cfg.Simulation.CycleLength != 10 {
		t.Errorf("cycles = %d x %d, want 500 x 10", cfg.Simulation.Cycles, cfg.Simulation.CycleLength)
	}
	if cfg.Simulation.MaxTime != 90*time.Second {
		t.Errorf("MaxTime = %v, want 90s", cfg.Simulation.MaxTime)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Simulation.WarmupCycles != defaultWarmupCycles {
		t.Errorf("WarmupCycles = %d, want %d", cfg.Simulation.WarmupCycles, defaultWarmupCycles)
	}
	if cfg.Ising.Size != 8 || cfg.Ising.Beta != 0.25 {
		t.Errorf("Ising = %+v, want size 8 beta 0.25", cfg.Ising)
	}
	if !cfg.Checkpoint.Resume || cfg.Checkpoint.Name != "run1" || cfg.Checkpoint.Group != defaultCheckpointGroup {
		t.Errorf("Checkpoint = %+v", cfg.Checkpoint)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "simulation:\n  n_cycles: 500\n  ranks: 2\n")
	t.Setenv(envCycles, "42")
	t.Setenv(envListenAddr, ":9090")
	t.Setenv(envDBPath, "/tmp/test.db")
	t.Setenv(envLogLevel, "warn")
	t.Setenv(envBeta, "0.1")
	t.Setenv(envTracing, "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Simulation.Cycles != 42 {
		t.Errorf("Cycles = %d, want 42", cfg.Simulation.Cycles)
	}
	if cfg.Simulation.Ranks != 2 {
		t.Errorf("Ranks = %d, want 2", cfg.Simulation.Ranks)
	}
	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, ":9090")
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/tmp/test.db")
	}
	if cfg.LogLevel != slog.LevelWarn {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelWarn)
	}
	if cfg.Ising.Beta != 0.1 {
		t.Errorf("Beta = %v, want 0.1", cfg.Ising.Beta)
	}
	if !cfg.Tracing {
		t.Error("Tracing = false, want true")
	}
}

func TestLoadInvalidEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(envSeed, "not-a-number")
	t.Setenv(envMaxTime, "soon")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error")
	}
	for _, key := range []string{envSeed, envMaxTime} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not mention %s", err, key)
		}
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "simulation: [not, a, map")

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero cycle length", func(c *Config) { c.Simulation.CycleLength = 0 }, false},
		{"zero ranks", func(c *Config) { c.Simulation.Ranks = 0 }, false},
		{"negative verbosity", func(c *Config) { c.Simulation.Verbosity = -1 }, false},
		{"negative max time", func(c *Config) { c.Simulation.MaxTime = -time.Second }, false},
		{"tiny lattice", func(c *Config) { c.Ising.Size = 1 }, false},
		{"negative beta", func(c *Config) { c.Ising.Beta = -1 }, false},
		{"resume without name", func(c *Config) { c.Checkpoint.Resume = true }, false},
		{"zero cycles", func(c *Config) { c.Simulation.Cycles = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("Validate: expected error")
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		got := ParseLogLevel(tt.input)
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewLoggerOutputsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)
	if logger == nil {
		t.Fatal("NewLogger returned nil")
	}

	logger.Info("test message", "key", "value")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("logger output is not valid JSON: %v\noutput: %s", err, buf.String())
	}

	for _, key := range []string{"time", "level", "msg"} {
		if _, ok := entry[key]; !ok {
			t.Errorf("JSON output missing expected key %q", key)
		}
	}
	if entry["msg"] != "test message" {
		t.Errorf("msg = %v, want %q", entry["msg"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want %q", entry["key"], "value")
	}
}
