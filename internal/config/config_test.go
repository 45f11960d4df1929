package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Faultbox/circuitgen/internal/track"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Generator.Method != MethodBezier {
		t.Errorf("expected method %q, got %q", MethodBezier, cfg.Generator.Method)
	}
	if cfg.Generator.KnotCount != 12 {
		t.Errorf("expected 12 knots, got %d", cfg.Generator.KnotCount)
	}
	if cfg.Road.Width != 8 {
		t.Errorf("expected road width 8, got %f", cfg.Road.Width)
	}
	if !cfg.Road.Curb.Enabled || !cfg.Road.Grass.Enabled {
		t.Error("expected curbs and grass enabled by default")
	}
	if cfg.Waypoints.SpacingMeters != 10 {
		t.Errorf("expected spacing 10, got %f", cfg.Waypoints.SpacingMeters)
	}
	if cfg.Waypoints.MaxSpeed != 60 {
		t.Errorf("expected max speed 60, got %f", cfg.Waypoints.MaxSpeed)
	}
	if cfg.Checkpoints.EndSkipFactor != 1.5 {
		t.Errorf("expected end skip factor 1.5, got %f", cfg.Checkpoints.EndSkipFactor)
	}
	if cfg.Tracker.RejectCooldown != 2*time.Second {
		t.Errorf("expected cooldown 2s, got %v", cfg.Tracker.RejectCooldown)
	}
	if cfg.Metrics.Enabled {
		t.Error("expected metrics disabled by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "circuit.yaml")

	yamlContent := `
generator:
  method: smoothed
  seed: 99
  knot_count: 20
  smooth:
    iterations: 6

road:
  width: 10
  curb:
    enabled: false
  grass:
    width: 4

waypoints:
  spacing_meters: 6
  max_speed: 45
  look_ahead_count: 3

checkpoints:
  every_n: 4

tracker:
  reject_cooldown: 500ms

logging:
  level: "debug"
  log_file: "gen.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Generator.Method != MethodSmoothed {
		t.Errorf("expected method smoothed, got %s", cfg.Generator.Method)
	}
	if cfg.Generator.Seed != 99 {
		t.Errorf("expected seed 99, got %d", cfg.Generator.Seed)
	}
	if cfg.Generator.Smooth.Iterations != 6 {
		t.Errorf("expected 6 iterations, got %d", cfg.Generator.Smooth.Iterations)
	}
	if cfg.Generator.Smooth.Blend != 0.5 {
		t.Errorf("expected blend to keep its default, got %f", cfg.Generator.Smooth.Blend)
	}
	if cfg.Road.Width != 10 {
		t.Errorf("expected road width 10, got %f", cfg.Road.Width)
	}
	if cfg.Road.Curb.Enabled {
		t.Error("expected curbs disabled")
	}
	if cfg.Road.Grass.Width != 4 || !cfg.Road.Grass.Enabled {
		t.Errorf("expected grass width 4 and enabled, got %+v", cfg.Road.Grass)
	}
	if cfg.Waypoints.SpacingMeters != 6 || cfg.Waypoints.MaxSpeed != 45 || cfg.Waypoints.LookAheadCount != 3 {
		t.Errorf("unexpected waypoint settings %+v", cfg.Waypoints)
	}
	if cfg.Waypoints.MinSpeed != 8 {
		t.Errorf("expected min speed to keep its default, got %f", cfg.Waypoints.MinSpeed)
	}
	if cfg.Checkpoints.EveryN != 4 {
		t.Errorf("expected every_n 4, got %d", cfg.Checkpoints.EveryN)
	}
	if cfg.Tracker.RejectCooldown != 500*time.Millisecond {
		t.Errorf("expected cooldown 500ms, got %v", cfg.Tracker.RejectCooldown)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "gen.log" {
		t.Errorf("expected log file 'gen.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
generator:
  knot_count: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/circuit.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown method", func(c *Config) { c.Generator.Method = "spiral" }},
		{"unknown level", func(c *Config) { c.Logging.Level = "loud" }},
		{"negative padding", func(c *Config) { c.Checkpoints.Padding = -1 }},
		{"negative cooldown", func(c *Config) { c.Tracker.RejectCooldown = -time.Second }},
		{"metrics without address", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Listen = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, track.ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter, got %v", err)
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	os.Chdir(tmpDir)

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "circuit.yaml")
	if err := os.WriteFile(configPath, []byte("generator:\n  seed: 7\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Error("expected to find circuit.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name: "seed flag",
			setup: func() {
				seed := int64(-5)
				seedOverride = &seed
			},
			verify: func(cfg *Config) {
				if cfg.Generator.Seed != -5 {
					t.Errorf("expected seed -5, got %d", cfg.Generator.Seed)
				}
			},
			teardown: func() { seedOverride = nil },
		},
		{
			name:  "knots flag",
			setup: func() { *flagKnots = 9 },
			verify: func(cfg *Config) {
				if cfg.Generator.KnotCount != 9 || cfg.Generator.Smooth.PointCount != 9 {
					t.Errorf("expected 9 knots for both generators, got %d and %d",
						cfg.Generator.KnotCount, cfg.Generator.Smooth.PointCount)
				}
			},
			teardown: func() { *flagKnots = 0 },
		},
		{
			name: "strip flags",
			setup: func() {
				*flagNoCurbs = true
				*flagNoGrass = true
			},
			verify: func(cfg *Config) {
				if cfg.Road.Curb.Enabled || cfg.Road.Grass.Enabled {
					t.Error("expected curbs and grass disabled")
				}
			},
			teardown: func() {
				*flagNoCurbs = false
				*flagNoGrass = false
			},
		},
		{
			name:  "metrics flag",
			setup: func() { *flagMetrics = ":9100" },
			verify: func(cfg *Config) {
				if !cfg.Metrics.Enabled || cfg.Metrics.Listen != ":9100" {
					t.Errorf("expected metrics on :9100, got %+v", cfg.Metrics)
				}
			},
			teardown: func() { *flagMetrics = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)

			tt.verify(cfg)
		})
	}
}

func TestParseSeedFlag(t *testing.T) {
	defer func() { seedOverride = nil }()

	if err := ParseFlags([]string{"-seed", "12345", "out.obj"}); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	if seedOverride == nil || *seedOverride != 12345 {
		t.Fatalf("expected seed override 12345, got %v", seedOverride)
	}
	if args := Args(); len(args) != 1 || args[0] != "out.obj" {
		t.Errorf("expected positional out.obj, got %v", args)
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "circuit.yaml")

	yamlContent := `
generator:
  knot_count: 16
  radius: 200
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagRadius = 90
	defer func() {
		*flagConfig = ""
		*flagRadius = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Generator.Radius != 90 {
		t.Errorf("expected radius 90 from flag, got %f", cfg.Generator.Radius)
	}
	if cfg.Generator.KnotCount != 16 {
		t.Errorf("expected 16 knots from file, got %d", cfg.Generator.KnotCount)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "circuit.yaml")

	cfg := Default()
	cfg.Generator.Seed = 4242
	cfg.Tracker.RejectCooldown = 750 * time.Millisecond
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload: %v", err)
	}
	if loaded.Generator.Seed != 4242 {
		t.Errorf("expected seed 4242, got %d", loaded.Generator.Seed)
	}
	if loaded.Tracker.RejectCooldown != 750*time.Millisecond {
		t.Errorf("expected cooldown 750ms, got %v", loaded.Tracker.RejectCooldown)
	}
	if loaded.Waypoints.FlattenAngles != cfg.Waypoints.FlattenAngles {
		t.Error("inline tuning did not round-trip")
	}
}
