// Package config handles generator configuration loading and management.
package config

import (
	"fmt"
	"time"

	"github.com/Faultbox/circuitgen/internal/track"
	"github.com/Faultbox/circuitgen/internal/track/mesh"
	"github.com/Faultbox/circuitgen/internal/track/waypoint"
)

// Centerline generation methods.
const (
	MethodBezier   = "bezier"
	MethodSmoothed = "smoothed"
)

// Config holds all generator settings.
type Config struct {
	Generator   GeneratorConfig  `yaml:"generator"`
	Road        RoadConfig       `yaml:"road"`
	Waypoints   WaypointConfig   `yaml:"waypoints"`
	Checkpoints CheckpointConfig `yaml:"checkpoints"`
	Tracker     TrackerConfig    `yaml:"tracker"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Logging     LoggingConfig    `yaml:"logging"`
}

// GeneratorConfig holds centerline settings.
type GeneratorConfig struct {
	Method          string       `yaml:"method"` // bezier or smoothed
	Seed            int64        `yaml:"seed"`
	KnotCount       int          `yaml:"knot_count"`
	Radius          float64      `yaml:"radius"`
	NoiseAmplitude  float64      `yaml:"noise_amplitude"`
	HeightAmplitude float64      `yaml:"height_amplitude"`
	HeightFrequency float64      `yaml:"height_frequency"`
	TangentStrength float64      `yaml:"tangent_strength"`
	Smooth          SmoothConfig `yaml:"smooth"`
}

// SmoothConfig holds the relaxation generator's extra settings. Seed,
// radius and height come from GeneratorConfig.
type SmoothConfig struct {
	PointCount        int     `yaml:"point_count"`
	Jitter            float64 `yaml:"jitter"`
	Iterations        int     `yaml:"iterations"`
	Blend             float64 `yaml:"blend"`
	SamplesPerSegment int     `yaml:"samples_per_segment"`
}

// RoadConfig holds mesh extrusion settings.
type RoadConfig struct {
	Width      float64           `yaml:"width"`
	Thickness  float64           `yaml:"thickness"`
	StepMeters float64           `yaml:"step_meters"`
	UVTiling   float64           `yaml:"uv_tiling"`
	Curb       mesh.CurbOptions  `yaml:"curb"`
	Grass      mesh.GrassOptions `yaml:"grass"`
}

// WaypointConfig holds navigation path settings.
type WaypointConfig struct {
	SpacingMeters   float64 `yaml:"spacing_meters"`
	waypoint.Tuning `yaml:",inline"`
}

// CheckpointConfig holds gate placement settings.
type CheckpointConfig struct {
	EveryN        int     `yaml:"every_n"`
	Height        float64 `yaml:"height"`
	Length        float64 `yaml:"length"`
	Padding       float64 `yaml:"padding"`
	EndSkipFactor float64 `yaml:"end_skip_factor"`
}

// TrackerConfig holds lap progress settings.
type TrackerConfig struct {
	RespawnHeight  float64       `yaml:"respawn_height"`
	FlattenRespawn bool          `yaml:"flatten_respawn"`
	RejectCooldown time.Duration `yaml:"reject_cooldown"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Generator: GeneratorConfig{
			Method:          MethodBezier,
			Seed:            1337,
			KnotCount:       12,
			Radius:          120,
			NoiseAmplitude:  35,
			HeightAmplitude: 6,
			HeightFrequency: 0.01,
			TangentStrength: 0.35,
			Smooth: SmoothConfig{
				PointCount:        16,
				Jitter:            45,
				Iterations:        3,
				Blend:             0.5,
				SamplesPerSegment: 4,
			},
		},
		Road: RoadConfig{
			Width:      8,
			Thickness:  0.3,
			StepMeters: 1,
			UVTiling:   8,
			Curb:       mesh.CurbOptions{Enabled: true, Width: 0.35, Height: 0.08},
			Grass:      mesh.GrassOptions{Enabled: true, Width: 6, Drop: 0.05},
		},
		Waypoints: WaypointConfig{
			SpacingMeters: 10,
			Tuning:        waypoint.DefaultTuning(),
		},
		Checkpoints: CheckpointConfig{
			EveryN:        5,
			Height:        4,
			Length:        2,
			Padding:       1,
			EndSkipFactor: 1.5,
		},
		Tracker: TrackerConfig{
			RespawnHeight:  1,
			FlattenRespawn: true,
			RejectCooldown: 2 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  ":2112",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks settings that no generation stage validates itself.
// Stage parameters are validated when the stage runs.
func (c *Config) Validate() error {
	switch c.Generator.Method {
	case MethodBezier, MethodSmoothed:
	default:
		return fmt.Errorf("%w: unknown generator method %q", track.ErrInvalidParameter, c.Generator.Method)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", track.ErrInvalidParameter, c.Logging.Level)
	}
	if c.Checkpoints.Padding < 0 {
		return fmt.Errorf("%w: gate padding %.3f is negative", track.ErrInvalidParameter, c.Checkpoints.Padding)
	}
	if c.Tracker.RejectCooldown < 0 {
		return fmt.Errorf("%w: reject cooldown %s is negative", track.ErrInvalidParameter, c.Tracker.RejectCooldown)
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("%w: metrics enabled without a listen address", track.ErrInvalidParameter)
	}
	return nil
}
