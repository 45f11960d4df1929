// Package circuit runs the generation stages in order and owns their
// outputs.
package circuit

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/circuitgen/internal/config"
	"github.com/Faultbox/circuitgen/internal/logger"
	"github.com/Faultbox/circuitgen/internal/metrics"
	"github.com/Faultbox/circuitgen/internal/track"
	"github.com/Faultbox/circuitgen/internal/track/checkpoint"
	"github.com/Faultbox/circuitgen/internal/track/curve"
	"github.com/Faultbox/circuitgen/internal/track/mesh"
	"github.com/Faultbox/circuitgen/internal/track/waypoint"
)

// Settings holds the parameters of every stage.
type Settings struct {
	Method      string
	Curve       curve.Params
	Smooth      curve.SmoothParams
	Mesh        mesh.Params
	Waypoints   waypoint.Params
	Gates       checkpoint.Params
	GatePadding float64
}

// DefaultSettings mirrors config.Default.
func DefaultSettings() Settings {
	return SettingsFromConfig(config.Default())
}

// SettingsFromConfig maps the config file layout onto stage parameters.
// Road width and curbs feed both the waypoint edges and the gate width.
func SettingsFromConfig(cfg *config.Config) Settings {
	g := cfg.Generator
	r := cfg.Road
	return Settings{
		Method: g.Method,
		Curve: curve.Params{
			Seed:            g.Seed,
			KnotCount:       g.KnotCount,
			Radius:          g.Radius,
			NoiseAmplitude:  g.NoiseAmplitude,
			HeightAmplitude: g.HeightAmplitude,
			HeightFrequency: g.HeightFrequency,
			TangentStrength: g.TangentStrength,
		},
		Smooth: curve.SmoothParams{
			Seed:              g.Seed,
			PointCount:        g.Smooth.PointCount,
			Radius:            g.Radius,
			Jitter:            g.Smooth.Jitter,
			Iterations:        g.Smooth.Iterations,
			Blend:             g.Smooth.Blend,
			SamplesPerSegment: g.Smooth.SamplesPerSegment,
			HeightAmplitude:   g.HeightAmplitude,
			HeightFrequency:   g.HeightFrequency,
		},
		Mesh: mesh.Params{
			RoadWidth:     r.Width,
			RoadThickness: r.Thickness,
			StepMeters:    r.StepMeters,
			UVTiling:      r.UVTiling,
			Curb:          r.Curb,
			Grass:         r.Grass,
		},
		Waypoints: waypoint.Params{
			SpacingMeters: cfg.Waypoints.SpacingMeters,
			RoadWidth:     r.Width,
			Tuning:        cfg.Waypoints.Tuning,
		},
		Gates: checkpoint.Params{
			EveryN:        cfg.Checkpoints.EveryN,
			Width:         checkpoint.GateWidth(r.Width, r.Curb.Width, r.Curb.Enabled, cfg.Checkpoints.Padding),
			Height:        cfg.Checkpoints.Height,
			Length:        cfg.Checkpoints.Length,
			EndSkipFactor: cfg.Checkpoints.EndSkipFactor,
		},
		GatePadding: cfg.Checkpoints.Padding,
	}
}

// TrackerOptions maps tracker settings onto checkpoint options.
func TrackerOptions(cfg config.TrackerConfig) checkpoint.Options {
	return checkpoint.Options{
		RespawnHeight:  cfg.RespawnHeight,
		FlattenRespawn: cfg.FlattenRespawn,
		RejectCooldown: cfg.RejectCooldown,
	}
}

// Validate checks every stage's parameters.
func (s Settings) Validate() error {
	switch s.Method {
	case config.MethodBezier, "":
		if err := s.Curve.Validate(); err != nil {
			return fmt.Errorf("curve: %w", err)
		}
	case config.MethodSmoothed:
		if err := s.Smooth.Validate(); err != nil {
			return fmt.Errorf("curve: %w", err)
		}
	default:
		return fmt.Errorf("%w: unknown generator method %q", track.ErrInvalidParameter, s.Method)
	}
	if err := s.Mesh.Validate(); err != nil {
		return fmt.Errorf("mesh: %w", err)
	}
	if err := s.Waypoints.Validate(); err != nil {
		return fmt.Errorf("waypoints: %w", err)
	}
	if err := s.Gates.Validate(); err != nil {
		return fmt.Errorf("gates: %w", err)
	}
	return nil
}

// Circuit owns one generated track. Outputs are replaced wholesale by
// Rebuild and must not be modified by readers.
type Circuit struct {
	Settings Settings

	Curve     *curve.Curve
	Mesh      *mesh.Result
	Waypoints *waypoint.Set
	Gates     []checkpoint.Gate

	// Generation counts successful rebuilds.
	Generation int

	metrics *metrics.Collector
	log     *zap.Logger
}

// New returns an unbuilt circuit. m may be nil.
func New(s Settings, m *metrics.Collector) *Circuit {
	return &Circuit{Settings: s, metrics: m, log: logger.Named("circuit")}
}

// Build is New followed by Rebuild.
func Build(s Settings, m *metrics.Collector) (*Circuit, error) {
	c := New(s, m)
	if err := c.Rebuild(); err != nil {
		return nil, err
	}
	return c, nil
}

// Rebuild regenerates every stage from Settings. Invalid settings are
// rejected before any output is touched. On success all outputs belong to
// the same generation.
func (c *Circuit) Rebuild() error {
	if err := c.Settings.Validate(); err != nil {
		return err
	}
	start := time.Now()

	c.Curve, c.Mesh, c.Waypoints, c.Gates = nil, nil, nil, nil

	var (
		crv   *curve.Curve
		res   *mesh.Result
		set   *waypoint.Set
		gates []checkpoint.Gate
	)
	err := c.stage("curve", func() (err error) {
		crv, err = c.generateCurve()
		return err
	})
	if err == nil {
		err = c.stage("mesh", func() (err error) {
			res, err = mesh.Build(crv, c.Settings.Mesh)
			return err
		})
	}
	if err == nil {
		err = c.stage("waypoints", func() (err error) {
			set, err = waypoint.Build(crv, c.Settings.Waypoints)
			return err
		})
	}
	if err == nil {
		err = c.stage("gates", func() (err error) {
			gates, err = checkpoint.BuildGates(set, c.Settings.Gates)
			return err
		})
	}
	if err != nil {
		return err
	}

	c.Curve, c.Mesh, c.Waypoints, c.Gates = crv, res, set, gates
	c.Generation++

	triangles := 0
	if res != nil {
		triangles = res.Mesh.TriangleCount()
	}
	c.metrics.SetBuildSizes(triangles, set.Len(), len(gates))
	c.log.Info("circuit rebuilt",
		zap.Int("generation", c.Generation),
		zap.String("method", c.method()),
		zap.Int64("seed", c.Settings.Curve.Seed),
		zap.Float64("length", curve.Length(crv)),
		zap.Int("triangles", triangles),
		zap.Int("waypoints", set.Len()),
		zap.Int("gates", len(gates)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (c *Circuit) stage(name string, run func() error) error {
	start := time.Now()
	err := run()
	c.metrics.ObserveStage(name, time.Since(start))
	if err != nil {
		return fmt.Errorf("%s stage: %w", name, err)
	}
	return nil
}

func (c *Circuit) method() string {
	if c.Settings.Method == "" {
		return config.MethodBezier
	}
	return c.Settings.Method
}

func (c *Circuit) generateCurve() (*curve.Curve, error) {
	if c.method() == config.MethodSmoothed {
		return curve.GenerateSmoothed(c.Settings.Smooth)
	}
	return curve.Generate(c.Settings.Curve)
}

// Length returns the centerline length, or 0 before the first build.
func (c *Circuit) Length() float64 {
	return curve.Length(c.Curve)
}

// NewTracker returns a progress tracker over the current gates, reporting
// to the circuit's metrics unless opts already names a recorder.
func (c *Circuit) NewTracker(opts checkpoint.Options) *checkpoint.Tracker {
	if opts.Metrics == nil && c.metrics != nil {
		opts.Metrics = c.metrics
	}
	return checkpoint.NewTracker(c.Gates, opts)
}
