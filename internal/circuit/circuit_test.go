package circuit

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/circuitgen/internal/config"
	"github.com/Faultbox/circuitgen/internal/metrics"
	"github.com/Faultbox/circuitgen/internal/track"
	"github.com/Faultbox/circuitgen/internal/track/checkpoint"
	"github.com/Faultbox/circuitgen/internal/track/waypoint"
)

func TestBuild_Default(t *testing.T) {
	c, err := Build(DefaultSettings(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, c.Generation)
	require.NotNil(t, c.Curve)
	require.NotNil(t, c.Mesh)
	assert.False(t, c.Mesh.Mesh.IsEmpty())
	assert.NotNil(t, c.Mesh.Collision, "grass is on by default")
	assert.Greater(t, c.Waypoints.Len(), 10)
	assert.NotEmpty(t, c.Gates)
	assert.Positive(t, c.Length())

	assert.Equal(t, 0, c.Gates[0].WaypointIndex)
	assert.InDelta(t, 8+2*0.35+1, c.Gates[0].Size.X, 1e-12, "gate spans road, curbs and padding")
	assert.InDelta(t, 4, c.Waypoints.Waypoints[0].Position.Distance(c.Waypoints.LeftEdge[0]), 1e-9)
}

func TestBuild_Deterministic(t *testing.T) {
	a, err := Build(DefaultSettings(), nil)
	require.NoError(t, err)
	b, err := Build(DefaultSettings(), nil)
	require.NoError(t, err)

	assert.Equal(t, a.Mesh.Mesh.Vertices, b.Mesh.Mesh.Vertices)
	assert.Equal(t, a.Waypoints.Waypoints, b.Waypoints.Waypoints)
	assert.Equal(t, a.Gates, b.Gates)
}

func TestBuild_SmoothedMethod(t *testing.T) {
	cfg := config.Default()
	cfg.Generator.Method = config.MethodSmoothed

	c, err := Build(SettingsFromConfig(cfg), nil)
	require.NoError(t, err)
	assert.True(t, c.Curve.Closed)
	assert.NotEmpty(t, c.Gates)
}

func TestRebuild_InvalidKeepsPreviousOutput(t *testing.T) {
	c, err := Build(DefaultSettings(), nil)
	require.NoError(t, err)
	waypoints, gates := c.Waypoints, c.Gates

	c.Settings.Curve.KnotCount = 3
	err = c.Rebuild()
	assert.ErrorIs(t, err, track.ErrInvalidParameter)
	assert.Same(t, waypoints, c.Waypoints)
	assert.Equal(t, gates, c.Gates)
	assert.Equal(t, 1, c.Generation)

	c.Settings.Curve.KnotCount = 6
	require.NoError(t, c.Rebuild())
	assert.Equal(t, 2, c.Generation)
	assert.NotSame(t, waypoints, c.Waypoints)
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"method", func(s *Settings) { s.Method = "spiral" }},
		{"smooth", func(s *Settings) {
			s.Method = config.MethodSmoothed
			s.Smooth.Blend = 2
		}},
		{"mesh", func(s *Settings) { s.Mesh.StepMeters = 0 }},
		{"waypoints", func(s *Settings) { s.Waypoints.SpacingMeters = -1 }},
		{"gates", func(s *Settings) { s.Gates.EveryN = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), track.ErrInvalidParameter)
		})
	}
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Road.Width = 12
	cfg.Road.Curb.Enabled = false
	cfg.Checkpoints.Padding = 2
	cfg.Waypoints.MaxSpeed = 33

	s := SettingsFromConfig(cfg)
	assert.Equal(t, 12.0, s.Mesh.RoadWidth)
	assert.Equal(t, 12.0, s.Waypoints.RoadWidth)
	assert.Equal(t, 14.0, s.Gates.Width)
	assert.Equal(t, 33.0, s.Waypoints.Tuning.MaxSpeed)
	assert.Equal(t, cfg.Generator.Seed, s.Smooth.Seed)

	opts := TrackerOptions(cfg.Tracker)
	assert.Equal(t, 2*time.Second, opts.RejectCooldown)
	assert.True(t, opts.FlattenRespawn)
}

func TestRebuild_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	c, err := Build(DefaultSettings(), m)
	require.NoError(t, err)

	stages, err := testutil.GatherAndCount(reg, "circuitgen_stage_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 4, stages, "one series per stage")
	assert.Equal(t, float64(len(c.Gates)), gaugeValue(t, reg, "circuitgen_checkpoint_gates"))
	assert.Equal(t, float64(c.Waypoints.Len()), gaugeValue(t, reg, "circuitgen_waypoints"))
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestSimulate_CompletesLaps(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := Build(DefaultSettings(), metrics.New(reg))
	require.NoError(t, err)

	tr := c.NewTracker(checkpoint.Options{RespawnHeight: 1, FlattenRespawn: true, RejectCooldown: time.Second})
	rep, err := Simulate(context.Background(), c.Waypoints, tr, SimOptions{Agents: 3, Laps: 2, StepMeters: 0.5})
	require.NoError(t, err)

	require.Len(t, rep.Agents, 3)
	for _, a := range rep.Agents {
		assert.Equal(t, 2, a.Laps)
		assert.Zero(t, a.Rejected)
		assert.Equal(t, 2*len(c.Gates)+1, a.Passes, "gate 0 once plus two full rings")
	}
	assert.Equal(t, 6, rep.TotalLaps())
	assert.Equal(t, 3, tr.AgentCount())
}

func TestSimulate_CutCornerForcesRespawn(t *testing.T) {
	c, err := Build(DefaultSettings(), nil)
	require.NoError(t, err)
	require.Greater(t, len(c.Gates), 3)

	var respawns []checkpoint.RespawnEvent
	tr := c.NewTracker(checkpoint.Options{
		RejectCooldown: time.Second,
		OnRespawn:      func(e checkpoint.RespawnEvent) { respawns = append(respawns, e) },
	})
	rep, err := Simulate(context.Background(), c.Waypoints, tr, SimOptions{Agents: 1, Laps: 1, StepMeters: 0.5, CutCorner: true})
	require.NoError(t, err)

	a := rep.Agents[0]
	assert.Equal(t, 1, a.Laps, "the agent recovers and finishes")
	assert.Equal(t, 1, a.Respawns)
	require.Len(t, respawns, 1)
	assert.Equal(t, 1, respawns[0].LastIndex)
	assert.Equal(t, 3, respawns[0].RejectedIndex)
}

func TestSimulate_InvalidInput(t *testing.T) {
	c, err := Build(DefaultSettings(), nil)
	require.NoError(t, err)
	tr := c.NewTracker(checkpoint.Options{})
	ctx := context.Background()

	_, err = Simulate(ctx, c.Waypoints, tr, SimOptions{Agents: 0, Laps: 1, StepMeters: 1})
	assert.ErrorIs(t, err, track.ErrInvalidParameter)

	open := &waypoint.Set{Waypoints: c.Waypoints.Waypoints}
	_, err = Simulate(ctx, open, tr, DefaultSimOptions())
	assert.ErrorIs(t, err, track.ErrInvalidParameter)

	_, err = Simulate(ctx, c.Waypoints, checkpoint.NewTracker(nil, checkpoint.Options{}), DefaultSimOptions())
	assert.ErrorIs(t, err, track.ErrMissingDependency)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Simulate(cancelled, c.Waypoints, tr, DefaultSimOptions())
	assert.ErrorIs(t, err, context.Canceled)
}
