package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/circuitgen/internal/track/checkpoint"
)

var _ checkpoint.Recorder = (*Collector)(nil)

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.GatePassed()
	c.GatePassed()
	c.GateRejected()
	c.ForcedRespawn()
	c.LapCompleted()
	c.SetBuildSizes(1200, 40, 7)
	c.ObserveStage("mesh", 3*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.passes))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rejections))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.respawns))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.laps))
	assert.Equal(t, 1200.0, testutil.ToFloat64(c.meshTriangles))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.gates))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["circuitgen_stage_duration_seconds"])
	assert.True(t, names["circuitgen_laps_total"])
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.GatePassed()
		c.GateRejected()
		c.ForcedRespawn()
		c.LapCompleted()
		c.SetBuildSizes(1, 2, 3)
		c.ObserveStage("curve", time.Second)
	})
}

func TestDoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
