package circuit

import (
	"context"
	"fmt"
	gomath "math"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/circuitgen/internal/logger"
	"github.com/Faultbox/circuitgen/internal/track"
	"github.com/Faultbox/circuitgen/internal/track/checkpoint"
	"github.com/Faultbox/circuitgen/internal/track/waypoint"
	"github.com/Faultbox/circuitgen/pkg/math"
)

// triggerHeight lifts trigger points off the road surface.
const triggerHeight = 1.0

// SimOptions configures a drive-through of the checkpoint ring.
type SimOptions struct {
	Agents     int
	Laps       int
	StepMeters float64 // distance between trigger points
	// CutCorner makes the first agent jump from gate 1 to gate 3 once,
	// which the tracker must reject.
	CutCorner bool
}

// DefaultSimOptions drives two agents for three laps.
func DefaultSimOptions() SimOptions {
	return SimOptions{Agents: 2, Laps: 3, StepMeters: 0.5}
}

// AgentReport summarises one simulated agent.
type AgentReport struct {
	ID       checkpoint.AgentID
	Laps     int
	Passes   int
	Rejected int
	Respawns int
}

// SimReport summarises a simulation run.
type SimReport struct {
	Agents []AgentReport
}

// TotalLaps returns laps completed by all agents.
func (r SimReport) TotalLaps() int {
	n := 0
	for _, a := range r.Agents {
		n += a.Laps
	}
	return n
}

// Simulate drives virtual agents along set, probing tr at every step. Each
// agent runs in its own goroutine against the shared tracker.
func Simulate(ctx context.Context, set *waypoint.Set, tr *checkpoint.Tracker, opts SimOptions) (SimReport, error) {
	switch {
	case opts.Agents < 1 || opts.Laps < 1:
		return SimReport{}, fmt.Errorf("%w: need at least one agent and one lap", track.ErrInvalidParameter)
	case opts.StepMeters <= 0:
		return SimReport{}, fmt.Errorf("%w: trigger step %.3f must be positive", track.ErrInvalidParameter, opts.StepMeters)
	case set.Len() < 2 || tr.GateCount() == 0:
		return SimReport{}, fmt.Errorf("simulate: %w", track.ErrMissingDependency)
	case !set.Closed:
		return SimReport{}, fmt.Errorf("%w: laps need a closed circuit", track.ErrInvalidParameter)
	}

	report := SimReport{Agents: make([]AgentReport, opts.Agents)}
	errs := make([]error, opts.Agents)
	var wg sync.WaitGroup
	for a := range report.Agents {
		wg.Add(1)
		go func(a int) {
			defer wg.Done()
			d := driver{
				set:  set,
				tr:   tr,
				opts: opts,
				cut:  opts.CutCorner && a == 0,
				rep:  AgentReport{ID: checkpoint.NewAgentID()},
			}
			errs[a] = d.run(ctx)
			report.Agents[a] = d.rep
		}(a)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return report, err
		}
	}
	logger.Named("simulate").Info("simulation finished",
		zap.Int("agents", opts.Agents),
		zap.Int("laps", report.TotalLaps()))
	return report, nil
}

type driver struct {
	set  *waypoint.Set
	tr   *checkpoint.Tracker
	opts SimOptions
	cut  bool
	rep  AgentReport
}

func (d *driver) run(ctx context.Context) error {
	gates := d.tr.Gates()
	n := d.set.Len()
	// Every waypoint may be revisited after a respawn, so allow slack.
	budget := (d.opts.Laps + 2) * n * 2

	i := 0
	for visited := 0; d.rep.Laps < d.opts.Laps; visited++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if visited > budget {
			return fmt.Errorf("agent %s stalled after %d waypoints with %d laps", d.rep.ID, visited, d.rep.Laps)
		}

		next, respawnAt := d.drive(i)
		switch {
		case respawnAt >= 0:
			i = respawnAt
		case d.cut && len(gates) > 3 && d.lastPassed() == 1:
			d.cut = false
			i = gates[3].WaypointIndex
		default:
			i = next
		}
	}
	return nil
}

// drive samples the segment from waypoint i to the next one. It returns the
// next waypoint, or the waypoint to restart from after a forced respawn.
func (d *driver) drive(i int) (next, respawnAt int) {
	next = d.set.Next(i)
	a := d.set.Waypoints[i].Position
	b := d.set.Waypoints[next].Position
	steps := max(1, int(gomath.Ceil(a.Distance(b)/d.opts.StepMeters)))

	lift := math.Up.Scale(triggerHeight)
	for s := 0; s < steps; s++ {
		p := a.Lerp(b, float64(s)/float64(steps)).Add(lift)
		res := d.tr.HandleTrigger(d.rep.ID, p)
		switch res.Outcome {
		case checkpoint.OutcomeAdvanced:
			d.rep.Passes++
			if res.Lap {
				d.rep.Laps++
				if d.rep.Laps >= d.opts.Laps {
					return next, -1
				}
			}
		case checkpoint.OutcomeRejected:
			d.rep.Rejected++
		case checkpoint.OutcomeRespawned:
			d.rep.Rejected++
			d.rep.Respawns++
			return next, d.tr.Gates()[max(0, res.Prev)].WaypointIndex
		}
	}
	return next, -1
}

func (d *driver) lastPassed() int {
	p, ok := d.tr.Progress(d.rep.ID)
	if !ok {
		return -1
	}
	return p.LastPassed
}
