package checkpoint

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/circuitgen/internal/logger"
	"github.com/Faultbox/circuitgen/pkg/math"
)

// AgentID is a stable identity issued by the host when a car spawns.
type AgentID string

// NewAgentID returns a random agent identity.
func NewAgentID() AgentID {
	return AgentID(uuid.NewString())
}

// Pose is a respawn placement.
type Pose struct {
	Position math.Vec3
	Rotation math.Quat
}

// PassEvent is raised when an agent advances to the next gate.
type PassEvent struct {
	Agent     AgentID
	NewIndex  int
	PrevIndex int // -1 on the agent's first gate
	GateCount int
}

// CompletesLap reports whether the pass crossed the finish line.
func (e PassEvent) CompletesLap() bool {
	return e.GateCount > 1 && e.NewIndex == 0 && e.PrevIndex == e.GateCount-1
}

// RespawnEvent is raised when an illegal pass forces the agent back to its
// last checkpoint.
type RespawnEvent struct {
	Agent         AgentID
	Pose          Pose
	LastIndex     int
	RejectedIndex int
}

// Outcome classifies a gate entry.
type Outcome int

const (
	// OutcomeIgnored means the entry referenced no gate.
	OutcomeIgnored Outcome = iota
	// OutcomeAdvanced means the agent moved on to the expected gate.
	OutcomeAdvanced
	// OutcomeRepeated means the agent re-entered its current gate.
	OutcomeRepeated
	// OutcomeRejected means the pass was illegal and still in cooldown.
	OutcomeRejected
	// OutcomeRespawned means the pass was illegal and a respawn was forced.
	OutcomeRespawned
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeAdvanced:
		return "advanced"
	case OutcomeRepeated:
		return "repeated"
	case OutcomeRejected:
		return "rejected"
	case OutcomeRespawned:
		return "respawned"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Accepted reports whether the entry left the agent in a legal state.
func (o Outcome) Accepted() bool {
	return o == OutcomeAdvanced || o == OutcomeRepeated
}

// Result describes what Enter did.
type Result struct {
	Outcome Outcome
	Gate    int
	Prev    int
	Lap     bool
}

// Recorder receives tracker counters.
type Recorder interface {
	GatePassed()
	GateRejected()
	ForcedRespawn()
	LapCompleted()
}

// Options configures a Tracker. Zero values are usable.
type Options struct {
	// RespawnHeight lifts respawn poses above the gate base.
	RespawnHeight float64
	// FlattenRespawn keeps only the yaw of the gate rotation.
	FlattenRespawn bool
	// RejectCooldown is the minimum time between forced respawns.
	RejectCooldown time.Duration

	Clock     func() time.Time
	OnPassed  func(PassEvent)
	OnRespawn func(RespawnEvent)
	Metrics   Recorder
}

// Progress is a snapshot of one agent's state.
type Progress struct {
	LastPassed int // -1 before the first gate
	Laps       int
	Respawn    Pose
}

type agentState struct {
	lastPassed   int
	respawn      Pose
	lastRejected time.Time
	laps         int
}

// Tracker enforces forward-only progress through a gate ring. It is safe
// for concurrent use; callbacks run after the internal lock is released.
type Tracker struct {
	opts  Options
	gates []Gate
	log   *zap.Logger

	mu     sync.Mutex
	agents map[AgentID]*agentState
}

// NewTracker returns a tracker over a copy of gates.
func NewTracker(gates []Gate, opts Options) *Tracker {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	g := make([]Gate, len(gates))
	copy(g, gates)
	return &Tracker{
		opts:   opts,
		gates:  g,
		log:    logger.Named("tracker"),
		agents: make(map[AgentID]*agentState),
	}
}

// GateCount returns the number of gates in the ring.
func (t *Tracker) GateCount() int {
	return len(t.gates)
}

// Gates returns the gate list. Callers must not modify it.
func (t *Tracker) Gates() []Gate {
	return t.gates
}

// Enter applies agent entering gate k.
func (t *Tracker) Enter(agent AgentID, k int) Result {
	n := len(t.gates)
	if k < 0 || k >= n {
		t.log.Warn("gate entry out of range", zap.String("agent", string(agent)), zap.Int("gate", k), zap.Int("gates", n))
		return Result{Outcome: OutcomeIgnored, Gate: k, Prev: -1}
	}

	t.mu.Lock()
	res, pass, respawn := t.enterLocked(agent, k)
	t.mu.Unlock()

	t.dispatch(res, pass, respawn)
	return res
}

// enterLocked applies the gate protocol for a valid k. t.mu must be held.
func (t *Tracker) enterLocked(agent AgentID, k int) (Result, *PassEvent, *RespawnEvent) {
	n := len(t.gates)
	st := t.stateLocked(agent)
	prev := st.lastPassed
	res := Result{Gate: k, Prev: prev}

	var (
		pass    *PassEvent
		respawn *RespawnEvent
	)
	switch {
	case k == prev:
		res.Outcome = OutcomeRepeated
	case k == (prev+1)%n:
		st.lastPassed = k
		st.respawn = t.poseFor(k)
		res.Outcome = OutcomeAdvanced
		pass = &PassEvent{Agent: agent, NewIndex: k, PrevIndex: prev, GateCount: n}
		if pass.CompletesLap() {
			st.laps++
			res.Lap = true
		}
	default:
		now := t.opts.Clock()
		if st.lastRejected.IsZero() || now.Sub(st.lastRejected) >= t.opts.RejectCooldown {
			st.lastRejected = now
			res.Outcome = OutcomeRespawned
			respawn = &RespawnEvent{Agent: agent, Pose: st.respawn, LastIndex: prev, RejectedIndex: k}
		} else {
			res.Outcome = OutcomeRejected
		}
	}
	return res, pass, respawn
}

func (t *Tracker) dispatch(res Result, pass *PassEvent, respawn *RespawnEvent) {
	m := t.opts.Metrics
	switch res.Outcome {
	case OutcomeAdvanced:
		if m != nil {
			m.GatePassed()
			if res.Lap {
				m.LapCompleted()
			}
		}
		t.log.Debug("gate passed",
			zap.String("agent", string(pass.Agent)),
			zap.Int("gate", pass.NewIndex),
			zap.Int("prev", pass.PrevIndex),
			zap.Bool("lap", res.Lap))
		if t.opts.OnPassed != nil {
			t.opts.OnPassed(*pass)
		}
	case OutcomeRejected:
		if m != nil {
			m.GateRejected()
		}
	case OutcomeRespawned:
		if m != nil {
			m.GateRejected()
			m.ForcedRespawn()
		}
		t.log.Info("illegal gate pass, respawning",
			zap.String("agent", string(respawn.Agent)),
			zap.Int("gate", respawn.RejectedIndex),
			zap.Int("last", respawn.LastIndex))
		if t.opts.OnRespawn != nil {
			t.opts.OnRespawn(*respawn)
		}
	}
}

// HandleTrigger resolves which gate contains position and enters it. When
// several gates overlap, the expected gate wins over the current one. The
// choice and the entry happen under one lock, so concurrent triggers for
// the same agent never pick a gate from stale progress.
func (t *Tracker) HandleTrigger(agent AgentID, position math.Vec3) Result {
	var hits []int
	for _, g := range t.gates {
		if g.Contains(position) {
			hits = append(hits, g.Index)
		}
	}

	t.mu.Lock()
	prev := -1
	if st, ok := t.agents[agent]; ok {
		prev = st.lastPassed
	}
	if len(hits) == 0 {
		t.mu.Unlock()
		return Result{Outcome: OutcomeIgnored, Gate: -1, Prev: prev}
	}

	expected := (prev + 1) % len(t.gates)
	hit := hits[0]
	for _, k := range hits {
		if k == expected {
			hit = k
			break
		}
		if k == prev {
			hit = k
		}
	}
	res, pass, respawn := t.enterLocked(agent, hit)
	t.mu.Unlock()

	t.dispatch(res, pass, respawn)
	return res
}

// LastPose returns where agent should respawn: its last passed gate, or
// gate 0 if it has none. ok is false only when there are no gates.
func (t *Tracker) LastPose(agent AgentID) (pose Pose, ok bool) {
	if len(t.gates) == 0 {
		return Pose{}, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, found := t.agents[agent]; found {
		return st.respawn, true
	}
	return t.poseFor(0), true
}

// Progress returns a snapshot of agent's state.
func (t *Tracker) Progress(agent AgentID) (Progress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.agents[agent]
	if !ok {
		return Progress{}, false
	}
	return Progress{LastPassed: st.lastPassed, Laps: st.laps, Respawn: st.respawn}, true
}

// Remove forgets agent, typically on despawn.
func (t *Tracker) Remove(agent AgentID) {
	t.mu.Lock()
	delete(t.agents, agent)
	t.mu.Unlock()
}

// Reset forgets every agent.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.agents = make(map[AgentID]*agentState)
	t.mu.Unlock()
}

// AgentCount returns the number of tracked agents.
func (t *Tracker) AgentCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.agents)
}

func (t *Tracker) stateLocked(agent AgentID) *agentState {
	st, ok := t.agents[agent]
	if !ok {
		st = &agentState{lastPassed: -1, respawn: t.poseFor(0)}
		t.agents[agent] = st
	}
	return st
}

func (t *Tracker) poseFor(k int) Pose {
	g := t.gates[k]
	rot := g.Rotation
	if t.opts.FlattenRespawn {
		rot = rot.Level()
	}
	return Pose{
		Position: g.Position.Add(math.Up.Scale(t.opts.RespawnHeight)),
		Rotation: rot,
	}
}
