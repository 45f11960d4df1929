// trackgen generates procedural racing circuits and exports their mesh,
// navigation path and checkpoint ring.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Faultbox/circuitgen/internal/circuit"
	"github.com/Faultbox/circuitgen/internal/config"
	"github.com/Faultbox/circuitgen/internal/export"
	"github.com/Faultbox/circuitgen/internal/logger"
	"github.com/Faultbox/circuitgen/internal/metrics"
	"github.com/Faultbox/circuitgen/internal/track/waypoint"
)

var (
	flagCollision = flag.String("collision", "", "generate: also write the grass collision mesh to this path")
	flagAgents    = flag.Int("agents", 2, "simulate: number of agents")
	flagLaps      = flag.Int("laps", 3, "simulate: laps per agent")
	flagCut       = flag.Bool("cut", false, "simulate: first agent cuts from gate 1 to gate 3 once")
	flagSaveCfg   = flag.String("save-config", "", "write the effective config to this path")
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	if command == "help" || command == "-h" || command == "--help" {
		printUsage()
		return
	}

	var run func(*config.Config) error
	switch command {
	case "generate", "gen":
		run = cmdGenerate
	case "waypoints", "wp":
		run = cmdWaypoints
	case "simulate", "sim":
		run = cmdSimulate
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err := config.ParseFlags(os.Args[2:]); err != nil {
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Sugar.Debugf("Config: %+v", cfg)

	if *flagSaveCfg != "" {
		if err := cfg.SaveTo(*flagSaveCfg); err != nil {
			logger.Error("failed to save config", zap.Error(err))
			os.Exit(1)
		}
	}

	if err := run(cfg); err != nil {
		logger.Error(command+" failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`trackgen - procedural racing circuit generator

Usage:
  trackgen <command> [options] [output]

Commands:
  generate <out.obj[.zst]>     Build the circuit and export the road mesh
  waypoints <out.yaml[.zst]>   Export waypoints, speed hints and gates
  simulate                     Drive virtual agents through the checkpoints

Options:
  -config <file>     Config file (default ./circuit.yaml or user config dir)
  -seed <n>          Generator seed
  -method <name>     bezier or smoothed
  -knots <n>         Centerline knot count
  -radius <m>        Circuit radius
  -spacing <m>       Waypoint spacing
  -no-curbs          Disable curbs
  -no-grass          Disable grass verges
  -collision <file>  generate: also export the grass collision mesh
  -agents <n>        simulate: number of agents
  -laps <n>          simulate: laps per agent
  -cut               simulate: make one agent skip a gate
  -metrics <addr>    Serve Prometheus metrics while running
  -save-config <f>   Write the effective config
  -debug             Debug logging
  -log <file>        Also write JSON logs to a rotating file

Files ending in .zst are zstd-compressed.

Examples:
  trackgen generate -seed 42 track.obj
  trackgen waypoints -spacing 5 path.yaml.zst
  trackgen simulate -agents 8 -laps 5 -cut`)
}

// outputPath returns the single positional argument.
func outputPath(usage string) (string, error) {
	args := config.Args()
	if len(args) != 1 {
		return "", fmt.Errorf("usage: trackgen %s", usage)
	}
	return args[0], nil
}

// build generates the circuit, registering metrics when enabled.
func build(cfg *config.Config) (*circuit.Circuit, func(), error) {
	var (
		m    *metrics.Collector
		stop = func() {}
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		m = metrics.New(reg)
		srv := metrics.Serve(cfg.Metrics.Listen, reg)
		stop = func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}
	}

	c, err := circuit.Build(circuit.SettingsFromConfig(cfg), m)
	if err != nil {
		stop()
		return nil, nil, err
	}
	return c, stop, nil
}

func cmdGenerate(cfg *config.Config) error {
	out, err := outputPath("generate [options] <out.obj[.zst]>")
	if err != nil {
		return err
	}
	c, stop, err := build(cfg)
	if err != nil {
		return err
	}
	defer stop()

	name := fmt.Sprintf("circuit_%d", cfg.Generator.Seed)
	if err := export.WriteOBJFile(out, c.Mesh.Mesh, name); err != nil {
		return fmt.Errorf("writing mesh: %w", err)
	}
	logger.Info("mesh written",
		zap.String("path", out),
		zap.Int("vertices", len(c.Mesh.Mesh.Vertices)),
		zap.Int("triangles", c.Mesh.Mesh.TriangleCount()))

	if *flagCollision != "" {
		if c.Mesh.Collision == nil {
			return errors.New("collision mesh requested but grass is disabled")
		}
		if err := export.WriteOBJFile(*flagCollision, c.Mesh.Collision, name+"_collision"); err != nil {
			return fmt.Errorf("writing collision mesh: %w", err)
		}
		logger.Info("collision mesh written", zap.String("path", *flagCollision))
	}

	fmt.Printf("Circuit: seed %d, %.1f m, %d triangles -> %s\n",
		cfg.Generator.Seed, c.Length(), c.Mesh.Mesh.TriangleCount(), out)
	return nil
}

func cmdWaypoints(cfg *config.Config) error {
	out, err := outputPath("waypoints [options] <out.yaml[.zst]>")
	if err != nil {
		return err
	}
	c, stop, err := build(cfg)
	if err != nil {
		return err
	}
	defer stop()

	if err := export.WritePathFile(out, c.Waypoints, c.Gates); err != nil {
		return fmt.Errorf("writing waypoints: %w", err)
	}

	zones := c.Waypoints.ZoneCounts()
	fmt.Printf("Waypoints: %d (brake %d, accelerate %d, cruise %d), gates: %d -> %s\n",
		c.Waypoints.Len(), zones[waypoint.ZoneBrake], zones[waypoint.ZoneAccelerate], zones[waypoint.ZoneCruise], len(c.Gates), out)
	return nil
}

func cmdSimulate(cfg *config.Config) error {
	if args := config.Args(); len(args) != 0 {
		return fmt.Errorf("simulate takes no positional arguments, got %s", strings.Join(args, " "))
	}
	c, stop, err := build(cfg)
	if err != nil {
		return err
	}
	defer stop()

	tr := c.NewTracker(circuit.TrackerOptions(cfg.Tracker))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sim := circuit.DefaultSimOptions()
	sim.Agents = *flagAgents
	sim.Laps = *flagLaps
	sim.CutCorner = *flagCut

	rep, err := circuit.Simulate(ctx, c.Waypoints, tr, sim)
	if err != nil {
		return err
	}

	fmt.Printf("Simulated %d agents over %d gates:\n", len(rep.Agents), len(c.Gates))
	for _, a := range rep.Agents {
		fmt.Printf("  %s  laps %d  passes %d  rejected %d  respawns %d\n",
			a.ID, a.Laps, a.Passes, a.Rejected, a.Respawns)
	}
	return nil
}
