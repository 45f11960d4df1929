package config

import (
	"flag"
	"strconv"
)

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile  = flag.String("log", "", "Write JSON logs to this file")
	flagMethod   = flag.String("method", "", "Centerline generator: bezier or smoothed")
	flagKnots    = flag.Int("knots", 0, "Number of centerline knots")
	flagRadius   = flag.Float64("radius", 0, "Circuit radius in meters")
	flagSpacing  = flag.Float64("spacing", 0, "Waypoint spacing in meters")
	flagNoCurbs  = flag.Bool("no-curbs", false, "Disable curbs")
	flagNoGrass  = flag.Bool("no-grass", false, "Disable grass verges")
	flagMetrics  = flag.String("metrics", "", "Serve Prometheus metrics on this address")
	seedOverride *int64
)

func init() {
	flag.Func("seed", "Generator seed", func(s string) error {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		seedOverride = &v
		return nil
	})
}

// ParseFlags parses command-line flags. Pass the arguments that follow the
// subcommand.
func ParseFlags(args []string) error {
	return flag.CommandLine.Parse(args)
}

// Args returns the positional arguments left after ParseFlags.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if seedOverride != nil {
		cfg.Generator.Seed = *seedOverride
	}
	if *flagMethod != "" {
		cfg.Generator.Method = *flagMethod
	}
	if *flagKnots > 0 {
		cfg.Generator.KnotCount = *flagKnots
		cfg.Generator.Smooth.PointCount = *flagKnots
	}
	if *flagRadius > 0 {
		cfg.Generator.Radius = *flagRadius
	}
	if *flagSpacing > 0 {
		cfg.Waypoints.SpacingMeters = *flagSpacing
	}
	if *flagNoCurbs {
		cfg.Road.Curb.Enabled = false
	}
	if *flagNoGrass {
		cfg.Road.Grass.Enabled = false
	}
	if *flagMetrics != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Listen = *flagMetrics
	}
}
