package waypoint

import gomath "math"

// ClassifyZones tags each speed with a throttle zone. For every index i in
// increasing order it scans up to LookAheadCount entries ahead for the
// slowest one, j. If that speed is more than BrakeDeltaThreshold below
// speeds[i], [i, i+BrakeLeadCount] become Brake and [j, j+AccelTailCount]
// become Accelerate. Brake always wins over Accelerate; everything else is
// Cruise. Indices wrap when closed and stop at the last entry otherwise.
func ClassifyZones(speeds []float64, closed bool, t Tuning) []Zone {
	n := len(speeds)
	zones := make([]Zone, n)
	if n == 0 {
		return zones
	}

	brake := make([]bool, n)
	accel := make([]bool, n)
	mark := func(flags []bool, from, count int) {
		// A closed ring has only n distinct slots.
		count = min(count, n-1)
		for k := 0; k <= count; k++ {
			idx := from + k
			if closed {
				idx %= n
			} else if idx >= n {
				return
			}
			flags[idx] = true
		}
	}

	for i := 0; i < n; i++ {
		minAhead, j := gomath.Inf(1), -1
		for k := 1; k <= t.LookAheadCount; k++ {
			idx := i + k
			if closed {
				idx %= n
			} else if idx >= n {
				break
			}
			if speeds[idx] < minAhead {
				minAhead, j = speeds[idx], idx
			}
		}
		if j < 0 || minAhead >= speeds[i]-t.BrakeDeltaThreshold {
			continue
		}
		mark(brake, i, t.BrakeLeadCount)
		mark(accel, j, t.AccelTailCount)
	}

	for i := range zones {
		switch {
		case brake[i]:
			zones[i] = ZoneBrake
		case accel[i]:
			zones[i] = ZoneAccelerate
		default:
			zones[i] = ZoneCruise
		}
	}
	return zones
}
