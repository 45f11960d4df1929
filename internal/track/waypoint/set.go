package waypoint

import (
	gomath "math"

	"github.com/Faultbox/circuitgen/pkg/math"
)

// Set is the ordered navigation path. Index is the navigation key.
type Set struct {
	Waypoints []Waypoint
	LeftEdge  []math.Vec3
	RightEdge []math.Vec3
	Closed    bool
	Length    float64 // centerline arc length
}

// Len returns the number of waypoints.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Waypoints)
}

// Next returns the index after i, wrapping on closed sets and clamping to
// the last waypoint on open ones.
func (s *Set) Next(i int) int {
	return s.step(i, 1)
}

// Prev returns the index before i, wrapping on closed sets and clamping to
// the first waypoint on open ones.
func (s *Set) Prev(i int) int {
	return s.step(i, -1)
}

func (s *Set) step(i, d int) int {
	n := s.Len()
	if n == 0 {
		return -1
	}
	return neighbour(i, d, n, s.Closed)
}

// neighbour offsets i by d, wrapping or clamping to [0, n).
func neighbour(i, d, n int, closed bool) int {
	j := i + d
	if closed {
		return ((j % n) + n) % n
	}
	return max(0, min(n-1, j))
}

// Nearest returns the index of the waypoint closest to p, or -1 when the
// set is empty.
func (s *Set) Nearest(p math.Vec3) int {
	best, bestDist := -1, gomath.Inf(1)
	for i := range s.waypoints() {
		d := s.Waypoints[i].Position.Sub(p).LengthSq()
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func (s *Set) waypoints() []Waypoint {
	if s == nil {
		return nil
	}
	return s.Waypoints
}

// LinePoint is one vertex of the racing-line polyline.
type LinePoint struct {
	Position math.Vec3
	Speed    float64
	Zone     Zone
}

// RacingLine returns the path as a speed-annotated polyline. Closed sets
// repeat the first point at the end.
func (s *Set) RacingLine() []LinePoint {
	wps := s.waypoints()
	if len(wps) == 0 {
		return nil
	}
	line := make([]LinePoint, 0, len(wps)+1)
	for _, w := range wps {
		line = append(line, LinePoint{Position: w.Position, Speed: w.RecommendedSpeed, Zone: w.Zone})
	}
	if s.Closed {
		line = append(line, line[0])
	}
	return line
}

// ZoneCounts returns how many waypoints fall in each zone.
func (s *Set) ZoneCounts() map[Zone]int {
	counts := make(map[Zone]int, 3)
	for _, w := range s.waypoints() {
		counts[w.Zone]++
	}
	return counts
}
