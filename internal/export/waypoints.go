package export

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/circuitgen/internal/track/checkpoint"
	"github.com/Faultbox/circuitgen/internal/track/waypoint"
)

// PathDocument is the YAML layout of an exported navigation path.
type PathDocument struct {
	Closed    bool            `yaml:"closed"`
	Length    float64         `yaml:"length"`
	Waypoints []WaypointEntry `yaml:"waypoints"`
	Gates     []GateEntry     `yaml:"gates,omitempty"`
}

// WaypointEntry is one exported waypoint.
type WaypointEntry struct {
	Index     int        `yaml:"index"`
	Position  [3]float64 `yaml:"position,flow"`
	Left      [3]float64 `yaml:"left,flow"`
	Right     [3]float64 `yaml:"right,flow"`
	Speed     float64    `yaml:"speed"`
	Zone      string     `yaml:"zone"`
	TurnAngle float64    `yaml:"turn_angle"`
	Curvature float64    `yaml:"curvature"`
	Radius    *float64   `yaml:"radius,omitempty"` // absent on straights
	Slope     float64    `yaml:"slope"`
}

// GateEntry is one exported checkpoint gate.
type GateEntry struct {
	Index    int        `yaml:"index"`
	Waypoint int        `yaml:"waypoint"`
	Position [3]float64 `yaml:"position,flow"`
	Yaw      float64    `yaml:"yaw"`
	Size     [3]float64 `yaml:"size,flow"`
}

// NewPathDocument converts a waypoint set and its gates for export.
func NewPathDocument(set *waypoint.Set, gates []checkpoint.Gate) PathDocument {
	if set == nil {
		set = &waypoint.Set{}
	}
	doc := PathDocument{
		Closed:    set.Closed,
		Length:    set.Length,
		Waypoints: make([]WaypointEntry, 0, set.Len()),
	}
	for i, w := range set.Waypoints {
		e := WaypointEntry{
			Index:     w.Index,
			Position:  [3]float64{w.Position.X, w.Position.Y, w.Position.Z},
			Speed:     w.RecommendedSpeed,
			Zone:      w.Zone.String(),
			TurnAngle: w.TurnAngle,
			Curvature: w.Curvature,
			Slope:     w.SlopeDeg,
		}
		if i < len(set.LeftEdge) {
			l, r := set.LeftEdge[i], set.RightEdge[i]
			e.Left = [3]float64{l.X, l.Y, l.Z}
			e.Right = [3]float64{r.X, r.Y, r.Z}
		}
		if !w.IsStraight() {
			radius := w.Radius
			e.Radius = &radius
		}
		doc.Waypoints = append(doc.Waypoints, e)
	}
	for _, g := range gates {
		doc.Gates = append(doc.Gates, GateEntry{
			Index:    g.Index,
			Waypoint: g.WaypointIndex,
			Position: [3]float64{g.Position.X, g.Position.Y, g.Position.Z},
			Yaw:      g.Rotation.YawDegrees(),
			Size:     [3]float64{g.Size.X, g.Size.Y, g.Size.Z},
		})
	}
	return doc
}

// WritePathYAML writes the waypoint set and gates as YAML.
func WritePathYAML(w io.Writer, set *waypoint.Set, gates []checkpoint.Gate) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewPathDocument(set, gates)); err != nil {
		return err
	}
	return enc.Close()
}

// WritePathFile writes the path to disk, compressed when path ends in .zst.
func WritePathFile(path string, set *waypoint.Set, gates []checkpoint.Gate) error {
	return writeFile(path, func(w io.Writer) error {
		return WritePathYAML(w, set, gates)
	})
}
