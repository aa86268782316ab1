// Package scenario loads the YAML scene description the server boots
// from and populates the scene and component registries with it. A
// scenario is read once at startup; the loaded structures never change
// afterwards except through the supervision services.
package scenario

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/simverse/simverse/internal/core/math3d"
	"github.com/simverse/simverse/internal/core/scene"
	"github.com/simverse/simverse/internal/core/sim"
)

// File is the top-level scenario document.
type File struct {
	Name    string       `yaml:"name"`
	Objects []ObjectSpec `yaml:"objects"`
	Robots  []RobotSpec  `yaml:"robots"`
}

// ObjectSpec describes one passive scene object.
type ObjectSpec struct {
	Name        string      `yaml:"name"`
	Type        string      `yaml:"type"`
	Parent      string      `yaml:"parent"`
	Position    *[3]float64 `yaml:"position"`
	Orientation *[4]float64 `yaml:"orientation"` // [w, x, y, z]
	HalfExtents *[3]float64 `yaml:"half_extents"`
	Hidden      bool        `yaml:"hidden"`
}

// RobotSpec describes a robot: a scene object owning a fixed set of
// component objects parented under it.
type RobotSpec struct {
	Name       string          `yaml:"name"`
	Type       string          `yaml:"type"`
	Position   *[3]float64     `yaml:"position"`
	Components []ComponentSpec `yaml:"components"`
}

// ComponentSpec describes one sensor or actuator mounted on a robot.
type ComponentSpec struct {
	Name     string      `yaml:"name"`
	Type     string      `yaml:"type"`
	Position *[3]float64 `yaml:"position"`
	Stream   *StreamSpec `yaml:"stream"`
}

// StreamSpec attaches a datastream descriptor to a component.
type StreamSpec struct {
	Handle     string   `yaml:"handle"`
	Interfaces []string `yaml:"interfaces"`
}

// Load parses a scenario document.
func Load(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return &f, nil
}

// LoadFile parses the scenario at path.
func LoadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening scenario: %w", err)
	}
	defer fh.Close()
	return Load(fh)
}

// Apply populates the scene and the component registry from the
// scenario. Parents must be declared before the objects referencing
// them.
func (f *File) Apply(sc *scene.MemoryScene, registry *sim.Registry) error {
	added := make(map[string]*scene.MemoryObject)

	place := func(spec ObjectSpec) (*scene.MemoryObject, error) {
		if spec.Name == "" {
			return nil, fmt.Errorf("scenario %q: object with empty name", f.Name)
		}
		obj := scene.NewObject(spec.Name)
		obj.SetTag(spec.Type)
		if spec.Position != nil {
			obj.SetWorldPosition(vec(*spec.Position))
		}
		if spec.Orientation != nil {
			q := *spec.Orientation
			obj.SetWorldOrientation(math3d.Quaternion{W: q[0], X: q[1], Y: q[2], Z: q[3]})
		}
		if spec.HalfExtents != nil {
			obj.SetBounds(scene.BoxCorners(vec(*spec.HalfExtents)))
		}
		if spec.Hidden {
			obj.SetVisible(false, false)
		}
		if spec.Parent != "" {
			parent, ok := added[spec.Parent]
			if !ok {
				return nil, fmt.Errorf("object %q: unknown parent %q", spec.Name, spec.Parent)
			}
			obj.SetParent(parent)
		}
		if err := sc.Add(obj); err != nil {
			return nil, err
		}
		added[spec.Name] = obj
		return obj, nil
	}

	for _, spec := range f.Objects {
		if _, err := place(spec); err != nil {
			return err
		}
	}

	for _, rs := range f.Robots {
		if _, err := place(ObjectSpec{Name: rs.Name, Type: rs.Type, Position: rs.Position}); err != nil {
			return err
		}

		components := make([]*sim.Component, 0, len(rs.Components))
		for _, cs := range rs.Components {
			if _, err := place(ObjectSpec{
				Name:     cs.Name,
				Type:     cs.Type,
				Parent:   rs.Name,
				Position: cs.Position,
			}); err != nil {
				return err
			}
			components = append(components, sim.NewComponent(cs.Name, cs.Type))
		}

		if err := registry.AddRobot(sim.NewRobot(rs.Name, rs.Type, components...)); err != nil {
			return err
		}
		for _, cs := range rs.Components {
			if cs.Stream == nil {
				continue
			}
			err := registry.AttachStream(cs.Name, sim.Stream{
				Handle:     cs.Stream.Handle,
				Interfaces: cs.Stream.Interfaces,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func vec(v [3]float64) math3d.Vector3 {
	return math3d.Vector3{X: v[0], Y: v[1], Z: v[2]}
}
