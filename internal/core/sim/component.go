// Package sim holds the simulation-side registries (robots, components,
// datastreams) and the single-threaded update loop every service
// invocation is executed on.
package sim

import (
	"errors"
	"fmt"
)

var (
	ErrComponentNotFound = errors.New("component not found")
	ErrRobotNotFound     = errors.New("robot not found")
)

// Component is a named simulatable entity. The active flag gates
// whether its per-tick behavior runs; flipping it has no other effect.
type Component struct {
	name   string
	typ    string
	active bool
}

// NewComponent creates an active component. typ is the free-form type
// tag reported by details().
func NewComponent(name, typ string) *Component {
	return &Component{name: name, typ: typ, active: true}
}

func (c *Component) Name() string      { return c.name }
func (c *Component) Type() string      { return c.typ }
func (c *Component) Active() bool      { return c.active }
func (c *Component) SetActive(on bool) { c.active = on }

// Robot is a component owning a fixed, ordered set of child components.
// The set does not change after scenario load.
type Robot struct {
	*Component
	components []*Component
}

func NewRobot(name, typ string, components ...*Component) *Robot {
	return &Robot{
		Component:  NewComponent(name, typ),
		components: components,
	}
}

func (r *Robot) Components() []*Component {
	return r.components
}

// Stream describes the data stream attached to a component: an opaque
// handle plus the middleware interfaces serving it.
type Stream struct {
	Handle     string
	Interfaces []string
}

// Registry indexes every robot and component of the running simulation
// by name. It is populated at scenario load and mutated afterwards only
// through the active flags.
type Registry struct {
	robots     map[string]*Robot
	robotOrder []string
	components map[string]*Component
	streams    map[string]Stream
}

func NewRegistry() *Registry {
	return &Registry{
		robots:     make(map[string]*Robot),
		components: make(map[string]*Component),
		streams:    make(map[string]Stream),
	}
}

// AddRobot registers a robot and indexes it, together with all its
// child components, in the component table.
func (r *Registry) AddRobot(robot *Robot) error {
	if _, exists := r.robots[robot.Name()]; exists {
		return fmt.Errorf("duplicate robot name %q", robot.Name())
	}
	if err := r.AddComponent(robot.Component); err != nil {
		return err
	}
	for _, c := range robot.Components() {
		if err := r.AddComponent(c); err != nil {
			return err
		}
	}
	r.robots[robot.Name()] = robot
	r.robotOrder = append(r.robotOrder, robot.Name())
	return nil
}

// AddComponent registers a free-standing component.
func (r *Registry) AddComponent(c *Component) error {
	if _, exists := r.components[c.Name()]; exists {
		return fmt.Errorf("duplicate component name %q", c.Name())
	}
	r.components[c.Name()] = c
	return nil
}

// AttachStream associates a datastream with an existing component.
func (r *Registry) AttachStream(componentName string, s Stream) error {
	if _, ok := r.components[componentName]; !ok {
		return fmt.Errorf("%w: %q", ErrComponentNotFound, componentName)
	}
	r.streams[componentName] = s
	return nil
}

// Robots returns every robot in load order.
func (r *Registry) Robots() []*Robot {
	out := make([]*Robot, 0, len(r.robotOrder))
	for _, name := range r.robotOrder {
		out = append(out, r.robots[name])
	}
	return out
}

func (r *Registry) Robot(name string) (*Robot, bool) {
	robot, ok := r.robots[name]
	return robot, ok
}

func (r *Registry) Component(name string) (*Component, bool) {
	c, ok := r.components[name]
	return c, ok
}

func (r *Registry) Stream(componentName string) (Stream, bool) {
	s, ok := r.streams[componentName]
	return s, ok
}

// Activate enables the named component's per-tick behavior.
func (r *Registry) Activate(name string) error {
	return r.setActive(name, true)
}

// Deactivate stops the named component's per-tick behavior. There is no
// guard against deactivating a component others depend on.
func (r *Registry) Deactivate(name string) error {
	return r.setActive(name, false)
}

func (r *Registry) setActive(name string, on bool) error {
	c, ok := r.components[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrComponentNotFound, name)
	}
	c.SetActive(on)
	return nil
}
