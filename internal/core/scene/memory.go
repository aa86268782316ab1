package scene

import (
	"fmt"

	"github.com/simverse/simverse/internal/core/math3d"
)

var (
	_ Scene  = (*MemoryScene)(nil)
	_ Object = (*MemoryObject)(nil)
)

// MemoryScene is the in-memory scene provider backing the headless
// server. Objects are added during scenario load and live until the
// simulation tears down.
type MemoryScene struct {
	objects map[string]*MemoryObject
	order   []string
}

func NewMemoryScene() *MemoryScene {
	return &MemoryScene{objects: make(map[string]*MemoryObject)}
}

// Add inserts an object into the scene and records its spawn pose for
// Reset. Names are unique within a scene.
func (s *MemoryScene) Add(obj *MemoryObject) error {
	if _, exists := s.objects[obj.name]; exists {
		return fmt.Errorf("duplicate object name %q", obj.name)
	}
	obj.spawnPosition = obj.position
	obj.spawnOrientation = obj.orientation
	s.objects[obj.name] = obj
	s.order = append(s.order, obj.name)
	return nil
}

func (s *MemoryScene) Objects() []Object {
	out := make([]Object, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.objects[name])
	}
	return out
}

func (s *MemoryScene) Object(name string) (Object, bool) {
	obj, ok := s.objects[name]
	if !ok {
		return nil, false
	}
	return obj, true
}

func (s *MemoryScene) Reset() {
	for _, name := range s.order {
		obj := s.objects[name]
		obj.position = obj.spawnPosition
		obj.orientation = obj.spawnOrientation
		obj.linearVelocity = math3d.Zero
		obj.angularVelocity = math3d.Zero
		obj.force = math3d.Zero
		obj.torque = math3d.Zero
		obj.suspended = false
	}
}

// MemoryObject is the concrete object handle of a MemoryScene.
type MemoryObject struct {
	name     string
	parent   *MemoryObject
	children []*MemoryObject

	position    math3d.Vector3
	orientation math3d.Quaternion

	linearVelocity  math3d.Vector3
	angularVelocity math3d.Vector3
	force           math3d.Vector3
	torque          math3d.Vector3
	suspended       bool

	bounds  [8]math3d.Vector3
	tag     string
	visible bool

	spawnPosition    math3d.Vector3
	spawnOrientation math3d.Quaternion
}

// NewObject creates a detached object with identity orientation, unit
// bounding box, and visibility on. Attach it with MemoryScene.Add.
func NewObject(name string) *MemoryObject {
	return &MemoryObject{
		name:        name,
		orientation: math3d.Identity(),
		bounds:      BoxCorners(math3d.Vector3{X: 1, Y: 1, Z: 1}),
		visible:     true,
	}
}

// SetParent links the object under parent. It must be called before the
// scene starts serving requests; robot hierarchies do not change after
// scenario load.
func (o *MemoryObject) SetParent(parent *MemoryObject) {
	o.parent = parent
	parent.children = append(parent.children, o)
}

// SetBounds replaces the static local-space bounding geometry.
func (o *MemoryObject) SetBounds(corners [8]math3d.Vector3) {
	o.bounds = corners
}

func (o *MemoryObject) Name() string { return o.name }

func (o *MemoryObject) Parent() Object {
	if o.parent == nil {
		return nil
	}
	return o.parent
}

func (o *MemoryObject) Children() []Object {
	out := make([]Object, len(o.children))
	for i, c := range o.children {
		out[i] = c
	}
	return out
}

func (o *MemoryObject) WorldPosition() math3d.Vector3     { return o.position }
func (o *MemoryObject) SetWorldPosition(p math3d.Vector3) { o.position = p }

func (o *MemoryObject) WorldOrientation() math3d.Quaternion {
	return o.orientation
}

func (o *MemoryObject) SetWorldOrientation(q math3d.Quaternion) {
	o.orientation = q.Normalize()
}

func (o *MemoryObject) LinearVelocity() math3d.Vector3      { return o.linearVelocity }
func (o *MemoryObject) SetLinearVelocity(v math3d.Vector3)  { o.linearVelocity = v }
func (o *MemoryObject) AngularVelocity() math3d.Vector3     { return o.angularVelocity }
func (o *MemoryObject) SetAngularVelocity(v math3d.Vector3) { o.angularVelocity = v }

func (o *MemoryObject) SetForce(f math3d.Vector3)  { o.force = f }
func (o *MemoryObject) SetTorque(t math3d.Vector3) { o.torque = t }

func (o *MemoryObject) SuspendDynamics()        { o.suspended = true }
func (o *MemoryObject) RestoreDynamics()        { o.suspended = false }
func (o *MemoryObject) DynamicsSuspended() bool { return o.suspended }

func (o *MemoryObject) BoundingBox() [8]math3d.Vector3 { return o.bounds }

func (o *MemoryObject) Tag() string       { return o.tag }
func (o *MemoryObject) SetTag(tag string) { o.tag = tag }

func (o *MemoryObject) Visible() bool { return o.visible }

func (o *MemoryObject) SetVisible(visible, recurse bool) {
	o.visible = visible
	if recurse {
		for _, c := range o.children {
			c.SetVisible(visible, true)
		}
	}
}

// BoxCorners expands half-extents into the 8 corners of an axis-aligned
// box centered on the object origin.
func BoxCorners(half math3d.Vector3) [8]math3d.Vector3 {
	var corners [8]math3d.Vector3
	i := 0
	for _, x := range [2]float64{-half.X, half.X} {
		for _, y := range [2]float64{-half.Y, half.Y} {
			for _, z := range [2]float64{-half.Z, half.Z} {
				corners[i] = math3d.Vector3{X: x, Y: y, Z: z}
				i++
			}
		}
	}
	return corners
}
