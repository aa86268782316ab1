// Package scene defines the narrow surface through which the service
// layer reads and mutates the simulated world, together with an
// in-memory implementation used by the headless server and the tests.
//
// The scene is owned by the simulation's single update thread. Neither
// interface carries internal locking; callers off the update thread
// must hand work over to it before touching the scene.
package scene

import (
	"errors"

	"github.com/simverse/simverse/internal/core/math3d"
)

// ErrObjectNotFound is returned when a name does not resolve to a live
// object in the current scene.
var ErrObjectNotFound = errors.New("object does not appear in the scene")

// Object is a live handle on a scene object. Pose accessors always work
// in world coordinates, never relative to the parent.
type Object interface {
	Name() string

	// Hierarchy. Parent returns nil for top-level objects. The scene
	// graph is a tree by construction of the host engine.
	Parent() Object
	Children() []Object

	WorldPosition() math3d.Vector3
	SetWorldPosition(p math3d.Vector3)
	WorldOrientation() math3d.Quaternion
	SetWorldOrientation(q math3d.Quaternion)

	LinearVelocity() math3d.Vector3
	SetLinearVelocity(v math3d.Vector3)
	AngularVelocity() math3d.Vector3
	SetAngularVelocity(v math3d.Vector3)

	// SetForce and SetTorque overwrite the accumulators the physics
	// engine integrates on its next step.
	SetForce(f math3d.Vector3)
	SetTorque(t math3d.Vector3)

	// SuspendDynamics stops the physics engine from stepping this
	// object. RestoreDynamics resumes it with whatever velocity the
	// object had at suspension time; there is no implicit zeroing.
	SuspendDynamics()
	RestoreDynamics()
	DynamicsSuspended() bool

	// BoundingBox returns the 8 corners of the object's static geometry
	// in object-local space.
	BoundingBox() [8]math3d.Vector3

	// Tag is the free-form type metadata of the object, empty if unset.
	Tag() string
	SetTag(tag string)

	Visible() bool
	SetVisible(visible, recurse bool)
}

// Scene enumerates and resolves objects.
type Scene interface {
	// Objects returns every object in the scene in a stable order.
	Objects() []Object

	// Object resolves a name to a live handle.
	Object(name string) (Object, bool)

	// Reset restores every object to its load-time pose, zeroes its
	// velocities, and resumes its dynamics.
	Reset()
}
