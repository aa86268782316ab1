package supervision

import (
	"encoding/json"

	"github.com/simverse/simverse/internal/core/math3d"
	"github.com/simverse/simverse/internal/core/service"
)

// getObjectPose returns the object's world pose as a JSON-encoded
// string: [[x,y,z],[w,x,y,z]], orientation scalar-first.
func (s *Services) getObjectPose(params []any) (any, error) {
	name, err := service.StringArg(params, 0, "object_name")
	if err != nil {
		return nil, err
	}
	obj, err := s.object(name)
	if err != nil {
		return nil, err
	}

	p := obj.WorldPosition()
	q := obj.WorldOrientation()
	pose := []any{
		[3]float64{p.X, p.Y, p.Z},
		[4]float64{q.W, q.X, q.Y, q.Z},
	}
	encoded, err := json.Marshal(pose)
	if err != nil {
		return nil, service.Invocation(err, "encoding pose of %q", name)
	}
	return string(encoded), nil
}

// setObjectPose teleports an object. Both pose arguments are parsed and
// the handle resolved before anything is touched, so a bad request
// leaves the scene unchanged. The object is then brought to rest while
// the new pose is written:
//
//  1. suspend its dynamics
//  2. zero linear/angular velocity and the force/torque accumulators
//  3. write world position and orientation
//  4. restore dynamics
//
// Restoration is deferred so the object never stays suspended, even if
// a pose write panics.
func (s *Services) setObjectPose(params []any) (any, error) {
	name, err := service.StringArg(params, 0, "object_name")
	if err != nil {
		return nil, err
	}
	positionJSON, err := service.StringArg(params, 1, "position")
	if err != nil {
		return nil, err
	}
	orientationJSON, err := service.StringArg(params, 2, "orientation")
	if err != nil {
		return nil, err
	}

	obj, err := s.object(name)
	if err != nil {
		return nil, err
	}
	position, err := parseVector(positionJSON, "position")
	if err != nil {
		return nil, err
	}
	orientation, err := parseQuaternion(orientationJSON)
	if err != nil {
		return nil, err
	}

	obj.SuspendDynamics()
	defer obj.RestoreDynamics()

	obj.SetLinearVelocity(math3d.Vector3{})
	obj.SetAngularVelocity(math3d.Vector3{})
	obj.SetForce(math3d.Vector3{})
	obj.SetTorque(math3d.Vector3{})

	obj.SetWorldPosition(position)
	obj.SetWorldOrientation(orientation.Normalize())
	return nil, nil
}

// setObjectDynamics suspends or restores physics for one object.
// Restoring keeps whatever velocity the object had when suspended;
// callers wanting a clean stop use set_object_pose instead.
func (s *Services) setObjectDynamics(params []any) (any, error) {
	name, err := service.StringArg(params, 0, "object_name")
	if err != nil {
		return nil, err
	}
	on, err := service.BoolArg(params, 1, "state")
	if err != nil {
		return nil, err
	}
	obj, err := s.object(name)
	if err != nil {
		return nil, err
	}
	if on {
		obj.RestoreDynamics()
	} else {
		obj.SuspendDynamics()
	}
	return on, nil
}

func parseVector(encoded, what string) (math3d.Vector3, error) {
	var coords [3]float64
	if err := json.Unmarshal([]byte(encoded), &coords); err != nil {
		return math3d.Vector3{}, service.Invocation(err, "parameter %q is not a JSON [x,y,z] triple", what)
	}
	return math3d.Vector3{X: coords[0], Y: coords[1], Z: coords[2]}, nil
}

func parseQuaternion(encoded string) (math3d.Quaternion, error) {
	var q [4]float64
	if err := json.Unmarshal([]byte(encoded), &q); err != nil {
		return math3d.Quaternion{}, service.Invocation(err, "parameter \"orientation\" is not a JSON [w,x,y,z] quadruple")
	}
	return math3d.Quaternion{W: q[0], X: q[1], Y: q[2], Z: q[3]}, nil
}
