package supervision

import (
	"encoding/json"

	"github.com/simverse/simverse/internal/core/math3d"
	"github.com/simverse/simverse/internal/core/service"
)

// getObjectBbox returns the 8 local-space corners of the object's
// static geometry as a JSON-encoded string.
func (s *Services) getObjectBbox(params []any) (any, error) {
	name, err := service.StringArg(params, 0, "object_name")
	if err != nil {
		return nil, err
	}
	obj, err := s.object(name)
	if err != nil {
		return nil, err
	}
	return encodeCorners(obj.BoundingBox(), name)
}

// getObjectGlobalBbox returns the same 8 corners in world space:
// each corner is R*local + T with the object's current world rotation
// and translation.
func (s *Services) getObjectGlobalBbox(params []any) (any, error) {
	name, err := service.StringArg(params, 0, "object_name")
	if err != nil {
		return nil, err
	}
	obj, err := s.object(name)
	if err != nil {
		return nil, err
	}

	rotation := obj.WorldOrientation().Matrix()
	translation := obj.WorldPosition()

	var corners [8]math3d.Vector3
	for i, local := range obj.BoundingBox() {
		corners[i] = rotation.MulVec(local).Add(translation)
	}
	return encodeCorners(corners, name)
}

// getObjectType returns the object's free-form type tag, JSON-encoded.
// Objects without a tag yield the empty string.
func (s *Services) getObjectType(params []any) (any, error) {
	name, err := service.StringArg(params, 0, "object_name")
	if err != nil {
		return nil, err
	}
	obj, err := s.object(name)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(obj.Tag())
	if err != nil {
		return nil, service.Invocation(err, "encoding type of %q", name)
	}
	return string(encoded), nil
}

// transformToObjFrame maps a point expressed in the object's local axes
// out to world coordinates with R*point + T. The historical service
// name suggests the opposite direction; clients depend on the behavior
// as it stands, so it is kept.
func (s *Services) transformToObjFrame(params []any) (any, error) {
	name, err := service.StringArg(params, 0, "object_name")
	if err != nil {
		return nil, err
	}
	pointJSON, err := service.StringArg(params, 1, "point")
	if err != nil {
		return nil, err
	}
	obj, err := s.object(name)
	if err != nil {
		return nil, err
	}
	point, err := parseVector(pointJSON, "point")
	if err != nil {
		return nil, err
	}

	world := obj.WorldOrientation().Matrix().MulVec(point).Add(obj.WorldPosition())
	return []float64{world.X, world.Y, world.Z}, nil
}

func encodeCorners(corners [8]math3d.Vector3, name string) (any, error) {
	out := make([][3]float64, len(corners))
	for i, c := range corners {
		out[i] = [3]float64{c.X, c.Y, c.Z}
	}
	encoded, err := json.Marshal(out)
	if err != nil {
		return nil, service.Invocation(err, "encoding bounding box of %q", name)
	}
	return string(encoded), nil
}
