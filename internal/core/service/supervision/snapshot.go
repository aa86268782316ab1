package supervision

import (
	"encoding/json"

	"github.com/simverse/simverse/internal/core/math3d"
	"github.com/simverse/simverse/internal/core/scene"
)

// infrastructureObjects are engine-owned helpers that never belong in a
// scene snapshot, even though they are parentless.
var infrastructureObjects = map[string]struct{}{
	"Scene_Script_Holder": {},
	"CameraFP":            {},
	"__default__cam__":    {},
}

// SceneNode is one node of a structural scene dump. It serializes as a
// 3-element array: [children, [x,y,z], [x,y,z,w]]. Both the position
// and the orientation are the node's own WORLD pose; nesting under the
// parent carries hierarchy only, not a change of frame.
type SceneNode struct {
	Children    map[string]*SceneNode
	Position    math3d.Vector3
	Orientation math3d.Quaternion
}

func (n *SceneNode) MarshalJSON() ([]byte, error) {
	q := n.Orientation
	return json.Marshal([]any{
		n.Children,
		n.Position,
		[4]float64{q.X, q.Y, q.Z, q.W},
	})
}

// getSceneObjects rebuilds the snapshot from live scene state on every
// call; nothing is cached. The scene graph is a tree by construction,
// so the recursion terminates on any finite scene.
func (s *Services) getSceneObjects([]any) (any, error) {
	top := make(map[string]*SceneNode)
	for _, obj := range s.scene.Objects() {
		if obj.Parent() != nil {
			continue
		}
		if _, excluded := infrastructureObjects[obj.Name()]; excluded {
			continue
		}
		top[obj.Name()] = snapshotNode(obj)
	}
	return top, nil
}

func snapshotNode(obj scene.Object) *SceneNode {
	node := &SceneNode{
		Children:    make(map[string]*SceneNode),
		Position:    obj.WorldPosition(),
		Orientation: obj.WorldOrientation(),
	}
	for _, child := range obj.Children() {
		node.Children[child.Name()] = snapshotNode(child)
	}
	return node
}
