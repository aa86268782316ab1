package supervision

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simverse/simverse/internal/core/math3d"
)

type decodedNode struct {
	children map[string]decodedNode
	position [3]float64
	rotation [4]float64
}

func decodeNode(t *testing.T, raw json.RawMessage) decodedNode {
	t.Helper()
	var parts []json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &parts))
	require.Len(t, parts, 3, "a node is [children, position, orientation]")

	var kids map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(parts[0], &kids))

	node := decodedNode{children: make(map[string]decodedNode, len(kids))}
	require.NoError(t, json.Unmarshal(parts[1], &node.position))
	require.NoError(t, json.Unmarshal(parts[2], &node.rotation))
	for name, child := range kids {
		node.children[name] = decodeNode(t, child)
	}
	return node
}

func snapshotOf(t *testing.T, f *fixture) map[string]decodedNode {
	t.Helper()
	out, err := f.call(t, "get_scene_objects")
	require.NoError(t, err)

	encoded, err := json.Marshal(out)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(encoded, &raw))

	top := make(map[string]decodedNode, len(raw))
	for name, node := range raw {
		top[name] = decodeNode(t, node)
	}
	return top
}

func TestSnapshotNestsHierarchyWithWorldPoses(t *testing.T) {
	f := newFixture(t)

	a := f.addObject(t, "A")
	b := f.addObject(t, "B")
	c := f.addObject(t, "C")
	b.SetParent(a)
	c.SetParent(b)

	a.SetWorldPosition(math3d.Vector3{X: 1})
	b.SetWorldPosition(math3d.Vector3{X: 2, Y: 1})
	c.SetWorldPosition(math3d.Vector3{X: 3, Y: 2, Z: 1})
	c.SetWorldOrientation(math3d.AxisAngle(math3d.Vector3{Z: 1}, math.Pi/2))

	top := snapshotOf(t, f)
	require.Len(t, top, 1, "children never appear at top level")

	nodeA, ok := top["A"]
	require.True(t, ok)
	assert.Equal(t, [3]float64{1, 0, 0}, nodeA.position)

	nodeB, ok := nodeA.children["B"]
	require.True(t, ok)
	assert.Equal(t, [3]float64{2, 1, 0}, nodeB.position,
		"nested nodes still carry their own world position, not a parent-relative one")

	nodeC, ok := nodeB.children["C"]
	require.True(t, ok)
	assert.Empty(t, nodeC.children)
	assert.Equal(t, [3]float64{3, 2, 1}, nodeC.position)

	// Orientation serializes [x,y,z,w].
	want := math3d.AxisAngle(math3d.Vector3{Z: 1}, math.Pi/2)
	got := math3d.Quaternion{W: nodeC.rotation[3], X: nodeC.rotation[0], Y: nodeC.rotation[1], Z: nodeC.rotation[2]}
	assert.True(t, got.NearEquiv(want, 1e-9))
}

func TestSnapshotExcludesInfrastructureObjects(t *testing.T) {
	f := newFixture(t)
	f.addObject(t, "Scene_Script_Holder")
	f.addObject(t, "CameraFP")
	f.addObject(t, "__default__cam__")
	f.addObject(t, "box1")

	top := snapshotOf(t, f)
	assert.Len(t, top, 1)
	assert.Contains(t, top, "box1")
}

func TestSnapshotLeafSerializesEmptyChildrenMap(t *testing.T) {
	f := newFixture(t)
	f.addObject(t, "lonely")

	out, err := f.call(t, "get_scene_objects")
	require.NoError(t, err)
	encoded, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"lonely": [{}, [0,0,0], [0,0,0,1]]}`, string(encoded))
}

func TestSnapshotIsRebuiltOnEveryCall(t *testing.T) {
	f := newFixture(t)
	box := f.addObject(t, "box1")

	first := snapshotOf(t, f)
	assert.Equal(t, [3]float64{0, 0, 0}, first["box1"].position)

	box.SetWorldPosition(math3d.Vector3{X: 5})
	second := snapshotOf(t, f)
	assert.Equal(t, [3]float64{5, 0, 0}, second["box1"].position)
}
