package scenario

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simverse/simverse/internal/core/math3d"
	"github.com/simverse/simverse/internal/core/scene"
	"github.com/simverse/simverse/internal/core/sim"
)

const sampleScenario = `
name: warehouse
objects:
  - name: box1
    type: PassiveObject
    position: [10, 0, 0]
    half_extents: [1, 1, 1]
  - name: lid
    type: PassiveObject
    parent: box1
    hidden: true
robots:
  - name: atrv
    type: ATRV
    position: [0, 0, 0.3]
    components:
      - name: atrv.camera
        type: VideoCamera
        position: [0.2, 0, 0.9]
        stream:
          handle: atrv.camera:4000
          interfaces: [socket]
      - name: atrv.motion
        type: MotionVW
`

func TestLoadAndApply(t *testing.T) {
	f, err := Load(strings.NewReader(sampleScenario))
	require.NoError(t, err)
	assert.Equal(t, "warehouse", f.Name)

	sc := scene.NewMemoryScene()
	registry := sim.NewRegistry()
	require.NoError(t, f.Apply(sc, registry))

	box, ok := sc.Object("box1")
	require.True(t, ok)
	assert.Equal(t, math3d.Vector3{X: 10}, box.WorldPosition())
	assert.Equal(t, "PassiveObject", box.Tag())
	assert.Contains(t, box.BoundingBox(), math3d.Vector3{X: 1, Y: 1, Z: 1})

	lid, ok := sc.Object("lid")
	require.True(t, ok)
	assert.Equal(t, "box1", lid.Parent().Name())
	assert.False(t, lid.Visible())

	robot, ok := registry.Robot("atrv")
	require.True(t, ok)
	assert.Len(t, robot.Components(), 2)

	camera, ok := sc.Object("atrv.camera")
	require.True(t, ok)
	assert.Equal(t, "atrv", camera.Parent().Name())

	stream, ok := registry.Stream("atrv.camera")
	require.True(t, ok)
	assert.Equal(t, "atrv.camera:4000", stream.Handle)
	assert.Equal(t, []string{"socket"}, stream.Interfaces)

	_, ok = registry.Stream("atrv.motion")
	assert.False(t, ok, "no stream declared, none attached")
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader("name: x\nrobtos: []\n"))
	assert.Error(t, err)
}

func TestApplyRejectsUnknownParent(t *testing.T) {
	f, err := Load(strings.NewReader(`
objects:
  - name: orphan
    parent: ghost
`))
	require.NoError(t, err)

	err = f.Apply(scene.NewMemoryScene(), sim.NewRegistry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestApplyRejectsDuplicateNames(t *testing.T) {
	f, err := Load(strings.NewReader(`
objects:
  - name: twin
  - name: twin
`))
	require.NoError(t, err)
	assert.Error(t, f.Apply(scene.NewMemoryScene(), sim.NewRegistry()))
}
