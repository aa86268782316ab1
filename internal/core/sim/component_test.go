package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRobotsAndComponents(t *testing.T) {
	reg := NewRegistry()

	gps := NewComponent("robot1.gps", "GPS")
	motion := NewComponent("robot1.motion", "MotionController")
	require.NoError(t, reg.AddRobot(NewRobot("robot1", "ATRV", gps, motion)))

	robots := reg.Robots()
	require.Len(t, robots, 1)
	assert.Equal(t, "robot1", robots[0].Name())
	assert.Len(t, robots[0].Components(), 2)

	// The robot itself and its children are all addressable components.
	for _, name := range []string{"robot1", "robot1.gps", "robot1.motion"} {
		_, ok := reg.Component(name)
		assert.True(t, ok, name)
	}

	assert.Error(t, reg.AddRobot(NewRobot("robot1", "ATRV")), "robot names are unique")
}

func TestActivateDeactivate(t *testing.T) {
	reg := NewRegistry()
	gps := NewComponent("gps", "GPS")
	require.NoError(t, reg.AddComponent(gps))

	require.NoError(t, reg.Deactivate("gps"))
	assert.False(t, gps.Active())
	require.NoError(t, reg.Activate("gps"))
	assert.True(t, gps.Active())
}

func TestActivateUnknownLeavesFlagsAlone(t *testing.T) {
	reg := NewRegistry()
	gps := NewComponent("gps", "GPS")
	require.NoError(t, reg.AddComponent(gps))

	err := reg.Activate("does-not-exist")
	require.ErrorIs(t, err, ErrComponentNotFound)
	assert.True(t, gps.Active(), "existing flags untouched on failure")

	err = reg.Deactivate("does-not-exist")
	require.ErrorIs(t, err, ErrComponentNotFound)
	assert.True(t, gps.Active())
}

func TestStreams(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.AddComponent(NewComponent("camera", "VideoCamera")))

	err := reg.AttachStream("ghost", Stream{Handle: "x"})
	assert.ErrorIs(t, err, ErrComponentNotFound)

	require.NoError(t, reg.AttachStream("camera", Stream{
		Handle:     "camera_stream",
		Interfaces: []string{"socket"},
	}))

	s, ok := reg.Stream("camera")
	require.True(t, ok)
	assert.Equal(t, "camera_stream", s.Handle)

	_, ok = reg.Stream("ghost")
	assert.False(t, ok)
}
