package math3d

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuaternionMatrixIdentity(t *testing.T) {
	m := Identity().Matrix()
	v := Vector3{1, 2, 3}
	assert.True(t, m.MulVec(v).Near(v, 1e-12), "identity must not rotate")
}

func TestQuaternionMatrixQuarterTurnZ(t *testing.T) {
	// 90 degrees around Z maps +X onto +Y.
	q := AxisAngle(Vector3{Z: 1}, math.Pi/2)
	got := q.Matrix().MulVec(Vector3{X: 1})
	assert.True(t, got.Near(Vector3{Y: 1}, 1e-9), "got %+v", got)
}

func TestQuaternionNormalize(t *testing.T) {
	q := Quaternion{W: 2, X: 0, Y: 0, Z: 0}.Normalize()
	assert.InDelta(t, 1.0, q.W, 1e-12)

	// Zero quaternion falls back to identity instead of NaN.
	z := Quaternion{}.Normalize()
	assert.Equal(t, Identity(), z)
}

func TestQuaternionNearEquivSignFlip(t *testing.T) {
	q := AxisAngle(Vector3{X: 1}, 1.0)
	neg := Quaternion{-q.W, -q.X, -q.Y, -q.Z}
	assert.True(t, q.NearEquiv(neg, 1e-12), "q and -q are the same rotation")
	assert.False(t, q.NearEquiv(Identity(), 1e-6))
}

func TestVectorJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(Vector3{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "[1,2,3]", string(data))

	var v Vector3
	require.NoError(t, json.Unmarshal([]byte("[4,5,6]"), &v))
	assert.Equal(t, Vector3{4, 5, 6}, v)

	assert.Error(t, json.Unmarshal([]byte(`"nope"`), &v))
}
