package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simverse/simverse/internal/core/service"
)

func TestObserveInvocation(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.ObserveInvocation("get_object_pose", nil, time.Millisecond)
	c.ObserveInvocation("get_object_pose", service.NotFound("no such object"), time.Millisecond)
	c.ObserveInvocation("quit", errors.New("plain error"), 0)
	c.SetSceneObjects(4)
	c.SetMiddlewares(2)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["simverse_service_invocations_total"])
	assert.True(t, names["simverse_service_duration_seconds"])
	assert.True(t, names["simverse_scene_objects"])
	assert.True(t, names["simverse_attached_middlewares"])
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.ObserveInvocation("quit", nil, 0)
	c.SetSceneObjects(1)
	c.SetMiddlewares(1)
}

func TestDuplicateRegistrationTolerated(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)
	_, err = NewCollector(reg)
	require.NoError(t, err, "re-registering against the same registry reuses collectors")
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
}
