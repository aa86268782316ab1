// Package metrics bundles the Prometheus collectors for the service
// surface and exposes a ready-to-use /metrics handler.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/simverse/simverse/internal/core/service"
)

// Collector bundles the metrics recorded by the dispatch loop and the
// composition root. A nil *Collector is a valid no-op recorder.
type Collector struct {
	gatherer prometheus.Gatherer

	Invocations *prometheus.CounterVec
	Durations   *prometheus.HistogramVec

	SceneObjects prometheus.Gauge
	Middlewares  prometheus.Gauge
}

// NewCollector registers the collectors against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	invocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simverse_service_invocations_total",
		Help: "Total number of service invocations, labeled by service name and outcome.",
	}, []string{"service", "status"})
	invocations, err := registerCounterVec(reg, invocations, "simverse_service_invocations_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "simverse_service_duration_seconds",
		Help:    "Service handler execution time in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"service"})
	durations, err = registerHistogramVec(reg, durations, "simverse_service_duration_seconds")
	if err != nil {
		return nil, err
	}

	sceneObjects, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "simverse_scene_objects",
		Help: "Current number of objects in the scene.",
	}), "simverse_scene_objects")
	if err != nil {
		return nil, err
	}

	middlewares, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "simverse_attached_middlewares",
		Help: "Current number of attached request managers.",
	}), "simverse_attached_middlewares")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:     gatherer,
		Invocations:  invocations,
		Durations:    durations,
		SceneObjects: sceneObjects,
		Middlewares:  middlewares,
	}, nil
}

// ObserveInvocation records one executed service call.
func (c *Collector) ObserveInvocation(name string, err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	status := "success"
	if err != nil {
		status = service.CodeOf(err).String()
	}
	if c.Invocations != nil {
		c.Invocations.WithLabelValues(name, status).Inc()
	}
	if c.Durations != nil {
		c.Durations.WithLabelValues(name).Observe(elapsed.Seconds())
	}
}

// SetSceneObjects updates the scene-size gauge.
func (c *Collector) SetSceneObjects(n int) {
	if c == nil || c.SceneObjects == nil {
		return
	}
	c.SceneObjects.Set(float64(n))
}

// SetMiddlewares updates the attached-middleware gauge.
func (c *Collector) SetMiddlewares(n int) {
	if c == nil || c.Middlewares == nil {
		return
	}
	c.Middlewares.Set(float64(n))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
