// Package server wires the simulation together: scene, component
// registry, service registrations, middlewares, metrics, and the
// update loop.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/simverse/simverse/internal/core/middleware"
	"github.com/simverse/simverse/internal/core/middleware/quic"
	"github.com/simverse/simverse/internal/core/middleware/socket"
	"github.com/simverse/simverse/internal/core/middleware/websocket"
	"github.com/simverse/simverse/internal/core/observability/log"
	"github.com/simverse/simverse/internal/core/observability/metrics"
	"github.com/simverse/simverse/internal/core/scenario"
	"github.com/simverse/simverse/internal/core/scene"
	"github.com/simverse/simverse/internal/core/service"
	"github.com/simverse/simverse/internal/core/service/supervision"
	"github.com/simverse/simverse/internal/core/sim"
)

// Server owns a running simulation instance.
type Server struct {
	cfg    Config
	logger log.Log

	scene       *scene.MemoryScene
	components  *sim.Registry
	services    *service.Registry
	middlewares *middleware.Registry
	collector   *metrics.Collector
	loop        *sim.Loop

	metricsServer *http.Server
}

// New builds a server from the configuration. Scenario loading,
// service registration, and middleware construction all happen here;
// Run only starts what New assembled.
func New(cfg Config, logger log.Log) (*Server, error) {
	s := &Server{
		cfg:         cfg,
		logger:      logger.Named("server"),
		scene:       scene.NewMemoryScene(),
		components:  sim.NewRegistry(),
		middlewares: middleware.NewRegistry(),
	}

	if cfg.Scenario != "" {
		f, err := scenario.LoadFile(cfg.Scenario)
		if err != nil {
			return nil, err
		}
		if err := f.Apply(s.scene, s.components); err != nil {
			return nil, err
		}
		s.logger.Info("scenario loaded",
			log.String("name", f.Name),
			log.Int("objects", len(s.scene.Objects())))
	}

	collector, err := metrics.NewCollector(prometheus.NewRegistry())
	if err != nil {
		return nil, err
	}
	s.collector = collector

	s.services = service.NewRegistry(logger)
	s.loop = sim.NewLoop(s.services, s.collector, logger, cfg.Tick)

	supervision.New(s.scene, s.components, s.middlewares, s.loop, logger).
		RegisterAll(s.services)
	s.services.Seal()

	if cfg.Socket.Enabled {
		if err := s.middlewares.Attach(socket.New(cfg.Socket.Addr, s.loop, s.services, logger)); err != nil {
			return nil, err
		}
	}
	if cfg.WebSocket.Enabled {
		if err := s.middlewares.Attach(websocket.New(cfg.WebSocket.Addr, s.loop, s.services, logger)); err != nil {
			return nil, err
		}
	}
	if cfg.QUIC.Enabled {
		mw := quic.New(cfg.QUIC.Addr, cfg.QUIC.CertFile, cfg.QUIC.KeyFile, s.loop, s.services, logger)
		if err := s.middlewares.Attach(mw); err != nil {
			return nil, err
		}
	}

	s.collector.SetSceneObjects(len(s.scene.Objects()))
	s.collector.SetMiddlewares(s.middlewares.Len())
	return s, nil
}

// Middlewares exposes the live middleware registry.
func (s *Server) Middlewares() *middleware.Registry {
	return s.middlewares
}

// Loop exposes the update loop, mainly so embedders can Invoke
// services directly.
func (s *Server) Loop() *sim.Loop {
	return s.loop
}

// Run starts every attached middleware and drives the update loop
// until the context is cancelled or a quit/terminate service stops the
// simulation.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, mw := range s.middlewares.Managers() {
		if err := mw.Start(ctx); err != nil {
			// Stopping a middleware that never started is a no-op, so
			// shutting everything down only tears the started ones back.
			s.shutdown()
			return err
		}
		s.logger.Info("middleware started", log.String("middleware", mw.Name()))
	}

	if s.cfg.Metrics.Enabled {
		ln, err := net.Listen("tcp", s.cfg.Metrics.Addr)
		if err != nil {
			s.shutdown()
			return err
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.collector.Handler())
		s.metricsServer = &http.Server{Handler: mux}

		g.Go(func() error {
			if err := s.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		s.logger.Info("metrics exposed", log.String("addr", ln.Addr().String()))
	}

	g.Go(func() error {
		return s.loop.Run(ctx)
	})

	g.Go(func() error {
		select {
		case <-ctx.Done():
		case <-s.loop.Done():
		}
		s.shutdown()
		return nil
	})

	return g.Wait()
}

func (s *Server) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, mw := range s.middlewares.Managers() {
		if err := mw.Stop(ctx); err != nil {
			s.logger.Warn("middleware stop failed",
				log.String("middleware", mw.Name()), log.Error(err))
		}
	}
	if s.metricsServer != nil {
		_ = s.metricsServer.Shutdown(ctx)
	}
	s.logger.Info("server stopped")
}
