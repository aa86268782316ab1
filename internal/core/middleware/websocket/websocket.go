// Package websocket exposes the service surface over WebSocket. Each
// text frame carries one JSON request; the reply goes back on the same
// connection as one JSON frame.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/simverse/simverse/internal/core/middleware"
	"github.com/simverse/simverse/internal/core/observability/log"
	"github.com/simverse/simverse/internal/core/service"
)

var _ middleware.RequestManager = (*Middleware)(nil)

// Middleware is the WebSocket request manager.
type Middleware struct {
	addr     string
	invoker  middleware.Invoker
	services *service.Registry
	logger   log.Log

	server   *http.Server
	listener net.Listener
	upgrader websocket.Upgrader
	running  int32

	connsMu sync.Mutex
	conns   map[string]*websocket.Conn
	wg      sync.WaitGroup
}

func New(addr string, invoker middleware.Invoker, services *service.Registry, logger log.Log) *Middleware {
	return &Middleware{
		addr:     addr,
		invoker:  invoker,
		services: services,
		logger:   logger.Named("websocket"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				// Simulation clients connect from arbitrary tooling.
				return true
			},
		},
		conns: make(map[string]*websocket.Conn),
	}
}

func (m *Middleware) Name() string { return "websocket" }

func (m *Middleware) Services() map[string][]string {
	return m.services.ServicesByComponent()
}

func (m *Middleware) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&m.running, 0, 1) {
		return errors.New("websocket middleware already running")
	}

	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		atomic.StoreInt32(&m.running, 0)
		return err
	}
	m.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		m.handleWebSocket(ctx, w, r)
	})
	mux.HandleFunc("/health", m.handleHealth)

	m.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("websocket server error", log.Error(err))
		}
	}()

	m.logger.Info("websocket middleware listening", log.String("addr", ln.Addr().String()))
	return nil
}

func (m *Middleware) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&m.running, 1, 0) {
		return nil
	}

	m.connsMu.Lock()
	for _, conn := range m.conns {
		_ = conn.Close()
	}
	m.connsMu.Unlock()

	err := m.server.Shutdown(ctx)
	m.wg.Wait()
	m.logger.Info("websocket middleware stopped")
	return err
}

// Addr returns the bound listen address.
func (m *Middleware) Addr() string {
	if m.listener == nil {
		return m.addr
	}
	return m.listener.Addr().String()
}

func (m *Middleware) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (m *Middleware) handleWebSocket(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Warn("upgrade failed", log.Error(err))
		return
	}

	id := uuid.NewString()
	m.connsMu.Lock()
	m.conns[id] = conn
	m.connsMu.Unlock()

	m.logger.Debug("client connected",
		log.String("client", id),
		log.String("remote_addr", conn.RemoteAddr().String()))

	m.wg.Add(1)
	go m.serve(ctx, id, conn)
}

func (m *Middleware) serve(ctx context.Context, id string, conn *websocket.Conn) {
	defer m.wg.Done()
	defer func() {
		m.connsMu.Lock()
		delete(m.conns, id)
		m.connsMu.Unlock()
		_ = conn.Close()
		m.logger.Debug("client disconnected", log.String("client", id))
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				m.logger.Warn("read failed", log.String("client", id), log.Error(err))
			}
			return
		}

		var resp middleware.Response
		var req middleware.Request
		if err := json.Unmarshal(payload, &req); err != nil {
			resp = middleware.Response{
				Status: middleware.StatusFailed,
				Error: &middleware.FaultInfo{
					Code:    service.FaultInvocation.String(),
					Message: "malformed request: " + err.Error(),
				},
			}
		} else {
			resp = middleware.Execute(ctx, m.invoker, req)
		}

		if err := conn.WriteJSON(resp); err != nil {
			m.logger.Warn("reply write failed", log.String("client", id), log.Error(err))
			return
		}
	}
}
