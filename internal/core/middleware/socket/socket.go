// Package socket exposes the service surface over a plain TCP socket.
// The wire format is newline-delimited JSON: one request object per
// line in, one response object per line out.
package socket

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/simverse/simverse/internal/core/middleware"
	"github.com/simverse/simverse/internal/core/observability/log"
	"github.com/simverse/simverse/internal/core/service"
)

const maxLineBytes = 1 << 20

var _ middleware.RequestManager = (*Middleware)(nil)

// Middleware is the raw-socket request manager.
type Middleware struct {
	addr     string
	invoker  middleware.Invoker
	services *service.Registry
	logger   log.Log

	listener net.Listener
	running  int32

	connsMu sync.Mutex
	conns   map[string]net.Conn
	wg      sync.WaitGroup
}

func New(addr string, invoker middleware.Invoker, services *service.Registry, logger log.Log) *Middleware {
	return &Middleware{
		addr:     addr,
		invoker:  invoker,
		services: services,
		logger:   logger.Named("socket"),
		conns:    make(map[string]net.Conn),
	}
}

func (m *Middleware) Name() string { return "socket" }

// Services lists every registered operation; the socket middleware
// exposes the full service surface.
func (m *Middleware) Services() map[string][]string {
	return m.services.ServicesByComponent()
}

func (m *Middleware) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&m.running, 0, 1) {
		return errors.New("socket middleware already running")
	}

	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		atomic.StoreInt32(&m.running, 0)
		return err
	}
	m.listener = ln
	m.logger.Info("socket middleware listening", log.String("addr", ln.Addr().String()))

	m.wg.Add(1)
	go m.acceptLoop(ctx)
	return nil
}

func (m *Middleware) Stop(context.Context) error {
	if !atomic.CompareAndSwapInt32(&m.running, 1, 0) {
		return nil
	}
	err := m.listener.Close()

	m.connsMu.Lock()
	for _, conn := range m.conns {
		_ = conn.Close()
	}
	m.connsMu.Unlock()

	m.wg.Wait()
	m.logger.Info("socket middleware stopped")
	return err
}

// Addr returns the bound listen address, useful when the configured
// port is 0.
func (m *Middleware) Addr() string {
	if m.listener == nil {
		return m.addr
	}
	return m.listener.Addr().String()
}

func (m *Middleware) acceptLoop(ctx context.Context) {
	defer m.wg.Done()
	for {
		conn, err := m.listener.Accept()
		if err != nil {
			if atomic.LoadInt32(&m.running) == 0 {
				return
			}
			m.logger.Error("accept failed", log.Error(err))
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
}

func (m *Middleware) serve(ctx context.Context, id string, conn net.Conn) {
	defer m.wg.Done()
	defer func() {
		m.connsMu.Lock()
		delete(m.conns, id)
		m.connsMu.Unlock()
		_ = conn.Close()
		m.logger.Debug("client disconnected", log.String("client", id))
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	writer := bufio.NewWriter(conn)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var resp middleware.Response
		var req middleware.Request
		if err := json.Unmarshal(line, &req); err != nil {
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

		if err := writeLine(writer, resp); err != nil {
			m.logger.Warn("reply write failed", log.String("client", id), log.Error(err))
			return
		}
	}
}

func writeLine(w *bufio.Writer, resp middleware.Response) error {
	encoded, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if _, err = w.Write(encoded); err != nil {
		return err
	}
	if err = w.WriteByte('\n'); err != nil {
		return err
	}
	return w.Flush()
}
