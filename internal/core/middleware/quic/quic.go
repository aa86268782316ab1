// Package quic exposes the service surface over QUIC. Each client
// stream carries newline-delimited JSON, the same framing as the
// socket middleware, so one client can multiplex independent request
// pipelines over a single connection.
package quic

import (
	"bufio"
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"errors"
	"math/big"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/quic-go/quic-go"

	"github.com/simverse/simverse/internal/core/middleware"
	"github.com/simverse/simverse/internal/core/observability/log"
	"github.com/simverse/simverse/internal/core/service"
)

const (
	alpnProtocol = "simverse-quic"
	maxLineBytes = 1 << 20
)

var _ middleware.RequestManager = (*Middleware)(nil)

// Middleware is the QUIC request manager.
type Middleware struct {
	addr     string
	certFile string
	keyFile  string
	invoker  middleware.Invoker
	services *service.Registry
	logger   log.Log

	listener *quic.Listener
	running  int32

	connsMu sync.Mutex
	conns   map[string]*quic.Conn
	wg      sync.WaitGroup
}

// New creates the QUIC middleware. When certFile/keyFile are empty a
// self-signed certificate is generated, which is enough for local and
// development deployments.
func New(addr, certFile, keyFile string, invoker middleware.Invoker, services *service.Registry, logger log.Log) *Middleware {
	return &Middleware{
		addr:     addr,
		certFile: certFile,
		keyFile:  keyFile,
		invoker:  invoker,
		services: services,
		logger:   logger.Named("quic"),
		conns:    make(map[string]*quic.Conn),
	}
}

func (m *Middleware) Name() string { return "quic" }

func (m *Middleware) Services() map[string][]string {
	return m.services.ServicesByComponent()
}

func (m *Middleware) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&m.running, 0, 1) {
		return errors.New("quic middleware already running")
	}

	tlsConf, err := m.tlsConfig()
	if err != nil {
		atomic.StoreInt32(&m.running, 0)
		return err
	}

	quicConf := &quic.Config{
		MaxIdleTimeout: 60 * time.Second,
	}
	listener, err := quic.ListenAddr(m.addr, tlsConf, quicConf)
	if err != nil {
		atomic.StoreInt32(&m.running, 0)
		return err
	}
	m.listener = listener
	m.logger.Info("quic middleware listening", log.String("addr", listener.Addr().String()))

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
		_ = conn.CloseWithError(0, "server shutting down")
	}
	m.connsMu.Unlock()

	m.wg.Wait()
	m.logger.Info("quic middleware stopped")
	return err
}

// Addr returns the bound listen address.
func (m *Middleware) Addr() string {
	if m.listener == nil {
		return m.addr
	}
	return m.listener.Addr().String()
}

func (m *Middleware) tlsConfig() (*tls.Config, error) {
	if m.certFile != "" && m.keyFile != "" {
		cert, err := tls.LoadX509KeyPair(m.certFile, m.keyFile)
		if err != nil {
			return nil, err
		}
		return &tls.Config{
			Certificates: []tls.Certificate{cert},
			NextProtos:   []string{alpnProtocol},
			MinVersion:   tls.VersionTLS13,
		}, nil
	}
	m.logger.Warn("no certificate configured, generating a self-signed one")
	return generateSelfSignedTLS()
}

func (m *Middleware) acceptLoop(ctx context.Context) {
	defer m.wg.Done()
	for {
		conn, err := m.listener.Accept(ctx)
		if err != nil {
			if atomic.LoadInt32(&m.running) == 0 || ctx.Err() != nil {
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
		go m.serveConn(ctx, id, conn)
	}
}

func (m *Middleware) serveConn(ctx context.Context, id string, conn *quic.Conn) {
	defer m.wg.Done()
	defer func() {
		m.connsMu.Lock()
		delete(m.conns, id)
		m.connsMu.Unlock()
		m.logger.Debug("client disconnected", log.String("client", id))
	}()

	for {
		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			return
		}
		m.wg.Add(1)
		go m.serveStream(ctx, id, stream)
	}
}

func (m *Middleware) serveStream(ctx context.Context, id string, stream *quic.Stream) {
	defer m.wg.Done()
	defer func() { _ = stream.Close() }()

	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	writer := bufio.NewWriter(stream)

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

		encoded, err := json.Marshal(resp)
		if err != nil {
			m.logger.Warn("reply encode failed", log.String("client", id), log.Error(err))
			return
		}
		if _, err = writer.Write(append(encoded, '\n')); err != nil {
			return
		}
		if err = writer.Flush(); err != nil {
			return
		}
	}
}

// generateSelfSignedTLS builds a throwaway localhost certificate,
// valid for one year.
func generateSelfSignedTLS() (*tls.Config, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{"Simverse"},
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		DNSNames:              []string{"localhost"},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: []tls.Certificate{{
			Certificate: [][]byte{certDER},
			PrivateKey:  key,
		}},
		NextProtos: []string{alpnProtocol},
		MinVersion: tls.VersionTLS13,
	}, nil
}
