package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simverse/simverse/internal/core/middleware"
	"github.com/simverse/simverse/internal/core/middleware/socket"
	"github.com/simverse/simverse/internal/core/observability/log"
)

const testScenario = `
name: test
objects:
  - name: box1
    type: PassiveObject
    position: [10, 0, 0]
robots:
  - name: atrv
    type: ATRV
    components:
      - name: atrv.camera
        type: VideoCamera
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 16*time.Millisecond, cfg.Tick)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Socket.Enabled)
	assert.True(t, cfg.WebSocket.Enabled)
	assert.False(t, cfg.QUIC.Enabled)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
tick: 8ms
log:
  level: debug
socket:
  enabled: true
  addr: ":7000"
websocket:
  enabled: false
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8*time.Millisecond, cfg.Tick)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":7000", cfg.Socket.Addr)
	assert.False(t, cfg.WebSocket.Enabled)
	assert.True(t, cfg.Metrics.Enabled, "untouched sections keep their defaults")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func testConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.Scenario = writeFile(t, "scenario.yaml", testScenario)
	cfg.Tick = time.Millisecond
	cfg.Socket.Addr = "127.0.0.1:0"
	cfg.WebSocket.Enabled = false
	cfg.Metrics.Enabled = false
	return cfg
}

func TestServerServesSocketRequests(t *testing.T) {
	logger := log.New(log.LevelError)
	srv, err := New(testConfig(t), logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- srv.Run(ctx) }()

	var sock *socket.Middleware
	for _, mw := range srv.Middlewares().Managers() {
		if s, ok := mw.(*socket.Middleware); ok {
			sock = s
		}
	}
	require.NotNil(t, sock)

	var conn net.Conn
	require.Eventually(t, func() bool {
		c, err := net.Dial("tcp", sock.Addr())
		if err != nil {
			return false
		}
		conn = c
		return true
	}, 2*time.Second, 10*time.Millisecond)
	defer conn.Close()
	reader := bufio.NewReader(conn)

	send := func(line string) middleware.Response {
		_, err := conn.Write([]byte(line + "\n"))
		require.NoError(t, err)
		reply, err := reader.ReadBytes('\n')
		require.NoError(t, err)
		var resp middleware.Response
		require.NoError(t, json.Unmarshal(reply, &resp))
		return resp
	}

	resp := send(`{"id":"1","service":"list_robots"}`)
	assert.Equal(t, middleware.StatusSuccess, resp.Status)
	assert.Equal(t, []any{"atrv"}, resp.Result)

	resp = send(`{"id":"2","service":"get_object_pose","params":["box1"]}`)
	assert.Equal(t, middleware.StatusSuccess, resp.Status)
	assert.Equal(t, "[[10,0,0],[1,0,0,0]]", resp.Result)

	resp = send(`{"id":"3","service":"quit"}`)
	assert.Equal(t, middleware.StatusSuccess, resp.Status)

	select {
	case err := <-runDone:
		assert.NoError(t, err, "quit shuts the server down cleanly")
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after quit")
	}
}

type brokenMiddleware struct{}

func (brokenMiddleware) Name() string                  { return "broken" }
func (brokenMiddleware) Services() map[string][]string { return nil }
func (brokenMiddleware) Start(context.Context) error   { return errors.New("no transport available") }
func (brokenMiddleware) Stop(context.Context) error    { return nil }

func TestServerStopsStartedMiddlewaresWhenStartFails(t *testing.T) {
	logger := log.New(log.LevelError)
	srv, err := New(testConfig(t), logger)
	require.NoError(t, err)

	// The registry is live; the broken middleware starts after the
	// socket one and fails.
	require.NoError(t, srv.Middlewares().Attach(brokenMiddleware{}))

	err = srv.Run(context.Background())
	require.Error(t, err)

	var sock *socket.Middleware
	for _, mw := range srv.Middlewares().Managers() {
		if s, ok := mw.(*socket.Middleware); ok {
			sock = s
		}
	}
	require.NotNil(t, sock)

	_, dialErr := net.Dial("tcp", sock.Addr())
	assert.Error(t, dialErr, "the socket middleware must be torn down again")
}

func TestServerContextCancelStopsRun(t *testing.T) {
	logger := log.New(log.LevelError)
	srv, err := New(testConfig(t), logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-runDone:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop on context cancellation")
	}
}
