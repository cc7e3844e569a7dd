package api_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/draftroom/internal/api"
	"github.com/mcoot/draftroom/internal/config"
	"github.com/mcoot/draftroom/internal/testutil"
)

func serverConfig(port int) config.ServerConfig {
	return config.ServerConfig{
		Host:            "127.0.0.1",
		Port:            port,
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		IdleTimeout:     time.Second,
		ShutdownTimeout: time.Second,
	}
}

func TestServerRunServesUntilCancelled(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	srv := api.NewServer(handler, serverConfig(0), testutil.NopLogger())

	var hooked atomic.Bool
	srv.OnShutdown(func() { hooked.Store(true) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	select {
	case <-srv.Ready():
	case <-time.After(time.Second):
		t.Fatal("server did not start listening")
	}
	addr := srv.Addr()
	_, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	assert.NotEqual(t, "0", port)

	resp, err := http.Get("http://" + addr + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Eventually(t, hooked.Load, time.Second, 5*time.Millisecond)

	_, err = net.DialTimeout("tcp", addr, 100*time.Millisecond)
	assert.Error(t, err)
}

func TestServerRunFailsWhenPortTaken(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	port := taken.Addr().(*net.TCPAddr).Port
	srv := api.NewServer(http.NotFoundHandler(), serverConfig(port), testutil.NopLogger())
	err = srv.Run(context.Background())
	assert.ErrorContains(t, err, "listen on")
}
