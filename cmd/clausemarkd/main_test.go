package main

import (
	"context"
	"fmt"
	"net"
	nethttp "net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/clausemark/internal/config"
	"github.com/fyrsmithlabs/clausemark/internal/logging"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestRun(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cfg := config.Default()
	cfg.Server.Port = freePort(t)
	cfg.Logging.Output.Stdout = false
	cfg.Logging.Output.Stderr = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg)
	}()

	url := fmt.Sprintf("http://%s/health", cfg.Server.Addr())
	require.Eventually(t, func() bool {
		resp, err := nethttp.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == nethttp.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}

func TestSetup(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Output.Stdout = false
	cfg.Logging.Output.Stderr = true

	rt, err := setup(context.Background(), cfg)
	require.NoError(t, err)
	defer rt.Close()

	assert.False(t, rt.telemetry.IsEnabled())
	assert.Zero(t, rt.store.Len())
}

func TestStdioLogging(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Output.Stdout = true
	cfg.Logging.Output.Stderr = false

	stdioLogging(cfg)

	assert.False(t, cfg.Logging.Output.Stdout)
	assert.True(t, cfg.Logging.Output.Stderr)
	require.NoError(t, cfg.Validate())
}

func TestApplyLogLevel(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, applyLogLevel(cfg, ""))
	assert.Equal(t, zapcore.InfoLevel, cfg.Logging.Level)

	require.NoError(t, applyLogLevel(cfg, "TRACE"))
	assert.Equal(t, logging.TraceLevel, cfg.Logging.Level)

	require.NoError(t, applyLogLevel(cfg, "warn"))
	assert.Equal(t, zapcore.WarnLevel, cfg.Logging.Level)

	assert.Error(t, applyLogLevel(cfg, "loud"))
}
