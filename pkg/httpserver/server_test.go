package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rollout/pkg/httpserver"
)

func TestRunAndShutdown(t *testing.T) {
	t.Parallel()
	var closed []string
	srv := httpserver.New(
		httpserver.WithAddr("127.0.0.1:0"),
		httpserver.WithShutdownTimeout(time.Second),
		httpserver.OnShutdown(func(context.Context) error { closed = append(closed, "engine"); return nil }),
		httpserver.OnShutdown(func(context.Context) error { closed = append(closed, "sink"); return nil }),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "hello")
		}))
	}()

	select {
	case <-srv.Ready():
	case <-time.After(time.Second):
		require.Fail(t, "server not ready")
	}

	resp, err := http.Get("http://" + srv.Addr().String())
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, "hello", string(body))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		require.Fail(t, "run did not return")
	}
	assert.Equal(t, []string{"engine", "sink"}, closed)
	require.NoError(t, srv.Shutdown(context.Background()), "repeated shutdown")
}

func TestShutdownErrors(t *testing.T) {
	t.Parallel()
	boom := errors.New("flush failed")
	srv := httpserver.New(
		httpserver.WithAddr("127.0.0.1:0"),
		httpserver.OnShutdown(func(context.Context) error { return boom }),
	)
	err := srv.Shutdown(context.Background())
	require.ErrorIs(t, err, httpserver.ErrShutdown)
	require.ErrorIs(t, err, boom)
}

func TestRunTwice(t *testing.T) {
	t.Parallel()
	srv := httpserver.New(httpserver.WithAddr("127.0.0.1:0"))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, nil) }()
	<-srv.Ready()

	err := srv.Run(ctx, nil)
	require.ErrorIs(t, err, httpserver.ErrStart)

	cancel()
	require.NoError(t, <-done)
}

func TestBadAddr(t *testing.T) {
	t.Parallel()
	err := httpserver.New(httpserver.WithAddr("not-an-addr")).Run(context.Background(), nil)
	require.ErrorIs(t, err, httpserver.ErrStart)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()
	srv := httpserver.NewFromConfig(httpserver.Config{Addr: "127.0.0.1:0", ReadTimeout: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, nil) }()
	<-srv.Ready()
	assert.NotNil(t, srv.Addr())
	cancel()
	require.NoError(t, <-done)
}

func TestHealthHandlers(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	httpserver.Liveness()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ALIVE", rec.Body.String())

	ok := httpserver.Check{Name: "redis", Fn: func(context.Context) error { return nil }}
	bad := httpserver.Check{Name: "pg", Fn: func(context.Context) error { return errors.New("down") }}

	rec = httptest.NewRecorder()
	httpserver.Readiness(nil, time.Second, ok)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	httpserver.Readiness(nil, time.Second, ok, bad)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, map[string]string{"redis": "ok", "pg": "fail"}, body.Checks)
}
