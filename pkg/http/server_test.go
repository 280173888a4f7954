package http

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applogger "BitLearn/pkg/logger"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/ping", func(c echo.Context) error { return SuccessResponse(c, "pong") })
}

func TestServer_StartServeStop(t *testing.T) {
	srv := NewServer(applogger.NewNop(), []Handler{pingHandler{}, nil},
		WithHost("127.0.0.1"),
		WithPort(0),
		WithRegistry(prometheus.NewRegistry()),
	)
	require.NoError(t, srv.Start())
	base := "http://" + srv.Addr().String()

	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(base + "/api/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.JSONEq(t, `{"status":200,"message":"OK","data":"pong"}`, string(body))

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "http_in_flight_requests")

	require.NoError(t, srv.Stop(context.Background()))
	_, err = http.Get(base + "/healthz")
	assert.Error(t, err)
}

func TestServer_StartReportsBindError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	srv := NewServer(applogger.NewNop(), nil, WithHost("127.0.0.1"), WithPort(port), WithRegistry(prometheus.NewRegistry()))
	assert.ErrorContains(t, srv.Start(), "listen")
}
