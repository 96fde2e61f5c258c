package device

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dan9191/aromastream/internal/config"
	"github.com/Dan9191/aromastream/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, template string, timeout time.Duration) *Client {
	t.Helper()
	cfg := config.Default()
	cfg.DeviceURL = template
	cfg.DeviceTimeout = config.Duration{Duration: timeout}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewClient(cfg, logger)
}

func TestTrigger_Success(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL+"/{}", time.Second)
	require.NoError(t, c.Trigger(context.Background(), models.AromaB))
	assert.Equal(t, "/B", gotPath)
}

func TestTrigger_DeviceStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := newClient(t, srv.URL+"/{}", time.Second).Trigger(context.Background(), models.AromaA)

	var devErr *Error
	require.True(t, errors.As(err, &devErr))
	assert.Equal(t, http.StatusServiceUnavailable, devErr.StatusCode)
}

func TestTrigger_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	err := newClient(t, srv.URL+"/{}", 50*time.Millisecond).Trigger(context.Background(), models.AromaA)

	var devErr *Error
	require.True(t, errors.As(err, &devErr))
	assert.Zero(t, devErr.StatusCode)
}

func TestBuildURL_AddsScheme(t *testing.T) {
	c := newClient(t, "localhost:1203/{}", time.Second)
	assert.Equal(t, "http://localhost:1203/C", c.buildURL(models.AromaC))
}
