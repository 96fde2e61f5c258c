package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSweeper_InvalidSchedule(t *testing.T) {
	logger, _ := test.NewNullLogger()
	_, err := NewSweeper("every now and then", func(context.Context) (int64, error) { return 0, nil }, logger)
	assert.Error(t, err)
}

func TestRun_LogsFailure(t *testing.T) {
	logger, hook := test.NewNullLogger()
	s, err := NewSweeper("@hourly", func(context.Context) (int64, error) {
		return 0, errors.New("db down")
	}, logger)
	require.NoError(t, err)

	s.Run()
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestStart_RunsOnSchedule(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ran := make(chan struct{}, 1)
	s, err := NewSweeper("@every 1s", func(ctx context.Context) (int64, error) {
		select {
		case ran <- struct{}{}:
		default:
		}
		return 1, nil
	}, logger)
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("sweep did not run")
	}
}
