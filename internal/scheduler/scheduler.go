// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// SweepFunc deletes stale records and reports how many were removed.
type SweepFunc func(ctx context.Context) (int64, error)

// Sweeper periodically purges expired change requests.
type Sweeper struct {
	cron    *cron.Cron
	sweep   SweepFunc
	log     *logrus.Logger
	timeout time.Duration
}

// NewSweeper schedules sweep according to a standard five-field cron
// expression or a descriptor such as "@every 10m".
func NewSweeper(schedule string, sweep SweepFunc, log *logrus.Logger) (*Sweeper, error) {
	s := &Sweeper{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		sweep:   sweep,
		log:     log,
		timeout: time.Minute,
	}
	if _, err := s.cron.AddFunc(schedule, s.Run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Run performs one sweep.
func (s *Sweeper) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.sweep(ctx)
	if err != nil {
		s.log.Errorf("Change request sweep failed: %v", err)
		return
	}
	s.log.WithField("deleted", n).Debug("Change request sweep finished")
}

// Start begins running the schedule in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
	s.log.Infof("Change request sweeper started")
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.log.Infof("Change request sweeper stopped")
}
