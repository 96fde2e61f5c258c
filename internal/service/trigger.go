package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dan9191/aromastream/internal/integrations/device"
	"github.com/Dan9191/aromastream/internal/repository"
)

// Trigger relays the aroma of a timestamp to the dispenser
func (s *Service) Trigger(ctx context.Context, timestampID *int64) error {
	if timestampID == nil {
		return fieldError("timestamp", msgFieldRequired)
	}

	ts, err := s.repo.FindTimeStampByID(ctx, *timestampID)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("timestamp %d: %w", *timestampID, ErrNotFound)
	}
	if err != nil {
		return err
	}

	if s.device == nil {
		return &UpstreamError{Err: errors.New("no device configured")}
	}

	if err := s.device.Trigger(ctx, ts.Aroma); err != nil {
		var devErr *device.Error
		if errors.As(err, &devErr) {
			return &UpstreamError{StatusCode: devErr.StatusCode, Err: err}
		}
		return &UpstreamError{Err: err}
	}

	s.log.Infof("Trigger relayed for timestamp %d (aroma %s)", ts.ID, ts.Aroma)
	return nil
}
