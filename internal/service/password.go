package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dan9191/aromastream/internal/models"
	"github.com/Dan9191/aromastream/internal/repository"
	"github.com/Dan9191/aromastream/internal/utils"
	"github.com/sirupsen/logrus"
)

const msgFieldRequired = "field is required"

// RequestPasswordChange stores a pending password change and dispatches its
// confirmation code. A nil password means the field was absent.
func (s *Service) RequestPasswordChange(ctx context.Context, userID int64, password *string) error {
	if password == nil || *password == "" {
		return fieldError("password", msgFieldRequired)
	}
	if err := s.check(&newPassword{Password: *password}).OrNil(); err != nil {
		return err
	}

	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}

	hashedPassword, err := s.hashPassword(*password)
	if err != nil {
		return err
	}

	code, err := utils.GenerateConfirmCode(s.config.ConfirmCodeLength)
	if err != nil {
		return fmt.Errorf("failed to generate confirm code: %w", err)
	}

	cr := &models.ChangeRequest{
		UserID:      userID,
		Field:       models.FieldPassword,
		NewValue:    hashedPassword,
		ConfirmCode: code,
		CreatedAt:   s.now(),
	}
	if err := s.repo.CreateChangeRequest(ctx, cr); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"user_id": userID,
		"field":   cr.Field,
	}).Info("Change request created")

	if s.notifier != nil {
		if err := s.notifier.SendConfirmCode(user, cr.Field, code); err != nil {
			s.log.Errorf("Failed to dispatch confirm code to user %d: %v", userID, err)
		}
	}
	return nil
}

// ConfirmPasswordChange applies the pending password change matching code.
// Stale requests of the user are swept first and stay deleted even when the
// code turns out to be wrong.
func (s *Service) ConfirmPasswordChange(ctx context.Context, userID int64, code string) error {
	if code == "" {
		return fieldError("confirm_code", msgFieldRequired)
	}

	cutoff := s.now().Add(-s.config.ChangeRequestTTL.Duration)
	swept, err := s.repo.DeleteExpiredChangeRequests(ctx, userID, models.FieldPassword, cutoff)
	if err != nil {
		return err
	}
	if swept > 0 {
		s.log.Debugf("Swept %d expired change requests of user %d", swept, userID)
	}

	err = s.repo.WithTx(ctx, func(tx repository.Store) error {
		cr, err := tx.TakeChangeRequest(ctx, userID, models.FieldPassword, code)
		if err != nil {
			return err
		}
		return tx.UpdatePassword(ctx, userID, cr.NewValue)
	})
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Warnf("Invalid confirm code for user %d", userID)
		return ErrInvalidOrExpired
	}
	if err != nil {
		return err
	}

	s.log.Infof("Password changed for user %d", userID)
	return nil
}

// SweepExpiredChangeRequests deletes stale change requests of every user.
func (s *Service) SweepExpiredChangeRequests(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.config.ChangeRequestTTL.Duration)
	n, err := s.repo.DeleteAllExpiredChangeRequests(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.log.Infof("Swept %d expired change requests", n)
	return n, nil
}
