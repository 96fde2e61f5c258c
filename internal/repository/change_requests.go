package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/aromastream/internal/models"
)

// CreateChangeRequest stores a pending change request
func (r *Repository) CreateChangeRequest(ctx context.Context, cr *models.ChangeRequest) error {
	query := `
		INSERT INTO change_requests (user_id, field, new_value, confirm_code, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := r.db.QueryRowContext(ctx, query, cr.UserID, cr.Field, cr.NewValue, cr.ConfirmCode, cr.CreatedAt).
		Scan(&cr.ID)
	if err != nil {
		return fmt.Errorf("failed to create change request: %w", mapError(err))
	}
	return nil
}

// DeleteExpiredChangeRequests removes a user's stale requests for one field
func (r *Repository) DeleteExpiredChangeRequests(ctx context.Context, userID int64, field string, cutoff time.Time) (int64, error) {
	query := `DELETE FROM change_requests WHERE user_id = $1 AND field = $2 AND created_at <= $3`
	res, err := r.db.ExecContext(ctx, query, userID, field, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired change requests: %w", err)
	}
	return res.RowsAffected()
}

// DeleteAllExpiredChangeRequests removes stale requests of every user
func (r *Repository) DeleteAllExpiredChangeRequests(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM change_requests WHERE created_at <= $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired change requests: %w", err)
	}
	return res.RowsAffected()
}

// TakeChangeRequest deletes and returns the request matching (user, field, code).
// Several pending requests may share a code, so only the oldest one is taken.
func (r *Repository) TakeChangeRequest(ctx context.Context, userID int64, field, code string) (*models.ChangeRequest, error) {
	query := `
		DELETE FROM change_requests
		WHERE id = (
			SELECT id FROM change_requests
			WHERE user_id = $1 AND field = $2 AND confirm_code = $3
			ORDER BY created_at ASC, id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, user_id, field, new_value, confirm_code, created_at`
	cr := &models.ChangeRequest{}
	err := r.db.QueryRowContext(ctx, query, userID, field, code).
		Scan(&cr.ID, &cr.UserID, &cr.Field, &cr.NewValue, &cr.ConfirmCode, &cr.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to take change request: %w", mapError(err))
	}
	return cr, nil
}
