package repository

import (
	"context"
	"fmt"

	"github.com/Dan9191/aromastream/internal/models"
)

const timeStampColumns = `id, video_id, aroma, moment, created_at`

func scanTimeStamp(row rowScanner) (*models.TimeStamp, error) {
	ts := &models.TimeStamp{}
	if err := row.Scan(&ts.ID, &ts.VideoID, &ts.Aroma, &ts.Moment, &ts.CreatedAt); err != nil {
		return nil, err
	}
	return ts, nil
}

// CreateTimeStamp creates a new timestamp in the database
func (r *Repository) CreateTimeStamp(ctx context.Context, ts *models.TimeStamp) error {
	query := `
		INSERT INTO timestamps (video_id, aroma, moment, created_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, ts.VideoID, string(ts.Aroma), ts.Moment).
		Scan(&ts.ID, &ts.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create timestamp: %w", mapError(err))
	}
	return nil
}

// FindTimeStampByID retrieves a timestamp by id
func (r *Repository) FindTimeStampByID(ctx context.Context, id int64) (*models.TimeStamp, error) {
	query := `SELECT ` + timeStampColumns + ` FROM timestamps WHERE id = $1`
	ts, err := scanTimeStamp(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to find timestamp: %w", mapError(err))
	}
	return ts, nil
}

// ListTimeStampsByVideo returns a page of a video's timestamps in creation order
func (r *Repository) ListTimeStampsByVideo(ctx context.Context, videoID int64, limit, offset int) ([]models.TimeStamp, int, error) {
	var count int
	countQuery := `SELECT COUNT(*) FROM timestamps WHERE video_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, videoID).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("failed to count timestamps: %w", err)
	}

	query := `
		SELECT ` + timeStampColumns + ` FROM timestamps
		WHERE video_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, videoID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query timestamps: %w", err)
	}
	defer rows.Close()

	timestamps := []models.TimeStamp{}
	for rows.Next() {
		ts, err := scanTimeStamp(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan timestamp: %w", err)
		}
		timestamps = append(timestamps, *ts)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read timestamps: %w", err)
	}
	return timestamps, count, nil
}
