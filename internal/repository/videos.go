package repository

import (
	"context"
	"fmt"

	"github.com/Dan9191/aromastream/internal/models"
)

const (
	videoColumns = `id, title, description, file, views, created_at, updated_at`
	searchVector = `to_tsvector('english', title || ' ' || description)`
)

func scanVideo(row rowScanner) (*models.Video, error) {
	video := &models.Video{}
	err := row.Scan(&video.ID, &video.Title, &video.Description, &video.File,
		&video.Views, &video.CreatedAt, &video.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return video, nil
}

// CreateVideo creates a new video in the database
func (r *Repository) CreateVideo(ctx context.Context, video *models.Video) error {
	query := `
		INSERT INTO videos (title, description, file, views, created_at, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, video.Title, video.Description, video.File, video.Views).
		Scan(&video.ID, &video.CreatedAt, &video.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create video: %w", mapError(err))
	}
	return nil
}

// FindVideoByID retrieves a video without touching its view counter
func (r *Repository) FindVideoByID(ctx context.Context, id int64) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`
	video, err := scanVideo(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to find video: %w", mapError(err))
	}
	return video, nil
}

// IncrementViews adds one view to the video and returns its updated state
func (r *Repository) IncrementViews(ctx context.Context, id int64) (*models.Video, error) {
	query := `
		UPDATE videos SET views = views + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING ` + videoColumns
	video, err := scanVideo(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to increment views: %w", mapError(err))
	}
	return video, nil
}

// DeleteVideo deletes a video; timestamps are removed by the foreign key cascade
func (r *Repository) DeleteVideo(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", mapError(err))
	}
	return expectAffected(res, "failed to delete video")
}

// ListVideosByViews returns a page of videos ranked by views, most viewed first
func (r *Repository) ListVideosByViews(ctx context.Context, limit, offset int) ([]models.Video, int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos`).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("failed to count videos: %w", err)
	}

	query := `SELECT ` + videoColumns + ` FROM videos ORDER BY views DESC, id ASC LIMIT $1 OFFSET $2`
	videos, err := r.queryVideos(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return videos, count, nil
}

// SearchVideos returns a page of videos whose title or description match
// query, ranked by views rather than relevance
func (r *Repository) SearchVideos(ctx context.Context, q string, limit, offset int) ([]models.Video, int, error) {
	var count int
	countQuery := `SELECT COUNT(*) FROM videos WHERE ` + searchVector + ` @@ plainto_tsquery('english', $1)`
	if err := r.db.QueryRowContext(ctx, countQuery, q).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("failed to count videos: %w", err)
	}

	query := `
		SELECT ` + videoColumns + ` FROM videos
		WHERE ` + searchVector + ` @@ plainto_tsquery('english', $1)
		ORDER BY views DESC, id ASC
		LIMIT $2 OFFSET $3`
	videos, err := r.queryVideos(ctx, query, q, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return videos, count, nil
}

func (r *Repository) queryVideos(ctx context.Context, query string, args ...any) ([]models.Video, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer rows.Close()

	videos := []models.Video{}
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, *video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read videos: %w", err)
	}
	return videos, nil
}
