package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Dan9191/aromastream/internal/models"
	"github.com/Dan9191/aromastream/internal/pagination"
	"github.com/Dan9191/aromastream/internal/repository"
	"github.com/Dan9191/aromastream/internal/utils"
)

// VideoUpload is a validated-on-create video submission.
type VideoUpload struct {
	Title       string    `json:"title" validate:"notblank,max=400"`
	Description string    `json:"description" validate:"notblank"`
	Filename    string    `json:"-"`
	Size        int64     `json:"-"`
	Content     io.Reader `json:"-" validate:"-"`
}

// CreateVideo stores the uploaded file and records the video
func (s *Service) CreateVideo(ctx context.Context, in VideoUpload) (*models.Video, error) {
	v := s.check(&in)
	switch {
	case in.Content == nil || in.Filename == "":
		v.Add("file", "No file was submitted.")
	case in.Size == 0:
		v.Add("file", "The submitted file is empty.")
	case !utils.HasExtension(in.Filename, "mp4"):
		v.Add("file", "File extension is not allowed. Allowed extensions are: mp4.")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	if s.storage == nil {
		return nil, errors.New("no upload storage configured")
	}

	key := utils.UploadKey(in.Filename, s.now())
	if err := s.storage.Save(ctx, key, in.Content, in.Size); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	video := &models.Video{
		Title:       in.Title,
		Description: in.Description,
		File:        key,
	}
	if err := s.repo.CreateVideo(ctx, video); err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.log.Errorf("Failed to remove orphaned upload %s: %v", key, delErr)
		}
		return nil, err
	}

	s.log.Infof("Video %d created: %s", video.ID, key)
	return video, nil
}

// GetVideo returns a video and counts the view
func (s *Service) GetVideo(ctx context.Context, id int64) (*models.Video, error) {
	video, err := s.repo.IncrementViews(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("video %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return video, nil
}

// ListVideos returns a page of videos ranked by views
func (s *Service) ListVideos(ctx context.Context, p pagination.Params) ([]models.Video, int, error) {
	return s.repo.ListVideosByViews(ctx, p.Limit(), p.Offset())
}

// PopularVideos uses the same ranking as ListVideos.
func (s *Service) PopularVideos(ctx context.Context, p pagination.Params) ([]models.Video, int, error) {
	return s.ListVideos(ctx, p)
}

// SearchVideos filters videos by a text query and ranks the matches by views
func (s *Service) SearchVideos(ctx context.Context, query string, p pagination.Params) ([]models.Video, int, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, 0, fieldError("query", "field is required.")
	}
	return s.repo.SearchVideos(ctx, query, p.Limit(), p.Offset())
}

// DeleteVideo removes a video, its timestamps and its stored file. Staff only.
func (s *Service) DeleteVideo(ctx context.Context, userID, id int64) error {
	if err := s.requireStaff(ctx, userID); err != nil {
		return err
	}
	video, err := s.repo.FindVideoByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("video %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return err
	}
	if err := s.repo.DeleteVideo(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("video %d: %w", id, ErrNotFound)
		}
		return err
	}
	if s.storage != nil && video.File != "" {
		if err := s.storage.Delete(ctx, video.File); err != nil {
			s.log.Errorf("Failed to delete file of video %d: %v", id, err)
		}
	}
	s.log.Infof("Video %d deleted by user %d", id, userID)
	return nil
}

// FileURL renders a storage key as a public URL.
func (s *Service) FileURL(key string) string {
	if s.storage == nil || key == "" {
		return key
	}
	return s.storage.URL(key)
}
