package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/Dan9191/aromastream/internal/models"
	"github.com/Dan9191/aromastream/internal/pagination"
	"github.com/Dan9191/aromastream/internal/repository"
)

// TimeStampInput is the body of a timestamp creation request. Video accepts a
// JSON number or a numeric string.
type TimeStampInput struct {
	Video  json.RawMessage `json:"video"`
	Aroma  *string         `json:"aroma" validate:"notblank,oneof=A B C D"`
	Moment *string         `json:"moment" validate:"notblank"`
}

func parsePK(raw json.RawMessage) (int64, string) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, msgRequired
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return 0, "Incorrect type. Expected pk value."
	}
	id, err := strconv.ParseInt(num.String(), 10, 64)
	if err != nil {
		return 0, "Incorrect type. Expected pk value."
	}
	return id, ""
}

// CreateTimeStamp attaches an aroma moment to a video. Staff only.
func (s *Service) CreateTimeStamp(ctx context.Context, userID int64, in TimeStampInput) (*models.TimeStamp, error) {
	if err := s.requireStaff(ctx, userID); err != nil {
		return nil, err
	}

	v := s.check(&in)
	videoID, msg := parsePK(in.Video)
	if msg != "" {
		v.Add("video", msg)
	} else if _, err := s.repo.FindVideoByID(ctx, videoID); errors.Is(err, repository.ErrNotFound) {
		v.Add("video", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", videoID))
	} else if err != nil {
		return nil, err
	}

	var moment models.Moment
	if _, reported := v.Fields["moment"]; !reported {
		parsed, err := models.ParseMoment(*in.Moment)
		if err != nil {
			v.Add("moment", "Time has wrong format. Use one of these formats instead: hh:mm[:ss[.uuuuuu]].")
		}
		moment = parsed
	}

	if err := v.OrNil(); err != nil {
		return nil, err
	}

	ts := &models.TimeStamp{VideoID: videoID, Aroma: models.Aroma(*in.Aroma), Moment: moment}
	err := s.repo.CreateTimeStamp(ctx, ts)
	if errors.Is(err, repository.ErrNotFound) {
		// Video removed between the lookup and the insert.
		return nil, fieldError("video", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", videoID))
	}
	if err != nil {
		return nil, err
	}

	s.log.Infof("Timestamp %d created for video %d", ts.ID, videoID)
	return ts, nil
}

// ListTimeStamps returns a video's timestamps in creation order
func (s *Service) ListTimeStamps(ctx context.Context, videoID int64, p pagination.Params) ([]models.TimeStamp, int, error) {
	return s.repo.ListTimeStampsByVideo(ctx, videoID, p.Limit(), p.Offset())
}
