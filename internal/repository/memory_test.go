package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Dan9191/aromastream/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_UserConflict(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.CreateUser(ctx, &models.User{Username: "alice"}))
	err := m.CreateUser(ctx, &models.User{Username: "alice"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = m.FindUserByUsername(ctx, "bob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_WithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	boom := errors.New("boom")

	err := m.WithTx(ctx, func(tx Store) error {
		require.NoError(t, tx.CreateUser(ctx, &models.User{Username: "alice"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = m.FindUserByUsername(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	user := &models.User{Username: "carol"}
	require.NoError(t, m.CreateUser(ctx, user))
	assert.Equal(t, int64(1), user.ID, "rolled back insert must not consume an id")
}

func TestMemory_RankingAndSearch(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	low := &models.Video{Title: "searchable video", Description: "first", Views: 1}
	high := &models.Video{Title: "other", Description: "searchable description", Views: 10}
	tie := &models.Video{Title: "tie", Description: "plain", Views: 1}
	for _, v := range []*models.Video{low, high, tie} {
		require.NoError(t, m.CreateVideo(ctx, v))
	}

	videos, count, err := m.ListVideosByViews(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	require.Len(t, videos, 2)
	assert.Equal(t, high.ID, videos[0].ID)
	assert.Equal(t, low.ID, videos[1].ID)

	videos, _, err = m.ListVideosByViews(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, tie.ID, videos[0].ID)

	videos, count, err = m.SearchVideos(ctx, "Searchable", 15, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, high.ID, videos[0].ID)

	videos, count, err = m.SearchVideos(ctx, "missing", 15, 0)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, videos)
}

func TestMemory_IncrementViewsConcurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	video := &models.Video{Title: "t", Description: "d"}
	require.NoError(t, m.CreateVideo(ctx, video))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.IncrementViews(ctx, video.ID)
		}()
	}
	wg.Wait()

	got, err := m.FindVideoByID(ctx, video.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), got.Views)
}

func TestMemory_DeleteVideoCascades(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	video := &models.Video{Title: "t", Description: "d"}
	require.NoError(t, m.CreateVideo(ctx, video))
	ts := &models.TimeStamp{VideoID: video.ID, Aroma: models.AromaB, Moment: models.NewMoment(0, 1, 0)}
	require.NoError(t, m.CreateTimeStamp(ctx, ts))

	require.NoError(t, m.DeleteVideo(ctx, video.ID))

	_, err := m.FindTimeStampByID(ctx, ts.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.DeleteVideo(ctx, video.ID), ErrNotFound)
}

func TestMemory_ChangeRequests(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	user := &models.User{Username: "alice"}
	require.NoError(t, m.CreateUser(ctx, user))

	now := time.Now()
	stale := &models.ChangeRequest{UserID: user.ID, Field: models.FieldPassword, ConfirmCode: "111111", CreatedAt: now.Add(-2 * time.Hour)}
	fresh := &models.ChangeRequest{UserID: user.ID, Field: models.FieldPassword, ConfirmCode: "222222", CreatedAt: now}
	require.NoError(t, m.CreateChangeRequest(ctx, stale))
	require.NoError(t, m.CreateChangeRequest(ctx, fresh))

	n, err := m.DeleteExpiredChangeRequests(ctx, user.ID, models.FieldPassword, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = m.TakeChangeRequest(ctx, user.ID, models.FieldPassword, "111111")
	assert.ErrorIs(t, err, ErrNotFound)

	taken, err := m.TakeChangeRequest(ctx, user.ID, models.FieldPassword, "222222")
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, taken.ID)

	_, err = m.TakeChangeRequest(ctx, user.ID, models.FieldPassword, "222222")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, m.PendingChangeRequests())
}

func TestMemory_ChangeRequestCutoffIsInclusive(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	cutoff := time.Date(2024, 3, 7, 11, 0, 0, 0, time.UTC)

	var users []*models.User
	for i, at := range []time.Time{cutoff, cutoff.Add(time.Nanosecond)} {
		user := &models.User{Username: fmt.Sprintf("user%d", i)}
		require.NoError(t, m.CreateUser(ctx, user))
		users = append(users, user)
		cr := &models.ChangeRequest{UserID: user.ID, Field: models.FieldPassword, ConfirmCode: "000000", CreatedAt: at}
		require.NoError(t, m.CreateChangeRequest(ctx, cr))
	}

	n, err := m.DeleteExpiredChangeRequests(ctx, users[0].ID, models.FieldPassword, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = m.DeleteAllExpiredChangeRequests(ctx, cutoff)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, m.PendingChangeRequests())
}
