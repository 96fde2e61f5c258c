package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dan9191/aromastream/internal/models"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

var videoRowColumns = []string{"id", "title", "description", "file", "views", "created_at", "updated_at"}

func TestCreateUser(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", "alice@example.com", "hash", false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(7, now, now))

	user := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	assert.Equal(t, int64(7), user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_Conflict(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_username_key"})

	err := repo.CreateUser(context.Background(), &models.User{Username: "alice"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestFindUserByUsername_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM users WHERE username = \$1`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindUserByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindUserByID(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "is_staff", "last_login", "created_at", "updated_at"}).
			AddRow(3, "bob", "bob@example.com", "hash", true, nil, now, now))

	user, err := repo.FindUserByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Username)
	assert.True(t, user.IsStaff)
	assert.Nil(t, user.LastLogin)
}

func TestUpdatePassword_Missing(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`UPDATE users SET password_hash`).
		WithArgs(int64(9), "hash").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePassword(context.Background(), 9, "hash")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIncrementViews(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`UPDATE videos SET views = views \+ 1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(videoRowColumns).AddRow(1, "t", "d", "2024/1/2/x.mp4", 5, now, now))

	video, err := repo.IncrementViews(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), video.Views)
}

func TestIncrementViews_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`UPDATE videos SET views`).WillReturnError(sql.ErrNoRows)

	_, err := repo.IncrementViews(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListVideosByViews(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM videos`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`ORDER BY views DESC, id ASC LIMIT \$1 OFFSET \$2`).
		WithArgs(15, 0).
		WillReturnRows(sqlmock.NewRows(videoRowColumns).
			AddRow(2, "b", "d", "f2", 9, now, now).
			AddRow(1, "a", "d", "f1", 3, now, now))

	videos, count, err := repo.ListVideosByViews(context.Background(), 15, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, videos, 2)
	assert.Equal(t, int64(2), videos[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchVideos_Empty(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM videos WHERE to_tsvector`).
		WithArgs("nothing").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`plainto_tsquery\('english', \$1\)`).
		WithArgs("nothing", 15, 0).
		WillReturnRows(sqlmock.NewRows(videoRowColumns))

	videos, count, err := repo.SearchVideos(context.Background(), "nothing", 15, 0)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.NotNil(t, videos)
	assert.Empty(t, videos)
}

func TestCreateTimeStamp_UnknownVideo(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO timestamps`).
		WithArgs(int64(5), "A", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23503", Constraint: "timestamps_video_id_fkey"})

	err := repo.CreateTimeStamp(context.Background(), &models.TimeStamp{VideoID: 5, Aroma: models.AromaA, Moment: models.NewMoment(10, 30, 0)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListTimeStampsByVideo(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM timestamps WHERE video_id = \$1`).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`ORDER BY created_at ASC, id ASC`).
		WithArgs(int64(4), 15, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "video_id", "aroma", "moment", "created_at"}).
			AddRow(1, 4, "A", "10:30:00", now))

	timestamps, count, err := repo.ListTimeStampsByVideo(context.Background(), 4, 15, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, timestamps, 1)
	assert.Equal(t, models.AromaA, timestamps[0].Aroma)
	assert.Equal(t, "10:30:00", timestamps[0].Moment.String())
}

func TestTakeChangeRequest(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`DELETE FROM change_requests`).
		WithArgs(int64(1), models.FieldPassword, "123456").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "field", "new_value", "confirm_code", "created_at"}).
			AddRow(11, 1, "password", "hash", "123456", now))

	cr, err := repo.TakeChangeRequest(context.Background(), 1, models.FieldPassword, "123456")
	require.NoError(t, err)
	assert.Equal(t, int64(11), cr.ID)
	assert.Equal(t, "hash", cr.NewValue)
}

func TestTakeChangeRequest_Missing(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`DELETE FROM change_requests`).WillReturnError(sql.ErrNoRows)

	_, err := repo.TakeChangeRequest(context.Background(), 1, models.FieldPassword, "000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteExpiredChangeRequests(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	cutoff := time.Now().Add(-time.Hour)

	mock.ExpectExec(`DELETE FROM change_requests WHERE user_id = \$1 AND field = \$2 AND created_at <= \$3`).
		WithArgs(int64(1), models.FieldPassword, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.DeleteExpiredChangeRequests(context.Background(), 1, models.FieldPassword, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestWithTx_CommitAndRollback(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE users SET password_hash`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.WithTx(context.Background(), func(tx Store) error {
		return tx.UpdatePassword(context.Background(), 1, "hash")
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err = repo.WithTx(context.Background(), func(tx Store) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_PanicAndCommitFailure(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectRollback()
	assert.PanicsWithValue(t, "boom", func() {
		_ = repo.WithTx(context.Background(), func(tx Store) error { panic("boom") })
	})

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(sql.ErrConnDone)
	err := repo.WithTx(context.Background(), func(tx Store) error { return nil })
	assert.ErrorIs(t, err, sql.ErrConnDone)

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(sql.ErrTxDone)
	err = repo.WithTx(context.Background(), func(tx Store) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, sql.ErrTxDone)

	mock.ExpectBegin().WillReturnError(sql.ErrConnDone)
	err = repo.WithTx(context.Background(), func(tx Store) error {
		t.Fatal("fn must not run without a transaction")
		return nil
	})
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_UsesGoose(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	called := false
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })
	gooseUpContext = func(ctx context.Context, got *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		called = true
		assert.Same(t, db, got)
		assert.Equal(t, ".", dir)
		return nil
	}

	require.NoError(t, Migrate(context.Background(), db))
	assert.True(t, called)
}
