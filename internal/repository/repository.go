package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/aromastream/internal/models"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint would be violated.
	ErrConflict = errors.New("conflict")
)

// Users persists accounts and their signup side records.
type Users interface {
	CreateUser(ctx context.Context, user *models.User) error
	CreateSubscription(ctx context.Context, userID int64) error
	FindUserByID(ctx context.Context, id int64) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	TouchLastLogin(ctx context.Context, userID int64, at time.Time) error
}

// Videos persists uploaded videos and their view counters.
type Videos interface {
	CreateVideo(ctx context.Context, video *models.Video) error
	FindVideoByID(ctx context.Context, id int64) (*models.Video, error)
	IncrementViews(ctx context.Context, id int64) (*models.Video, error)
	// DeleteVideo removes the video; its timestamps go with it.
	DeleteVideo(ctx context.Context, id int64) error
	ListVideosByViews(ctx context.Context, limit, offset int) ([]models.Video, int, error)
	SearchVideos(ctx context.Context, query string, limit, offset int) ([]models.Video, int, error)
}

// TimeStamps persists aroma timestamps attached to videos.
type TimeStamps interface {
	CreateTimeStamp(ctx context.Context, ts *models.TimeStamp) error
	FindTimeStampByID(ctx context.Context, id int64) (*models.TimeStamp, error)
	ListTimeStampsByVideo(ctx context.Context, videoID int64, limit, offset int) ([]models.TimeStamp, int, error)
}

// ChangeRequests persists pending confirmation-gated field changes.
type ChangeRequests interface {
	CreateChangeRequest(ctx context.Context, cr *models.ChangeRequest) error
	// DeleteExpiredChangeRequests removes the user's requests for field created before cutoff.
	DeleteExpiredChangeRequests(ctx context.Context, userID int64, field string, cutoff time.Time) (int64, error)
	// DeleteAllExpiredChangeRequests removes every request created before cutoff.
	DeleteAllExpiredChangeRequests(ctx context.Context, cutoff time.Time) (int64, error)
	// TakeChangeRequest deletes the matching request and returns it. Only one
	// caller can take a given request.
	TakeChangeRequest(ctx context.Context, userID int64, field, code string) (*models.ChangeRequest, error)
}

// Store is the full persistence surface used by the service layer.
type Store interface {
	Users
	Videos
	TimeStamps
	ChangeRequests

	// WithTx runs fn against a transactional view of the store. The
	// transaction is committed when fn returns nil and rolled back otherwise.
	WithTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}

// Repository provides database operations
type Repository struct {
	conn *sql.DB
	db   querier
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{conn: db, db: db}
}

// WithTx implements Store.
func (r *Repository) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if r.conn == nil {
		// Already inside a transaction.
		return fn(r)
	}
	return runInTx(ctx, r.conn, func(tx *sql.Tx) error {
		return fn(&Repository{db: tx})
	})
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	if r.conn == nil {
		return nil
	}
	return r.conn.PingContext(ctx)
}

// mapError translates driver errors into repository sentinels.
func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pqErr.Constraint)
		case "23503":
			return fmt.Errorf("%w: %s", ErrNotFound, pqErr.Constraint)
		}
	}
	return err
}

var _ Store = (*Repository)(nil)
