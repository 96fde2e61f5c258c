package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/Dan9191/aromastream/internal/models"
)

type memoryData struct {
	users          map[int64]models.User
	subscriptions  map[int64]models.Subscription
	videos         map[int64]models.Video
	timestamps     map[int64]models.TimeStamp
	changeRequests map[int64]models.ChangeRequest
	seq            map[string]int64
}

func newMemoryData() *memoryData {
	return &memoryData{
		users:          map[int64]models.User{},
		subscriptions:  map[int64]models.Subscription{},
		videos:         map[int64]models.Video{},
		timestamps:     map[int64]models.TimeStamp{},
		changeRequests: map[int64]models.ChangeRequest{},
		seq:            map[string]int64{},
	}
}

func (d *memoryData) clone() *memoryData {
	c := newMemoryData()
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.subscriptions {
		c.subscriptions[k] = v
	}
	for k, v := range d.videos {
		c.videos[k] = v
	}
	for k, v := range d.timestamps {
		c.timestamps[k] = v
	}
	for k, v := range d.changeRequests {
		c.changeRequests[k] = v
	}
	for k, v := range d.seq {
		c.seq[k] = v
	}
	return c
}

func (d *memoryData) next(table string) int64 {
	d.seq[table]++
	return d.seq[table]
}

type memoryState struct {
	data *memoryData
}

// Memory is an in-process Store used for development and tests. Transactions
// are serialised under a single mutex and rolled back by restoring a snapshot.
type Memory struct {
	mu    *sync.Mutex
	state *memoryState
	inTx  bool
	now   func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		mu:    &sync.Mutex{},
		state: &memoryState{data: newMemoryData()},
		now:   time.Now,
	}
}

func (m *Memory) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *Memory) data() *memoryData {
	return m.state.data
}

// WithTx implements Store.
func (m *Memory) WithTx(ctx context.Context, fn func(tx Store) error) (err error) {
	if m.inTx {
		return fn(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.data.clone()
	defer func() {
		if p := recover(); p != nil {
			m.state.data = snapshot
			panic(p)
		}
		if err != nil {
			m.state.data = snapshot
		}
	}()

	tx := &Memory{mu: m.mu, state: m.state, inTx: true, now: m.now}
	return fn(tx)
}

// Ping implements Store.
func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *Memory) CreateUser(ctx context.Context, user *models.User) error {
	defer m.lock()()
	d := m.data()
	for _, existing := range d.users {
		if existing.Username == user.Username {
			return fmt.Errorf("failed to create user: %w: users_username_key", ErrConflict)
		}
	}
	now := m.now()
	user.ID = d.next("users")
	user.CreatedAt = now
	user.UpdatedAt = now
	d.users[user.ID] = *user
	return nil
}

func (m *Memory) CreateSubscription(ctx context.Context, userID int64) error {
	defer m.lock()()
	d := m.data()
	if _, ok := d.users[userID]; !ok {
		return fmt.Errorf("failed to create subscription: %w", ErrNotFound)
	}
	for _, sub := range d.subscriptions {
		if sub.UserID == userID {
			return fmt.Errorf("failed to create subscription: %w", ErrConflict)
		}
	}
	id := d.next("subscriptions")
	d.subscriptions[id] = models.Subscription{ID: id, UserID: userID, CreatedAt: m.now()}
	return nil
}

// Subscription returns the subscription of a user, if any.
func (m *Memory) Subscription(userID int64) (models.Subscription, bool) {
	defer m.lock()()
	for _, sub := range m.data().subscriptions {
		if sub.UserID == userID {
			return sub, true
		}
	}
	return models.Subscription{}, false
}

func (m *Memory) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	defer m.lock()()
	user, ok := m.data().users[id]
	if !ok {
		return nil, fmt.Errorf("failed to find user: %w", ErrNotFound)
	}
	return &user, nil
}

func (m *Memory) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	defer m.lock()()
	for _, user := range m.data().users {
		if user.Username == username {
			return &user, nil
		}
	}
	return nil, fmt.Errorf("failed to find user: %w", ErrNotFound)
}

func (m *Memory) UpdateUser(ctx context.Context, user *models.User) error {
	defer m.lock()()
	d := m.data()
	stored, ok := d.users[user.ID]
	if !ok {
		return fmt.Errorf("failed to update user: %w", ErrNotFound)
	}
	for id, existing := range d.users {
		if id != user.ID && existing.Username == user.Username {
			return fmt.Errorf("failed to update user: %w: users_username_key", ErrConflict)
		}
	}
	stored.Username = user.Username
	stored.Email = user.Email
	stored.IsStaff = user.IsStaff
	stored.UpdatedAt = m.now()
	d.users[user.ID] = stored
	user.UpdatedAt = stored.UpdatedAt
	return nil
}

func (m *Memory) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	defer m.lock()()
	d := m.data()
	user, ok := d.users[userID]
	if !ok {
		return fmt.Errorf("failed to update password: %w", ErrNotFound)
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = m.now()
	d.users[userID] = user
	return nil
}

func (m *Memory) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	defer m.lock()()
	d := m.data()
	user, ok := d.users[userID]
	if !ok {
		return fmt.Errorf("failed to update last login: %w", ErrNotFound)
	}
	user.LastLogin = &at
	d.users[userID] = user
	return nil
}

func (m *Memory) CreateVideo(ctx context.Context, video *models.Video) error {
	defer m.lock()()
	d := m.data()
	now := m.now()
	video.ID = d.next("videos")
	video.CreatedAt = now
	video.UpdatedAt = now
	d.videos[video.ID] = *video
	return nil
}

func (m *Memory) FindVideoByID(ctx context.Context, id int64) (*models.Video, error) {
	defer m.lock()()
	video, ok := m.data().videos[id]
	if !ok {
		return nil, fmt.Errorf("failed to find video: %w", ErrNotFound)
	}
	return &video, nil
}

func (m *Memory) IncrementViews(ctx context.Context, id int64) (*models.Video, error) {
	defer m.lock()()
	d := m.data()
	video, ok := d.videos[id]
	if !ok {
		return nil, fmt.Errorf("failed to increment views: %w", ErrNotFound)
	}
	video.Views++
	video.UpdatedAt = m.now()
	d.videos[id] = video
	return &video, nil
}

func (m *Memory) ListVideosByViews(ctx context.Context, limit, offset int) ([]models.Video, int, error) {
	defer m.lock()()
	videos := m.rankedVideos(func(models.Video) bool { return true })
	return window(videos, limit, offset), len(videos), nil
}

func (m *Memory) SearchVideos(ctx context.Context, query string, limit, offset int) ([]models.Video, int, error) {
	defer m.lock()()
	terms := searchTerms(query)
	videos := m.rankedVideos(func(v models.Video) bool {
		if len(terms) == 0 {
			return false
		}
		words := map[string]bool{}
		for _, w := range searchTerms(v.Title + " " + v.Description) {
			words[w] = true
		}
		for _, term := range terms {
			if !words[term] {
				return false
			}
		}
		return true
	})
	return window(videos, limit, offset), len(videos), nil
}

func (m *Memory) rankedVideos(keep func(models.Video) bool) []models.Video {
	videos := []models.Video{}
	for _, v := range m.data().videos {
		if keep(v) {
			videos = append(videos, v)
		}
	}
	sort.Slice(videos, func(i, j int) bool {
		if videos[i].Views != videos[j].Views {
			return videos[i].Views > videos[j].Views
		}
		return videos[i].ID < videos[j].ID
	})
	return videos
}

func searchTerms(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func (m *Memory) CreateTimeStamp(ctx context.Context, ts *models.TimeStamp) error {
	defer m.lock()()
	d := m.data()
	if _, ok := d.videos[ts.VideoID]; !ok {
		return fmt.Errorf("failed to create timestamp: %w: timestamps_video_id_fkey", ErrNotFound)
	}
	ts.ID = d.next("timestamps")
	ts.CreatedAt = m.now()
	d.timestamps[ts.ID] = *ts
	return nil
}

func (m *Memory) FindTimeStampByID(ctx context.Context, id int64) (*models.TimeStamp, error) {
	defer m.lock()()
	ts, ok := m.data().timestamps[id]
	if !ok {
		return nil, fmt.Errorf("failed to find timestamp: %w", ErrNotFound)
	}
	return &ts, nil
}

func (m *Memory) ListTimeStampsByVideo(ctx context.Context, videoID int64, limit, offset int) ([]models.TimeStamp, int, error) {
	defer m.lock()()
	timestamps := []models.TimeStamp{}
	for _, ts := range m.data().timestamps {
		if ts.VideoID == videoID {
			timestamps = append(timestamps, ts)
		}
	}
	sort.Slice(timestamps, func(i, j int) bool {
		if !timestamps[i].CreatedAt.Equal(timestamps[j].CreatedAt) {
			return timestamps[i].CreatedAt.Before(timestamps[j].CreatedAt)
		}
		return timestamps[i].ID < timestamps[j].ID
	})
	return window(timestamps, limit, offset), len(timestamps), nil
}

// DeleteVideo removes a video together with its timestamps.
func (m *Memory) DeleteVideo(ctx context.Context, id int64) error {
	defer m.lock()()
	d := m.data()
	if _, ok := d.videos[id]; !ok {
		return fmt.Errorf("failed to delete video: %w", ErrNotFound)
	}
	delete(d.videos, id)
	for tsID, ts := range d.timestamps {
		if ts.VideoID == id {
			delete(d.timestamps, tsID)
		}
	}
	return nil
}

func (m *Memory) CreateChangeRequest(ctx context.Context, cr *models.ChangeRequest) error {
	defer m.lock()()
	d := m.data()
	if _, ok := d.users[cr.UserID]; !ok {
		return fmt.Errorf("failed to create change request: %w", ErrNotFound)
	}
	cr.ID = d.next("change_requests")
	if cr.CreatedAt.IsZero() {
		cr.CreatedAt = m.now()
	}
	d.changeRequests[cr.ID] = *cr
	return nil
}

func (m *Memory) DeleteExpiredChangeRequests(ctx context.Context, userID int64, field string, cutoff time.Time) (int64, error) {
	defer m.lock()()
	return m.deleteChangeRequests(func(cr models.ChangeRequest) bool {
		return cr.UserID == userID && cr.Field == field && !cr.CreatedAt.After(cutoff)
	}), nil
}

func (m *Memory) DeleteAllExpiredChangeRequests(ctx context.Context, cutoff time.Time) (int64, error) {
	defer m.lock()()
	return m.deleteChangeRequests(func(cr models.ChangeRequest) bool {
		return !cr.CreatedAt.After(cutoff)
	}), nil
}

func (m *Memory) deleteChangeRequests(match func(models.ChangeRequest) bool) int64 {
	d := m.data()
	var n int64
	for id, cr := range d.changeRequests {
		if match(cr) {
			delete(d.changeRequests, id)
			n++
		}
	}
	return n
}

func (m *Memory) TakeChangeRequest(ctx context.Context, userID int64, field, code string) (*models.ChangeRequest, error) {
	defer m.lock()()
	d := m.data()
	var found *models.ChangeRequest
	for _, cr := range d.changeRequests {
		if cr.UserID != userID || cr.Field != field || cr.ConfirmCode != code {
			continue
		}
		if found == nil || cr.CreatedAt.Before(found.CreatedAt) ||
			(cr.CreatedAt.Equal(found.CreatedAt) && cr.ID < found.ID) {
			cr := cr
			found = &cr
		}
	}
	if found == nil {
		return nil, fmt.Errorf("failed to take change request: %w", ErrNotFound)
	}
	delete(d.changeRequests, found.ID)
	return found, nil
}

// PendingChangeRequests returns the number of stored change requests.
func (m *Memory) PendingChangeRequests() int {
	defer m.lock()()
	return len(m.data().changeRequests)
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

var _ Store = (*Memory)(nil)
