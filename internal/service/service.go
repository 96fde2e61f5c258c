package service

import (
	"context"
	"time"

	"github.com/Dan9191/aromastream/internal/auth"
	"github.com/Dan9191/aromastream/internal/config"
	"github.com/Dan9191/aromastream/internal/models"
	"github.com/Dan9191/aromastream/internal/repository"
	"github.com/Dan9191/aromastream/internal/storage"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Notifier delivers confirmation codes to users out of band.
type Notifier interface {
	SendConfirmCode(user *models.User, field, code string) error
}

// DeviceRelay activates an aroma on the dispenser.
type DeviceRelay interface {
	Trigger(ctx context.Context, aroma models.Aroma) error
}

// UserHook runs inside the signup transaction right after the user row is created.
type UserHook func(ctx context.Context, tx repository.Store, user *models.User) error

// Service handles business logic
type Service struct {
	repo     repository.Store
	log      *logrus.Logger
	config   *config.Config
	tokens   auth.TokenIssuer
	storage  storage.Storage
	notifier Notifier
	device   DeviceRelay
	hooks    []UserHook
	validate *validator.Validate
	hashCost int
	now      func() time.Time
}

// Option customises a Service.
type Option func(*Service)

func WithTokenIssuer(tokens auth.TokenIssuer) Option {
	return func(s *Service) { s.tokens = tokens }
}

func WithStorage(st storage.Storage) Option {
	return func(s *Service) { s.storage = st }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithDevice(d DeviceRelay) Option {
	return func(s *Service) { s.device = d }
}

// WithUserHook appends a post-signup hook.
func WithUserHook(h UserHook) Option {
	return func(s *Service) { s.hooks = append(s.hooks, h) }
}

// WithClock replaces the time source used for change-request expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithHashCost sets the bcrypt cost used for new password hashes.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

// NewService initializes a new service
func NewService(repo repository.Store, log *logrus.Logger, cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		log:      log,
		config:   cfg,
		hooks:    []UserHook{createSubscription},
		validate: newValidator(),
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tokens == nil {
		s.tokens = auth.NewJWTIssuer(cfg.JWTSecret, cfg.TokenLifetime.Duration, cfg.TokenRefreshLifetime.Duration)
	}
	return s
}

// Tokens exposes the token issuer used for authentication.
func (s *Service) Tokens() auth.TokenIssuer {
	return s.tokens
}

// Health checks that the store is reachable.
func (s *Service) Health(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func createSubscription(ctx context.Context, tx repository.Store, user *models.User) error {
	return tx.CreateSubscription(ctx, user.ID)
}
