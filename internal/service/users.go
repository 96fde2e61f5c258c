package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dan9191/aromastream/internal/auth"
	"github.com/Dan9191/aromastream/internal/models"
	"github.com/Dan9191/aromastream/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const msgUsernameTaken = "A user with that username already exists."

// SignupInput is the payload of a signup request.
type SignupInput struct {
	Username string `json:"username" validate:"required,max=150,username"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Password string `json:"password" validate:"notblank,max=128"`
}

// ProfileUpdate holds the profile fields to change; nil fields are kept.
type ProfileUpdate struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

// profile is the user-editable part of an account after an update is applied.
type profile struct {
	Username string `json:"username" validate:"required,max=150,username"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
}

type credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type newPassword struct {
	Password string `json:"password" validate:"notblank,max=128"`
}

func (s *Service) hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Signup creates a user and logs them in, returning a token
func (s *Service) Signup(ctx context.Context, in SignupInput) (string, *models.User, error) {
	if err := s.check(&in).OrNil(); err != nil {
		return "", nil, err
	}

	hashedPassword, err := s.hashPassword(in.Password)
	if err != nil {
		return "", nil, err
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hashedPassword,
	}

	err = s.repo.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		for _, hook := range s.hooks {
			if err := hook(ctx, tx, user); err != nil {
				return fmt.Errorf("post-signup hook failed: %w", err)
			}
		}
		now := s.now()
		if err := tx.TouchLastLogin(ctx, user.ID, now); err != nil {
			return err
		}
		user.LastLogin = &now
		return nil
	})
	if errors.Is(err, repository.ErrConflict) {
		return "", nil, fieldError("username", msgUsernameTaken)
	}
	if err != nil {
		return "", nil, err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", nil, err
	}

	s.log.Infof("User registered: %s", user.Username)
	return token, user, nil
}

// Login authenticates a user and returns a sliding token
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	if err := s.check(&credentials{Username: username, Password: password}).OrNil(); err != nil {
		return "", err
	}

	user, err := s.repo.FindUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Infof("Login failed for unknown user %s", username)
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.Infof("Login failed for user %s", username)
		return "", ErrInvalidCredentials
	}

	if err := s.repo.TouchLastLogin(ctx, user.ID, s.now()); err != nil {
		return "", err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", err
	}

	s.log.Infof("User logged in: %s", user.Username)
	return token, nil
}

// RefreshToken renews a sliding token while its refresh window is open
func (s *Service) RefreshToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", fieldError("token", msgRequired)
	}
	refreshed, err := s.tokens.Refresh(token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrTokenExpired) || errors.Is(err, auth.ErrRefreshExpired) {
			return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return "", err
	}
	return refreshed, nil
}

// Authenticate resolves a bearer token to its user
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, *auth.Claims, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	user, err := s.repo.FindUserByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: user no longer exists", ErrUnauthorized)
	}
	if err != nil {
		return nil, nil, err
	}
	return user, claims, nil
}

// Profile returns the user's profile
func (s *Service) Profile(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.repo.FindUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return user, err
}

// UpdateProfile applies a partial profile update
func (s *Service) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) error {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}

	if upd.Username != nil {
		user.Username = *upd.Username
	}
	if upd.Email != nil {
		user.Email = *upd.Email
	}
	if err := s.check(&profile{Username: user.Username, Email: user.Email}).OrNil(); err != nil {
		return err
	}

	err = s.repo.UpdateUser(ctx, user)
	if errors.Is(err, repository.ErrConflict) {
		return fieldError("username", msgUsernameTaken)
	}
	if err != nil {
		return err
	}

	s.log.Infof("User %d updated profile", userID)
	return nil
}

// Promote grants staff privileges to a user
func (s *Service) Promote(ctx context.Context, username string) error {
	user, err := s.repo.FindUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("user %s: %w", username, ErrNotFound)
	}
	if err != nil {
		return err
	}
	user.IsStaff = true
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return err
	}
	s.log.Infof("User %s promoted to staff", username)
	return nil
}

func (s *Service) requireStaff(ctx context.Context, userID int64) error {
	user, err := s.repo.FindUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUnauthorized
	}
	if err != nil {
		return err
	}
	if !user.IsStaff {
		return ErrForbidden
	}
	return nil
}
