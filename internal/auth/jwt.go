// Package auth issues and validates the sliding bearer tokens used by the API.
//
// A sliding token carries two deadlines: "exp", after which the token is no
// longer accepted, and "refresh_exp", after which it can no longer be renewed.
// Renewing moves "exp" forward by the full lifetime but keeps "refresh_exp".
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenTypeSliding = "sliding"

var (
	ErrInvalidToken   = errors.New("token is invalid")
	ErrTokenExpired   = errors.New("token is expired")
	ErrRefreshExpired = errors.New("token refresh window has expired")
)

// Claims of a sliding token.
type Claims struct {
	jwt.RegisteredClaims
	UserID     int64            `json:"user_id"`
	TokenType  string           `json:"token_type"`
	RefreshExp *jwt.NumericDate `json:"refresh_exp"`
}

// CanRefresh reports whether the token may still be renewed at now.
func (c *Claims) CanRefresh(now time.Time) bool {
	return c.RefreshExp != nil && now.Before(c.RefreshExp.Time)
}

// TokenIssuer issues, validates and renews bearer tokens.
type TokenIssuer interface {
	Issue(userID int64) (string, error)
	Validate(token string) (*Claims, error)
	Refresh(token string) (string, error)
}

// JWTIssuer implements TokenIssuer with HS256-signed JWTs.
type JWTIssuer struct {
	secret          []byte
	lifetime        time.Duration
	refreshLifetime time.Duration
	now             func() time.Time
}

// NewJWTIssuer creates an issuer. lifetime bounds each token; refreshLifetime
// bounds how long after issuance the token may be renewed.
func NewJWTIssuer(secret string, lifetime, refreshLifetime time.Duration) *JWTIssuer {
	return &JWTIssuer{
		secret:          []byte(secret),
		lifetime:        lifetime,
		refreshLifetime: refreshLifetime,
		now:             time.Now,
	}
}

// WithClock replaces the issuer's time source.
func (j *JWTIssuer) WithClock(now func() time.Time) *JWTIssuer {
	j.now = now
	return j
}

// Issue creates a fresh sliding token for userID.
func (j *JWTIssuer) Issue(userID int64) (string, error) {
	now := j.now()
	return j.sign(userID, now, jwt.NewNumericDate(now.Add(j.refreshLifetime)))
}

func (j *JWTIssuer) sign(userID int64, now time.Time, refreshExp *jwt.NumericDate) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.lifetime)),
			ID:        uuid.NewString(),
		},
		UserID:     userID,
		TokenType:  tokenTypeSliding,
		RefreshExp: refreshExp,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// Validate parses tokenString and checks its signature, type and expiry.
func (j *JWTIssuer) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.TokenType != tokenTypeSliding || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Refresh renews a valid token whose refresh window is still open.
func (j *JWTIssuer) Refresh(tokenString string) (string, error) {
	claims, err := j.Validate(tokenString)
	if err != nil {
		return "", err
	}
	now := j.now()
	if !claims.CanRefresh(now) {
		return "", ErrRefreshExpired
	}
	return j.sign(claims.UserID, now, claims.RefreshExp)
}

var _ TokenIssuer = (*JWTIssuer)(nil)
