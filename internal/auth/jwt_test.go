package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newIssuer(clock *fakeClock) *JWTIssuer {
	return NewJWTIssuer("super-secret", 30*24*time.Hour, time.Minute).WithClock(clock.Now)
}

func TestIssueAndValidate(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	issuer := newIssuer(clock)

	tok, err := issuer.Issue(42)
	require.NoError(t, err)

	claims, err := issuer.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, tokenTypeSliding, claims.TokenType)
}

func TestValidate_Expired(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	issuer := newIssuer(clock)

	tok, err := issuer.Issue(1)
	require.NoError(t, err)

	clock.t = clock.t.Add(31 * 24 * time.Hour)
	_, err = issuer.Validate(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidate_WrongSecret(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	tok, err := newIssuer(clock).Issue(1)
	require.NoError(t, err)

	other := NewJWTIssuer("other-secret", time.Hour, time.Minute).WithClock(clock.Now)
	_, err = other.Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_Malformed(t *testing.T) {
	issuer := NewJWTIssuer("k", time.Hour, time.Minute)
	_, err := issuer.Validate("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_RejectsOtherTokenTypes(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour))},
		UserID:           1,
		TokenType:        "access",
	})
	tok, err := token.SignedString([]byte("super-secret"))
	require.NoError(t, err)

	_, err = newIssuer(clock).Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefresh_SlidesExpiryButKeepsRefreshDeadline(t *testing.T) {
	start := time.Now().Truncate(time.Second)
	clock := &fakeClock{t: start}
	issuer := newIssuer(clock)

	tok, err := issuer.Issue(7)
	require.NoError(t, err)

	clock.t = start.Add(30 * time.Second)
	refreshed, err := issuer.Refresh(tok)
	require.NoError(t, err)

	claims, err := issuer.Validate(refreshed)
	require.NoError(t, err)
	assert.Equal(t, start.Add(30*time.Second).Add(30*24*time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.Equal(t, start.Add(time.Minute).Unix(), claims.RefreshExp.Unix())

	clock.t = start.Add(2 * time.Minute)
	_, err = issuer.Refresh(refreshed)
	assert.ErrorIs(t, err, ErrRefreshExpired)

	// Still usable for authentication after the refresh window closes.
	_, err = issuer.Validate(refreshed)
	assert.NoError(t, err)
}
