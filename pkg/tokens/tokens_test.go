package tokens

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-jwt-secret")

func TestAccessToken_RoundTrip(t *testing.T) {
	t.Parallel()

	sid := uuid.NewString()
	exp := time.Now().Add(15 * time.Minute).UTC()

	tok, err := NewAccessToken("42", "admin", "alice", sid, exp, testSecret)
	require.NoError(t, err)

	claims, err := AccessClaimsFromToken(tok, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, sid, claims.SessionID)
	assert.WithinDuration(t, exp, claims.ExpiresAt.Time, time.Second)
}

func TestAccessToken_ExpiredAndWrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewAccessToken("1", "user", "bob", "sid", time.Now().Add(-time.Minute), testSecret)
	require.NoError(t, err)

	_, err = AccessClaimsFromToken(tok, testSecret)
	require.Error(t, err)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))

	fresh, err := NewAccessToken("1", "user", "bob", "sid", time.Now().Add(time.Minute), testSecret)
	require.NoError(t, err)
	_, err = AccessClaimsFromToken(fresh, []byte("other"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	t.Parallel()

	jti := NewJTI()
	tok, err := NewRefreshToken("7", "sid-1", jti, time.Now().Add(time.Hour), testSecret)
	require.NoError(t, err)

	claims, err := RefreshClaimsFromToken(tok, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, "sid-1", claims.SessionID)
	assert.Equal(t, jti, claims.ID)
}

func TestCookiesAndHash(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour)
	c := CreateCookie(AccessCookie, "v", "/", exp, true)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, "v", c.Value)

	d := DeleteCookie(RefreshCookie, "/", false)
	assert.Equal(t, -1, d.MaxAge)
	assert.Empty(t, d.Value)

	assert.Len(t, Sha256Hex("abc"), 64)
	assert.Equal(t, Sha256Hex("abc"), Sha256Hex("abc"))
	assert.NotEqual(t, Sha256Hex("abc"), Sha256Hex("abd"))
}
