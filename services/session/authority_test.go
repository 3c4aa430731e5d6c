package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthority(t *testing.T) (*Authority, *Signer) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	signer, err := NewSigner("test-secret")
	require.NoError(t, err)
	return NewAuthority(client, signer, nil), signer
}

func TestLogin_SupersedesPreviousSession(t *testing.T) {
	a, _ := newTestAuthority(t)
	ctx := context.Background()

	first, err := a.Login(ctx, "user", "u1")
	require.NoError(t, err)
	second, err := a.Login(ctx, "user", "u1")
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionToken, second.SessionToken)

	ok, err := a.ValidateSession(ctx, "user", "u1", first.SessionToken)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = a.ValidateSession(ctx, "user", "u1", second.SessionToken)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLogin_VersionIncreasesByOnePerLogin(t *testing.T) {
	a, _ := newTestAuthority(t)
	ctx := context.Background()

	initial, err := a.CurrentVersion(ctx, "operator", "op1")
	require.NoError(t, err)

	const n = 5
	var last Session
	for i := 0; i < n; i++ {
		last, err = a.Login(ctx, "operator", "op1")
		require.NoError(t, err)
	}
	assert.Equal(t, initial+n, last.TokenVersion)

	for v := initial + 1; v < initial+n; v++ {
		ok, err := a.ValidateTokenVersion(ctx, "operator", "op1", v)
		require.NoError(t, err)
		assert.False(t, ok, "version %d should be stale", v)
	}
	ok, err := a.ValidateTokenVersion(ctx, "operator", "op1", last.TokenVersion)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSessionsAreScopedByAccountType(t *testing.T) {
	a, _ := newTestAuthority(t)
	ctx := context.Background()

	u, err := a.Login(ctx, "user", "same-id")
	require.NoError(t, err)
	_, err = a.Login(ctx, "operator", "same-id")
	require.NoError(t, err)

	ok, err := a.ValidateSession(ctx, "user", "same-id", u.SessionToken)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLogout(t *testing.T) {
	a, _ := newTestAuthority(t)
	ctx := context.Background()

	s, err := a.Login(ctx, "user", "u1")
	require.NoError(t, err)
	require.NoError(t, a.Logout(ctx, "user", "u1"))
	require.NoError(t, a.Logout(ctx, "user", "u1"))

	ok, err := a.ValidateSession(ctx, "user", "u1", s.SessionToken)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = a.ValidateTokenVersion(ctx, "user", "u1", s.TokenVersion)
	require.NoError(t, err)
	assert.False(t, ok)

	next, err := a.Login(ctx, "user", "u1")
	require.NoError(t, err)
	assert.Greater(t, next.TokenVersion, s.TokenVersion)
}

func TestValidate_UnknownAccount(t *testing.T) {
	a, _ := newTestAuthority(t)
	ctx := context.Background()

	ok, err := a.ValidateSession(ctx, "user", "ghost", "anything")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = a.ValidateTokenVersion(ctx, "user", "ghost", 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthenticate_Bearer(t *testing.T) {
	a, signer := newTestAuthority(t)
	ctx := context.Background()

	s, err := a.Login(ctx, "user", "u1")
	require.NoError(t, err)
	bearer, exp, err := signer.Issue(s, time.Minute)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	claims, err := a.Authenticate(ctx, bearer)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.AccountID())
	assert.Equal(t, "user", claims.AccountType)
	assert.Equal(t, s.TokenVersion, claims.TokenVersion)
}

func TestAuthenticate_SupersededByRelogin(t *testing.T) {
	a, signer := newTestAuthority(t)
	ctx := context.Background()

	s, err := a.Login(ctx, "user", "u1")
	require.NoError(t, err)
	bearer, _, err := signer.Issue(s, time.Minute)
	require.NoError(t, err)

	_, err = a.Login(ctx, "user", "u1")
	require.NoError(t, err)

	_, err = a.Authenticate(ctx, bearer)
	assert.ErrorIs(t, err, ErrSessionSuperseded)
	assert.True(t, IsSessionError(err))
}

func TestAuthenticate_Expired(t *testing.T) {
	a, signer := newTestAuthority(t)
	ctx := context.Background()

	s, err := a.Login(ctx, "user", "u1")
	require.NoError(t, err)
	signer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	bearer, _, err := signer.Issue(s, time.Minute)
	require.NoError(t, err)

	_, err = a.Authenticate(ctx, bearer)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestAuthenticate_BadSignature(t *testing.T) {
	a, _ := newTestAuthority(t)
	ctx := context.Background()

	s, err := a.Login(ctx, "user", "u1")
	require.NoError(t, err)
	other, err := NewSigner("another-secret")
	require.NoError(t, err)
	bearer, _, err := other.Issue(s, time.Minute)
	require.NoError(t, err)

	_, err = a.Authenticate(ctx, bearer)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	_, err = a.Authenticate(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestAuthenticateCookie(t *testing.T) {
	a, _ := newTestAuthority(t)
	ctx := context.Background()

	s, err := a.Login(ctx, "user", "u1")
	require.NoError(t, err)
	require.NoError(t, a.AuthenticateCookie(ctx, "user", "u1", s.SessionToken))

	_, err = a.Login(ctx, "user", "u1")
	require.NoError(t, err)
	assert.ErrorIs(t, a.AuthenticateCookie(ctx, "user", "u1", s.SessionToken), ErrSessionSuperseded)
}

func TestNewSigner_RequiresSecret(t *testing.T) {
	_, err := NewSigner("")
	assert.Error(t, err)
}

func TestLogin_RejectsUnknownAccountType(t *testing.T) {
	a, _ := newTestAuthority(t)

	_, err := a.Login(context.Background(), "root", "u1")
	assert.ErrorIs(t, err, ErrSessionInvalid)
	_, err = a.Login(context.Background(), "user", "")
	assert.ErrorIs(t, err, ErrSessionInvalid)
}
