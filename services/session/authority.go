package session

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"seatbook/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const keyPrefix = "session:"

// loginScript bumps the version and replaces the token hash in one step, so
// the previous pair stops validating at the same instant the new one starts.
var loginScript = redis.NewScript(`
local v = redis.call('HINCRBY', KEYS[1], 'version', 1)
redis.call('HSET', KEYS[1], 'token', ARGV[1])
return v
`)

// logoutScript drops the token and bumps the version so bearer credentials
// issued before the logout are rejected too.
var logoutScript = redis.NewScript(`
redis.call('HDEL', KEYS[1], 'token')
return redis.call('HINCRBY', KEYS[1], 'version', 1)
`)

// Session is the single live credential pair of an account.
type Session struct {
	AccountType  string `json:"accountType"`
	AccountID    string `json:"accountId"`
	SessionToken string `json:"sessionToken"`
	TokenVersion int64  `json:"tokenVersion"`
}

// Authority is the only writer of session state. It is a thin client over
// Redis so every server process sees the same active session.
type Authority struct {
	client redis.UniversalClient
	signer *Signer
	logger *zap.Logger
}

func NewAuthority(client redis.UniversalClient, signer *Signer, logger *zap.Logger) *Authority {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authority{client: client, signer: signer, logger: logger}
}

func sessionKey(accountType, accountID string) string {
	return keyPrefix + accountType + ":" + accountID
}

// HashToken computes a SHA-256 hash of the token string. Only hashes are stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Login replaces any existing session of the account with a fresh one.
func (a *Authority) Login(ctx context.Context, accountType, accountID string) (Session, error) {
	if !models.ValidAccountType(accountType) || accountID == "" {
		return Session{}, fmt.Errorf("login: %w", ErrSessionInvalid)
	}
	token := uuid.New().String()
	version, err := loginScript.Run(ctx, a.client, []string{sessionKey(accountType, accountID)}, HashToken(token)).Int64()
	if err != nil {
		return Session{}, fmt.Errorf("login: store session: %w", err)
	}
	a.logger.Info("session started",
		zap.String("accountType", accountType),
		zap.String("accountId", accountID),
		zap.Int64("tokenVersion", version),
	)
	return Session{
		AccountType:  accountType,
		AccountID:    accountID,
		SessionToken: token,
		TokenVersion: version,
	}, nil
}

// ValidateSession reports whether token is the account's current session token.
func (a *Authority) ValidateSession(ctx context.Context, accountType, accountID, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	stored, err := a.client.HGet(ctx, sessionKey(accountType, accountID), "token").Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("validate session: %w", err)
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(HashToken(token))) == 1, nil
}

// ValidateTokenVersion reports whether the account has an active session at
// exactly this version.
func (a *Authority) ValidateTokenVersion(ctx context.Context, accountType, accountID string, version int64) (bool, error) {
	active, current, err := a.state(ctx, accountType, accountID)
	if err != nil {
		return false, fmt.Errorf("validate token version: %w", err)
	}
	return active && current == version, nil
}

// CurrentVersion returns the account's token version, 0 if it never logged in.
func (a *Authority) CurrentVersion(ctx context.Context, accountType, accountID string) (int64, error) {
	_, current, err := a.state(ctx, accountType, accountID)
	return current, err
}

func (a *Authority) state(ctx context.Context, accountType, accountID string) (active bool, version int64, err error) {
	vals, err := a.client.HMGet(ctx, sessionKey(accountType, accountID), "token", "version").Result()
	if err != nil {
		return false, 0, err
	}
	if tok, ok := vals[0].(string); ok && tok != "" {
		active = true
	}
	if raw, ok := vals[1].(string); ok {
		version, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return false, 0, fmt.Errorf("corrupt token version %q: %w", raw, err)
		}
	}
	return active, version, nil
}

// Logout ends the account's session. Logging out twice is harmless.
func (a *Authority) Logout(ctx context.Context, accountType, accountID string) error {
	if err := logoutScript.Run(ctx, a.client, []string{sessionKey(accountType, accountID)}).Err(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	a.logger.Info("session ended", zap.String("accountType", accountType), zap.String("accountId", accountID))
	return nil
}

// IssueBearer signs a short lived credential bound to the session's version.
func (a *Authority) IssueBearer(sess Session, ttl time.Duration) (string, time.Time, error) {
	return a.signer.Issue(sess, ttl)
}

// Authenticate verifies a bearer credential: signature, expiry, and that its
// version is still the account's current one.
func (a *Authority) Authenticate(ctx context.Context, bearer string) (*Claims, error) {
	claims, err := a.signer.Parse(bearer)
	if err != nil {
		return nil, err
	}
	ok, err := a.ValidateTokenVersion(ctx, claims.AccountType, claims.Subject, claims.TokenVersion)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSessionSuperseded
	}
	return claims, nil
}

// AuthenticateCookie checks a cookie flow session token.
func (a *Authority) AuthenticateCookie(ctx context.Context, accountType, accountID, token string) error {
	ok, err := a.ValidateSession(ctx, accountType, accountID, token)
	if err != nil {
		return err
	}
	if !ok {
		// A cookie cannot tell expiry from replacement; both force a new login.
		return ErrSessionSuperseded
	}
	return nil
}

// IsSessionError reports whether err is one of the terminal session errors.
func IsSessionError(err error) bool {
	return errors.Is(err, ErrSessionInvalid) || errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrSessionSuperseded)
}
