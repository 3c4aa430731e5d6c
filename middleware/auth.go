package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"seatbook/models"
	"seatbook/services/session"
	"seatbook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionCookie carries "accountType:accountId:sessionToken" for browser clients.
const SessionCookie = "sb_session"

// Context keys set by SessionAuthMiddleware.
const (
	ContextAccountID   = "accountID"
	ContextAccountType = "accountType"
)

// SessionAuthenticator is the part of the session authority the middleware needs.
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, bearer string) (*session.Claims, error)
	AuthenticateCookie(ctx context.Context, accountType, accountID, token string) error
}

// SessionAuthMiddleware admits a request carrying either a current bearer
// credential or the current session cookie. A bearer header wins when both
// are present.
func SessionAuthMiddleware(auth SessionAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if header := c.GetHeader("Authorization"); header != "" {
			bearer, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || bearer == "" {
				abortSession(c, session.ErrSessionInvalid)
				return
			}
			claims, err := auth.Authenticate(ctx, bearer)
			if err != nil {
				abortSession(c, err)
				return
			}
			c.Set(ContextAccountID, claims.AccountID())
			c.Set(ContextAccountType, claims.AccountType)
			c.Next()
			return
		}

		raw, err := c.Cookie(SessionCookie)
		if err != nil || raw == "" {
			utils.JSONError(c, http.StatusUnauthorized, "SESSION_INVALID", "Authentication required", "")
			return
		}
		accountType, accountID, token, ok := ParseSessionCookie(raw)
		if !ok {
			abortSession(c, session.ErrSessionInvalid)
			return
		}
		if err := auth.AuthenticateCookie(ctx, accountType, accountID, token); err != nil {
			abortSession(c, err)
			return
		}
		c.Set(ContextAccountID, accountID)
		c.Set(ContextAccountType, accountType)
		c.Next()
	}
}

// RequireAccountType rejects accounts whose type is not listed. It must run
// after SessionAuthMiddleware.
func RequireAccountType(types ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		have := c.GetString(ContextAccountType)
		for _, t := range types {
			if have == t {
				c.Next()
				return
			}
		}
		utils.JSONError(c, http.StatusForbidden, "FORBIDDEN", "Account type not allowed", have)
	}
}

// FormatSessionCookie builds the cookie value for a session.
func FormatSessionCookie(accountType, accountID, token string) string {
	return accountType + ":" + accountID + ":" + token
}

// ParseSessionCookie splits a cookie value; unknown account types are rejected.
func ParseSessionCookie(raw string) (accountType, accountID, token string, ok bool) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 || !models.ValidAccountType(parts[0]) || parts[1] == "" || parts[2] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

func abortSession(c *gin.Context, err error) {
	if !session.IsSessionError(err) {
		utils.GetLogger().Error("session check failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal Server Error", "")
		return
	}
	switch {
	case errors.Is(err, session.ErrSessionExpired):
		utils.JSONError(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Session expired", "")
	case errors.Is(err, session.ErrSessionSuperseded):
		utils.JSONError(c, http.StatusUnauthorized, "SESSION_SUPERSEDED", "Signed in elsewhere", "")
	default:
		utils.JSONError(c, http.StatusUnauthorized, "SESSION_INVALID", "Invalid credentials", "")
	}
}
