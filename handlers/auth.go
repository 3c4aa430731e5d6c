package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	accountRepo "seatbook/database/repository/account"
	"seatbook/middleware"
	"seatbook/models"
	"seatbook/services/session"
	"seatbook/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// SessionIssuer starts and ends sessions.
type SessionIssuer interface {
	Login(ctx context.Context, accountType, accountID string) (session.Session, error)
	IssueBearer(sess session.Session, ttl time.Duration) (string, time.Time, error)
	Logout(ctx context.Context, accountType, accountID string) error
}

type AuthHandler struct {
	Accounts     accountRepo.AccountRepository
	Sessions     SessionIssuer
	BearerTTL    time.Duration
	SecureCookie bool

	bcryptCost int
}

func NewAuthHandler(accounts accountRepo.AccountRepository, sessions SessionIssuer, bearerTTL time.Duration, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		Accounts:     accounts,
		Sessions:     sessions,
		BearerTTL:    bearerTTL,
		SecureCookie: secureCookie,
		bcryptCost:   bcrypt.DefaultCost,
	}
}

type credentials struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type loginResponse struct {
	AccountID    string    `json:"accountId"`
	AccountType  string    `json:"accountType"`
	Bearer       string    `json:"bearer"`
	ExpiresAt    time.Time `json:"expiresAt"`
	TokenVersion int64     `json:"tokenVersion"`
}

// Register creates a passenger account. Operator and admin accounts are
// provisioned out of band.
func (h *AuthHandler) Register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid request body", err.Error())
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.bcryptCost)
	if err != nil {
		getLogger(c).Error("password hash failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal Server Error", "")
		return
	}

	account := &models.Account{
		ID:           uuid.New().String(),
		AccountType:  models.AccountTypeUser,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.Accounts.Create(c.Request.Context(), account); err != nil {
		if errors.Is(err, accountRepo.ErrEmailInUse) {
			utils.JSONError(c, http.StatusConflict, "EMAIL_IN_USE", "Email already registered", "")
			return
		}
		getLogger(c).Error("account create failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal Server Error", "")
		return
	}
	c.JSON(http.StatusCreated, account)
}

// Login checks the password and starts a new session, ending any other
// session of the account.
func (h *AuthHandler) Login(c *gin.Context) {
	logger := getLogger(c)
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid request body", err.Error())
		return
	}

	ctx := c.Request.Context()
	account, err := h.Accounts.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, accountRepo.ErrNotFound) {
		logger.Error("account lookup failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal Server Error", "")
		return
	}
	if account == nil || bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)) != nil {
		utils.JSONError(c, http.StatusUnauthorized, "SESSION_INVALID", "Invalid email or password", "")
		return
	}

	sess, err := h.Sessions.Login(ctx, account.AccountType, account.ID)
	if err != nil {
		logger.Error("session start failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal Server Error", "")
		return
	}
	bearer, exp, err := h.Sessions.IssueBearer(sess, h.BearerTTL)
	if err != nil {
		logger.Error("bearer issue failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal Server Error", "")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie,
		middleware.FormatSessionCookie(sess.AccountType, sess.AccountID, sess.SessionToken),
		0, "/", "", h.SecureCookie, true)
	c.JSON(http.StatusOK, loginResponse{
		AccountID:    account.ID,
		AccountType:  account.AccountType,
		Bearer:       bearer,
		ExpiresAt:    exp,
		TokenVersion: sess.TokenVersion,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	accountType := c.GetString(middleware.ContextAccountType)
	accountID := c.GetString(middleware.ContextAccountID)
	if err := h.Sessions.Logout(c.Request.Context(), accountType, accountID); err != nil {
		getLogger(c).Error("logout failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal Server Error", "")
		return
	}
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.SecureCookie, true)
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) Me(c *gin.Context) {
	account, err := h.Accounts.GetByID(c.Request.Context(), c.GetString(middleware.ContextAccountID))
	if err != nil {
		if errors.Is(err, accountRepo.ErrNotFound) {
			utils.JSONError(c, http.StatusNotFound, "NOT_FOUND", "Account not found", "")
			return
		}
		getLogger(c).Error("account lookup failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal Server Error", "")
		return
	}
	c.JSON(http.StatusOK, account)
}
