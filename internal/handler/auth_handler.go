package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/youthloop/webgate/internal/domain"
	"github.com/youthloop/webgate/internal/dto"
	"github.com/youthloop/webgate/internal/session"
	"github.com/youthloop/webgate/internal/upstream"
	"github.com/youthloop/webgate/internal/utils"
	"github.com/youthloop/webgate/pkg/observability"
)

// AuthHandler proxies the login flows to the backend API. On success it
// saves the credential server-side and drives the session state machine
// with the freshly loaded profile.
type AuthHandler struct {
	api     *upstream.Client
	store   session.CredentialStore
	metrics *observability.SessionMetrics
	logger  *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(api *upstream.Client, store session.CredentialStore, metrics *observability.SessionMetrics, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		api:     api,
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// LoginWithPassword handles the password login form.
func (h *AuthHandler) LoginWithPassword(c *gin.Context) {
	var req dto.PasswordLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	if !utils.ValidateAccount(req.Account) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: "account must be an email address or phone number",
		})
		return
	}

	cred, err := h.api.Auth().LoginWithPassword(c.Request.Context(), req.Account, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: upstream.UserMessage(err),
		})
		return
	}

	h.completeLogin(c, cred, http.StatusOK)
}

// LoginWithEmailOTP handles the one-time-code login form.
func (h *AuthHandler) LoginWithEmailOTP(c *gin.Context) {
	var req dto.OTPLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	if !utils.ValidateOTPCode(req.OTPCode) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: "code must be 6 digits",
		})
		return
	}

	cred, err := h.api.Auth().LoginWithEmailOTP(c.Request.Context(), utils.SanitizeEmail(req.Email), req.OTPCode)
	if err != nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: upstream.UserMessage(err),
		})
		return
	}

	h.completeLogin(c, cred, http.StatusOK)
}

// LoginWithGoogle handles the Google credential login.
func (h *AuthHandler) LoginWithGoogle(c *gin.Context) {
	var req dto.GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	cred, err := h.api.Auth().LoginWithGoogle(c.Request.Context(), req.Credential)
	if err != nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: upstream.UserMessage(err),
		})
		return
	}

	h.completeLogin(c, cred, http.StatusOK)
}

// Register handles the email registration form.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	if !utils.ValidateNickname(req.Nickname) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: "nickname must be 1-30 characters",
		})
		return
	}

	cred, err := h.api.Auth().RegisterWithEmail(
		c.Request.Context(),
		utils.SanitizeEmail(req.Email),
		req.Password,
		req.OTPCode,
		req.Nickname,
	)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: upstream.UserMessage(err),
		})
		return
	}

	h.completeLogin(c, cred, http.StatusCreated)
}

// SendOTP asks the backend to mail a one-time code.
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req dto.SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	if err := h.api.Auth().SendEmailOTP(c.Request.Context(), utils.SanitizeEmail(req.Email), req.Purpose); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: upstream.UserMessage(err),
		})
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "code sent"})
}

// ResetPassword handles the forgotten-password form. It does not log the
// user in; the web app routes back to the login form afterwards.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	if err := h.api.Auth().ResetPassword(c.Request.Context(), req.Account, req.OTPCode, req.NewPassword); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: upstream.UserMessage(err),
		})
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "password reset"})
}

// completeLogin stores the credential, loads the profile, and settles the
// session state machine Authenticated.
func (h *AuthHandler) completeLogin(c *gin.Context, cred domain.Credential, status int) {
	sessionID := SessionIDFrom(c)
	manager := ManagerFrom(c)
	if sessionID == "" || manager == nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: "session middleware not installed",
		})
		return
	}

	ctx := c.Request.Context()

	if err := h.store.Save(ctx, sessionID, cred); err != nil {
		h.logger.Error("failed to save credential", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:   "Service unavailable",
			Message: "failed to establish session",
		})
		return
	}

	profile, err := h.api.User().GetMyProfile(ctx, cred.AccessToken)
	if err != nil {
		// A credential that cannot fetch its own profile is useless;
		// roll the session back rather than leave it half logged in.
		if clearErr := h.store.Clear(ctx, sessionID); clearErr != nil {
			h.logger.Warn("failed to roll back credential", zap.Error(clearErr))
		}
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{
			Error:   "Bad gateway",
			Message: upstream.UserMessage(err),
		})
		return
	}

	manager.Login(*profile)
	h.metrics.Add(ctx, h.metrics.Logins, 1)

	snap := manager.Snapshot()
	c.JSON(status, dto.SnapshotResponse{
		User:       snap.User,
		Loading:    snap.Loading,
		IsLoggedIn: snap.IsLoggedIn,
	})
}
