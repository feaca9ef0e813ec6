package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatterbox-app/auth-service/internal/dto"
	"github.com/chatterbox-app/auth-service/internal/oauth"
	"github.com/chatterbox-app/auth-service/internal/service"
)

const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/api/v1/auth"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register handles user signup
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken), errors.Is(err, service.ErrUsernameTaken):
			c.JSON(http.StatusConflict, dto.ErrorResponse{Error: "Conflict", Message: err.Error()})
		case errors.Is(err, service.ErrInvalidEmail),
			errors.Is(err, service.ErrInvalidUsername),
			errors.Is(err, service.ErrWeakPassword):
			badRequest(c, err.Error())
		default:
			serverError(c)
		}
		return
	}

	h.setRefreshCookie(c, result)
	c.JSON(http.StatusCreated, result.AuthResponse)
}

// Login handles user login with email or username
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		h.writeLoginError(c, err)
		return
	}

	h.setRefreshCookie(c, result)
	c.JSON(http.StatusOK, result.AuthResponse)
}

// Refresh mints a fresh access token from the refresh token carried in the
// cookie or, for non-browser clients, the request body.
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshCookieName)
	if err != nil || refreshToken == "" {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || body.RefreshToken == "" {
			badRequest(c, "Refresh token not found")
			return
		}
		refreshToken = body.RefreshToken
	}

	resp, err := h.authService.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		h.writeLoginError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Logout clears the refresh cookie. Tokens are stateless, so nothing is
// revoked server-side.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(refreshCookieName, "", -1, refreshCookiePath, "", true, true)
	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Logged out successfully"})
}

// GetMe returns the authenticated user's profile
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID := c.GetString(ContextUserID)

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		serverError(c)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateMe updates the authenticated user's profile
func (h *AuthHandler) UpdateMe(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := h.authService.UpdateProfile(c.Request.Context(), c.GetString(ContextUserID), &req); err != nil {
		serverError(c)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Profile updated"})
}

// ChangePassword replaces the authenticated user's password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	err := h.authService.ChangePassword(c.Request.Context(), c.GetString(ContextUserID), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			unauthorized(c)
		case errors.Is(err, service.ErrWeakPassword):
			badRequest(c, err.Error())
		default:
			serverError(c)
		}
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Password changed"})
}

// GoogleStart redirects the browser to the provider authorization URL
func (h *AuthHandler) GoogleStart(c *gin.Context) {
	redirectURL, err := h.authService.BeginOAuth()
	if err != nil {
		if errors.Is(err, service.ErrOAuthNotConfigured) {
			c.JSON(http.StatusNotImplemented, dto.ErrorResponse{
				Error:   "Not implemented",
				Message: "Federated login is not configured",
			})
			return
		}
		serverError(c)
		return
	}

	c.Redirect(http.StatusFound, redirectURL)
}

// GoogleCallback finishes the federated login flow
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if c.Query("error") != "" {
		unauthorized(c)
		return
	}

	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		badRequest(c, "Missing code or state")
		return
	}

	result, err := h.authService.CompleteOAuth(c.Request.Context(), code, state)
	if err != nil {
		switch {
		case errors.Is(err, oauth.ErrInvalidState):
			unauthorized(c)
		case errors.Is(err, oauth.ErrExchangeFailed), errors.Is(err, oauth.ErrProfileFetchFailed):
			c.JSON(http.StatusBadGateway, dto.ErrorResponse{
				Error:   "Bad gateway",
				Message: "Identity provider request failed",
			})
		case errors.Is(err, service.ErrAccountInactive):
			c.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden", Message: err.Error()})
		default:
			serverError(c)
		}
		return
	}

	h.setRefreshCookie(c, result)
	c.JSON(http.StatusOK, result.AuthResponse)
}

// CheckEmail reports whether an email is free to register
func (h *AuthHandler) CheckEmail(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		badRequest(c, "Email required")
		return
	}

	available, err := h.authService.EmailAvailable(c.Request.Context(), email)
	if err != nil {
		serverError(c)
		return
	}

	c.JSON(http.StatusOK, dto.AvailabilityResponse{Available: available})
}

// CheckUsername reports whether a username is free to register
func (h *AuthHandler) CheckUsername(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		badRequest(c, "Username required")
		return
	}

	available, err := h.authService.UsernameAvailable(c.Request.Context(), username)
	if err != nil {
		serverError(c)
		return
	}

	c.JSON(http.StatusOK, dto.AvailabilityResponse{Available: available})
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, result *service.AuthResult) {
	c.SetCookie(refreshCookieName, result.RefreshToken, result.RefreshExpiresIn, refreshCookiePath, "", true, true)
}

// writeLoginError maps gateway authentication errors onto responses without
// leaking which check failed.
func (h *AuthHandler) writeLoginError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAccountInactive):
		c.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden", Message: err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		unauthorized(c)
	default:
		serverError(c)
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Bad request", Message: message})
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized", Message: "Authentication failed"})
}

func serverError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error", Message: "Something went wrong"})
}
