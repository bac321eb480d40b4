package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"temanagement/api/internal/middleware"
	"temanagement/api/internal/respond"
	"temanagement/api/internal/service"
	"temanagement/api/internal/validation"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8,max=72"`
}

type userResponse struct {
	ID         string  `json:"id"`
	Email      string  `json:"email"`
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	Role       string  `json:"role"`
	Department string  `json:"department"`
	Avatar     *string `json:"avatar"`
}

type loginResponse struct {
	User         userResponse `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
}

type tokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Validation(c, http.StatusBadRequest, validation.Messages(err))
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		User:         toUserResponse(result.User),
		Token:        result.AccessToken,
		RefreshToken: result.RefreshToken,
	})
}

func (h HandlerSet) Logout(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.fail(c, service.ErrUnauthorized)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), user.ID); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (h HandlerSet) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Validation(c, http.StatusBadRequest, validation.Messages(err))
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h HandlerSet) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.fail(c, service.ErrUnauthorized)
		return
	}

	profile, err := h.authService.CurrentUser(c.Request.Context(), user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(profile))
}

func (h HandlerSet) ChangePassword(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.fail(c, service.ErrUnauthorized)
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Validation(c, http.StatusBadRequest, validation.Messages(err))
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Password changed successfully"})
}

func toUserResponse(p service.UserProfile) userResponse {
	return userResponse{
		ID:         p.ID,
		Email:      p.Email,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Role:       string(p.Role),
		Department: p.Department,
		Avatar:     p.Avatar,
	}
}

var errorResponses = []struct {
	err     error
	status  int
	code    string
	message string
}{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials"},
	{service.ErrAccountNotActive, http.StatusUnauthorized, "account_not_active", "Account is not active"},
	{service.ErrInvalidRefreshToken, http.StatusUnauthorized, "invalid_refresh_token", "Invalid refresh token"},
	{service.ErrInvalidCurrentPassword, http.StatusBadRequest, "invalid_current_password", "Current password is incorrect"},
	{service.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "Unauthorized"},
	{service.ErrForbidden, http.StatusForbidden, "forbidden", "Insufficient permissions"},
	{service.ErrUserNotFound, http.StatusNotFound, "user_not_found", "User not found"},
}

func (h HandlerSet) fail(c *gin.Context, err error) {
	for _, known := range errorResponses {
		if errors.Is(err, known.err) {
			respond.Error(c, known.status, known.code, known.message)
			return
		}
	}

	h.log.Error().Err(err).Str("path", c.Request.URL.Path).Str("request_id", middleware.RequestIDFrom(c)).Msg("request failed")
	respond.Internal(c, http.StatusInternalServerError, err, h.cfg.IsDevelopment())
}
