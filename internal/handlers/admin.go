package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"temanagement/api/internal/middleware"
	"temanagement/api/internal/respond"
)

func (h HandlerSet) AdminUnlockUser(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	actor, _ := middleware.CurrentUser(c)

	if err := h.authService.UnlockAccount(c.Request.Context(), actor.Email, userID); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Account unlocked"})
}

func (h HandlerSet) AdminRevokeSession(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	actor, _ := middleware.CurrentUser(c)

	if err := h.authService.RevokeSession(c.Request.Context(), actor.Email, userID); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Session revoked"})
}

func userIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(c, http.StatusBadRequest, "invalid_user_id", "User id must be a positive integer")
		return 0, false
	}
	return id, true
}
