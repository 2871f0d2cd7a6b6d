package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/intertool/cardinsight_api/internal/service"
	"github.com/intertool/cardinsight_api/internal/utils"
)

// AdminAuthHandler handles the management portal login.
type AdminAuthHandler struct {
	authService *service.AdminAuthService
}

func NewAdminAuthHandler(authService *service.AdminAuthService) *AdminAuthHandler {
	return &AdminAuthHandler{authService: authService}
}

// Login handles POST /api/admin/auth/login
func (h *AdminAuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	challenge, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err, "Failed to start admin login")
		return
	}

	utils.Success(c, http.StatusOK, "OTP generated. Demo OTP: "+challenge.OTP, challenge)
}

// Verify handles POST /api/admin/auth/verify
func (h *AdminAuthHandler) Verify(c *gin.Context) {
	var req struct {
		ChallengeID string `json:"challengeId" binding:"required"`
		OTP         string `json:"otp" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	session, err := h.authService.Verify(c.Request.Context(), req.ChallengeID, req.OTP)
	if err != nil {
		respondError(c, err, "Failed to verify OTP")
		return
	}

	utils.Success(c, http.StatusOK, "Login successful", session)
}
