package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/intertool/cardinsight_api/internal/models"
	"github.com/intertool/cardinsight_api/internal/service"
	"github.com/intertool/cardinsight_api/internal/utils"
)

// UserHandler handles the admin user table endpoints.
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// List handles GET /api/admin/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.userService.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load users")
		return
	}
	utils.Success(c, http.StatusOK, "Users retrieved", users)
}

// Stats handles GET /api/admin/stats
func (h *UserHandler) Stats(c *gin.Context) {
	stats, err := h.userService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load stats")
		return
	}
	utils.Success(c, http.StatusOK, "Stats retrieved", stats)
}

// Create handles POST /api/admin/users
func (h *UserHandler) Create(c *gin.Context) {
	var req models.UserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Name, a valid email and role are required")
		return
	}

	res, err := h.userService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to create user")
		return
	}

	if res.Pending != nil {
		utils.Success(c, http.StatusAccepted, "OTP sent for admin verification. Demo OTP: "+res.Pending.OTP, res)
		return
	}
	utils.Success(c, http.StatusCreated, "User created successfully", res)
}

// ConfirmAdmin handles POST /api/admin/users/pending/:id/confirm
func (h *UserHandler) ConfirmAdmin(c *gin.Context) {
	var req struct {
		OTP string `json:"otp" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	user, err := h.userService.ConfirmAdminCreation(c.Request.Context(), c.Param("id"), req.OTP)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidOTP) {
			utils.Error(c, http.StatusUnauthorized, "INVALID_OTP", "Invalid OTP code. Please try again.")
			return
		}
		respondError(c, err, "Failed to create admin")
		return
	}
	utils.Success(c, http.StatusCreated, "Admin user created successfully", user)
}

// Update handles PUT /api/admin/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}

	var req models.UserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Name, a valid email and role are required")
		return
	}

	user, err := h.userService.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err, "Failed to update user")
		return
	}
	utils.Success(c, http.StatusOK, "User updated successfully", user)
}

// Delete handles DELETE /api/admin/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}

	if err := h.userService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete user")
		return
	}
	utils.Success(c, http.StatusOK, "User deleted successfully", nil)
}

func parseUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		utils.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return 0, false
	}
	return id, true
}
