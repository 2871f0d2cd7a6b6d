package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/intertool/cardinsight_api/internal/models"
	"github.com/intertool/cardinsight_api/internal/service"
	"github.com/intertool/cardinsight_api/internal/utils"
)

// LoginFlowHandler exposes the three-step portal login.
type LoginFlowHandler struct {
	flowService *service.LoginFlowService
}

// NewLoginFlowHandler constructs a LoginFlowHandler.
func NewLoginFlowHandler(flowService *service.LoginFlowService) *LoginFlowHandler {
	return &LoginFlowHandler{flowService: flowService}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type codeRequest struct {
	Code string `json:"code"`
}

// Start handles POST /api/login/flows
func (h *LoginFlowHandler) Start(c *gin.Context) {
	flow, err := h.flowService.Start(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to start login")
		return
	}
	utils.Success(c, http.StatusCreated, "Login started", flow)
}

// Get handles GET /api/login/flows/:id
func (h *LoginFlowHandler) Get(c *gin.Context) {
	flow, err := h.flowService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to load login")
		return
	}
	utils.Success(c, http.StatusOK, "Login retrieved", flow)
}

// Credentials handles POST /api/login/flows/:id/credentials
func (h *LoginFlowHandler) Credentials(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	res, err := h.flowService.SubmitCredentials(c.Request.Context(), c.Param("id"), req.Email, req.Password, requestMeta(c))
	h.respondStep(c, res, err, "Credentials verified")
}

// Authenticator handles POST /api/login/flows/:id/authenticator
func (h *LoginFlowHandler) Authenticator(c *gin.Context) {
	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	res, err := h.flowService.SubmitAuthenticator(c.Request.Context(), c.Param("id"), req.Code, requestMeta(c))
	h.respondStep(c, res, err, "Authenticator code verified")
}

// OTP handles POST /api/login/flows/:id/otp
func (h *LoginFlowHandler) OTP(c *gin.Context) {
	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	res, err := h.flowService.SubmitOTP(c.Request.Context(), c.Param("id"), req.Code, requestMeta(c))
	h.respondStep(c, res, err, "Login successful")
}

// Back handles POST /api/login/flows/:id/back
func (h *LoginFlowHandler) Back(c *gin.Context) {
	flow, err := h.flowService.Back(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to go back")
		return
	}
	utils.Success(c, http.StatusOK, "Moved back", flow)
}

// Logs handles GET /api/login/logs
func (h *LoginFlowHandler) Logs(c *gin.Context) {
	logs, err := h.flowService.RecentLogs(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load login logs")
		return
	}
	utils.Success(c, http.StatusOK, "Login logs retrieved", logs)
}

// respondStep reports a rejected submit with the unchanged flow so the
// portal can keep the user on the same step.
func (h *LoginFlowHandler) respondStep(c *gin.Context, res *service.StepResult, err error, message string) {
	if err == nil {
		utils.Success(c, http.StatusOK, message, res)
		return
	}
	if res != nil && res.Flow != nil && isStepRejection(err) {
		utils.ErrorWithData(c, http.StatusUnauthorized, err.Error(), utils.Message(err, message), res)
		return
	}
	respondError(c, err, "Failed to process login step")
}

func isStepRejection(err error) bool {
	return errors.Is(err, utils.ErrInvalidCredentials) ||
		errors.Is(err, utils.ErrInvalidAuthCode) ||
		errors.Is(err, utils.ErrInvalidOTP)
}

func requestMeta(c *gin.Context) models.RequestMeta {
	return models.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
