package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/intertool/cardinsight_api/internal/utils"
)

// errorStatus maps service sentinels to HTTP status and API error code.
var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{utils.ErrFlowNotFound, http.StatusNotFound, "FLOW_NOT_FOUND"},
	{utils.ErrStepMismatch, http.StatusConflict, "STEP_MISMATCH"},
	{utils.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{utils.ErrInvalidAuthCode, http.StatusUnauthorized, "INVALID_AUTHENTICATOR_CODE"},
	{utils.ErrInvalidOTP, http.StatusUnauthorized, "INVALID_OTP"},
	{utils.ErrChallengeNotFound, http.StatusGone, "CHALLENGE_NOT_FOUND"},
	{utils.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{utils.ErrAdminExists, http.StatusConflict, "ADMIN_EXISTS"},
	{utils.ErrCannotDeleteAdmin, http.StatusForbidden, "CANNOT_DELETE_ADMIN"},
	{utils.ErrCannotChangeAdminRole, http.StatusForbidden, "CANNOT_CHANGE_ADMIN_ROLE"},
	{utils.ErrInvalidRole, http.StatusBadRequest, "INVALID_ROLE"},
	{utils.ErrFrontImageRequired, http.StatusBadRequest, "FRONT_IMAGE_REQUIRED"},
	{utils.ErrImageTooLarge, http.StatusRequestEntityTooLarge, "IMAGE_TOO_LARGE"},
	{utils.ErrInvalidManualData, http.StatusBadRequest, "INVALID_MANUAL_DATA"},
	{utils.ErrAnalysisUnavailable, http.StatusBadGateway, "ANALYSIS_FAILED"},
}

// respondError writes err as an API error. Unknown errors become a 500 with
// fallback as the message.
func respondError(c *gin.Context, err error, fallback string) {
	if errors.Is(err, context.Canceled) {
		utils.Error(c, 499, "REQUEST_CANCELED", "Request canceled")
		return
	}
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			utils.Error(c, e.status, e.code, utils.Message(err, fallback))
			return
		}
	}
	log.Error().Err(err).Str("path", c.FullPath()).Msg(fallback)
	utils.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", fallback)
}
