package utils

import "errors"

// Common application errors used across services.
var (
	ErrInvalidToken          = errors.New("INVALID_TOKEN")
	ErrFlowNotFound          = errors.New("FLOW_NOT_FOUND")
	ErrStepMismatch          = errors.New("STEP_MISMATCH")
	ErrInvalidCredentials    = errors.New("INVALID_CREDENTIALS")
	ErrInvalidAuthCode       = errors.New("INVALID_AUTHENTICATOR_CODE")
	ErrInvalidOTP            = errors.New("INVALID_OTP")
	ErrChallengeNotFound     = errors.New("CHALLENGE_NOT_FOUND")
	ErrUserNotFound          = errors.New("USER_NOT_FOUND")
	ErrAdminExists           = errors.New("ADMIN_EXISTS")
	ErrCannotDeleteAdmin     = errors.New("CANNOT_DELETE_ADMIN")
	ErrCannotChangeAdminRole = errors.New("CANNOT_CHANGE_ADMIN_ROLE")
	ErrInvalidRole           = errors.New("INVALID_ROLE")
	ErrFrontImageRequired    = errors.New("FRONT_IMAGE_REQUIRED")
	ErrImageTooLarge         = errors.New("IMAGE_TOO_LARGE")
	ErrInvalidManualData     = errors.New("INVALID_MANUAL_DATA")
	ErrAnalysisUnavailable   = errors.New("ANALYSIS_UNAVAILABLE")
)

// userMessages holds the banner text shown for each sentinel.
var userMessages = map[error]string{
	ErrInvalidToken:          "Invalid or expired token",
	ErrFlowNotFound:          "Login session not found or expired",
	ErrStepMismatch:          "This step is not active for the login session",
	ErrInvalidCredentials:    "Invalid credentials",
	ErrInvalidAuthCode:       "Invalid authenticator code",
	ErrInvalidOTP:            "Invalid OTP code",
	ErrChallengeNotFound:     "Verification expired, please start again",
	ErrUserNotFound:          "User not found",
	ErrAdminExists:           "Only one admin can exist in the system. Cannot add another admin.",
	ErrCannotDeleteAdmin:     "Cannot delete admin user",
	ErrCannotChangeAdminRole: "Cannot change the role of an admin user",
	ErrInvalidRole:           "Role must be Admin or User",
	ErrFrontImageRequired:    "Please upload a front image of the business card.",
	ErrImageTooLarge:         "File size must be less than 5MB",
	ErrInvalidManualData:     "Manual data must be a JSON object",
	ErrAnalysisUnavailable:   "Failed to analyze business card. Please try again.",
}

// Message returns the user-facing text for a known sentinel, or fallback.
func Message(err error, fallback string) string {
	for sentinel, msg := range userMessages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return fallback
}
