package models

import "time"

// LoginStep identifies a state of the three-step login flow.
type LoginStep string

const (
	StepCredentials     LoginStep = "Credentials"
	StepAuthenticator   LoginStep = "Authenticator"
	StepOTPVerification LoginStep = "OTP Verification"
	StepAuthenticated   LoginStep = "Authenticated"
)

// LoginStatus is the outcome recorded in a LoginLog.
type LoginStatus string

const (
	LoginStatusSuccess LoginStatus = "success"
	LoginStatusFailed  LoginStatus = "failed"
)

// LoginLog is a single access log entry. The JSON shape matches what the
// portal keeps under the loginLogs key.
type LoginLog struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	IPAddress string      `json:"ipAddress"`
	UserAgent string      `json:"userAgent"`
	Status    LoginStatus `json:"status"`
	Step      LoginStep   `json:"step"`
}

// LoginFlow is the server-side state of one login attempt.
type LoginFlow struct {
	ID        string    `json:"id"`
	Step      LoginStep `json:"step"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RequestMeta carries the caller details recorded on every log entry.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}
