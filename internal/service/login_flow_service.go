package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/intertool/cardinsight_api/internal/cache"
	"github.com/intertool/cardinsight_api/internal/config"
	"github.com/intertool/cardinsight_api/internal/models"
	"github.com/intertool/cardinsight_api/internal/sse"
	"github.com/intertool/cardinsight_api/internal/utils"
)

// LoginFlowService drives the Credentials -> Authenticator -> OTP
// Verification sequence. Validation is shallow: non-empty
// credentials and 6-digit codes. Nothing is checked against real accounts.
type LoginFlowService struct {
	flows    *cache.LoginFlowCache
	logs     *cache.LoginLogCache
	notifier sse.Notifier
	tokens   *utils.TokenManager
	cfg      config.LoginConfig
	sleep    SleepFunc
	now      func() time.Time
}

// NewLoginFlowService creates a new LoginFlowService.
func NewLoginFlowService(
	flows *cache.LoginFlowCache,
	logs *cache.LoginLogCache,
	notifier sse.Notifier,
	tokens *utils.TokenManager,
	cfg config.LoginConfig,
) *LoginFlowService {
	if notifier == nil {
		notifier = sse.NopNotifier{}
	}
	return &LoginFlowService{
		flows:    flows,
		logs:     logs,
		notifier: notifier,
		tokens:   tokens,
		cfg:      cfg,
		sleep:    contextSleep,
		now:      time.Now,
	}
}

// StepResult is returned by every submit.
type StepResult struct {
	Flow            *models.LoginFlow `json:"flow"`
	ProvisioningURI string            `json:"provisioningUri,omitempty"`
	Token           string            `json:"token,omitempty"`
	TokenExpiresAt  *time.Time        `json:"tokenExpiresAt,omitempty"`
}

// Start opens a new flow at the Credentials step.
func (s *LoginFlowService) Start(ctx context.Context) (*models.LoginFlow, error) {
	now := s.now()
	flow := &models.LoginFlow{
		ID:        uuid.New().String(),
		Step:      models.StepCredentials,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.flows.TTL()),
	}
	if err := s.flows.Save(ctx, flow); err != nil {
		return nil, err
	}
	log.Debug().Str("flow_id", flow.ID).Msg("Login flow started")
	return flow, nil
}

// Get returns the current state of a flow.
func (s *LoginFlowService) Get(ctx context.Context, flowID string) (*models.LoginFlow, error) {
	return s.load(ctx, flowID)
}

// SubmitCredentials advances to Authenticator when both fields are non-empty.
func (s *LoginFlowService) SubmitCredentials(ctx context.Context, flowID, email, password string, meta models.RequestMeta) (*StepResult, error) {
	flow, err := s.loadAt(ctx, flowID, models.StepCredentials)
	if err != nil {
		return nil, err
	}
	if err := s.sleep(ctx, s.cfg.CredentialsDelay); err != nil {
		return nil, err
	}

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		s.record(ctx, models.StepCredentials, models.LoginStatusFailed, meta)
		return &StepResult{Flow: flow}, utils.ErrInvalidCredentials
	}

	flow.Email = email
	if err := s.advance(ctx, flow, models.StepAuthenticator); err != nil {
		return nil, err
	}
	s.record(ctx, models.StepCredentials, models.LoginStatusSuccess, meta)

	return &StepResult{
		Flow:            flow,
		ProvisioningURI: s.ProvisioningURI(email),
	}, nil
}

// SubmitAuthenticator advances to OTP Verification on a 6-digit code.
func (s *LoginFlowService) SubmitAuthenticator(ctx context.Context, flowID, code string, meta models.RequestMeta) (*StepResult, error) {
	flow, err := s.loadAt(ctx, flowID, models.StepAuthenticator)
	if err != nil {
		return nil, err
	}
	if err := s.sleep(ctx, s.cfg.CodeDelay); err != nil {
		return nil, err
	}

	if len(utils.NormalizeCode(code)) != utils.OTPLength {
		s.record(ctx, models.StepAuthenticator, models.LoginStatusFailed, meta)
		return &StepResult{Flow: flow}, utils.ErrInvalidAuthCode
	}

	if err := s.advance(ctx, flow, models.StepOTPVerification); err != nil {
		return nil, err
	}
	s.record(ctx, models.StepAuthenticator, models.LoginStatusSuccess, meta)
	return &StepResult{Flow: flow}, nil
}

// SubmitOTP completes the flow on a 6-digit code and issues a portal token.
func (s *LoginFlowService) SubmitOTP(ctx context.Context, flowID, code string, meta models.RequestMeta) (*StepResult, error) {
	flow, err := s.loadAt(ctx, flowID, models.StepOTPVerification)
	if err != nil {
		return nil, err
	}
	if err := s.sleep(ctx, s.cfg.CodeDelay); err != nil {
		return nil, err
	}

	if len(utils.NormalizeCode(code)) != utils.OTPLength {
		s.record(ctx, models.StepOTPVerification, models.LoginStatusFailed, meta)
		return &StepResult{Flow: flow}, utils.ErrInvalidOTP
	}

	token, expiresAt, err := s.tokens.Generate(flow.ID, flow.Email, utils.ScopeUser, s.cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	if err := s.finish(ctx, flow); err != nil {
		return nil, err
	}
	s.record(ctx, models.StepOTPVerification, models.LoginStatusSuccess, meta)

	log.Info().Str("flow_id", flow.ID).Str("email", flow.Email).Msg("Login flow completed")
	return &StepResult{Flow: flow, Token: token, TokenExpiresAt: &expiresAt}, nil
}

// Back moves one step towards Credentials. It is not logged.
func (s *LoginFlowService) Back(ctx context.Context, flowID string) (*models.LoginFlow, error) {
	flow, err := s.load(ctx, flowID)
	if err != nil {
		return nil, err
	}

	var prev models.LoginStep
	switch flow.Step {
	case models.StepAuthenticator:
		prev = models.StepCredentials
	case models.StepOTPVerification:
		prev = models.StepAuthenticator
	default:
		return nil, fmt.Errorf("%w: cannot go back from %s", utils.ErrStepMismatch, flow.Step)
	}

	if err := s.advance(ctx, flow, prev); err != nil {
		return nil, err
	}
	return flow, nil
}

// RecentLogs returns the capped access log, newest first.
func (s *LoginFlowService) RecentLogs(ctx context.Context) ([]models.LoginLog, error) {
	return s.logs.Recent(ctx)
}

// ProvisioningURI returns the otpauth:// URI the authenticator step shows as
// a QR code.
func (s *LoginFlowService) ProvisioningURI(account string) string {
	if account == "" {
		account = "user@company.com"
	}
	issuer := s.cfg.AuthenticatorName
	v := url.Values{}
	v.Set("secret", s.cfg.AuthenticatorKey)
	v.Set("issuer", issuer)
	return "otpauth://totp/" + url.PathEscape(issuer+":"+account) + "?" + v.Encode()
}

func (s *LoginFlowService) load(ctx context.Context, flowID string) (*models.LoginFlow, error) {
	flow, err := s.flows.Get(ctx, flowID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, utils.ErrFlowNotFound
		}
		return nil, err
	}
	return flow, nil
}

func (s *LoginFlowService) loadAt(ctx context.Context, flowID string, step models.LoginStep) (*models.LoginFlow, error) {
	flow, err := s.load(ctx, flowID)
	if err != nil {
		return nil, err
	}
	if flow.Step != step {
		return nil, fmt.Errorf("%w: flow is at %s, not %s", utils.ErrStepMismatch, flow.Step, step)
	}
	return flow, nil
}

func (s *LoginFlowService) advance(ctx context.Context, flow *models.LoginFlow, next models.LoginStep) error {
	flow.Step = next
	flow.UpdatedAt = s.now()
	flow.ExpiresAt = flow.UpdatedAt.Add(s.flows.TTL())
	return s.flows.Save(ctx, flow)
}

// finish marks flow Authenticated and drops its stored state so the
// finished flow cannot be replayed.
func (s *LoginFlowService) finish(ctx context.Context, flow *models.LoginFlow) error {
	flow.Step = models.StepAuthenticated
	flow.UpdatedAt = s.now()
	return s.flows.Delete(ctx, flow.ID)
}

// record appends an access log entry. A storage failure is logged and does
// not fail the step.
func (s *LoginFlowService) record(ctx context.Context, step models.LoginStep, status models.LoginStatus, meta models.RequestMeta) {
	ip := s.cfg.MockIPAddress
	if ip == "" {
		ip = meta.IPAddress
	}
	entry := &models.LoginLog{
		ID:        uuid.New().String(),
		Timestamp: s.now().UTC(),
		IPAddress: ip,
		UserAgent: meta.UserAgent,
		Status:    status,
		Step:      step,
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		log.Error().Err(err).Str("step", string(step)).Msg("Failed to append login log")
		return
	}
	s.notifier.NotifyLoginLogged(entry)
}
