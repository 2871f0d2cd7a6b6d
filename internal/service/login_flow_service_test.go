package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/intertool/cardinsight_api/internal/cache"
	"github.com/intertool/cardinsight_api/internal/config"
	"github.com/intertool/cardinsight_api/internal/models"
	"github.com/intertool/cardinsight_api/internal/utils"
)

var testMeta = models.RequestMeta{IPAddress: "10.0.0.7", UserAgent: "go-test"}

func newTestLoginFlowService(t *testing.T, cfg config.LoginConfig) (*LoginFlowService, *recordingNotifier) {
	t.Helper()
	rc, _ := newTestRedis(t)
	if cfg.AuthenticatorKey == "" {
		cfg.AuthenticatorKey = "JBSWY3DPEHPK3PXP"
		cfg.AuthenticatorName = "Secure Portal"
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = time.Hour
	}
	notifier := &recordingNotifier{}
	svc := NewLoginFlowService(
		cache.NewLoginFlowCache(rc, 15*time.Minute),
		cache.NewLoginLogCache(rc),
		notifier,
		utils.NewTokenManager("test-secret"),
		cfg,
	)
	svc.sleep = noSleep
	return svc, notifier
}

func startFlow(t *testing.T, svc *LoginFlowService) *models.LoginFlow {
	t.Helper()
	flow, err := svc.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if flow.Step != models.StepCredentials {
		t.Fatalf("expected Credentials, got %s", flow.Step)
	}
	return flow
}

func currentStep(t *testing.T, svc *LoginFlowService, id string) models.LoginStep {
	t.Helper()
	flow, err := svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	return flow.Step
}

func TestLoginFlowHappyPath(t *testing.T) {
	svc, notifier := newTestLoginFlowService(t, config.LoginConfig{MockIPAddress: "192.168.1.1"})
	ctx := context.Background()
	flow := startFlow(t, svc)

	res, err := svc.SubmitCredentials(ctx, flow.ID, "demo@company.com", "demo123", testMeta)
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	if res.Flow.Step != models.StepAuthenticator {
		t.Fatalf("expected Authenticator, got %s", res.Flow.Step)
	}
	if !strings.HasPrefix(res.ProvisioningURI, "otpauth://totp/Secure%20Portal:demo@company.com?") ||
		!strings.Contains(res.ProvisioningURI, "secret=JBSWY3DPEHPK3PXP") {
		t.Fatalf("unexpected provisioning uri %q", res.ProvisioningURI)
	}

	if res, err = svc.SubmitAuthenticator(ctx, flow.ID, "123456", testMeta); err != nil {
		t.Fatalf("authenticator: %v", err)
	}
	if res.Flow.Step != models.StepOTPVerification {
		t.Fatalf("expected OTP Verification, got %s", res.Flow.Step)
	}

	if res, err = svc.SubmitOTP(ctx, flow.ID, "654321", testMeta); err != nil {
		t.Fatalf("otp: %v", err)
	}
	if res.Flow.Step != models.StepAuthenticated || res.Token == "" {
		t.Fatalf("expected authenticated flow with token, got %+v", res)
	}

	claims, err := svc.tokens.Validate(res.Token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.Email != "demo@company.com" || claims.Scope != utils.ScopeUser || claims.Subject != flow.ID {
		t.Fatalf("unexpected claims %+v", claims)
	}

	logs, err := svc.RecentLogs(ctx)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	wantSteps := []models.LoginStep{models.StepOTPVerification, models.StepAuthenticator, models.StepCredentials}
	if len(logs) != len(wantSteps) {
		t.Fatalf("expected %d logs, got %d", len(wantSteps), len(logs))
	}
	for i, step := range wantSteps {
		if logs[i].Step != step || logs[i].Status != models.LoginStatusSuccess {
			t.Fatalf("log %d: got %s/%s", i, logs[i].Step, logs[i].Status)
		}
		if logs[i].IPAddress != "192.168.1.1" || logs[i].UserAgent != "go-test" {
			t.Fatalf("log %d: unexpected meta %+v", i, logs[i])
		}
	}
	if len(notifier.logs) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(notifier.logs))
	}
}

func TestStartReportsExpiry(t *testing.T) {
	svc, _ := newTestLoginFlowService(t, config.LoginConfig{})
	flow := startFlow(t, svc)
	if got := flow.ExpiresAt.Sub(flow.CreatedAt); got != 15*time.Minute {
		t.Fatalf("expected 15m expiry window, got %s", got)
	}

	res, err := svc.SubmitCredentials(context.Background(), flow.ID, "demo@company.com", "demo123", testMeta)
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	if got := res.Flow.ExpiresAt.Sub(res.Flow.UpdatedAt); got != 15*time.Minute {
		t.Fatalf("expected expiry refreshed on advance, got %s", got)
	}
}

func TestAuthenticatedFlowIsRemoved(t *testing.T) {
	svc, _ := newTestLoginFlowService(t, config.LoginConfig{})
	ctx := context.Background()
	flow := startFlow(t, svc)

	if _, err := svc.SubmitCredentials(ctx, flow.ID, "demo@company.com", "demo123", testMeta); err != nil {
		t.Fatalf("credentials: %v", err)
	}
	if _, err := svc.SubmitAuthenticator(ctx, flow.ID, "123456", testMeta); err != nil {
		t.Fatalf("authenticator: %v", err)
	}
	if _, err := svc.SubmitOTP(ctx, flow.ID, "654321", testMeta); err != nil {
		t.Fatalf("otp: %v", err)
	}

	if _, err := svc.Get(ctx, flow.ID); !errors.Is(err, utils.ErrFlowNotFound) {
		t.Fatalf("expected finished flow to be gone, got %v", err)
	}
	if _, err := svc.SubmitOTP(ctx, flow.ID, "654321", testMeta); !errors.Is(err, utils.ErrFlowNotFound) {
		t.Fatalf("expected replayed otp to be rejected, got %v", err)
	}
}

func TestEmptyCredentialsNeverAdvance(t *testing.T) {
	svc, _ := newTestLoginFlowService(t, config.LoginConfig{})
	ctx := context.Background()
	flow := startFlow(t, svc)

	cases := []struct{ email, password string }{
		{"", ""},
		{"demo@company.com", ""},
		{"", "demo123"},
		{"   ", "demo123"},
	}
	for _, tc := range cases {
		_, err := svc.SubmitCredentials(ctx, flow.ID, tc.email, tc.password, testMeta)
		if !errors.Is(err, utils.ErrInvalidCredentials) {
			t.Fatalf("%q/%q: expected ErrInvalidCredentials, got %v", tc.email, tc.password, err)
		}
		if step := currentStep(t, svc, flow.ID); step != models.StepCredentials {
			t.Fatalf("%q/%q: flow advanced to %s", tc.email, tc.password, step)
		}
	}

	logs, err := svc.RecentLogs(ctx)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(logs) != len(cases) {
		t.Fatalf("expected one failed log per attempt, got %d", len(logs))
	}
	for _, l := range logs {
		if l.Status != models.LoginStatusFailed || l.Step != models.StepCredentials {
			t.Fatalf("unexpected log %+v", l)
		}
	}
}

func TestShortCodesNeverAdvance(t *testing.T) {
	svc, _ := newTestLoginFlowService(t, config.LoginConfig{})
	ctx := context.Background()
	flow := startFlow(t, svc)

	if _, err := svc.SubmitCredentials(ctx, flow.ID, "demo@company.com", "demo123", testMeta); err != nil {
		t.Fatalf("credentials: %v", err)
	}

	for _, code := range []string{"", "12345", "abcdef", "12a45"} {
		if _, err := svc.SubmitAuthenticator(ctx, flow.ID, code, testMeta); !errors.Is(err, utils.ErrInvalidAuthCode) {
			t.Fatalf("authenticator %q: expected ErrInvalidAuthCode, got %v", code, err)
		}
		if step := currentStep(t, svc, flow.ID); step != models.StepAuthenticator {
			t.Fatalf("authenticator %q: advanced to %s", code, step)
		}
	}

	if _, err := svc.SubmitAuthenticator(ctx, flow.ID, "000000", testMeta); err != nil {
		t.Fatalf("authenticator: %v", err)
	}
	for _, code := range []string{"1", "99999"} {
		if _, err := svc.SubmitOTP(ctx, flow.ID, code, testMeta); !errors.Is(err, utils.ErrInvalidOTP) {
			t.Fatalf("otp %q: expected ErrInvalidOTP, got %v", code, err)
		}
		if step := currentStep(t, svc, flow.ID); step != models.StepOTPVerification {
			t.Fatalf("otp %q: advanced to %s", code, step)
		}
	}
}

func TestSevenDigitCodeIsTruncated(t *testing.T) {
	svc, _ := newTestLoginFlowService(t, config.LoginConfig{})
	ctx := context.Background()
	flow := startFlow(t, svc)
	if _, err := svc.SubmitCredentials(ctx, flow.ID, "a@b.c", "x", testMeta); err != nil {
		t.Fatalf("credentials: %v", err)
	}
	if _, err := svc.SubmitAuthenticator(ctx, flow.ID, "1234567", testMeta); err != nil {
		t.Fatalf("expected truncated code to pass, got %v", err)
	}
}

func TestSubmitOutOfOrderIsRejected(t *testing.T) {
	svc, _ := newTestLoginFlowService(t, config.LoginConfig{})
	ctx := context.Background()
	flow := startFlow(t, svc)

	if _, err := svc.SubmitOTP(ctx, flow.ID, "123456", testMeta); !errors.Is(err, utils.ErrStepMismatch) {
		t.Fatalf("expected ErrStepMismatch, got %v", err)
	}
	if step := currentStep(t, svc, flow.ID); step != models.StepCredentials {
		t.Fatalf("flow moved to %s", step)
	}
	logs, _ := svc.RecentLogs(ctx)
	if len(logs) != 0 {
		t.Fatalf("expected no logs for rejected submit, got %d", len(logs))
	}
}

func TestBackNavigation(t *testing.T) {
	svc, _ := newTestLoginFlowService(t, config.LoginConfig{})
	ctx := context.Background()
	flow := startFlow(t, svc)

	if _, err := svc.Back(ctx, flow.ID); !errors.Is(err, utils.ErrStepMismatch) {
		t.Fatalf("expected ErrStepMismatch from Credentials, got %v", err)
	}
	if _, err := svc.SubmitCredentials(ctx, flow.ID, "a@b.c", "x", testMeta); err != nil {
		t.Fatalf("credentials: %v", err)
	}
	if _, err := svc.SubmitAuthenticator(ctx, flow.ID, "123456", testMeta); err != nil {
		t.Fatalf("authenticator: %v", err)
	}

	back, err := svc.Back(ctx, flow.ID)
	if err != nil || back.Step != models.StepAuthenticator {
		t.Fatalf("back from OTP: step=%v err=%v", back, err)
	}
	back, err = svc.Back(ctx, flow.ID)
	if err != nil || back.Step != models.StepCredentials {
		t.Fatalf("back from Authenticator: step=%v err=%v", back, err)
	}
}

func TestUnknownFlow(t *testing.T) {
	svc, _ := newTestLoginFlowService(t, config.LoginConfig{})
	if _, err := svc.SubmitCredentials(context.Background(), "missing", "a", "b", testMeta); !errors.Is(err, utils.ErrFlowNotFound) {
		t.Fatalf("expected ErrFlowNotFound, got %v", err)
	}
}

func TestLoginLogsCappedAtTen(t *testing.T) {
	svc, _ := newTestLoginFlowService(t, config.LoginConfig{})
	ctx := context.Background()
	flow := startFlow(t, svc)

	base := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for i := 0; i < 13; i++ {
		_, _ = svc.SubmitCredentials(ctx, flow.ID, "", "", testMeta)
	}
	logs, err := svc.RecentLogs(ctx)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(logs) != cache.MaxLoginLogs {
		t.Fatalf("expected %d logs, got %d", cache.MaxLoginLogs, len(logs))
	}
	for i := 1; i < len(logs); i++ {
		if !logs[i].Timestamp.Before(logs[i-1].Timestamp) {
			t.Fatalf("logs not newest first at %d: %s then %s", i, logs[i-1].Timestamp, logs[i].Timestamp)
		}
	}
}

func TestRequestIPUsedWithoutMock(t *testing.T) {
	svc, _ := newTestLoginFlowService(t, config.LoginConfig{MockIPAddress: ""})
	ctx := context.Background()
	flow := startFlow(t, svc)
	_, _ = svc.SubmitCredentials(ctx, flow.ID, "", "", testMeta)

	logs, _ := svc.RecentLogs(ctx)
	if len(logs) != 1 || logs[0].IPAddress != testMeta.IPAddress {
		t.Fatalf("expected request ip, got %+v", logs)
	}
}

func TestCanceledContextDuringDelay(t *testing.T) {
	svc, _ := newTestLoginFlowService(t, config.LoginConfig{CredentialsDelay: time.Hour})
	svc.sleep = contextSleep
	flow := startFlow(t, svc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.SubmitCredentials(ctx, flow.ID, "a@b.c", "x", testMeta); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if step := currentStep(t, svc, flow.ID); step != models.StepCredentials {
		t.Fatalf("flow moved to %s", step)
	}
}
