package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/intertool/cardinsight_api/internal/cache"
	"github.com/intertool/cardinsight_api/internal/config"
	"github.com/intertool/cardinsight_api/internal/utils"
)

// AdminAuthService handles the management portal login: credentials, then a
// generated one-time code. The code is returned to the caller instead of
// being delivered anywhere.
type AdminAuthService struct {
	challenges *cache.ChallengeCache
	tokens     *utils.TokenManager
	cfg        config.AdminConfig
	sleep      SleepFunc
	generate   func() (string, error)
}

// NewAdminAuthService creates a new AdminAuthService.
func NewAdminAuthService(challenges *cache.ChallengeCache, tokens *utils.TokenManager, cfg config.AdminConfig) *AdminAuthService {
	return &AdminAuthService{
		challenges: challenges,
		tokens:     tokens,
		cfg:        cfg,
		sleep:      contextSleep,
		generate:   utils.GenerateOTP,
	}
}

// OTPChallenge is a pending code check. OTP is the demo code shown to the
// operator.
type OTPChallenge struct {
	ID        string    `json:"challengeId"`
	OTP       string    `json:"otp"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AdminSession is the result of a confirmed admin login.
type AdminSession struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login opens an OTP challenge when both fields are non-empty.
func (s *AdminAuthService) Login(ctx context.Context, email, password string) (*OTPChallenge, error) {
	if err := s.sleep(ctx, s.cfg.VerifyDelay); err != nil {
		return nil, err
	}

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		log.Warn().Msg("Admin login rejected: empty credentials")
		return nil, utils.ErrInvalidCredentials
	}

	ch, err := newChallenge(ctx, s.challenges, s.generate, email, nil)
	if err != nil {
		return nil, err
	}
	log.Info().Str("email", email).Str("challenge_id", ch.ID).Str("otp", ch.OTP).Msg("Generated admin login OTP")
	return ch, nil
}

// Verify exchanges a matching code for an admin token. A wrong code keeps the
// challenge open for another try.
func (s *AdminAuthService) Verify(ctx context.Context, challengeID, otp string) (*AdminSession, error) {
	if err := s.sleep(ctx, s.cfg.VerifyDelay); err != nil {
		return nil, err
	}

	ch, err := checkChallenge(ctx, s.challenges, challengeID, otp)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Generate(ch.ID, ch.Email, utils.ScopeAdmin, s.cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	log.Info().Str("email", ch.Email).Msg("Admin login successful")
	return &AdminSession{Token: token, Email: ch.Email, ExpiresAt: expiresAt}, nil
}

// newChallenge generates a code, stores its bcrypt hash with payload and
// returns the plaintext to the caller.
func newChallenge(
	ctx context.Context,
	store *cache.ChallengeCache,
	generate func() (string, error),
	email string,
	payload []byte,
) (*OTPChallenge, error) {
	code, err := generate()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	ch := &cache.Challenge{
		ID:       uuid.New().String(),
		Email:    email,
		CodeHash: string(hash),
		Payload:  payload,
	}
	if err := store.Save(ctx, ch); err != nil {
		return nil, err
	}
	return &OTPChallenge{ID: ch.ID, OTP: code, ExpiresAt: ch.ExpiresAt}, nil
}

// checkChallenge verifies otp against a stored challenge and consumes it on
// success.
func checkChallenge(ctx context.Context, store *cache.ChallengeCache, challengeID, otp string) (*cache.Challenge, error) {
	ch, err := store.Get(ctx, challengeID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, utils.ErrChallengeNotFound
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(ch.CodeHash), []byte(strings.TrimSpace(otp))); err != nil {
		log.Warn().Str("challenge_id", challengeID).Msg("OTP verification failed")
		return nil, utils.ErrInvalidOTP
	}

	consumed, err := store.Consume(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, utils.ErrChallengeNotFound
	}
	return ch, nil
}
