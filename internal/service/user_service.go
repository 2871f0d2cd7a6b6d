package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/intertool/cardinsight_api/internal/cache"
	"github.com/intertool/cardinsight_api/internal/models"
	"github.com/intertool/cardinsight_api/internal/utils"
)

// UserStore is the persistence the admin table needs.
type UserStore interface {
	List(ctx context.Context) ([]models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	HasActiveAdmin(ctx context.Context, excludeID int64) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context) (*models.UserStats, error)
}

// UserService manages the admin user table and keeps at most one active
// admin in it.
type UserService struct {
	store    UserStore
	pending  *cache.ChallengeCache
	generate func() (string, error)
	now      func() time.Time
}

// NewUserService creates a new UserService. pending holds admin creations
// awaiting OTP confirmation.
func NewUserService(store UserStore, pending *cache.ChallengeCache) *UserService {
	return &UserService{
		store:    store,
		pending:  pending,
		generate: utils.GenerateOTP,
		now:      time.Now,
	}
}

// CreateResult holds either the inserted user or, for admins, the pending
// confirmation.
type CreateResult struct {
	User    *models.User  `json:"user,omitempty"`
	Pending *OTPChallenge `json:"pending,omitempty"`
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.store.List(ctx)
}

// Stats returns the dashboard counters.
func (s *UserService) Stats(ctx context.Context) (*models.UserStats, error) {
	return s.store.Stats(ctx)
}

// Create inserts a regular user straight away. An admin is only staged
// behind an OTP, and only when no active admin exists.
func (s *UserService) Create(ctx context.Context, input models.UserInput) (*CreateResult, error) {
	input = normalizeInput(input)
	if !input.Role.Valid() {
		return nil, utils.ErrInvalidRole
	}

	if input.Role == models.RoleUser {
		user, err := s.insert(ctx, input)
		if err != nil {
			return nil, err
		}
		return &CreateResult{User: user}, nil
	}

	if err := s.ensureNoActiveAdmin(ctx, 0); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pending admin: %w", err)
	}
	ch, err := newChallenge(ctx, s.pending, s.generate, input.Email, payload)
	if err != nil {
		return nil, err
	}
	log.Info().Str("email", input.Email).Str("pending_id", ch.ID).Str("otp", ch.OTP).Msg("Admin creation pending OTP confirmation")
	return &CreateResult{Pending: ch}, nil
}

// ConfirmAdminCreation inserts a staged admin once its OTP matches.
func (s *UserService) ConfirmAdminCreation(ctx context.Context, pendingID, otp string) (*models.User, error) {
	ch, err := s.pending.Get(ctx, pendingID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, utils.ErrChallengeNotFound
		}
		return nil, err
	}

	var input models.UserInput
	if err := json.Unmarshal(ch.Payload, &input); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending admin: %w", err)
	}

	// An admin may have been created or promoted since the OTP was issued.
	if err := s.ensureNoActiveAdmin(ctx, 0); err != nil {
		_, _ = s.pending.Consume(ctx, pendingID)
		return nil, err
	}

	if _, err := checkChallenge(ctx, s.pending, pendingID, otp); err != nil {
		return nil, err
	}
	return s.insert(ctx, input)
}

// Update edits name, email, phone and role. Id, status and last login are
// kept.
func (s *UserService) Update(ctx context.Context, id int64, input models.UserInput) (*models.User, error) {
	input = normalizeInput(input)
	if !input.Role.Valid() {
		return nil, utils.ErrInvalidRole
	}

	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Delete refuses by role, so the admin role is fixed once held.
	if user.Role == models.RoleAdmin && input.Role != models.RoleAdmin {
		return nil, utils.ErrCannotChangeAdminRole
	}
	if input.Role == models.RoleAdmin && !user.IsActiveAdmin() && user.Status == models.StatusActive {
		if err := s.ensureNoActiveAdmin(ctx, id); err != nil {
			return nil, err
		}
	}

	user.Name = input.Name
	user.Email = input.Email
	user.Phone = input.Phone
	user.Role = input.Role
	if err := s.store.Update(ctx, user); err != nil {
		return nil, err
	}
	log.Info().Int64("user_id", id).Str("role", string(user.Role)).Msg("User updated")
	return user, nil
}

// Delete removes a non-admin user.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.Role == models.RoleAdmin {
		log.Warn().Int64("user_id", id).Msg("Refused to delete admin user")
		return utils.ErrCannotDeleteAdmin
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Int64("user_id", id).Msg("User deleted")
	return nil
}

func (s *UserService) insert(ctx context.Context, input models.UserInput) (*models.User, error) {
	user := &models.User{
		Name:      input.Name,
		Email:     input.Email,
		Phone:     input.Phone,
		Role:      input.Role,
		Status:    models.StatusActive,
		LastLogin: s.now().Format(models.LastLoginLayout),
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}
	log.Info().Int64("user_id", user.ID).Str("role", string(user.Role)).Msg("User created")
	return user, nil
}

func (s *UserService) ensureNoActiveAdmin(ctx context.Context, excludeID int64) error {
	exists, err := s.store.HasActiveAdmin(ctx, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return utils.ErrAdminExists
	}
	return nil
}

func normalizeInput(in models.UserInput) models.UserInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	return in
}
