package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/intertool/cardinsight_api/internal/models"
	"github.com/intertool/cardinsight_api/internal/utils"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const userColumns = `id, name, email, phone, role, status,
	to_char(last_login, 'YYYY-MM-DD') AS last_login, created_at, updated_at`

// UserRepository handles the admin user table.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// List returns all users ordered by id.
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// GetByID returns a user or utils.ErrUserNotFound.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &user, nil
}

// HasActiveAdmin reports whether an active admin exists, ignoring excludeID
// (pass 0 to consider every row).
func (r *UserRepository) HasActiveAdmin(ctx context.Context, excludeID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (
		SELECT 1 FROM users WHERE role = 'Admin' AND status = 'Active' AND id <> $1
	)`
	if err := r.db.GetContext(ctx, &exists, query, excludeID); err != nil {
		return false, fmt.Errorf("check active admin: %w", err)
	}
	return exists, nil
}

// Create inserts user and fills its generated columns.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (name, email, phone, role, status, last_login)
		VALUES ($1, $2, $3, $4, $5, $6::date)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		user.Name, user.Email, user.Phone, user.Role, user.Status, user.LastLogin,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

// Update writes the editable fields of user. Status and last login are left
// untouched.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET name = $1, email = $2, phone = $3, role = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		user.Name, user.Email, user.Phone, user.Role, user.ID,
	).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return utils.ErrUserNotFound
		}
		return mapWriteError(err)
	}
	return nil
}

// Delete removes a non-admin user. Admin rows are never deleted.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1 AND role <> 'Admin'`, id)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	if n == 0 {
		return utils.ErrUserNotFound
	}
	return nil
}

// Stats returns the dashboard counters.
func (r *UserRepository) Stats(ctx context.Context) (*models.UserStats, error) {
	var stats models.UserStats
	query := `
		SELECT
			COUNT(*) AS total_users,
			COUNT(*) FILTER (WHERE status = 'Active') AS active_users,
			COUNT(*) FILTER (WHERE role = 'Admin') AS administrators
		FROM users
	`
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}
	return &stats, nil
}

// mapWriteError turns a violation of users_single_active_admin into
// utils.ErrAdminExists.
func mapWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation && pqErr.Constraint == "users_single_active_admin" {
		return utils.ErrAdminExists
	}
	return fmt.Errorf("write user: %w", err)
}
