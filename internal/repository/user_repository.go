package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusops/uniops-api/internal/models"
)

const userColumns = "id, email, password_hash, full_name, role, student_id, active, created_at, updated_at"

// UserRepository handles persistence of application logins.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE email = $1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID returns a user by id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// Upsert creates the login or, when the email is already registered, rewrites
// its credentials and student linkage.
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) error {
	existing, err := r.FindByEmail(ctx, user.Email)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("find login: %w", err)
	}

	now := time.Now().UTC()
	if existing != nil {
		user.ID = existing.ID
		user.UpdatedAt = now
		const update = `UPDATE users SET password_hash = :password_hash, full_name = :full_name, role = :role,
            student_id = :student_id, active = :active, updated_at = :updated_at WHERE id = :id`
		if _, err := r.db.NamedExecContext(ctx, update, user); err != nil {
			return fmt.Errorf("update login: %w", err)
		}
		return nil
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	const insert = `INSERT INTO users (id, email, password_hash, full_name, role, student_id, active, created_at, updated_at)
        VALUES (:id, :email, :password_hash, :full_name, :role, :student_id, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, insert, user); err != nil {
		return fmt.Errorf("insert login: %w", err)
	}
	return nil
}
