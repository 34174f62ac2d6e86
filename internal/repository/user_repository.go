package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/subnest/internal/database"
	"gitlab.com/yelinaung/subnest/internal/models"
)

// UserRepository handles user database operations.
type UserRepository struct {
	db database.PGXDB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db database.PGXDB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, first_name, last_name, phone_number, telegram_chat_id,
	is_active, is_verified, preferences, created_at`

// CreateUser inserts a user. A zero ID is replaced by a generated one.
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	prefs, err := marshalPreferences(user.Preferences)
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx, `
		INSERT INTO users (id, email, first_name, last_name, phone_number, telegram_chat_id,
			is_active, is_verified, preferences, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, NOW()))
		RETURNING created_at
	`, user.ID, user.Email, user.FirstName, user.LastName, user.PhoneNumber, user.TelegramChatID,
		user.IsActive, user.IsVerified, prefs, nullTime(user.CreatedAt),
	).Scan(&user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by id.
func (r *UserRepository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to get user: %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdatePreferences replaces the stored notification preferences of a user.
func (r *UserRepository) UpdatePreferences(ctx context.Context, id uuid.UUID, prefs *models.NotificationPreferences) error {
	raw, err := marshalPreferences(prefs)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET preferences = $2, updated_at = NOW() WHERE id = $1
	`, id, raw)
	if err != nil {
		return fmt.Errorf("failed to update preferences: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update preferences: %w", models.ErrNotFound)
	}
	return nil
}

// ListEligibleUsers returns active, verified users in creation order.
func (r *UserRepository) ListEligibleUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE is_active AND is_verified
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// CountUsersCreatedBetween counts users created in [from, to).
func (r *UserRepository) CountUsersCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM users WHERE created_at >= $1 AND created_at < $2
	`, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var prefs []byte
	if err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PhoneNumber, &u.TelegramChatID,
		&u.IsActive, &u.IsVerified, &prefs, &u.CreatedAt); err != nil {
		return nil, err
	}
	if len(prefs) > 0 {
		u.Preferences = &models.NotificationPreferences{}
		if err := json.Unmarshal(prefs, u.Preferences); err != nil {
			return nil, fmt.Errorf("failed to decode preferences: %w", err)
		}
	}
	return &u, nil
}

func marshalPreferences(prefs *models.NotificationPreferences) ([]byte, error) {
	if prefs == nil {
		return nil, nil
	}
	raw, err := json.Marshal(prefs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode preferences: %w", err)
	}
	return raw, nil
}

// nullTime maps the zero time to NULL so column defaults apply.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
