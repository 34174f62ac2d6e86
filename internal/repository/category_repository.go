package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/subnest/internal/database"
	"gitlab.com/yelinaung/subnest/internal/models"
)

// CategoryRepository handles system and user category operations.
type CategoryRepository struct {
	db database.PGXDB
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(db database.PGXDB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// GetCategoryByName looks up a system category by exact name.
func (r *CategoryRepository) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	var c models.Category
	err := r.db.QueryRow(ctx, `SELECT id, name FROM categories WHERE name = $1`, name).Scan(&c.ID, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to get category %q: %w", name, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

// ListCategories returns all system categories ordered by name.
func (r *CategoryRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

// CreateUserCategory adds a category owned by a single user.
func (r *CategoryRepository) CreateUserCategory(ctx context.Context, uc *models.UserCategory) error {
	if uc.ID == uuid.Nil {
		uc.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_categories (id, user_id, name) VALUES ($1, $2, $3)
	`, uc.ID, uc.UserID, uc.Name)
	if err != nil {
		return fmt.Errorf("failed to create user category: %w", err)
	}
	return nil
}
