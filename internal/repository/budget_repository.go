package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/subnest/internal/database"
	"gitlab.com/yelinaung/subnest/internal/models"
)

// BudgetRepository handles budget database operations.
type BudgetRepository struct {
	db database.PGXDB
}

// NewBudgetRepository creates a new BudgetRepository.
func NewBudgetRepository(db database.PGXDB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

const budgetColumns = `bu.id, bu.user_id, bu.name, bu.amount, bu.currency, bu.period,
	bu.start_date, bu.end_date, bu.category_id, bu.user_category_id,
	COALESCE(c.name, uc.name, ''), bu.is_active, bu.created_at`

const budgetFrom = `FROM budgets bu
	LEFT JOIN categories c ON bu.category_id = c.id
	LEFT JOIN user_categories uc ON bu.user_category_id = uc.id`

// CreateBudget inserts a budget.
func (r *BudgetRepository) CreateBudget(ctx context.Context, b *models.Budget) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Period == "" {
		b.Period = models.PeriodMonthly
	}
	if b.Currency == "" {
		b.Currency = models.DefaultCurrency
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO budgets (id, user_id, name, amount, currency, period, start_date, end_date,
			category_id, user_category_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`, b.ID, b.UserID, b.Name, b.Amount, b.Currency, string(b.Period), b.StartDate, b.EndDate,
		b.CategoryID, b.UserCategoryID, b.IsActive,
	).Scan(&b.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create budget: %w", err)
	}
	return nil
}

// GetBudget retrieves a budget owned by userID.
func (r *BudgetRepository) GetBudget(ctx context.Context, userID, id uuid.UUID) (*models.Budget, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+budgetColumns+` `+budgetFrom+`
		WHERE bu.id = $1 AND bu.user_id = $2
	`, id, userID)
	b, err := scanBudget(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to get budget: %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}
	return b, nil
}

// ListActiveBudgets returns a user's active budgets, oldest first.
func (r *BudgetRepository) ListActiveBudgets(ctx context.Context, userID uuid.UUID) ([]models.Budget, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+budgetColumns+` `+budgetFrom+`
		WHERE bu.user_id = $1 AND bu.is_active
		ORDER BY bu.created_at, bu.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer rows.Close()

	var budgets []models.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		budgets = append(budgets, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating budgets: %w", err)
	}
	return budgets, nil
}

// SumActiveBudgetsOverlapping totals active budgets that started on or
// before to and have not ended before from.
func (r *BudgetRepository) SumActiveBudgetsOverlapping(ctx context.Context, userID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM budgets
		WHERE user_id = $1 AND is_active
		  AND start_date <= $3
		  AND (end_date IS NULL OR end_date >= $2)
	`, userID, from, to).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum budgets: %w", err)
	}
	return total, nil
}

func scanBudget(row rowScanner) (*models.Budget, error) {
	var b models.Budget
	var period string
	if err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.Amount, &b.Currency, &period,
		&b.StartDate, &b.EndDate, &b.CategoryID, &b.UserCategoryID,
		&b.CategoryName, &b.IsActive, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.Period = models.Period(period)
	return &b, nil
}
