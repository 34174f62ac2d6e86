package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/subnest/internal/database"
	"gitlab.com/yelinaung/subnest/internal/models"
)

// BillRepository handles bill database operations.
type BillRepository struct {
	db database.PGXDB
}

// NewBillRepository creates a new BillRepository.
func NewBillRepository(db database.PGXDB) *BillRepository {
	return &BillRepository{db: db}
}

// CreateBill inserts a bill.
func (r *BillRepository) CreateBill(ctx context.Context, bill *models.Bill) error {
	if bill.ID == uuid.Nil {
		bill.ID = uuid.New()
	}
	if bill.PaymentStatus == "" {
		bill.PaymentStatus = models.PaymentPending
	}
	if bill.Currency == "" {
		bill.Currency = models.DefaultCurrency
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO bills (id, user_id, name, amount, currency, due_date,
			category_id, user_category_id, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, bill.ID, bill.UserID, bill.Name, bill.Amount, bill.Currency, bill.DueDate,
		bill.CategoryID, bill.UserCategoryID, bill.PaymentStatus,
	).Scan(&bill.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bill: %w", err)
	}
	return nil
}

// SumPaidBills totals paid bills in scope with a due date in [from, to].
func (r *BillRepository) SumPaidBills(
	ctx context.Context,
	userID uuid.UUID,
	scope models.Scope,
	from, to time.Time,
) (decimal.Decimal, error) {
	clause, args := scopeClause(scope, "b", 4)
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(b.amount), 0) FROM bills b
		WHERE b.user_id = $1 AND b.payment_status = 'paid'
		  AND b.due_date >= $2 AND b.due_date <= $3`+clause,
		append([]any{userID, from, to}, args...)...,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum bills: %w", err)
	}
	return total, nil
}

const billColumns = `b.id, b.user_id, b.name, b.amount, b.currency, b.due_date, b.category_id,
	b.user_category_id, COALESCE(c.name, ''), b.payment_status, b.created_at`

// ListPendingBillsDueOn returns unpaid bills due on date.
func (r *BillRepository) ListPendingBillsDueOn(ctx context.Context, userID uuid.UUID, date time.Time) ([]models.Bill, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+billColumns+`
		FROM bills b
		LEFT JOIN categories c ON b.category_id = c.id
		WHERE b.user_id = $1 AND b.payment_status = 'pending' AND b.due_date = $2
		ORDER BY b.created_at, b.id
	`, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query due bills: %w", err)
	}
	defer rows.Close()

	return scanBills(rows)
}

// ListBills returns every bill of a user whatever its status, oldest due
// first.
func (r *BillRepository) ListBills(ctx context.Context, userID uuid.UUID) ([]models.Bill, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+billColumns+`
		FROM bills b
		LEFT JOIN categories c ON b.category_id = c.id
		WHERE b.user_id = $1
		ORDER BY b.due_date, b.created_at, b.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bills: %w", err)
	}
	defer rows.Close()

	return scanBills(rows)
}

func scanBills(rows rowsScanner) ([]models.Bill, error) {
	var bills []models.Bill
	for rows.Next() {
		var b models.Bill
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name, &b.Amount, &b.Currency, &b.DueDate,
			&b.CategoryID, &b.UserCategoryID, &b.CategoryName, &b.PaymentStatus, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bills: %w", err)
	}
	return bills, nil
}
