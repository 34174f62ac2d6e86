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

// TransactionRepository reads the transaction ledger.
type TransactionRepository struct {
	db database.PGXDB
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db database.PGXDB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// CreateTransaction appends a ledger entry.
func (r *TransactionRepository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.Currency == "" {
		tx.Currency = models.DefaultCurrency
	}
	if tx.Status == "" {
		tx.Status = "completed"
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO transactions (id, user_id, subscription_id, bill_id, amount, currency,
			transaction_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()))
		RETURNING created_at
	`, tx.ID, tx.UserID, tx.SubscriptionID, tx.BillID, tx.Amount, tx.Currency,
		tx.TransactionDate, tx.Status, nullTime(tx.CreatedAt),
	).Scan(&tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// ListScopedTransactions returns the spending history of a scope: ledger
// entries linked to a subscription or bill in scope, dated within [from, to],
// in ledger order.
func (r *TransactionRepository) ListScopedTransactions(
	ctx context.Context,
	userID uuid.UUID,
	scope models.Scope,
	from, to time.Time,
) ([]models.SpendingEntry, error) {
	var clause string
	args := []any{userID, from, to}
	switch scope.Kind {
	case models.ScopeCategory:
		clause = " AND COALESCE(s.category_id, b.category_id) = $4"
		args = append(args, scope.ID)
	case models.ScopeUserCategory:
		clause = " AND COALESCE(s.user_category_id, b.user_category_id) = $4"
		args = append(args, scope.ID)
	}

	rows, err := r.db.Query(ctx, `
		SELECT t.id, t.transaction_date, t.amount, COALESCE(s.name, b.name),
		       CASE WHEN s.id IS NOT NULL THEN 'subscription' ELSE 'bill' END,
		       t.created_at
		FROM transactions t
		LEFT JOIN subscriptions s ON t.subscription_id = s.id
		LEFT JOIN bills b ON t.bill_id = b.id
		WHERE t.user_id = $1
		  AND t.transaction_date >= $2 AND t.transaction_date <= $3
		  AND (s.id IS NOT NULL OR b.id IS NOT NULL)`+clause+`
		ORDER BY t.transaction_date, t.created_at, t.id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query spending history: %w", err)
	}
	defer rows.Close()

	var entries []models.SpendingEntry
	for rows.Next() {
		var e models.SpendingEntry
		if err := rows.Scan(&e.TransactionID, &e.Date, &e.Amount, &e.Description, &e.Source, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan spending entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating spending history: %w", err)
	}
	return entries, nil
}

// SumTransactions totals every ledger entry of a user dated within [from, to].
func (r *TransactionRepository) SumTransactions(ctx context.Context, userID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE user_id = $1 AND transaction_date >= $2 AND transaction_date <= $3
	`, userID, from, to).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return total, nil
}

// CountSubscriptionTransactionsSince counts a user's ledger entries of a
// subscription dated on or after since.
func (r *TransactionRepository) CountSubscriptionTransactionsSince(
	ctx context.Context,
	userID, subscriptionID uuid.UUID,
	since time.Time,
) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM transactions
		WHERE user_id = $1 AND subscription_id = $2 AND transaction_date >= $3
	`, userID, subscriptionID, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count subscription transactions: %w", err)
	}
	return n, nil
}
