// Package repository implements the persistence capabilities of the finance
// core on PostgreSQL.
package repository

import "gitlab.com/yelinaung/subnest/internal/database"

// Store bundles every repository behind one value so it can be handed to
// the services that each consume a narrow slice of it.
type Store struct {
	*UserRepository
	*CategoryRepository
	*SubscriptionRepository
	*BillRepository
	*TransactionRepository
	*BudgetRepository
	*RecommendationRepository
	*NotificationRepository
}

// NewStore creates a Store backed by db, which may be a pool or a
// transaction.
func NewStore(db database.PGXDB) *Store {
	return &Store{
		UserRepository:           NewUserRepository(db),
		CategoryRepository:       NewCategoryRepository(db),
		SubscriptionRepository:   NewSubscriptionRepository(db),
		BillRepository:           NewBillRepository(db),
		TransactionRepository:    NewTransactionRepository(db),
		BudgetRepository:         NewBudgetRepository(db),
		RecommendationRepository: NewRecommendationRepository(db),
		NotificationRepository:   NewNotificationRepository(db),
	}
}
