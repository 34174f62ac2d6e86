// Package memstore is an in-memory implementation of the persistence
// capabilities used by the finance core. It backs unit tests and demo runs
// without a database.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/subnest/internal/models"
)

// Store holds every entity in memory. It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	// Now stamps created_at and updated_at values. Defaults to time.Now.
	Now func() time.Time

	users           []models.User
	categories      []models.Category
	userCategories  []models.UserCategory
	subscriptions   []models.Subscription
	bills           []models.Bill
	transactions    []models.Transaction
	budgets         []models.Budget
	recommendations []models.Recommendation
	notifications   []models.Notification
}

// New creates an empty Store.
func New() *Store {
	return &Store{Now: time.Now}
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// AddCategory registers a system category and returns it.
func (s *Store) AddCategory(name string) models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if c.Name == name {
			return c
		}
	}
	c := models.Category{ID: uuid.New(), Name: name}
	s.categories = append(s.categories, c)
	return c
}

// GetCategoryByName looks up a system category by exact name.
func (s *Store) GetCategoryByName(_ context.Context, name string) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if c.Name == name {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("failed to get category %q: %w", name, models.ErrNotFound)
}

// CreateUserCategory adds a category owned by a single user.
func (s *Store) CreateUserCategory(_ context.Context, uc *models.UserCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uc.ID == uuid.Nil {
		uc.ID = uuid.New()
	}
	s.userCategories = append(s.userCategories, *uc)
	return nil
}

func (s *Store) categoryName(categoryID, userCategoryID *uuid.UUID) string {
	if categoryID != nil {
		for _, c := range s.categories {
			if c.ID == *categoryID {
				return c.Name
			}
		}
	}
	if userCategoryID != nil {
		for _, c := range s.userCategories {
			if c.ID == *userCategoryID {
				return c.Name
			}
		}
	}
	return ""
}

// CreateUser inserts a user.
func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	s.users = append(s.users, *user)
	return nil
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("failed to get user: %w", models.ErrNotFound)
}

// ListEligibleUsers returns active, verified users in creation order.
func (s *Store) ListEligibleUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.User
	for _, u := range s.users {
		if u.IsActive && u.IsVerified {
			out = append(out, u)
		}
	}
	return out, nil
}

// CountUsersCreatedBetween counts users created in [from, to).
func (s *Store) CountUsersCreatedBetween(_ context.Context, from, to time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, u := range s.users {
		if !u.CreatedAt.Before(from) && u.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

// CreateSubscription inserts a subscription.
func (s *Store) CreateSubscription(_ context.Context, sub *models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.Status == "" {
		sub.Status = models.SubscriptionActive
	}
	if sub.BillingCycle == "" {
		sub.BillingCycle = models.BillingMonthly
	}
	if sub.Currency == "" {
		sub.Currency = models.DefaultCurrency
	}
	sub.StartDate = models.DateOf(sub.StartDate)
	sub.NextBillingDate = models.DateOf(sub.NextBillingDate)
	sub.CreatedAt = s.now()
	s.subscriptions = append(s.subscriptions, *sub)
	return nil
}

// SumActiveSubscriptions totals active subscriptions in scope that started
// on or before the given date.
func (s *Store) SumActiveSubscriptions(_ context.Context, userID uuid.UUID, scope models.Scope, startedOnOrBefore time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, sub := range s.subscriptions {
		if sub.UserID != userID || sub.Status != models.SubscriptionActive {
			continue
		}
		if sub.StartDate.After(startedOnOrBefore) || !scope.Matches(sub.CategoryID, sub.UserCategoryID) {
			continue
		}
		total = total.Add(sub.Amount)
	}
	return total, nil
}

// ListActiveSubscriptions returns a user's active subscriptions with their
// system category name.
func (s *Store) ListActiveSubscriptions(_ context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	return s.filterSubscriptions(func(sub models.Subscription) bool {
		return sub.UserID == userID && sub.Status == models.SubscriptionActive
	}), nil
}

// ListSubscriptions returns every subscription of a user regardless of
// status.
func (s *Store) ListSubscriptions(_ context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	return s.filterSubscriptions(func(sub models.Subscription) bool {
		return sub.UserID == userID
	}), nil
}

// ListSubscriptionsDueOn returns active subscriptions renewing on date.
func (s *Store) ListSubscriptionsDueOn(_ context.Context, userID uuid.UUID, date time.Time) ([]models.Subscription, error) {
	day := models.DateOf(date)
	return s.filterSubscriptions(func(sub models.Subscription) bool {
		return sub.UserID == userID && sub.Status == models.SubscriptionActive && sub.NextBillingDate.Equal(day)
	}), nil
}

func (s *Store) filterSubscriptions(keep func(models.Subscription) bool) []models.Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Subscription
	for _, sub := range s.subscriptions {
		if !keep(sub) {
			continue
		}
		sub.CategoryName = ""
		if sub.CategoryID != nil {
			sub.CategoryName = s.categoryName(sub.CategoryID, nil)
		}
		out = append(out, sub)
	}
	return out
}

// CreateBill inserts a bill.
func (s *Store) CreateBill(_ context.Context, bill *models.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bill.ID == uuid.Nil {
		bill.ID = uuid.New()
	}
	if bill.PaymentStatus == "" {
		bill.PaymentStatus = models.PaymentPending
	}
	if bill.Currency == "" {
		bill.Currency = models.DefaultCurrency
	}
	bill.DueDate = models.DateOf(bill.DueDate)
	bill.CreatedAt = s.now()
	s.bills = append(s.bills, *bill)
	return nil
}

// SumPaidBills totals paid bills in scope with a due date in [from, to].
func (s *Store) SumPaidBills(_ context.Context, userID uuid.UUID, scope models.Scope, from, to time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, b := range s.bills {
		if b.UserID != userID || b.PaymentStatus != models.PaymentPaid {
			continue
		}
		if b.DueDate.Before(from) || b.DueDate.After(to) || !scope.Matches(b.CategoryID, b.UserCategoryID) {
			continue
		}
		total = total.Add(b.Amount)
	}
	return total, nil
}

// ListPendingBillsDueOn returns unpaid bills due on date.
func (s *Store) ListPendingBillsDueOn(_ context.Context, userID uuid.UUID, date time.Time) ([]models.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	day := models.DateOf(date)
	var out []models.Bill
	for _, b := range s.bills {
		if b.UserID == userID && b.PaymentStatus == models.PaymentPending && b.DueDate.Equal(day) {
			b.CategoryName = s.categoryName(b.CategoryID, nil)
			out = append(out, b)
		}
	}
	return out, nil
}

// ListBills returns every bill of a user whatever its status, oldest due
// first.
func (s *Store) ListBills(_ context.Context, userID uuid.UUID) ([]models.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Bill
	for _, b := range s.bills {
		if b.UserID != userID {
			continue
		}
		b.CategoryName = s.categoryName(b.CategoryID, nil)
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

// CreateTransaction appends a ledger entry.
func (s *Store) CreateTransaction(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.Currency == "" {
		tx.Currency = models.DefaultCurrency
	}
	if tx.Status == "" {
		tx.Status = "completed"
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now()
	}
	tx.TransactionDate = models.DateOf(tx.TransactionDate)
	s.transactions = append(s.transactions, *tx)
	return nil
}

// ListScopedTransactions returns ledger entries linked to a subscription or
// bill in scope, dated within [from, to], ordered by date then insertion.
func (s *Store) ListScopedTransactions(_ context.Context, userID uuid.UUID, scope models.Scope, from, to time.Time) ([]models.SpendingEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.SpendingEntry
	for _, tx := range s.transactions {
		if tx.UserID != userID || tx.TransactionDate.Before(from) || tx.TransactionDate.After(to) {
			continue
		}
		entry, categoryID, userCategoryID, ok := s.linkedEntry(tx)
		if !ok || !scope.Matches(categoryID, userCategoryID) {
			continue
		}
		out = append(out, entry)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) linkedEntry(tx models.Transaction) (models.SpendingEntry, *uuid.UUID, *uuid.UUID, bool) {
	entry := models.SpendingEntry{
		TransactionID: tx.ID,
		Date:          tx.TransactionDate,
		Amount:        tx.Amount,
		CreatedAt:     tx.CreatedAt,
	}
	if tx.SubscriptionID != nil {
		for _, sub := range s.subscriptions {
			if sub.ID == *tx.SubscriptionID {
				entry.Description = sub.Name
				entry.Source = models.SourceSubscription
				return entry, sub.CategoryID, sub.UserCategoryID, true
			}
		}
	}
	if tx.BillID != nil {
		for _, b := range s.bills {
			if b.ID == *tx.BillID {
				entry.Description = b.Name
				entry.Source = models.SourceBill
				return entry, b.CategoryID, b.UserCategoryID, true
			}
		}
	}
	return entry, nil, nil, false
}

// SumTransactions totals every ledger entry of a user dated within [from, to].
func (s *Store) SumTransactions(_ context.Context, userID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, tx := range s.transactions {
		if tx.UserID == userID && !tx.TransactionDate.Before(from) && !tx.TransactionDate.After(to) {
			total = total.Add(tx.Amount)
		}
	}
	return total, nil
}

// CountSubscriptionTransactionsSince counts a user's ledger entries of a
// subscription dated on or after since.
func (s *Store) CountSubscriptionTransactionsSince(_ context.Context, userID, subscriptionID uuid.UUID, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, tx := range s.transactions {
		if tx.UserID != userID || tx.SubscriptionID == nil || *tx.SubscriptionID != subscriptionID {
			continue
		}
		if !tx.TransactionDate.Before(since) {
			n++
		}
	}
	return n, nil
}

// CreateBudget inserts a budget.
func (s *Store) CreateBudget(_ context.Context, b *models.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Period == "" {
		b.Period = models.PeriodMonthly
	}
	if b.Currency == "" {
		b.Currency = models.DefaultCurrency
	}
	b.StartDate = models.DateOf(b.StartDate)
	if b.EndDate != nil {
		end := models.DateOf(*b.EndDate)
		b.EndDate = &end
	}
	b.CreatedAt = s.now()
	s.budgets = append(s.budgets, *b)
	return nil
}

// GetBudget retrieves a budget owned by userID.
func (s *Store) GetBudget(_ context.Context, userID, id uuid.UUID) (*models.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.budgets {
		if b.ID == id && b.UserID == userID {
			b.CategoryName = s.categoryName(b.CategoryID, b.UserCategoryID)
			return &b, nil
		}
	}
	return nil, fmt.Errorf("failed to get budget: %w", models.ErrNotFound)
}

// ListActiveBudgets returns a user's active budgets.
func (s *Store) ListActiveBudgets(_ context.Context, userID uuid.UUID) ([]models.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Budget
	for _, b := range s.budgets {
		if b.UserID == userID && b.IsActive {
			b.CategoryName = s.categoryName(b.CategoryID, b.UserCategoryID)
			out = append(out, b)
		}
	}
	return out, nil
}

// SumActiveBudgetsOverlapping totals active budgets that started on or
// before to and have not ended before from.
func (s *Store) SumActiveBudgetsOverlapping(_ context.Context, userID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, b := range s.budgets {
		if b.UserID != userID || !b.IsActive || b.StartDate.After(to) {
			continue
		}
		if b.EndDate != nil && b.EndDate.Before(from) {
			continue
		}
		total = total.Add(b.Amount)
	}
	return total, nil
}

// CreateRecommendationIfAbsent inserts rec unless a recommendation with the
// same identity blocks it. Reports whether rec was inserted.
func (s *Store) CreateRecommendationIfAbsent(_ context.Context, rec *models.Recommendation, now time.Time, dismissCooldown time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.recommendations {
		existing := &s.recommendations[i]
		if existing.SameIdentity(rec) && existing.Blocks(now, dismissCooldown) {
			return false, nil
		}
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Currency == "" {
		rec.Currency = models.DefaultCurrency
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = rec.CreatedAt
	s.recommendations = append(s.recommendations, *rec)
	return true, nil
}

// ListRecommendations returns one page of a user's recommendations, newest
// first, and the total number matching the filter.
func (s *Store) ListRecommendations(_ context.Context, userID uuid.UUID, filter models.RecommendationFilter) ([]models.Recommendation, int, error) {
	filter = filter.Normalize()

	s.mu.RLock()
	var matched []models.Recommendation
	for _, r := range s.recommendations {
		if r.UserID != userID {
			continue
		}
		if filter.Type != nil && r.Type != *filter.Type {
			continue
		}
		if filter.IsApplied != nil && r.IsApplied != *filter.IsApplied {
			continue
		}
		if filter.IsDismissed != nil && r.IsDismissed != *filter.IsDismissed {
			continue
		}
		matched = append(matched, r)
	}
	s.mu.RUnlock()

	// Newest first; later inserts win ties.
	slices.Reverse(matched)
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := min(filter.Offset(), total)
	end := min(start+filter.Limit, total)
	return matched[start:end], total, nil
}

// SumOpenSavings totals potential savings of open recommendations.
func (s *Store) SumOpenSavings(_ context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, r := range s.recommendations {
		if r.UserID == userID && !r.IsApplied && !r.IsDismissed {
			total = total.Add(r.PotentialSavings)
		}
	}
	return total, nil
}

// MarkApplied flags a recommendation as applied and clears any dismissal.
func (s *Store) MarkApplied(_ context.Context, userID, id uuid.UUID) (*models.Recommendation, error) {
	return s.setRecommendationState(userID, id, true, false)
}

// MarkDismissed flags a recommendation as dismissed and clears any
// application.
func (s *Store) MarkDismissed(_ context.Context, userID, id uuid.UUID) (*models.Recommendation, error) {
	return s.setRecommendationState(userID, id, false, true)
}

func (s *Store) setRecommendationState(userID, id uuid.UUID, applied, dismissed bool) (*models.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.recommendations {
		r := &s.recommendations[i]
		if r.ID != id || r.UserID != userID {
			continue
		}
		r.IsApplied = applied
		r.IsDismissed = dismissed
		r.UpdatedAt = s.now()
		out := *r
		return &out, nil
	}
	return nil, fmt.Errorf("failed to update recommendation: %w", models.ErrNotFound)
}

// CreateNotification inserts a notification record.
func (s *Store) CreateNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.DeliveryStatus == "" {
		n.DeliveryStatus = models.DeliveryPending
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	s.notifications = append(s.notifications, *n)
	return nil
}

// UpdateDeliveryStatus records the outcome of a delivery attempt.
func (s *Store) UpdateDeliveryStatus(_ context.Context, id uuid.UUID, status string, sentAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].DeliveryStatus = status
			s.notifications[i].SentAt = sentAt
			return nil
		}
	}
	return fmt.Errorf("failed to update delivery status: %w", models.ErrNotFound)
}

// NotificationExistsOn reports whether a notification of kind about the
// related entity was created during the calendar day starting at day.
func (s *Store) NotificationExistsOn(_ context.Context, userID uuid.UUID, kind models.NotificationKind, relatedID uuid.UUID, day time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	next := day.AddDate(0, 0, 1)
	for _, n := range s.notifications {
		if n.UserID != userID || n.Kind != kind || n.RelatedID == nil || *n.RelatedID != relatedID {
			continue
		}
		if !n.CreatedAt.Before(day) && n.CreatedAt.Before(next) {
			return true, nil
		}
	}
	return false, nil
}

// ListPendingNotifications returns notifications still pending that were
// created before createdBefore, oldest first.
func (s *Store) ListPendingNotifications(_ context.Context, createdBefore time.Time) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Notification
	for _, n := range s.notifications {
		if n.DeliveryStatus == models.DeliveryPending && n.CreatedAt.Before(createdBefore) {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Notifications returns a copy of every recorded notification.
func (s *Store) Notifications() []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.notifications)
}

// Recommendations returns a copy of every stored recommendation.
func (s *Store) Recommendations() []models.Recommendation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.recommendations)
}
