package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/subnest/internal/billing"
	"gitlab.com/yelinaung/subnest/internal/database"
	"gitlab.com/yelinaung/subnest/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestStore(t *testing.T) (*Store, *models.User) {
	t.Helper()
	store := NewStore(database.TestTx(t))
	user := &models.User{
		Email:      uuid.NewString() + "@example.com",
		FirstName:  "Test",
		IsActive:   true,
		IsVerified: true,
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return store, user
}

func category(t *testing.T, store *Store, name string) *models.Category {
	t.Helper()
	c, err := store.GetCategoryByName(context.Background(), name)
	require.NoError(t, err)
	return c
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestUserRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("round trips preferences", func(t *testing.T) {
		t.Parallel()
		store, user := newTestStore(t)

		off := false
		days := 5
		prefs := &models.NotificationPreferences{
			EmailEnabled: &off,
			Types: map[models.NotificationKind]*models.KindPreferences{
				models.KindBillDue: {DaysBefore: &days},
			},
		}
		require.NoError(t, store.UpdatePreferences(ctx, user.ID, prefs))

		got, err := store.GetUser(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, user.Email, got.Email)
		require.NotNil(t, got.Preferences)
		require.False(t, *got.Preferences.EmailEnabled)
		require.Equal(t, 5, *got.Preferences.Types[models.KindBillDue].DaysBefore)
	})

	t.Run("missing user is not found", func(t *testing.T) {
		t.Parallel()
		store, _ := newTestStore(t)
		_, err := store.GetUser(ctx, uuid.New())
		require.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("eligible users are active and verified", func(t *testing.T) {
		t.Parallel()
		store, user := newTestStore(t)
		inactive := &models.User{Email: uuid.NewString() + "@example.com", IsVerified: true}
		require.NoError(t, store.CreateUser(ctx, inactive))

		users, err := store.ListEligibleUsers(ctx)
		require.NoError(t, err)
		ids := map[uuid.UUID]bool{}
		for _, u := range users {
			ids[u.ID] = true
		}
		require.True(t, ids[user.ID])
		require.False(t, ids[inactive.ID])
	})

	t.Run("counts registrations in half-open range", func(t *testing.T) {
		t.Parallel()
		store, _ := newTestStore(t)
		for _, at := range []time.Time{day(2001, 1, 1), day(2001, 1, 31), day(2001, 2, 1)} {
			u := &models.User{Email: uuid.NewString() + "@example.com", CreatedAt: at}
			require.NoError(t, store.CreateUser(ctx, u))
		}
		n, err := store.CountUsersCreatedBetween(ctx, day(2001, 1, 1), day(2001, 2, 1))
		require.NoError(t, err)
		require.Equal(t, 2, n)
	})
}

func TestSpendingSums(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, user := newTestStore(t)
	music := category(t, store, "Music")
	gaming := category(t, store, "Gaming")
	custom := &models.UserCategory{UserID: user.ID, Name: "Side projects"}
	require.NoError(t, store.CreateUserCategory(ctx, custom))

	subs := []*models.Subscription{
		{Name: "Spotify", Amount: decimal.NewFromInt(80), CategoryID: &music.ID, StartDate: day(2026, 1, 1)},
		{Name: "Tidal", Amount: decimal.NewFromInt(100), CategoryID: &music.ID, StartDate: day(2026, 3, 25)},
		{Name: "Game Pass", Amount: decimal.NewFromInt(300), CategoryID: &gaming.ID, StartDate: day(2026, 1, 1)},
		{Name: "VPS", Amount: decimal.NewFromInt(40), UserCategoryID: &custom.ID, StartDate: day(2026, 1, 1)},
		{Name: "Old", Amount: decimal.NewFromInt(999), CategoryID: &music.ID, StartDate: day(2025, 1, 1), Status: models.SubscriptionCancelled},
	}
	for _, s := range subs {
		s.UserID = user.ID
		s.NextBillingDate = day(2026, 4, 1)
		require.NoError(t, store.CreateSubscription(ctx, s))
	}

	bills := []*models.Bill{
		{Name: "Concert", Amount: decimal.NewFromInt(50), CategoryID: &music.ID, DueDate: day(2026, 3, 1), PaymentStatus: models.PaymentPaid},
		{Name: "Vinyl", Amount: decimal.NewFromInt(70), CategoryID: &music.ID, DueDate: day(2026, 3, 31), PaymentStatus: models.PaymentPaid},
		{Name: "Pending", Amount: decimal.NewFromInt(500), CategoryID: &music.ID, DueDate: day(2026, 3, 10)},
		{Name: "Outside", Amount: decimal.NewFromInt(500), CategoryID: &music.ID, DueDate: day(2026, 4, 1), PaymentStatus: models.PaymentPaid},
	}
	for _, b := range bills {
		b.UserID = user.ID
		require.NoError(t, store.CreateBill(ctx, b))
	}

	t.Run("subscriptions by scope and start date", func(t *testing.T) {
		total, err := store.SumActiveSubscriptions(ctx, user.ID, models.CategoryScope(music.ID), day(2026, 3, 20))
		require.NoError(t, err)
		requireDecimal(t, "80", total)

		total, err = store.SumActiveSubscriptions(ctx, user.ID, models.GlobalScope(), day(2026, 3, 31))
		require.NoError(t, err)
		requireDecimal(t, "520", total)

		total, err = store.SumActiveSubscriptions(ctx, user.ID, models.UserCategoryScope(custom.ID), day(2026, 3, 31))
		require.NoError(t, err)
		requireDecimal(t, "40", total)
	})

	t.Run("paid bills in inclusive range", func(t *testing.T) {
		total, err := store.SumPaidBills(ctx, user.ID, models.CategoryScope(music.ID), day(2026, 3, 1), day(2026, 3, 31))
		require.NoError(t, err)
		requireDecimal(t, "120", total)
	})

	t.Run("due date listings", func(t *testing.T) {
		due, err := store.ListSubscriptionsDueOn(ctx, user.ID, day(2026, 4, 1))
		require.NoError(t, err)
		require.Len(t, due, 4)

		pending, err := store.ListPendingBillsDueOn(ctx, user.ID, day(2026, 3, 10))
		require.NoError(t, err)
		require.Len(t, pending, 1)
		require.Equal(t, "Pending", pending[0].Name)
	})

	t.Run("active subscriptions carry category name", func(t *testing.T) {
		active, err := store.ListActiveSubscriptions(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, active, 4)
		names := map[string]string{}
		for _, s := range active {
			names[s.Name] = s.CategoryName
		}
		require.Equal(t, "Music", names["Spotify"])
		require.Equal(t, "", names["VPS"])
	})

	t.Run("full listings for statistics", func(t *testing.T) {
		all, err := store.ListSubscriptions(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, all, 5)

		listed, err := store.ListBills(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, listed, 4)
		require.Equal(t, "Concert", listed[0].Name)
		require.Equal(t, "Music", listed[0].CategoryName)
		require.Equal(t, "Outside", listed[3].Name)
	})

	t.Run("statistics over the database", func(t *testing.T) {
		reporter := billing.New(store, "TRY")

		subs, err := reporter.SubscriptionStatistics(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, 4, subs.ActiveSubscriptions)
		require.Equal(t, 1, subs.CancelledSubscriptions)
		requireDecimal(t, "520", subs.TotalMonthlyCost)

		bills, err := reporter.BillStatistics(ctx, user.ID, billing.Range{})
		require.NoError(t, err)
		require.Equal(t, 3, bills.PaidBills)
		requireDecimal(t, "1120", bills.TotalAmount)
		requireDecimal(t, "500", bills.PendingAmount)
	})
}

func TestTransactionRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, user := newTestStore(t)
	music := category(t, store, "Music")
	gaming := category(t, store, "Gaming")

	spotify := &models.Subscription{UserID: user.ID, Name: "Spotify", Amount: decimal.NewFromInt(80), CategoryID: &music.ID, StartDate: day(2026, 1, 1), NextBillingDate: day(2026, 4, 1)}
	games := &models.Subscription{UserID: user.ID, Name: "Game Pass", Amount: decimal.NewFromInt(300), CategoryID: &gaming.ID, StartDate: day(2026, 1, 1), NextBillingDate: day(2026, 4, 1)}
	concert := &models.Bill{UserID: user.ID, Name: "Concert", Amount: decimal.NewFromInt(50), CategoryID: &music.ID, DueDate: day(2026, 3, 5), PaymentStatus: models.PaymentPaid}
	require.NoError(t, store.CreateSubscription(ctx, spotify))
	require.NoError(t, store.CreateSubscription(ctx, games))
	require.NoError(t, store.CreateBill(ctx, concert))

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	txs := []*models.Transaction{
		{SubscriptionID: &spotify.ID, Amount: decimal.NewFromInt(80), TransactionDate: day(2026, 3, 10), CreatedAt: base.Add(2 * time.Second)},
		{BillID: &concert.ID, Amount: decimal.NewFromInt(50), TransactionDate: day(2026, 3, 5), CreatedAt: base.Add(time.Second)},
		{SubscriptionID: &spotify.ID, Amount: decimal.NewFromInt(80), TransactionDate: day(2026, 3, 10), CreatedAt: base},
		{SubscriptionID: &games.ID, Amount: decimal.NewFromInt(300), TransactionDate: day(2026, 3, 12), CreatedAt: base},
		{SubscriptionID: &spotify.ID, Amount: decimal.NewFromInt(80), TransactionDate: day(2025, 11, 10), CreatedAt: base},
	}
	for _, tx := range txs {
		tx.UserID = user.ID
		require.NoError(t, store.CreateTransaction(ctx, tx))
	}

	t.Run("scoped history in ledger order", func(t *testing.T) {
		entries, err := store.ListScopedTransactions(ctx, user.ID, models.CategoryScope(music.ID), day(2026, 3, 1), day(2026, 3, 31))
		require.NoError(t, err)
		require.Len(t, entries, 3)
		require.Equal(t, txs[1].ID, entries[0].TransactionID)
		require.Equal(t, models.SourceBill, entries[0].Source)
		require.Equal(t, "Concert", entries[0].Description)
		require.Equal(t, txs[2].ID, entries[1].TransactionID)
		require.Equal(t, txs[0].ID, entries[2].TransactionID)
		require.Equal(t, models.SourceSubscription, entries[2].Source)
	})

	t.Run("global history includes every category", func(t *testing.T) {
		entries, err := store.ListScopedTransactions(ctx, user.ID, models.GlobalScope(), day(2026, 3, 1), day(2026, 3, 31))
		require.NoError(t, err)
		require.Len(t, entries, 4)
	})

	t.Run("sums and counts", func(t *testing.T) {
		total, err := store.SumTransactions(ctx, user.ID, day(2026, 3, 1), day(2026, 3, 31))
		require.NoError(t, err)
		requireDecimal(t, "510", total)

		n, err := store.CountSubscriptionTransactionsSince(ctx, user.ID, spotify.ID, day(2026, 1, 1))
		require.NoError(t, err)
		require.Equal(t, 2, n)
	})

	t.Run("subscription usage counts only the owner's entries", func(t *testing.T) {
		other := &models.User{Email: uuid.NewString() + "@example.com", IsActive: true, IsVerified: true}
		require.NoError(t, store.CreateUser(ctx, other))
		require.NoError(t, store.CreateTransaction(ctx, &models.Transaction{
			UserID: other.ID, SubscriptionID: &spotify.ID, Amount: decimal.NewFromInt(80), TransactionDate: day(2026, 2, 10),
		}))

		n, err := store.CountSubscriptionTransactionsSince(ctx, user.ID, spotify.ID, day(2026, 1, 1))
		require.NoError(t, err)
		require.Equal(t, 2, n)

		n, err = store.CountSubscriptionTransactionsSince(ctx, other.ID, spotify.ID, day(2026, 1, 1))
		require.NoError(t, err)
		require.Equal(t, 1, n)
	})

	t.Run("unlinked entries count toward the trend sum only", func(t *testing.T) {
		require.NoError(t, store.CreateTransaction(ctx, &models.Transaction{
			UserID: user.ID, Amount: decimal.NewFromInt(25), TransactionDate: day(2026, 3, 15),
		}))

		total, err := store.SumTransactions(ctx, user.ID, day(2026, 3, 1), day(2026, 3, 31))
		require.NoError(t, err)
		requireDecimal(t, "535", total)

		entries, err := store.ListScopedTransactions(ctx, user.ID, models.GlobalScope(), day(2026, 3, 1), day(2026, 3, 31))
		require.NoError(t, err)
		require.Len(t, entries, 4)
	})
}

func TestBudgetRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, user := newTestStore(t)
	music := category(t, store, "Music")
	end := day(2026, 3, 31)

	budgets := []*models.Budget{
		{Name: "Music", Amount: decimal.NewFromInt(1000), StartDate: day(2026, 3, 1), CategoryID: &music.ID, IsActive: true},
		{Name: "Q1", Amount: decimal.NewFromInt(500), Period: models.PeriodQuarterly, StartDate: day(2026, 1, 1), EndDate: &end, IsActive: true},
		{Name: "Future", Amount: decimal.NewFromInt(200), StartDate: day(2026, 5, 1), IsActive: true},
		{Name: "Off", Amount: decimal.NewFromInt(9000), StartDate: day(2026, 1, 1)},
	}
	for _, b := range budgets {
		b.UserID = user.ID
		require.NoError(t, store.CreateBudget(ctx, b))
	}

	t.Run("get joins the category name and checks ownership", func(t *testing.T) {
		got, err := store.GetBudget(ctx, user.ID, budgets[0].ID)
		require.NoError(t, err)
		require.Equal(t, "Music", got.CategoryName)
		require.Equal(t, models.PeriodMonthly, got.Period)
		require.Equal(t, models.CategoryScope(music.ID), got.Scope())

		_, err = store.GetBudget(ctx, uuid.New(), budgets[0].ID)
		require.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("lists active budgets", func(t *testing.T) {
		active, err := store.ListActiveBudgets(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, active, 3)
	})

	t.Run("sums budgets overlapping a month", func(t *testing.T) {
		total, err := store.SumActiveBudgetsOverlapping(ctx, user.ID, day(2026, 3, 1), day(2026, 3, 31))
		require.NoError(t, err)
		requireDecimal(t, "1500", total)

		total, err = store.SumActiveBudgetsOverlapping(ctx, user.ID, day(2026, 4, 1), day(2026, 4, 30))
		require.NoError(t, err)
		requireDecimal(t, "1000", total)
	})

	t.Run("rejects end before start", func(t *testing.T) {
		before := day(2025, 12, 31)
		b := &models.Budget{UserID: user.ID, Name: "Bad", Amount: decimal.NewFromInt(1), StartDate: day(2026, 1, 1), EndDate: &before}
		require.Error(t, NewStore(database.TestTx(t)).CreateBudget(ctx, b))
	})
}

func TestRecommendationRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	newRec := func(userID uuid.UUID, relatedID *uuid.UUID, title string) *models.Recommendation {
		return &models.Recommendation{
			UserID: userID, Title: title, Description: "d", Type: models.RecCancelUnused,
			RelatedID: relatedID, RelatedType: models.RelatedSubscription, PotentialSavings: decimal.NewFromInt(80),
		}
	}

	t.Run("dedups by related entity", func(t *testing.T) {
		t.Parallel()
		store, user := newTestStore(t)
		related := uuid.New()
		now := time.Now()

		created, err := store.CreateRecommendationIfAbsent(ctx, newRec(user.ID, &related, "Cancel"), now, 0)
		require.NoError(t, err)
		require.True(t, created)

		created, err = store.CreateRecommendationIfAbsent(ctx, newRec(user.ID, &related, "Cancel again"), now, 0)
		require.NoError(t, err)
		require.False(t, created)

		other := uuid.New()
		created, err = store.CreateRecommendationIfAbsent(ctx, newRec(user.ID, &other, "Cancel"), now, 0)
		require.NoError(t, err)
		require.True(t, created)
	})

	t.Run("dedups unrelated records by title", func(t *testing.T) {
		t.Parallel()
		store, user := newTestStore(t)
		now := time.Now()

		rec := newRec(user.ID, nil, "Consolidate your Music services")
		rec.Type = models.RecConsolidateServices
		rec.RelatedType = models.RelatedCategory
		created, err := store.CreateRecommendationIfAbsent(ctx, rec, now, 0)
		require.NoError(t, err)
		require.True(t, created)

		dup := *rec
		dup.ID = uuid.Nil
		created, err = store.CreateRecommendationIfAbsent(ctx, &dup, now, 0)
		require.NoError(t, err)
		require.False(t, created)
	})

	t.Run("dismissal and cooldown", func(t *testing.T) {
		t.Parallel()
		store, user := newTestStore(t)
		related := uuid.New()
		now := time.Now()

		rec := newRec(user.ID, &related, "Cancel")
		_, err := store.CreateRecommendationIfAbsent(ctx, rec, now, 0)
		require.NoError(t, err)

		dismissed, err := store.MarkDismissed(ctx, user.ID, rec.ID)
		require.NoError(t, err)
		require.True(t, dismissed.IsDismissed)
		require.False(t, dismissed.IsApplied)

		created, err := store.CreateRecommendationIfAbsent(ctx, newRec(user.ID, &related, "Cancel"), now, time.Hour)
		require.NoError(t, err)
		require.False(t, created)

		created, err = store.CreateRecommendationIfAbsent(ctx, newRec(user.ID, &related, "Cancel"), now, 0)
		require.NoError(t, err)
		require.True(t, created)
	})

	t.Run("list filters, pages and sums open savings", func(t *testing.T) {
		t.Parallel()
		store, user := newTestStore(t)
		base := time.Now().Add(-time.Hour)

		var recs []*models.Recommendation
		for i := range 3 {
			related := uuid.New()
			rec := newRec(user.ID, &related, "Cancel")
			rec.CreatedAt = base.Add(time.Duration(i) * time.Minute)
			_, err := store.CreateRecommendationIfAbsent(ctx, rec, base, 0)
			require.NoError(t, err)
			recs = append(recs, rec)
		}

		applied, err := store.MarkApplied(ctx, user.ID, recs[0].ID)
		require.NoError(t, err)
		require.True(t, applied.IsApplied)

		page, total, err := store.ListRecommendations(ctx, user.ID, models.RecommendationFilter{Page: 1, Limit: 2})
		require.NoError(t, err)
		require.Equal(t, 3, total)
		require.Len(t, page, 2)
		require.Equal(t, recs[2].ID, page[0].ID)

		no := false
		open, total, err := store.ListRecommendations(ctx, user.ID, models.RecommendationFilter{IsApplied: &no})
		require.NoError(t, err)
		require.Equal(t, 2, total)
		require.Len(t, open, 2)

		savings, err := store.SumOpenSavings(ctx, user.ID)
		require.NoError(t, err)
		requireDecimal(t, "160", savings)

		_, err = store.MarkDismissed(ctx, uuid.New(), recs[1].ID)
		require.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestNotificationRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, user := newTestStore(t)
	related := uuid.New()
	at := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	n := &models.Notification{
		UserID: user.ID, Title: "Netflix renews soon", Message: "m",
		Kind: models.KindSubscriptionReminder, RelatedID: &related, RelatedType: "subscription",
		Channel: models.ChannelPush, CreatedAt: at,
	}
	require.NoError(t, store.CreateNotification(ctx, n))
	require.Equal(t, models.DeliveryPending, n.DeliveryStatus)

	sent := at.Add(time.Second)
	require.NoError(t, store.UpdateDeliveryStatus(ctx, n.ID, models.DeliverySent, &sent))
	require.ErrorIs(t, store.UpdateDeliveryStatus(ctx, uuid.New(), models.DeliverySent, &sent), models.ErrNotFound)

	exists, err := store.NotificationExistsOn(ctx, user.ID, models.KindSubscriptionReminder, related, day(2026, 3, 10))
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = store.NotificationExistsOn(ctx, user.ID, models.KindSubscriptionReminder, related, day(2026, 3, 11))
	require.NoError(t, err)
	require.False(t, exists)

	exists, err = store.NotificationExistsOn(ctx, user.ID, models.KindBillDue, related, day(2026, 3, 10))
	require.NoError(t, err)
	require.False(t, exists)
}
