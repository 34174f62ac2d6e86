package trend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/subnest/internal/memstore"
	"gitlab.com/yelinaung/subnest/internal/models"
	"pgregory.net/rapid"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMonths(t *testing.T) {
	t.Parallel()

	t.Run("crosses year boundary", func(t *testing.T) {
		t.Parallel()
		got := Months(time.Date(2026, 2, 17, 15, 0, 0, 0, time.UTC), 4)
		require.Equal(t, []time.Time{day(2025, 11, 1), day(2025, 12, 1), day(2026, 1, 1), day(2026, 2, 1)}, got)
	})

	t.Run("end of month does not skip", func(t *testing.T) {
		t.Parallel()
		got := Months(day(2026, 3, 31), 2)
		require.Equal(t, []time.Time{day(2026, 2, 1), day(2026, 3, 1)}, got)
	})

	t.Run("non positive is one month", func(t *testing.T) {
		t.Parallel()
		require.Len(t, Months(day(2026, 3, 31), 0), 1)
		require.Len(t, Months(day(2026, 3, 31), -5), 1)
	})
}

func TestMonthlyTrend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := memstore.New()
	userID := uuid.New()
	require.NoError(t, store.CreateUser(ctx, &models.User{ID: userID}))

	sub := &models.Subscription{UserID: userID, Name: "Spotify", Amount: decimal.NewFromInt(60), StartDate: day(2025, 1, 1)}
	require.NoError(t, store.CreateSubscription(ctx, sub))

	endFeb := day(2026, 2, 28)
	require.NoError(t, store.CreateBudget(ctx, &models.Budget{UserID: userID, Amount: decimal.NewFromInt(200), StartDate: day(2026, 1, 15), EndDate: &endFeb, IsActive: true}))
	require.NoError(t, store.CreateBudget(ctx, &models.Budget{UserID: userID, Amount: decimal.NewFromInt(100), StartDate: day(2026, 3, 1), IsActive: true}))
	require.NoError(t, store.CreateBudget(ctx, &models.Budget{UserID: userID, Amount: decimal.NewFromInt(999), StartDate: day(2025, 1, 1), IsActive: false}))

	for _, d := range []time.Time{day(2026, 1, 31), day(2026, 2, 1), day(2026, 3, 10), day(2026, 3, 31)} {
		require.NoError(t, store.CreateTransaction(ctx, &models.Transaction{UserID: userID, SubscriptionID: &sub.ID, Amount: decimal.NewFromInt(60), TransactionDate: d}))
	}

	r := New(store, WithClock(func() time.Time { return time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC) }))
	points := r.MonthlyTrend(ctx, userID, 4)

	require.Len(t, points, 4)
	require.Equal(t, []string{"2025-12", "2026-01", "2026-02", "2026-03"},
		[]string{points[0].Month, points[1].Month, points[2].Month, points[3].Month})

	require.True(t, points[0].BudgetAmount.IsZero())
	require.True(t, points[0].PercentageUsed.IsZero())

	require.True(t, decimal.NewFromInt(200).Equal(points[1].BudgetAmount))
	require.True(t, decimal.NewFromInt(60).Equal(points[1].Spending))
	require.True(t, decimal.NewFromInt(30).Equal(points[1].PercentageUsed))

	require.True(t, decimal.NewFromInt(200).Equal(points[2].BudgetAmount))
	require.True(t, decimal.NewFromInt(60).Equal(points[2].Spending))

	require.True(t, decimal.NewFromInt(100).Equal(points[3].BudgetAmount))
	require.True(t, decimal.NewFromInt(120).Equal(points[3].Spending))
	require.True(t, decimal.NewFromInt(120).Equal(points[3].PercentageUsed))
}

func TestMonthlyTrendIncludesUnlinkedTransactions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := memstore.New()
	userID := uuid.New()
	require.NoError(t, store.CreateUser(ctx, &models.User{ID: userID}))
	require.NoError(t, store.CreateBudget(ctx, &models.Budget{UserID: userID, Amount: decimal.NewFromInt(100), StartDate: day(2026, 3, 1), IsActive: true}))
	require.NoError(t, store.CreateTransaction(ctx, &models.Transaction{UserID: userID, Amount: decimal.NewFromInt(45), TransactionDate: day(2026, 3, 5)}))

	points := New(store, WithClock(func() time.Time { return day(2026, 3, 20) })).MonthlyTrend(ctx, userID, 1)
	require.Len(t, points, 1)
	require.True(t, decimal.NewFromInt(45).Equal(points[0].Spending), "got %s", points[0].Spending)

	history, err := store.ListScopedTransactions(ctx, userID, models.GlobalScope(), day(2026, 3, 1), day(2026, 3, 31))
	require.NoError(t, err)
	require.Empty(t, history, "budget history only shows entries linked to a subscription or bill")
}

type brokenStore struct {
	*memstore.Store
	failMonth time.Time
}

func (b brokenStore) SumTransactions(ctx context.Context, userID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	if from.Equal(b.failMonth) {
		return decimal.Zero, errors.New("timeout")
	}
	return b.Store.SumTransactions(ctx, userID, from, to)
}

func TestMonthlyTrendFailedMonthIsZero(t *testing.T) {
	t.Parallel()

	store := brokenStore{Store: memstore.New(), failMonth: day(2026, 2, 1)}
	r := New(store, WithClock(func() time.Time { return day(2026, 3, 5) }))

	points := r.MonthlyTrend(context.Background(), uuid.New(), 3)
	require.Len(t, points, 3)
	require.Equal(t, "2026-02", points[1].Month)
	require.True(t, points[1].Spending.IsZero())
}

func TestMonthlyTrendShape(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(-2, 36).Draw(t, "n")
		now := day(2020, 1, 1).Add(time.Duration(rapid.Int64Range(0, int64(10*365*24*time.Hour)).Draw(t, "offset")))

		r := New(memstore.New(), WithClock(func() time.Time { return now }))
		points := r.MonthlyTrend(context.Background(), uuid.New(), n)

		want := max(n, 1)
		if len(points) != want {
			t.Fatalf("got %d points, want %d", len(points), want)
		}
		if last := points[len(points)-1].Month; last != now.Format("2006-01") {
			t.Fatalf("last month %s, want %s", last, now.Format("2006-01"))
		}
		for i := 1; i < len(points); i++ {
			prev, _ := time.Parse("2006-01", points[i-1].Month)
			cur, _ := time.Parse("2006-01", points[i].Month)
			if !prev.AddDate(0, 1, 0).Equal(cur) {
				t.Fatalf("months %s and %s are not contiguous", points[i-1].Month, points[i].Month)
			}
		}
	})
}

func TestRegistrationTrend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := memstore.New()
	for _, at := range []time.Time{
		time.Date(2026, 1, 31, 23, 59, 0, 0, time.UTC),
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	} {
		require.NoError(t, store.CreateUser(ctx, &models.User{CreatedAt: at}))
	}

	r := New(store, WithClock(func() time.Time { return day(2026, 2, 20) }))
	points := r.RegistrationTrend(ctx, 3)

	require.Equal(t, []RegistrationPoint{
		{Month: "2025-12", Count: 0},
		{Month: "2026-01", Count: 1},
		{Month: "2026-02", Count: 2},
	}, points)
}

func TestPercentage(t *testing.T) {
	t.Parallel()

	require.True(t, Percentage(decimal.NewFromInt(5), decimal.Zero).IsZero())
	require.True(t, Percentage(decimal.NewFromInt(1), decimal.NewFromInt(3)).Equal(decimal.RequireFromString("33.33")))
	require.True(t, Percentage(decimal.NewFromInt(950), decimal.NewFromInt(1000)).Equal(decimal.NewFromInt(95)))
}
