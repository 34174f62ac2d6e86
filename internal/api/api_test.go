package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/subnest/internal/billing"
	"gitlab.com/yelinaung/subnest/internal/budget"
	"gitlab.com/yelinaung/subnest/internal/memstore"
	"gitlab.com/yelinaung/subnest/internal/models"
	"gitlab.com/yelinaung/subnest/internal/trend"
)

var now = time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type env struct {
	store   *memstore.Store
	handler http.Handler
	userID  uuid.UUID
	music   models.Category
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memstore.New()
	store.Now = clock

	reporter := trend.New(store, trend.WithClock(clock))
	evaluator := budget.New(store, reporter, "TRY")
	srv := NewServer(store, evaluator, reporter, billing.New(store, "TRY"), "TRY").WithClock(clock)

	e := &env{
		store:   store,
		handler: srv.Routes(),
		userID:  uuid.New(),
		music:   store.AddCategory("Music"),
	}
	require.NoError(t, store.CreateUser(context.Background(), &models.User{ID: e.userID, IsActive: true, IsVerified: true}))
	return e
}

type response struct {
	Status  string          `json:"status"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *env) do(t *testing.T, method, path string, userID *uuid.UUID) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if userID != nil {
		req.Header.Set(UserIDHeader, userID.String())
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var body response
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func (e *env) musicBudget(t *testing.T) *models.Budget {
	t.Helper()
	ctx := context.Background()
	b := &models.Budget{
		UserID: e.userID, Name: "Music", Amount: decimal.NewFromInt(1000),
		Period: models.PeriodMonthly, StartDate: now.AddDate(0, -1, 0), CategoryID: &e.music.ID, IsActive: true,
	}
	require.NoError(t, e.store.CreateBudget(ctx, b))
	require.NoError(t, e.store.CreateSubscription(ctx, &models.Subscription{
		UserID: e.userID, Name: "Spotify", Amount: decimal.NewFromInt(250), CategoryID: &e.music.ID,
		StartDate: now.AddDate(-1, 0, 0), NextBillingDate: now.AddDate(0, 0, 5),
	}))
	return b
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("health needs no auth", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		rec, body := e.do(t, http.MethodGet, "/api/v1/health", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "success", body.Status)
		require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("request id is propagated", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		req.Header.Set("X-Request-ID", "req-123")
		rec := httptest.NewRecorder()
		e.handler.ServeHTTP(rec, req)
		require.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	})

	t.Run("missing or invalid user id is unauthorized", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		rec, body := e.do(t, http.MethodGet, "/api/v1/recommendations", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "error", body.Status)
		require.Equal(t, http.StatusUnauthorized, body.Code)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations", nil)
		req.Header.Set(UserIDHeader, "not-a-uuid")
		rec = httptest.NewRecorder()
		e.handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("panics become 500", func(t *testing.T) {
		t.Parallel()
		r := chi.NewRouter()
		r.Use(middleware.RequestID, EchoRequestID, Logger(zerologNop()), middleware.Recoverer)
		r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("logger records status", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		h := Logger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/tea", nil))
		require.Contains(t, buf.String(), `"status":418`)
		require.Contains(t, buf.String(), `"path":"/tea"`)
	})
}

func TestGetBudget(t *testing.T) {
	t.Parallel()

	t.Run("returns evaluation", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		b := e.musicBudget(t)

		rec, body := e.do(t, http.MethodGet, "/api/v1/budgets/"+b.ID.String(), &e.userID)
		require.Equal(t, http.StatusOK, rec.Code)

		var got budgetResponse
		require.NoError(t, json.Unmarshal(body.Data, &got))
		require.Equal(t, b.ID, got.ID)
		require.Equal(t, "Music", got.CategoryName)
		requireDecimal(t, "250", got.CurrentSpending)
		requireDecimal(t, "750", got.Remaining)
		requireDecimal(t, "25", got.PercentageUsed)
		require.NotNil(t, got.SpendingHistory)
		require.Contains(t, string(body.Data), `"current_spending":250`)
	})

	t.Run("other user's budget is not found", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		b := e.musicBudget(t)
		other := uuid.New()

		rec, body := e.do(t, http.MethodGet, "/api/v1/budgets/"+b.ID.String(), &other)
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, "Budget not found", body.Message)
	})

	t.Run("invalid id", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		rec, _ := e.do(t, http.MethodGet, "/api/v1/budgets/nope", &e.userID)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBudgetStatistics(t *testing.T) {
	t.Parallel()

	t.Run("totals and trend", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		e.musicBudget(t)

		rec, body := e.do(t, http.MethodGet, "/api/v1/budgets/statistics?months=2", &e.userID)
		require.Equal(t, http.StatusOK, rec.Code)

		var stats budget.Statistics
		require.NoError(t, json.Unmarshal(body.Data, &stats))
		require.Equal(t, 1, stats.TotalBudgets)
		requireDecimal(t, "1000", stats.TotalBudgetAmount)
		requireDecimal(t, "250", stats.TotalSpending)
		require.Len(t, stats.MonthlyTrend, 2)
		require.Equal(t, "TRY", stats.Currency)
	})

	t.Run("rejects bad months", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		for _, q := range []string{"0", "-1", "abc", "37"} {
			rec, _ := e.do(t, http.MethodGet, "/api/v1/budgets/statistics?months="+q, &e.userID)
			require.Equal(t, http.StatusBadRequest, rec.Code, q)
		}
	})

	t.Run("chart", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		rec, _ := e.do(t, http.MethodGet, "/api/v1/budgets/statistics/chart", &e.userID)
		require.Equal(t, http.StatusNotFound, rec.Code)

		e.musicBudget(t)
		rec, _ = e.do(t, http.MethodGet, "/api/v1/budgets/statistics/chart", &e.userID)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		require.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
	})
}

func TestBillingStatistics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("subscription statistics", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		require.NoError(t, e.store.CreateSubscription(ctx, &models.Subscription{
			UserID: e.userID, Name: "Spotify", Amount: decimal.NewFromInt(60), CategoryID: &e.music.ID,
			StartDate: now.AddDate(-1, 0, 0), NextBillingDate: now.AddDate(0, 0, 5),
		}))
		require.NoError(t, e.store.CreateSubscription(ctx, &models.Subscription{
			UserID: e.userID, Name: "Tidal", Amount: decimal.NewFromInt(240), BillingCycle: models.BillingYearly,
			CategoryID: &e.music.ID, StartDate: now.AddDate(-1, 0, 0), NextBillingDate: now.AddDate(0, 2, 0),
		}))

		rec, body := e.do(t, http.MethodGet, "/api/v1/subscriptions/statistics", &e.userID)
		require.Equal(t, http.StatusOK, rec.Code)

		var stats billing.SubscriptionStatistics
		require.NoError(t, json.Unmarshal(body.Data, &stats))
		require.Equal(t, 2, stats.ActiveSubscriptions)
		requireDecimal(t, "80", stats.TotalMonthlyCost)
		requireDecimal(t, "960", stats.TotalYearlyCost)
		require.Len(t, stats.ByCategory, 1)
		require.Equal(t, "Music", stats.ByCategory[0].Category)
		require.Equal(t, "2026-03-25", stats.UpcomingPayments[0].DueDate)
	})

	t.Run("bill statistics by period and range", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		for _, b := range []*models.Bill{
			{Name: "Electricity", Amount: decimal.NewFromInt(400), DueDate: day(2026, 3, 5), PaymentStatus: models.PaymentPaid},
			{Name: "Rent", Amount: decimal.NewFromInt(9000), DueDate: day(2026, 4, 1)},
		} {
			b.UserID = e.userID
			require.NoError(t, e.store.CreateBill(ctx, b))
		}

		var stats billing.BillStatistics
		rec, body := e.do(t, http.MethodGet, "/api/v1/bills/statistics", &e.userID)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(body.Data, &stats))
		require.Equal(t, 2, stats.TotalBills)
		requireDecimal(t, "9400", stats.TotalAmount)

		rec, body = e.do(t, http.MethodGet, "/api/v1/bills/statistics?period=monthly", &e.userID)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(body.Data, &stats))
		require.Equal(t, 1, stats.TotalBills)
		requireDecimal(t, "400", stats.PaidAmount)

		rec, body = e.do(t, http.MethodGet, "/api/v1/bills/statistics?start_date=2026-04-01&end_date=2026-04-30", &e.userID)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(body.Data, &stats))
		require.Equal(t, 1, stats.PendingBills)
		requireDecimal(t, "9000", stats.PendingAmount)
	})

	t.Run("rejects bad bill filters", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		for _, q := range []string{
			"period=weekly",
			"start_date=2026-13-01&end_date=2026-12-31",
			"start_date=2026-03-01&end_date=2026-02-01",
		} {
			rec, body := e.do(t, http.MethodGet, "/api/v1/bills/statistics?"+q, &e.userID)
			require.Equal(t, http.StatusBadRequest, rec.Code, q)
			require.Equal(t, "error", body.Status)
		}
	})
}

func TestTrendEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("monthly trend defaults to six months", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		rec, body := e.do(t, http.MethodGet, "/api/v1/reports/monthly-trend", &e.userID)
		require.Equal(t, http.StatusOK, rec.Code)

		var points []trend.MonthlyPoint
		require.NoError(t, json.Unmarshal(body.Data, &points))
		require.Len(t, points, 6)
		require.Equal(t, "2026-03", points[5].Month)
	})

	t.Run("registration trend counts users", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		rec, body := e.do(t, http.MethodGet, "/api/v1/admin/registration-trend?months=1", &e.userID)
		require.Equal(t, http.StatusOK, rec.Code)

		var points []trend.RegistrationPoint
		require.NoError(t, json.Unmarshal(body.Data, &points))
		require.Equal(t, []trend.RegistrationPoint{{Month: "2026-03", Count: 1}}, points)
	})
}

func (e *env) recommendation(t *testing.T, title string, savings int64) *models.Recommendation {
	t.Helper()
	rec := &models.Recommendation{
		UserID: e.userID, Title: title, Type: models.RecConsolidateServices,
		RelatedType: models.RelatedCategory, PotentialSavings: decimal.NewFromInt(savings), Currency: "TRY",
	}
	created, err := e.store.CreateRecommendationIfAbsent(context.Background(), rec, now, 0)
	require.NoError(t, err)
	require.True(t, created)
	return rec
}

func TestRecommendations(t *testing.T) {
	t.Parallel()

	t.Run("lists with pagination and open savings", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		e.recommendation(t, "A", 10)
		e.recommendation(t, "B", 20)
		e.recommendation(t, "C", 30)

		rec, body := e.do(t, http.MethodGet, "/api/v1/recommendations?limit=2", &e.userID)
		require.Equal(t, http.StatusOK, rec.Code)

		var list recommendationList
		require.NoError(t, json.Unmarshal(body.Data, &list))
		require.Len(t, list.Items, 2)
		require.Equal(t, pagination{Total: 3, Page: 1, Limit: 2, Pages: 2}, list.Pagination)
		requireDecimal(t, "60", list.TotalPotentialSavings)
		require.Equal(t, "TRY", list.Currency)
	})

	t.Run("rejects invalid filters", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		for _, q := range []string{"type=bogus", "is_applied=maybe", "page=0"} {
			rec, _ := e.do(t, http.MethodGet, "/api/v1/recommendations?"+q, &e.userID)
			require.Equal(t, http.StatusBadRequest, rec.Code, q)
		}
	})

	t.Run("apply and dismiss", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		r := e.recommendation(t, "A", 10)

		rec, body := e.do(t, http.MethodPost, "/api/v1/recommendations/"+r.ID.String()+"/apply", &e.userID)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "Recommendation marked as applied", body.Message)
		var got recommendationResponse
		require.NoError(t, json.Unmarshal(body.Data, &got))
		require.True(t, got.IsApplied)
		require.False(t, got.IsDismissed)

		rec, body = e.do(t, http.MethodPost, "/api/v1/recommendations/"+r.ID.String()+"/dismiss", &e.userID)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(body.Data, &got))
		require.False(t, got.IsApplied)
		require.True(t, got.IsDismissed)

		rec, body = e.do(t, http.MethodGet, "/api/v1/recommendations?is_dismissed=true", &e.userID)
		require.Equal(t, http.StatusOK, rec.Code)
		var list recommendationList
		require.NoError(t, json.Unmarshal(body.Data, &list))
		require.Len(t, list.Items, 1)
		requireDecimal(t, "0", list.TotalPotentialSavings)
	})

	t.Run("unknown or foreign recommendation is not found", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		r := e.recommendation(t, "A", 10)
		other := uuid.New()

		rec, _ := e.do(t, http.MethodPost, "/api/v1/recommendations/"+r.ID.String()+"/apply", &other)
		require.Equal(t, http.StatusNotFound, rec.Code)
		rec, _ = e.do(t, http.MethodPost, "/api/v1/recommendations/"+uuid.NewString()+"/dismiss", &e.userID)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func zerologNop() zerolog.Logger { return zerolog.Nop() }
