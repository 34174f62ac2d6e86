// Package api exposes budgets, billing statistics, reports and
// recommendations over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/subnest/internal/billing"
	"gitlab.com/yelinaung/subnest/internal/budget"
	"gitlab.com/yelinaung/subnest/internal/logger"
	"gitlab.com/yelinaung/subnest/internal/models"
	"gitlab.com/yelinaung/subnest/internal/trend"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// MaxMonths caps the months query parameter of trend endpoints.
const MaxMonths = 36

// Store is the recommendation persistence used by the handlers.
type Store interface {
	ListRecommendations(ctx context.Context, userID uuid.UUID, filter models.RecommendationFilter) ([]models.Recommendation, int, error)
	SumOpenSavings(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	MarkApplied(ctx context.Context, userID, id uuid.UUID) (*models.Recommendation, error)
	MarkDismissed(ctx context.Context, userID, id uuid.UUID) (*models.Recommendation, error)
}

// Server holds the handler dependencies.
type Server struct {
	store    Store
	budgets  *budget.Evaluator
	trends   *trend.Reporter
	billing  *billing.Reporter
	currency string
	now      func() time.Time
}

// NewServer creates a Server.
func NewServer(
	store Store,
	budgets *budget.Evaluator,
	trends *trend.Reporter,
	billingStats *billing.Reporter,
	currency string,
) *Server {
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return &Server{
		store:    store,
		budgets:  budgets,
		trends:   trends,
		billing:  billingStats,
		currency: currency,
		now:      time.Now,
	}
}

// WithClock overrides the time used to evaluate budgets.
func (s *Server) WithClock(now func() time.Time) *Server {
	s.now = now
	return s
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(EchoRequestID)
	r.Use(Logger(logger.Log))
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.health)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate)

			r.Get("/budgets/statistics", s.budgetStatistics)
			r.Get("/budgets/statistics/chart", s.budgetChart)
			r.Get("/budgets/{id}", s.getBudget)

			r.Get("/subscriptions/statistics", s.subscriptionStatistics)
			r.Get("/bills/statistics", s.billStatistics)

			r.Get("/reports/monthly-trend", s.monthlyTrend)

			r.Get("/recommendations", s.listRecommendations)
			r.Post("/recommendations/{id}/apply", s.applyRecommendation)
			r.Post("/recommendations/{id}/dismiss", s.dismissRecommendation)

			r.Get("/admin/registration-trend", s.registrationTrend)
		})
	})

	return otelhttp.NewHandler(r, "subnest-api")
}

// NewHTTPServer wraps handler in an http.Server with the service timeouts.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, map[string]string{"state": "ok"})
}

// queryInt parses an optional positive integer query parameter bounded by
// upper.
func queryInt(r *http.Request, key string, def, upper int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || (upper > 0 && n > upper) {
		return 0, false
	}
	return n, true
}

func queryBool(r *http.Request, key string) (*bool, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, false
	}
	return &b, true
}

func pathID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}
