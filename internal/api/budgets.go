package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/subnest/internal/budget"
	"gitlab.com/yelinaung/subnest/internal/logger"
	"gitlab.com/yelinaung/subnest/internal/models"
)

const defaultStatisticsMonths = 3

type spendingEntryResponse struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	Date          string          `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	Source        string          `json:"source"`
}

type budgetResponse struct {
	ID              uuid.UUID               `json:"id"`
	Name            string                  `json:"name"`
	Amount          decimal.Decimal         `json:"amount"`
	Currency        string                  `json:"currency"`
	Period          models.Period           `json:"period"`
	StartDate       string                  `json:"start_date"`
	EndDate         *string                 `json:"end_date"`
	CategoryID      *uuid.UUID              `json:"category_id"`
	UserCategoryID  *uuid.UUID              `json:"user_category_id"`
	CategoryName    string                  `json:"category_name,omitempty"`
	IsActive        bool                    `json:"is_active"`
	WindowStart     string                  `json:"window_start"`
	WindowEnd       string                  `json:"window_end"`
	CurrentSpending decimal.Decimal         `json:"current_spending"`
	Remaining       decimal.Decimal         `json:"remaining"`
	PercentageUsed  decimal.Decimal         `json:"percentage_used"`
	SpendingHistory []spendingEntryResponse `json:"spending_history"`
}

func newBudgetResponse(ev *budget.Evaluation, fallbackCurrency string) budgetResponse {
	b := ev.Budget
	currency := b.Currency
	if currency == "" {
		currency = fallbackCurrency
	}
	resp := budgetResponse{
		ID:              b.ID,
		Name:            b.Name,
		Amount:          b.Amount,
		Currency:        currency,
		Period:          b.Period,
		StartDate:       b.StartDate.Format(time.DateOnly),
		CategoryID:      b.CategoryID,
		UserCategoryID:  b.UserCategoryID,
		CategoryName:    b.CategoryName,
		IsActive:        b.IsActive,
		WindowStart:     ev.Window.Start.Format(time.DateOnly),
		WindowEnd:       ev.Window.End.Format(time.DateOnly),
		CurrentSpending: ev.Spending,
		Remaining:       ev.Remaining,
		PercentageUsed:  ev.PercentageUsed,
		SpendingHistory: make([]spendingEntryResponse, 0, len(ev.History)),
	}
	if b.EndDate != nil {
		end := b.EndDate.Format(time.DateOnly)
		resp.EndDate = &end
	}
	for _, h := range ev.History {
		resp.SpendingHistory = append(resp.SpendingHistory, spendingEntryResponse{
			TransactionID: h.TransactionID,
			Date:          h.Date.Format(time.DateOnly),
			Amount:        h.Amount,
			Description:   h.Description,
			Source:        h.Source,
		})
	}
	return resp
}

func (s *Server) getBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid budget id")
		return
	}
	userID := userIDFrom(r.Context())

	ev, err := s.budgets.EvaluateByID(r.Context(), userID, id, s.now())
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Budget not found")
		return
	}
	if err != nil {
		logger.Log.Error().Err(err).Str("user_id", logger.HashUserID(userID)).Msg("Failed to evaluate budget")
		writeError(w, http.StatusInternalServerError, "Failed to load budget")
		return
	}

	writeSuccess(w, newBudgetResponse(ev, s.currency))
}

func (s *Server) statistics(w http.ResponseWriter, r *http.Request) (*budget.Statistics, bool) {
	months, ok := queryInt(r, "months", defaultStatisticsMonths, MaxMonths)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid months")
		return nil, false
	}
	userID := userIDFrom(r.Context())

	stats, err := s.budgets.Statistics(r.Context(), userID, s.now(), months)
	if err != nil {
		logger.Log.Error().Err(err).Str("user_id", logger.HashUserID(userID)).Msg("Failed to compute budget statistics")
		writeError(w, http.StatusInternalServerError, "Failed to compute budget statistics")
		return nil, false
	}
	return stats, true
}

func (s *Server) budgetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, ok := s.statistics(w, r)
	if !ok {
		return
	}
	writeSuccess(w, stats)
}

func (s *Server) budgetChart(w http.ResponseWriter, r *http.Request) {
	stats, ok := s.statistics(w, r)
	if !ok {
		return
	}

	png, err := budget.GenerateSpendingChart(stats)
	if errors.Is(err, budget.ErrNothingToChart) {
		writeError(w, http.StatusNotFound, "No budget spending to chart")
		return
	}
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to render budget chart")
		writeError(w, http.StatusInternalServerError, "Failed to render chart")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to write chart")
	}
}
