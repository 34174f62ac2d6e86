package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/subnest/internal/logger"
	"gitlab.com/yelinaung/subnest/internal/models"
)

type recommendationResponse struct {
	ID               uuid.UUID                 `json:"id"`
	Title            string                    `json:"title"`
	Description      string                    `json:"description"`
	Type             models.RecommendationType `json:"type"`
	RelatedID        *uuid.UUID                `json:"related_id"`
	RelatedType      string                    `json:"related_type,omitempty"`
	PotentialSavings decimal.Decimal           `json:"potential_savings"`
	Currency         string                    `json:"currency"`
	IsApplied        bool                      `json:"is_applied"`
	IsDismissed      bool                      `json:"is_dismissed"`
	CreatedAt        time.Time                 `json:"created_at"`
	UpdatedAt        time.Time                 `json:"updated_at"`
}

func newRecommendationResponse(rec *models.Recommendation) recommendationResponse {
	return recommendationResponse{
		ID:               rec.ID,
		Title:            rec.Title,
		Description:      rec.Description,
		Type:             rec.Type,
		RelatedID:        rec.RelatedID,
		RelatedType:      rec.RelatedType,
		PotentialSavings: rec.PotentialSavings,
		Currency:         rec.Currency,
		IsApplied:        rec.IsApplied,
		IsDismissed:      rec.IsDismissed,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}
}

type pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

type recommendationList struct {
	Items                 []recommendationResponse `json:"items"`
	Pagination            pagination               `json:"pagination"`
	TotalPotentialSavings decimal.Decimal          `json:"total_potential_savings"`
	Currency              string                   `json:"currency"`
}

func parseRecommendationFilter(r *http.Request) (models.RecommendationFilter, bool) {
	var f models.RecommendationFilter

	if raw := r.URL.Query().Get("type"); raw != "" {
		t := models.RecommendationType(raw)
		if !t.Valid() {
			return f, false
		}
		f.Type = &t
	}

	var ok bool
	if f.IsApplied, ok = queryBool(r, "is_applied"); !ok {
		return f, false
	}
	if f.IsDismissed, ok = queryBool(r, "is_dismissed"); !ok {
		return f, false
	}
	if f.Page, ok = queryInt(r, "page", 1, 0); !ok {
		return f, false
	}
	if f.Limit, ok = queryInt(r, "limit", models.DefaultPageLimit, 0); !ok {
		return f, false
	}
	return f.Normalize(), true
}

func (s *Server) listRecommendations(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseRecommendationFilter(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid query parameters")
		return
	}
	ctx := r.Context()
	userID := userIDFrom(ctx)

	recs, total, err := s.store.ListRecommendations(ctx, userID, filter)
	if err != nil {
		logger.Log.Error().Err(err).Str("user_id", logger.HashUserID(userID)).Msg("Failed to list recommendations")
		writeError(w, http.StatusInternalServerError, "Failed to list recommendations")
		return
	}
	savings, err := s.store.SumOpenSavings(ctx, userID)
	if err != nil {
		logger.Log.Error().Err(err).Str("user_id", logger.HashUserID(userID)).Msg("Failed to sum potential savings")
		writeError(w, http.StatusInternalServerError, "Failed to list recommendations")
		return
	}

	items := make([]recommendationResponse, 0, len(recs))
	for i := range recs {
		items = append(items, newRecommendationResponse(&recs[i]))
	}

	writeSuccess(w, recommendationList{
		Items: items,
		Pagination: pagination{
			Total: total,
			Page:  filter.Page,
			Limit: filter.Limit,
			Pages: (total + filter.Limit - 1) / filter.Limit,
		},
		TotalPotentialSavings: savings,
		Currency:              s.currency,
	})
}

type stateChange func(ctx context.Context, userID, id uuid.UUID) (*models.Recommendation, error)

func (s *Server) changeRecommendation(w http.ResponseWriter, r *http.Request, change stateChange, message string) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid recommendation id")
		return
	}
	userID := userIDFrom(r.Context())

	rec, err := change(r.Context(), userID, id)
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Recommendation not found")
		return
	}
	if err != nil {
		logger.Log.Error().Err(err).Str("user_id", logger.HashUserID(userID)).Msg("Failed to update recommendation")
		writeError(w, http.StatusInternalServerError, "Failed to update recommendation")
		return
	}

	writeSuccessMessage(w, message, newRecommendationResponse(rec))
}

func (s *Server) applyRecommendation(w http.ResponseWriter, r *http.Request) {
	s.changeRecommendation(w, r, s.store.MarkApplied, "Recommendation marked as applied")
}

func (s *Server) dismissRecommendation(w http.ResponseWriter, r *http.Request) {
	s.changeRecommendation(w, r, s.store.MarkDismissed, "Recommendation dismissed")
}
