package api

import (
	"net/http"
	"time"

	"gitlab.com/yelinaung/subnest/internal/billing"
	"gitlab.com/yelinaung/subnest/internal/logger"
)

func (s *Server) subscriptionStatistics(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	stats, err := s.billing.SubscriptionStatistics(r.Context(), userID)
	if err != nil {
		logger.Log.Error().Err(err).Str("user_id", logger.HashUserID(userID)).Msg("Failed to compute subscription statistics")
		writeError(w, http.StatusInternalServerError, "Failed to compute subscription statistics")
		return
	}
	writeSuccess(w, stats)
}

// billRange reads start_date and end_date when both are given, otherwise
// the period parameter.
func (s *Server) billRange(r *http.Request) (billing.Range, string) {
	q := r.URL.Query()
	rawStart, rawEnd := q.Get("start_date"), q.Get("end_date")
	if rawStart != "" && rawEnd != "" {
		start, err := time.Parse(time.DateOnly, rawStart)
		if err != nil {
			return billing.Range{}, "Invalid start_date"
		}
		end, err := time.Parse(time.DateOnly, rawEnd)
		if err != nil {
			return billing.Range{}, "Invalid end_date"
		}
		rng, err := billing.NewRange(start, end)
		if err != nil {
			return billing.Range{}, "end_date must not be before start_date"
		}
		return rng, ""
	}

	rng, err := billing.PeriodRange(q.Get("period"), s.now())
	if err != nil {
		return billing.Range{}, "Invalid period"
	}
	return rng, ""
}

func (s *Server) billStatistics(w http.ResponseWriter, r *http.Request) {
	rng, problem := s.billRange(r)
	if problem != "" {
		writeError(w, http.StatusBadRequest, problem)
		return
	}
	userID := userIDFrom(r.Context())

	stats, err := s.billing.BillStatistics(r.Context(), userID, rng)
	if err != nil {
		logger.Log.Error().Err(err).Str("user_id", logger.HashUserID(userID)).Msg("Failed to compute bill statistics")
		writeError(w, http.StatusInternalServerError, "Failed to compute bill statistics")
		return
	}
	writeSuccess(w, stats)
}
