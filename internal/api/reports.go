package api

import "net/http"

const defaultTrendMonths = 6

func (s *Server) monthlyTrend(w http.ResponseWriter, r *http.Request) {
	months, ok := queryInt(r, "months", defaultTrendMonths, MaxMonths)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid months")
		return
	}
	writeSuccess(w, s.trends.MonthlyTrend(r.Context(), userIDFrom(r.Context()), months))
}

func (s *Server) registrationTrend(w http.ResponseWriter, r *http.Request) {
	months, ok := queryInt(r, "months", defaultTrendMonths, MaxMonths)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid months")
		return
	}
	writeSuccess(w, s.trends.RegistrationTrend(r.Context(), months))
}
