package api

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/subnest/internal/logger"
)

func init() {
	// Amounts are serialized as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

type envelope struct {
	Status  string `json:"status"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to write response")
	}
}

func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Status: "success", Data: data})
}

func writeSuccessMessage(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, envelope{Status: "success", Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Status: "error", Code: status, Message: message})
}
