package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/642studio/bachejoa/internal/model"
)

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{Error: message})
}
