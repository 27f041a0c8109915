package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/642studio/bachejoa/internal/model"
	"github.com/642studio/bachejoa/internal/service"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the flat {"error": message} body.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, model.ErrorResponse{Error: message})
}

// readPayload decodes a JSON body into a T. An empty or malformed body
// yields the zero T, so field validation reports what is missing.
func readPayload[T any](r *http.Request) T {
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		var zero T
		return zero
	}
	return v
}

// queryInt extracts an integer query parameter, returning defaultVal if the
// parameter is missing or cannot be parsed.
func queryInt(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// serviceErrors maps service sentinels to their HTTP status and message.
var serviceErrors = []struct {
	err     error
	status  int
	message string
	code    string
}{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "Credenciales inválidas.", ""},
	{service.ErrUserExists, http.StatusConflict, "Ese usuario o correo ya existe.", ""},
	{service.ErrAnonLimit, http.StatusForbidden, "Para seguir participando, crea una cuenta", "ANON_LIMIT_REACHED"},
	{service.ErrReportNotFound, http.StatusNotFound, "Report not found", ""},
	{service.ErrNotRepaired, http.StatusBadRequest, "Report not repaired.", ""},
	{service.ErrAlreadyRated, http.StatusConflict, "Already rated.", ""},
	{service.ErrUserNotFound, http.StatusNotFound, "User not found", ""},
}

// writeServiceError translates a service error into a response. Unknown
// errors are logged and answered with fallback, without leaking details.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error, fallback string) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.Message)
		return
	}
	for _, e := range serviceErrors {
		if errors.Is(err, e.err) {
			writeJSON(w, e.status, model.ErrorResponse{Error: e.message, Code: e.code})
			return
		}
	}
	logger.Error(fallback, "error", err)
	writeError(w, http.StatusInternalServerError, fallback)
}
