package handler

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/642studio/bachejoa/internal/openapi"
)

// OpenAPIHandler serves the OpenAPI 3.1 document of the HTTP API. The
// document is static, so it is rendered once on first request.
type OpenAPIHandler struct {
	baseURL string

	once sync.Once
	body []byte
	err  error
}

// NewOpenAPIHandler creates an OpenAPIHandler advertising baseURL as the
// server address. An empty baseURL omits the servers list.
func NewOpenAPIHandler(baseURL string) *OpenAPIHandler {
	return &OpenAPIHandler{baseURL: baseURL}
}

// ServeSpec returns the document.
// GET /openapi.json
func (h *OpenAPIHandler) ServeSpec(w http.ResponseWriter, r *http.Request) {
	h.once.Do(func() {
		h.body, h.err = json.Marshal(openapi.Generate(h.baseURL))
	})
	if h.err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render OpenAPI document.")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(h.body)
}
