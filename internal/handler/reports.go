package handler

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/642studio/bachejoa/internal/model"
	"github.com/642studio/bachejoa/internal/server/middleware"
	"github.com/642studio/bachejoa/internal/service"
)

// ReportHandler serves the public report map and its admin actions.
// Privilege checks happen in middleware; handlers only validate payloads.
type ReportHandler struct {
	reports *service.ReportService
	logger  *slog.Logger
}

// NewReportHandler creates a ReportHandler.
func NewReportHandler(reports *service.ReportService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger}
}

// List returns one page of reports, newest first.
// GET /api/reports?limit=&cursor=&cursor_id=
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", service.DefaultReportPageSize)

	var after *model.ReportCursor
	cursor, cursorID := r.URL.Query().Get("cursor"), r.URL.Query().Get("cursor_id")
	if cursor != "" && cursorID != "" {
		ts, err := time.Parse(time.RFC3339Nano, cursor)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid cursor.")
			return
		}
		after = &model.ReportCursor{Cursor: ts.UTC(), CursorID: cursorID}
	}

	page, err := h.reports.List(r.Context(), limit, after)
	if err != nil {
		writeServiceError(w, h.logger, err, "No se pudieron cargar los reportes.")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type createReportRequest struct {
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	Type        string   `json:"type"`
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory"`
	Status      string   `json:"status"`
	PhotoURL    string   `json:"photo_url"`
}

// Create files a new report. Both JSON and form-encoded bodies are
// accepted.
// POST /api/reports
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	in := decodeCreateReport(r)
	caller := middleware.GetCaller(r.Context())

	report, err := h.reports.Create(r.Context(), in, caller.User(), caller.Fingerprint.Fingerprint)
	if err != nil {
		writeServiceError(w, h.logger, err, "No se pudo crear el reporte.")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func decodeCreateReport(r *http.Request) service.CreateReportInput {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") || strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		// ParseMultipartForm falls back to ParseForm for urlencoded bodies.
		_ = r.ParseMultipartForm(1 << 20)
		return service.CreateReportInput{
			Lat:         parseCoord(r.FormValue("lat")),
			Lng:         parseCoord(r.FormValue("lng")),
			Type:        r.FormValue("type"),
			Category:    r.FormValue("category"),
			Subcategory: r.FormValue("subcategory"),
			Status:      r.FormValue("status"),
			PhotoURL:    r.FormValue("photo_url"),
		}
	}

	req := readPayload[createReportRequest](r)
	in := service.CreateReportInput{
		Lat:         math.NaN(),
		Lng:         math.NaN(),
		Type:        req.Type,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Status:      req.Status,
		PhotoURL:    req.PhotoURL,
	}
	if req.Lat != nil {
		in.Lat = *req.Lat
	}
	if req.Lng != nil {
		in.Lng = *req.Lng
	}
	return in
}

func parseCoord(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// Delete removes a report.
// DELETE /api/reports/{id}
func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.reports.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err, "No se pudo eliminar el reporte.")
		return
	}
	h.logger.Info("report deleted", "report_id", id, "by", middleware.GetCaller(r.Context()).User().ID)
	writeJSON(w, http.StatusOK, model.OKResponse{OK: true})
}

// SetStatus moves a report through its lifecycle.
// POST /api/reports/{id}/status
func (h *ReportHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	req := readPayload[struct {
		Status string `json:"status"`
	}](r)
	h.respond(w, func() (*model.Report, error) {
		return h.reports.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	})
}

// SetType reclassifies a report.
// POST /api/reports/{id}/type
func (h *ReportHandler) SetType(w http.ResponseWriter, r *http.Request) {
	req := readPayload[struct {
		Category    string `json:"category"`
		Subcategory string `json:"subcategory"`
	}](r)
	h.respond(w, func() (*model.Report, error) {
		return h.reports.SetType(r.Context(), chi.URLParam(r, "id"), req.Category, req.Subcategory)
	})
}

// SetRepaired marks a report repaired, or reopens it with
// {"repaired": false}.
// POST /api/reports/{id}/repair
func (h *ReportHandler) SetRepaired(w http.ResponseWriter, r *http.Request) {
	req := readPayload[struct {
		Repaired *bool `json:"repaired"`
	}](r)
	repaired := req.Repaired == nil || *req.Repaired
	h.respond(w, func() (*model.Report, error) {
		return h.reports.SetRepaired(r.Context(), chi.URLParam(r, "id"), repaired)
	})
}

// SetPhoto attaches a photo URL to a report.
// POST /api/reports/{id}/photo
func (h *ReportHandler) SetPhoto(w http.ResponseWriter, r *http.Request) {
	req := readPayload[struct {
		PhotoURL string `json:"photo_url"`
	}](r)
	h.respond(w, func() (*model.Report, error) {
		return h.reports.SetPhoto(r.Context(), chi.URLParam(r, "id"), req.PhotoURL)
	})
}

func (h *ReportHandler) respond(w http.ResponseWriter, fn func() (*model.Report, error)) {
	report, err := fn()
	if err != nil {
		writeServiceError(w, h.logger, err, "No se pudo actualizar el reporte.")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Rate records the caller's 1-5 rating of a repair.
// POST /api/reports/{id}/rating
func (h *ReportHandler) Rate(w http.ResponseWriter, r *http.Request) {
	req := readPayload[struct {
		Rating *float64 `json:"rating"`
	}](r)
	rating := math.NaN()
	if req.Rating != nil {
		rating = *req.Rating
	}

	fp := middleware.GetCaller(r.Context()).Fingerprint.Fingerprint
	summary, err := h.reports.Rate(r.Context(), chi.URLParam(r, "id"), fp, rating)
	if err != nil {
		writeServiceError(w, h.logger, err, "No se pudo registrar la calificación.")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Angry bumps the "angry" counter of a report.
// POST /api/reports/{id}/angry
func (h *ReportHandler) Angry(w http.ResponseWriter, r *http.Request) {
	n, err := h.reports.Angry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err, "No se pudo actualizar el reporte.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"angry_count": n})
}
