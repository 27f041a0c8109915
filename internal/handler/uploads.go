package handler

import (
	"log/slog"
	"math"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/642studio/bachejoa/internal/objectstore"
)

// MaxPhotoBytes is the largest photo a client may upload.
const MaxPhotoBytes = 8 << 20

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// UploadHandler hands out signed photo upload URLs.
type UploadHandler struct {
	signer   objectstore.Signer
	maxBytes int64
	logger   *slog.Logger
}

// NewUploadHandler creates an UploadHandler. A nil signer makes every
// request answer 503. maxBytes <= 0 means MaxPhotoBytes.
func NewUploadHandler(signer objectstore.Signer, maxBytes int64, logger *slog.Logger) *UploadHandler {
	if maxBytes <= 0 {
		maxBytes = MaxPhotoBytes
	}
	return &UploadHandler{signer: signer, maxBytes: maxBytes, logger: logger}
}

type uploadRequest struct {
	Filename    *string  `json:"filename"`
	ContentType string   `json:"contentType"`
	Size        *float64 `json:"size"`
}

// Create validates the announced file and returns a signed PUT URL.
// POST /api/uploads
func (h *UploadHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.signer == nil {
		writeError(w, http.StatusServiceUnavailable, "Uploads are not configured.")
		return
	}

	req := readPayload[uploadRequest](r)
	size := 0.0
	if req.Size != nil {
		size = *req.Size
	}
	if math.IsNaN(size) || math.IsInf(size, 0) || size <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid size.")
		return
	}
	if size > float64(h.maxBytes) {
		writeError(w, http.StatusBadRequest, "Photo too large.")
		return
	}
	if !strings.HasPrefix(req.ContentType, "image/") {
		writeError(w, http.StatusBadRequest, "Invalid file type.")
		return
	}

	name := "foto"
	if req.Filename != nil {
		name = *req.Filename
	}
	key := "reports/" + uuid.NewString() + "-" + sanitizeFilename(name)

	upload, err := h.signer.SignUpload(r.Context(), key, req.ContentType)
	if err != nil {
		h.logger.Error("sign upload", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "Upload error")
		return
	}
	writeJSON(w, http.StatusOK, upload)
}

func sanitizeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}
