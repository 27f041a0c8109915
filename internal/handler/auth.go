package handler

import (
	"log/slog"
	"net/http"

	"github.com/642studio/bachejoa/internal/model"
	"github.com/642studio/bachejoa/internal/server/middleware"
	"github.com/642studio/bachejoa/internal/service"
)

// AuthHandler serves registration, login, logout and the caller's own
// profile.
type AuthHandler struct {
	users    *service.UserService
	sessions *service.SessionManager
	reports  *service.ReportService
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(users *service.UserService, sessions *service.SessionManager, reports *service.ReportService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, reports: reports, logger: logger}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Identifier *string `json:"identifier"`
	Email      string  `json:"email"`
	Password   string  `json:"password"`
}

type userResponse struct {
	User *model.User `json:"user"`
}

type meResponse struct {
	User  *model.User      `json:"user"`
	Stats *model.UserStats `json:"stats"`
}

type accountResponse struct {
	User    *model.User    `json:"user"`
	Reports []model.Report `json:"reports"`
}

// Register creates a citizen account and signs it in.
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	req := readPayload[registerRequest](r)

	user, err := h.users.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "No se pudo crear la cuenta.")
		return
	}

	if !h.startSession(w, r, user) {
		return
	}
	h.logger.Info("user registered", "user_id", user.ID)
	writeJSON(w, http.StatusOK, userResponse{User: user})
}

// Login signs a user in by email or username.
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req := readPayload[loginRequest](r)
	identifier := req.Email
	if req.Identifier != nil {
		identifier = *req.Identifier
	}

	user, err := h.users.Authenticate(r.Context(), identifier, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err, "No se pudo iniciar sesión.")
		return
	}

	if !h.startSession(w, r, user) {
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: user})
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user *model.User) bool {
	issued, err := h.sessions.Issue(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("issue session", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "No se pudo iniciar sesión.")
		return false
	}
	http.SetCookie(w, h.sessions.Cookie(issued))
	return true
}

// Logout revokes the caller's session, if any, and clears the cookie.
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := service.ReadSessionToken(r); token != "" {
		if err := h.sessions.Revoke(r.Context(), token); err != nil {
			h.logger.Warn("revoke session", "error", err)
		}
	}
	http.SetCookie(w, h.sessions.ClearCookie())
	writeJSON(w, http.StatusOK, model.OKResponse{OK: true})
}

// Me returns the caller and their report counts, or nulls when anonymous.
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetCaller(r.Context()).User()
	if user == nil {
		writeJSON(w, http.StatusOK, meResponse{})
		return
	}

	stats, err := h.users.Stats(r.Context(), user.ID)
	if err != nil {
		h.logger.Warn("load user stats", "user_id", user.ID, "error", err)
		stats = &model.UserStats{}
	}
	writeJSON(w, http.StatusOK, meResponse{User: user, Stats: stats})
}

// UpdateMe changes the caller's avatar. Mounted behind RequireUser.
// PATCH /api/auth/me
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetCaller(r.Context()).User()
	req := readPayload[struct {
		AvatarKey string `json:"avatar_key"`
	}](r)

	updated, err := h.users.UpdateAvatar(r.Context(), user.ID, req.AvatarKey)
	if err != nil {
		writeServiceError(w, h.logger, err, "No se pudo actualizar el perfil.")
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: updated})
}

// Account returns the caller and every report they filed. Mounted behind
// RequireUser.
// GET /api/account
func (h *AuthHandler) Account(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetCaller(r.Context()).User()
	reports, err := h.reports.ListByUser(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.logger, err, "No se pudo cargar la cuenta.")
		return
	}
	writeJSON(w, http.StatusOK, accountResponse{User: user, Reports: reports})
}
