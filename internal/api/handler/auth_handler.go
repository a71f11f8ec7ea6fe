package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"algoarena/internal/api/middleware"
	"algoarena/internal/app/service"
	"algoarena/internal/common"
	"algoarena/internal/common/security"
	"algoarena/internal/domain/model"
)

type AuthHandler struct {
	authService  *service.AuthService
	sessions     *security.SessionManager
	secureCookie bool
}

func NewAuthHandler(authService *service.AuthService, sessions *security.SessionManager, secureCookie bool) *AuthHandler {
	return &AuthHandler{authService: authService, sessions: sessions, secureCookie: secureCookie}
}

// RegisterPublicRoutes mounts the routes that do not need a session.
func (h *AuthHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
}

// RegisterProtectedRoutes mounts the routes behind the auth middleware.
func (h *AuthHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Post("/logout", h.logout)
	r.Get("/check", h.check)
}

type userResponse struct {
	User *model.User `json:"user"`
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	result, err := h.authService.Register(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	http.SetCookie(w, h.sessions.SessionCookie(result.Token, h.secureCookie))
	common.RespondWithJSON(w, http.StatusCreated, userResponse{User: result.User})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	result, err := h.authService.Login(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	http.SetCookie(w, h.sessions.SessionCookie(result.Token, h.secureCookie))
	common.RespondWithJSON(w, http.StatusCreated, userResponse{User: result.User})
}

// logout clears the session cookie. Tokens are not revoked server-side;
// validity remains purely cryptographic until expiry.
func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.sessions.ExpiredSessionCookie(h.secureCookie))
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *AuthHandler) check(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	common.RespondWithJSON(w, http.StatusOK, userResponse{User: user})
}
