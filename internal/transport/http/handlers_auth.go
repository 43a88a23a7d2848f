package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custodia/internal/identity"
	"custodia/internal/platform/middleware"
	"custodia/internal/transport/http/shared"
	dErrors "custodia/pkg/domain-errors"
)

// IdentityService is the identity gateway as seen by the auth endpoints.
type IdentityService interface {
	Login(ctx context.Context, email, password string) (*identity.Session, error)
	Register(ctx context.Context, email, password, displayName string, role identity.Role) (*identity.Session, error)
	Logout(ctx context.Context, token string) error
	Profile(ctx context.Context, userID string) (*identity.Profile, error)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Email       string `json:"email" validate:"required"`
	Password    string `json:"password" validate:"required"`
	DisplayName string `json:"displayName" validate:"required"`
	Role        string `json:"role"`
}

// AuthHandler serves /auth.
type AuthHandler struct {
	identity IdentityService
	logger   *slog.Logger
}

func NewAuthHandler(identity IdentityService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{identity: identity, logger: logger}
}

func (h *AuthHandler) RegisterPublic(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/register", h.handleRegister)
}

func (h *AuthHandler) RegisterProtected(r chi.Router) {
	r.Post("/auth/logout", h.handleLogout)
	r.Get("/auth/me", h.handleMe)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req loginRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		h.writeError(ctx, w, "login", err)
		return
	}
	sess, err := h.identity.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.writeError(ctx, w, "login", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, sess)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req registerRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		h.writeError(ctx, w, "register", err)
		return
	}
	sess, err := h.identity.Register(ctx, req.Email, req.Password, req.DisplayName, identity.Role(req.Role))
	if err != nil {
		h.writeError(ctx, w, "register", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, sess)
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.identity.Logout(ctx, middleware.GetToken(ctx)); err != nil {
		h.writeError(ctx, w, "logout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile, err := h.identity.Profile(ctx, middleware.GetUserID(ctx))
	if err != nil {
		h.writeError(ctx, w, "profile", err)
		return
	}
	if profile == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "Perfil não encontrado"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, profile)
}

func (h *AuthHandler) writeError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	h.logger.WarnContext(ctx, "auth request failed",
		"operation", op,
		"request_id", middleware.GetRequestID(ctx),
		"error", err,
	)
	shared.WriteError(w, err)
}
