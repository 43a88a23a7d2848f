// Package identity is the gateway to the authentication provider: sign-in,
// registration with its profile document, sign-out and session lookup.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"custodia/internal/backend/authprovider"
	"custodia/internal/backend/docstore"
	"custodia/internal/platform/logger"
	"custodia/internal/platform/metrics"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
)

// ProfilesCollection holds one profile document per user, keyed by user id.
const ProfilesCollection = "usuarios"

const (
	msgLogout      = "Erro ao sair"
	msgSaveProfile = "Erro ao salvar perfil do usuário"
	msgLoadProfile = "Erro ao buscar perfil do usuário"
)

// Role is the access level stored on a user profile.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleDirector Role = "director"
	RoleAgent    Role = "agent"
)

// ParseRole accepts the known roles; an empty value selects RoleAgent.
func ParseRole(v string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(v))); r {
	case "":
		return RoleAgent, nil
	case RoleAdmin, RoleDirector, RoleAgent:
		return r, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "role must be one of admin, director, agent")
	}
}

// Session is the signed-in identity.
type Session struct {
	UserID      string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Token       string `json:"idToken,omitempty"`
}

// Profile is the companion document written at registration.
type Profile struct {
	UserID     string    `json:"uid"`
	Name       string    `json:"nome"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	FacilityID *string   `json:"unidadeId"`
	Active     bool      `json:"ativo"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Gateway wraps an auth provider and the profile collection.
type Gateway struct {
	provider authprovider.Provider
	profiles docstore.Collection
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Gateway)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

func New(provider authprovider.Provider, ds docstore.Store, opts ...Option) *Gateway {
	g := &Gateway{
		provider: provider,
		profiles: ds.Collection(ProfilesCollection),
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) Login(ctx context.Context, email, password string) (*Session, error) {
	defer g.metrics.ObserveOperation("identity.login", time.Now())

	u, err := g.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, g.authFailure(ctx, "identity.login", err, "email", email)
	}
	return sessionFrom(u), nil
}

// Register creates the account, names it and writes its profile. When the
// profile write fails the account already exists; the failure is reported and
// logged but not compensated.
func (g *Gateway) Register(ctx context.Context, email, password, displayName string, role Role) (*Session, error) {
	defer g.metrics.ObserveOperation("identity.register", time.Now())

	role, err := ParseRole(string(role))
	if err != nil {
		return nil, err
	}

	u, err := g.provider.CreateAccount(ctx, email, password)
	if err != nil {
		return nil, g.authFailure(ctx, "identity.register", err, "email", email)
	}
	if err := g.provider.UpdateDisplayName(ctx, u, displayName); err != nil {
		return nil, g.authFailure(ctx, "identity.register", err, "user_id", u.UID)
	}
	u.DisplayName = displayName

	err = g.profiles.Set(ctx, u.UID, docstore.Document{
		"nome":      displayName,
		"email":     u.Email,
		"role":      string(role),
		"unidadeId": nil,
		"ativo":     true,
		"createdAt": docstore.ServerTimestamp,
	})
	if err != nil {
		g.metrics.IncrementBackendFailures("identity.register")
		g.logger.ErrorContext(ctx, "profile write failed after account creation",
			"user_id", u.UID,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, msgSaveProfile)
	}
	return sessionFrom(u), nil
}

// Logout ends the session that token belongs to; the token stops
// authenticating. An empty token only clears the cached session.
func (g *Gateway) Logout(ctx context.Context, token string) error {
	if err := g.provider.SignOut(ctx, token); err != nil {
		g.metrics.IncrementBackendFailures("identity.logout")
		g.logger.ErrorContext(ctx, "sign out failed", "error", err)
		return dErrors.Wrap(err, dErrors.CodeAuth, msgLogout)
	}
	return nil
}

// CurrentSession reads the provider's cached session without any I/O. It
// returns nil when nobody is signed in.
func (g *Gateway) CurrentSession() *Session {
	u, ok := g.provider.CurrentUser()
	if !ok {
		return nil
	}
	return sessionFrom(u)
}

// Authenticate verifies an ID token and returns the user id it belongs to.
func (g *Gateway) Authenticate(ctx context.Context, token string) (string, error) {
	u, err := g.provider.VerifyIDToken(ctx, token)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnauthorized, MessageForCode(authprovider.CodeOf(err)))
	}
	return u.UID, nil
}

// Profile loads the profile document of userID, or nil when it was never written.
func (g *Gateway) Profile(ctx context.Context, userID string) (*Profile, error) {
	doc, err := g.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		g.metrics.IncrementBackendFailures("identity.profile")
		g.logger.ErrorContext(ctx, "profile read failed", "user_id", userID, "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeQuery, msgLoadProfile)
	}
	p := &Profile{
		UserID:    userID,
		Name:      docstore.String(doc["nome"]),
		Email:     docstore.String(doc["email"]),
		Role:      Role(docstore.String(doc["role"])),
		Active:    docstore.Bool(doc["ativo"]),
		CreatedAt: docstore.Time(doc["createdAt"]),
	}
	if facility := docstore.String(doc["unidadeId"]); facility != "" {
		p.FacilityID = &facility
	}
	return p, nil
}

func (g *Gateway) authFailure(ctx context.Context, op string, err error, attrs ...any) error {
	code := authprovider.CodeOf(err)
	g.metrics.IncrementBackendFailures(op)
	g.logger.WarnContext(ctx, "auth provider rejected request",
		append([]any{"operation", op, "code", code, "error", err}, attrs...)...,
	)
	return dErrors.Wrap(err, dErrors.CodeAuth, MessageForCode(code))
}

func sessionFrom(u authprovider.User) *Session {
	return &Session{UserID: u.UID, Email: u.Email, DisplayName: u.DisplayName, Token: u.IDToken}
}
