package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custodia/internal/conference/models"
	"custodia/internal/draft"
	"custodia/internal/platform/middleware"
	"custodia/internal/report"
	"custodia/internal/transport/http/shared"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/requestcontext"
)

// Store defines the roll-call record operations the handler needs.
type Store interface {
	Create(ctx context.Context, in models.NewConference) (string, error)
	Get(ctx context.Context, id string) (*models.Conference, error)
	ListForUser(ctx context.Context, userID string) ([]models.Conference, error)
	Delete(ctx context.Context, id string) error
	ClearForUser(ctx context.Context, userID string) error
}

const (
	msgSaveDraft = "Erro ao salvar rascunho"
	msgLoadDraft = "Erro ao buscar rascunho"
	msgNoDraft   = "Nenhum rascunho em andamento"
	msgNotFound  = "Conferência não encontrada"
)

// Handler serves /conferencias and the working draft of the current user.
type Handler struct {
	store  Store
	drafts draft.Store
	logger *slog.Logger
}

// New creates a conference Handler.
func New(store Store, drafts draft.Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, drafts: drafts, logger: logger}
}

type createRequest struct {
	Note          string `json:"observacao"`
	FacilityID    string `json:"unidadeId"`
	TotalChecked  int    `json:"totalConferidos" validate:"gte=0"`
	TotalExpected int    `json:"totalEsperados" validate:"gte=0"`
}

type finalizeRequest struct {
	FacilityID string `json:"unidadeId"`
}

// Register mounts the routes. Every route acts on behalf of the authenticated user.
func (h *Handler) Register(r chi.Router) {
	r.Route("/conferencias", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Delete("/", h.handleClear)
		r.Get("/relatorio.xlsx", h.handleHistoryDownload)
		r.Get("/rascunho", h.handleLoadDraft)
		r.Put("/rascunho", h.handleSaveDraft)
		r.Delete("/rascunho", h.handleDiscardDraft)
		r.Post("/rascunho/finalizar", h.handleFinalizeDraft)
		r.Delete("/{id}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	records, err := h.store.ListForUser(ctx, middleware.GetUserID(ctx))
	if err != nil {
		h.writeError(ctx, w, "list conferences", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, records)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		h.writeError(ctx, w, "create conference", err)
		return
	}
	h.create(ctx, w, models.NewConference{
		Note:          req.Note,
		FacilityID:    req.FacilityID,
		TotalChecked:  req.TotalChecked,
		TotalExpected: req.TotalExpected,
		UserID:        middleware.GetUserID(ctx),
	})
}

func (h *Handler) create(ctx context.Context, w http.ResponseWriter, in models.NewConference) {
	id, err := h.store.Create(ctx, in)
	if err != nil {
		h.writeError(ctx, w, "create conference", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// handleDelete removes one of the caller's records. Records of other users
// answer 404 like absent ones.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	record, err := h.store.Get(ctx, id)
	if err != nil {
		h.writeError(ctx, w, "delete conference", err)
		return
	}
	if record == nil || record.UserID != middleware.GetUserID(ctx) {
		h.writeError(ctx, w, "delete conference", dErrors.New(dErrors.CodeNotFound, msgNotFound))
		return
	}
	if err := h.store.Delete(ctx, id); err != nil {
		h.writeError(ctx, w, "delete conference", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.store.ClearForUser(ctx, middleware.GetUserID(ctx)); err != nil {
		h.writeError(ctx, w, "clear conferences", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHistoryDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	records, err := h.store.ListForUser(ctx, middleware.GetUserID(ctx))
	if err != nil {
		h.writeError(ctx, w, "history report", err)
		return
	}
	data, err := report.ConferenceHistory(records)
	if err != nil {
		h.writeError(ctx, w, "history report", dErrors.Wrap(err, dErrors.CodeInternal, "failed to build report"))
		return
	}
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="conferencias.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.ErrorContext(ctx, "failed to write history report",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
	}
}

func (h *Handler) handleLoadDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d, ok := h.loadDraft(ctx, w)
	if !ok {
		return
	}
	shared.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var d draft.Draft
	if err := shared.DecodeAndValidate(r, &d); err != nil {
		h.writeError(ctx, w, "save draft", err)
		return
	}
	d.UpdatedAt = requestcontext.Now(ctx).UTC()
	if err := h.drafts.Save(ctx, middleware.GetUserID(ctx), d); err != nil {
		h.writeError(ctx, w, "save draft", dErrors.Wrap(err, dErrors.CodePersistence, msgSaveDraft))
		return
	}
	shared.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleDiscardDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.drafts.Discard(ctx, middleware.GetUserID(ctx)); err != nil {
		h.writeError(ctx, w, "discard draft", dErrors.Wrap(err, dErrors.CodePersistence, msgSaveDraft))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleFinalizeDraft records the draft's totals as a roll call and discards
// the draft. A failed discard is logged only; the record is already written.
func (h *Handler) handleFinalizeDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req finalizeRequest
	if r.ContentLength > 0 {
		if err := shared.DecodeAndValidate(r, &req); err != nil {
			h.writeError(ctx, w, "finalize draft", err)
			return
		}
	}
	d, ok := h.loadDraft(ctx, w)
	if !ok {
		return
	}
	userID := middleware.GetUserID(ctx)
	expected, checked := d.Totals()
	id, err := h.store.Create(ctx, models.NewConference{
		Note:          d.Note,
		FacilityID:    req.FacilityID,
		TotalChecked:  checked,
		TotalExpected: expected,
		UserID:        userID,
	})
	if err != nil {
		h.writeError(ctx, w, "finalize draft", err)
		return
	}
	if err := h.drafts.Discard(ctx, userID); err != nil {
		h.logger.WarnContext(ctx, "draft left behind after finalize",
			"request_id", middleware.GetRequestID(ctx),
			"user_id", userID,
			"error", err,
		)
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) loadDraft(ctx context.Context, w http.ResponseWriter) (*draft.Draft, bool) {
	d, err := h.drafts.Load(ctx, middleware.GetUserID(ctx))
	if err != nil {
		h.writeError(ctx, w, "load draft", dErrors.Wrap(err, dErrors.CodeQuery, msgLoadDraft))
		return nil, false
	}
	if d == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, msgNoDraft))
		return nil, false
	}
	return d, true
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	h.logger.WarnContext(ctx, "conference request failed",
		"operation", op,
		"request_id", middleware.GetRequestID(ctx),
		"error", err,
	)
	shared.WriteError(w, err)
}
