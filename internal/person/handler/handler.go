package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custodia/internal/person/models"
	"custodia/internal/platform/middleware"
	"custodia/internal/report"
	"custodia/internal/transport/http/shared"
	dErrors "custodia/pkg/domain-errors"
)

// Store defines the person record operations the handler needs.
type Store interface {
	Create(ctx context.Context, in models.Input) (string, error)
	Update(ctx context.Context, id string, in models.Input) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.Person, error)
	ListAll(ctx context.Context) ([]models.Person, error)
	ListByLocation(ctx context.Context, pavilion string) ([]models.Person, error)
	ListByStatus(ctx context.Context, status models.Status) ([]models.Person, error)
	FindByRegistrationNumber(ctx context.Context, registration string) (*models.Person, error)
}

// Uploader publishes generated spreadsheets.
type Uploader interface {
	UploadSpreadsheet(ctx context.Context, data []byte, reportName, userID string) (string, error)
}

const msgNotFound = "Preso não encontrado"

// Handler serves the /presos endpoints.
type Handler struct {
	store    Store
	uploader Uploader
	logger   *slog.Logger
}

// New creates a person Handler.
func New(store Store, uploader Uploader, logger *slog.Logger) *Handler {
	return &Handler{store: store, uploader: uploader, logger: logger}
}

// Register mounts the routes. Callers are expected to wrap r with RequireAuth.
func (h *Handler) Register(r chi.Router) {
	r.Route("/presos", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/hospitalizados", h.handleListHospitalized)
		r.Get("/relatorio.xlsx", h.handleRosterDownload)
		r.Post("/relatorio", h.handleRosterUpload)
		r.Get("/matricula/{matricula}", h.handleFindByRegistration)
		r.Get("/{id}", h.handleGet)
		r.Patch("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})
}

// handleList lists everyone, or filters by ?pavilhao= or ?status=. Writes
// coerce unknown statuses, but a filter with one is rejected.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		people []models.Person
		err    error
	)
	switch q := r.URL.Query(); {
	case q.Get("pavilhao") != "":
		people, err = h.store.ListByLocation(ctx, q.Get("pavilhao"))
	case q.Get("status") != "":
		status := models.Status(q.Get("status"))
		if !status.IsValid() {
			h.writeError(ctx, w, "list persons", dErrors.New(dErrors.CodeBadRequest, "unknown status: "+string(status)))
			return
		}
		people, err = h.store.ListByStatus(ctx, status)
	default:
		people, err = h.store.ListAll(ctx)
	}
	if err != nil {
		h.writeError(ctx, w, "list persons", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, people)
}

func (h *Handler) handleListHospitalized(w http.ResponseWriter, r *http.Request) {
	people, err := h.store.ListByStatus(r.Context(), "")
	if err != nil {
		h.writeError(r.Context(), w, "list hospitalized", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, people)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	h.writePerson(w, r, "get person", func(ctx context.Context) (*models.Person, error) {
		return h.store.Get(ctx, chi.URLParam(r, "id"))
	})
}

func (h *Handler) handleFindByRegistration(w http.ResponseWriter, r *http.Request) {
	h.writePerson(w, r, "find by registration", func(ctx context.Context) (*models.Person, error) {
		return h.store.FindByRegistrationNumber(ctx, chi.URLParam(r, "matricula"))
	})
}

func (h *Handler) writePerson(w http.ResponseWriter, r *http.Request, op string, load func(context.Context) (*models.Person, error)) {
	ctx := r.Context()
	p, err := load(ctx)
	if err != nil {
		h.writeError(ctx, w, op, err)
		return
	}
	if p == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, msgNotFound))
		return
	}
	shared.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	id, err := h.store.Create(ctx, in)
	if err != nil {
		h.writeError(ctx, w, "create person", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	if err := h.store.Update(ctx, chi.URLParam(r, "id"), in); err != nil {
		h.writeError(ctx, w, "update person", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.store.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		h.writeError(ctx, w, "delete person", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRosterDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data, ok := h.roster(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="presos.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.ErrorContext(ctx, "failed to write roster",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
	}
}

// handleRosterUpload stores the roster in the object store and returns its URL.
func (h *Handler) handleRosterUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data, ok := h.roster(w, r)
	if !ok {
		return
	}
	name := "presos"
	if p := r.URL.Query().Get("pavilhao"); p != "" {
		name += " pavilhao " + p
	}
	url, err := h.uploader.UploadSpreadsheet(ctx, data, name, middleware.GetUserID(ctx))
	if err != nil {
		h.writeError(ctx, w, "upload roster", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]string{"url": url})
}

func (h *Handler) roster(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	ctx := r.Context()
	var (
		people []models.Person
		err    error
	)
	if p := r.URL.Query().Get("pavilhao"); p != "" {
		people, err = h.store.ListByLocation(ctx, p)
	} else {
		people, err = h.store.ListAll(ctx)
	}
	if err != nil {
		h.writeError(ctx, w, "load roster", err)
		return nil, false
	}
	data, err := report.Roster(people)
	if err != nil {
		h.writeError(ctx, w, "build roster", dErrors.Wrap(err, dErrors.CodeInternal, "failed to build report"))
		return nil, false
	}
	return data, true
}

func (h *Handler) decodeInput(w http.ResponseWriter, r *http.Request) (models.Input, bool) {
	var in models.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in == nil {
		h.logger.WarnContext(r.Context(), "invalid person payload",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}
	return in, true
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	h.logger.WarnContext(ctx, "person request failed",
		"operation", op,
		"request_id", middleware.GetRequestID(ctx),
		"error", err,
	)
	shared.WriteError(w, err)
}
