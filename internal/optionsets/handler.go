package optionsets

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sendrec/vidwidget/internal/httputil"
	"github.com/sendrec/vidwidget/internal/validate"
	"github.com/sendrec/vidwidget/internal/widget"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Serve answers the public GET /options/{id} lookup with a bare JSON array.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if msg := validate.ID(id, "set id"); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	opts, err := h.repo.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "option set not found")
		return
	}
	if err != nil {
		slog.Error("optionsets: lookup failed", "set_id", id, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load option set")
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	httputil.WriteJSON(w, http.StatusOK, opts)
}

type putRequest struct {
	Options []widget.Option `json:"options"`
}

func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if msg := validate.ID(id, "set id"); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	var req putRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := checkOptions(req.Options); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	created, err := h.repo.Put(r.Context(), id, req.Options)
	if err != nil {
		slog.Error("optionsets: save failed", "set_id", id, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to save option set")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, map[string]any{"id": id, "count": len(req.Options)})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	opts, err := h.repo.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "option set not found")
		return
	}
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load option set")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"id": id, "options": opts})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.repo.Delete(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "option set not found")
		return
	}
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to delete option set")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.List(r.Context())
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to list option sets")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

func checkOptions(opts []widget.Option) string {
	if msg := validate.OptionCount(len(opts)); msg != "" {
		return msg
	}
	if err := widget.ValidateOptions(opts); err != nil {
		return err.Error()
	}
	for _, o := range opts {
		if msg := validate.OptionText(o.Text); msg != "" {
			return msg
		}
		if msg := validate.Payload(o.Payload); msg != "" {
			return msg
		}
	}
	return ""
}
