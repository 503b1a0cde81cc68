package widgets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sendrec/vidwidget/internal/httputil"
	"github.com/sendrec/vidwidget/internal/storage"
	"github.com/sendrec/vidwidget/internal/validate"
	"github.com/sendrec/vidwidget/internal/widget"
)

const sourceURLExpiry = time.Hour

// ObjectStorage is the part of the bucket client the handlers need.
type ObjectStorage interface {
	ResolveSource(ctx context.Context, src string, expiry time.Duration) (string, error)
	HeadObject(ctx context.Context, key string) (int64, string, error)
}

type Handler struct {
	repo    *Repository
	storage ObjectStorage
	baseURL string
}

// NewHandler wires the widget handlers. storage may be nil, in which case
// s3:// sources are rejected on write.
func NewHandler(repo *Repository, storage ObjectStorage, baseURL string) *Handler {
	return &Handler{repo: repo, storage: storage, baseURL: baseURL}
}

// Config serves the construction-time configuration of a widget with bucket
// sources presigned and the remote endpoint defaulted to this server.
func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cfg, err := h.repo.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "widget not found")
		return
	}
	if err != nil {
		slog.Error("widgets: load config failed", "widget_id", id, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load widget")
		return
	}

	for i, v := range cfg.Videos {
		if _, ok := storage.ObjectKey(v.Source.URL); !ok || h.storage == nil {
			continue
		}
		signed, err := h.storage.ResolveSource(r.Context(), v.Source.URL, sourceURLExpiry)
		if err != nil {
			slog.Error("widgets: presign source failed", "widget_id", id, "video_id", v.ID, "error", err)
			httputil.WriteError(w, http.StatusInternalServerError, "failed to sign video source")
			return
		}
		cfg.Videos[i].Source.URL = signed
	}
	if cfg.RemoteEndpoint == "" {
		cfg.RemoteEndpoint = h.baseURL
	}

	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusOK, cfg)
}

func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if msg := validate.ID(id, "widget id"); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	var cfg widget.Config
	if err := httputil.DecodeJSON(w, r, &cfg); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cfg.ApplyDefaults()
	if msg := h.check(r.Context(), cfg); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	created, err := h.repo.Put(r.Context(), id, cfg)
	if err != nil {
		slog.Error("widgets: save failed", "widget_id", id, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to save widget")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, map[string]string{"id": id})
}

func (h *Handler) check(ctx context.Context, cfg widget.Config) string {
	if err := cfg.Validate(); err != nil {
		return err.Error()
	}
	if msg := validate.WidgetName(cfg.Name); msg != "" {
		return msg
	}
	if msg := validate.VideoCount(len(cfg.Videos)); msg != "" {
		return msg
	}
	if msg := validate.OptionCount(len(cfg.Options)); msg != "" {
		return msg
	}
	for _, v := range cfg.Videos {
		if msg := validate.VideoTitle(v.Title); msg != "" {
			return msg
		}
		if v.Source.URL == "" {
			return fmt.Sprintf("video %q has no source", v.ID)
		}
		key, ok := storage.ObjectKey(v.Source.URL)
		if !ok {
			continue
		}
		if h.storage == nil {
			return "object storage is not configured"
		}
		if _, _, err := h.storage.HeadObject(ctx, key); err != nil {
			return fmt.Sprintf("video %q source not found in storage", v.ID)
		}
	}
	for _, o := range cfg.Options {
		if msg := validate.OptionText(o.Text); msg != "" {
			return msg
		}
	}
	return ""
}
