package chat

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sendrec/vidwidget/internal/httputil"
	"github.com/sendrec/vidwidget/internal/session"
	"github.com/sendrec/vidwidget/internal/validate"
)

// Notifier is told about every handoff the webhook accepted.
type Notifier interface {
	NotifyHandoff(ctx context.Context, widgetID, handoffID, message string) error
}

type Handler struct {
	client   *Client
	notifier Notifier
}

func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

func (h *Handler) WithNotifier(n Notifier) *Handler {
	h.notifier = n
	return h
}

type relayRequest struct {
	Message string `json:"message"`
}

type relayResponse struct {
	HandoffID string `json:"handoffId"`
}

// Status answers the availability probe used by embedded widgets.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"available": h.client.Enabled()})
}

// Relay forwards a chat opening message. It needs session claims for the
// widget in the path.
func (h *Handler) Relay(w http.ResponseWriter, r *http.Request) {
	widgetID := chi.URLParam(r, "id")
	claims := session.ClaimsFromContext(r.Context())
	if claims == nil || claims.WidgetID != widgetID {
		httputil.WriteError(w, http.StatusForbidden, "session does not belong to this widget")
		return
	}

	var req relayRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validate.ChatMessage(req.Message); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	id, err := h.client.Deliver(r.Context(), widgetID, claims.SessionID, req.Message)
	if errors.Is(err, ErrNotConfigured) {
		httputil.WriteError(w, http.StatusServiceUnavailable, "chat unavailable")
		return
	}
	if err != nil {
		slog.Error("chat: handoff delivery failed", "widget_id", widgetID, "session_id", claims.SessionID, "error", err)
		httputil.WriteError(w, http.StatusBadGateway, "chat handoff failed")
		return
	}

	if h.notifier != nil {
		if err := h.notifier.NotifyHandoff(r.Context(), widgetID, id, req.Message); err != nil {
			slog.Warn("chat: handoff notification failed", "widget_id", widgetID, "handoff_id", id, "error", err)
		}
	}

	httputil.WriteJSON(w, http.StatusAccepted, relayResponse{HandoffID: id})
}
