package session

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sendrec/vidwidget/internal/httputil"
)

// WidgetChecker reports whether a widget id is registered.
type WidgetChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type Handler struct {
	secret  string
	widgets WidgetChecker
}

func NewHandler(secret string, widgets WidgetChecker) *Handler {
	return &Handler{secret: secret, widgets: widgets}
}

type tokenResponse struct {
	Token     string `json:"token"`
	SessionID string `json:"sessionId"`
	Closed    bool   `json:"closed"`
	ExpiresAt string `json:"expiresAt"`
}

// Start issues a session token for a widget. A still-valid token for the
// same widget in the Authorization header is renewed, keeping its session
// id and closed flag.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	widgetID := chi.URLParam(r, "id")

	exists, err := h.widgets.Exists(r.Context(), widgetID)
	if err != nil {
		slog.Error("session: widget lookup failed", "widget_id", widgetID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to start session")
		return
	}
	if !exists {
		httputil.WriteError(w, http.StatusNotFound, "widget not found")
		return
	}

	sessionID := NewSessionID()
	closed := false
	if tokenStr, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		if prev, err := ParseToken(h.secret, tokenStr); err == nil && prev.WidgetID == widgetID {
			sessionID = prev.SessionID
			closed = prev.Closed
		}
	}

	h.respond(w, http.StatusCreated, widgetID, sessionID, closed)
}

type closedRequest struct {
	Closed bool `json:"closed"`
}

// SetClosed records the closed-for-session flag by re-issuing the token.
func (h *Handler) SetClosed(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var req closedRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.respond(w, http.StatusOK, claims.WidgetID, claims.SessionID, req.Closed)
}

func (h *Handler) respond(w http.ResponseWriter, status int, widgetID, sessionID string, closed bool) {
	token, err := IssueToken(h.secret, widgetID, sessionID, closed)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to issue session token")
		return
	}
	httputil.WriteJSON(w, status, tokenResponse{
		Token:     token,
		SessionID: sessionID,
		Closed:    closed,
		ExpiresAt: time.Now().Add(TokenDuration).UTC().Format(time.RFC3339),
	})
}
