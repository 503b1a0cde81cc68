package events

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mssola/useragent"
	"github.com/sendrec/vidwidget/internal/database"
	"github.com/sendrec/vidwidget/internal/httputil"
	"github.com/sendrec/vidwidget/internal/ratelimit"
	"github.com/sendrec/vidwidget/internal/session"
	"github.com/sendrec/vidwidget/internal/validate"
)

// Event types accepted from embedded widgets.
const (
	TypeShown          = "shown"
	TypeHidden         = "hidden"
	TypeClosed         = "closed"
	TypeOptionSelected = "option_selected"
	TypeVideoPlayed    = "video_played"
)

var knownTypes = map[string]bool{
	TypeShown:          true,
	TypeHidden:         true,
	TypeClosed:         true,
	TypeOptionSelected: true,
	TypeVideoPlayed:    true,
}

// Client describes the visitor's software as parsed from the User-Agent.
type Client struct {
	Browser string
	OS      string
	Device  string
	Bot     bool
}

func ParseClient(ua string) Client {
	if ua == "" {
		return Client{Device: "unknown"}
	}
	parsed := useragent.New(ua)
	browser, _ := parsed.Browser()
	c := Client{Browser: browser, OS: parsed.OS(), Device: "desktop", Bot: parsed.Bot()}
	switch {
	case c.Bot:
		c.Device = "bot"
	case parsed.Mobile():
		c.Device = "mobile"
	}
	return c
}

type Record struct {
	WidgetID  string
	SessionID string
	Type      string
	OptionID  string
	VideoID   string
	Client    Client
	Country   string
	City      string
}

type Recorder struct {
	db database.DBTX
}

func NewRecorder(db database.DBTX) *Recorder {
	return &Recorder{db: db}
}

func (r *Recorder) Insert(ctx context.Context, rec Record) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO widget_events (widget_id, session_id, event_type, option_id, video_id, browser, os, device, country, city)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.WidgetID, rec.SessionID, rec.Type, nullable(rec.OptionID), nullable(rec.VideoID),
		nullable(rec.Client.Browser), nullable(rec.Client.OS), rec.Client.Device,
		nullable(rec.Country), nullable(rec.City),
	)
	if err != nil {
		return fmt.Errorf("insert widget event: %w", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type Handler struct {
	recorder *Recorder
	geo      Locator
}

func NewHandler(recorder *Recorder, geo Locator) *Handler {
	if geo == nil {
		geo = &GeoIP{}
	}
	return &Handler{recorder: recorder, geo: geo}
}

type eventRequest struct {
	Type     string `json:"type"`
	OptionID string `json:"optionId,omitempty"`
	VideoID  string `json:"videoId,omitempty"`
}

// Track records one interaction. Requests from crawlers are accepted and
// dropped.
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	widgetID := chi.URLParam(r, "id")
	claims := session.ClaimsFromContext(r.Context())
	if claims == nil || claims.WidgetID != widgetID {
		httputil.WriteError(w, http.StatusForbidden, "session does not belong to this widget")
		return
	}

	var req eventRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !knownTypes[req.Type] {
		httputil.WriteError(w, http.StatusBadRequest, "unknown event type")
		return
	}
	if req.Type == TypeOptionSelected && req.OptionID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "optionId is required for option_selected")
		return
	}
	if len(req.OptionID) > validate.MaxIDLength || len(req.VideoID) > validate.MaxIDLength {
		httputil.WriteError(w, http.StatusBadRequest, "identifier too long")
		return
	}

	client := ParseClient(r.UserAgent())
	if client.Bot {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	country, city := h.geo.Lookup(ratelimit.ClientIP(r))

	rec := Record{
		WidgetID:  widgetID,
		SessionID: claims.SessionID,
		Type:      req.Type,
		OptionID:  req.OptionID,
		VideoID:   req.VideoID,
		Client:    client,
		Country:   country,
		City:      city,
	}
	if err := h.recorder.Insert(r.Context(), rec); err != nil {
		slog.Error("events: record failed", "widget_id", widgetID, "type", req.Type, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to record event")
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
