package server

import (
	"context"
	"io/fs"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sendrec/vidwidget/internal/auth"
	"github.com/sendrec/vidwidget/internal/chat"
	"github.com/sendrec/vidwidget/internal/database"
	"github.com/sendrec/vidwidget/internal/docs"
	"github.com/sendrec/vidwidget/internal/events"
	"github.com/sendrec/vidwidget/internal/httputil"
	"github.com/sendrec/vidwidget/internal/optionsets"
	"github.com/sendrec/vidwidget/internal/ratelimit"
	"github.com/sendrec/vidwidget/internal/session"
	"github.com/sendrec/vidwidget/internal/validate"
	"github.com/sendrec/vidwidget/internal/widgets"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	DB              database.DBTX
	Pinger          Pinger
	Storage         widgets.ObjectStorage
	AssetsFS        fs.FS
	SessionSecret   string
	AdminKeyHash    string
	BaseURL         string
	AllowedOrigins  []string
	StorageEndpoint string
	Chat            chat.Config
	Notifier        chat.Notifier
	GeoIP           events.Locator
}

type Server struct {
	router        chi.Router
	pinger        Pinger
	sessionSecret string
	limiters      []*ratelimit.Limiter

	admin          *auth.Admin
	optionSets     *optionsets.Handler
	widgetHandler  *widgets.Handler
	sessionHandler *session.Handler
	chatHandler    *chat.Handler
	eventHandler   *events.Handler
	assetsFS       fs.FS
}

func New(cfg Config) *Server {
	r := chi.NewRouter()
	r.Use(slogMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(SecurityConfig{
		BaseURL:         cfg.BaseURL,
		StorageEndpoint: cfg.StorageEndpoint,
	}))
	r.Use(cors(cfg.AllowedOrigins))

	s := &Server{router: r, pinger: cfg.Pinger, assetsFS: cfg.AssetsFS}

	if cfg.DB != nil {
		if cfg.SessionSecret == "" {
			log.Fatal("SESSION_SECRET is required; set the environment variable")
		}
		s.sessionSecret = cfg.SessionSecret

		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:8080"
		}

		widgetRepo := widgets.NewRepository(cfg.DB)
		s.admin = auth.NewAdmin(cfg.AdminKeyHash)
		s.optionSets = optionsets.NewHandler(optionsets.NewRepository(cfg.DB))
		s.widgetHandler = widgets.NewHandler(widgetRepo, cfg.Storage, baseURL)
		s.sessionHandler = session.NewHandler(cfg.SessionSecret, widgetRepo)
		s.chatHandler = chat.NewHandler(chat.New(cfg.DB, cfg.Chat))
		if cfg.Notifier != nil {
			s.chatHandler.WithNotifier(cfg.Notifier)
		}
		s.eventHandler = events.NewHandler(events.NewRecorder(cfg.DB), cfg.GeoIP)
	}

	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start runs background maintenance until ctx is done.
func (s *Server) Start(ctx context.Context) {
	for _, l := range s.limiters {
		l.Start(ctx)
	}
}

func (s *Server) limiter(rps float64, burst int) *ratelimit.Limiter {
	l := ratelimit.NewLimiter(rps, burst)
	s.limiters = append(s.limiters, l)
	return l
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/limits", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, validate.FieldLimits())
	})
	s.router.Get("/api/docs", docs.HandleDocs)
	s.router.Get(docs.SpecPath, docs.HandleSpec)

	if s.optionSets != nil {
		publicLimiter := s.limiter(5, 30)
		s.router.Group(func(r chi.Router) {
			r.Use(publicLimiter.Middleware)
			r.Get("/options/{id}", s.optionSets.Serve)
			r.Get("/api/widgets/{id}/config", s.widgetHandler.Config)
			r.Post("/api/widgets/{id}/sessions", s.sessionHandler.Start)
			r.Get("/api/chat/status", s.chatHandler.Status)
		})

		sessionLimiter := s.limiter(2, 20).WithKey(func(r *http.Request) string {
			if claims := session.ClaimsFromContext(r.Context()); claims != nil {
				return claims.SessionID
			}
			return ratelimit.ClientIP(r)
		})
		s.router.Group(func(r chi.Router) {
			r.Use(session.Middleware(s.sessionSecret))
			r.Use(sessionLimiter.Middleware)
			r.Post("/api/sessions/closed", s.sessionHandler.SetClosed)
			r.Post("/api/widgets/{id}/chat", s.chatHandler.Relay)
			r.Post("/api/widgets/{id}/events", s.eventHandler.Track)
		})

		adminLimiter := s.limiter(1, 10)
		s.router.Group(func(r chi.Router) {
			r.Use(adminLimiter.Middleware)
			r.Use(s.admin.Middleware)
			r.Get("/api/option-sets", s.optionSets.List)
			r.Get("/api/option-sets/{id}", s.optionSets.Get)
			r.Put("/api/option-sets/{id}", s.optionSets.Put)
			r.Delete("/api/option-sets/{id}", s.optionSets.Delete)
			r.Put("/api/widgets/{id}", s.widgetHandler.Put)
		})
	}

	if s.assetsFS != nil {
		s.router.Handle("/embed/*", http.StripPrefix("/embed", newAssetServer(s.assetsFS)))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy","error":"database unreachable"}`))
			return
		}
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
