package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kunquat-go/synthcore/internal/api/middleware"
	"github.com/kunquat-go/synthcore/internal/config"
	"github.com/kunquat-go/synthcore/internal/modstore"
)

// Server holds HTTP handler dependencies and the chi router. One Server
// serves every Handle a process manages; Handles are addressed by ID in
// the URL path, Player control is addressed through the PlayerRegistry a
// caller populates once it constructs a player.Player for a Handle (see
// DESIGN.md: full module-file loading is out of scope, so the control
// surface can only drive Players a Go caller already built).
type Server struct {
	router  *chi.Mux
	store   *modstore.Store
	players *PlayerRegistry
	cfg     *config.Config
	secret  []byte
	logger  *slog.Logger
}

// NewServer creates the HTTP handler with all routes mounted.
func NewServer(store *modstore.Store, players *PlayerRegistry, cfg *config.Config, secret []byte, logger *slog.Logger) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		store:   store,
		players: players,
		cfg:     cfg,
		secret:  secret,
		logger:  logger.With("subsystem", "api"),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes configures all middleware and mounts all route groups.
func (s *Server) routes() {
	r := s.router

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/handles", s.handleNewHandle)

		r.Route("/handles/{handleID}", func(r chi.Router) {
			// Issuing a token cannot itself require one.
			r.Post("/token", s.handleIssueToken)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireBearerAuth(s.secret))

				r.Delete("/", s.handleDeleteHandle)
				r.Put("/data/*", s.handleSetData)
				r.Get("/data/*", s.handleGetData)
				r.Get("/keys", s.handleListKeys)
				r.Post("/validate", s.handleValidate)

				r.Route("/player", func(r chi.Router) {
					r.Post("/reset", s.handleReset)
					r.Post("/play", s.handlePlay)
					r.Post("/skip", s.handleSkip)
					r.Post("/fire", s.handleFire)
					r.Get("/audio", s.handleGetAudio)
					r.Get("/status", s.handleStatus)
					r.Post("/reset-dc-blocker", s.handleResetDCBlocker)
					r.Post("/audio-rate", s.handleSetAudioRate)
					r.Post("/audio-buffer-size", s.handleSetAudioBufferSize)
					r.Post("/thread-count", s.handleSetThreadCount)
				})
			})
		})
	})

	s.logger.Info("api routes mounted")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// handleIssueToken mints a bearer token scoped to handleID, for a caller
// that already authenticated out-of-band (e.g. the process operator
// running kunquatd locally). There is no password or session flow here;
// §6's control surface is a single trusted remote-control client, not a
// multi-user admin panel (the teacher's session-cookie auth, dropped —
// see DESIGN.md).
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	handleID := chi.URLParam(r, "handleID")
	token, expiresAt, err := middleware.GenerateToken(s.secret, handleID)
	if err != nil {
		s.logger.Error("issuing token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expiresAt,
	})
}
