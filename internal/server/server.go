// Package server wires the edge together: router, middleware, handlers,
// the shared token database, and the per-session state manager. It is the
// composition root — every dependency is assembled here, and main.go only
// supplies configuration.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/blog-edge/internal/handler"
	"github.com/sakif/blog-edge/internal/middleware"
	"github.com/sakif/blog-edge/internal/session"
	"github.com/sakif/blog-edge/internal/tokenstore"
	tokensqlite "github.com/sakif/blog-edge/internal/tokenstore/sqlite"
)

// Config holds server configuration.
type Config struct {
	Port          int
	UpstreamURL   string // base URL of the blog platform API
	DBPath        string // token database; "" = memory-only sessions
	SecureCookies bool
}

// Server owns the router and the resources that need a shutdown: the token
// database and every session's refresh timer.
type Server struct {
	router   *chi.Mux
	config   Config
	logger   *slog.Logger
	db       *tokensqlite.DB // nil when running memory-only
	sessions *session.Manager
}

// New creates a Server. The token database is optional: without a DBPath
// the edge still works, sessions just don't survive a restart.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	var kv tokenstore.KV
	var db *tokensqlite.DB
	if cfg.DBPath != "" {
		var err error
		db, err = tokensqlite.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening token database: %w", err)
		}
		kv = db
	} else {
		logger.Warn("no DB_PATH set — sessions will not survive a restart")
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		sessions: session.NewManager(cfg.UpstreamURL, kv, logger),
	}
	s.setupRoutes()
	return s, nil
}

// Sessions exposes the session manager (used by tests).
func (s *Server) Sessions() *session.Manager { return s.sessions }

// Router exposes the router (used by tests).
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Session(s.config.SecureCookies))

	authHandler := handler.NewAuthHandler(s.sessions, s.logger)
	postsHandler := handler.NewPostsHandler(s.sessions, s.logger)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/session", authHandler.HandleSession)
		r.Get("/profile", authHandler.HandleProfile)
	})
	s.router.Patch("/users/{id}", authHandler.HandleUpdateProfile)
	s.router.Post("/upload/profile", authHandler.HandleUploadProfileImage)
	s.router.Post("/upload/cover", authHandler.HandleUploadCoverImage)

	s.router.Route("/posts", func(r chi.Router) {
		r.Get("/", postsHandler.HandleList)
		r.Get("/feed", postsHandler.HandleFeed)
		r.Get("/feed/more", postsHandler.HandleFeedMore)
		r.Get("/{slug}", postsHandler.HandleGet)
		r.Post("/", postsHandler.HandleCreate)
		r.Patch("/{id}", postsHandler.HandleUpdate)
		r.Delete("/{id}", postsHandler.HandleDelete)
	})
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully:
// stop accepting connections, wait for in-flight requests, cancel every
// session's refresh timer, close the token database.
func (s *Server) Start() error {
	defer func() {
		s.sessions.StopAll()
		if s.db != nil {
			s.db.Close()
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // upstream calls can be slow behind a refresh
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("edge starting",
			slog.Int("port", s.config.Port),
			slog.String("upstream", s.config.UpstreamURL),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("edge stopped gracefully")
	}

	return nil
}
