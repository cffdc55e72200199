// Package server is a reference implementation of the notification
// service REST contract, backed by the SQLite store. It serves the
// client during local development and in end-to-end tests.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/nhle/notification-center/internal/store"
)

// Server is the HTTP server.
type Server struct {
	store  store.Store
	tokens map[string]string
	logger logrus.FieldLogger
	router chi.Router
	now    func() time.Time

	httpServer *http.Server
}

// New creates a server. tokens maps bearer tokens to the user id they
// authenticate.
func New(s store.Store, tokens map[string]string, logger logrus.FieldLogger) *Server {
	srv := &Server{
		store:  s,
		tokens: tokens,
		logger: logger.WithField("component", "server"),
		now:    time.Now,
	}
	srv.setupRoutes()
	return srv
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/notification-categories", s.handleListCategories)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/notifications", s.handleListNotifications)
			r.Get("/notifications/unread-count", s.handleUnreadCount)
			r.Post("/notifications/read-all", s.handleMarkAllRead)
			r.Post("/notifications/{notificationID}/read", s.handleMarkRead)
			r.Delete("/notifications/{notificationID}", s.handleDelete)

			r.Get("/notification-settings", s.handleGetSettings)
			r.Put("/notification-settings", s.handlePutSettings)

			r.Get("/notification-preferences", s.handleGetPreferences)
			r.Put("/notification-preferences", s.handlePutPreferences)
		})
	})

	s.router = r
}

// Handler exposes the router, for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.WithField("addr", addr).Info("server starting")

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// authenticate requires a bearer token that belongs to the user in the path.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		owner, known := s.tokens[token]
		if !known {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		if owner != chi.URLParam(r, "userID") {
			writeError(w, http.StatusForbidden, "token does not belong to this user")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request through logrus.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("request")
	})
}
