// Package devserver is an in-memory implementation of the document
// service's REST API for local trials and tests.
package devserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/phuslu/log"
	"golang.org/x/crypto/bcrypt"
)

// Config holds server configuration.
type Config struct {
	Port     int
	AllowAll bool // allow all CORS origins
	// FastHashing uses the cheapest bcrypt cost. Only for tests.
	FastHashing bool
}

// Server serves the document API from memory.
type Server struct {
	cfg        Config
	store      *store
	router     chi.Router
	httpServer *http.Server
}

// New creates a Server with no users or documents.
func New(cfg Config) *Server {
	s := &Server{cfg: cfg, store: newStore()}
	if cfg.FastHashing {
		s.store.hashCost = bcrypt.MinCost
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", s.handleSignup)
		r.Post("/login", s.handleLogin)
		r.With(s.requireUser).Get("/user-data", s.handleUserData)
	})

	r.Route("/documents", func(r chi.Router) {
		r.Use(s.requireUser)
		r.Get("/list", s.handleList)
		r.Post("/upload", s.handleUpload)
		r.Get("/get-next-untitled-number", s.handleNextUntitled)
		r.Get("/check-filename/{filename}", s.handleCheckFilename)
		r.Post("/submit-training-data", s.handleSubmitTraining)
		r.Get("/{id}", s.handleGet)
		r.Put("/{id}", s.handleUpdate)
		r.Delete("/{id}", s.handleDelete)
		r.Put("/{id}/rename", s.handleRename)
	})

	return r
}

// Router returns the HTTP handler.
func (s *Server) Router() chi.Router { return s.router }

// CreateUser adds an account directly, bypassing signup validation.
func (s *Server) CreateUser(email, password, firstName, lastName string) (User, error) {
	u, err := s.store.createUser(email, password, firstName, lastName)
	if err != nil {
		return User{}, err
	}
	return *u, nil
}

// IssueToken signs in an existing account and returns its bearer token.
func (s *Server) IssueToken(email, password string) (string, error) {
	token, ok := s.store.authenticate(email, password)
	if !ok {
		return "", fmt.Errorf("invalid credentials for %s", email)
	}
	return token, nil
}

// RevokeTokens invalidates every issued token.
func (s *Server) RevokeTokens() { s.store.revokeTokens() }

// Documents returns a user's documents, newest first.
func (s *Server) Documents(userID int64) []Document { return s.store.listDocuments(userID) }

// Training returns the submitted teacher corrections.
func (s *Server) Training() []TrainingRecord {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	return append([]TrainingRecord(nil), s.store.training...)
}

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("development backend listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("devserver request")
	})
}
