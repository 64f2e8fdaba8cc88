// Package api exposes the engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/provablyhq/casino-engine/internal/seeds"
	"github.com/provablyhq/casino-engine/internal/session"
	"github.com/provablyhq/casino-engine/internal/wallet"
)

// Server handles HTTP requests.
type Server struct {
	sessions *session.Manager
	seeds    *seeds.Manager
	wallet   *wallet.Service
	logger   *log.Logger
}

// NewServer creates a new API server.
func NewServer(sessions *session.Manager, sm *seeds.Manager, w *wallet.Service, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{sessions: sessions, seeds: sm, wallet: w, logger: logger}
}

// Routes sets up the HTTP routes.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.recoverPanics)
	r.Use(s.requestLogger)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.Heartbeat("/health"))

	r.Route("/casino", func(r chi.Router) {
		r.Use(s.requireUser)

		r.Get("/games", s.handleListGames)
		r.Get("/games/{game}", s.handleGetGame)

		r.Post("/{game}/play", s.handlePlay)
		r.Post("/{game}/action", s.handleAction)
		r.Get("/{game}/session", s.handleGetSession)

		r.Get("/fairness/{roundID}", s.handleFairness)
		r.Get("/rounds/{roundID}", s.handleGetRound)

		r.Get("/seeds", s.handleCurrentSeed)
		r.Put("/seeds/client", s.handleSetClientSeed)
		r.Post("/seeds/rotate", s.handleRotateSeed)
		r.Get("/seeds/reveal/{hash}", s.handleRevealSeed)

		r.Get("/wallet/{currency}", s.handleGetWallet)
		r.Post("/wallet/{currency}/deposit", s.handleDeposit)
	})

	return r
}

// requestLogger logs one line per request without seed material.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Printf(
			"request method=%s path=%s status=%d duration=%v request_id=%s bytes=%d",
			r.Method, r.URL.Path, ww.Status(), time.Since(start),
			middleware.GetReqID(r.Context()), ww.BytesWritten(),
		)
	})
}

// recoverPanics converts panics into a structured 500 instead of a
// dropped connection.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Printf("panic request_id=%s path=%s: %v",
					middleware.GetReqID(r.Context()), r.URL.Path, rec)
				s.writeError(w, r, http.StatusInternalServerError, ErrTypeInternal,
					"internal error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type ctxKey int

const userIDKey ctxKey = 1

func withUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func userID(r *http.Request) string {
	v, _ := r.Context().Value(userIDKey).(string)
	return v
}

// requireUser authenticates requests by the X-User-ID header. Identity
// and auth live upstream; the engine only needs a stable user key.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			s.writeError(w, r, http.StatusUnauthorized, ErrTypeUnauthorized,
				"missing X-User-ID header", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), userID)))
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Printf("write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, errType, message string, context map[string]any) {
	s.writeJSON(w, status, EngineError{
		Type:      errType,
		Message:   message,
		Context:   context,
		RequestID: middleware.GetReqID(r.Context()),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
