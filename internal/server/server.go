// Package server exposes the tutoring core over HTTP and WebSocket.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/abhisek/tutorly/internal/appstate"
	"github.com/abhisek/tutorly/internal/auth"
	"github.com/abhisek/tutorly/internal/conversation"
	"github.com/abhisek/tutorly/internal/gateway"
	"github.com/abhisek/tutorly/internal/quiz"
	"github.com/abhisek/tutorly/internal/store"
)

// GuestUserID owns the data of unauthenticated requests.
const GuestUserID = "guest"

// Deps are the collaborators of a Server. Auth and Quizzes are optional.
type Deps struct {
	Gateway     *gateway.Gateway
	Docs        store.DocumentRepo
	Quizzes     store.QuizResultRepo
	Auth        *auth.Service
	CORSOrigins []string
}

// userSession is the server-side state of one user.
type userSession struct {
	state *appstate.State
	chat  *conversation.Controller
}

type quizEntry struct {
	userID  string
	session *quiz.Session
}

// Server routes API requests to per-user controllers.
type Server struct {
	deps     Deps
	upgrader websocket.Upgrader

	mu      sync.Mutex
	users   map[string]*userSession
	quizzes map[string]*quizEntry
}

// New creates a Server.
func New(deps Deps) *Server {
	if len(deps.CORSOrigins) == 0 {
		deps.CORSOrigins = []string{"*"}
	}
	return &Server{
		deps: deps,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		users:   make(map[string]*userSession),
		quizzes: make(map[string]*quizEntry),
	}
}

// Handler returns the routed handler wrapped with CORS and request logging.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// System
	api.HandleFunc("/health", s.health).Methods("GET")
	api.HandleFunc("/subjects", s.withUser(s.subjects)).Methods("GET")
	api.HandleFunc("/format", s.format).Methods("POST")
	api.HandleFunc("/documents/extract", s.extractDocument).Methods("POST")

	// Auth
	api.HandleFunc("/auth/email-link", s.sendSignInLink).Methods("POST")
	api.HandleFunc("/auth/complete", s.completeSignIn).Methods("POST")
	api.HandleFunc("/auth/logout", s.logout).Methods("POST")

	// Profile
	api.HandleFunc("/profile", s.withUser(s.getProfile)).Methods("GET")
	api.HandleFunc("/profile", s.withUser(s.updateProfile)).Methods("PUT")

	// Tutor
	api.HandleFunc("/conversations/{subject}", s.withUser(s.getConversation)).Methods("GET")
	api.HandleFunc("/conversations/{subject}", s.withUser(s.clearConversation)).Methods("DELETE")
	api.HandleFunc("/tutor/{subject}/ws", s.withUser(s.tutorStream)).Methods("GET")

	// Tools
	api.HandleFunc("/translate", s.translate).Methods("POST")
	api.HandleFunc("/plan", s.withUser(s.plan)).Methods("POST")
	api.HandleFunc("/news", s.withUser(s.news)).Methods("GET")

	// Quiz
	api.HandleFunc("/quiz/sessions", s.withUser(s.createQuiz)).Methods("POST")
	api.HandleFunc("/quiz/sessions/{id}", s.withUser(s.getQuiz)).Methods("GET")
	api.HandleFunc("/quiz/sessions/{id}/answer", s.withUser(s.answerQuiz)).Methods("POST")
	api.HandleFunc("/quiz/sessions/{id}/flag", s.withUser(s.flagQuiz)).Methods("POST")
	api.HandleFunc("/quiz/sessions/{id}/advance", s.withUser(s.advanceQuiz)).Methods("POST")
	api.HandleFunc("/quiz/sessions/{id}/finish", s.withUser(s.finishQuiz)).Methods("POST")
	api.HandleFunc("/quiz/results", s.withUser(s.quizResults)).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   s.deps.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	return logRequests(c.Handler(r))
}

// Shutdown cancels every in-flight tutor exchange.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		u.chat.CancelAll()
	}
}

// session returns the user's session, restoring history and profile on
// first use.
func (s *Server) session(ctx context.Context, userID string) *userSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		return u
	}

	u := &userSession{state: appstate.New(true)}
	var opts []conversation.Option
	if s.deps.Docs != nil {
		opts = append(opts, conversation.WithStore(s.deps.Docs, userID))
		if p, err := s.deps.Docs.LoadProfile(ctx, userID); err == nil {
			u.state.ApplyProfile(*p)
		} else if !errors.Is(err, store.ErrNotFound) {
			logError("load profile %s: %v", userID, err)
		}
	}
	u.chat = conversation.New(s.deps.Gateway, opts...)
	if err := u.chat.Restore(ctx); err != nil {
		logError("restore conversations %s: %v", userID, err)
	}
	s.users[userID] = u
	return u
}

func (s *Server) saveProfile(ctx context.Context, userID string, u *userSession) {
	if s.deps.Docs == nil {
		return
	}
	if err := s.deps.Docs.SaveProfile(ctx, u.state.Profile(userID)); err != nil {
		logError("save profile %s: %v", userID, err)
	}
}

type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

// withUser resolves the caller from a Bearer token. Requests without a
// token act as the guest user; an invalid token is rejected.
func (s *Server) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next(w, r, GuestUserID)
			return
		}
		if s.deps.Auth == nil {
			errorResponse(w, "authentication is not enabled", http.StatusUnauthorized)
			return
		}
		user, err := s.deps.Auth.Authenticate(r.Context(), token)
		if err != nil {
			errorResponse(w, auth.UserMessage(err), http.StatusUnauthorized)
			return
		}
		next(w, r, user.ID)
	}
}

// bearerToken reads the Authorization header, falling back to the
// "token" query parameter that browsers use for WebSocket upgrades.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// Response-Helper
func jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logError("encode response: %v", err)
	}
}

func errorResponse(w http.ResponseWriter, message string, status int) {
	jsonResponse(w, map[string]string{"error": message}, status)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// maxBodyBytes leaves room for an inline base64 image.
const maxBodyBytes = 16 << 20

func logInfo(msg string, args ...any) {
	log.Printf("[HTTP] "+msg, args...)
}

func logError(msg string, args ...any) {
	log.Printf("[HTTP] ERROR: "+msg, args...)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logInfo("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}
