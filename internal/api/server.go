// Package api provides the HTTP API server for Clarity.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/clarityfin/clarity/internal/ingest"
	"github.com/clarityfin/clarity/internal/llm"
	"github.com/clarityfin/clarity/internal/plaid"
	"github.com/clarityfin/clarity/internal/storage"
)

// LinkTokenCreator mints Link tokens for the client app.
type LinkTokenCreator interface {
	CreateLinkToken(ctx context.Context, userID string) (*plaid.LinkTokenResponse, error)
	IsConfigured() bool
}

// Advisor answers chat questions grounded in the snapshot.
type Advisor interface {
	Advise(ctx context.Context, summary string, history []llm.Message, question string) (string, error)
}

// Server is the HTTP API server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server

	userID  string
	linker  LinkTokenCreator
	ingest  *ingest.Service
	advisor Advisor
	wsHub   *WebSocketHub

	connections  *storage.ConnectionStore
	accounts     *storage.AccountStore
	transactions *storage.TransactionStore
	recurring    *storage.RecurringStore
}

// Config for the server.
type Config struct {
	Host    string
	Port    int
	UserID  string
	DB      *storage.DB
	Linker  LinkTokenCreator
	Ingest  *ingest.Service
	Advisor Advisor
}

// New creates a new API server.
func New(cfg Config) *Server {
	if cfg.UserID == "" {
		cfg.UserID = "local"
	}

	s := &Server{
		userID:       cfg.UserID,
		linker:       cfg.Linker,
		ingest:       cfg.Ingest,
		advisor:      cfg.Advisor,
		wsHub:        NewWebSocketHub(),
		connections:  storage.NewConnectionStore(cfg.DB),
		accounts:     storage.NewAccountStore(cfg.DB),
		transactions: storage.NewTransactionStore(cfg.DB),
		recurring:    storage.NewRecurringStore(cfg.DB),
	}

	s.setupRouter()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRouter configures all routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/link/token", s.handleCreateLinkToken)
		r.Post("/link/exchange", s.handleExchangeToken)

		r.Get("/connections", s.handleListConnections)
		r.Delete("/connections/{connectionID}", s.handleRemoveConnection)

		r.Post("/sync", s.handleSync)

		r.Get("/accounts", s.handleListAccounts)

		r.Get("/transactions", s.handleListTransactions)
		r.Put("/transactions/{transactionID}", s.handleUpdateTransaction)

		r.Get("/recurring", s.handleListRecurring)
		r.Post("/recurring/detect", s.handleDetectRecurring)

		r.Get("/snapshot", s.handleGetSnapshot)
		r.Get("/categories", s.handleListCategories)

		r.Post("/advice/chat", s.handleAdviceChat)

		r.Get("/stats", s.handleGetStats)
		r.Get("/health", s.handleHealth)
	})

	r.Get("/ws", s.wsHub.ServeHTTP)

	s.router = r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and the websocket hub.
func (s *Server) Start() error {
	go s.wsHub.Run()
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Broadcast pushes a mirror event to all connected clients.
func (s *Server) Broadcast(msgType string, data interface{}) {
	s.wsHub.Broadcast(WebSocketMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// Hub returns the websocket hub for wiring event sources.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// --- Response helpers ---

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
