// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/lucra-chat/internal/logging"
	"github.com/lucra-chat/internal/models"
	"github.com/lucra-chat/internal/service"
	"github.com/lucra-chat/internal/types"
)

// Service interfaces for dependency injection and testing

// ChatServiceInterface answers chat messages
type ChatServiceInterface interface {
	HandleMessage(ctx context.Context, req service.ChatRequest) (*service.ChatResponse, error)
}

// ConversationServiceInterface manages conversations
type ConversationServiceInterface interface {
	Create(ctx context.Context, walletAddress, title string) (*models.Conversation, error)
	List(ctx context.Context, walletAddress string) ([]*models.Conversation, error)
	Messages(ctx context.Context, conversationID string) ([]*models.ChatMessage, error)
	AppendMessage(ctx context.Context, in service.AppendMessageInput) (*models.ChatMessage, error)
}

// TransactionServiceInterface records transactions
type TransactionServiceInterface interface {
	Store(ctx context.Context, in service.StoreTransactionInput) (*models.Transaction, error)
	Update(ctx context.Context, id string, in service.UpdateTransactionInput) (*models.Transaction, error)
	List(ctx context.Context, walletAddress string) ([]*models.Transaction, error)
}

// UserServiceInterface resolves users
type UserServiceInterface interface {
	EnsureUser(ctx context.Context, walletAddress string, walletType types.WalletType) (*models.User, error)
}

// WalletServiceInterface verifies wallet ownership
type WalletServiceInterface interface {
	Verify(ctx context.Context, in service.VerifyInput) (*service.VerifyResult, error)
}

// BalanceServiceInterface reads native balances
type BalanceServiceInterface interface {
	GetBalance(ctx context.Context, address string) (*types.ChainBalance, error)
}

// AnalyticsServiceInterface aggregates intents
type AnalyticsServiceInterface interface {
	IntentCounts(ctx context.Context, days int) ([]*models.IntentCount, error)
}

// HealthCheck reports whether a backend is reachable
type HealthCheck func(ctx context.Context) error

// Services groups the handlers' collaborators
type Services struct {
	Chat          ChatServiceInterface
	Conversations ConversationServiceInterface
	Transactions  TransactionServiceInterface
	Users         UserServiceInterface
	Wallet        WalletServiceInterface
	Balance       BalanceServiceInterface
	Analytics     AnalyticsServiceInterface
	Tokens        TokenParser
	HealthChecks  map[string]HealthCheck
}

// Server represents the HTTP API server.
type Server struct {
	router      *mux.Router
	httpServer  *http.Server
	services    Services
	rateLimiter *RateLimiter
	config      *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	AllowedOrigins    string
	RequestsPerSecond int
	Burst             int
	AuthRequired      bool
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, services Services) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		services:    services,
		rateLimiter: NewRateLimiter(config.RequestsPerSecond, config.Burst),
		config:      config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	// Set up middleware (order matters!)
	s.router.Use(RequestIDMiddleware)
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware(s.config.AllowedOrigins))
	s.router.Use(RateLimitMiddleware(s.rateLimiter))
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Preflight requests are answered by CORSMiddleware
	s.router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Wallet verification issues the session token, so it sits outside auth
	api.HandleFunc("/wallet/verify", s.handleVerifyWallet).Methods("POST")

	protected := api.NewRoute().Subrouter()
	protected.Use(AuthMiddleware(s.services.Tokens, s.config.AuthRequired))

	protected.HandleFunc("/chat", s.handleChat).Methods("POST")

	protected.HandleFunc("/conversations", s.handleCreateConversation).Methods("POST")
	protected.HandleFunc("/conversations", s.handleListConversations).Methods("GET")
	protected.HandleFunc("/conversations/{id}/messages", s.handleListMessages).Methods("GET")
	protected.HandleFunc("/conversations/{id}/messages", s.handleAppendMessage).Methods("POST")

	protected.HandleFunc("/transactions", s.handleStoreTransaction).Methods("POST")
	protected.HandleFunc("/transactions", s.handleListTransactions).Methods("GET")
	protected.HandleFunc("/transactions/{id}", s.handleUpdateTransaction).Methods("PUT")

	protected.HandleFunc("/users", s.handleEnsureUser).Methods("POST")

	protected.HandleFunc("/balance/{address}", s.handleGetBalance).Methods("GET")
	protected.HandleFunc("/analytics/intents", s.handleIntentAnalytics).Methods("GET")
}

// handleHealth pings each configured backend. Any failure reports degraded with 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	checks := make(map[string]string, len(s.services.HealthChecks))
	for name, check := range s.services.HealthChecks {
		if err := check(ctx); err != nil {
			logging.FromContext(ctx).WithError(err).WithField("backend", name).Warn("health check failed")
			checks[name] = "unavailable"
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	respondJSON(w, code, map[string]interface{}{
		"status":  status,
		"service": "lucra-chat",
		"checks":  checks,
	})
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.WithFields(map[string]interface{}{"addr": s.httpServer.Addr}).Info("starting API server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// PruneRateLimiters drops idle rate limiter buckets every interval until ctx is done
func (s *Server) PruneRateLimiters(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.rateLimiter.Prune(); n > 0 {
				logging.WithFields(map[string]interface{}{"removed": n}).Info("pruned idle rate limiters")
			}
		}
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
