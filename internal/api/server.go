// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/fund-engine/internal/fund"
	"github.com/fund-engine/internal/models"
	"github.com/fund-engine/internal/storage"
	"github.com/fund-engine/internal/types"
	"github.com/gorilla/mux"
)

// FundEngineInterface defines the fund operations the server exposes,
// for dependency injection and testing.
type FundEngineInterface interface {
	InitializeFund(ctx context.Context, caller types.Principal) error
	SetPaused(ctx context.Context, caller types.Principal, paused bool) error
	SharePrice(ctx context.Context) (uint64, error)
	Deposit(ctx context.Context, caller types.Principal, amount uint64) (uint64, error)
	Withdraw(ctx context.Context, caller types.Principal, shareAmount uint64) (uint64, error)
	Transfer(ctx context.Context, caller, from, to types.Principal, amount uint64) error
	CreateProposal(ctx context.Context, caller types.Principal, title, description string, proposalType types.ProposalType, targetValue uint64) (uint64, error)
	Vote(ctx context.Context, caller types.Principal, proposalID uint64, support bool) error
	ExecuteRebalancing(ctx context.Context, caller types.Principal, proposalID uint64) (fund.RebalanceResult, error)
	FundInfo(ctx context.Context) (fund.FundInfo, error)
	GetAllocation(ctx context.Context, asset types.AssetSymbol) (models.AllocationEntry, error)
	UserBalance(ctx context.Context, p types.Principal) (fund.UserBalance, error)
	GetProposal(ctx context.Context, id uint64) (*models.Proposal, error)
}

// EventHistoryInterface defines the read side of the event history.
type EventHistoryInterface interface {
	RecentEvents(ctx context.Context, limit int) ([]models.FundEvent, error)
	PrincipalEvents(ctx context.Context, principal types.Principal, limit int) ([]models.FundEvent, error)
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	engine     FundEngineInterface
	cache      *storage.CacheService // optional
	history    EventHistoryInterface // optional
	config     *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	RequestsPerSecond int
	Burst             int
}

// NewServer creates a new API server instance. Cache and history may be nil;
// the corresponding features degrade gracefully.
func NewServer(
	config *ServerConfig,
	engine FundEngineInterface,
	cache *storage.CacheService,
	history EventHistoryInterface,
) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		engine:  engine,
		cache:   cache,
		history: history,
		config:  config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RequestsPerSecond, s.config.Burst)

	// Set up middleware (order matters!)
	s.router.Use(RequestIDMiddleware)
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter))

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
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// API v1 routes
	api := s.router.PathPrefix("/api").Subrouter()

	// Fund endpoints
	api.HandleFunc("/fund", s.handleGetFundInfo).Methods("GET")
	api.HandleFunc("/fund/share-price", s.handleGetSharePrice).Methods("GET")
	api.HandleFunc("/fund/allocations/{asset}", s.handleGetAllocation).Methods("GET")
	api.HandleFunc("/fund/initialize", s.handleInitializeFund).Methods("POST")
	api.HandleFunc("/fund/pause", s.handleSetPaused).Methods("POST")
	api.HandleFunc("/fund/deposits", s.handleDeposit).Methods("POST")
	api.HandleFunc("/fund/withdrawals", s.handleWithdraw).Methods("POST")
	api.HandleFunc("/fund/transfers", s.handleTransfer).Methods("POST")

	// Balance endpoints
	api.HandleFunc("/balances/{principal}", s.handleGetBalance).Methods("GET")

	// Governance endpoints
	api.HandleFunc("/proposals", s.handleCreateProposal).Methods("POST")
	api.HandleFunc("/proposals/{id}", s.handleGetProposal).Methods("GET")
	api.HandleFunc("/proposals/{id}/votes", s.handleVote).Methods("POST")
	api.HandleFunc("/proposals/{id}/rebalance", s.handleExecuteRebalancing).Methods("POST")

	// Event history endpoints
	api.HandleFunc("/events", s.handleGetEvents).Methods("GET")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "fund-engine",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Printf("Starting API server on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the root handler; used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
