package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gstchain/gstio/pkg/chain"
	"github.com/gstchain/gstio/pkg/config"
)

// ChainStatus is the block-level view returned by the get_info endpoint.
type ChainStatus struct {
	VirtualBlockCPULimit uint64 `json:"virtual_block_cpu_limit"`
	VirtualBlockNetLimit uint64 `json:"virtual_block_net_limit"`
	BlockCPULimit        uint64 `json:"block_cpu_limit"`
	BlockNetLimit        uint64 `json:"block_net_limit"`
	TotalRAMBytes        uint64 `json:"total_ram_bytes"`
	TotalNetWeight       uint64 `json:"total_net_weight"`
	TotalCPUWeight       uint64 `json:"total_cpu_weight"`
	PrepaidActivated     bool   `json:"prepaid_activated"`
}

// ResourceView is one resource's window view for an account.
type ResourceView struct {
	Used      int64 `json:"used"`
	Available int64 `json:"available"`
	Max       int64 `json:"max"`
}

// AccountStatus is the per-account view returned by the get_account
// endpoint. RAM fields use -1 for unlimited.
type AccountStatus struct {
	Account        string       `json:"account"`
	CPULimit       ResourceView `json:"cpu_limit"`
	NetLimit       ResourceView `json:"net_limit"`
	RAMQuota       int64        `json:"ram_quota"`
	RAMUsage       int64        `json:"ram_usage"`
	NetWeight      int64        `json:"net_weight"`
	CPUWeight      int64        `json:"cpu_weight"`
	PrepaidBalance int64        `json:"prepaid_balance"`
}

// StatusSource supplies the resource state served by the API. The node
// implements it with reads synchronized against the block production loop.
type StatusSource interface {
	ChainStatus() ChainStatus
	AccountStatus(account string) (AccountStatus, error)
}

// HistorySource supplies recent block usage rows. May be absent when the
// history recorder is disabled.
type HistorySource interface {
	RecentUsage(ctx context.Context, limit int) ([]chain.BlockUsage, error)
}

// Server is the read-only HTTP status API server.
type Server struct {
	config     config.ServerConfig
	status     StatusSource
	history    HistorySource
	metrics    http.Handler
	metricsURL string
	logger     *slog.Logger

	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.Mutex
	isRunning    bool
}

// Options configures optional server collaborators.
type Options struct {
	// History serves the block usage history endpoint. May be nil.
	History HistorySource

	// MetricsHandler, if set, is mounted at MetricsPath.
	MetricsHandler http.Handler

	// MetricsPath is where the metrics handler is mounted.
	// Default: "/metrics"
	MetricsPath string

	// Logger for server events. Defaults to slog.Default.
	Logger *slog.Logger
}

// NewServer creates a status API server.
func NewServer(cfg config.ServerConfig, status StatusSource, opts Options) (*Server, error) {
	if status == nil {
		return nil, fmt.Errorf("status source cannot be nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metricsPath := opts.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	return &Server{
		config:     cfg,
		status:     status,
		history:    opts.History,
		metrics:    opts.MetricsHandler,
		metricsURL: metricsPath,
		logger:     logger.With("component", "server"),
	}, nil
}

// Start starts the HTTP server and blocks until the context is cancelled
// or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddress,
		Handler:      s.routes(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("status API listening", "address", s.config.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down status API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		srv := s.httpServer
		s.isRunning = false
		s.mu.Unlock()

		if srv != nil {
			shutdownErr = srv.Shutdown(ctx)
		}
	})
	return shutdownErr
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/chain/get_info", s.handleGetInfo)
	mux.HandleFunc("GET /v1/chain/account/{name}", s.handleGetAccount)
	if s.history != nil {
		mux.HandleFunc("GET /v1/history/blocks", s.handleBlockHistory)
	}
	if s.metrics != nil {
		mux.Handle("GET "+s.metricsURL, s.metrics)
	}
	return mux
}
