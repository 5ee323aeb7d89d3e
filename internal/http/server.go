// Package http exposes the ledger over a JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"flashcount/internal/backup"
	"flashcount/internal/core"
	"flashcount/internal/log"
	"flashcount/internal/services"
	"flashcount/internal/storage"
)

// Store is the storage surface the handlers need.
type Store interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (int64, error)
	SoftDeleteTransaction(ctx context.Context, id int64) error
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	ListTransactionsByMonth(ctx context.Context, year, month int) ([]core.Transaction, error)
	CreateRule(ctx context.Context, r core.RecurringRule) (int64, error)
	ListRules(ctx context.Context) ([]core.RecurringRule, error)
	SetRuleActive(ctx context.Context, id int64, active bool) error
	UpsertBudget(ctx context.Context, b core.Budget) error
	CreateAsset(ctx context.Context, a core.PhysicalAsset) (int64, error)
	ListAssets(ctx context.Context) ([]core.PhysicalAsset, error)
	RecomputeDailySummary(ctx context.Context, day core.Date) error
	ListDailySummaries(ctx context.Context, year, month int) ([]storage.DailySummary, error)
}

type Server struct {
	http.Server

	store     Store
	reports   *services.ReportService
	budgets   *services.BudgetService
	processor *services.RecurringProcessor
	backups   *backup.Service

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, store Store, reports *services.ReportService, budgets *services.BudgetService, processor *services.RecurringProcessor, backups *backup.Service) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:       store,
		reports:     reports,
		budgets:     budgets,
		processor:   processor,
		backups:     backups,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/api/transactions", s.withMiddleware(s.handleTransactions))
	mux.HandleFunc("/api/transactions/", s.withMiddleware(s.handleTransactionByID))
	mux.HandleFunc("/api/rules", s.withMiddleware(s.handleRules))
	mux.HandleFunc("/api/rules/advance", s.withMiddleware(s.handleAdvanceRules))
	mux.HandleFunc("/api/rules/", s.withMiddleware(s.handleRuleByID))
	mux.HandleFunc("/api/report", s.withMiddleware(s.handleReport))
	mux.HandleFunc("/api/budget", s.withMiddleware(s.handleBudget))
	mux.HandleFunc("/api/assets", s.withMiddleware(s.handleAssets))
	mux.HandleFunc("/api/summary/daily", s.withMiddleware(s.handleDailySummaries))
	mux.HandleFunc("/api/backup", s.withMiddleware(s.handleBackup))

	return s
}

// Shutdown stops the server and its cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withMiddleware adds request tracing, rate limiting on writes, security
// headers and completion logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			requestFields(requestID, clientIP, r).ToSlice()...)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		fields := requestFields(requestID, clientIP, r)
		fields[log.FieldStatusCode] = rw.statusCode
		fields[log.FieldDuration] = time.Since(start).Milliseconds()
		slog.InfoContext(ctx, "Request completed", fields.ToSlice()...)
	}
}

// requestFields builds the common structured fields for request logs.
func requestFields(requestID, clientIP string, r *http.Request) log.LogFields {
	fields := log.NewFields().WithComponent(log.ComponentHTTP)
	fields[log.FieldRequestID] = requestID
	fields[log.FieldClientIP] = clientIP
	fields[log.FieldMethod] = r.Method
	fields[log.FieldPath] = r.URL.Path
	return fields
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// rateLimiter is a small per-IP request counter, 60 writes per minute.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]
	if !exists {
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	client.requests++
	client.lastRequest = now
	return client.requests <= 60
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := s.store.ListRules(ctx); err != nil {
		slog.ErrorContext(ctx, "Readiness check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "storage not ready")
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
