// Package http exposes the stores as a JSON API. Per-period summary and
// breakdown responses are memoized in LRU caches that ledger change
// events invalidate.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/goal"
	"budget/internal/ledger"
	applog "budget/internal/log"
)

// SettingsKey is the persisted-state key holding opaque UI settings.
const SettingsKey = "appSettings"

type Server struct {
	http.Server
	transactions *ledger.Store
	goals        *goal.Store
	kv           ledger.Storage
	rateLimiter  *rateLimiter
	pageSize     int

	summaryCache   *cache.LRUCache[core.PeriodSummary]
	breakdownCache *cache.LRUCache[[]core.CategoryAmount]

	shutdownOnce sync.Once
}

// NewServer wires routes and cache invalidation. The ledger subscription
// is registered here, so the server must be built before the stores are
// shared with other goroutines.
func NewServer(addr string, transactions *ledger.Store, goals *goal.Store, kv ledger.Storage, pageSize int) *Server {
	mux := http.NewServeMux()

	if pageSize <= 0 {
		pageSize = ledger.DefaultPageSize
	}
	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		transactions:   transactions,
		goals:          goals,
		kv:             kv,
		rateLimiter:    newRateLimiter(),
		pageSize:       pageSize,
		summaryCache:   cache.NewLRUCache[core.PeriodSummary](100, 5*time.Minute),
		breakdownCache: cache.NewLRUCache[[]core.CategoryAmount](100, 5*time.Minute),
	}

	transactions.Subscribe(func(ev ledger.Event) {
		s.summaryCache.Delete(ev.Period.Key())
		s.breakdownCache.Delete(ev.Period.Key())
	})

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("GET /api/transactions", s.withMiddleware(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.withMiddleware(s.handleCreateTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.withMiddleware(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withMiddleware(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/summary", s.withMiddleware(s.handleSummary))
	mux.HandleFunc("GET /api/breakdown", s.withMiddleware(s.handleBreakdown))

	mux.HandleFunc("GET /api/goals", s.withMiddleware(s.handleListGoals))
	mux.HandleFunc("POST /api/goals", s.withMiddleware(s.handleCreateGoal))
	mux.HandleFunc("PUT /api/goals/{id}", s.withMiddleware(s.handleUpdateGoal))
	mux.HandleFunc("DELETE /api/goals/{id}", s.withMiddleware(s.handleDeleteGoal))
	mux.HandleFunc("GET /api/goals/progress", s.withMiddleware(s.handleGoalProgress))

	mux.HandleFunc("GET /api/settings", s.withMiddleware(s.handleGetSettings))
	mux.HandleFunc("PUT /api/settings", s.withMiddleware(s.handlePutSettings))

	return s
}

// Shutdown stops the rate limiter's cleanup goroutine before draining
// in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withMiddleware adds security headers, rate limiting on mutations, a
// request ID and request logging.
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

		fields := applog.NewFields().
			WithHTTPRequest(r.Method, r.URL.Path, clientIP).
			WithComponent(applog.ComponentHTTP)
		fields[applog.FieldRequestID] = requestID
		slog.InfoContext(ctx, "Request started", fields.ToSlice()...)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldPath, r.URL.Path,
				applog.FieldComponent, applog.ComponentHTTP)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		level := slog.LevelInfo
		if rw.statusCode >= 500 {
			level = slog.LevelError
		} else if rw.statusCode >= 400 {
			level = slog.LevelWarn
		}
		fields = fields.WithHTTPResponse(rw.statusCode, time.Since(start).Milliseconds())
		slog.Default().Log(ctx, level, "Request completed", fields.ToSlice()...)
	}
}

type requestIDKey struct{}

// responseWriter captures the status code for request logging.
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

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports degraded when the last persist failed; the API
// keeps serving from memory either way.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.transactions.Persisted() || !s.goals.Persisted() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// periodFromQuery reads month/year, defaulting to the current month.
func periodFromQuery(r *http.Request) (core.Period, error) {
	p := core.CurrentPeriod(time.Now())
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return core.Period{}, fmt.Errorf("invalid month %q", v)
		}
		p.Month = m
	}
	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return core.Period{}, fmt.Errorf("invalid year %q", v)
		}
		p.Year = y
	}
	if err := p.Validate(); err != nil {
		return core.Period{}, err
	}
	return p, nil
}

func (s *Server) cachedSummary(p core.Period) core.PeriodSummary {
	if summary, ok := s.summaryCache.Get(p.Key()); ok {
		return summary
	}
	summary := s.transactions.Summary(p)
	s.summaryCache.Set(p.Key(), summary)
	return summary
}

func (s *Server) cachedBreakdown(p core.Period) []core.CategoryAmount {
	if breakdown, ok := s.breakdownCache.Get(p.Key()); ok {
		return breakdown
	}
	breakdown := s.transactions.Breakdown(p)
	s.breakdownCache.Set(p.Key(), breakdown)
	return breakdown
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// rateLimiter allows 60 mutating requests per client per minute.
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
	go rl.cleanupLoop()
	return rl
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

func (rl *rateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := time.Now().Add(-10 * time.Minute)
			for ip, client := range rl.clients {
				if client.lastRequest.Before(cutoff) {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}
