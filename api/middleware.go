package api

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// requestLogger logs one line per request and records its latency.
func requestLogger(log *zap.Logger, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			elapsed := time.Since(start)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			metrics.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())

			log.Info("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", elapsed),
			)
		})
	}
}

// =============================================================================
// RATE LIMITING - token bucket per client IP
// =============================================================================

// limiterIdleTTL is how long a client may go quiet before its bucket is
// dropped. Buckets that have not refilled yet are kept.
const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type rateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
	log       *zap.Logger
	metrics   *Metrics
}

// newRateLimiter allows perMinute requests per client with the given burst.
// perMinute <= 0 disables limiting.
func newRateLimiter(perMinute, burst int, log *zap.Logger, metrics *Metrics) *rateLimiter {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	if burst < 1 {
		burst = 1
	}
	return &rateLimiter{
		clients:   make(map[string]*clientLimiter),
		limit:     limit,
		burst:     burst,
		lastSweep: time.Now(),
		now:       time.Now,
		log:       log,
		metrics:   metrics,
	}
}

// allow takes one token from ip's bucket, sweeping idle buckets at most
// once per limiterIdleTTL.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= limiterIdleTTL {
		rl.sweepLocked(now)
	}
	c, ok := rl.clients[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (rl *rateLimiter) sweepLocked(now time.Time) {
	rl.lastSweep = now
	evicted := 0
	for ip, c := range rl.clients {
		if now.Sub(c.lastSeen) >= limiterIdleTTL && c.limiter.TokensAt(now) >= float64(rl.burst) {
			delete(rl.clients, ip)
			evicted++
		}
	}
	if evicted > 0 {
		rl.log.Debug("rate limiter swept idle clients", zap.Int("evicted", evicted), zap.Int("remaining", len(rl.clients)))
	}
}

func (rl *rateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.allow(ip) {
			rl.metrics.rateLimited.Inc()
			rl.log.Warn("rate limit exceeded", zap.String("ip", ip))
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Try again later.", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
