package http

import (
	"crypto/subtle"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apperrors "github.com/allisson/missionhub/internal/errors"
	"github.com/allisson/missionhub/internal/httputil"
)

// CustomLoggerMiddleware writes one log line per request. Server errors log at error
// level and client errors at warn.
func CustomLoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}

		attrs := []slog.Attr{
			slog.String("request_id", requestid.Get(c)),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			attrs = append(attrs, slog.String("query", q))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}
		logger.LogAttrs(c.Request.Context(), level, "http request", attrs...)
	}
}

// AdminTokenMiddleware admits requests carrying "Authorization: Bearer <token>".
// The scheme is case-insensitive; the token comparison is constant time.
func AdminTokenMiddleware(token string, logger *slog.Logger) gin.HandlerFunc {
	expected := []byte(token)

	return func(c *gin.Context) {
		scheme, provided, found := strings.Cut(c.GetHeader("Authorization"), " ")
		if !found || !strings.EqualFold(scheme, "bearer") ||
			subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
			logger.Debug("admin token rejected", slog.String("client_ip", c.ClientIP()))
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// limiterIdleTTL is how long a client bucket survives without requests.
const limiterIdleTTL = time.Hour

// clientLimiter keeps one token bucket per client IP. Idle buckets are swept on
// access at most once per sweepEvery, so no background goroutine is needed.
type clientLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	limit      rate.Limit
	burst      int
	sweepEvery time.Duration
	lastSweep  time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(rps float64, burst int) *clientLimiter {
	return &clientLimiter{
		buckets:    make(map[string]*bucket),
		limit:      rate.Limit(rps),
		burst:      burst,
		sweepEvery: 5 * time.Minute,
	}
}

// allow reports whether ip may proceed at now, and otherwise how long to wait.
func (l *clientLimiter) allow(ip string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.sweepEvery {
		l.sweep(now.Add(-limiterIdleTTL))
		l.lastSweep = now
	}

	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = b
	}
	b.lastSeen = now

	if b.limiter.AllowN(now, 1) {
		return true, 0
	}
	r := b.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return false, delay
}

func (l *clientLimiter) sweep(idleBefore time.Time) {
	for ip, b := range l.buckets {
		if b.lastSeen.Before(idleBefore) {
			delete(l.buckets, ip)
		}
	}
}

// RateLimitMiddleware answers 429 with Retry-After once a client IP exceeds rps
// sustained or burst instantaneous requests.
func RateLimitMiddleware(rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	limiter := newClientLimiter(rps, burst)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		ok, wait := limiter.allow(ip, time.Now())
		if ok {
			c.Next()
			return
		}

		retryAfter := int(math.Ceil(wait.Seconds()))
		logger.Debug("rate limit exceeded", slog.String("client_ip", ip), slog.Int("retry_after", retryAfter))
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, httputil.ErrorResponse{
			Error:   "rate_limit_exceeded",
			Message: "Too many requests, retry after the indicated delay",
		})
	}
}
