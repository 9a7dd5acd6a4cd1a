package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arclightning/arclight/config"
	"github.com/arclightning/arclight/metrics"
)

// ipEntry tracks failed password checks for a single IP.
type ipEntry struct {
	attempts    int
	windowEnd   time.Time // when the current sliding window expires
	bannedUntil time.Time
}

// loginLimiter is an in-memory rate limiter for the password check.
type loginLimiter struct {
	mu      sync.Mutex
	entries map[string]*ipEntry
	cfg     config.Config
	stop    chan struct{}
	now     func() time.Time
}

func newLoginLimiter(cfg config.Config, now func() time.Time) *loginLimiter {
	l := &loginLimiter{
		entries: make(map[string]*ipEntry),
		cfg:     cfg,
		stop:    make(chan struct{}),
		now:     now,
	}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.cleanup()
			case <-l.stop:
				return
			}
		}
	}()
	return l
}

// cleanup removes entries whose ban and window have both expired.
func (l *loginLimiter) cleanup() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, e := range l.entries {
		if now.After(e.bannedUntil) && now.After(e.windowEnd) {
			delete(l.entries, ip)
		}
	}
}

// retryAfter returns how long ip remains banned, or 0 if it may try now.
func (l *loginLimiter) retryAfter(ip string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[ip]
	if !ok {
		return 0
	}
	if left := e.bannedUntil.Sub(l.now()); left > 0 {
		return left
	}
	return 0
}

// recordFailure increments the failure count for an IP and bans it once
// the threshold is reached within the window.
func (l *loginLimiter) recordFailure(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	e, ok := l.entries[ip]
	if !ok || now.After(e.windowEnd) {
		e = &ipEntry{windowEnd: now.Add(l.cfg.LoginWindow)}
		l.entries[ip] = e
	}
	e.attempts++
	if e.attempts >= l.cfg.LoginMaxAttempts {
		e.bannedUntil = now.Add(l.cfg.LoginBanDuration)
	}
}

// recordSuccess resets the failure count for an IP after a successful login.
func (l *loginLimiter) recordSuccess(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, ip)
}

// LoginLimiter is the handle returned by LoginRateLimiter. The password
// handler reports outcomes through OnFailure and OnSuccess.
type LoginLimiter struct {
	// Allow writes the limited response and returns false when the client
	// is banned.
	Allow     func(c *gin.Context) bool
	OnFailure func(ip string)
	OnSuccess func(ip string)
	Stop      func()
}

// LoginRateLimiter blocks an IP after cfg.LoginMaxAttempts failed checks
// within cfg.LoginWindow. A blocked client gets the same 200
// {"success": false} as a wrong password, plus a Retry-After header, and
// the password is never checked.
func LoginRateLimiter(cfg config.Config) LoginLimiter {
	return newRateLimiter(cfg, time.Now)
}

func newRateLimiter(cfg config.Config, now func() time.Time) LoginLimiter {
	limiter := newLoginLimiter(cfg, now)

	allow := func(c *gin.Context) bool {
		if cfg.LoginMaxAttempts <= 0 {
			return true
		}
		left := limiter.retryAfter(ClientIP(c))
		if left <= 0 {
			return true
		}
		metrics.LoginAttempts.WithLabelValues("limited").Inc()
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(left.Seconds()))))
		c.AbortWithStatusJSON(http.StatusOK, gin.H{"success": false})
		return false
	}
	var once sync.Once
	onFailure := func(ip string) {
		if cfg.LoginMaxAttempts > 0 {
			limiter.recordFailure(ip)
		}
	}
	return LoginLimiter{
		Allow:     allow,
		OnFailure: onFailure,
		OnSuccess: limiter.recordSuccess,
		Stop:      func() { once.Do(func() { close(limiter.stop) }) },
	}
}

// ClientIP extracts the client IP using Gin's built-in ClientIP method,
// which honours the engine's trusted-proxy configuration. Falls back to
// RemoteAddr when no proxy is trusted.
func ClientIP(c *gin.Context) string {
	return c.ClientIP()
}
