package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gin-gonic/gin"

	"github.com/arclightning/arclight/api/middleware"
	"github.com/arclightning/arclight/config"
)

// newCtx builds a minimal gin.Context from a hand-crafted *http.Request.
func newCtx(req *http.Request) *gin.Context {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c
}

// staticValidator accepts exactly one token.
type staticValidator string

func (v staticValidator) Validate(token string) bool {
	return token != "" && token == string(v)
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var _ = Describe("SessionToken", func() {
	It("returns the session cookie value", func() {
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Cookie", "arclight_session=abc123")

		Expect(middleware.SessionToken(req)).To(Equal("abc123"))
	})

	It("picks the session cookie out of a multi-cookie header", func() {
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Cookie", "theme=dark; arclight_session=abc123; lang=en")

		Expect(middleware.SessionToken(req)).To(Equal("abc123"))
	})

	It("returns an empty string when the cookie is absent", func() {
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Cookie", "theme=dark")

		Expect(middleware.SessionToken(req)).To(BeEmpty())
	})

	It("returns an empty string for a malformed header", func() {
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Cookie", "garbage")

		Expect(middleware.SessionToken(req)).To(BeEmpty())
	})
})

var _ = Describe("Session middleware", func() {
	gin.SetMode(gin.TestMode)

	var authorized bool

	routerWithSession := func() *gin.Engine {
		r := gin.New()
		r.Use(middleware.Session(staticValidator("good")))
		r.GET("/", func(c *gin.Context) {
			authorized = middleware.Authorized(c)
			c.Status(http.StatusOK)
		})
		return r
	}

	BeforeEach(func() {
		authorized = false
	})

	It("marks a request with the valid token as authorized", func() {
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "good"})
		w := httptest.NewRecorder()
		routerWithSession().ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(authorized).To(BeTrue())
	})

	It("lets a request with a wrong token through, unauthorized", func() {
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "bad"})
		w := httptest.NewRecorder()
		routerWithSession().ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(authorized).To(BeFalse())
	})

	It("treats a missing cookie as unauthorized", func() {
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		routerWithSession().ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(authorized).To(BeFalse())
	})

	It("reports unauthorized when the middleware never ran", func() {
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		Expect(middleware.Authorized(newCtx(req))).To(BeFalse())
	})
})

var _ = Describe("ClientIP", func() {
	gin.SetMode(gin.TestMode)

	It("falls back to RemoteAddr when X-Forwarded-For is absent", func() {
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "5.6.7.8:1234"

		Expect(middleware.ClientIP(newCtx(req))).To(Equal("5.6.7.8"))
	})

	It("ignores X-Forwarded-For when engine has no trusted proxies", func() {
		r := gin.New()
		_ = r.SetTrustedProxies(nil)
		var gotIP string
		r.GET("/", func(c *gin.Context) {
			gotIP = middleware.ClientIP(c)
			c.Status(http.StatusOK)
		})
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "1.2.3.4")
		req.RemoteAddr = "5.6.7.8:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		Expect(gotIP).To(Equal("5.6.7.8"))
	})
})

var _ = Describe("LoginRateLimiter", func() {
	gin.SetMode(gin.TestMode)

	var clock *manualClock

	BeforeEach(func() {
		clock = &manualClock{now: time.Unix(1_700_000_000, 0)}
	})

	// buildLimiter wires up a login route that asks the limiter before
	// answering, the way the panel's dispatch switch does.
	buildLimiter := func(maxAttempts int) (*gin.Engine, middleware.LoginLimiter) {
		cfg := config.Config{
			LoginMaxAttempts: maxAttempts,
			LoginWindow:      time.Minute,
			LoginBanDuration: time.Minute,
		}
		limiter := middleware.NewRateLimiterWithClock(cfg, clock.Now)
		DeferCleanup(limiter.Stop)
		r := gin.New()
		r.POST("/login", func(c *gin.Context) {
			if limiter.Allow(c) {
				c.JSON(http.StatusOK, gin.H{"success": true})
			}
		})
		return r, limiter
	}

	login := func(r *gin.Engine, remote string) *httptest.ResponseRecorder {
		req, _ := http.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = remote
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	Context("before the threshold is reached", func() {
		It("allows requests through", func() {
			r, l := buildLimiter(3)

			l.OnFailure("1.2.3.4")
			l.OnFailure("1.2.3.4")

			w := login(r, "1.2.3.4:0")
			Expect(w.Body.String()).To(MatchJSON(`{"success": true}`))
			Expect(w.Header().Get("Retry-After")).To(BeEmpty())
		})
	})

	Context("after the threshold is reached", func() {
		It("answers like a wrong password and sets Retry-After", func() {
			r, l := buildLimiter(3)

			l.OnFailure("1.2.3.4")
			l.OnFailure("1.2.3.4")
			l.OnFailure("1.2.3.4")

			w := login(r, "1.2.3.4:0")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(MatchJSON(`{"success": false}`))
			Expect(w.Header().Get("Retry-After")).To(Equal("60"))
		})

		It("lifts the ban once the ban duration has passed", func() {
			r, l := buildLimiter(3)

			l.OnFailure("1.2.3.4")
			l.OnFailure("1.2.3.4")
			l.OnFailure("1.2.3.4")
			clock.Advance(61 * time.Second)

			w := login(r, "1.2.3.4:0")
			Expect(w.Body.String()).To(MatchJSON(`{"success": true}`))
		})
	})

	Context("when failures are spread over several windows", func() {
		It("does not ban", func() {
			r, l := buildLimiter(3)

			l.OnFailure("1.2.3.4")
			l.OnFailure("1.2.3.4")
			clock.Advance(2 * time.Minute)
			l.OnFailure("1.2.3.4")

			w := login(r, "1.2.3.4:0")
			Expect(w.Body.String()).To(MatchJSON(`{"success": true}`))
		})
	})

	Context("after a successful login resets the counter", func() {
		It("allows the IP again even if it had previous failures", func() {
			r, l := buildLimiter(3)

			l.OnFailure("1.2.3.4")
			l.OnFailure("1.2.3.4")
			l.OnSuccess("1.2.3.4")
			l.OnFailure("1.2.3.4")

			w := login(r, "1.2.3.4:0")
			Expect(w.Body.String()).To(MatchJSON(`{"success": true}`))
		})
	})

	Context("when LoginMaxAttempts is 0 (rate limiting disabled)", func() {
		It("allows all requests regardless of failures", func() {
			r, l := buildLimiter(0)

			for i := 0; i < 100; i++ {
				l.OnFailure("1.2.3.4")
			}

			w := login(r, "1.2.3.4:0")
			Expect(w.Body.String()).To(MatchJSON(`{"success": true}`))
		})
	})

	Context("banning one IP does not affect another", func() {
		It("allows the clean IP through", func() {
			r, l := buildLimiter(3)

			l.OnFailure("1.2.3.4")
			l.OnFailure("1.2.3.4")
			l.OnFailure("1.2.3.4")

			w := login(r, "9.9.9.9:0")
			Expect(w.Body.String()).To(MatchJSON(`{"success": true}`))
		})
	})

	It("can be stopped twice", func() {
		_, l := buildLimiter(3)
		l.Stop()
		Expect(l.Stop).NotTo(Panic())
	})
})

var _ = Describe("RequestID middleware", func() {
	gin.SetMode(gin.TestMode)

	It("sets X-Request-Id header on response when none is provided", func() {
		r := gin.New()
		r.Use(middleware.RequestID(), middleware.RequestLogger())
		r.GET("/test", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get(middleware.RequestIDHeader)).NotTo(BeEmpty())
	})

	It("reuses incoming X-Request-Id when provided", func() {
		r := gin.New()
		r.Use(middleware.RequestID())
		r.GET("/test", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Request-Id", "my-custom-id")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("X-Request-Id")).To(Equal("my-custom-id"))
	})
})

var _ = Describe("Metrics middleware", func() {
	gin.SetMode(gin.TestMode)

	It("passes the request through unchanged", func() {
		r := gin.New()
		r.Use(middleware.Metrics())
		r.GET("/test", func(c *gin.Context) {
			c.Set(middleware.ContextKeyRoute, "static")
			c.String(http.StatusTeapot, "ok")
		})

		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusTeapot))
		Expect(w.Body.String()).To(Equal("ok"))
	})
})
