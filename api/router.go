package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/arclightning/arclight/api/handler"
	"github.com/arclightning/arclight/api/middleware"
	"github.com/arclightning/arclight/config"
	"github.com/arclightning/arclight/history"
)

// SessionStore validates and issues the single session token.
type SessionStore interface {
	middleware.TokenValidator
	handler.SessionIssuer
}

// Deps are the collaborators the router serves. History and Hub are
// optional.
type Deps struct {
	Config   config.Config
	File     config.File
	Catalog  handler.GameLister
	Sessions SessionStore
	Launcher handler.GameStarter
	History  *history.Store
	Hub      *handler.EventHub
}

// corsMiddleware returns a gin-contrib/cors middleware that lets the
// configured origins make credentialed requests. Other origins get no CORS
// headers.
func corsMiddleware(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.ToLower(strings.TrimRight(o, "/"))] = true
	}
	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return allowed[strings.ToLower(origin)]
		},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-Id"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "Retry-After", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// NewRouter builds the panel's http.Handler. Every request is routed by
// Dispatch; gin only supplies the middleware chain. The returned function
// stops the router's background goroutines.
func NewRouter(deps Deps) (http.Handler, func()) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(), middleware.Metrics())
	if len(deps.Config.CORSOrigins) > 0 {
		r.Use(corsMiddleware(deps.Config.CORSOrigins))
	}
	r.Use(middleware.Session(deps.Sessions))

	limiter := middleware.LoginRateLimiter(deps.Config)

	hub := deps.Hub
	ownHub := hub == nil
	if ownHub {
		hub = handler.NewEventHub()
	}

	var recorder handler.LaunchRecorder
	var lister handler.LaunchLister
	if deps.History != nil {
		recorder, lister = deps.History, deps.History
	}

	authH := handler.NewAuthHandler(deps.File.Password, deps.Sessions, limiter.OnFailure, limiter.OnSuccess)
	gamesH := handler.NewGamesHandler(deps.Catalog, deps.Launcher, recorder, hub)
	historyH := handler.NewHistoryHandler(lister)
	staticH := handler.NewStaticHandler(deps.File.StaticDir)
	splashH := handler.NewSplashHandler(deps.File.SplashDir)
	events := handler.EventsHandler(hub)

	serve := func(c *gin.Context) {
		route := Dispatch(c.Request.Method, c.Request.URL.Path, middleware.Authorized(c))
		c.Set(middleware.ContextKeyRoute, route.String())

		switch route {
		case RouteListGames:
			gamesH.ListGames(c)
		case RouteStartGame:
			gamesH.StartGame(c)
		case RouteCheckPassword:
			if limiter.Allow(c) {
				authH.CheckPassword(c)
			}
		case RouteHistory:
			historyH.Recent(c)
		case RouteEvents:
			events(c)
		case RouteSplash:
			splashH.Random(c)
		case RouteForbidden:
			handler.Forbidden(c)
		case RouteLoginRedirect:
			c.Redirect(http.StatusTemporaryRedirect, PathLoginPage)
		case RouteStatic:
			staticH.Serve(c)
		default:
			staticH.NotFound(c)
		}
	}
	r.Any("/*path", serve)
	r.NoRoute(serve)

	stop := func() {
		limiter.Stop()
		staticH.Close()
		splashH.Close()
		if ownHub {
			hub.Shutdown()
		}
	}
	return r, stop
}
