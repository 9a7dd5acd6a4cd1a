package api

import "net/http"

// Route identifies the handler a request is sent to.
type Route int

const (
	RouteNotFound Route = iota
	RouteStatic
	RouteForbidden
	RouteLoginRedirect
	RouteListGames
	RouteStartGame
	RouteCheckPassword
	RouteHistory
	RouteEvents
	RouteSplash
)

// API paths.
const (
	PathListGames     = "/api/v1/list_games"
	PathStartGame     = "/api/v1/start_game"
	PathCheckPassword = "/api/v1/check_password"
	PathHistory       = "/api/v1/history"
	PathEvents        = "/api/v1/events"
	PathSplash        = "/api/v1/splash"

	PathGamesPage = "/games.html"
	PathLoginPage = "/demonstration.html"
)

var routeNames = map[Route]string{
	RouteNotFound:      "not_found",
	RouteStatic:        "static",
	RouteForbidden:     "forbidden",
	RouteLoginRedirect: "login_redirect",
	RouteListGames:     "list_games",
	RouteStartGame:     "start_game",
	RouteCheckPassword: "check_password",
	RouteHistory:       "history",
	RouteEvents:        "events",
	RouteSplash:        "splash",
}

// String returns the route's metrics label.
func (r Route) String() string {
	if name, ok := routeNames[r]; ok {
		return name
	}
	return "unknown"
}

// protected maps GET/POST endpoints that need a session to the route served
// when the session is valid.
var protected = map[string]map[string]Route{
	http.MethodGet: {
		PathListGames: RouteListGames,
		PathHistory:   RouteHistory,
		PathEvents:    RouteEvents,
	},
	http.MethodPost: {
		PathStartGame: RouteStartGame,
	},
}

// Dispatch decides which route serves a request. It has no side effects;
// authorized is the result of validating the session cookie.
func Dispatch(method, path string, authorized bool) Route {
	if route, ok := protected[method][path]; ok {
		if !authorized {
			return RouteForbidden
		}
		return route
	}

	switch method {
	case http.MethodPost:
		if path == PathCheckPassword {
			return RouteCheckPassword
		}
		return RouteNotFound
	case http.MethodGet:
		switch {
		case path == PathSplash:
			return RouteSplash
		case path == PathGamesPage && !authorized:
			return RouteLoginRedirect
		default:
			return RouteStatic
		}
	default:
		return RouteNotFound
	}
}
