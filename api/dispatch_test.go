package api_test

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/arclightning/arclight/api"
)

var _ = Describe("Dispatch", func() {
	DescribeTable("routes requests",
		func(method, path string, authorized bool, want api.Route) {
			Expect(api.Dispatch(method, path, authorized)).To(Equal(want))
		},
		Entry("list games, authorized", http.MethodGet, api.PathListGames, true, api.RouteListGames),
		Entry("list games, anonymous", http.MethodGet, api.PathListGames, false, api.RouteForbidden),
		Entry("start game, authorized", http.MethodPost, api.PathStartGame, true, api.RouteStartGame),
		Entry("start game, anonymous", http.MethodPost, api.PathStartGame, false, api.RouteForbidden),
		Entry("check password, anonymous", http.MethodPost, api.PathCheckPassword, false, api.RouteCheckPassword),
		Entry("check password, authorized", http.MethodPost, api.PathCheckPassword, true, api.RouteCheckPassword),
		Entry("history, authorized", http.MethodGet, api.PathHistory, true, api.RouteHistory),
		Entry("history, anonymous", http.MethodGet, api.PathHistory, false, api.RouteForbidden),
		Entry("events, authorized", http.MethodGet, api.PathEvents, true, api.RouteEvents),
		Entry("events, anonymous", http.MethodGet, api.PathEvents, false, api.RouteForbidden),
		Entry("splash, anonymous", http.MethodGet, api.PathSplash, false, api.RouteSplash),
		Entry("games page, anonymous", http.MethodGet, api.PathGamesPage, false, api.RouteLoginRedirect),
		Entry("games page, authorized", http.MethodGet, api.PathGamesPage, true, api.RouteStatic),
		Entry("site root", http.MethodGet, "/", false, api.RouteStatic),
		Entry("any file", http.MethodGet, "/css/site.css", true, api.RouteStatic),
		Entry("list games by POST", http.MethodPost, api.PathListGames, true, api.RouteNotFound),
		Entry("start game by GET", http.MethodGet, api.PathStartGame, true, api.RouteStatic),
		Entry("check password by GET", http.MethodGet, api.PathCheckPassword, false, api.RouteStatic),
		Entry("unknown POST", http.MethodPost, "/upload", true, api.RouteNotFound),
		Entry("DELETE", http.MethodDelete, "/", true, api.RouteNotFound),
		Entry("PUT on an API path", http.MethodPut, api.PathStartGame, true, api.RouteNotFound),
	)

	It("is case-sensitive on paths", func() {
		Expect(api.Dispatch(http.MethodGet, "/API/v1/list_games", false)).To(Equal(api.RouteStatic))
	})

	It("names every route", func() {
		for r := api.RouteNotFound; r <= api.RouteSplash; r++ {
			Expect(r.String()).NotTo(Equal("unknown"))
		}
		Expect(api.Route(99).String()).To(Equal("unknown"))
	})
})
