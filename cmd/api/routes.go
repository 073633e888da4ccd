package main

import (
	"net/http"

	"github.com/hafizmfadli/film-library/internal/data"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// routes returns the application's handler: the router wrapped in the
// middleware chain shared by every request.
func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	// handle registers h and records its metrics under the route pattern.
	handle := func(method, path string, h http.HandlerFunc) {
		router.Handler(method, path, app.instrument(path, h))
	}

	handle(http.MethodGet, "/v1/", app.apiRootHandler)
	handle(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)

	handle(http.MethodPost, "/v1/tokens/authentication", app.createAuthenticationTokenHandler)

	handle(http.MethodGet, "/v1/users", app.requireElevated(app.listUsersHandler))
	handle(http.MethodPost, "/v1/users", app.requireElevated(app.createUserHandler))
	handle(http.MethodGet, "/v1/users/:id", app.requireElevated(app.showUserHandler))
	handle(http.MethodPatch, "/v1/users/:id", app.requireElevated(app.updateUserHandler))
	handle(http.MethodDelete, "/v1/users/:id", app.requireElevated(app.deleteUserHandler))
	handle(http.MethodGet, "/v1/users/:id/watched-list", app.requireElevated(app.listUserMembershipsHandler(data.Watched)))
	handle(http.MethodGet, "/v1/users/:id/to-watch-list", app.requireElevated(app.listUserMembershipsHandler(data.ToWatch)))

	handle(http.MethodGet, "/v1/movies", app.requireElevatedOrReadOnly(app.listMoviesHandler))
	handle(http.MethodPost, "/v1/movies", app.requireElevatedOrReadOnly(app.createMovieHandler))
	handle(http.MethodGet, "/v1/movies/:id", app.requireElevatedOrReadOnly(app.showMovieHandler))
	handle(http.MethodPatch, "/v1/movies/:id", app.requireElevatedOrReadOnly(app.updateMovieHandler))
	handle(http.MethodPut, "/v1/movies/:id", app.requireElevatedOrReadOnly(app.updateMovieHandler))
	handle(http.MethodDelete, "/v1/movies/:id", app.requireElevatedOrReadOnly(app.deleteMovieHandler))

	handle(http.MethodGet, "/v1/tv", app.requireElevatedOrReadOnly(app.listTVHandler))
	handle(http.MethodPost, "/v1/tv", app.requireElevatedOrReadOnly(app.createTVHandler))
	handle(http.MethodGet, "/v1/tv/:id", app.requireElevatedOrReadOnly(app.showTVHandler))
	handle(http.MethodPatch, "/v1/tv/:id", app.requireElevatedOrReadOnly(app.updateTVHandler))
	handle(http.MethodPut, "/v1/tv/:id", app.requireElevatedOrReadOnly(app.updateTVHandler))
	handle(http.MethodDelete, "/v1/tv/:id", app.requireElevatedOrReadOnly(app.deleteTVHandler))

	for list, path := range map[data.List]string{
		data.Watched: "/v1/watched-list",
		data.ToWatch: "/v1/to-watch-list",
	} {
		handle(http.MethodGet, path, app.requireAuthenticatedUser(app.listMembershipsHandler(list)))
		handle(http.MethodPost, path, app.requireAuthenticatedUser(app.createMembershipHandler(list)))
		handle(http.MethodGet, path+"/:id", app.requireAuthenticatedUser(app.showMembershipHandler(list)))
		handle(http.MethodPatch, path+"/:id", app.requireAuthenticatedUser(app.updateMembershipHandler(list)))
		handle(http.MethodPut, path+"/:id", app.requireAuthenticatedUser(app.updateMembershipHandler(list)))
		handle(http.MethodDelete, path+"/:id", app.requireAuthenticatedUser(app.deleteMembershipHandler(list)))
	}

	router.Handler(http.MethodGet, "/debug/metrics", promhttp.Handler())

	return app.recoverPanic(app.requestID(app.enableCORS(app.rateLimit(app.authenticate(router)))))
}
