package main

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/hafizmfadli/film-library/internal/access"
	"github.com/hafizmfadli/film-library/internal/auth"
	"github.com/hafizmfadli/film-library/internal/data"
	"github.com/hafizmfadli/film-library/internal/metrics"
	"golang.org/x/time/rate"
)

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Deferred functions still run while Go unwinds the stack after a panic.
		defer func() {
			if err := recover(); err != nil {
				// Make Go's HTTP server close the connection once the response
				// has been sent.
				w.Header().Set("Connection", "close")
				app.serverErrorResponse(w, r, fmt.Errorf("%s", err))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requestID tags every request with an id, reusing a well-formed one sent by
// the client, and echoes it in the X-Request-Id response header.
func (app *application) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, contextSetRequestID(r, id))
	})
}

// enableCORS allows cross-origin requests from the configured trusted
// origins only. With no trusted origins no CORS headers are sent at all, so
// browsers refuse every cross-origin request.
func (app *application) enableCORS(next http.Handler) http.Handler {
	// An empty AllowedOrigins means "*" to the cors package.
	if len(app.config.cors.trustedOrigins) == 0 {
		return next
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   app.config.cors.trustedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	})(next)
}

// rateLimit limits the number of requests per client IP address. The limits
// are configurable at runtime using command line flags.
func (app *application) rateLimit(next http.Handler) http.Handler {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		mu      sync.Mutex
		clients = make(map[string]*client)
	)

	// Remove clients not seen in the last three minutes, once every minute.
	go func() {
		for {
			time.Sleep(time.Minute)

			mu.Lock()
			for ip, client := range clients {
				if time.Since(client.lastSeen) > 3*time.Minute {
					delete(clients, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.config.limiter.enabled {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				app.serverErrorResponse(w, r, err)
				return
			}

			mu.Lock()

			if _, found := clients[ip]; !found {
				clients[ip] = &client{
					limiter: rate.NewLimiter(rate.Limit(app.config.limiter.rps), app.config.limiter.burst),
				}
			}

			clients[ip].lastSeen = time.Now()

			if !clients[ip].limiter.Allow() {
				mu.Unlock()
				metrics.RateLimitRejections.Inc()
				app.rateLimitExceededResponse(w, r)
				return
			}

			// Not deferred: the lock must not be held while downstream
			// handlers run.
			mu.Unlock()
		}

		next.ServeHTTP(w, r)
	})
}

// authenticate resolves the caller from the Authorization header. Requests
// without the header continue as the anonymous user; a header that is
// present but invalid is rejected outright.
func (app *application) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The response varies with the Authorization header, so caches must
		// not share it between callers.
		w.Header().Add("Vary", "Authorization")

		authorizationHeader := r.Header.Get("Authorization")
		if authorizationHeader == "" {
			next.ServeHTTP(w, app.contextSetUser(r, data.AnonymousUser))
			return
		}

		headerParts := strings.Split(authorizationHeader, " ")
		if len(headerParts) != 2 || headerParts[0] != "Bearer" {
			app.invalidAuthenticationTokenResponse(w, r)
			return
		}

		userID, err := auth.Parse([]byte(app.config.jwt.secret), headerParts[1])
		if err != nil {
			app.invalidAuthenticationTokenResponse(w, r)
			return
		}

		// The user row is loaded on every request so deactivation and
		// privilege changes apply to tokens already issued.
		user, err := app.models.Users.Get(userID)
		if err != nil {
			switch {
			case errors.Is(err, data.ErrRecordNotFound):
				app.invalidAuthenticationTokenResponse(w, r)
			default:
				app.serverErrorResponse(w, r, err)
			}
			return
		}

		next.ServeHTTP(w, app.contextSetUser(r, user))
	})
}

// requireAuthenticatedUser rejects anonymous callers with 401 and
// deactivated accounts with 403.
func (app *application) requireAuthenticatedUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := app.contextGetUser(r)

		if user.IsAnonymous() {
			app.authenticationRequiredResponse(w, r)
			return
		}

		if !user.IsActive {
			app.inactiveAccountResponse(w, r)
			return
		}

		next.ServeHTTP(w, r)
	}
}

// requireElevated lets through active superusers only.
func (app *application) requireElevated(next http.HandlerFunc) http.HandlerFunc {
	fn := func(w http.ResponseWriter, r *http.Request) {
		if !access.Elevated(app.caller(r)) {
			app.notPermittedResponse(w, r)
			return
		}

		next.ServeHTTP(w, r)
	}

	return app.requireAuthenticatedUser(fn)
}

// requireElevatedOrReadOnly lets any caller read and restricts writes to
// elevated callers. Anonymous writers get 401 rather than 403.
func (app *application) requireElevatedOrReadOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if access.ElevatedOrReadOnly(app.caller(r), r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		// Produces the 401 or 403 the caller deserves.
		app.requireElevated(next).ServeHTTP(w, r)
	}
}

// instrument records request count, latency and in-flight requests under
// route, the router pattern rather than the raw path.
func (app *application) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.ActiveRequests.Inc()
		defer metrics.ActiveRequests.Dec()

		m := httpsnoop.CaptureMetrics(next, w, r)
		metrics.RecordRequest(r.Method, route, m.Code, m.Duration)
	})
}
