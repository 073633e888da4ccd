package main

import (
	"context"
	"net/http"

	"github.com/hafizmfadli/film-library/internal/access"
	"github.com/hafizmfadli/film-library/internal/data"
)

type contextKey string

const (
	userContextKey      = contextKey("user")
	requestIDContextKey = contextKey("request_id")
)

// contextSetUser returns a copy of r carrying user.
func (app *application) contextSetUser(r *http.Request, user *data.User) *http.Request {
	ctx := context.WithValue(r.Context(), userContextKey, user)
	return r.WithContext(ctx)
}

// contextGetUser returns the user stored by the authenticate middleware. Only
// call it on requests that went through that middleware.
func (app *application) contextGetUser(r *http.Request) *data.User {
	user, ok := r.Context().Value(userContextKey).(*data.User)
	if !ok {
		panic("missing user value in request context")
	}
	return user
}

// caller describes the request's user for the access predicates.
func (app *application) caller(r *http.Request) access.Caller {
	user := app.contextGetUser(r)
	if user.IsAnonymous() {
		return access.Anonymous
	}
	return access.Caller{
		UserID:   user.ID,
		Elevated: user.IsSuperuser,
		Active:   user.IsActive,
	}
}

func contextSetRequestID(r *http.Request, id string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), requestIDContextKey, id))
}

func contextGetRequestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDContextKey).(string)
	return id
}
