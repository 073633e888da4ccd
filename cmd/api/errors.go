package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hafizmfadli/film-library/internal/data"
)

// logError is generic helper for logging error message.
func (app *application) logError(r *http.Request, err error) {
	app.logger.PrintError(err, map[string]string{
		"request_method": r.Method,
		"request_url":    r.URL.String(),
		"request_id":     contextGetRequestID(r),
	})
}

// errorResponse is generic helper for sending JSON-formatted error message
func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message any) {
	env := envelope{
		"error": message,
	}

	err := app.writeJSON(w, status, env, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// serverErrorResponse logs err and sends a 500 Internal Server Error.
func (app *application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)

	app.errorResponse(w, r, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
}

// notFoundResponse sends a 404 Not Found.
func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, "the requested resource could not be found")
}

// methodNotAllowedResponse sends a 405 Method Not Allowed.
func (app *application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	message := fmt.Sprintf("the %s method is not supported for this resource", r.Method)
	app.errorResponse(w, r, http.StatusMethodNotAllowed, message)
}

// badRequestResponse sends a 400 Bad Request carrying err's message.
func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

// failedValidationResponse sends a 422 Unprocessable Entity with one message per field.
func (app *application) failedValidationResponse(w http.ResponseWriter, r *http.Request, errors map[string]string) {
	app.errorResponse(w, r, http.StatusUnprocessableEntity, errors)
}

// editConflictResponse sends a 409 Conflict.
func (app *application) editConflictResponse(w http.ResponseWriter, r *http.Request) {
	message := "unable to update the record due to an edit conflict, please try again"
	app.errorResponse(w, r, http.StatusConflict, message)
}

// rateLimitExceededResponse sends a 429 Too Many Requests.
func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusTooManyRequests, "rate limit exceeded")
}

// invalidCredentialsResponse sends a 401 when a username/password pair is wrong.
func (app *application) invalidCredentialsResponse(w http.ResponseWriter, r *http.Request) {
	message := "invalid authentication credentials"
	app.errorResponse(w, r, http.StatusUnauthorized, message)
}

// invalidAuthenticationTokenResponse sends a 401 when the bearer token is
// missing, malformed, expired or names an unknown user.
func (app *application) invalidAuthenticationTokenResponse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	message := "invalid or missing authentication token"
	app.errorResponse(w, r, http.StatusUnauthorized, message)
}

// authenticationRequiredResponse sends a 401 to anonymous callers of
// authenticated-only endpoints.
func (app *application) authenticationRequiredResponse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	message := "you must be authenticated to access this resource"
	app.errorResponse(w, r, http.StatusUnauthorized, message)
}

// inactiveAccountResponse sends a 403 to callers whose account is deactivated.
func (app *application) inactiveAccountResponse(w http.ResponseWriter, r *http.Request) {
	message := "your user account must be active to access this resource"
	app.errorResponse(w, r, http.StatusForbidden, message)
}

// notPermittedResponse sends a 403 when an authorization predicate fails. It
// is also used for ids a caller may not see, so that the response does not
// reveal whether the record exists.
func (app *application) notPermittedResponse(w http.ResponseWriter, r *http.Request) {
	message := "your user account doesn't have the necessary permissions to access this resource"
	app.errorResponse(w, r, http.StatusForbidden, message)
}

// membershipWriteErrorResponse translates the errors returned by membership
// writes. ref names the field the client used to point at the catalog entry.
func (app *application) membershipWriteErrorResponse(w http.ResponseWriter, r *http.Request, rec *data.Membership, err error) {
	refField := string(rec.Ref.Kind)
	if refField == "" {
		refField = "catalog_entry"
	}

	switch {
	case errors.Is(err, data.ErrNoReference):
		app.failedValidationResponse(w, r, map[string]string{"catalog_entry": err.Error()})
	case errors.Is(err, data.ErrAlreadyWatched), errors.Is(err, data.ErrDuplicateMembership):
		app.failedValidationResponse(w, r, map[string]string{"catalog_entry": err.Error()})
	case errors.Is(err, data.ErrInvalidReference):
		app.failedValidationResponse(w, r, map[string]string{refField: err.Error()})
	case errors.Is(err, data.ErrRecordNotFound):
		app.notPermittedResponse(w, r)
	default:
		app.serverErrorResponse(w, r, err)
	}
}
