package main

import "net/http"

// healthcheckHandler reports whether the API is up, which environment it
// runs in and which schema version it sees.
func (app *application) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	systemInfo := map[string]any{
		"environment": app.config.env,
		"version":     version,
	}

	if app.schemaVersion != nil {
		schema, err := app.schemaVersion()
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}
		systemInfo["schema_version"] = schema
	}

	env := envelope{
		"status":      "available",
		"system_info": systemInfo,
	}

	err := app.writeJSON(w, http.StatusOK, env, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// apiRootHandler lists the top-level resources.
func (app *application) apiRootHandler(w http.ResponseWriter, r *http.Request) {
	env := envelope{
		"users":         "/v1/users",
		"movies":        "/v1/movies",
		"tv":            "/v1/tv",
		"watched-list":  "/v1/watched-list",
		"to-watch-list": "/v1/to-watch-list",
	}

	err := app.writeJSON(w, http.StatusOK, env, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
