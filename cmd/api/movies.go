package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/hafizmfadli/film-library/internal/data"
	"github.com/hafizmfadli/film-library/internal/validator"
)

// catalogInput holds the fields a client may send for any catalog entry.
// Pointer fields distinguish "absent" from the zero value for partial updates.
type catalogInput struct {
	Title  *string  `json:"title"`
	Year   *int32   `json:"year"`
	Rating *float64 `json:"rating"`
	Genres []string `json:"genre"`
}

// apply copies the present fields onto e.
func (in catalogInput) apply(e *data.Entry) {
	if in.Title != nil {
		e.Title = *in.Title
	}
	if in.Year != nil {
		e.Year = *in.Year
	}
	if in.Rating != nil {
		e.Rating = in.Rating
	}
	if in.Genres != nil {
		e.Genres = in.Genres
	}
}

// resetEntry clears the client-writable fields of e so that a PUT replaces
// the whole record.
func resetEntry(e *data.Entry) {
	e.Title = ""
	e.Year = 0
	e.Rating = nil
	e.Genres = nil
}

// checkExpectedVersion compares the optional X-Expected-Version header with
// the stored version.
func checkExpectedVersion(r *http.Request, version int32) bool {
	expected := r.Header.Get("X-Expected-Version")
	if expected == "" {
		return true
	}
	return strconv.FormatInt(int64(version), 10) == expected
}

func (app *application) listMoviesHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	v := validator.New()

	genres := app.readCSV(qs, "genre", []string{})
	filters := app.readFilters(qs, "title", data.CatalogSortSafelist, v)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	movies, metadata, err := app.models.Movies.GetAll(genres, filters)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"movies": movies, "metadata": metadata}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) createMovieHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		catalogInput
		Duration *int32 `json:"duration"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	movie := &data.Movie{Duration: input.Duration}
	input.apply(&movie.Entry)
	movie.AddedBy = app.contextGetUser(r).ID

	v := validator.New()
	if data.ValidateMovie(v, movie); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.models.Movies.Insert(movie)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", fmt.Sprintf("/v1/movies/%d", movie.ID))

	err = app.writeJSON(w, http.StatusCreated, envelope{"movie": movie}, headers)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) showMovieHandler(w http.ResponseWriter, r *http.Request) {
	movie, ok := app.loadMovie(w, r)
	if !ok {
		return
	}

	err := app.writeJSON(w, http.StatusOK, envelope{"movie": movie}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateMovieHandler serves both PATCH, which only touches the fields sent,
// and PUT, which replaces every writable field.
func (app *application) updateMovieHandler(w http.ResponseWriter, r *http.Request) {
	movie, ok := app.loadMovie(w, r)
	if !ok {
		return
	}

	if !checkExpectedVersion(r, movie.Version) {
		app.editConflictResponse(w, r)
		return
	}

	var input struct {
		catalogInput
		Duration *int32 `json:"duration"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if r.Method == http.MethodPut {
		resetEntry(&movie.Entry)
		movie.Duration = nil
	}

	input.apply(&movie.Entry)
	if input.Duration != nil {
		movie.Duration = input.Duration
	}

	v := validator.New()
	if data.ValidateMovie(v, movie); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.models.Movies.Update(movie)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrEditConflict):
			app.editConflictResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"movie": movie}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteMovieHandler removes the movie and every watched and to-watch record
// pointing at it.
func (app *application) deleteMovieHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	err = app.models.Movies.Delete(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "movie successfully deleted"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) loadMovie(w http.ResponseWriter, r *http.Request) (*data.Movie, bool) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return nil, false
	}

	movie, err := app.models.Movies.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return nil, false
	}

	return movie, true
}
