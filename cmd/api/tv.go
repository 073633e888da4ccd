package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hafizmfadli/film-library/internal/data"
	"github.com/hafizmfadli/film-library/internal/validator"
)

type tvInput struct {
	catalogInput
	NumberOfEpisodes   *int32 `json:"number_of_episodes"`
	AvgEpisodeDuration *int32 `json:"avg_episode_duration"`
}

func (in tvInput) apply(show *data.TV) {
	in.catalogInput.apply(&show.Entry)
	if in.NumberOfEpisodes != nil {
		show.NumberOfEpisodes = in.NumberOfEpisodes
	}
	if in.AvgEpisodeDuration != nil {
		show.AvgEpisodeDuration = in.AvgEpisodeDuration
	}
}

func (app *application) listTVHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	v := validator.New()

	genres := app.readCSV(qs, "genre", []string{})
	filters := app.readFilters(qs, "title", data.CatalogSortSafelist, v)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	shows, metadata, err := app.models.TV.GetAll(genres, filters)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"tv": shows, "metadata": metadata}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) createTVHandler(w http.ResponseWriter, r *http.Request) {
	var input tvInput

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	show := &data.TV{}
	input.apply(show)
	show.AddedBy = app.contextGetUser(r).ID

	v := validator.New()
	if data.ValidateTV(v, show); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.models.TV.Insert(show)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", fmt.Sprintf("/v1/tv/%d", show.ID))

	err = app.writeJSON(w, http.StatusCreated, envelope{"tv": show}, headers)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) showTVHandler(w http.ResponseWriter, r *http.Request) {
	show, ok := app.loadTV(w, r)
	if !ok {
		return
	}

	err := app.writeJSON(w, http.StatusOK, envelope{"tv": show}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) updateTVHandler(w http.ResponseWriter, r *http.Request) {
	show, ok := app.loadTV(w, r)
	if !ok {
		return
	}

	if !checkExpectedVersion(r, show.Version) {
		app.editConflictResponse(w, r)
		return
	}

	var input tvInput

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if r.Method == http.MethodPut {
		resetEntry(&show.Entry)
		show.NumberOfEpisodes = nil
		show.AvgEpisodeDuration = nil
	}
	input.apply(show)

	v := validator.New()
	if data.ValidateTV(v, show); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.models.TV.Update(show)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrEditConflict):
			app.editConflictResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"tv": show}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) deleteTVHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	err = app.models.TV.Delete(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "tv show successfully deleted"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) loadTV(w http.ResponseWriter, r *http.Request) (*data.TV, bool) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return nil, false
	}

	show, err := app.models.TV.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return nil, false
	}

	return show, true
}
