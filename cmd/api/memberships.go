package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hafizmfadli/film-library/internal/access"
	"github.com/hafizmfadli/film-library/internal/data"
	"github.com/hafizmfadli/film-library/internal/metrics"
	"github.com/hafizmfadli/film-library/internal/validator"
)

// membershipInput is accepted by both lists. Score and review are rejected by
// validation on the to-watch list.
type membershipInput struct {
	Movie  *int64   `json:"movie"`
	TV     *int64   `json:"tv"`
	Score  *float64 `json:"score"`
	Review *string  `json:"review"`
}

func listPath(list data.List) string {
	if list == data.ToWatch {
		return "/v1/to-watch-list"
	}
	return "/v1/watched-list"
}

func recordWrite(list data.List, outcome string) {
	metrics.MembershipWrites.WithLabelValues(string(list), outcome).Inc()
}

// listMembershipsHandler lists the caller's own records on list.
func (app *application) listMembershipsHandler(list data.List) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		app.writeMembershipList(w, r, list, app.contextGetUser(r).ID)
	}
}

// listUserMembershipsHandler lists the records of the user named by :id.
func (app *application) listUserMembershipsHandler(list data.List) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := app.loadUser(w, r)
		if !ok {
			return
		}
		app.writeMembershipList(w, r, list, user.ID)
	}
}

func (app *application) writeMembershipList(w http.ResponseWriter, r *http.Request, list data.List, userID int64) {
	qs := r.URL.Query()
	v := validator.New()

	kind, ok := data.ParseKind(app.readString(qs, "kind", ""))
	v.Check(ok, "kind", "must be movie or tv")

	filters := app.readFilters(qs, "id", data.MembershipSortSafelist, v)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	records, metadata, err := app.models.Memberships.GetAllForUser(list, userID, kind, filters)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{string(list): records, "metadata": metadata}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// createMembershipHandler puts a catalog entry on the caller's list. On the
// watched list this also removes the caller's to-watch record for the entry.
func (app *application) createMembershipHandler(list data.List) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input membershipInput

		err := app.readJSON(w, r, &input)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}

		rec := &data.Membership{
			List:   list,
			UserID: app.contextGetUser(r).ID,
			Ref:    data.NewCatalogRef(input.Movie, input.TV),
			Score:  input.Score,
			Review: input.Review,
		}

		v := validator.New()
		if data.ValidateMembership(v, rec); !v.Valid() {
			recordWrite(list, "rejected")
			app.failedValidationResponse(w, r, v.Errors)
			return
		}

		err = app.models.Memberships.Insert(rec)
		if err != nil {
			recordWrite(list, "rejected")
			app.membershipWriteErrorResponse(w, r, rec, err)
			return
		}
		recordWrite(list, "created")

		headers := make(http.Header)
		headers.Set("Location", fmt.Sprintf("%s/%d", listPath(list), rec.ID))

		err = app.writeJSON(w, http.StatusCreated, envelope{string(list): rec}, headers)
		if err != nil {
			app.serverErrorResponse(w, r, err)
		}
	}
}

func (app *application) showMembershipHandler(list data.List) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := app.loadMembership(w, r, list)
		if !ok {
			return
		}

		err := app.writeJSON(w, http.StatusOK, envelope{string(list): rec}, nil)
		if err != nil {
			app.serverErrorResponse(w, r, err)
		}
	}
}

// updateMembershipHandler changes the referenced entry, score or review of a
// record. The record keeps its kind: sending the other kind's reference is a
// validation error. PUT clears every field the request leaves out.
func (app *application) updateMembershipHandler(list data.List) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := app.loadMembership(w, r, list)
		if !ok {
			return
		}

		var input membershipInput

		err := app.readJSON(w, r, &input)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}

		if r.Method == http.MethodPut {
			rec.Ref.ID = 0
			rec.Score = nil
			rec.Review = nil
		}

		v := validator.New()

		switch rec.Ref.Kind {
		case data.KindMovie:
			v.Check(input.TV == nil, "tv", "cannot be set on a movie record")
			if input.Movie != nil {
				rec.Ref.ID = *input.Movie
			}
		case data.KindTV:
			v.Check(input.Movie == nil, "movie", "cannot be set on a tv record")
			if input.TV != nil {
				rec.Ref.ID = *input.TV
			}
		}

		if input.Score != nil {
			rec.Score = input.Score
		}
		if input.Review != nil {
			rec.Review = input.Review
		}

		if data.ValidateMembership(v, rec); !v.Valid() {
			recordWrite(list, "rejected")
			app.failedValidationResponse(w, r, v.Errors)
			return
		}

		err = app.models.Memberships.Update(rec)
		if err != nil {
			recordWrite(list, "rejected")
			app.membershipWriteErrorResponse(w, r, rec, err)
			return
		}
		recordWrite(list, "updated")

		err = app.writeJSON(w, http.StatusOK, envelope{string(list): rec}, nil)
		if err != nil {
			app.serverErrorResponse(w, r, err)
		}
	}
}

func (app *application) deleteMembershipHandler(list data.List) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := app.loadMembership(w, r, list)
		if !ok {
			return
		}

		err := app.models.Memberships.Delete(list, rec.ID)
		if err != nil {
			switch {
			case errors.Is(err, data.ErrRecordNotFound):
				app.notFoundResponse(w, r)
			default:
				app.serverErrorResponse(w, r, err)
			}
			return
		}
		recordWrite(list, "deleted")

		err = app.writeJSON(w, http.StatusOK, envelope{"message": "record successfully deleted"}, nil)
		if err != nil {
			app.serverErrorResponse(w, r, err)
		}
	}
}

// loadMembership resolves the record named by :id and checks that the caller
// may act on it with the request's method. Callers who are not elevated get
// 403 for ids that do not exist as well as for other users' records.
func (app *application) loadMembership(w http.ResponseWriter, r *http.Request, list data.List) (*data.Membership, bool) {
	caller := app.caller(r)
	elevated := access.Elevated(caller)

	denyMissing := func() {
		if elevated {
			app.notFoundResponse(w, r)
			return
		}
		app.notPermittedResponse(w, r)
	}

	id, err := app.readIDParam(r)
	if err != nil {
		denyMissing()
		return nil, false
	}

	kind, err := app.models.Memberships.Resolve(list, id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			denyMissing()
		default:
			app.serverErrorResponse(w, r, err)
		}
		return nil, false
	}

	rec, err := app.models.Memberships.Get(list, id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			denyMissing()
		default:
			app.serverErrorResponse(w, r, err)
		}
		return nil, false
	}

	if rec.Ref.Kind != kind {
		app.serverErrorResponse(w, r, fmt.Errorf("%s %d: resolved as %s but loaded as %s", list, id, kind, rec.Ref.Kind))
		return nil, false
	}

	// Detail reads are restricted to the owner as well.
	owner := caller.UserID == rec.UserID
	if !elevated && !(owner && access.OwnerOrReadOnly(caller, r.Method, rec.UserID)) {
		app.notPermittedResponse(w, r)
		return nil, false
	}

	return rec, true
}
